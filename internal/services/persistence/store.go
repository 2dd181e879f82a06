// Package persistence stores yields and daily water balances in InfluxDB and
// answers "latest yields" queries.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/legray/internal/model/entities"
	"github.com/LeonardoBeccarini/legray/internal/model/messages"
	"github.com/LeonardoBeccarini/legray/internal/services/simulation"
)

// InfluxConfig configures the InfluxDB connection and measurement names.
type InfluxConfig struct {
	URL                string
	Token              string
	Org                string
	Bucket             string
	YieldMeasurement   string // default legray_yield
	BalanceMeasurement string // default legray_water_balance
	WriteDays          bool   // also write one water-balance point per simulated day
}

// Store writes points with the blocking write API and tracks the last write
// failure for health reporting.
type Store struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
	cfg    InfluxConfig
	log    *zap.SugaredLogger

	mu      sync.RWMutex
	lastErr time.Time
}

func NewStore(cfg InfluxConfig, log *zap.SugaredLogger) (*Store, error) {
	if cfg.URL == "" || cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, errors.New("influx config incomplete")
	}
	if cfg.YieldMeasurement == "" {
		cfg.YieldMeasurement = "legray_yield"
	}
	if cfg.BalanceMeasurement == "" {
		cfg.BalanceMeasurement = "legray_water_balance"
	}
	cfg.YieldMeasurement = sanitizeMeasurement(cfg.YieldMeasurement)
	cfg.BalanceMeasurement = sanitizeMeasurement(cfg.BalanceMeasurement)
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Store{
		client:  client,
		write:   client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		cfg:     cfg,
		log:     log,
		lastErr: time.Now().Add(-24 * time.Hour),
	}, nil
}

func (s *Store) Name() string { return "influx" }

// WriteRun writes one point per cut and, with WriteDays, one per day.
func (s *Store) WriteRun(ctx context.Context, run *simulation.Run) error {
	evs := run.YieldEvents()
	points := make([]*write.Point, 0, len(evs)+len(run.Result.Days))
	for _, ev := range evs {
		points = append(points, YieldPoint(s.cfg.YieldMeasurement, ev))
	}
	if s.cfg.WriteDays {
		points = append(points, BalancePoints(s.cfg.BalanceMeasurement, run)...)
	}
	if err := s.writePoints(ctx, points); err != nil {
		return err
	}
	s.log.Infof("persistence: wrote run %s field=%s points=%d", run.ID, run.FieldID, len(points))
	return nil
}

// WriteYieldEvents writes events received from the broker.
func (s *Store) WriteYieldEvents(ctx context.Context, evs ...messages.YieldEvent) error {
	points := make([]*write.Point, 0, len(evs))
	for _, ev := range evs {
		points = append(points, YieldPoint(s.cfg.YieldMeasurement, ev))
	}
	return s.writePoints(ctx, points)
}

func (s *Store) writePoints(ctx context.Context, points []*write.Point) error {
	if len(points) == 0 {
		return nil
	}
	if err := s.write.WritePoint(ctx, points...); err != nil {
		s.mu.Lock()
		s.lastErr = time.Now()
		s.mu.Unlock()
		return fmt.Errorf("influx write: %w", err)
	}
	return nil
}

// LastErrorAge is the time since the last failed write.
func (s *Store) LastErrorAge() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.lastErr)
}

// Check fails when the server does not answer a ping or a write failed in
// the last 30 seconds.
func (s *Store) Check(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("influx ping failed")
	}
	if age := s.LastErrorAge(); age < 30*time.Second {
		return fmt.Errorf("influx write failed %s ago", age.Truncate(time.Second))
	}
	return nil
}

func (s *Store) Close() { s.client.Close() }

// YieldPoint is one cut, stamped at midnight UTC of the cut date.
func YieldPoint(measurement string, ev messages.YieldEvent) *write.Point {
	t := ev.Timestamp
	if d, err := entities.ParseDate(ev.Date); err == nil {
		t = d.Time()
	}
	tags := map[string]string{
		"field_id": ev.FieldID,
		"run_id":   ev.RunID,
	}
	if ev.Soil != "" {
		tags["soil"] = ev.Soil
	}
	fields := map[string]interface{}{
		"yield":       ev.Yield,
		"cn":          ev.CN,
		"sum_eta_mm":  ev.SumETA,
		"window_days": ev.Days,
	}
	return influxdb2.NewPoint(measurement, tags, fields, t)
}

// BalancePoints is the daily trace of a run, one point per day.
func BalancePoints(measurement string, run *simulation.Run) []*write.Point {
	tags := map[string]string{
		"field_id": run.FieldID,
		"run_id":   run.ID,
		"soil":     run.Soil.String(),
	}
	out := make([]*write.Point, 0, len(run.Result.Days))
	for _, d := range run.Result.Days {
		date, err := entities.ParseDate(d.Date)
		if err != nil {
			continue
		}
		out = append(out, influxdb2.NewPoint(measurement, tags, map[string]interface{}{
			"etp": d.ETP,
			"eta": d.ETA,
			"paw": d.PAW,
			"cn":  d.CN,
		}, date.Time()))
	}
	return out
}

func sanitizeMeasurement(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_', r == ':', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
