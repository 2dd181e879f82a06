// Package simulation runs the yield model on request, over HTTP or MQTT, and
// delivers the results to the configured sinks.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/legray/internal/legray"
	"github.com/LeonardoBeccarini/legray/internal/metrics"
	"github.com/LeonardoBeccarini/legray/internal/model"
	"github.com/LeonardoBeccarini/legray/internal/model/entities"
	"github.com/LeonardoBeccarini/legray/internal/model/messages"
	"github.com/LeonardoBeccarini/legray/internal/schedule"
	"github.com/LeonardoBeccarini/legray/pkg/rabbitmq"
)

// ErrBadRequest marks requests rejected before the model runs.
var ErrBadRequest = errors.New("bad simulation request")

// Run is one finished simulation together with what produced it.
type Run struct {
	ID             string
	RequestID      string
	FieldID        string
	Soil           entities.SoilTexture
	RollingBalance bool
	Window         legray.Window
	CuttingDates   []string
	StartedAt      time.Time
	Took           time.Duration
	Result         *legray.Result
}

// YieldEvents turns the run's records into broker events.
func (r *Run) YieldEvents() []messages.YieldEvent {
	out := make([]messages.YieldEvent, 0, len(r.Result.Yields))
	for i, y := range r.Result.Yields {
		ev := messages.YieldEvent{
			RunID:     r.ID,
			FieldID:   r.FieldID,
			Soil:      r.Soil.String(),
			Date:      y.Date,
			Yield:     y.Yield,
			CN:        y.CN,
			Timestamp: r.StartedAt,
		}
		if i < len(r.Result.Windows) {
			ev.SumETA = r.Result.Windows[i].SumETA
			ev.Days = r.Result.Windows[i].Days()
		}
		out = append(out, ev)
	}
	return out
}

// Sink stores a finished run (InfluxDB, MySQL archive).
type Sink interface {
	Name() string
	WriteRun(ctx context.Context, run *Run) error
}

// RunnerConfig wires a Runner. Every dependency but the logger is optional.
type RunnerConfig struct {
	Publisher   rabbitmq.IPublisher
	YieldTopic  string // template with {field} and {run}
	ResultTopic string
	Sinks       []Sink
	Metrics     *metrics.Metrics
	Logger      *zap.SugaredLogger
	NewID       func() (string, error)
}

// Runner executes simulation requests one at a time per call; it is safe for
// concurrent use as long as its sinks are.
type Runner struct {
	pub         rabbitmq.IPublisher
	yieldTopic  string
	resultTopic string
	sinks       []Sink
	metrics     *metrics.Metrics
	log         *zap.SugaredLogger
	newID       func() (string, error)
}

func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.NewID == nil {
		cfg.NewID = NewRunID
	}
	if cfg.YieldTopic == "" {
		cfg.YieldTopic = "legray/yield/{field}"
	}
	if cfg.ResultTopic == "" {
		cfg.ResultTopic = "legray/result/{field}"
	}
	return &Runner{
		pub:         cfg.Publisher,
		yieldTopic:  cfg.YieldTopic,
		resultTopic: cfg.ResultTopic,
		sinks:       cfg.Sinks,
		metrics:     cfg.Metrics,
		log:         cfg.Logger,
		newID:       cfg.NewID,
	}
}

// Simulate validates req, runs the model and delivers the outcome. Sink and
// broker failures are logged and counted but do not fail the run.
func (r *Runner) Simulate(ctx context.Context, req messages.SimulationRequest) (*Run, error) {
	started := time.Now()
	id, err := r.newID()
	if err != nil {
		return nil, fmt.Errorf("simulation: run id: %w", err)
	}
	run := &Run{ID: id, RequestID: req.RequestID, FieldID: strings.TrimSpace(req.FieldID), StartedAt: started.UTC()}

	if err := r.prepare(run, req); err != nil {
		r.metrics.ObserveRun("invalid", 0, 0, time.Since(started))
		r.log.Warnf("simulation: run %s field=%s rejected: %v", run.ID, run.FieldID, err)
		r.publishResult(run, err)
		return nil, err
	}

	res, err := legray.Run(legray.Input{
		Soil:         run.Soil,
		Weather:      req.Weather,
		CuttingDates: run.CuttingDates,
	}, legray.Options{
		RollingBalance: run.RollingBalance,
		Window:         run.Window,
		Logger:         r.log.With("run_id", run.ID, "field_id", run.FieldID),
	})
	run.Took = time.Since(started)
	if err != nil {
		r.metrics.ObserveRun("invalid", 0, 0, run.Took)
		r.log.Warnf("simulation: run %s field=%s rejected: %v", run.ID, run.FieldID, err)
		err = fmt.Errorf("%w: %w", ErrBadRequest, err)
		r.publishResult(run, err)
		return nil, err
	}
	run.Result = res

	r.metrics.ObserveRun("ok", len(res.Days), len(res.Yields), run.Took)
	if n := len(res.Yields); n > 0 {
		r.metrics.SetLastYield(run.FieldID, res.Yields[n-1].Yield)
	}
	r.log.Infof("simulation: run %s field=%s soil=%s days=%d cuts=%d unmatched=%d took=%s",
		run.ID, run.FieldID, run.Soil, len(res.Days), len(res.Yields), len(res.Unmatched), run.Took)

	r.deliver(ctx, run)
	return run, nil
}

func (r *Runner) prepare(run *Run, req messages.SimulationRequest) error {
	if run.FieldID == "" {
		return fmt.Errorf("%w: missing field_id", ErrBadRequest)
	}
	run.Soil = entities.ParseSoilTexture(req.Soil)
	if run.Soil == entities.SoilUnknown {
		r.log.Warnf("simulation: field=%s unknown soil %q, using PAWC %.0f", run.FieldID, req.Soil, entities.DefaultPAWC)
	}
	w, err := legray.ParseWindow(req.Window)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	run.Window = w
	run.RollingBalance = req.RollingBalance

	var derived []string
	if len(req.CutDays) > 0 || len(req.CuttingDates) == 0 {
		derived, err = schedule.Annual(req.Weather.Date, req.CutDays...)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
	}
	run.CuttingDates = schedule.Merge(req.CuttingDates, derived)
	return nil
}

func (r *Runner) deliver(ctx context.Context, run *Run) {
	if r.pub != nil {
		topic := rabbitmq.Topic(r.yieldTopic, run.FieldID, run.ID)
		for _, ev := range run.YieldEvents() {
			if err := r.pub.PublishJSON(topic, ev); err != nil {
				r.metrics.SinkError("mqtt")
				r.log.Errorf("simulation: publish yield %s on %s: %v", ev.Date, topic, err)
				break
			}
		}
		r.publishResult(run, nil)
	}
	for _, s := range r.sinks {
		if err := s.WriteRun(ctx, run); err != nil {
			r.metrics.SinkError(s.Name())
			r.log.Errorf("simulation: sink %s run %s: %v", s.Name(), run.ID, err)
		}
	}
}

func (r *Runner) publishResult(run *Run, runErr error) {
	if r.pub == nil || run.FieldID == "" {
		return
	}
	ev := messages.SimulationResultEvent{
		RunID:     run.ID,
		RequestID: run.RequestID,
		FieldID:   run.FieldID,
		Status:    model.StatusOK,
		Timestamp: time.Now().UTC(),
	}
	if run.Result != nil {
		ev.Cuts = len(run.Result.Yields)
		ev.Days = len(run.Result.Days)
	}
	if runErr != nil {
		ev.Status = model.StatusFail
		ev.Reason = runErr.Error()
	}
	topic := rabbitmq.Topic(r.resultTopic, run.FieldID, run.ID)
	if err := r.pub.PublishJSON(topic, ev); err != nil {
		r.metrics.SinkError("mqtt")
		r.log.Errorf("simulation: publish result on %s: %v", topic, err)
	}
}
