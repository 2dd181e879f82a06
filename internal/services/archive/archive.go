// Package archive keeps every simulation run and its yields in MySQL.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/legray/internal/services/simulation"
)

// Config locates the archive database.
type Config struct {
	User     string
	Password string
	Host     string
	Port     int
	DBName   string
	Timeout  time.Duration
}

// DSN renders the go-sql-driver connection string.
func (c Config) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	mc.DBName = c.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	if c.Timeout > 0 {
		mc.Timeout = c.Timeout
	}
	return mc.FormatDSN()
}

// Store archives runs.
type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// Open connects, pings and migrates.
func Open(ctx context.Context, cfg Config, log *zap.SugaredLogger) (*Store, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: ping %s: %w", cfg.Host, err)
	}
	s := New(db, log)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database without migrating it.
func New(db *sql.DB, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{db: db, log: log}
}

func (s *Store) Name() string { return "archive" }

func (s *Store) Check(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

// WriteRun inserts the run and its yields in one transaction.
func (s *Store) WriteRun(ctx context.Context, run *simulation.Run) error {
	unmatched, err := json.Marshal(run.Result.Unmatched)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO legray_runs (
			id, request_id, field_id, soil, pawc, window_mode, rolling_balance,
			days, cuts, unmatched, started_at, took_ms
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.RequestID, run.FieldID, run.Soil.String(), run.Result.PAWC,
		run.Window.String(), run.RollingBalance, len(run.Result.Days), len(run.Result.Yields),
		string(unmatched), run.StartedAt, run.Took.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("archive: insert run %s: %w", run.ID, err)
	}

	for _, ev := range run.YieldEvents() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO legray_yields (run_id, cut_date, cn, yield, sum_eta_mm, window_days)
			VALUES (?,?,?,?,?,?)`,
			run.ID, ev.Date, ev.CN, ev.Yield, ev.SumETA, ev.Days,
		); err != nil {
			return fmt.Errorf("archive: insert yield %s of run %s: %w", ev.Date, run.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit run %s: %w", run.ID, err)
	}
	s.log.Debugf("archive: stored run %s with %d yields", run.ID, len(run.Result.Yields))
	return nil
}
