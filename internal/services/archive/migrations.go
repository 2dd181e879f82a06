package archive

import (
	"context"
	"fmt"
)

// Migration is one named schema change, applied at most once.
type Migration struct {
	Name string
	SQL  string
}

func migrations() []Migration {
	return []Migration{
		{
			Name: "001_create_legray_runs",
			SQL: `
			CREATE TABLE IF NOT EXISTS legray_runs (
				id VARCHAR(32) PRIMARY KEY,
				request_id VARCHAR(64),
				field_id VARCHAR(128) NOT NULL,
				soil VARCHAR(32) NOT NULL,
				pawc DOUBLE NOT NULL,
				window_mode VARCHAR(16) NOT NULL,
				rolling_balance BOOLEAN NOT NULL DEFAULT FALSE,
				days INT NOT NULL,
				cuts INT NOT NULL,
				unmatched TEXT,
				started_at TIMESTAMP(3) NOT NULL,
				took_ms BIGINT NOT NULL,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				INDEX idx_field_id (field_id)
			)
			`,
		},
		{
			Name: "002_create_legray_yields",
			SQL: `
			CREATE TABLE IF NOT EXISTS legray_yields (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				run_id VARCHAR(32) NOT NULL,
				cut_date DATE NOT NULL,
				cn INT NOT NULL,
				yield DOUBLE NOT NULL,
				sum_eta_mm DOUBLE NOT NULL,
				window_days INT NOT NULL,
				INDEX idx_run_id (run_id),
				INDEX idx_cut_date (cut_date),
				FOREIGN KEY (run_id) REFERENCES legray_runs(id) ON DELETE CASCADE
			)
			`,
		},
	}
}

// Migrate creates the migrations table and applies the pending migrations in order.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS migrations (
		id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		executed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)
	`); err != nil {
		return fmt.Errorf("archive: create migrations table: %w", err)
	}

	for _, m := range migrations() {
		var count int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations WHERE name = ?", m.Name).Scan(&count); err != nil {
			return fmt.Errorf("archive: migration %s: %w", m.Name, err)
		}
		if count > 0 {
			continue
		}
		s.log.Infof("archive: running migration %s", m.Name)
		if _, err := s.db.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("archive: migration %s: %w", m.Name, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO migrations (name) VALUES (?)", m.Name); err != nil {
			return fmt.Errorf("archive: record migration %s: %w", m.Name, err)
		}
	}
	return nil
}
