package archive

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/LeonardoBeccarini/legray/internal/legray"
	"github.com/LeonardoBeccarini/legray/internal/model/entities"
	"github.com/LeonardoBeccarini/legray/internal/model/messages"
	"github.com/LeonardoBeccarini/legray/internal/services/simulation"
)

func TestConfig_DSN(t *testing.T) {
	dsn := Config{User: "legray", Password: "p@ss", Host: "db", Port: 3306, DBName: "legray", Timeout: 5 * time.Second}.DSN()
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("parse %q: %v", dsn, err)
	}
	if cfg.User != "legray" || cfg.Passwd != "p@ss" || cfg.Addr != "db:3306" || cfg.DBName != "legray" || !cfg.ParseTime || cfg.Timeout != 5*time.Second {
		t.Fatalf("round trip of %q = %+v", dsn, cfg)
	}
}

// recorder is a database/sql driver that remembers statements and knows
// nothing but "SELECT COUNT(*)".
type recorder struct {
	mu       sync.Mutex
	execs    []string
	args     [][]driver.Value
	applied  map[string]bool
	failOn   string
	commits  int
	rollback int
}

type rconn struct{ r *recorder }
type rstmt struct {
	r     *recorder
	query string
}
type rtx struct{ r *recorder }
type rrows struct {
	n    int64
	done bool
}

var (
	drvMu sync.Mutex
	drvs  = map[string]*recorder{}
)

type rdriver struct{}

func (rdriver) Open(name string) (driver.Conn, error) {
	drvMu.Lock()
	defer drvMu.Unlock()
	return &rconn{r: drvs[name]}, nil
}

func init() { sql.Register("archive-recorder", rdriver{}) }

func (c *rconn) Prepare(q string) (driver.Stmt, error) { return &rstmt{r: c.r, query: q}, nil }
func (c *rconn) Close() error                          { return nil }
func (c *rconn) Begin() (driver.Tx, error)             { return &rtx{r: c.r}, nil }

func (t *rtx) Commit() error {
	t.r.mu.Lock()
	t.r.commits++
	t.r.mu.Unlock()
	return nil
}
func (t *rtx) Rollback() error {
	t.r.mu.Lock()
	t.r.rollback++
	t.r.mu.Unlock()
	return nil
}

func (s *rstmt) Close() error  { return nil }
func (s *rstmt) NumInput() int { return -1 }
func (s *rstmt) Exec(args []driver.Value) (driver.Result, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	q := strings.Join(strings.Fields(s.query), " ")
	if s.r.failOn != "" && strings.Contains(q, s.r.failOn) {
		return nil, errors.New("boom")
	}
	s.r.execs = append(s.r.execs, q)
	s.r.args = append(s.r.args, args)
	if strings.HasPrefix(q, "INSERT INTO migrations") {
		s.r.applied[args[0].(string)] = true
	}
	return driver.RowsAffected(1), nil
}
func (s *rstmt) Query(args []driver.Value) (driver.Rows, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	var n int64
	if len(args) == 1 && s.r.applied[args[0].(string)] {
		n = 1
	}
	return &rrows{n: n}, nil
}

func (r *rrows) Columns() []string { return []string{"count"} }
func (r *rrows) Close() error      { return nil }
func (r *rrows) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	r.done = true
	dest[0] = r.n
	return nil
}

func openRecorder(t *testing.T) (*Store, *recorder) {
	t.Helper()
	rec := &recorder{applied: map[string]bool{}}
	drvMu.Lock()
	drvs[t.Name()] = rec
	drvMu.Unlock()
	db, err := sql.Open("archive-recorder", t.Name())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return New(db, nil), rec
}

func (r *recorder) count(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, q := range r.execs {
		if strings.HasPrefix(q, prefix) {
			n++
		}
	}
	return n
}

func TestStore_MigrateOnce(t *testing.T) {
	s, rec := openRecorder(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("migrate %d: %v", i, err)
		}
	}
	if got := rec.count("CREATE TABLE IF NOT EXISTS legray_"); got != len(migrations()) {
		t.Fatalf("schema statements = %d, want %d", got, len(migrations()))
	}
	if got := rec.count("INSERT INTO migrations"); got != len(migrations()) {
		t.Fatalf("recorded migrations = %d", got)
	}
}

func archivedRun() *simulation.Run {
	return &simulation.Run{
		ID:        "run1",
		RequestID: "req1",
		FieldID:   "f1",
		Soil:      entities.SoilSiltyLoam,
		Window:    legray.WindowExclusive,
		StartedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Took:      1500 * time.Microsecond,
		Result: &legray.Result{
			PAWC: 235,
			Yields: []messages.YieldRecord{
				{Date: "2001-05-15", Yield: 3.1, CN: 1},
				{Date: "2001-07-01", Yield: 2.4, CN: 2},
			},
			Windows:   []legray.CutWindow{{Start: 0, End: 13, SumETA: 60}, {Start: 14, End: 60, SumETA: 30}},
			Days:      make([]legray.DayTrace, 92),
			Unmatched: []string{"2001-08-01"},
		},
	}
}

func TestStore_WriteRun(t *testing.T) {
	s, rec := openRecorder(t)
	if err := s.WriteRun(context.Background(), archivedRun()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if rec.count("INSERT INTO legray_runs") != 1 || rec.count("INSERT INTO legray_yields") != 2 || rec.commits != 1 {
		t.Fatalf("execs = %v commits=%d", rec.execs, rec.commits)
	}
	run := rec.args[0]
	if run[0] != "run1" || run[3] != "silty loam" || run[5] != "exclusive" || run[7] != int64(92) || run[9] != `["2001-08-01"]` || run[11] != int64(1) {
		t.Fatalf("run args = %v", run)
	}
	second := rec.args[2]
	if second[1] != "2001-07-01" || second[2] != int64(2) || second[4] != float64(30) || second[5] != int64(47) {
		t.Fatalf("yield args = %v", second)
	}
}

func TestStore_WriteRunRollsBack(t *testing.T) {
	s, rec := openRecorder(t)
	rec.failOn = "INSERT INTO legray_yields"
	if err := s.WriteRun(context.Background(), archivedRun()); err == nil {
		t.Fatalf("expected error")
	}
	if rec.commits != 0 || rec.rollback != 1 {
		t.Fatalf("commits=%d rollbacks=%d", rec.commits, rec.rollback)
	}
}
