package app

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
)

func init() { gin.SetMode(gin.TestMode) }

func dashboard(t *testing.T, gw *Gateway, query string) DashboardData {
	t.Helper()
	r := gin.New()
	r.GET("/dashboard/data", gw.HandleDashboard)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/data"+query, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out DashboardData
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestDashboard_Aggregates(t *testing.T) {
	persistence := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/yields/latest":
			if r.URL.Query().Get("field_id") != "f1" || r.URL.Query().Get("limit") != "3" {
				t.Errorf("query = %s", r.URL.RawQuery)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"code": 200, "message": "success", "data": []YieldEvent{
				{FieldID: "f1", Date: "2001-07-01", Yield: 4, CN: 2},
				{FieldID: "f1", Date: "2001-05-15", Yield: 2, CN: 1},
			}})
		case "/readyz":
			_, _ = w.Write([]byte(`{"status":"ok","deps":{"influx":"ok"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer persistence.Close()
	simulation := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"degraded","deps":{"mqtt":"not connected"}}`))
	}))
	defer simulation.Close()

	gw := NewGateway(Config{PersistenceBaseURL: persistence.URL, SimulationBaseURL: simulation.URL, HTTPTimeout: time.Second})
	out := dashboard(t, gw, "?field_id=f1&limit=3")

	if len(out.Yields) != 2 || out.Stale {
		t.Fatalf("yields = %+v stale=%t", out.Yields, out.Stale)
	}
	if out.Stats.Count != 2 || out.Stats.Mean != 3 || out.Stats.Min != 2 || out.Stats.Max != 4 || out.Stats.Last != 4 {
		t.Fatalf("stats = %+v", out.Stats)
	}
	if st := out.Services["persistence"]; st.Status != "ok" || st.Deps["influx"] != "ok" {
		t.Fatalf("persistence = %+v", st)
	}
	if st := out.Services["simulation"]; st.Status != "degraded" || st.Deps["mqtt"] != "not connected" {
		t.Fatalf("simulation = %+v", st)
	}
}

func TestDashboard_ServesCacheWhenUpstreamFails(t *testing.T) {
	var failing atomic.Bool
	persistence := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if r.URL.Path == "/readyz" {
			_, _ = w.Write([]byte(`{"status":"ok"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []YieldEvent{{FieldID: "f1", Date: "2001-05-15", Yield: 2.5, CN: 1}}})
	}))
	defer persistence.Close()

	gw := NewGateway(Config{PersistenceBaseURL: persistence.URL, HTTPTimeout: time.Second})
	if out := dashboard(t, gw, "?field_id=f1"); len(out.Yields) != 1 {
		t.Fatalf("warm-up yields = %+v", out.Yields)
	}

	failing.Store(true)
	out := dashboard(t, gw, "?field_id=f1")
	if !out.Stale || out.CachedAt == nil || len(out.Yields) != 1 || out.Yields[0].Yield != 2.5 {
		t.Fatalf("expected cached yields, got %+v", out)
	}
	if st := out.Services["persistence"]; st.Status != "down" {
		t.Fatalf("persistence = %+v", st)
	}
	if st := out.Services["simulation"]; st.Status != "unconfigured" {
		t.Fatalf("simulation = %+v", st)
	}

	if out := dashboard(t, gw, "?field_id=other"); out.Stale || len(out.Yields) != 0 {
		t.Fatalf("no cache for another field, got %+v", out)
	}
}

func TestUpstream_BreakerOpens(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	up := NewUpstream("test", srv.URL, "/x", time.Second, BreakerConfig{Failures: 2, OpenFor: time.Minute})
	var out any
	for i := 0; i < 4; i++ {
		_ = up.GetJSON(context.Background(), nil, &out)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
	if up.State() != gobreaker.StateOpen {
		t.Fatalf("state = %s", up.State())
	}
	if err := up.GetJSON(context.Background(), nil, &out); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v", err)
	}
}

func TestSummarize(t *testing.T) {
	if s := Summarize(nil); s != (YieldStats{}) {
		t.Fatalf("empty = %+v", s)
	}
	s := Summarize([]YieldEvent{{Yield: 1.5}, {Yield: 2.5}, {Yield: 0.5}})
	if s.Count != 3 || math.Abs(s.Mean-1.5) > 1e-12 || s.Min != 0.5 || s.Max != 2.5 || s.Last != 1.5 {
		t.Fatalf("stats = %+v", s)
	}
}
