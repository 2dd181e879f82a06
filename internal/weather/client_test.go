package weather

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/legray/internal/model/entities"
)

func mustDate(t *testing.T, s string) entities.Date {
	t.Helper()
	d, err := entities.ParseDate(s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return d
}

func TestClient_FetchSeries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.URL.Path != "/v1/daily" || r.URL.Query().Get("from") != "2000-05-01" || r.URL.Query().Get("lat") != "52.625" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_ = json.NewEncoder(w).Encode(entities.WeatherSeries{
			Date: []string{"2000-05-01", "2000-05-02"},
			T:    []float64{10, 11},
			PREC: []float64{0, 1},
			Rg:   []float64{12, 13},
		})
	}))
	defer srv.Close()

	c, err := NewClient(ClientConfig{BaseURL: srv.URL + "/", MaxRetries: 2, InitialBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ws, err := c.FetchSeries(context.Background(), 52.625, 13.375, mustDate(t, "2000-05-01"), mustDate(t, "2000-05-02"))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if ws.Len() != 2 || ws.Rg[1] != 13 {
		t.Fatalf("series = %+v", ws)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls = %d, want 2 (one retry)", got)
	}
}

func TestClient_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "no station", http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := NewClient(ClientConfig{BaseURL: srv.URL, MaxRetries: 3, InitialBackoff: time.Millisecond})
	_, err := c.FetchSeries(context.Background(), 0, 0, mustDate(t, "2000-05-01"), mustDate(t, "2000-05-02"))
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("err = %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestClient_BreakerOpens(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := NewClient(ClientConfig{
		BaseURL:         srv.URL,
		MaxRetries:      5,
		InitialBackoff:  time.Millisecond,
		BreakerFailures: 2,
		BreakerOpenFor:  time.Minute,
	})
	_, err := c.FetchSeries(context.Background(), 0, 0, mustDate(t, "2000-05-01"), mustDate(t, "2000-05-02"))
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want open breaker", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls = %d, want 2 before the breaker opened", got)
	}
	if c.breaker.State() != gobreaker.StateOpen {
		t.Fatalf("state = %s", c.breaker.State())
	}
}

func TestClient_RejectsReversedRange(t *testing.T) {
	c, _ := NewClient(ClientConfig{BaseURL: "http://example.invalid"})
	if _, err := c.FetchSeries(context.Background(), 0, 0, mustDate(t, "2000-05-02"), mustDate(t, "2000-05-01")); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Fatalf("expected error for missing base url")
	}
}
