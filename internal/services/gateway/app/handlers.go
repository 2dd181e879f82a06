package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// HandleDashboard answers GET /dashboard/data?field_id=&limit=.
// When the yields upstream fails the last good answer for the field is
// served with stale=true.
func (g *Gateway) HandleDashboard(c *gin.Context) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(c.Request.Context(), g.cfg.HTTPTimeout)
	defer cancel()

	fieldID := strings.TrimSpace(c.Query("field_id"))
	q := url.Values{}
	if fieldID != "" {
		q.Set("field_id", fieldID)
	}
	if l := strings.TrimSpace(c.Query("limit")); l != "" {
		q.Set("limit", l)
	}

	data := DashboardData{
		FieldID:  fieldID,
		Yields:   []YieldEvent{},
		Services: make(map[string]ServiceStatus, 2),
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		yields   []YieldEvent
		yieldErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		var env envelope[[]YieldEvent]
		yieldErr = g.yields.GetJSON(ctx, q, &env)
		yields = env.Data
	}()
	for _, up := range []*Upstream{g.persistence, g.simulation} {
		go func(up *Upstream) {
			defer wg.Done()
			st := g.status(ctx, up)
			mu.Lock()
			data.Services[strings.TrimSuffix(up.Name(), "-ready")] = st
			mu.Unlock()
		}(up)
	}
	wg.Wait()

	if yieldErr == nil {
		if yields == nil {
			yields = []YieldEvent{}
		}
		data.Yields = yields
		g.remember(fieldID, yields)
	} else if ys, at, ok := g.cached(fieldID); ok {
		g.log.Warnf("gateway: yields upstream failed, serving cache from %s: %v", at.Format(time.RFC3339), yieldErr)
		data.Yields = ys
		data.Stale = true
		data.CachedAt = &at
	} else {
		g.log.Warnf("gateway: yields upstream failed: %v", yieldErr)
	}
	data.Stats = Summarize(data.Yields)

	c.JSON(http.StatusOK, data)
	g.log.Infof("GET /dashboard/data [%dms] cb[yields]=%s cb[persistence]=%s cb[simulation]=%s yields=%d stale=%t",
		time.Since(start).Milliseconds(), g.yields.State(), g.persistence.State(), g.simulation.State(),
		len(data.Yields), data.Stale)
}

func (g *Gateway) status(ctx context.Context, up *Upstream) ServiceStatus {
	var r readiness
	err := up.GetJSON(ctx, nil, &r)
	st := ServiceStatus{Breaker: up.State().String()}
	var se *StatusError
	switch {
	case err == nil:
		st.Status, st.Deps = r.Status, r.Deps
		if st.Status == "" {
			st.Status = "ok"
		}
	case errors.Is(err, ErrNotConfigured):
		st.Status = "unconfigured"
	case errors.As(err, &se) && se.Code == http.StatusServiceUnavailable && json.Unmarshal(se.Body, &r) == nil:
		st.Status, st.Deps = "degraded", r.Deps
	default:
		st.Status, st.Error = "down", err.Error()
	}
	return st
}

// Summarize computes the yield statistics shown next to the table. Last is
// the first element, the backend sorts newest first.
func Summarize(ys []YieldEvent) YieldStats {
	if len(ys) == 0 {
		return YieldStats{}
	}
	xs := make([]float64, len(ys))
	for i, y := range ys {
		xs[i] = y.Yield
	}
	return YieldStats{
		Count: len(xs),
		Mean:  stat.Mean(xs, nil),
		Min:   floats.Min(xs),
		Max:   floats.Max(xs),
		Last:  xs[0],
	}
}
