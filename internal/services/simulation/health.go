package simulation

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// Health aggregates dependency checks for /healthz and /readyz.
type Health struct {
	mu      sync.RWMutex
	names   []string
	checks  map[string]Check
	timeout time.Duration
}

func NewHealth(timeout time.Duration) *Health {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Health{checks: make(map[string]Check), timeout: timeout}
}

// Add registers a named check; a later Add with the same name replaces it.
func (h *Health) Add(name string, c Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.checks[name]; !ok {
		h.names = append(h.names, name)
	}
	h.checks[name] = c
}

// HealthStatus is the body of /healthz and /readyz.
type HealthStatus struct {
	Status string            `json:"status"` // ok | degraded
	Deps   map[string]string `json:"deps,omitempty"`
}

// Run executes every check with the configured timeout.
func (h *Health) Run(ctx context.Context) HealthStatus {
	if h == nil {
		return HealthStatus{Status: "ok"}
	}
	h.mu.RLock()
	names := append([]string(nil), h.names...)
	checks := make([]Check, len(names))
	for i, n := range names {
		checks[i] = h.checks[n]
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	st := HealthStatus{Status: "ok", Deps: make(map[string]string, len(names))}
	for i, n := range names {
		if err := checks[i](ctx); err != nil {
			st.Deps[n] = err.Error()
			st.Status = "degraded"
			continue
		}
		st.Deps[n] = "ok"
	}
	return st
}

// Liveness always answers 200; the body says which dependencies are down.
func (h *Health) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, h.Run(c.Request.Context()))
}

// Readiness answers 503 while any dependency is down.
func (h *Health) Readiness(c *gin.Context) {
	st := h.Run(c.Request.Context())
	code := http.StatusOK
	if st.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, st)
}
