package app

import (
	"time"

	"github.com/LeonardoBeccarini/legray/internal/model/messages"
)

type YieldEvent = messages.YieldEvent

// envelope mirrors the {code,message,data} answer of the backend services.
type envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// readiness is the body of a service's /readyz.
type readiness struct {
	Status string            `json:"status"`
	Deps   map[string]string `json:"deps,omitempty"`
}

type YieldStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Last  float64 `json:"last"`
}

type ServiceStatus struct {
	Status  string            `json:"status"` // ok | degraded | down | unconfigured
	Breaker string            `json:"breaker"`
	Deps    map[string]string `json:"deps,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type DashboardData struct {
	FieldID  string                   `json:"field_id,omitempty"`
	Yields   []YieldEvent             `json:"yields"`
	Stats    YieldStats               `json:"stats"`
	Services map[string]ServiceStatus `json:"services"`
	Stale    bool                     `json:"stale,omitempty"`
	CachedAt *time.Time               `json:"cached_at,omitempty"`
}
