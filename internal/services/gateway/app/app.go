// Package app is the dashboard gateway: it fans out to the persistence
// service for the latest yields and to every service's /readyz, each behind
// its own circuit breaker, and answers with one aggregated document.
package app

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	PersistenceBaseURL string
	SimulationBaseURL  string
	YieldsPath         string // default /v1/yields/latest
	ReadyPath          string // default /readyz
	HTTPTimeout        time.Duration

	BreakerFailures int
	BreakerOpenFor  time.Duration

	Logger *zap.SugaredLogger
}

type Gateway struct {
	cfg         Config
	yields      *Upstream
	persistence *Upstream
	simulation  *Upstream
	log         *zap.SugaredLogger

	mu        sync.Mutex
	lastGood  map[string][]YieldEvent
	lastGoodT map[string]time.Time
}

func NewGateway(cfg Config) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.YieldsPath == "" {
		cfg.YieldsPath = "/v1/yields/latest"
	}
	if cfg.ReadyPath == "" {
		cfg.ReadyPath = "/readyz"
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 3 * time.Second
	}
	bc := BreakerConfig{Failures: cfg.BreakerFailures, OpenFor: cfg.BreakerOpenFor, Logger: cfg.Logger}

	return &Gateway{
		cfg:         cfg,
		yields:      NewUpstream("persistence-yields", cfg.PersistenceBaseURL, cfg.YieldsPath, cfg.HTTPTimeout, bc),
		persistence: NewUpstream("persistence-ready", cfg.PersistenceBaseURL, cfg.ReadyPath, cfg.HTTPTimeout, bc),
		simulation:  NewUpstream("simulation-ready", cfg.SimulationBaseURL, cfg.ReadyPath, cfg.HTTPTimeout, bc),
		log:         cfg.Logger,
		lastGood:    make(map[string][]YieldEvent),
		lastGoodT:   make(map[string]time.Time),
	}
}

func (g *Gateway) remember(fieldID string, ys []YieldEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastGood[fieldID] = ys
	g.lastGoodT[fieldID] = time.Now()
}

func (g *Gateway) cached(fieldID string) ([]YieldEvent, time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ys, ok := g.lastGood[fieldID]
	return ys, g.lastGoodT[fieldID], ok
}
