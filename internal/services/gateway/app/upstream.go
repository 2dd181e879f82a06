package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned by an Upstream without a base URL.
var ErrNotConfigured = errors.New("upstream not configured")

type BreakerConfig struct {
	Failures int
	OpenFor  time.Duration
	Logger   *zap.SugaredLogger
}

// StatusError is a non-2xx answer. Body keeps the start of the payload so a
// degraded /readyz can still be reported.
type StatusError struct {
	Upstream string
	Code     int
	Body     []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s upstream status %d", e.Upstream, e.Code)
}

// Upstream wraps GET calls to one service with a circuit breaker.
type Upstream struct {
	name    string
	base    string
	path    string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewUpstream(name, base, path string, timeout time.Duration, bc BreakerConfig) *Upstream {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	path = "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
	fails := bc.Failures
	if fails < 1 {
		fails = 3
	}
	openFor := bc.OpenFor
	if openFor <= 0 {
		openFor = 10 * time.Second
	}
	log := bc.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(fails)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("gateway: breaker %s %s -> %s", name, from, to)
		},
	})
	return &Upstream{
		name:    name,
		base:    base,
		path:    path,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

func (u *Upstream) Name() string { return u.name }

func (u *Upstream) State() gobreaker.State { return u.breaker.State() }

// GetJSON issues GET base+path?query and decodes the JSON body into out.
func (u *Upstream) GetJSON(ctx context.Context, query url.Values, out any) error {
	if u == nil || u.base == "" {
		return ErrNotConfigured
	}
	target := u.base + u.path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	_, err := u.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := u.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s request error: %w", u.name, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return nil, &StatusError{Upstream: u.name, Code: resp.StatusCode, Body: b}
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("%s decode error: %w", u.name, err)
		}
		return nil, nil
	})
	return err
}
