package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/legray/internal/model/entities"
)

// ClientConfig configures the upstream weather service client.
type ClientConfig struct {
	BaseURL         string
	Path            string // default /v1/daily
	Timeout         time.Duration
	MaxRetries      int
	InitialBackoff  time.Duration
	BreakerFailures int
	BreakerOpenFor  time.Duration
	Logger          *zap.SugaredLogger
}

// Client fetches daily weather series from an HTTP service returning
// entities.WeatherSeries as JSON. Calls go through a circuit breaker and are
// retried with exponential backoff.
type Client struct {
	base    string
	path    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	retries int
	initial time.Duration
	log     *zap.SugaredLogger
}

// StatusError is a non-2xx answer from the upstream.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("weather upstream status %d: %s", e.Code, e.Body)
}

func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("weather client: missing base url")
	}
	path := cfg.Path
	if path == "" {
		path = "/v1/daily"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.BreakerFailures < 1 {
		cfg.BreakerFailures = 3
	}
	if cfg.BreakerOpenFor <= 0 {
		cfg.BreakerOpenFor = 30 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	fails := uint32(cfg.BreakerFailures)
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "weather-upstream",
		Timeout: cfg.BreakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("weather: breaker %s %s -> %s", name, from, to)
		},
	})
	return &Client{
		base:    base,
		path:    "/" + strings.TrimLeft(path, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		retries: cfg.MaxRetries,
		initial: cfg.InitialBackoff,
		log:     log,
	}, nil
}

// FetchSeries returns the daily series for [from, to] at lat/lon.
func (c *Client) FetchSeries(ctx context.Context, lat, lon float64, from, to entities.Date) (entities.WeatherSeries, error) {
	if to.Before(from) {
		return entities.WeatherSeries{}, fmt.Errorf("weather client: %s is before %s", to, from)
	}
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("from", from.String())
	q.Set("to", to.String())
	target := c.base + c.path + "?" + q.Encode()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initial
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.retries)), ctx)

	var out entities.WeatherSeries
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		res, err := c.breaker.Execute(func() (interface{}, error) {
			return c.get(ctx, target)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			var se *StatusError
			if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			c.log.Debugf("weather: attempt %d failed: %v", attempt, err)
			return err
		}
		out = res.(entities.WeatherSeries)
		return nil
	}, policy)
	if err != nil {
		return entities.WeatherSeries{}, fmt.Errorf("weather client: fetch %s..%s: %w", from, to, err)
	}
	c.log.Infof("weather: fetched %d days lat=%.3f lon=%.3f in %d attempt(s)", out.Len(), lat, lon, attempt)
	return out, nil
}

func (c *Client) get(ctx context.Context, target string) (entities.WeatherSeries, error) {
	var out entities.WeatherSeries
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return out, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return out, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode: %w", err)
	}
	return out, nil
}
