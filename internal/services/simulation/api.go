package simulation

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/legray/internal/legray"
	"github.com/LeonardoBeccarini/legray/internal/metrics"
	"github.com/LeonardoBeccarini/legray/internal/model/messages"
	"github.com/LeonardoBeccarini/legray/internal/report"
)

// YieldSource answers "latest yields" queries, typically from InfluxDB.
type YieldSource interface {
	LatestYields(ctx context.Context, fieldID string, minutes, limit int) ([]messages.YieldEvent, error)
}

// RouterConfig wires the HTTP API. Runner is required.
type RouterConfig struct {
	Runner    *Runner
	Yields    YieldSource
	Health    *Health
	Metrics   *metrics.Metrics
	JWTSecret string
	Logger    *zap.SugaredLogger
}

// SimulationResponse is the data of a successful POST /v1/simulations.
type SimulationResponse struct {
	RunID     string                 `json:"run_id"`
	FieldID   string                 `json:"field_id"`
	Soil      string                 `json:"soil"`
	PAWC      float64                `json:"pawc"`
	Window    string                 `json:"window"`
	Yields    []messages.YieldRecord `json:"yields"`
	Windows   []legray.CutWindow     `json:"windows"`
	Unmatched []string               `json:"unmatched,omitempty"`
	Seasons   []report.Season        `json:"seasons"`
	Days      []legray.DayTrace      `json:"days,omitempty"`
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/healthz", cfg.Health.Liveness)
	r.GET("/readyz", cfg.Health.Readiness)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/v1")
	if cfg.JWTSecret != "" {
		v1.Use(AuthMiddleware([]byte(cfg.JWTSecret)))
	}
	h := &handlers{runner: cfg.Runner, log: log}
	v1.POST("/simulations", h.simulate)
	v1.GET("/yields/latest", LatestYieldsHandler(cfg.Yields, log))
	return r
}

type handlers struct {
	runner *Runner
	log    *zap.SugaredLogger
}

// POST /v1/simulations[?trace=true]
func (h *handlers) simulate(c *gin.Context) {
	var req messages.SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body: "+err.Error())
		return
	}
	run, err := h.runner.Simulate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrBadRequest) {
			badRequest(c, err.Error())
			return
		}
		h.log.Errorf("simulation: %v", err)
		internalError(c, "simulation failed")
		return
	}

	out := SimulationResponse{
		RunID:     run.ID,
		FieldID:   run.FieldID,
		Soil:      run.Soil.String(),
		PAWC:      run.Result.PAWC,
		Window:    run.Window.String(),
		Yields:    run.Result.Yields,
		Windows:   run.Result.Windows,
		Unmatched: run.Result.Unmatched,
		Seasons:   report.Summarize(run.Result.Yields),
	}
	if out.Yields == nil {
		out.Yields = []messages.YieldRecord{}
	}
	if trace, _ := strconv.ParseBool(c.Query("trace")); trace {
		out.Days = run.Result.Days
	}
	created(c, out)
}

// LatestYieldsHandler serves GET /v1/yields/latest?field_id=f1[&minutes=N][&limit=20].
// minutes=0 (the default) searches every stored cut.
func LatestYieldsHandler(src YieldSource, log *zap.SugaredLogger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return func(c *gin.Context) {
		if src == nil {
			fail(c, http.StatusServiceUnavailable, "yield store not configured")
			return
		}
		minutes := queryInt(c, "minutes", 0, 0, 100*365*24*60)
		limit := queryInt(c, "limit", 20, 1, 500)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		list, err := src.LatestYields(ctx, strings.TrimSpace(c.Query("field_id")), minutes, limit)
		if err != nil {
			log.Errorf("simulation: latest yields: %v", err)
			c.Header("X-Error", "influx-query-error")
			internalError(c, "yield query failed")
			return
		}
		if list == nil {
			list = []messages.YieldEvent{}
		}
		success(c, list)
	}
}

// queryInt reads an integer parameter, clamping it to [min, max].
func queryInt(c *gin.Context, key string, def, min, max int) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func requestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/metrics" {
			return
		}
		log.Debugw("http",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}
