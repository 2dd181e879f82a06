package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LeonardoBeccarini/legray/internal/logging"
	"github.com/LeonardoBeccarini/legray/internal/services/gateway/app"
)

func main() {
	cfg := loadConfig()
	log := logging.Must("gateway", cfg.Debug)
	defer log.Sync()

	gw := app.NewGateway(app.Config{
		PersistenceBaseURL: cfg.PersistenceURL,
		SimulationBaseURL:  cfg.SimulationURL,
		HTTPTimeout:        cfg.Timeout,
		BreakerFailures:    cfg.BreakerFails,
		BreakerOpenFor:     cfg.BreakerOpenFor,
		Logger:             log,
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/dashboard/data", gw.HandleDashboard)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Infof("gateway listening on %s (persistence=%s simulation=%s)", srv.Addr, cfg.PersistenceURL, cfg.SimulationURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("gateway: http server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Infof("gateway stopped")
}
