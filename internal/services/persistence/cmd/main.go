package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LeonardoBeccarini/legray/internal/logging"
	"github.com/LeonardoBeccarini/legray/internal/services/persistence"
	"github.com/LeonardoBeccarini/legray/internal/services/simulation"
	"github.com/LeonardoBeccarini/legray/pkg/dedup"
	"github.com/LeonardoBeccarini/legray/pkg/rabbitmq"
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	debug, _ := strconv.ParseBool(os.Getenv("LOG_DEBUG"))
	log := logging.Must("persistence", debug)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- MQTT ---
	mqCfg := rabbitmq.RabbitMQConfig{
		Host:     env("RABBITMQ_HOST", "localhost"),
		Port:     envInt("RABBITMQ_PORT", 1883),
		User:     env("RABBITMQ_USER", "mqtt_user"),
		Password: env("RABBITMQ_PASSWORD", "mqtt_pwd"),
		ClientID: env("RABBITMQ_CLIENTID", "legray-persistence"),
	}
	topic := env("YIELD_SUB_TOPIC", "legray/yield/#")
	mqClient, err := rabbitmq.NewRabbitMQConn(ctx, mqCfg, log)
	if err != nil {
		log.Fatalf("mqtt connect failed: %v", err)
	}
	consumer := rabbitmq.NewConsumer(mqClient, topic, nil, log)

	// --- InfluxDB ---
	store, err := persistence.NewStore(persistence.InfluxConfig{
		URL:    env("INFLUX_URL", "http://localhost:8086"),
		Token:  env("INFLUX_TOKEN", ""),
		Org:    env("INFLUX_ORG", "legray"),
		Bucket: env("INFLUX_BUCKET", "legray"),
	}, log)
	if err != nil {
		log.Fatalf("persistence init failed: %v", err)
	}
	defer store.Close()

	svc := persistence.NewService(consumer, store, dedup.New(10*time.Minute, 0), log)

	// --- HTTP ---
	checks := simulation.NewHealth(2 * time.Second)
	checks.Add("influx", store.Check)
	checks.Add("mqtt", func(context.Context) error {
		if !mqClient.IsConnectionOpen() {
			return errors.New("not connected")
		}
		return nil
	})
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", checks.Liveness)
	r.GET("/readyz", checks.Readiness)
	r.GET("/v1/yields/latest", simulation.LatestYieldsHandler(store, log))

	httpPort := env("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + httpPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("persistence HTTP listening on :%s", httpPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	go func() {
		if err := svc.Start(ctx); err != nil {
			log.Errorf("persistence: consume %s: %v", topic, err)
			stop()
		}
	}()

	<-ctx.Done()
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	log.Infof("persistence: shutdown complete")
}
