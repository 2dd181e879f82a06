package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/LeonardoBeccarini/legray/internal/logging"
	"github.com/LeonardoBeccarini/legray/internal/metrics"
	"github.com/LeonardoBeccarini/legray/internal/services/archive"
	"github.com/LeonardoBeccarini/legray/internal/services/persistence"
	"github.com/LeonardoBeccarini/legray/internal/services/simulation"
	"github.com/LeonardoBeccarini/legray/pkg/dedup"
	"github.com/LeonardoBeccarini/legray/pkg/rabbitmq"
)

const grpcServiceName = "legray.simulation"

func main() {
	cfg := loadConfig()
	log := logging.Must("simulation", cfg.LogDebug)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	checks := simulation.NewHealth(2 * time.Second)
	runnerCfg := simulation.RunnerConfig{
		YieldTopic:  cfg.YieldTopic,
		ResultTopic: cfg.ResultTopic,
		Metrics:     m,
		Logger:      log,
	}

	// ---- InfluxDB ----
	var yields simulation.YieldSource
	if cfg.InfluxEnabled {
		store, err := persistence.NewStore(cfg.Influx, log)
		if err != nil {
			log.Fatalf("influx init failed: %v", err)
		}
		defer store.Close()
		runnerCfg.Sinks = append(runnerCfg.Sinks, store)
		checks.Add("influx", store.Check)
		yields = store
	} else {
		log.Infof("INFLUX_URL/INFLUX_TOKEN not set, yields are not persisted")
	}

	// ---- MySQL archive ----
	if cfg.ArchiveEnabled {
		octx, cancel := context.WithTimeout(ctx, 30*time.Second)
		arch, err := archive.Open(octx, cfg.Archive, log)
		cancel()
		if err != nil {
			log.Fatalf("archive init failed: %v", err)
		}
		defer arch.Close()
		runnerCfg.Sinks = append(runnerCfg.Sinks, arch)
		checks.Add("archive", arch.Check)
	}

	// ---- MQTT ----
	var consumer *rabbitmq.Consumer
	if cfg.MQTTEnabled {
		client, err := rabbitmq.NewRabbitMQConn(ctx, cfg.MQTT, log)
		if err != nil {
			log.Fatalf("mqtt connect failed: %v", err)
		}
		pub := rabbitmq.NewPublisher(client, 1)
		defer pub.Close()
		runnerCfg.Publisher = pub
		consumer = rabbitmq.NewConsumer(client, cfg.RequestTopic, nil, log)
		checks.Add("mqtt", func(context.Context) error {
			if !client.IsConnectionOpen() {
				return errors.New("not connected")
			}
			return nil
		})
	}

	runner := simulation.NewRunner(runnerCfg)
	if consumer != nil {
		consumer.SetHandler(runner.RequestHandler(ctx, dedup.New(cfg.DedupTTL, 0)))
		go func() {
			if err := consumer.ConsumeMessage(ctx); err != nil {
				log.Errorf("mqtt consume %s: %v", cfg.RequestTopic, err)
				stop()
			}
		}()
	}

	// ---- HTTP ----
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: simulation.NewRouter(simulation.RouterConfig{
			Runner:    runner,
			Yields:    yields,
			Health:    checks,
			Metrics:   m,
			JWTSecret: cfg.JWTSecret,
			Logger:    log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("simulation HTTP listening on :%s (auth=%t)", cfg.HTTPPort, cfg.JWTSecret != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	// ---- gRPC health ----
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatalf("listen :%s: %v", cfg.GRPCPort, err)
	}
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	go func() {
		log.Infof("simulation gRPC health on :%s", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Errorf("gRPC serve error: %v", err)
		}
	}()
	go syncServingStatus(ctx, checks, hs)

	<-ctx.Done()
	log.Infof("shutting down...")

	hs.Shutdown()
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	grpcServer.GracefulStop()
	log.Infof("simulation: shutdown complete")
}

// syncServingStatus mirrors /readyz on the gRPC health service every 10s.
func syncServingStatus(ctx context.Context, checks *simulation.Health, hs *health.Server) {
	set := func() {
		status := healthpb.HealthCheckResponse_SERVING
		if checks.Run(ctx).Status != "ok" {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(grpcServiceName, status)
	}
	set()
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			set()
		}
	}
}
