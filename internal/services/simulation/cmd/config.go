package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/legray/internal/services/archive"
	"github.com/LeonardoBeccarini/legray/internal/services/persistence"
	"github.com/LeonardoBeccarini/legray/pkg/rabbitmq"
)

type Config struct {
	HTTPPort  string
	GRPCPort  string
	LogDebug  bool
	JWTSecret string

	MQTTEnabled  bool
	MQTT         rabbitmq.RabbitMQConfig
	RequestTopic string
	YieldTopic   string
	ResultTopic  string
	DedupTTL     time.Duration

	InfluxEnabled bool
	Influx        persistence.InfluxConfig

	ArchiveEnabled bool
	Archive        archive.Config
}

func getenv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return d
}

func getenvBool(k string, d bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return d
}

func getenvDuration(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if dur, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return dur
		}
	}
	return d
}

func loadConfig() Config {
	cfg := Config{
		HTTPPort:  getenv("HTTP_PORT", getenv("PORT", "8080")),
		GRPCPort:  getenv("GRPC_PORT", "50051"),
		LogDebug:  getenvBool("LOG_DEBUG", false),
		JWTSecret: getenv("JWT_SECRET", ""),

		MQTTEnabled: getenvBool("MQTT_ENABLED", os.Getenv("RABBITMQ_HOST") != ""),
		MQTT: rabbitmq.RabbitMQConfig{
			Host:     getenv("RABBITMQ_HOST", "localhost"),
			Port:     getenvInt("RABBITMQ_PORT", 1883),
			User:     getenv("RABBITMQ_USER", "mqtt_user"),
			Password: getenv("RABBITMQ_PASSWORD", "mqtt_pwd"),
			ClientID: getenv("RABBITMQ_CLIENTID", "legray-simulation"),
		},
		RequestTopic: getenv("REQUEST_TOPIC", "legray/request/#"),
		YieldTopic:   getenv("YIELD_TOPIC_TEMPLATE", "legray/yield/{field}"),
		ResultTopic:  getenv("RESULT_TOPIC_TEMPLATE", "legray/result/{field}"),
		DedupTTL:     getenvDuration("DEDUP_TTL", 10*time.Minute),

		Influx: persistence.InfluxConfig{
			URL:       getenv("INFLUX_URL", ""),
			Token:     getenv("INFLUX_TOKEN", ""),
			Org:       getenv("INFLUX_ORG", "legray"),
			Bucket:    getenv("INFLUX_BUCKET", "legray"),
			WriteDays: getenvBool("INFLUX_WRITE_DAYS", true),
		},

		Archive: archive.Config{
			User:     getenv("MYSQL_USER", "legray"),
			Password: getenv("MYSQL_PASSWORD", ""),
			Host:     getenv("MYSQL_HOST", ""),
			Port:     getenvInt("MYSQL_PORT", 3306),
			DBName:   getenv("MYSQL_DATABASE", "legray"),
			Timeout:  getenvDuration("MYSQL_TIMEOUT", 5*time.Second),
		},
	}
	cfg.InfluxEnabled = cfg.Influx.URL != "" && cfg.Influx.Token != ""
	cfg.ArchiveEnabled = cfg.Archive.Host != ""
	return cfg
}
