package main

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port           string
	PersistenceURL string
	SimulationURL  string
	Timeout        time.Duration
	BreakerFails   int
	BreakerOpenFor time.Duration
	Debug          bool
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func loadConfig() Config {
	return Config{
		Port:           getenv("PORT", "5009"),
		PersistenceURL: getenv("PERSISTENCE_URL", "http://persistence.cloud:8080"),
		SimulationURL:  getenv("SIMULATION_URL", "http://simulation.cloud:8080"),
		Timeout:        time.Duration(getenvInt("TIMEOUT_MS", 3000)) * time.Millisecond,
		BreakerFails:   getenvInt("CB_FAILS", 3),
		BreakerOpenFor: time.Duration(getenvInt("CB_OPEN_MS", 10000)) * time.Millisecond,
		Debug:          getenv("LOG_DEBUG", "") == "true",
	}
}
