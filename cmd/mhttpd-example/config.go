package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// config holds the example host's runtime settings, loaded the way the
// gateway service's config.Load does: environment variables with an
// optional .env file, each with a concrete fallback.
type config struct {
	addr                 string
	env                  string
	connectionMemoryKiB  int
	connectionLimit      int
	perIPConnectionLimit int
	idleTimeout          time.Duration
	shutdownGrace        time.Duration
	workerCount          int
}

func loadConfig() *config {
	_ = godotenv.Load()

	return &config{
		addr:                 getEnv("MHTTPD_ADDR", ":8080"),
		env:                  getEnv("MHTTPD_ENV", "development"),
		connectionMemoryKiB:  getEnvInt("MHTTPD_CONN_MEMORY_KIB", 32),
		connectionLimit:      getEnvInt("MHTTPD_CONNECTION_LIMIT", 0),
		perIPConnectionLimit: getEnvInt("MHTTPD_PER_IP_LIMIT", 0),
		idleTimeout:          time.Duration(getEnvInt("MHTTPD_IDLE_TIMEOUT_SEC", 30)) * time.Second,
		shutdownGrace:        time.Duration(getEnvInt("MHTTPD_SHUTDOWN_GRACE_SEC", 10)) * time.Second,
		workerCount:          getEnvInt("MHTTPD_WORKER_COUNT", 4),
	}
}

func (c *config) isDevelopment() bool { return c.env == "development" }

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
