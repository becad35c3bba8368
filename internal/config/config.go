// Package config reads the server configuration from the environment,
// with a .env file honored in development.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Store driver names accepted in STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	Addr        string // HTTP listen address
	StoreDriver string // memory | postgres | redis
	DatabaseURL string // postgres DSN, required when StoreDriver=postgres
	RedisAddr   string // required when StoreDriver=redis
	Dev         bool   // human-readable logs, verbose level
}

// Load reads the environment, first merging a .env file when one
// exists. Missing keys fall back to a runnable dev setup.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:        envOr("ADDR", ":5000"),
		StoreDriver: envOr("STORE_DRIVER", DriverMemory),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   envOr("REDIS_ADDR", "localhost:6379"),
		Dev:         os.Getenv("ENV") != "production",
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
