package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type DB struct {
	Driver string // sqlite | pgx
	DSN    string
	Seed   bool
}

type Config struct {
	Port            string
	DB              DB
	LogMode         string
	LogFile         string
	RedisAddr       string
	ProductCacheTTL time.Duration
}

func Load() Config {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] .env not loaded: %v", err)
	}

	cfg := Config{
		Port: getEnv("PORT", "8080"),
		DB: DB{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			DSN:    getEnv("DB_DSN", "roomservice.db"), // sqlite file in project root
			Seed:   getBool("DB_SEED", true),
		},
		LogMode:         getEnv("LOG_MODE", "development"),
		LogFile:         os.Getenv("LOG_FILE"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		ProductCacheTTL: getDuration("PRODUCT_CACHE_TTL", 5*time.Minute),
	}
	log.Printf("[config] PORT=%s DB_DRIVER=%s DB_SEED=%t LOG_MODE=%s LOG_FILE=%s REDIS_ADDR=%s",
		cfg.Port, cfg.DB.Driver, cfg.DB.Seed, cfg.LogMode, cfg.LogFile, cfg.RedisAddr)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
