package config

import (
	"log"
	"os"
	"time"
)

type Config struct {
	Port          string
	Env           string
	DatabaseDSN   string
	JWTSecret     string
	TokenExpiry   time.Duration
	CacheTTL      time.Duration
	AuthRateRPS   float64
	AuthRateBurst int
}

func Load() Config {
	cfg := Config{
		Port:          getEnv("PORT", "3000"),
		Env:           getEnv("ENV", "development"),
		DatabaseDSN:   getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=mechshop port=5432 sslmode=disable"),
		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		TokenExpiry:   time.Hour,
		CacheTTL:      60 * time.Second,
		AuthRateRPS:   5,
		AuthRateBurst: 10,
	}

	if cfg.Env == "production" && cfg.JWTSecret == "dev-secret-change-in-production" {
		log.Fatal("JWT_SECRET must be set in production environment")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
