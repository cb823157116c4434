package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/mechshop-dev/mechshop/db"
	"github.com/mechshop-dev/mechshop/internal/auth"
	"github.com/mechshop-dev/mechshop/internal/cache"
	"github.com/mechshop-dev/mechshop/internal/config"
	"github.com/mechshop-dev/mechshop/internal/router"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	conn, err := db.Connect(cfg.DatabaseDSN)

	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Migrate(conn); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	r := router.New(router.Deps{
		DB:            conn,
		Tokens:        auth.NewManager(cfg.JWTSecret, cfg.TokenExpiry),
		Cache:         cache.NewListCache(cfg.CacheTTL),
		AuthRateRPS:   cfg.AuthRateRPS,
		AuthRateBurst: cfg.AuthRateBurst,
	})

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
