// @title Trivia League API
// @version 1.0
// @description Quizzes, badges, leaderboards and league communities.

// @license.name MIT

// @host localhost:8080
// @BasePath /api

package main

import (
	"flag"
	"log"
	"trivia_backend/internal/app"
	"trivia_backend/internal/config"
	"trivia_backend/pkg/database"
	"trivia_backend/pkg/logger"

	"github.com/joho/godotenv"
)

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	migrateOnly := flag.Bool("migrate-only", false, "run database migrations and exit")
	migrate := flag.Bool("migrate", false, "run migrations on start even in release mode")
	configDir := flag.String("config", "configs", "directory holding config.yaml")
	flag.Parse()

	// a missing .env is fine, real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	if cfg.MigrateOnly {
		logger.InitLogger(cfg)
		if _, err := database.InitDB(cfg); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Database migration completed, exiting")
		return
	}

	application := app.NewApp(cfg)
	application.ConfigFile = *configDir + "/config.yaml"
	defer logger.Log.Sync()

	application.Run()
}
