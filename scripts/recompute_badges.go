// Recomputes badges for every player.
//
// Run after switching achievements.perfect_rule, or after importing game history
// from another instance. Badges that are already unlocked are kept.
//
// Usage: go run scripts/recompute_badges.go

package main

import (
	"log"
	"os"
	"trivia_backend/internal/config"
	"trivia_backend/internal/repository"
	"trivia_backend/internal/service"
	"trivia_backend/pkg/database"
	"trivia_backend/pkg/logger"

	"gopkg.in/yaml.v3"
)

func main() {
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to read config: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	achievements := service.NewAchievementService(
		repository.NewAchievementRepository(db),
		repository.NewGameRepository(db),
		service.PerfectRule(cfg.Achievements.PerfectRule),
	)

	ids, err := userRepo.AllIDs()
	if err != nil {
		log.Fatalf("Failed to list users: %v", err)
	}

	unlocked, failed := 0, 0
	for _, id := range ids {
		badges, err := achievements.SyncBadges(id)
		if err != nil {
			failed++
			log.Printf("user %d: %v", id, err)
			continue
		}
		unlocked += len(badges)
	}
	log.Printf("Checked %d users, unlocked %d badges, %d failures", len(ids), unlocked, failed)
}
