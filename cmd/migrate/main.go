package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/courtsidehq/courtside/internal/models"
	"github.com/courtsidehq/courtside/internal/services"
	"github.com/courtsidehq/courtside/pkg/config"
	"github.com/courtsidehq/courtside/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(database.Options{
		URL:             cfg.DatabaseURL,
		LogQueries:      cfg.IsDevelopment(),
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, logrus.StandardLogger())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		if err := seedGameweeks(db, cfg); err != nil {
			logrus.Fatalf("Failed to seed gameweeks: %v", err)
		}
		logrus.Info("Gameweeks seeded successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	if err := db.AutoMigrate(
		&models.Gameweek{},
		&models.Player{},
		&models.PendingGame{},
		&models.Game{},
		&models.PlayerGame{},
		&models.PlayerHistory{},
		&models.PriceRun{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}
	return nil
}

func dropTables(db *database.DB) error {
	return db.Migrator().DropTable(
		&models.PriceRun{},
		&models.PlayerHistory{},
		&models.PlayerGame{},
		&models.Game{},
		&models.PendingGame{},
		&models.Player{},
		&models.Gameweek{},
	)
}

func seedGameweeks(db *database.DB, cfg *config.Config) error {
	start, err := time.Parse("2006-01-02", cfg.SeasonStart)
	if err != nil {
		return fmt.Errorf("invalid SEASON_START: %w", err)
	}
	end, err := time.Parse("2006-01-02", cfg.SeasonEnd)
	if err != nil {
		return fmt.Errorf("invalid SEASON_END: %w", err)
	}

	gameweeks := services.NewGameweekService(db, logrus.StandardLogger())
	count, err := gameweeks.Seed(start, end)
	if err != nil {
		return err
	}

	logrus.Infof("Inserted %d new gameweeks", count)
	return nil
}
