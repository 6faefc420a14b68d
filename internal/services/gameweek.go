package services

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/courtsidehq/courtside/internal/models"
	"github.com/courtsidehq/courtside/pkg/database"
)

// DefaultGameweekFallback is returned when a date falls outside every
// gameweek window (before season start, after season end, or in a gap).
// This leniency is deliberate: an unresolvable date buckets into the first
// gameweek instead of failing the game.
const DefaultGameweekFallback = 1

// GameweekService resolves calendar dates to gameweek numbers.
type GameweekService struct {
	db     *database.DB
	logger *logrus.Logger
}

func NewGameweekService(db *database.DB, logger *logrus.Logger) *GameweekService {
	return &GameweekService{
		db:     db,
		logger: logger,
	}
}

// All returns the full gameweek table in order.
func (s *GameweekService) All() ([]models.Gameweek, error) {
	var gameweeks []models.Gameweek
	if err := s.db.Order("gameweek").Find(&gameweeks).Error; err != nil {
		return nil, fmt.Errorf("failed to load gameweeks: %w", err)
	}
	return gameweeks, nil
}

// Resolve returns the gameweek number for the given date.
func (s *GameweekService) Resolve(date time.Time) (int, error) {
	gameweeks, err := s.All()
	if err != nil {
		return 0, err
	}
	return ResolveGameweek(date, gameweeks, s.logger), nil
}

// ResolveGameweek returns the number of the gameweek whose [start,end]
// range contains the date, or DefaultGameweekFallback when none does.
func ResolveGameweek(date time.Time, gameweeks []models.Gameweek, logger *logrus.Logger) int {
	day := date.Truncate(24 * time.Hour)
	for _, gw := range gameweeks {
		if !day.Before(gw.StartDate) && !day.After(gw.EndDate) {
			return gw.Number
		}
	}
	if logger != nil {
		logger.Warnf("No gameweek contains %s, falling back to gameweek %d",
			day.Format("2006-01-02"), DefaultGameweekFallback)
	}
	return DefaultGameweekFallback
}

// GenerateGameweeks builds Monday-aligned weekly windows between start and
// end. The first window begins on the first Monday on or after start; the
// last window is clipped to end.
func GenerateGameweeks(start, end time.Time) []models.Gameweek {
	current := start
	if current.Weekday() != time.Monday {
		days := (8 - int(current.Weekday())) % 7
		current = current.AddDate(0, 0, days)
	}

	var gameweeks []models.Gameweek
	number := 1
	for !current.After(end) {
		weekEnd := current.AddDate(0, 0, 6)
		if weekEnd.After(end) {
			weekEnd = end
		}
		gameweeks = append(gameweeks, models.Gameweek{
			Number:    number,
			StartDate: current,
			EndDate:   weekEnd,
		})
		number++
		current = current.AddDate(0, 0, 7)
	}

	return gameweeks
}

// Seed inserts the generated gameweeks that do not already exist. Existing
// numbers are left untouched, so seeding is idempotent.
func (s *GameweekService) Seed(start, end time.Time) (int, error) {
	generated := GenerateGameweeks(start, end)

	var existing []models.Gameweek
	if err := s.db.Select("gameweek").Find(&existing).Error; err != nil {
		return 0, fmt.Errorf("failed to check existing gameweeks: %w", err)
	}

	known := make(map[int]bool, len(existing))
	for _, gw := range existing {
		known[gw.Number] = true
	}

	var fresh []models.Gameweek
	for _, gw := range generated {
		if !known[gw.Number] {
			fresh = append(fresh, gw)
		}
	}

	if len(fresh) == 0 {
		s.logger.Info("No new gameweeks to seed")
		return 0, nil
	}

	if err := s.db.Create(&fresh).Error; err != nil {
		return 0, fmt.Errorf("failed to insert gameweeks: %w", err)
	}

	s.logger.Infof("Seeded %d gameweeks", len(fresh))
	return len(fresh), nil
}
