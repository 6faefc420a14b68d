package services

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/clause"

	"github.com/courtsidehq/courtside/internal/models"
	"github.com/courtsidehq/courtside/pkg/database"
)

// HistoryService aggregates multi-season history rows and backfills them
// from the provider's career records.
type HistoryService struct {
	db        *database.DB
	provider  StatsProvider
	logger    *logrus.Logger
	batchSize int
}

func NewHistoryService(db *database.DB, provider StatsProvider, logger *logrus.Logger, batchSize int) *HistoryService {
	return &HistoryService{
		db:        db,
		provider:  provider,
		logger:    logger,
		batchSize: batchSize,
	}
}

// ErrNoHistory reports that a season has no history rows at all. Callers
// treat it as an absent signal; any other error from SeasonAverages is a
// real query failure.
var ErrNoHistory = errors.New("no player history for season")

// SeasonAverage is one player's normalized performance summary for a season.
type SeasonAverage struct {
	PlayerID    int
	AvgScore    float64
	AvgPoints   float64
	AvgRebounds float64
	AvgAssists  float64
	AvgSteals   float64
	AvgBlocks   float64
	AvgMinutes  float64
	GamesPlayed int
}

// SeasonAverages reduces all history rows for one season into a per-player
// summary: means of score and counting stats, and the maximum games_played
// across the grouped rows (defensive against duplicate season rows).
func (s *HistoryService) SeasonAverages(seasonID string) ([]SeasonAverage, error) {
	var rows []models.PlayerHistory
	if err := s.db.Where("season_id = ?", seasonID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load history for season %s: %w", seasonID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("season %s: %w", seasonID, ErrNoHistory)
	}
	return AggregateHistory(rows), nil
}

// AggregateHistory groups history rows by player and averages them.
func AggregateHistory(rows []models.PlayerHistory) []SeasonAverage {
	type acc struct {
		sum   SeasonAverage
		count int
	}

	byPlayer := make(map[int]*acc)
	var order []int
	for _, row := range rows {
		a, ok := byPlayer[row.PlayerID]
		if !ok {
			a = &acc{}
			byPlayer[row.PlayerID] = a
			order = append(order, row.PlayerID)
		}
		a.sum.AvgScore += row.Score
		a.sum.AvgPoints += float64(row.Points)
		a.sum.AvgRebounds += float64(row.Rebounds)
		a.sum.AvgAssists += float64(row.Assists)
		a.sum.AvgSteals += float64(row.Steals)
		a.sum.AvgBlocks += float64(row.Blocks)
		a.sum.AvgMinutes += float64(row.Minutes)
		if row.GamesPlayed > a.sum.GamesPlayed {
			a.sum.GamesPlayed = row.GamesPlayed
		}
		a.count++
	}

	averages := make([]SeasonAverage, 0, len(byPlayer))
	for _, playerID := range order {
		a := byPlayer[playerID]
		n := float64(a.count)
		averages = append(averages, SeasonAverage{
			PlayerID:    playerID,
			AvgScore:    a.sum.AvgScore / n,
			AvgPoints:   a.sum.AvgPoints / n,
			AvgRebounds: a.sum.AvgRebounds / n,
			AvgAssists:  a.sum.AvgAssists / n,
			AvgSteals:   a.sum.AvgSteals / n,
			AvgBlocks:   a.sum.AvgBlocks / n,
			AvgMinutes:  a.sum.AvgMinutes / n,
			GamesPlayed: a.sum.GamesPlayed,
		})
	}

	return averages
}

// Backfill fetches career season totals for every known player and inserts
// the missing history rows in batches. Provider failures skip that player
// only; the provider's rate limiter paces the per-player calls.
func (s *HistoryService) Backfill() error {
	var players []models.Player
	if err := s.db.Select("id").Find(&players).Error; err != nil {
		return fmt.Errorf("failed to load players: %w", err)
	}

	s.logger.Infof("Backfilling history for %d players", len(players))

	var rows []models.PlayerHistory
	for i, p := range players {
		seasons, err := s.provider.CareerSeasons(p.ID)
		if err != nil {
			s.logger.Warnf("[%d/%d] Failed to fetch career stats for player %d: %v",
				i+1, len(players), p.ID, err)
			continue
		}

		for _, season := range seasons {
			rows = append(rows, models.PlayerHistory{
				PlayerID:     p.ID,
				SeasonID:     season.SeasonID,
				TeamID:       season.TeamID,
				Points:       season.Stats.Points,
				Rebounds:     season.Stats.Rebounds,
				Assists:      season.Stats.Assists,
				Steals:       season.Stats.Steals,
				Blocks:       season.Stats.Blocks,
				Turnovers:    season.Stats.Turnovers,
				ThreePM:      season.Stats.ThreePointersMade,
				ThreePA:      season.Stats.ThreePointersAttempted,
				FGM:          season.Stats.FieldGoalsMade,
				FGA:          season.Stats.FieldGoalsAttempted,
				FTM:          season.Stats.FreeThrowsMade,
				FTA:          season.Stats.FreeThrowsAttempted,
				Score:        FantasyScore(season.Stats),
				Minutes:      season.MinutesTotal,
				GamesPlayed:  season.GamesPlayed,
				GamesStarted: season.GamesStarted,
			})
		}
	}

	if len(rows) == 0 {
		s.logger.Info("No history rows to insert")
		return nil
	}

	s.logger.Infof("Inserting %d history rows in batches", len(rows))
	tx := s.db.Clauses(clause.OnConflict{DoNothing: true})
	database.InsertInBatches(tx, s.logger, rows, s.batchSize)
	return nil
}
