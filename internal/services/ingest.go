package services

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/clause"

	"github.com/courtsidehq/courtside/internal/models"
	"github.com/courtsidehq/courtside/pkg/database"
)

// IngestService drives the game ingestion pipeline: discovery upserts
// pending games from the live scoreboard, processing turns each pending
// game into a game row plus stat rows and marks it processed.
type IngestService struct {
	db         *database.DB
	provider   StatsProvider
	gameweeks  *GameweekService
	reconciler *Reconciler
	logger     *logrus.Logger
	batchSize  int
}

func NewIngestService(
	db *database.DB,
	provider StatsProvider,
	gameweeks *GameweekService,
	reconciler *Reconciler,
	logger *logrus.Logger,
	batchSize int,
) *IngestService {
	return &IngestService{
		db:         db,
		provider:   provider,
		gameweeks:  gameweeks,
		reconciler: reconciler,
		logger:     logger,
		batchSize:  batchSize,
	}
}

// DiscoverTodaysGames enumerates today's games and upserts pending rows.
// The upsert keys on game_id and never touches the processed flag, so
// repeated discovery calls are safe.
func (s *IngestService) DiscoverTodaysGames() (int, error) {
	s.logger.Info("Fetching today's games from live scoreboard")

	games, err := s.provider.ScoreboardToday()
	if err != nil {
		return 0, fmt.Errorf("failed to discover games: %w", err)
	}

	if len(games) == 0 {
		s.logger.Info("No games found for today")
		return 0, nil
	}

	rows := make([]models.PendingGame, 0, len(games))
	for _, g := range games {
		rows = append(rows, models.PendingGame{
			GameID:   g.GameID,
			GameDate: g.GameDate,
		})
	}

	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"game_date", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert pending games: %w", err)
	}

	s.logger.Infof("Inserted / updated %d pending games", len(rows))
	return len(rows), nil
}

// ProcessPendingGames works through every unprocessed pending game. A
// failure on one game is logged and does not abort the others; the game
// stays pending and is retried on the next run. A game is marked processed
// only after the game row and all of its stat rows are written.
func (s *IngestService) ProcessPendingGames() error {
	var pending []models.PendingGame
	if err := s.db.Where("processed = ?", false).Find(&pending).Error; err != nil {
		return fmt.Errorf("failed to select pending games: %w", err)
	}

	s.logger.Infof("Found %d pending games to process", len(pending))
	if len(pending) == 0 {
		return nil
	}

	// One index read per batch, shared across all games in it.
	index, err := s.reconciler.LoadPlayerIndex()
	if err != nil {
		return err
	}

	gameweeks, err := s.gameweeks.All()
	if err != nil {
		return err
	}

	for _, pg := range pending {
		if err := s.processGame(pg.GameID, index, gameweeks); err != nil {
			s.logger.Errorf("Error processing %s: %v", pg.GameID, err)
			continue
		}
		s.logger.Infof("Processed %s", pg.GameID)
	}

	return nil
}

func (s *IngestService) processGame(gameID string, index PlayerIndex, gameweeks []models.Gameweek) error {
	box, err := s.provider.BoxScore(gameID)
	if err != nil {
		return fmt.Errorf("fetch box score: %w", err)
	}

	gameweek := ResolveGameweek(box.GameTimeUTC, gameweeks, s.logger)

	game := models.Game{
		ID:         box.GameID,
		HomeTeamID: box.Home.TeamID,
		AwayTeamID: box.Away.TeamID,
		HomeScore:  box.Home.Score,
		AwayScore:  box.Away.Score,
		Gameweek:   gameweek,
		Date:       box.GameTimeUTC,
	}

	stats := s.reconciler.ProcessRosters(box, index)

	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"home_score", "away_score", "gameweek"}),
	}).Create(&game).Error
	if err != nil {
		return fmt.Errorf("upsert game row: %w", err)
	}

	s.logger.Infof("Inserting %d player stat rows for %s", len(stats), gameID)
	if len(stats) > 0 {
		// Conflicts on (player_id, game_id) are replays of a partially
		// processed game; skipping them keeps retries idempotent.
		tx := s.db.Clauses(clause.OnConflict{DoNothing: true})
		inserted := database.InsertInBatches(tx, s.logger, stats, s.batchSize)
		if inserted < len(stats) {
			return fmt.Errorf("only %d of %d stat rows inserted, leaving game pending", inserted, len(stats))
		}
	}

	// All writes succeeded; flip the flag last.
	err = s.db.Model(&models.PendingGame{}).Where("game_id = ?", gameID).
		Update("processed", true).Error
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	return nil
}
