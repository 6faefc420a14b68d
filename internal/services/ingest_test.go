package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtsidehq/courtside/internal/models"
	"github.com/courtsidehq/courtside/internal/providers"
	"github.com/courtsidehq/courtside/pkg/database"
)

func newIngest(db *database.DB, provider StatsProvider) *IngestService {
	logger := testLogger()
	return NewIngestService(
		db,
		provider,
		NewGameweekService(db, logger),
		NewReconciler(db, provider, logger, 4.0),
		logger,
		database.DefaultBatchSize,
	)
}

func TestDiscoverTodaysGamesIdempotent(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{
		scoreboard: []providers.ScoreboardGame{
			{GameID: "0022500001", GameDate: "2025-11-20"},
			{GameID: "0022500002", GameDate: "2025-11-20"},
		},
	}
	svc := newIngest(db, provider)

	n, err := svc.DiscoverTodaysGames()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// simulate one game having been processed between discovery runs
	require.NoError(t, db.Model(&models.PendingGame{}).
		Where("game_id = ?", "0022500001").
		Update("processed", true).Error)

	_, err = svc.DiscoverTodaysGames()
	require.NoError(t, err)

	var count int64
	db.Model(&models.PendingGame{}).Count(&count)
	assert.Equal(t, int64(2), count)

	// re-discovery must not reset the processed flag
	var pg models.PendingGame
	require.NoError(t, db.First(&pg, "game_id = ?", "0022500001").Error)
	assert.True(t, pg.Processed)
}

func seedPendingGame(t *testing.T, db *database.DB, gameID string) {
	t.Helper()
	require.NoError(t, db.Create(&models.PendingGame{
		GameID:   gameID,
		GameDate: "2025-11-20",
	}).Error)
}

func completedBoxScore(gameID string, playerIDs ...int) *providers.BoxScoreGame {
	home := providers.BoxScoreTeam{TeamID: 1610612737, Score: 112}
	for _, id := range playerIDs {
		home.Players = append(home.Players, providers.BoxScorePlayer{
			PersonID:   id,
			Statistics: providers.StatLine{Minutes: minutes(28), Points: 15, Rebounds: 4},
		})
	}
	return &providers.BoxScoreGame{
		GameID:      gameID,
		GameTimeUTC: time.Date(2025, 11, 20, 0, 30, 0, 0, time.UTC),
		Home:        home,
		Away:        providers.BoxScoreTeam{TeamID: 1610612738, Score: 104},
	}
}

func TestProcessPendingGames(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{
		boxScores: map[string]*providers.BoxScoreGame{
			"0022500001": completedBoxScore("0022500001", 101, 102),
		},
	}
	svc := newIngest(db, provider)

	home := 1610612737
	require.NoError(t, db.Create(&models.Player{ID: 101, TeamID: &home}).Error)
	require.NoError(t, db.Create(&models.Player{ID: 102, TeamID: &home}).Error)
	seedPendingGame(t, db, "0022500001")

	require.NoError(t, svc.ProcessPendingGames())

	var game models.Game
	require.NoError(t, db.First(&game, "id = ?", "0022500001").Error)
	assert.Equal(t, 112, game.HomeScore)
	assert.Equal(t, 104, game.AwayScore)
	assert.Equal(t, DefaultGameweekFallback, game.Gameweek) // no gameweeks seeded

	var statCount int64
	db.Model(&models.PlayerGame{}).Where("game_id = ?", "0022500001").Count(&statCount)
	assert.Equal(t, int64(2), statCount)

	var pg models.PendingGame
	require.NoError(t, db.First(&pg, "game_id = ?", "0022500001").Error)
	assert.True(t, pg.Processed)
}

func TestProcessPendingGamesFailureIsolation(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{
		boxScores: map[string]*providers.BoxScoreGame{
			"0022500002": completedBoxScore("0022500002", 201),
		},
		boxErrs: map[string]error{
			"0022500001": errors.New("upstream 500"),
		},
	}
	svc := newIngest(db, provider)

	team := 1610612737
	require.NoError(t, db.Create(&models.Player{ID: 201, TeamID: &team}).Error)
	seedPendingGame(t, db, "0022500001")
	seedPendingGame(t, db, "0022500002")

	require.NoError(t, svc.ProcessPendingGames())

	var failed, succeeded models.PendingGame
	require.NoError(t, db.First(&failed, "game_id = ?", "0022500001").Error)
	require.NoError(t, db.First(&succeeded, "game_id = ?", "0022500002").Error)
	assert.False(t, failed.Processed) // stays pending, retried next run
	assert.True(t, succeeded.Processed)
}

func TestProcessPendingGamesKeepsPendingOnStatWriteFailure(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{
		boxScores: map[string]*providers.BoxScoreGame{
			"0022500001": completedBoxScore("0022500001", 301),
		},
	}
	svc := newIngest(db, provider)

	team := 1610612737
	require.NoError(t, db.Create(&models.Player{ID: 301, TeamID: &team}).Error)
	seedPendingGame(t, db, "0022500001")

	// force the stat insert to fail
	require.NoError(t, db.Migrator().DropTable(&models.PlayerGame{}))

	require.NoError(t, svc.ProcessPendingGames())

	var pg models.PendingGame
	require.NoError(t, db.First(&pg, "game_id = ?", "0022500001").Error)
	assert.False(t, pg.Processed)
}

func TestProcessPendingGamesRetryAfterPartialInsert(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{
		boxScores: map[string]*providers.BoxScoreGame{
			"0022500001": completedBoxScore("0022500001", 401, 402),
		},
	}
	svc := newIngest(db, provider)

	team := 1610612737
	require.NoError(t, db.Create(&models.Player{ID: 401, TeamID: &team}).Error)
	require.NoError(t, db.Create(&models.Player{ID: 402, TeamID: &team}).Error)
	seedPendingGame(t, db, "0022500001")

	// a prior partial run already wrote one of the stat rows
	require.NoError(t, db.Create(&models.PlayerGame{
		PlayerID: 401, GameID: "0022500001", Points: 15, Rebounds: 4, Minutes: 28, Score: 19.8,
	}).Error)

	require.NoError(t, svc.ProcessPendingGames())

	var statCount int64
	db.Model(&models.PlayerGame{}).Where("game_id = ?", "0022500001").Count(&statCount)
	assert.Equal(t, int64(2), statCount)

	var pg models.PendingGame
	require.NoError(t, db.First(&pg, "game_id = ?", "0022500001").Error)
	assert.True(t, pg.Processed)
}
