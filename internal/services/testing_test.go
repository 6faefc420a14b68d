package services

import (
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/courtsidehq/courtside/internal/models"
	"github.com/courtsidehq/courtside/internal/providers"
	"github.com/courtsidehq/courtside/pkg/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Gameweek{},
		&models.Player{},
		&models.PendingGame{},
		&models.Game{},
		&models.PlayerGame{},
		&models.PlayerHistory{},
		&models.PriceRun{},
	))

	return &database.DB{DB: db}
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// fakeProvider is an in-memory StatsProvider.
type fakeProvider struct {
	scoreboard   []providers.ScoreboardGame
	boxScores    map[string]*providers.BoxScoreGame
	boxErrs      map[string]error
	profiles     map[int]*providers.PlayerProfile
	profileErrs  map[int]error
	careers      map[int][]providers.CareerSeason
	profileCalls []int
}

func (f *fakeProvider) ScoreboardToday() ([]providers.ScoreboardGame, error) {
	return f.scoreboard, nil
}

func (f *fakeProvider) BoxScore(gameID string) (*providers.BoxScoreGame, error) {
	if err, ok := f.boxErrs[gameID]; ok {
		return nil, err
	}
	box, ok := f.boxScores[gameID]
	if !ok {
		return nil, fmt.Errorf("no box score for %s", gameID)
	}
	return box, nil
}

func (f *fakeProvider) PlayerProfile(playerID int) (*providers.PlayerProfile, error) {
	f.profileCalls = append(f.profileCalls, playerID)
	if err, ok := f.profileErrs[playerID]; ok {
		return nil, err
	}
	profile, ok := f.profiles[playerID]
	if !ok {
		return nil, fmt.Errorf("player %d not found", playerID)
	}
	return profile, nil
}

func (f *fakeProvider) CareerSeasons(playerID int) ([]providers.CareerSeason, error) {
	return f.careers[playerID], nil
}

func intPtr(n int) *int { return &n }

func minutes(m int) string { return fmt.Sprintf("PT%02dM30.00S", m) }
