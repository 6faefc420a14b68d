package services

import "github.com/courtsidehq/courtside/internal/providers"

// StatsProvider is the external statistics feed the pipeline consumes.
// Implemented by providers.NBAClient; tests substitute fakes.
type StatsProvider interface {
	ScoreboardToday() ([]providers.ScoreboardGame, error)
	BoxScore(gameID string) (*providers.BoxScoreGame, error)
	PlayerProfile(playerID int) (*providers.PlayerProfile, error)
	CareerSeasons(playerID int) ([]providers.CareerSeason, error)
}
