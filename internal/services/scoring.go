package services

import (
	"math"

	"github.com/courtsidehq/courtside/internal/providers"
)

// FantasyScore converts a raw stat line into the fantasy-scoring metric.
// The same formula prices per-game stat lines and season totals; keeping
// that identity is a system invariant.
//
// Rounding is to one decimal place, half away from zero.
func FantasyScore(s providers.StatLine) float64 {
	score := float64(s.Points) +
		1.2*float64(s.Rebounds) +
		1.5*float64(s.Assists) +
		3*float64(s.Steals) +
		3*float64(s.Blocks) -
		2*float64(s.Turnovers) +
		float64(s.FieldGoalsMade) -
		0.5*float64(s.FieldGoalsAttempted) +
		float64(s.FreeThrowsMade) -
		0.75*float64(s.FreeThrowsAttempted) +
		float64(s.ThreePointersMade)

	return math.Round(score*10) / 10
}
