package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/courtsidehq/courtside/internal/models"
	"github.com/courtsidehq/courtside/internal/providers"
	"github.com/courtsidehq/courtside/pkg/database"
)

// PlayerIndex maps known player ids to their recorded team id. It is loaded
// once per processing batch and shared across every game in that batch to
// bound database reads; it is never a process-wide singleton.
type PlayerIndex map[int]int

// Reconciler decides insert/update/no-op for every player appearing on an
// event roster. Known players whose roster team differs from the index get
// a team-reassignment write; unknown players are fetched from the provider
// and inserted with the fixed initial price. A failed detail fetch skips
// that player only.
type Reconciler struct {
	db           *database.DB
	provider     StatsProvider
	logger       *logrus.Logger
	initialPrice float64
}

func NewReconciler(db *database.DB, provider StatsProvider, logger *logrus.Logger, initialPrice float64) *Reconciler {
	return &Reconciler{
		db:           db,
		provider:     provider,
		logger:       logger,
		initialPrice: initialPrice,
	}
}

// LoadPlayerIndex reads the known-player index from the database.
func (r *Reconciler) LoadPlayerIndex() (PlayerIndex, error) {
	var players []models.Player
	if err := r.db.Select("id, team_id").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("failed to load player index: %w", err)
	}

	index := make(PlayerIndex, len(players))
	for _, p := range players {
		if p.TeamID != nil {
			index[p.ID] = *p.TeamID
		} else {
			index[p.ID] = 0
		}
	}
	return index, nil
}

// ProcessRosters runs reconciliation over both sides of a box score and
// returns the stat rows for every player who logged minutes. The index is
// mutated in place so later games in the same batch see this game's
// inserts and reassignments.
func (r *Reconciler) ProcessRosters(game *providers.BoxScoreGame, index PlayerIndex) []models.PlayerGame {
	stats := r.processSide(game.GameID, game.Home, index)
	stats = append(stats, r.processSide(game.GameID, game.Away, index)...)
	return stats
}

func (r *Reconciler) processSide(gameID string, team providers.BoxScoreTeam, index PlayerIndex) []models.PlayerGame {
	var rows []models.PlayerGame

	for _, p := range team.Players {
		if !r.ensurePlayer(p.PersonID, team.TeamID, index) {
			continue
		}

		minutes := p.Statistics.MinutesPlayed()
		if minutes == 0 {
			// did not play
			continue
		}

		s := p.Statistics
		rows = append(rows, models.PlayerGame{
			PlayerID:  p.PersonID,
			GameID:    gameID,
			Points:    s.Points,
			Rebounds:  s.Rebounds,
			Assists:   s.Assists,
			Steals:    s.Steals,
			Blocks:    s.Blocks,
			Turnovers: s.Turnovers,
			ThreePM:   s.ThreePointersMade,
			ThreePA:   s.ThreePointersAttempted,
			FGM:       s.FieldGoalsMade,
			FGA:       s.FieldGoalsAttempted,
			FTM:       s.FreeThrowsMade,
			FTA:       s.FreeThrowsAttempted,
			Minutes:   minutes,
			Score:     FantasyScore(s),
		})
	}

	return rows
}

// ensurePlayer makes sure the player exists with the right team. Returns
// false when the player is unknown and could not be fetched.
func (r *Reconciler) ensurePlayer(playerID, teamID int, index PlayerIndex) bool {
	currentTeam, known := index[playerID]

	if known {
		if currentTeam != 0 && currentTeam != teamID {
			r.logger.Infof("Updating team for player %d: %d -> %d", playerID, currentTeam, teamID)
			err := r.db.Model(&models.Player{}).Where("id = ?", playerID).
				Update("team_id", teamID).Error
			if err != nil {
				r.logger.Errorf("Failed to update team for player %d: %v", playerID, err)
				return true // stat row is still valid under the old team
			}
			index[playerID] = teamID
		}
		return true
	}

	profile, err := r.provider.PlayerProfile(playerID)
	if err != nil {
		r.logger.Warnf("Failed to fetch details for player %d: %v", playerID, err)
		return false
	}

	price := r.initialPrice
	player := models.Player{
		ID:           profile.ID,
		FirstName:    profile.FirstName,
		LastName:     profile.LastName,
		Position:     profile.Position,
		TeamID:       profile.TeamID,
		HeightIn:     profile.HeightIn,
		WeightLb:     profile.WeightLb,
		Birthdate:    profile.Birthdate,
		Price:        &price,
		CurrentPrice: &price,
	}
	if player.TeamID == nil {
		player.TeamID = &teamID
	}

	if err := r.db.Create(&player).Error; err != nil {
		r.logger.Errorf("Failed to insert player %d: %v", playerID, err)
		return false
	}

	index[playerID] = *player.TeamID
	r.logger.Infof("Inserted new player %d (%s %s)", playerID, profile.FirstName, profile.LastName)
	return true
}
