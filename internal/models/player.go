package models

import "time"

// Player is one participant eligible to accrue stats and receive a price.
// ID is the provider's stable person id. TeamID is mutable; reconciliation
// rewrites it when a player shows up on a different roster.
type Player struct {
	ID           int        `gorm:"primaryKey" json:"id"`
	FirstName    string     `gorm:"size:100" json:"first_name"`
	LastName     string     `gorm:"size:100" json:"last_name"`
	Position     string     `gorm:"size:20" json:"position"`
	TeamID       *int       `gorm:"index" json:"team_id"`
	HeightIn     *int       `gorm:"column:height_in" json:"height_in"`
	WeightLb     *int       `gorm:"column:weight_lb" json:"weight_lb"`
	Birthdate    *time.Time `gorm:"type:date" json:"birthdate"`
	Price        *float64   `json:"price"`
	CurrentPrice *float64   `json:"current_price"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Player) TableName() string {
	return "player"
}

// AgeAt returns the player's age in whole years at the given date, or nil
// when the birthdate is unknown.
func (p *Player) AgeAt(at time.Time) *int {
	if p.Birthdate == nil {
		return nil
	}
	b := *p.Birthdate
	age := at.Year() - b.Year()
	if at.Month() < b.Month() || (at.Month() == b.Month() && at.Day() < b.Day()) {
		age--
	}
	return &age
}

// PlayerHistory is one season total line for one player, produced by the
// historical backfill. One row per (player_id, season_id).
type PlayerHistory struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	PlayerID     int     `gorm:"not null;uniqueIndex:idx_player_season" json:"player_id"`
	SeasonID     string  `gorm:"size:10;not null;uniqueIndex:idx_player_season" json:"season_id"`
	TeamID       int     `json:"team_id"`
	Points       int     `json:"points"`
	Rebounds     int     `json:"rebounds"`
	Assists      int     `json:"assists"`
	Steals       int     `json:"steals"`
	Blocks       int     `json:"blocks"`
	Turnovers    int     `json:"turnovers"`
	ThreePM      int     `gorm:"column:three_pm" json:"three_pm"`
	ThreePA      int     `gorm:"column:three_pa" json:"three_pa"`
	FGM          int     `gorm:"column:fgm" json:"fgm"`
	FGA          int     `gorm:"column:fga" json:"fga"`
	FTM          int     `gorm:"column:ftm" json:"ftm"`
	FTA          int     `gorm:"column:fta" json:"fta"`
	Score        float64 `json:"score"`
	Minutes      int     `json:"minutes"`
	GamesPlayed  int     `gorm:"column:gp" json:"gp"`
	GamesStarted int     `gorm:"column:gs" json:"gs"`
}

func (PlayerHistory) TableName() string {
	return "player_history"
}
