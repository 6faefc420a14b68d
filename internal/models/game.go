package models

import "time"

// PendingGame tracks a discovered game awaiting box-score processing.
// Discovery upserts by GameID, so repeated scoreboard polls are safe;
// Processed flips false→true exactly once, after all writes for the game
// have succeeded.
type PendingGame struct {
	GameID    string    `gorm:"primaryKey;size:20" json:"game_id"`
	GameDate  string    `gorm:"size:10;not null" json:"game_date"`
	Processed bool      `gorm:"not null;default:false;index" json:"processed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PendingGame) TableName() string {
	return "pending_game"
}

// Game is the summary row for one processed game.
type Game struct {
	ID         string    `gorm:"primaryKey;size:20" json:"id"`
	HomeTeamID int       `gorm:"not null" json:"home_team_id"`
	AwayTeamID int       `gorm:"not null" json:"away_team_id"`
	HomeScore  int       `json:"home_score"`
	AwayScore  int       `json:"away_score"`
	Gameweek   int       `gorm:"not null;index" json:"gameweek"`
	Date       time.Time `gorm:"not null" json:"date"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Game) TableName() string {
	return "game"
}

// PlayerGame is one player's stat line for one game, immutable once written.
// Players with zero minutes never get a row.
type PlayerGame struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	PlayerID  int     `gorm:"not null;uniqueIndex:idx_player_game" json:"player_id"`
	GameID    string  `gorm:"size:20;not null;uniqueIndex:idx_player_game" json:"game_id"`
	Points    int     `json:"points"`
	Rebounds  int     `json:"rebounds"`
	Assists   int     `json:"assists"`
	Steals    int     `json:"steals"`
	Blocks    int     `json:"blocks"`
	Turnovers int     `json:"turnovers"`
	ThreePM   int     `gorm:"column:three_pm" json:"three_pm"`
	ThreePA   int     `gorm:"column:three_pa" json:"three_pa"`
	FGM       int     `gorm:"column:fgm" json:"fgm"`
	FGA       int     `gorm:"column:fga" json:"fga"`
	FTM       int     `gorm:"column:ftm" json:"ftm"`
	FTA       int     `gorm:"column:fta" json:"fta"`
	Minutes   int     `gorm:"not null" json:"minutes"`
	Score     float64 `gorm:"not null" json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

func (PlayerGame) TableName() string {
	return "player_game"
}

// Gameweek is a fixed calendar window used to bucket games for scoring.
// Windows are contiguous, non-overlapping, and ordered.
type Gameweek struct {
	Number    int       `gorm:"primaryKey;column:gameweek" json:"gameweek"`
	StartDate time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null" json:"end_date"`
}

func (Gameweek) TableName() string {
	return "gameweek"
}
