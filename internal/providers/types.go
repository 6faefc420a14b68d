package providers

import (
	"regexp"
	"strconv"
	"time"
)

// Normalized provider payloads. The raw feeds are loosely shaped; every
// field is validated and converted here, once, at the ingestion boundary.

// ScoreboardGame is one entry from the live scoreboard feed.
type ScoreboardGame struct {
	GameID   string
	GameDate string
}

// BoxScoreGame is the full box-score detail for one game.
type BoxScoreGame struct {
	GameID      string
	GameTimeUTC time.Time
	Home        BoxScoreTeam
	Away        BoxScoreTeam
}

// BoxScoreTeam is one side of a box score with its roster.
type BoxScoreTeam struct {
	TeamID  int
	Score   int
	Players []BoxScorePlayer
}

// BoxScorePlayer is one roster entry with its raw stat line.
type BoxScorePlayer struct {
	PersonID   int
	Statistics StatLine
}

// StatLine holds the raw counting stats for one player in one game or one
// season. Minutes is the provider's ISO-8601 duration string ("PT36M12.00S").
type StatLine struct {
	Minutes                string
	Points                 int
	Rebounds               int
	Assists                int
	Steals                 int
	Blocks                 int
	Turnovers              int
	ThreePointersMade      int
	ThreePointersAttempted int
	FieldGoalsMade         int
	FieldGoalsAttempted    int
	FreeThrowsMade         int
	FreeThrowsAttempted    int
}

var minutesPattern = regexp.MustCompile(`PT(\d+)M`)

// MinutesPlayed parses the ISO-8601 minutes component. Unparseable or empty
// strings count as zero minutes, which downstream treats as did-not-play.
func (s StatLine) MinutesPlayed() int {
	m := minutesPattern.FindStringSubmatch(s.Minutes)
	if m == nil {
		return 0
	}
	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return minutes
}

// PlayerProfile is the biographical detail for one player.
type PlayerProfile struct {
	ID        int
	FirstName string
	LastName  string
	Position  string
	TeamID    *int
	HeightIn  *int
	WeightLb  *int
	Birthdate *time.Time
}

// CareerSeason is one season total line from a player's career record.
type CareerSeason struct {
	SeasonID     string
	TeamID       int
	Stats        StatLine
	MinutesTotal int
	GamesPlayed  int
	GamesStarted int
}
