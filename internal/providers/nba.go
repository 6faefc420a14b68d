package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Cache is the read-through cache the client stores provider responses in.
type Cache interface {
	GetSimple(key string, dest interface{}) error
	SetSimple(key string, value interface{}, expiration time.Duration) error
}

// NBAClient fetches scoreboards and box scores from the live data feed and
// player biographies and career totals from the stats API. All calls are
// blocking; a rate limiter enforces a fixed pause between consecutive
// player-detail fetches and a circuit breaker trips after repeated provider
// failures.
type NBAClient struct {
	httpClient   *http.Client
	statsBaseURL string
	liveBaseURL  string
	cache        Cache
	cacheTTL     time.Duration
	breaker      *gobreaker.CircuitBreaker
	limiter      *rate.Limiter
	logger       *logrus.Logger
}

// NBAClientOptions configures a new client.
type NBAClientOptions struct {
	StatsBaseURL     string
	LiveBaseURL      string
	Timeout          time.Duration
	PlayerFetchDelay time.Duration
	BreakerThreshold uint32
	CacheTTL         time.Duration
}

// NewNBAClient creates a new stats provider client.
func NewNBAClient(opts NBAClientOptions, cache Cache, logger *logrus.Logger) *NBAClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "nba-api",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	delay := opts.PlayerFetchDelay
	if delay <= 0 {
		delay = 600 * time.Millisecond
	}

	return &NBAClient{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		statsBaseURL: opts.StatsBaseURL,
		liveBaseURL:  opts.LiveBaseURL,
		cache:        cache,
		cacheTTL:     opts.CacheTTL,
		breaker:      breaker,
		limiter:      rate.NewLimiter(rate.Every(delay), 1),
		logger:       logger,
	}
}

// Live feed response structures

type liveScoreboardResponse struct {
	Scoreboard struct {
		GameDate string `json:"gameDate"`
		Games    []struct {
			GameID      string `json:"gameId"`
			GameTimeUTC string `json:"gameTimeUTC"`
		} `json:"games"`
	} `json:"scoreboard"`
}

type liveBoxScoreResponse struct {
	Game struct {
		GameID      string           `json:"gameId"`
		GameTimeUTC string           `json:"gameTimeUTC"`
		HomeTeam    liveBoxScoreTeam `json:"homeTeam"`
		AwayTeam    liveBoxScoreTeam `json:"awayTeam"`
	} `json:"game"`
}

type liveBoxScoreTeam struct {
	TeamID  int                  `json:"teamId"`
	Score   int                  `json:"score"`
	Players []liveBoxScorePlayer `json:"players"`
}

type liveBoxScorePlayer struct {
	PersonID   int          `json:"personId"`
	Statistics liveStatLine `json:"statistics"`
}

type liveStatLine struct {
	Minutes                string `json:"minutes"`
	MinutesCalculated      string `json:"minutesCalculated"`
	Points                 int    `json:"points"`
	ReboundsTotal          int    `json:"reboundsTotal"`
	Assists                int    `json:"assists"`
	Steals                 int    `json:"steals"`
	Blocks                 int    `json:"blocks"`
	Turnovers              int    `json:"turnovers"`
	ThreePointersMade      int    `json:"threePointersMade"`
	ThreePointersAttempted int    `json:"threePointersAttempted"`
	FieldGoalsMade         int    `json:"fieldGoalsMade"`
	FieldGoalsAttempted    int    `json:"fieldGoalsAttempted"`
	FreeThrowsMade         int    `json:"freeThrowsMade"`
	FreeThrowsAttempted    int    `json:"freeThrowsAttempted"`
}

// ScoreboardToday enumerates today's games from the live scoreboard feed.
func (c *NBAClient) ScoreboardToday() ([]ScoreboardGame, error) {
	url := fmt.Sprintf("%s/scoreboard/todaysScoreboard_00.json", c.liveBaseURL)

	var resp liveScoreboardResponse
	if err := c.makeRequest(url, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch scoreboard: %w", err)
	}

	games := make([]ScoreboardGame, 0, len(resp.Scoreboard.Games))
	for _, g := range resp.Scoreboard.Games {
		if g.GameID == "" {
			c.logger.Warn("Scoreboard entry missing gameId, skipping")
			continue
		}
		games = append(games, ScoreboardGame{
			GameID:   g.GameID,
			GameDate: resp.Scoreboard.GameDate,
		})
	}

	return games, nil
}

// BoxScore fetches the full box-score detail for one game.
func (c *NBAClient) BoxScore(gameID string) (*BoxScoreGame, error) {
	url := fmt.Sprintf("%s/boxscore/boxscore_%s.json", c.liveBaseURL, gameID)

	var resp liveBoxScoreResponse
	if err := c.makeRequest(url, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch box score for %s: %w", gameID, err)
	}

	gameTime, err := time.Parse(time.RFC3339, resp.Game.GameTimeUTC)
	if err != nil {
		return nil, fmt.Errorf("invalid gameTimeUTC %q for %s: %w", resp.Game.GameTimeUTC, gameID, err)
	}

	return &BoxScoreGame{
		GameID:      resp.Game.GameID,
		GameTimeUTC: gameTime,
		Home:        convertBoxScoreTeam(resp.Game.HomeTeam),
		Away:        convertBoxScoreTeam(resp.Game.AwayTeam),
	}, nil
}

func convertBoxScoreTeam(t liveBoxScoreTeam) BoxScoreTeam {
	team := BoxScoreTeam{
		TeamID:  t.TeamID,
		Score:   t.Score,
		Players: make([]BoxScorePlayer, 0, len(t.Players)),
	}

	for _, p := range t.Players {
		s := p.Statistics
		minutes := s.MinutesCalculated
		if minutes == "" {
			minutes = s.Minutes
		}
		team.Players = append(team.Players, BoxScorePlayer{
			PersonID: p.PersonID,
			Statistics: StatLine{
				Minutes:                minutes,
				Points:                 s.Points,
				Rebounds:               s.ReboundsTotal,
				Assists:                s.Assists,
				Steals:                 s.Steals,
				Blocks:                 s.Blocks,
				Turnovers:              s.Turnovers,
				ThreePointersMade:      s.ThreePointersMade,
				ThreePointersAttempted: s.ThreePointersAttempted,
				FieldGoalsMade:         s.FieldGoalsMade,
				FieldGoalsAttempted:    s.FieldGoalsAttempted,
				FreeThrowsMade:         s.FreeThrowsMade,
				FreeThrowsAttempted:    s.FreeThrowsAttempted,
			},
		})
	}

	return team
}

// PlayerProfile fetches biographical detail for one player. Responses are
// cached; cache misses pay the inter-fetch delay before hitting the API.
func (c *NBAClient) PlayerProfile(playerID int) (*PlayerProfile, error) {
	cacheKey := fmt.Sprintf("nba:player:profile:%d", playerID)

	var cached PlayerProfile
	if c.cache != nil {
		if err := c.cache.GetSimple(cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	if err := c.limiter.Wait(context.Background()); err != nil {
		return nil, fmt.Errorf("rate limiter interrupted: %w", err)
	}

	url := fmt.Sprintf("%s/commonplayerinfo?PlayerID=%d", c.statsBaseURL, playerID)
	var resp resultSetResponse
	if err := c.makeRequest(url, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch player %d: %w", playerID, err)
	}

	rs, err := resp.resultSet("CommonPlayerInfo")
	if err != nil {
		return nil, fmt.Errorf("player %d: %w", playerID, err)
	}
	if len(rs.RowSet) == 0 {
		return nil, fmt.Errorf("player %d not found", playerID)
	}

	row := rs.row(0)
	profile := &PlayerProfile{
		ID:        row.intAt("PERSON_ID"),
		FirstName: row.stringAt("FIRST_NAME"),
		LastName:  row.stringAt("LAST_NAME"),
		Position:  normalizePosition(row.stringAt("POSITION")),
		TeamID:    row.optionalIntAt("TEAM_ID"),
		HeightIn:  parseHeight(row.stringAt("HEIGHT")),
		WeightLb:  parseWeight(row.stringAt("WEIGHT")),
		Birthdate: parseBirthdate(row.stringAt("BIRTHDATE")),
	}

	if c.cache != nil {
		c.cache.SetSimple(cacheKey, profile, c.cacheTTL)
	}

	return profile, nil
}

// CareerSeasons fetches season-by-season career totals for one player.
func (c *NBAClient) CareerSeasons(playerID int) ([]CareerSeason, error) {
	if err := c.limiter.Wait(context.Background()); err != nil {
		return nil, fmt.Errorf("rate limiter interrupted: %w", err)
	}

	url := fmt.Sprintf("%s/playercareerstats?PlayerID=%d&PerMode=Totals", c.statsBaseURL, playerID)
	var resp resultSetResponse
	if err := c.makeRequest(url, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch career stats for %d: %w", playerID, err)
	}

	rs, err := resp.resultSet("SeasonTotalsRegularSeason")
	if err != nil {
		return nil, fmt.Errorf("career stats for %d: %w", playerID, err)
	}

	seasons := make([]CareerSeason, 0, len(rs.RowSet))
	for i := range rs.RowSet {
		row := rs.row(i)
		seasonID := row.stringAt("SEASON_ID")
		if seasonID == "" {
			continue
		}
		seasons = append(seasons, CareerSeason{
			SeasonID: seasonID,
			TeamID:   row.intAt("TEAM_ID"),
			Stats: StatLine{
				Points:                 row.intAt("PTS"),
				Rebounds:               row.intAt("REB"),
				Assists:                row.intAt("AST"),
				Steals:                 row.intAt("STL"),
				Blocks:                 row.intAt("BLK"),
				Turnovers:              row.intAt("TOV"),
				ThreePointersMade:      row.intAt("FG3M"),
				ThreePointersAttempted: row.intAt("FG3A"),
				FieldGoalsMade:         row.intAt("FGM"),
				FieldGoalsAttempted:    row.intAt("FGA"),
				FreeThrowsMade:         row.intAt("FTM"),
				FreeThrowsAttempted:    row.intAt("FTA"),
			},
			MinutesTotal: row.intAt("MIN"),
			GamesPlayed:  row.intAt("GP"),
			GamesStarted: row.intAt("GS"),
		})
	}

	return seasons, nil
}

// makeRequest performs an HTTP GET through the circuit breaker with
// exponential backoff, decoding the JSON body into target.
func (c *NBAClient) makeRequest(url string, target interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		var lastErr error
		for attempt := 0; attempt < 3; attempt++ {
			if attempt > 0 {
				waitTime := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
				c.logger.Warnf("Request failed (attempt %d), waiting %v: %v", attempt, waitTime, lastErr)
				time.Sleep(waitTime)
			}

			req, err := http.NewRequest(http.MethodGet, url, nil)
			if err != nil {
				return nil, err
			}
			// stats.nba.com rejects requests without browser-like headers
			req.Header.Set("User-Agent", "Mozilla/5.0")
			req.Header.Set("Referer", "https://www.nba.com/")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				lastErr = err
				continue
			}

			if resp.StatusCode != http.StatusOK {
				resp.Body.Close()
				lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
				continue
			}

			err = json.NewDecoder(resp.Body).Decode(target)
			resp.Body.Close()
			if err != nil {
				lastErr = fmt.Errorf("failed to decode response: %w", err)
				continue
			}
			return nil, nil
		}
		return nil, fmt.Errorf("request failed after retries: %w", lastErr)
	})
	return err
}

// normalizePosition trims compound positions ("Forward-Guard") to the first
// part.
func normalizePosition(position string) string {
	if position == "" {
		return "Unknown"
	}
	if idx := strings.Index(position, "-"); idx >= 0 {
		return strings.TrimSpace(position[:idx])
	}
	return position
}

// parseHeight converts "6-8" to inches.
func parseHeight(height string) *int {
	parts := strings.SplitN(height, "-", 2)
	if len(parts) != 2 {
		return nil
	}
	feet, err1 := parseInt(parts[0])
	inches, err2 := parseInt(parts[1])
	if err1 != nil || err2 != nil {
		return nil
	}
	total := feet*12 + inches
	return &total
}

func parseWeight(weight string) *int {
	w, err := parseInt(weight)
	if err != nil {
		return nil
	}
	return &w
}

func parseBirthdate(birthdate string) *time.Time {
	if len(birthdate) < 10 {
		return nil
	}
	t, err := time.Parse("2006-01-02", birthdate[:10])
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &n)
	return n, err
}
