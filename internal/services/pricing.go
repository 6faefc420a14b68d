package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/courtsidehq/courtside/internal/models"
	"github.com/courtsidehq/courtside/pkg/database"
)

// PricingParams are the knobs of one pricing run. TargetMeanAboveFloor is
// the average budget per roster slot minus the price floor; after a run the
// mean price equals MinPrice+TargetMeanAboveFloor up to rounding.
type PricingParams struct {
	MinPrice             float64   `json:"min_price"`
	PriceStep            float64   `json:"price_step"`
	StretchExponent      float64   `json:"stretch_exponent"`
	TargetMeanAboveFloor float64   `json:"target_mean_above_floor"`
	LastSeasonID         string    `json:"last_season_id"`
	SeasonStart          time.Time `json:"season_start"`
	BatchSize            int       `json:"batch_size"`
}

// CohortRow is one participant's aggregate inside a normalization cohort.
type CohortRow struct {
	PlayerID    int     `json:"player_id"`
	AvgScore    float64 `gorm:"column:avg_score" json:"avg_score"`
	AvgMinutes  float64 `gorm:"column:avg_minutes" json:"avg_minutes"`
	GamesPlayed int     `gorm:"column:games_played" json:"games_played"`
}

// PricePoint is the derived pricing record for one participant.
type PricePoint struct {
	PlayerID      int
	CurrNorm      *float64
	PastNorm      *float64
	Combined      float64
	AgeFactor     float64
	WeightedScore float64
	Price         float64
}

// PricingEngine recomputes every player's price from current-season and
// historical performance. One canonical algorithm; see ComputePrices.
type PricingEngine struct {
	db      *database.DB
	history *HistoryService
	logger  *logrus.Logger
	params  PricingParams
}

func NewPricingEngine(db *database.DB, history *HistoryService, logger *logrus.Logger, params PricingParams) *PricingEngine {
	return &PricingEngine{
		db:      db,
		history: history,
		logger:  logger,
		params:  params,
	}
}

// Run executes a full pricing pass: build both cohorts, compute prices,
// write them, backfill unpriced players at the floor, sync current_price,
// and record the audit row.
func (e *PricingEngine) Run() (*models.PriceRun, error) {
	current, err := e.currentCohort()
	if err != nil {
		return nil, err
	}

	// A season with no history at all prices current-only; a failing
	// history query aborts the run rather than silently repricing the
	// whole cohort without its past signal.
	past, err := e.pastCohort()
	if err != nil {
		if !errors.Is(err, ErrNoHistory) {
			return nil, fmt.Errorf("failed to load historical cohort: %w", err)
		}
		e.logger.Warnf("No historical cohort available: %v", err)
		past = nil
	}

	ages, err := e.playerAges()
	if err != nil {
		return nil, err
	}

	e.logger.Infof("Pricing %d current-season and %d historical players", len(current), len(past))

	points, err := ComputePrices(current, past, ages, e.params)
	if err != nil {
		return nil, fmt.Errorf("pricing computation failed: %w", err)
	}

	priced := e.writePrices(points)
	backfilled, err := e.backfillFloorPrices(points)
	if err != nil {
		return nil, err
	}

	if err := e.SyncCurrentPrices(); err != nil {
		return nil, err
	}

	run, err := e.recordRun(points, priced+backfilled)
	if err != nil {
		return nil, err
	}

	e.logger.Infof("Pricing run %s complete: %d priced, %d floor-backfilled, mean %.2f",
		run.ID, priced, backfilled, run.MeanPrice)
	return run, nil
}

// currentCohort aggregates this season's stat rows per player.
func (e *PricingEngine) currentCohort() ([]CohortRow, error) {
	var rows []CohortRow
	err := e.db.Model(&models.PlayerGame{}).
		Select("player_id, AVG(score) AS avg_score, AVG(minutes) AS avg_minutes, COUNT(*) AS games_played").
		Group("player_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate current season: %w", err)
	}
	return rows, nil
}

func (e *PricingEngine) pastCohort() ([]CohortRow, error) {
	averages, err := e.history.SeasonAverages(e.params.LastSeasonID)
	if err != nil {
		return nil, err
	}
	rows := make([]CohortRow, 0, len(averages))
	for _, a := range averages {
		rows = append(rows, CohortRow{
			PlayerID:    a.PlayerID,
			AvgScore:    a.AvgScore,
			AvgMinutes:  a.AvgMinutes,
			GamesPlayed: a.GamesPlayed,
		})
	}
	return rows, nil
}

// playerAges computes each player's age at season start.
func (e *PricingEngine) playerAges() (map[int]*int, error) {
	var players []models.Player
	if err := e.db.Select("id, birthdate").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("failed to load player birthdates: %w", err)
	}

	ages := make(map[int]*int, len(players))
	for i := range players {
		ages[players[i].ID] = players[i].AgeAt(e.params.SeasonStart)
	}
	return ages, nil
}

// ComputePrices runs the canonical pricing algorithm:
//
//  1. per-cohort weighted value from mean score, games ramp, minutes share,
//     and the coarse age bracket
//  2. min-max normalization within each cohort
//  3. outer-join combination: 0.7*current+0.3*past when a current value
//     exists, 0.9*past when only history exists
//  4. fine age bracket applied to the combined score
//  5. shift to a zero floor, nonlinear stretch, rescale to the target mean,
//     add the price floor, round to the price step
//
// The returned points satisfy min(price)==MinPrice and
// mean(price)==MinPrice+TargetMeanAboveFloor up to the rounding step; a
// violation before rounding is an error, never silently clamped.
func ComputePrices(current, past []CohortRow, ages map[int]*int, params PricingParams) ([]PricePoint, error) {
	currNorm := normalizeCohort(weightedValues(current, ages))
	pastNorm := normalizeCohort(weightedValues(past, ages))

	ids := unionIDs(currNorm, pastNorm)
	if len(ids) == 0 {
		return nil, fmt.Errorf("both cohorts are empty")
	}

	points := make([]PricePoint, 0, len(ids))
	for _, id := range ids {
		p := PricePoint{PlayerID: id, AgeFactor: fineAgeFactor(ages[id])}

		cur, hasCur := currNorm[id]
		pastV, hasPast := pastNorm[id]
		if hasCur {
			c := cur
			p.CurrNorm = &c
			if hasPast {
				pv := pastV
				p.PastNorm = &pv
				p.Combined = 0.7*cur + 0.3*pastV
			} else {
				p.Combined = 0.7 * cur
			}
		} else {
			pv := pastV
			p.PastNorm = &pv
			p.Combined = 0.9 * pastV
		}

		p.WeightedScore = p.Combined * p.AgeFactor
		points = append(points, p)
	}

	applyRookieScoreFallback(points)
	if err := mapPrices(points, params); err != nil {
		return nil, err
	}
	return points, nil
}

// weightedValues computes the per-cohort weighted value for every row:
// mean_score * (0.7*age_factor + 0.15*games_weight + 0.15*minutes_weight).
func weightedValues(cohort []CohortRow, ages map[int]*int) map[int]float64 {
	if len(cohort) == 0 {
		return nil
	}

	maxMinutes := 0.0
	for _, row := range cohort {
		if row.AvgMinutes > maxMinutes {
			maxMinutes = row.AvgMinutes
		}
	}
	if maxMinutes == 0 {
		maxMinutes = 1
	}

	values := make(map[int]float64, len(cohort))
	for _, row := range cohort {
		gamesWeight := math.Min(float64(row.GamesPlayed)/10.0, 1.0)
		minutesWeight := row.AvgMinutes / maxMinutes
		ageFactor := coarseAgeFactor(ages[row.PlayerID])
		values[row.PlayerID] = row.AvgScore * (0.7*ageFactor + 0.15*gamesWeight + 0.15*minutesWeight)
	}
	return values
}

// normalizeCohort min-max normalizes the values to [0,1]. A degenerate
// cohort (all values equal) normalizes to zero.
func normalizeCohort(values map[int]float64) map[int]float64 {
	if len(values) == 0 {
		return nil
	}

	minV := math.Inf(1)
	maxV := math.Inf(-1)
	for _, v := range values {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}

	norm := make(map[int]float64, len(values))
	if maxV == minV {
		for id := range values {
			norm[id] = 0
		}
		return norm
	}
	for id, v := range values {
		norm[id] = (v - minV) / (maxV - minV)
	}
	return norm
}

// applyRookieScoreFallback fills a missing weighted score with the player's
// current-season normalized value, or the cohort minimum when that too is
// absent. With both cohorts populated every point already carries a score;
// the fallback is the named leniency for partial data, mirrored by the
// floor backfill for players with no signal at all.
func applyRookieScoreFallback(points []PricePoint) {
	minScore := math.Inf(1)
	for i := range points {
		if !math.IsNaN(points[i].WeightedScore) && points[i].WeightedScore < minScore {
			minScore = points[i].WeightedScore
		}
	}
	if math.IsInf(minScore, 1) {
		minScore = 0
	}

	for i := range points {
		if math.IsNaN(points[i].WeightedScore) {
			if points[i].CurrNorm != nil {
				points[i].WeightedScore = *points[i].CurrNorm
			} else {
				points[i].WeightedScore = minScore
			}
		}
	}
}

// mapPrices converts weighted scores to prices in place.
func mapPrices(points []PricePoint, params PricingParams) error {
	minWS := math.Inf(1)
	for i := range points {
		if points[i].WeightedScore < minWS {
			minWS = points[i].WeightedScore
		}
	}

	maxRaw := 0.0
	for i := range points {
		raw := points[i].WeightedScore - minWS
		if raw > maxRaw {
			maxRaw = raw
		}
	}

	// Exponent >1 compresses the lower tail and stretches the top,
	// rewarding elite performers disproportionately.
	stretched := make([]float64, len(points))
	sum := 0.0
	for i := range points {
		raw := points[i].WeightedScore - minWS
		if maxRaw > 0 {
			stretched[i] = math.Pow(raw/maxRaw, params.StretchExponent)
		}
		sum += stretched[i]
	}

	scale := 0.0
	if mean := sum / float64(len(points)); mean > 0 {
		scale = params.TargetMeanAboveFloor / mean
	}

	for i := range points {
		price := params.MinPrice + stretched[i]*scale
		if price < params.MinPrice-1e-9 {
			return fmt.Errorf("price %.4f for player %d fell below floor %.2f",
				price, points[i].PlayerID, params.MinPrice)
		}
		points[i].Price = roundToStep(price, params.PriceStep)
	}

	return nil
}

func roundToStep(x, step float64) float64 {
	if step <= 0 {
		return x
	}
	return math.Round(x/step) * step
}

// coarseAgeFactor is the cohort-level age curve: a small boost in the
// prime years, a discount past 30, neutral otherwise and when unknown.
func coarseAgeFactor(age *int) float64 {
	if age == nil {
		return 1.0
	}
	switch {
	case *age >= 22 && *age <= 28:
		return 1.1
	case *age >= 31:
		return 0.9
	default:
		return 1.0
	}
}

// fineAgeFactor is the second, finer bracket table applied to the combined
// score.
func fineAgeFactor(age *int) float64 {
	if age == nil {
		return 1.0
	}
	switch {
	case *age < 20:
		return 1.0
	case *age < 24:
		return 1.1
	case *age < 28:
		return 1.05
	case *age < 31:
		return 0.95
	case *age < 35:
		return 0.90
	default:
		return 1.0
	}
}

func unionIDs(a, b map[int]float64) []int {
	seen := make(map[int]bool, len(a)+len(b))
	var ids []int
	for id := range a {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range b {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// writePrices updates player prices in chunks; a failing chunk is logged
// with its range and the rest still execute.
func (e *PricingEngine) writePrices(points []PricePoint) int {
	batchSize := e.params.BatchSize
	if batchSize <= 0 {
		batchSize = database.DefaultBatchSize
	}

	updated := 0
	for i := 0; i < len(points); i += batchSize {
		end := i + batchSize
		if end > len(points) {
			end = len(points)
		}

		chunk := points[i:end]
		err := e.db.Transaction(func(tx *gorm.DB) error {
			for _, p := range chunk {
				err := tx.Model(&models.Player{}).Where("id = ?", p.PlayerID).
					Update("price", p.Price).Error
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			e.logger.Errorf("Price update failed for rows %d-%d: %v", i+1, end, err)
			continue
		}
		updated += len(chunk)
	}

	return updated
}

// backfillFloorPrices assigns the floor price to every player the cohorts
// never saw, so no player is left unpriced.
func (e *PricingEngine) backfillFloorPrices(points []PricePoint) (int, error) {
	priced := make([]int, 0, len(points))
	for _, p := range points {
		priced = append(priced, p.PlayerID)
	}

	tx := e.db.Model(&models.Player{})
	if len(priced) > 0 {
		tx = tx.Where("id NOT IN ?", priced)
	}
	result := tx.Update("price", e.params.MinPrice)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to backfill floor prices: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		e.logger.Infof("Backfilled %d players at floor price %.1f", result.RowsAffected, e.params.MinPrice)
	}
	return int(result.RowsAffected), nil
}

// SyncCurrentPrices copies price into current_price for all players, in
// chunks with per-chunk failure isolation.
func (e *PricingEngine) SyncCurrentPrices() error {
	var players []models.Player
	if err := e.db.Select("id").Order("id").Find(&players).Error; err != nil {
		return fmt.Errorf("failed to load players for price sync: %w", err)
	}

	batchSize := e.params.BatchSize
	if batchSize <= 0 {
		batchSize = database.DefaultBatchSize
	}

	for i := 0; i < len(players); i += batchSize {
		end := i + batchSize
		if end > len(players) {
			end = len(players)
		}

		ids := make([]int, 0, end-i)
		for _, p := range players[i:end] {
			ids = append(ids, p.ID)
		}

		err := e.db.Model(&models.Player{}).Where("id IN ?", ids).
			Update("current_price", gorm.Expr("price")).Error
		if err != nil {
			e.logger.Errorf("Current price sync failed for rows %d-%d: %v", i+1, end, err)
			continue
		}
	}

	return nil
}

// recordRun writes the audit row for a completed pricing pass.
func (e *PricingEngine) recordRun(points []PricePoint, pricedCount int) (*models.PriceRun, error) {
	paramsJSON, err := json.Marshal(e.params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pricing params: %w", err)
	}

	sum := 0.0
	minPrice := math.Inf(1)
	maxPrice := math.Inf(-1)
	for _, p := range points {
		sum += p.Price
		minPrice = math.Min(minPrice, p.Price)
		maxPrice = math.Max(maxPrice, p.Price)
	}

	run := models.PriceRun{
		ID:          uuid.NewString(),
		RanAt:       time.Now().UTC(),
		PlayerCount: len(points),
		PricedCount: pricedCount,
		MeanPrice:   sum / float64(len(points)),
		MinPrice:    minPrice,
		MaxPrice:    maxPrice,
		Params:      paramsJSON,
	}

	if err := e.db.Create(&run).Error; err != nil {
		return nil, fmt.Errorf("failed to record price run: %w", err)
	}
	return &run, nil
}
