package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/courtsidehq/courtside/pkg/database"
)

// Job names double as advisory-lease keys.
const (
	JobDiscovery  = "game-discovery"
	JobProcessing = "game-processing"
	JobPricing    = "price-update"
)

// SchedulerOptions holds the cron expressions for the three jobs.
type SchedulerOptions struct {
	DiscoverySchedule  string
	ProcessingSchedule string
	PricingSchedule    string
}

// Scheduler runs the ingestion and pricing jobs on their cadences. Each run
// takes a per-job advisory lease first, so overlapping worker processes
// cannot race on the same pending_game or player rows.
type Scheduler struct {
	db        *database.DB
	ingest    *IngestService
	pricing   *PricingEngine
	logger    *logrus.Logger
	cron      *cron.Cron
	opts      SchedulerOptions
	mu        sync.Mutex
	isRunning bool
}

func NewScheduler(
	db *database.DB,
	ingest *IngestService,
	pricing *PricingEngine,
	logger *logrus.Logger,
	opts SchedulerOptions,
) *Scheduler {
	return &Scheduler{
		db:      db,
		ingest:  ingest,
		pricing: pricing,
		logger:  logger,
		cron:    cron.New(),
		opts:    opts,
	}
}

// Start registers the cron jobs and begins scheduling.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	_, err := s.cron.AddFunc(s.opts.DiscoverySchedule, s.RunDiscovery)
	if err != nil {
		return fmt.Errorf("failed to schedule discovery: %w", err)
	}

	_, err = s.cron.AddFunc(s.opts.ProcessingSchedule, s.RunProcessing)
	if err != nil {
		return fmt.Errorf("failed to schedule processing: %w", err)
	}

	_, err = s.cron.AddFunc(s.opts.PricingSchedule, s.RunPricing)
	if err != nil {
		return fmt.Errorf("failed to schedule pricing: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	s.logger.Info("Scheduler started")
	return nil
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}

// RunDiscovery upserts today's games as pending rows.
func (s *Scheduler) RunDiscovery() {
	s.withLease(JobDiscovery, func(log *logrus.Entry) error {
		count, err := s.ingest.DiscoverTodaysGames()
		if err != nil {
			return err
		}
		log.Infof("Discovered %d games", count)
		return nil
	})
}

// RunProcessing works through all unprocessed pending games.
func (s *Scheduler) RunProcessing() {
	s.withLease(JobProcessing, func(log *logrus.Entry) error {
		return s.ingest.ProcessPendingGames()
	})
}

// RunPricing recomputes all player prices.
func (s *Scheduler) RunPricing() {
	s.withLease(JobPricing, func(log *logrus.Entry) error {
		run, err := s.pricing.Run()
		if err != nil {
			return err
		}
		log.Infof("Price run %s: mean %.2f, range %.1f-%.1f",
			run.ID, run.MeanPrice, run.MinPrice, run.MaxPrice)
		return nil
	})
}

// withLease wraps a job body with the advisory lease and a per-run id for
// log correlation. A held lease skips the run; the next scheduled tick
// picks the work back up.
func (s *Scheduler) withLease(job string, fn func(log *logrus.Entry) error) {
	log := s.logger.WithFields(logrus.Fields{
		"job": job,
		"run": uuid.NewString(),
	})

	ctx := context.Background()
	lease, err := s.db.TryAcquireLease(ctx, job)
	if err != nil {
		log.Errorf("Lease check failed: %v", err)
		return
	}
	if lease == nil {
		log.Warn("Another runner holds the lease, skipping this run")
		return
	}
	defer func() {
		if err := lease.Release(ctx); err != nil {
			log.Errorf("Lease release failed: %v", err)
		}
	}()

	started := time.Now()
	log.Info("Job started")
	if err := fn(log); err != nil {
		log.Errorf("Job failed after %v: %v", time.Since(started), err)
		return
	}
	log.Infof("Job finished in %v", time.Since(started))
}

// Status reports the scheduler state and upcoming runs.
func (s *Scheduler) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	nextRuns := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		nextRuns = append(nextRuns, entry.Next)
	}

	return map[string]interface{}{
		"is_running": s.isRunning,
		"cron_jobs":  len(entries),
		"next_runs":  nextRuns,
	}
}
