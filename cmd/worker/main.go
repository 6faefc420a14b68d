package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/courtsidehq/courtside/internal/providers"
	"github.com/courtsidehq/courtside/internal/services"
	"github.com/courtsidehq/courtside/pkg/config"
	"github.com/courtsidehq/courtside/pkg/database"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	if cfg.IsDevelopment() {
		logrus.SetLevel(logrus.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	}

	logger := logrus.StandardLogger()

	// Connect to database
	db, err := database.NewConnection(database.Options{
		URL:             cfg.DatabaseURL,
		LogQueries:      cfg.IsDevelopment(),
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, logger)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	cacheService := services.NewCacheService(redisClient)

	// Stats provider
	provider := providers.NewNBAClient(providers.NBAClientOptions{
		StatsBaseURL:     cfg.NBAStatsBaseURL,
		LiveBaseURL:      cfg.NBALiveBaseURL,
		Timeout:          cfg.ProviderTimeout,
		PlayerFetchDelay: cfg.PlayerFetchDelay,
		BreakerThreshold: cfg.BreakerThreshold,
		CacheTTL:         cfg.ProviderCacheTTL,
	}, cacheService, logger)

	// Pipeline services
	gameweeks := services.NewGameweekService(db, logger)
	reconciler := services.NewReconciler(db, provider, logger, cfg.InitialPrice)
	ingest := services.NewIngestService(db, provider, gameweeks, reconciler, logger, cfg.InsertBatchSize)
	history := services.NewHistoryService(db, provider, logger, cfg.InsertBatchSize)

	seasonStart, err := time.Parse("2006-01-02", cfg.SeasonStart)
	if err != nil {
		logrus.Fatalf("Invalid SEASON_START: %v", err)
	}

	pricing := services.NewPricingEngine(db, history, logger, services.PricingParams{
		MinPrice:             cfg.MinPrice,
		PriceStep:            cfg.PriceStep,
		StretchExponent:      cfg.StretchExponent,
		TargetMeanAboveFloor: cfg.TargetMeanAboveFloor(),
		LastSeasonID:         cfg.LastSeasonID,
		SeasonStart:          seasonStart,
		BatchSize:            cfg.InsertBatchSize,
	})

	scheduler := services.NewScheduler(db, ingest, pricing, logger, services.SchedulerOptions{
		DiscoverySchedule:  cfg.DiscoverySchedule,
		ProcessingSchedule: cfg.ProcessingSchedule,
		PricingSchedule:    cfg.PricingSchedule,
	})

	if cfg.EnableScheduler {
		if err := scheduler.Start(); err != nil {
			logrus.Fatalf("Failed to start scheduler: %v", err)
		}
		defer scheduler.Stop()
	}

	if cfg.RunJobsOnStartup {
		go func() {
			scheduler.RunDiscovery()
			scheduler.RunProcessing()
		}()
	}

	// Operational surface: liveness and job status only
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC(),
		})
	})
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, scheduler.Status())
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("Starting worker on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down worker...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Worker exited")
}
