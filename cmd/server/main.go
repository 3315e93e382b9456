// Command server runs the habit streak and achievement engine as an HTTP
// service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmlago/habitloop/internal/api"
	"github.com/jmlago/habitloop/internal/cache"
	"github.com/jmlago/habitloop/internal/catalog"
	"github.com/jmlago/habitloop/internal/config"
	"github.com/jmlago/habitloop/internal/repository"
	"github.com/jmlago/habitloop/internal/service/achievements"
	"github.com/jmlago/habitloop/internal/service/scheduler"
	"github.com/jmlago/habitloop/internal/service/streaks"
	"github.com/jmlago/habitloop/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()

	cat, err := catalog.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load achievement catalog")
	}
	log.Info().Int("achievements", cat.Len()).Msg("Achievement catalog loaded")

	db, err := repository.NewDB(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	habitRepo := repository.NewHabitRepository(db)
	logRepo := repository.NewLogRepository(db)
	streakRepo := repository.NewStreakRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	goalRepo := repository.NewGoalRepository(db)

	streakService := streaks.NewService(habitRepo, logRepo, streakRepo, cfg.Habits.MinimumCount, log)
	achievementService := achievements.NewService(cat, achievementRepo, habitRepo, logRepo, streakRepo, goalRepo, log)

	var boardCache cache.Cache
	if cfg.Redis.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		redisCache, err := cache.NewRedisCache(context.Background(), addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Str("addr", addr).Msg("Failed to connect to Redis")
		}
		defer redisCache.Close()
		boardCache = redisCache
		log.Info().Str("addr", addr).Msg("Connected to Redis")
	}

	sched := scheduler.NewService(cfg, streakService, achievementService, habitRepo, log)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer sched.Stop()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handler := api.NewHandler(
		habitRepo,
		logRepo,
		goalRepo,
		streakService,
		achievementService,
		boardCache,
		time.Duration(cfg.Redis.CacheTTL)*time.Second,
		log,
	)
	api.RegisterRoutes(router, handler, db, cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
	log.Info().Msg("Server stopped")
}
