package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Prajwal-k-tech/Battle-CP/internal/auth"
	"github.com/Prajwal-k-tech/Battle-CP/internal/codeforces"
	"github.com/Prajwal-k-tech/Battle-CP/internal/config"
	"github.com/Prajwal-k-tech/Battle-CP/internal/handler"
	"github.com/Prajwal-k-tech/Battle-CP/internal/logger"
	"github.com/Prajwal-k-tech/Battle-CP/internal/repository"
	"github.com/Prajwal-k-tech/Battle-CP/internal/repository/postgres"
	redisrepo "github.com/Prajwal-k-tech/Battle-CP/internal/repository/redis"
	"github.com/Prajwal-k-tech/Battle-CP/internal/service"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Dev: cfg.Dev})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Archive backends are optional; matches run without them.
	var results repository.ResultRepository
	if cfg.DatabaseURL != "" {
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer db.Close()
		results = postgres.NewResultRepo(db)
	} else {
		log.Warn().Msg("DATABASE_URL not set, match archive disabled")
	}

	var stats repository.StatsCache
	if cfg.RedisURL != "" {
		redisClient, err := redisrepo.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		defer redisClient.Close()
		stats = redisClient
	} else {
		log.Warn().Msg("REDIS_URL not set, player stats disabled")
	}

	clk := clock.New()
	archive := service.NewArchiveService(results, stats)
	cf := codeforces.NewClient(cfg.CodeforcesURL, cfg.CodeforcesTimeout)
	wsHub := handler.NewHub()

	settings := service.DefaultSettings()
	settings.VerifyTimeout = cfg.CodeforcesTimeout
	settings.FinishedTTL = cfg.FinishedTTL
	settings.StaleTTL = cfg.StaleTTL
	matchSvc := service.NewMatchService(service.NewRegistry(cfg.RegistryShards), wsHub, cf, archive, clk, settings)
	ticker := service.NewTicker(matchSvc, clk, cfg.TickInterval)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handler.NewRouter(handler.Deps{
			Matches:        matchSvc,
			Archive:        archive,
			Hub:            wsHub,
			JWT:            auth.NewJWTManager(cfg.JWTSecret),
			AllowedOrigins: cfg.AllowedOrigins,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker.Start(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server error")
	}
	matchSvc.Wait()
	log.Info().Msg("Server stopped")
}
