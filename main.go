package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/private-leagues-api/internal/api"
	"github.com/isdelr/private-leagues-api/internal/auth"
	"github.com/isdelr/private-leagues-api/internal/config"
	"github.com/isdelr/private-leagues-api/internal/database"
	"github.com/isdelr/private-leagues-api/internal/logger"
	"github.com/isdelr/private-leagues-api/internal/monitoring"
	"github.com/isdelr/private-leagues-api/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.Env)

	if len(cfg.AppKeys) == 0 {
		log.Warn().Msg("APP_KEYS is empty, every league request will be rejected")
	}

	// Set up database
	db, err := database.New(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(cmd.Context(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up services
	userService := services.NewUserService(db, auth.NewHasher(auth.DefaultCost))
	leagueService := services.NewLeagueService(db)
	eventService := services.NewEventService(db)
	tokens := auth.NewTokenService(cfg.JWTSecret)

	metrics := monitoring.NewMetrics()
	statUpdater, err := monitoring.NewStatUpdater(db, metrics, cfg.StatsSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up stat updater")
	}
	go statUpdater.Run()

	// Set up router
	router := api.NewRouter(api.Dependencies{
		Users:          userService,
		Leagues:        leagueService,
		Events:         eventService,
		Tokens:         tokens,
		Metrics:        metrics,
		AppKeys:        cfg.AppKeys,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.Env).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	statUpdater.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("Server exiting")
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.Env)

	db, err := database.New(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	cmd.Println("Running migrations...")
	if err := database.Migrate(cmd.Context(), db); err != nil {
		return err
	}
	cmd.Println("Migrations completed successfully")
	return nil
}
