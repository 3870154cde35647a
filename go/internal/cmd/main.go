package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/clickrush/go/internal/game"
	"github.com/mcdev12/clickrush/go/internal/gateway"
	"github.com/mcdev12/clickrush/go/internal/identity"
	"github.com/mcdev12/clickrush/go/internal/leaderboard"
	"github.com/mcdev12/clickrush/go/internal/scores"
	"github.com/mcdev12/clickrush/go/internal/users"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()

	// Score sink
	pool, err := setupDatabase(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	repo := scores.NewRepository(pool, clock)
	userRepo := users.NewRepository(pool, clock)

	// Broadcast group
	hub := gateway.NewHub(gateway.DefaultConnectionConfig())
	go hub.Run(ctx)

	// Leaderboard retention, seeded from the store
	board := leaderboard.NewBoard(config.Game.LeaderboardDepth)
	if entries, err := repo.TopScores(ctx, config.Game.LeaderboardDepth); err != nil {
		log.Warn().Err(err).Msg("could not seed leaderboard")
	} else {
		board.Seed(entries)
	}

	// Settlement distribution: NATS when configured, in-process otherwise
	var publisher game.Publisher
	if config.NATS.URL != "" {
		nc, err := leaderboard.Connect(config.NATS.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer nc.Close()

		publisher = leaderboard.NewNATSPublisher(nc, config.NATS.Subject)
		consumer := leaderboard.NewConsumer(nc, config.NATS.Subject, board, hub)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("leaderboard consumer failed")
			}
		}()
	} else {
		publisher = leaderboard.NewLocalPublisher(board, hub)
	}

	// Identity gate: local JWT verification when a secret is set,
	// otherwise the account service decides
	var gate identity.Gate
	if config.Auth.JWTSecret != "" {
		gate = identity.NewJWTGate([]byte(config.Auth.JWTSecret), nil)
	} else {
		gate = identity.NewAuthServiceGate(config.Auth.ServiceURL)
	}

	wsHandler := gateway.NewWebSocketHandler(hub, gate, userRepo, repo, publisher, board, config.gameConfig(), clock)
	server := setupServer(wsHandler)

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Int("countdown_ticks", config.Game.CountdownTicks).
			Int("active_window_seconds", config.Game.ActiveWindowSeconds).
			Msg("game gateway starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	cancel()
	log.Info().Msg("game gateway shutdown complete")
}
