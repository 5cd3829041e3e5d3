// Package main is the entry point for the One Piece admin console.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"onepiece-admin/internal/bot"
	"onepiece-admin/internal/config"
	"onepiece-admin/internal/pkg/db"
	"onepiece-admin/internal/repository"
	"onepiece-admin/internal/service"
	"onepiece-admin/internal/tgrest"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	fruitRepo := repository.NewDevilFruitRepository(dbPool.Pool)
	predRepo := repository.NewPredictionRepository(dbPool.Pool)
	warlordRepo := repository.NewWarlordRepository(dbPool.Pool)
	impelDownRepo := repository.NewImpelDownRepository(dbPool.Pool)

	// Outbound command channel to the live bot process
	notifier := tgrest.NewClient(&cfg.TgRest)

	// Initialize services
	userService := service.NewUserService(userRepo, notifier)
	fruitService := service.NewDevilFruitService(fruitRepo, userRepo, notifier, &cfg.DevilFruit)
	predictionService := service.NewPredictionService(predRepo, notifier, &cfg.Prediction)
	warlordService := service.NewWarlordService(warlordRepo, userRepo, notifier, &cfg.Warlord)
	impelDownService := service.NewImpelDownService(impelDownRepo, userRepo, notifier)

	// Create bot dependencies
	deps := &bot.Dependencies{
		Config:            cfg,
		UserService:       userService,
		DevilFruitService: fruitService,
		PredictionService: predictionService,
		WarlordService:    warlordService,
		ImpelDownService:  impelDownService,
	}

	// Initialize bot
	console, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in a goroutine
	go func() {
		log.Info().Msg("Admin console is starting...")
		console.Start()
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	console.Stop()
	log.Info().Msg("Admin console stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: users table. The live bot process owns most of the user
	// columns; the console only reads them and updates the arrest state.
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			tg_user_id VARCHAR(32) NOT NULL UNIQUE,
			tg_first_name VARCHAR(255) NOT NULL,
			tg_last_name VARCHAR(255),
			tg_username VARCHAR(255),
			bounty BIGINT NOT NULL DEFAULT 0,
			pending_bounty BIGINT NOT NULL DEFAULT 0,
			impel_down_release_date TIMESTAMPTZ,
			impel_down_is_permanent BOOLEAN NOT NULL DEFAULT FALSE,
			crew_id BIGINT,
			last_message_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_bounty ON users(bounty DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: users table created")

	// Migration 2: devil fruit tables
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS devil_fruit (
			id BIGSERIAL PRIMARY KEY,
			category SMALLINT NOT NULL,
			name VARCHAR(255) NOT NULL,
			model VARCHAR(255) UNIQUE,
			status SMALLINT NOT NULL,
			owner_id BIGINT REFERENCES users(id),
			collection_date TIMESTAMPTZ,
			eaten_date TIMESTAMPTZ,
			release_date TIMESTAMPTZ,
			should_show_abilities BOOLEAN NOT NULL DEFAULT FALSE,
			UNIQUE (name, model)
		);
		CREATE TABLE IF NOT EXISTS devil_fruit_ability (
			id BIGSERIAL PRIMARY KEY,
			devil_fruit_id BIGINT NOT NULL REFERENCES devil_fruit(id) ON DELETE CASCADE,
			ability_type SMALLINT NOT NULL,
			value INT NOT NULL
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: devil fruit tables created")

	// Migration 3: prediction tables
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS prediction (
			id BIGSERIAL PRIMARY KEY,
			type VARCHAR(32) NOT NULL,
			status SMALLINT NOT NULL,
			question TEXT NOT NULL UNIQUE,
			send_date TIMESTAMPTZ,
			end_date TIMESTAMPTZ,
			cut_off_date TIMESTAMPTZ,
			refund_wager BOOLEAN NOT NULL DEFAULT FALSE,
			max_refund_wager BIGINT,
			allow_multiple_choices BOOLEAN NOT NULL DEFAULT TRUE,
			can_withdraw_bet BOOLEAN NOT NULL DEFAULT FALSE,
			result_set_date TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS prediction_option (
			id BIGSERIAL PRIMARY KEY,
			prediction_id BIGINT NOT NULL REFERENCES prediction(id) ON DELETE CASCADE,
			option TEXT NOT NULL,
			is_correct BOOLEAN NOT NULL DEFAULT FALSE
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: prediction tables created")

	// Migration 4: warlord table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS warlord (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			epithet VARCHAR(255) NOT NULL,
			reason TEXT NOT NULL,
			date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			end_date TIMESTAMPTZ NOT NULL,
			original_end_date TIMESTAMPTZ NOT NULL,
			revoke_reason TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_warlord_end_date ON warlord(end_date DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: warlord table created")

	// Migration 5: impel down audit log
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS impel_down_log (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			sentence_type VARCHAR(32),
			release_date_time TIMESTAMPTZ,
			is_permanent BOOLEAN NOT NULL DEFAULT FALSE,
			bounty_action VARCHAR(32),
			reason TEXT,
			previous_bounty BIGINT NOT NULL,
			new_bounty BIGINT NOT NULL,
			message_sent BOOLEAN NOT NULL DEFAULT FALSE,
			is_reversed BOOLEAN NOT NULL DEFAULT FALSE,
			date_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_impel_down_log_user ON impel_down_log(user_id, date_time DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 5: impel down log table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
