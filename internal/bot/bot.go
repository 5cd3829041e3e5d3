// Package bot provides the Telegram console initialization and handler
// registration. Every command is gated behind the admin middleware.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"onepiece-admin/internal/config"
	"onepiece-admin/internal/handler"
	"onepiece-admin/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	// Handlers
	userHandler       *handler.UserHandler
	devilFruitHandler *handler.DevilFruitHandler
	predictionHandler *handler.PredictionHandler
	warlordHandler    *handler.WarlordHandler
	impelDownHandler  *handler.ImpelDownHandler
}

// Dependencies holds all the dependencies needed by the console handlers.
type Dependencies struct {
	Config            *config.Config
	UserService       *service.UserService
	DevilFruitService *service.DevilFruitService
	PredictionService *service.PredictionService
	WarlordService    *service.WarlordService
	ImpelDownService  *service.ImpelDownService
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if len(deps.Config.Admin.IDs) == 0 {
		return nil, fmt.Errorf("at least one admin id is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot: teleBot,
		cfg: deps.Config,
	}

	// Initialize handlers
	b.userHandler = handler.NewUserHandler(deps.UserService, deps.Config)
	b.devilFruitHandler = handler.NewDevilFruitHandler(deps.DevilFruitService, deps.Config)
	b.predictionHandler = handler.NewPredictionHandler(deps.PredictionService, deps.Config)
	b.warlordHandler = handler.NewWarlordHandler(deps.WarlordService, deps.Config)
	b.impelDownHandler = handler.NewImpelDownHandler(deps.ImpelDownService, deps.Config)

	// Register middleware
	b.registerMiddleware()

	// Register handlers
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware. The admin check runs first so
// nothing below it ever sees a non-moderator update.
func (b *Bot) registerMiddleware() {
	b.bot.Use(AdminMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(ErrorReplyMiddleware())
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	// User browsing
	b.bot.Handle("/users", b.userHandler.HandleUsers)
	b.bot.Handle("/user", b.userHandler.HandleUser)
	b.bot.Handle("/pm", b.userHandler.HandlePrivateMessage)

	// Impel Down
	b.bot.Handle("/arrest", b.impelDownHandler.HandleArrest)
	b.bot.Handle("/release", b.impelDownHandler.HandleRelease)
	b.bot.Handle("/reverse", b.impelDownHandler.HandleReverse)
	b.bot.Handle("/impeldown_logs", b.impelDownHandler.HandleLogs)

	// Warlords
	b.bot.Handle("/warlords", b.warlordHandler.HandleWarlords)
	b.bot.Handle("/warlord_appoint", b.warlordHandler.HandleAppoint)
	b.bot.Handle("/warlord_edit", b.warlordHandler.HandleEdit)
	b.bot.Handle("/warlord_revoke", b.warlordHandler.HandleRevoke)

	// Predictions
	b.bot.Handle("/predictions", b.predictionHandler.HandlePredictions)
	b.bot.Handle("/prediction_new", b.predictionHandler.HandleNew)
	b.bot.Handle("/prediction_edit", b.predictionHandler.HandleEdit)
	b.bot.Handle("/prediction_send", b.predictionHandler.HandleSend)
	b.bot.Handle("/prediction_close", b.predictionHandler.HandleClose)
	b.bot.Handle("/prediction_results", b.predictionHandler.HandleResults)
	b.bot.Handle("/prediction_delete", b.predictionHandler.HandleDelete)
	b.bot.Handle("/prediction_refresh", b.predictionHandler.HandleRefresh)
	b.bot.Handle("/prediction_resend", b.predictionHandler.HandleResend)

	// Devil fruits
	b.bot.Handle("/fruits", b.devilFruitHandler.HandleFruits)
	b.bot.Handle("/fruit_new", b.devilFruitHandler.HandleNew)
	b.bot.Handle("/fruit_edit", b.devilFruitHandler.HandleEdit)
	b.bot.Handle("/fruit_award", b.devilFruitHandler.HandleAward)
	b.bot.Handle("/fruit_delete", b.devilFruitHandler.HandleDelete)
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting admin console...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping admin console...")
	b.bot.Stop()
}
