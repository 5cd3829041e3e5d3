package bot

import (
	"errors"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"onepiece-admin/internal/config"
	"onepiece-admin/internal/service"
	"onepiece-admin/internal/tgrest"
)

// AdminMiddleware drops every update from a non-moderator. The whole console
// is gated: there is no public surface at all.
func AdminMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			if !cfg.IsAdmin(sender.ID) {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted console command")
				return nil
			}

			return next(c)
		}
	}
}

// LoggingMiddleware logs every incoming console command.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received command")

			return next(c)
		}
	}
}

// ErrorReplyMiddleware turns handler errors into inline replies so no
// failure is ever silently swallowed. Validation and stale-state errors are
// shown as-is; delivery errors carry the warning that the database write is
// already committed.
func ErrorReplyMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var verr *service.ValidationError
			if errors.As(err, &verr) {
				return c.Reply("❌ " + verr.Message)
			}
			var stale *service.StaleStateError
			if errors.As(err, &stale) {
				return c.Reply("⚠️ Stale action: " + stale.Error())
			}
			var derr *tgrest.DeliveryError
			if errors.As(err, &derr) {
				return c.Reply("⚠️ Saved, but the bot could not be notified: " + derr.Error())
			}

			log.Error().Err(err).Str("command", c.Text()).Msg("Handler failed")
			return c.Reply("❌ Something went wrong, check the logs")
		}
	}
}
