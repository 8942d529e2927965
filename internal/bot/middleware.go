package bot

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/service"
)

// UserMiddleware ensures the account exists for every incoming update.
// The referral payload of a /start deep link is captured here so the
// referrer is bound at the very first contact, and the welcome bonus is
// granted on creation. The ensured user is stashed on the context.
func UserMiddleware(accounts *service.AccountService) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || sender.IsBot {
				return next(c)
			}

			payload := ""
			if msg := c.Message(); msg != nil && strings.HasPrefix(msg.Text, "/start") {
				fields := strings.Fields(msg.Text)
				if len(fields) > 1 {
					payload = fields[1]
				}
			}

			username := optional(sender.Username)
			firstName := optional(sender.FirstName)

			user, created, err := accounts.EnsureUser(context.Background(), sender.ID, username, firstName, payload)
			if err != nil {
				log.Error().Err(err).Int64("user_id", sender.ID).Msg("failed to ensure user")
				return c.Send("❌ Что-то пошло не так, попробуйте позже")
			}

			c.Set("user", user)
			c.Set("user_created", created)
			return next(c)
		}
	}
}

// AdminMiddleware rejects non-admins. Both the static config list and the
// dynamic one from settings count.
func AdminMiddleware(accounts *service.AccountService) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			if !accounts.IsAdmin(context.Background(), sender.ID) {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("non-admin attempted admin command")
				return c.Reply("❌ Недостаточно прав")
			}
			return next(c)
		}
	}
}

// LoggingMiddleware logs incoming updates.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			event := log.Debug()
			if sender := c.Sender(); sender != nil {
				event = event.Int64("user_id", sender.ID).Str("username", sender.Username)
			}
			if chat := c.Chat(); chat != nil {
				event = event.Int64("chat_id", chat.ID).Str("chat_type", string(chat.Type))
			}
			if callback := c.Callback(); callback != nil {
				event = event.Str("callback", strings.TrimPrefix(callback.Data, "\f"))
			} else {
				event = event.Str("text", c.Text())
			}
			event.Msg("update received")

			return next(c)
		}
	}
}

// RecoveryMiddleware recovers from handler panics so one bad update does
// not take the poller down.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Msg("recovered from panic in handler")
					_ = c.Send("❌ Внутренняя ошибка, попробуйте позже")
				}
			}()
			return next(c)
		}
	}
}

// optional maps the empty string onto a nil pointer.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
