package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Alias1177/btcpipe/internal/apperr"
	"github.com/Alias1177/btcpipe/internal/model"
)

// Sender is the part of *tgbotapi.BotAPI the notifier uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier announces validated prices to a Telegram chat
type Notifier struct {
	bot    Sender
	chatID int64
	logger zerolog.Logger
}

// New authorizes the bot token and returns a notifier for chatID
func New(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, apperr.Config("initialize telegram bot", err)
	}
	n := NewWithSender(bot, chatID)
	n.logger.Info().Str("username", bot.Self.UserName).Msg("Authorized on Telegram")
	return n, nil
}

func NewWithSender(bot Sender, chatID int64) *Notifier {
	return &Notifier{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "telegram_notifier").Logger(),
	}
}

// Deliver sends one message describing env
func (n *Notifier) Deliver(ctx context.Context, env model.Envelope) error {
	if err := ctx.Err(); err != nil {
		return apperr.Transport("send telegram message", err)
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatMessage(env.Data))
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(msg); err != nil {
		return apperr.Transport("send telegram message", fmt.Errorf("chat %d: %w", n.chatID, err))
	}

	n.logger.Debug().Int64("chat_id", n.chatID).Msg("Price announced")
	return nil
}

// FormatMessage renders the price with two decimals when the amount is a
// decimal number, and verbatim otherwise. Record values are escaped so
// markup characters in them reach the chat as text.
func FormatMessage(rec model.PriceRecord) string {
	amount := rec.Amount
	if d, err := decimal.NewFromString(rec.Amount); err == nil {
		amount = d.StringFixed(2)
	}
	return fmt.Sprintf("%s spot price: %s %s",
		escape(rec.Base), escape(amount), escape(rec.Currency))
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
