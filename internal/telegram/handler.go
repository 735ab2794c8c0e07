package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Handler implements free-text message handling for Telegram
type Handler struct {
	bot    *Bot
	logger zerolog.Logger

	// Callback for processing messages
	onMessage func(MessageContext) error
}

// MessageContext contains message metadata
type MessageContext struct {
	ChatID    int64
	MessageID int
	Text      string
}

// NewHandler creates a new message handler
func NewHandler(bot *Bot) *Handler {
	return &Handler{
		bot:    bot,
		logger: bot.logger.With().Str("module", "handler").Logger(),
	}
}

// HandleMessage processes incoming messages
func (h *Handler) HandleMessage(update tgbotapi.Update) error {
	if update.Message == nil {
		return nil
	}

	msg := update.Message

	ctx := MessageContext{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}

	event := h.logger.Debug().
		Int64("chat_id", ctx.ChatID).
		Int("chars", len(ctx.Text))
	if msg.From != nil {
		event = event.Int64("user_id", msg.From.ID)
	}
	event.Msg("Message received")

	// Call callback if set
	if h.onMessage != nil {
		return h.onMessage(ctx)
	}

	return nil
}

// SetOnMessage sets the message callback
func (h *Handler) SetOnMessage(callback func(MessageContext) error) {
	h.onMessage = callback
}

