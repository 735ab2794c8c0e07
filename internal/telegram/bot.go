package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/copydesk/internal/config"
	"github.com/harun/copydesk/internal/logger"
	"github.com/rs/zerolog"
)

// API is the part of the Telegram Bot API the bot uses. *tgbotapi.BotAPI
// implements it.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot represents a Telegram bot instance
type Bot struct {
	api    API
	self   tgbotapi.User
	config *config.TelegramConfig
	logger zerolog.Logger

	// Handlers
	messageHandler MessageHandler
	commandHandler CommandHandler

	// State
	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// MessageHandler handles incoming messages
type MessageHandler interface {
	HandleMessage(update tgbotapi.Update) error
}

// CommandHandler handles bot commands
type CommandHandler interface {
	HandleCommand(update tgbotapi.Update) error
}

// New creates a new Telegram bot instance
func New(cfg *config.TelegramConfig, log *logger.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram config is required")
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	// Create bot API instance
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	api.Debug = cfg.Debug

	bot := NewWithAPI(api, api.Self, cfg, log.GetZerolog())

	// Log bot info
	bot.logger.Info().
		Str("username", api.Self.UserName).
		Int64("id", api.Self.ID).
		Msg("Telegram bot authenticated")

	return bot, nil
}

// NewWithAPI creates a bot around an existing API client
func NewWithAPI(api API, self tgbotapi.User, cfg *config.TelegramConfig, log zerolog.Logger) *Bot {
	if cfg == nil {
		cfg = &config.TelegramConfig{}
	}
	return &Bot{
		api:    api,
		self:   self,
		config: cfg,
		logger: log.With().Str("component", "telegram").Logger(),
	}
}

// Start begins long polling and processes updates until ctx is cancelled
// or Stop is called.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return fmt.Errorf("bot is already running")
	}

	b.logger.Info().Msg("Starting Telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.config.PollTimeout
	if u.Timeout <= 0 {
		u.Timeout = 60
	}

	updates := b.api.GetUpdatesChan(u)
	b.running = true
	b.stop = make(chan struct{})
	b.done = make(chan struct{})

	go b.processUpdates(ctx, updates, b.stop, b.done)

	b.logger.Info().Str("username", b.self.UserName).Msg("Telegram bot started")

	return nil
}

// Stop stops polling and waits for the update loop to exit
func (b *Bot) Stop() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return fmt.Errorf("bot is not running")
	}
	b.running = false
	close(b.stop)
	done := b.done
	b.mu.Unlock()

	b.logger.Info().Msg("Stopping Telegram bot")

	b.api.StopReceivingUpdates()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		b.logger.Warn().Msg("Update loop did not exit in time")
	}

	b.logger.Info().Msg("Telegram bot stopped")

	return nil
}

// processUpdates hands updates to HandleUpdate one at a time, in arrival order
func (b *Bot) processUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel, stop, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := b.HandleUpdate(update); err != nil {
				b.logger.Error().
					Err(err).
					Int("update_id", update.UpdateID).
					Msg("Failed to handle update")
			}
		}
	}
}

// HandleUpdate routes an update to the appropriate handler
func (b *Bot) HandleUpdate(update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil
	}

	if msg.IsCommand() {
		if b.commandHandler != nil {
			return b.commandHandler.HandleCommand(update)
		}
		return nil
	}

	// Only plain text feeds the workflow
	if b.hasMedia(msg) || msg.Text == "" {
		b.logger.Debug().
			Int64("chat_id", msg.Chat.ID).
			Msg("Ignoring non-text message")
		return nil
	}

	if b.messageHandler != nil {
		return b.messageHandler.HandleMessage(update)
	}

	return nil
}

// hasMedia checks if a message contains media
func (b *Bot) hasMedia(msg *tgbotapi.Message) bool {
	return msg.Photo != nil ||
		msg.Video != nil ||
		msg.Audio != nil ||
		msg.Document != nil ||
		msg.Voice != nil ||
		msg.Sticker != nil
}

// SendMessageWithReply sends a text message as a reply
func (b *Bot) SendMessageWithReply(chatID int64, text string, replyToMessageID int) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyToMessageID

	_, err := b.api.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	b.logger.Debug().
		Int64("chat_id", chatID).
		Int("reply_to", replyToMessageID).
		Msg("Reply sent")

	return nil
}

// SendTyping shows the typing indicator in a chat
func (b *Bot) SendTyping(chatID int64) error {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := b.api.Request(action); err != nil {
		return fmt.Errorf("failed to send typing action: %w", err)
	}
	return nil
}

// SetMessageHandler sets the message handler
func (b *Bot) SetMessageHandler(handler MessageHandler) {
	b.messageHandler = handler
}

// SetCommandHandler sets the command handler
func (b *Bot) SetCommandHandler(handler CommandHandler) {
	b.commandHandler = handler
}

// IsRunning returns whether the bot is running
func (b *Bot) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// ValidateToken validates a bot token by attempting to authenticate
func ValidateToken(token string) error {
	if token == "" {
		return fmt.Errorf("bot token is empty")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("invalid bot token: %w", err)
	}

	if api.Self.UserName == "" {
		return fmt.Errorf("failed to get bot info")
	}

	return nil
}
