package telegram

import (
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Commands dispatches bot commands to registered handlers
type Commands struct {
	bot          *Bot
	logger       zerolog.Logger
	handlers     map[string]CommandFunc
	descriptions map[string]string
}

// CommandFunc is a function that handles a command
type CommandFunc func(CommandContext) error

// CommandContext contains command metadata
type CommandContext struct {
	ChatID    int64
	MessageID int
	Command   string
}

// NewCommands creates a new command handler
func NewCommands(bot *Bot) *Commands {
	return &Commands{
		bot:          bot,
		logger:       bot.logger.With().Str("module", "commands").Logger(),
		handlers:     make(map[string]CommandFunc),
		descriptions: make(map[string]string),
	}
}

// HandleCommand processes incoming commands
func (c *Commands) HandleCommand(update tgbotapi.Update) error {
	if update.Message == nil || !update.Message.IsCommand() {
		return nil
	}

	msg := update.Message
	command := strings.ToLower(msg.Command())

	ctx := CommandContext{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Command:   command,
	}

	c.logger.Debug().
		Int64("chat_id", ctx.ChatID).
		Str("command", command).
		Msg("Command received")

	// Find and execute handler
	handler, exists := c.handlers[command]
	if !exists {
		return c.sendUnknownCommand(ctx)
	}

	return handler(ctx)
}

// Register registers a command handler. description is what Telegram shows
// in the command menu after PublishCommands.
func (c *Commands) Register(command, description string, handler CommandFunc) {
	c.handlers[command] = handler
	c.descriptions[command] = description
	c.logger.Debug().Str("command", command).Msg("Command registered")
}

// SetCommands sets the bot's command list in Telegram
func (c *Commands) SetCommands(commands []tgbotapi.BotCommand) error {
	cfg := tgbotapi.NewSetMyCommands(commands...)
	_, err := c.bot.api.Request(cfg)
	if err != nil {
		return fmt.Errorf("failed to set commands: %w", err)
	}

	c.logger.Info().Int("count", len(commands)).Msg("Bot commands updated")
	return nil
}

// PublishCommands sends every registered command that has a description to
// Telegram, in the given order. Commands missing from order follow
// alphabetically.
func (c *Commands) PublishCommands(order ...string) error {
	seen := make(map[string]bool, len(order))
	var list []tgbotapi.BotCommand

	add := func(command string) {
		desc := c.descriptions[command]
		if seen[command] || desc == "" {
			return
		}
		if _, ok := c.handlers[command]; !ok {
			return
		}
		seen[command] = true
		list = append(list, tgbotapi.BotCommand{Command: command, Description: desc})
	}

	for _, command := range order {
		add(command)
	}
	rest := c.GetRegisteredCommands()
	sort.Strings(rest)
	for _, command := range rest {
		add(command)
	}

	return c.SetCommands(list)
}

// sendUnknownCommand sends an unknown command response
func (c *Commands) sendUnknownCommand(ctx CommandContext) error {
	text := fmt.Sprintf("Unknown command: /%s", ctx.Command)
	return c.bot.SendMessageWithReply(ctx.ChatID, text, ctx.MessageID)
}

// GetRegisteredCommands returns all registered commands
func (c *Commands) GetRegisteredCommands() []string {
	commands := make([]string, 0, len(c.handlers))
	for cmd := range c.handlers {
		commands = append(commands, cmd)
	}
	return commands
}
