package daemon

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/copydesk/internal/config"
	"github.com/harun/copydesk/internal/logger"
	"github.com/harun/copydesk/internal/telegram"
	"github.com/harun/copydesk/pkg/models"
)

type sentReply struct {
	chatID  int64
	text    string
	replyTo int
}

// fakeReplier records replies and typing actions in order
type fakeReplier struct {
	mu      sync.Mutex
	replies []sentReply
	events  []string
}

func (f *fakeReplier) SendMessageWithReply(chatID int64, text string, replyTo int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, sentReply{chatID: chatID, text: text, replyTo: replyTo})
	f.events = append(f.events, "reply")
	return nil
}

func (f *fakeReplier) SendTyping(chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "typing")
	return nil
}

func (f *fakeReplier) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.replies))
	for _, r := range f.replies {
		out = append(out, r.text)
	}
	return out
}

func (f *fakeReplier) eventLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

// fakeCompleter answers every prompt, optionally via a hook
type fakeCompleter struct {
	calls atomic.Int32
	hook  func(ctx context.Context, prompt, model string) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt, model string) (string, error) {
	f.calls.Add(1)
	if f.hook != nil {
		return f.hook(ctx, prompt, model)
	}
	return "output of " + model, nil
}

// fakeTelegramAPI satisfies telegram.API without a network
type fakeTelegramAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	updates chan tgbotapi.Update
	calls   []tgbotapi.Chattable
	stopped bool
}

func newFakeTelegramAPI() *fakeTelegramAPI {
	return &fakeTelegramAPI{updates: make(chan tgbotapi.Update, 32)}
}

func (f *fakeTelegramAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeTelegramAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegramAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeTelegramAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.stopped = true
		close(f.updates)
	}
}

func (f *fakeTelegramAPI) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (f *fakeTelegramAPI) requests() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.calls...)
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Telegram.BotToken = "123456789:ABCdefGHIjklMNOpqrsTUVwxyz"
	cfg.Completion.APIKey = "sk-or-v1-test"
	return cfg
}

// useFakes swaps the network constructors for the duration of the test
func useFakes(t *testing.T, api *fakeTelegramAPI, completer models.Completer) {
	t.Helper()

	origBot, origCompleter := newTelegramBot, newCompleter
	newTelegramBot = func(cfg *config.TelegramConfig, log *logger.Logger) (*telegram.Bot, error) {
		return telegram.NewWithAPI(api, tgbotapi.User{ID: 1, UserName: "copydesk_bot"}, cfg, log.GetZerolog()), nil
	}
	newCompleter = func(cfg *config.Config, log *logger.Logger) (models.Completer, error) {
		return completer, nil
	}
	t.Cleanup(func() {
		newTelegramBot, newCompleter = origBot, origCompleter
	})
}

func commandUpdate(id int, chatID int64, command string) tgbotapi.Update {
	text := "/" + command
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: id,
			From:      &tgbotapi.User{ID: 99, UserName: "writer"},
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
			Text:      text,
			Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
		},
	}
}

func textUpdate(id int, chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: id,
			From:      &tgbotapi.User{ID: 99, UserName: "writer"},
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
			Text:      text,
		},
	}
}

func tgbotapiUser() tgbotapi.User {
	return tgbotapi.User{ID: 1, UserName: "copydesk_bot"}
}
