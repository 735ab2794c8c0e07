package telegram

import (
	"errors"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/copydesk/internal/config"
	"github.com/rs/zerolog"
)

// fakeAPI records everything the bot sends
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	stopped  bool
	sendErr  error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.stopped = true
		close(f.updates)
	}
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg)
		}
	}
	return out
}

func (f *fakeAPI) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

var errSendFailed = errors.New("send failed")

func createTestBot(t *testing.T) (*Bot, *fakeAPI) {
	t.Helper()

	api := newFakeAPI()
	bot := NewWithAPI(api, tgbotapi.User{UserName: "testbot", ID: 123456789}, &config.TelegramConfig{PollTimeout: 1}, zerolog.Nop())
	return bot, api
}

func commandUpdate(chatID int64, text string, length int) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 7,
			From:      &tgbotapi.User{ID: 12345, UserName: "testuser"},
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
			Text:      text,
			Date:      1234567890,
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: length},
			},
		},
	}
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 2,
		Message: &tgbotapi.Message{
			MessageID: 8,
			From:      &tgbotapi.User{ID: 12345, UserName: "testuser"},
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
			Text:      text,
			Date:      1234567890,
		},
	}
}
