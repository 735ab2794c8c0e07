package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTelegramToken(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid", "123456789:ABCdefGHIjklMNOpqrsTUVwxyz", false},
		{"valid with dash and underscore", "1:a_b-c", false},
		{"empty", "", true},
		{"missing colon", "123456789ABCdef", true},
		{"non numeric id", "abc:def", true},
		{"spaces", "123: abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateTelegramToken(tt.token)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAPIKey(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateAPIKey("sk-or-v1-abc", "openrouter"))
	assert.Error(t, v.ValidateAPIKey("sk-abc", "openrouter"))
	assert.NoError(t, v.ValidateAPIKey("sk-ant-abc", "anthropic"))
	assert.Error(t, v.ValidateAPIKey("sk-or-abc", "anthropic"))
	assert.NoError(t, v.ValidateAPIKey("sk-abc", "openai"))
	assert.Error(t, v.ValidateAPIKey("", "openrouter"))
}

func TestValidateModel(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateModel("meta-llama/llama-3.3-70b-instruct:free", "openrouter"))
	assert.Error(t, v.ValidateModel("gpt-4", "openrouter"))
	assert.NoError(t, v.ValidateModel("claude-haiku-4", "anthropic"))
	assert.Error(t, v.ValidateModel("  ", "anthropic"))
	assert.Error(t, v.ValidateModel("a/b c/d", "openrouter"))
}

func TestValidateRanges(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateTemperature(0.7))
	assert.Error(t, v.ValidateTemperature(-0.1))
	assert.Error(t, v.ValidateTemperature(0))
	assert.Error(t, v.ValidateTemperature(2.5))

	assert.NoError(t, v.ValidateMaxTokens(700))
	assert.Error(t, v.ValidateMaxTokens(0))
	assert.Error(t, v.ValidateMaxTokens(300000))

	assert.NoError(t, v.ValidateLogLevel("debug"))
	assert.Error(t, v.ValidateLogLevel("verbose"))
}

func TestValidateConfig(t *testing.T) {
	v := NewValidator()

	t.Run("clean config", func(t *testing.T) {
		assert.Empty(t, v.ValidateConfig(validConfig()))
	})

	t.Run("collects every problem", func(t *testing.T) {
		cfg := validConfig()
		cfg.Telegram.BotToken = "not-a-token"
		cfg.Completion.APIKey = "plain-key"
		cfg.Models.Draft = []string{"no-vendor"}
		cfg.Logging.Level = "loud"
		cfg.Queue.WarnAfterMs = -1

		errs := v.ValidateConfig(cfg)
		assert.Len(t, errs, 5)
	})
}
