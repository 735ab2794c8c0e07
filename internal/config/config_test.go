package config

import (
	"testing"
	"time"

	"github.com/harun/copydesk/pkg/completion"
	"github.com/harun/copydesk/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Telegram.BotToken = "123456789:ABCdefGHIjklMNOpqrsTUVwxyz"
	cfg.Completion.APIKey = "sk-or-v1-0123456789abcdef"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, 60, cfg.Telegram.PollTimeout)
	assert.Equal(t, "openrouter", cfg.Completion.Provider)
	assert.Equal(t, "https://openrouter.ai/api/v1/", cfg.Completion.BaseURL)
	assert.Equal(t, 60, cfg.Completion.Timeout)
	assert.Equal(t, 0.7, cfg.Completion.Temperature)
	assert.Equal(t, 700, cfg.Completion.MaxTokens)
	assert.Equal(t, []string{
		"meta-llama/llama-3.3-70b-instruct:free",
		"nex-agi/deepseek-v3.1-nex-n1:free",
	}, cfg.Models.Draft)
	assert.Equal(t, []string{"mistralai/mistral-small-3.1-24b-instruct:free"}, cfg.Models.Revise)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Redaction)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"missing telegram token", func(c *Config) { c.Telegram.BotToken = "" }, "TELEGRAM_BOT_TOKEN"},
		{"missing api key", func(c *Config) { c.Completion.APIKey = "" }, "OPENROUTER_API_KEY"},
		{"unknown provider", func(c *Config) { c.Completion.Provider = "gemini" }, "completion.provider"},
		{"zero timeout", func(c *Config) { c.Completion.Timeout = 0 }, "completion.timeout"},
		{"zero temperature", func(c *Config) { c.Completion.Temperature = 0 }, "completion.temperature"},
		{"zero max tokens", func(c *Config) { c.Completion.MaxTokens = 0 }, "completion.max_tokens"},
		{"no draft models", func(c *Config) { c.Models.Draft = nil }, "models.draft"},
		{"no revise models", func(c *Config) { c.Models.Revise = []string{} }, "models.revise"},
		{"revise fallback", func(c *Config) { c.Models.Revise = []string{"rev/a", "rev/b"} }, "models.revise"},
		{"second draft fallback", func(c *Config) { c.Models.Draft = []string{"a/one", "b/two", "c/three"} }, "models.draft"},
		{"bad schedule", func(c *Config) { c.Maintenance.Schedule = "every so often" }, "maintenance.schedule"},
		{"space separated draft models", func(c *Config) { c.Models.Draft = []string{"a/one b/two"} }, "models.draft"},
		{"space separated revise models", func(c *Config) { c.Models.Revise = []string{"a/b c/d"} }, "models.revise"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.key, ce.Key)
			assert.True(t, IsConfigurationError(err))
		})
	}

	t.Run("supported providers", func(t *testing.T) {
		for _, provider := range []string{"openrouter", "openai", "anthropic"} {
			cfg := validConfig()
			cfg.Completion.Provider = provider
			assert.NoError(t, cfg.Validate(), provider)
		}
	})

	t.Run("unknown provider names every choice", func(t *testing.T) {
		cfg := validConfig()
		cfg.Completion.Provider = "gemini"

		var ce *ConfigurationError
		require.ErrorAs(t, cfg.Validate(), &ce)
		assert.Equal(t, "must be openrouter, openai or anthropic, got gemini", ce.Reason)
	})

	t.Run("token checked before api key", func(t *testing.T) {
		cfg := DefaultConfig()

		var ce *ConfigurationError
		require.ErrorAs(t, cfg.Validate(), &ce)
		assert.Equal(t, EnvTelegramToken, ce.Key)
	})
}

func TestCompletionOptions(t *testing.T) {
	cfg := validConfig()
	cfg.Completion.Timeout = 15

	opts := cfg.CompletionOptions()
	assert.Equal(t, completion.ProviderOpenRouter, opts.Provider)
	assert.Equal(t, cfg.Completion.APIKey, opts.APIKey)
	assert.Equal(t, 15*time.Second, opts.Timeout)
	assert.Equal(t, 0.7, opts.Temperature)
	assert.Equal(t, 700, opts.MaxTokens)
	assert.Equal(t, completion.SystemPrompt, opts.SystemPrompt)
}

func TestModelPolicy(t *testing.T) {
	cfg := validConfig()
	cfg.Models.Draft = []string{"a/one", "b/two"}

	policy, err := cfg.ModelPolicy()
	require.NoError(t, err)
	assert.Equal(t, []string{"a/one", "b/two"}, policy.Candidates(models.TaskDraft))
	assert.Equal(t, []string{models.DefaultRevise}, policy.Candidates(models.TaskRevise))
}

func TestModelPolicyRejectsExtraTiers(t *testing.T) {
	cfg := validConfig()
	cfg.Models.Revise = []string{"rev/a", "rev/b"}

	_, err := cfg.ModelPolicy()

	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "models.revise", ce.Key)
}

func TestConfigStringMasksSecrets(t *testing.T) {
	cfg := validConfig()

	out := cfg.String()
	assert.NotContains(t, out, cfg.Telegram.BotToken)
	assert.NotContains(t, out, cfg.Completion.APIKey)
	assert.Contains(t, out, "1234****")
	assert.Contains(t, out, `"provider": "openrouter"`)
}
