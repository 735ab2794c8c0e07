package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/harun/copydesk/pkg/completion"
	"github.com/harun/copydesk/pkg/models"
	"github.com/robfig/cron/v3"
)

// Config represents the copydesk configuration
type Config struct {
	// Telegram
	Telegram TelegramConfig `json:"telegram" mapstructure:"telegram"`

	// Completion API
	Completion CompletionConfig `json:"completion" mapstructure:"completion"`

	// Models per workflow task
	Models ModelsConfig `json:"models" mapstructure:"models"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Per-chat command queue
	Queue QueueConfig `json:"queue" mapstructure:"queue"`

	// Periodic maintenance
	Maintenance MaintenanceConfig `json:"maintenance" mapstructure:"maintenance"`

	// Tracing
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken    string `json:"bot_token" mapstructure:"bot_token"`
	PollTimeout int    `json:"poll_timeout" mapstructure:"poll_timeout"` // seconds
	Debug       bool   `json:"debug" mapstructure:"debug"`
}

// CompletionConfig holds completion API settings
type CompletionConfig struct {
	Provider    string  `json:"provider" mapstructure:"provider"` // openrouter, anthropic
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	BaseURL     string  `json:"base_url" mapstructure:"base_url"`
	Timeout     int     `json:"timeout" mapstructure:"timeout"` // seconds
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
	AppTitle    string  `json:"app_title" mapstructure:"app_title"`
}

// ModelsConfig lists candidate models per task, tried in order
type ModelsConfig struct {
	Draft  []string `json:"draft" mapstructure:"draft"`
	Revise []string `json:"revise" mapstructure:"revise"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig holds the Prometheus endpoint address; empty disables it
type MetricsConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// QueueConfig holds command queue settings
type QueueConfig struct {
	WarnAfterMs int `json:"warn_after_ms" mapstructure:"warn_after_ms"`
}

// MaintenanceConfig holds the maintenance schedule, a cron expression or
// descriptor such as "@every 30s"
type MaintenanceConfig struct {
	Schedule string `json:"schedule" mapstructure:"schedule"`
}

// DefaultMaintenanceSchedule is how often queue and session stats are refreshed
const DefaultMaintenanceSchedule = "@every 30s"

// TracingConfig controls the OpenTelemetry tracer provider
type TracingConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"service_name" mapstructure:"service_name"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			PollTimeout: 60,
		},
		Completion: CompletionConfig{
			Provider:    completion.ProviderOpenRouter,
			BaseURL:     completion.DefaultBaseURL,
			Timeout:     int(completion.DefaultTimeout / time.Second),
			Temperature: completion.DefaultTemperature,
			MaxTokens:   completion.DefaultMaxTokens,
			AppTitle:    "copydesk",
		},
		Models: ModelsConfig{
			Draft:  []string{models.DefaultDraftPrimary, models.DefaultDraftFallback},
			Revise: []string{models.DefaultRevise},
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			Redaction: true,
		},
		Queue: QueueConfig{
			WarnAfterMs: 90000,
		},
		Maintenance: MaintenanceConfig{
			Schedule: DefaultMaintenanceSchedule,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "copydesk",
		},
	}
}

// CompletionOptions converts the completion section into client options
func (c *Config) CompletionOptions() completion.Options {
	return completion.Options{
		Provider:     c.Completion.Provider,
		APIKey:       c.Completion.APIKey,
		BaseURL:      c.Completion.BaseURL,
		Timeout:      time.Duration(c.Completion.Timeout) * time.Second,
		Temperature:  c.Completion.Temperature,
		MaxTokens:    c.Completion.MaxTokens,
		SystemPrompt: completion.SystemPrompt,
		AppTitle:     c.Completion.AppTitle,
	}
}

// ModelPolicy builds the model selection policy from the models section
func (c *Config) ModelPolicy() (*models.Policy, error) {
	policy, err := models.NewPolicy(map[models.Task][]string{
		models.TaskDraft:  c.Models.Draft,
		models.TaskRevise: c.Models.Revise,
	})
	var tooMany *models.TooManyModelsError
	if errors.As(err, &tooMany) {
		return nil, &ConfigurationError{Key: "models." + string(tooMany.Task), Reason: tooMany.Error()}
	}
	return policy, err
}

// String returns a JSON representation of the config with secrets masked
func (c *Config) String() string {
	masked := *c
	masked.Telegram.BotToken = mask(c.Telegram.BotToken)
	masked.Completion.APIKey = mask(c.Completion.APIKey)
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}

// Validate checks that the configuration can run the bot
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return &ConfigurationError{Key: EnvTelegramToken, Reason: "telegram bot token is required"}
	}
	if c.Completion.APIKey == "" {
		return &ConfigurationError{Key: EnvOpenRouterKey, Reason: "completion API key is required"}
	}

	switch c.Completion.Provider {
	case completion.ProviderOpenRouter, completion.ProviderOpenAI, completion.ProviderAnthropic:
	default:
		return &ConfigurationError{Key: "completion.provider", Reason: "must be openrouter, openai or anthropic, got " + c.Completion.Provider}
	}

	if c.Completion.Timeout <= 0 {
		return &ConfigurationError{Key: "completion.timeout", Reason: "must be positive"}
	}
	// A zero temperature would be replaced by the client default
	if c.Completion.Temperature <= 0 || c.Completion.Temperature > 2 {
		return &ConfigurationError{Key: "completion.temperature", Reason: "must be above 0 and at most 2"}
	}
	if c.Completion.MaxTokens <= 0 {
		return &ConfigurationError{Key: "completion.max_tokens", Reason: "must be positive"}
	}
	if len(c.Models.Draft) == 0 {
		return &ConfigurationError{Key: "models.draft", Reason: "at least one model is required"}
	}
	if len(c.Models.Revise) == 0 {
		return &ConfigurationError{Key: "models.revise", Reason: "at least one model is required"}
	}
	for _, list := range []struct {
		key    string
		models []string
	}{
		{"models.draft", c.Models.Draft},
		{"models.revise", c.Models.Revise},
	} {
		for _, model := range list.models {
			// Lists from the environment are split on commas only
			if strings.ContainsFunc(strings.TrimSpace(model), unicode.IsSpace) {
				return &ConfigurationError{Key: list.key, Reason: fmt.Sprintf("model %q contains whitespace; separate models with commas", model)}
			}
		}
	}
	if _, err := c.ModelPolicy(); err != nil {
		return err
	}
	if c.Maintenance.Schedule != "" {
		if _, err := cron.ParseStandard(c.Maintenance.Schedule); err != nil {
			return &ConfigurationError{Key: "maintenance.schedule", Reason: err.Error()}
		}
	}

	return nil
}
