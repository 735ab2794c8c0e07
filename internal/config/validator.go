package config

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/harun/copydesk/pkg/completion"
)

var telegramTokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// Validator checks the shape of configured values. Its findings are
// warnings: a value that fails here may still work.
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case completion.ProviderOpenRouter:
		if !strings.HasPrefix(key, "sk-or-") {
			return fmt.Errorf("unexpected OpenRouter API key format (should start with sk-or-)")
		}
	case completion.ProviderAnthropic:
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("unexpected Anthropic API key format (should start with sk-ant-)")
		}
	case completion.ProviderOpenAI:
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("unexpected OpenAI API key format (should start with sk-)")
		}
	}

	return nil
}

// ValidateTelegramToken validates a Telegram bot token
func (v *Validator) ValidateTelegramToken(token string) error {
	if token == "" {
		return fmt.Errorf("telegram bot token cannot be empty")
	}

	// <bot_id>:<secret>, e.g. 123456789:ABCdefGHIjklMNOpqrsTUVwxyz
	if !telegramTokenPattern.MatchString(token) {
		return fmt.Errorf("invalid Telegram bot token format")
	}

	return nil
}

// ValidateModel checks a model identifier. OpenRouter IDs are vendor/name.
func (v *Validator) ValidateModel(model string, provider string) error {
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if strings.ContainsFunc(model, unicode.IsSpace) {
		return fmt.Errorf("model %q contains whitespace", model)
	}
	if provider == completion.ProviderOpenRouter && !strings.Contains(model, "/") {
		return fmt.Errorf("model %q is not an OpenRouter vendor/name identifier", model)
	}
	return nil
}

// ValidateTemperature validates temperature value
func (v *Validator) ValidateTemperature(temp float64) error {
	if temp <= 0 || temp > 2 {
		return fmt.Errorf("temperature must be above 0 and at most 2, got %g", temp)
	}
	return nil
}

// ValidateMaxTokens validates max tokens value
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", tokens)
	}
	if tokens > 200000 {
		return fmt.Errorf("max tokens too large (max 200000), got %d", tokens)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errs []error

	if cfg.Telegram.BotToken != "" {
		if err := v.ValidateTelegramToken(cfg.Telegram.BotToken); err != nil {
			errs = append(errs, err)
		}
	}
	if cfg.Completion.APIKey != "" {
		if err := v.ValidateAPIKey(cfg.Completion.APIKey, cfg.Completion.Provider); err != nil {
			errs = append(errs, err)
		}
	}

	for _, model := range cfg.Models.Draft {
		if err := v.ValidateModel(model, cfg.Completion.Provider); err != nil {
			errs = append(errs, fmt.Errorf("models.draft: %w", err))
		}
	}
	for _, model := range cfg.Models.Revise {
		if err := v.ValidateModel(model, cfg.Completion.Provider); err != nil {
			errs = append(errs, fmt.Errorf("models.revise: %w", err))
		}
	}

	if err := v.ValidateTemperature(cfg.Completion.Temperature); err != nil {
		errs = append(errs, err)
	}
	if err := v.ValidateMaxTokens(cfg.Completion.MaxTokens); err != nil {
		errs = append(errs, err)
	}
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if cfg.Queue.WarnAfterMs < 0 {
		errs = append(errs, fmt.Errorf("queue.warn_after_ms must be >= 0"))
	}

	return errs
}
