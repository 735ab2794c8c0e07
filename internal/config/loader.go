package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment variables read for the two secrets
const (
	EnvTelegramToken = "TELEGRAM_BOT_TOKEN"
	EnvOpenRouterKey = "OPENROUTER_API_KEY"

	envPrefix = "COPYDESK"
)

// Keys that may be overridden with COPYDESK_<SECTION>_<KEY>. The model
// lists take comma-separated IDs, e.g. COPYDESK_MODELS_DRAFT="a/one,b/two".
var envKeys = []string{
	"telegram.poll_timeout",
	"telegram.debug",
	"completion.provider",
	"completion.base_url",
	"completion.timeout",
	"completion.temperature",
	"completion.max_tokens",
	"models.draft",
	"models.revise",
	"logging.level",
	"logging.file",
	"logging.pretty",
	"logging.redaction",
	"metrics.addr",
	"queue.warn_after_ms",
	"maintenance.schedule",
	"tracing.enabled",
}

// Loader handles configuration loading
type Loader struct {
	configPath string
	envFile    string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		envFile:    ".env",
	}
}

// WithEnvFile sets the dotenv file read before the environment; empty skips it
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

// Load reads the dotenv file, the JSON config file and the environment, in
// increasing precedence. A missing config or dotenv file is not an error.
func (l *Loader) Load() (*Config, error) {
	if l.envFile != "" {
		// godotenv never overrides variables that are already set
		if err := godotenv.Load(l.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("telegram.bot_token", EnvTelegramToken, envPrefix+"_TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("completion.api_key", EnvOpenRouterKey, envPrefix+"_COMPLETION_API_KEY")
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	configPath := l.GetConfigPath()
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := ValidateFile(data); err != nil {
				return nil, err
			}
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Keys that only exist in the environment are read directly
	if token := v.GetString("telegram.bot_token"); token != "" {
		cfg.Telegram.BotToken = token
	}
	if key := v.GetString("completion.api_key"); key != "" {
		cfg.Completion.APIKey = key
	}

	cfg.Telegram.BotToken = strings.TrimSpace(cfg.Telegram.BotToken)
	cfg.Completion.APIKey = strings.TrimSpace(cfg.Completion.APIKey)

	return cfg, nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".copydesk", "copydesk.json")
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}

// LoadAndValidate loads the config and returns a *ConfigurationError when a
// required setting is missing.
func LoadAndValidate(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
