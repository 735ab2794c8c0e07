package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harun/copydesk/internal/observability"
	"github.com/harun/copydesk/internal/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"

	DefaultBaseURL     = "https://openrouter.ai/api/v1/"
	DefaultTimeout     = 60 * time.Second
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 700

	// SystemPrompt sets the copywriter persona for every request
	SystemPrompt = "You are a professional copywriter. Write clear, benefit-focused copy. No hype."
)

// Request is a single chat-style completion request
type Request struct {
	Model        string
	SystemPrompt string
	Prompt       string
	Temperature  float64
	MaxTokens    int
}

// Provider performs the API call for one vendor
type Provider interface {
	// Call sends the request and returns the first generated message text
	Call(ctx context.Context, request Request) (string, error)

	// Provider returns the provider name
	Provider() string
}

// Options configures a Client
type Options struct {
	Provider     string
	APIKey       string
	BaseURL      string // empty uses the provider's default
	Timeout      time.Duration
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	AppTitle     string // sent to OpenRouter as X-Title
}

// DefaultOptions returns OpenRouter options with the fixed generation parameters
func DefaultOptions(apiKey string) Options {
	return Options{
		Provider:     ProviderOpenRouter,
		APIKey:       apiKey,
		BaseURL:      DefaultBaseURL,
		Timeout:      DefaultTimeout,
		Temperature:  DefaultTemperature,
		MaxTokens:    DefaultMaxTokens,
		SystemPrompt: SystemPrompt,
		AppTitle:     "copydesk",
	}
}

func (o Options) withDefaults() Options {
	if o.Provider == "" {
		o.Provider = ProviderOpenRouter
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	// Zero means unset; config rejects an explicit zero
	if o.Temperature <= 0 {
		o.Temperature = DefaultTemperature
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.SystemPrompt == "" {
		o.SystemPrompt = SystemPrompt
	}
	return o
}

// NewProvider creates the provider named in opts
func NewProvider(opts Options) (Provider, error) {
	switch opts.Provider {
	case ProviderOpenRouter, ProviderOpenAI:
		return NewOpenRouterProvider(opts), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(opts), nil
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", opts.Provider)
	}
}

// Client turns a prompt and model into generated text
type Client struct {
	provider Provider
	opts     Options
	logger   zerolog.Logger
}

// NewClient creates a client for the provider configured in opts
func NewClient(opts Options, logger zerolog.Logger) (*Client, error) {
	opts = opts.withDefaults()
	if opts.APIKey == "" {
		return nil, fmt.Errorf("completion API key is required")
	}

	provider, err := NewProvider(opts)
	if err != nil {
		return nil, err
	}
	return NewClientWithProvider(provider, opts, logger), nil
}

// NewClientWithProvider wraps an existing provider
func NewClientWithProvider(provider Provider, opts Options, logger zerolog.Logger) *Client {
	return &Client{
		provider: provider,
		opts:     opts.withDefaults(),
		logger:   logger.With().Str("component", "completion").Str("provider", provider.Provider()).Logger(),
	}
}

// Provider returns the name of the underlying provider
func (c *Client) Provider() string {
	return c.provider.Provider()
}

// Complete sends the system instruction and prompt to model and returns the
// generated text.
func (c *Client) Complete(ctx context.Context, prompt, model string) (string, error) {
	providerName := c.provider.Provider()
	if model == "" {
		return "", &CompletionError{Provider: providerName, Cause: errors.New("model is required")}
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	ctx, span := tracing.StartSpan(
		ctx,
		"copydesk.completion",
		"completion.complete",
		attribute.String("provider", providerName),
		attribute.String("model", model),
	)
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, c.logger).With().Str("model", model).Logger()

	start := time.Now()
	text, err := c.provider.Call(ctx, Request{
		Model:        model,
		SystemPrompt: c.opts.SystemPrompt,
		Prompt:       prompt,
		Temperature:  c.opts.Temperature,
		MaxTokens:    c.opts.MaxTokens,
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("%w: empty message content", ErrMalformedResponse)
	}
	duration := time.Since(start)

	observability.RecordCompletion(providerName, model, duration, err == nil)

	if err != nil {
		cerr := &CompletionError{
			Provider:   providerName,
			Model:      model,
			StatusCode: statusCodeOf(err),
			Cause:      err,
		}
		span.RecordError(cerr)
		span.SetStatus(codes.Error, cerr.Error())
		logger.Warn().
			Err(err).
			Int("status", cerr.StatusCode).
			Dur("duration", duration).
			Msg("Completion failed")
		return "", cerr
	}

	logger.Debug().
		Dur("duration", duration).
		Int("chars", len(text)).
		Msg("Completion succeeded")

	return text, nil
}
