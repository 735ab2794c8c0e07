package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider sends completions to the Anthropic Messages API
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider creates the provider with SDK retries disabled
func NewAnthropicProvider(opts Options) *AnthropicProvider {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" && opts.BaseURL != DefaultBaseURL {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(reqOpts...),
	}
}

// Provider returns the provider name
func (p *AnthropicProvider) Provider() string {
	return ProviderAnthropic
}

// Call sends the prompt as a single user message
func (p *AnthropicProvider) Call(ctx context.Context, request Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(request.Model),
		MaxTokens: int64(request.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(request.Prompt)),
		},
	}
	if request.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: request.SystemPrompt}}
	}
	if request.Temperature > 0 {
		params.Temperature = anthropic.Float(request.Temperature)
	}

	response, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range response.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(b.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: no text content returned", ErrMalformedResponse)
	}

	return text.String(), nil
}
