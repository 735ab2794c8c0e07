package completion

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenRouterProvider talks to any OpenAI-compatible chat completions API,
// OpenRouter by default.
type OpenRouterProvider struct {
	client openai.Client
}

// NewOpenRouterProvider creates the provider. SDK retries are disabled so
// one call is one request.
func NewOpenRouterProvider(opts Options) *OpenRouterProvider {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if opts.AppTitle != "" {
		reqOpts = append(reqOpts, option.WithHeader("X-Title", opts.AppTitle))
	}

	return &OpenRouterProvider{
		client: openai.NewClient(reqOpts...),
	}
}

// Provider returns the provider name
func (p *OpenRouterProvider) Provider() string {
	return ProviderOpenRouter
}

// Call sends a system + user chat completion request
func (p *OpenRouterProvider) Call(ctx context.Context, request Request) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if request.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(request.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(request.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(request.Model),
		Messages: messages,
	}
	if request.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(request.MaxTokens))
	}
	if request.Temperature > 0 {
		params.Temperature = openai.Float(request.Temperature)
	}

	response, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}

	return response.Choices[0].Message.Content, nil
}
