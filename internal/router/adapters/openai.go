package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/af-corp/wayfinder/internal/config"
	"github.com/af-corp/wayfinder/internal/types"
)

// ChatAdapter talks to any OpenAI-compatible chat completions API. OpenAI,
// Groq and Google (through its OpenAI compatibility layer) all go through it.
type ChatAdapter struct {
	provider types.ProviderID
	model    string
	client   *openai.Client
}

// NewChatAdapter binds a client to cfg's provider endpoint and key. The base
// URL and model fall back to the provider's built-in endpoint.
func NewChatAdapter(cfg config.ProviderConfig, httpClient *http.Client) (*ChatAdapter, error) {
	endpoint, ok := EndpointFor(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = endpoint.BaseURL
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}

	model := cfg.Model
	if model == "" {
		model = endpoint.DefaultModel
	}

	return &ChatAdapter{
		provider: cfg.Provider,
		model:    model,
		client:   openai.NewClientWithConfig(clientConfig),
	}, nil
}

func (a *ChatAdapter) Name() types.ProviderID { return a.provider }

// Model returns the model id sent with every request.
func (a *ChatAdapter) Model() string { return a.model }

// Generate sends req as a single user message and returns the first choice.
func (a *ChatAdapter) Generate(ctx context.Context, req *types.GenerationRequest) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%s returned status %d: %w", a.provider, apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("%s chat completion: %w", a.provider, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", a.provider, ErrEmptyResponse)
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", a.provider, ErrEmptyResponse)
	}
	return text, nil
}
