package adapters

import (
	"context"
	"errors"

	"github.com/af-corp/wayfinder/internal/types"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("provider returned an empty response")

// Client is the single capability every language-model provider exposes:
// turn a prompt into text.
type Client interface {
	Name() types.ProviderID
	Generate(ctx context.Context, req *types.GenerationRequest) (string, error)
}

// Endpoint describes where a provider's OpenAI-compatible chat API lives and
// which model is used when the configuration names none.
type Endpoint struct {
	BaseURL      string
	DefaultModel string
}

var endpoints = map[types.ProviderID]Endpoint{
	types.ProviderOpenAI: {
		BaseURL:      "https://api.openai.com/v1",
		DefaultModel: "gpt-3.5-turbo",
	},
	types.ProviderGroq: {
		BaseURL:      "https://api.groq.com/openai/v1",
		DefaultModel: "llama-3.1-8b-instant",
	},
	types.ProviderGoogle: {
		BaseURL:      "https://generativelanguage.googleapis.com/v1beta/openai",
		DefaultModel: "gemini-1.5-flash",
	},
}

// EndpointFor returns the built-in endpoint of a supported provider.
func EndpointFor(p types.ProviderID) (Endpoint, bool) {
	e, ok := endpoints[p]
	return e, ok
}
