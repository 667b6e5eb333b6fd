package types

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7
	MaxTemperature     = 2.0
)

var ErrEmptyPrompt = errors.New("prompt is required")

// GenerationRequest is the canonical text-generation request handed to the
// dispatcher. It is not mutated once built.
type GenerationRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// NewGenerationRequest applies defaults for absent options and validates the result.
func NewGenerationRequest(prompt string, maxTokens *int, temperature *float64) (*GenerationRequest, error) {
	req := &GenerationRequest{
		Prompt:      prompt,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
	if maxTokens != nil {
		req.MaxTokens = *maxTokens
	}
	if temperature != nil {
		req.Temperature = *temperature
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrEmptyPrompt
	}
	if r.MaxTokens <= 0 {
		return fmt.Errorf("maxTokens must be positive, got %d", r.MaxTokens)
	}
	if r.Temperature < 0 || r.Temperature > MaxTemperature {
		return fmt.Errorf("temperature must be between 0 and %.0f, got %g", MaxTemperature, r.Temperature)
	}
	return nil
}

// WithPrompt returns a copy of the request carrying a different prompt.
func (r *GenerationRequest) WithPrompt(prompt string) *GenerationRequest {
	cp := *r
	cp.Prompt = prompt
	return &cp
}
