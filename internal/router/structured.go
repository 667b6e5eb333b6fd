package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/af-corp/wayfinder/internal/types"
)

// Generator produces text for a request. *Dispatcher implements it.
type Generator interface {
	Generate(ctx context.Context, req *types.GenerationRequest) (string, error)
}

// StructuredDecoder asks the providers for JSON and decodes the answer. The
// decoded shape is not checked against responseType.
type StructuredDecoder struct {
	gen Generator
}

func NewStructuredDecoder(gen Generator) *StructuredDecoder {
	return &StructuredDecoder{gen: gen}
}

// StructuredPrompt appends the JSON-only instruction to prompt.
func StructuredPrompt(prompt, responseType string) string {
	instruction := "Respond ONLY with valid JSON that matches the structure of the expected response type."
	if responseType = strings.TrimSpace(responseType); responseType != "" {
		instruction = fmt.Sprintf("Respond ONLY with valid JSON that matches the structure of the expected response type %q.", responseType)
	}
	return prompt + "\n\n" + instruction
}

// Generate returns the decoded JSON value as maps, slices, strings, float64s,
// bools or nil.
func (s *StructuredDecoder) Generate(ctx context.Context, req *types.GenerationRequest, responseType string) (any, error) {
	var out any
	if err := s.GenerateInto(ctx, req, responseType, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateInto decodes the answer into dst, which must be a pointer.
func (s *StructuredDecoder) GenerateInto(ctx context.Context, req *types.GenerationRequest, responseType string, dst any) error {
	raw, err := s.gen.Generate(ctx, req.WithPrompt(StructuredPrompt(req.Prompt, responseType)))
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), dst); err != nil {
		return &DecodeError{Raw: raw, Err: err}
	}
	return nil
}

// stripCodeFence removes a leading ```json or ``` marker and a trailing ```
// marker around model output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimPrefix(s, "JSON")
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
