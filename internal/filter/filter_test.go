package filter

import (
	"context"
	"testing"

	"github.com/af-corp/wayfinder/internal/types"
)

type stubFilter struct {
	name    string
	enabled bool
	action  Action
	calls   int
}

func (s *stubFilter) Name() string  { return s.name }
func (s *stubFilter) Enabled() bool { return s.enabled }
func (s *stubFilter) ScanRequest(_ context.Context, _ *Request) Result {
	s.calls++
	return Result{Action: s.action, FilterName: s.name}
}

func testRequest() *Request {
	return &Request{
		Endpoint:   "ai/generate",
		ClientIP:   "10.0.0.1",
		Generation: &types.GenerationRequest{Prompt: "hi", MaxTokens: 10, Temperature: 0.7},
	}
}

func TestChain_AllPass(t *testing.T) {
	a := &stubFilter{name: "a", enabled: true, action: ActionPass}
	b := &stubFilter{name: "b", enabled: true, action: ActionFlag}

	results, blocked := NewChain(a, b).Run(context.Background(), testRequest())
	if blocked != nil {
		t.Fatalf("expected no block, got %+v", blocked)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestChain_StopsOnBlock(t *testing.T) {
	a := &stubFilter{name: "a", enabled: true, action: ActionBlock}
	b := &stubFilter{name: "b", enabled: true, action: ActionPass}

	results, blocked := NewChain(a, b).Run(context.Background(), testRequest())
	if blocked == nil || blocked.FilterName != "a" {
		t.Fatalf("expected block from a, got %+v", blocked)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
	if b.calls != 0 {
		t.Error("expected filters after a block to be skipped")
	}
}

func TestChain_SkipsDisabled(t *testing.T) {
	a := &stubFilter{name: "a", enabled: false, action: ActionBlock}

	results, blocked := NewChain(a).Run(context.Background(), testRequest())
	if blocked != nil || len(results) != 0 || a.calls != 0 {
		t.Errorf("expected disabled filter to be skipped, got results=%v blocked=%v", results, blocked)
	}
}
