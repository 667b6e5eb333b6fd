package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/af-corp/wayfinder/internal/config"
	"github.com/af-corp/wayfinder/internal/filter"
)

// Detection represents a detected secret in text.
type Detection struct {
	PatternName string // e.g. "AWS Access Key"
	Start       int    // byte offset
	End         int    // byte offset
}

// Scanner scans prompts for credentials using pre-compiled regex patterns.
type Scanner struct {
	patterns []Pattern
	cfg      func() config.SecretsFilterConfig
}

func NewScanner(cfg func() config.SecretsFilterConfig) *Scanner {
	return &Scanner{patterns: DefaultPatterns(), cfg: cfg}
}

func (s *Scanner) Name() string  { return "secrets" }
func (s *Scanner) Enabled() bool { return s.cfg().Enabled }

// Scan checks a single text string for secrets and returns all detections.
func (s *Scanner) Scan(text string) []Detection {
	var detections []Detection
	for _, p := range s.patterns {
		locs := p.Regex.FindAllStringIndex(text, -1)
		for _, loc := range locs {
			detections = append(detections, Detection{
				PatternName: p.Name,
				Start:       loc[0],
				End:         loc[1],
			})
		}
	}
	return detections
}

// ScanRequest blocks any prompt that contains a secret. The message names the
// kinds of secret found, never the matched text.
func (s *Scanner) ScanRequest(_ context.Context, req *filter.Request) filter.Result {
	detections := s.Scan(req.Generation.Prompt)
	if len(detections) == 0 {
		return filter.Result{Action: filter.ActionPass, FilterName: "secrets"}
	}

	seen := map[string]bool{}
	var kinds []string
	for _, d := range detections {
		if !seen[d.PatternName] {
			seen[d.PatternName] = true
			kinds = append(kinds, d.PatternName)
		}
	}
	return filter.Result{
		Action:     filter.ActionBlock,
		FilterName: "secrets",
		Message:    fmt.Sprintf("Request blocked: prompt contains credentials (%s)", strings.Join(kinds, ", ")),
		Detections: len(detections),
		Score:      1,
	}
}
