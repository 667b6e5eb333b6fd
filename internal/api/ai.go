package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/af-corp/wayfinder/internal/filter"
	"github.com/af-corp/wayfinder/internal/httputil"
	"github.com/af-corp/wayfinder/internal/ratelimit"
	"github.com/af-corp/wayfinder/internal/router"
	"github.com/af-corp/wayfinder/internal/types"
)

type generateRequest struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   *int     `json:"maxTokens"`
	Temperature *float64 `json:"temperature"`
}

type structuredRequest struct {
	generateRequest
	ResponseType string `json:"responseType"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// Generate handles POST /ai/generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)

	var body generateRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteBadRequestError(w, reqID, err.Error())
		return
	}
	genReq, err := types.NewGenerationRequest(body.Prompt, body.MaxTokens, body.Temperature)
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, err.Error())
		return
	}
	if !h.guard(w, r, reqID, "ai/generate", genReq) {
		return
	}

	text, err := h.Generator.Generate(r.Context(), genReq)
	if err != nil {
		h.logGenerationError(reqID, "ai/generate", err)
		httputil.WriteInternalError(w, reqID, "Failed to generate text")
		return
	}
	httputil.WriteSuccess(w, generateResponse{Text: text})
}

// StructuredResponse handles POST /ai/structured-response.
func (h *Handler) StructuredResponse(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)

	var body structuredRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteBadRequestError(w, reqID, err.Error())
		return
	}
	if strings.TrimSpace(body.ResponseType) == "" {
		httputil.WriteBadRequestError(w, reqID, "responseType is required")
		return
	}
	genReq, err := types.NewGenerationRequest(body.Prompt, body.MaxTokens, body.Temperature)
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, err.Error())
		return
	}
	if !h.guard(w, r, reqID, "ai/structured-response", genReq) {
		return
	}

	out, err := h.Structured.Generate(r.Context(), genReq, body.ResponseType)
	if err != nil {
		h.logGenerationError(reqID, "ai/structured-response", err)
		msg := "Failed to generate structured response"
		var decodeErr *router.DecodeError
		if errors.As(err, &decodeErr) {
			msg = "Model response was not valid JSON"
		}
		httputil.WriteInternalError(w, reqID, msg)
		return
	}
	httputil.WriteSuccess(w, out)
}

// ProviderStatus handles GET /ai/providers.
func (h *Handler) ProviderStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, h.Providers.Health())
}

// guard runs the prompt filters and writes a 451 when one blocks. It reports
// whether the request may continue.
func (h *Handler) guard(w http.ResponseWriter, r *http.Request, reqID, endpoint string, genReq *types.GenerationRequest) bool {
	if h.Guard == nil {
		return true
	}
	results, blocked := h.Guard.Run(r.Context(), &filter.Request{
		Endpoint:   endpoint,
		ClientIP:   ratelimit.ClientKey(r),
		Generation: genReq,
	})
	if blocked != nil {
		h.Logger.Warn("prompt blocked by filter",
			"request_id", reqID,
			"endpoint", endpoint,
			"filter", blocked.FilterName,
			"detections", blocked.Detections,
			"score", blocked.Score,
		)
		if h.Metrics != nil {
			h.Metrics.RecordFilterAction(blocked.FilterName, string(blocked.Action))
		}
		httputil.WriteContentBlockedError(w, reqID, blocked.Message)
		return false
	}
	for _, fr := range results {
		if fr.Action == filter.ActionFlag {
			h.Logger.Info("prompt flagged by filter",
				"request_id", reqID,
				"endpoint", endpoint,
				"filter", fr.FilterName,
				"score", fr.Score,
			)
			if h.Metrics != nil {
				h.Metrics.RecordFilterAction(fr.FilterName, string(filter.ActionFlag))
			}
		}
	}
	return true
}

func (h *Handler) logGenerationError(reqID, endpoint string, err error) {
	attrs := []any{"request_id", reqID, "endpoint", endpoint, "error", err}
	var all *router.AllProvidersFailedError
	if errors.As(err, &all) {
		attrs = append(attrs, "providers", all.Providers())
	}
	h.Logger.Error("text generation failed", attrs...)
}
