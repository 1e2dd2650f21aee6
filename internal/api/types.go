package api

import (
	"encoding/json"
	"net/http"

	"carousel/internal/generation"
)

// KindInvalidRequest reports a request body that could not be decoded.
const KindInvalidRequest = "InvalidRequest"

// StatusClientClosedRequest is returned when the caller's context ended first.
const StatusClientClosedRequest = 499

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Prompt     string `json:"prompt"`
	Template   string `json:"template,omitempty"`
	IncludeRaw bool   `json:"includeRaw,omitempty"`
}

// GenerateResponse describes a successful generation.
type GenerateResponse struct {
	Lines      []string        `json:"lines"`
	JobID      string          `json:"jobId"`
	Template   string          `json:"template"`
	Probe      string          `json:"probe"`
	DurationMS int64           `json:"durationMs"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

// ErrorResponse describes a failed request.
type ErrorResponse struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Lines   []string `json:"lines"`
}

// StatusResponse reports engine availability.
type StatusResponse struct {
	Available       bool   `json:"available"`
	EngineURL       string `json:"engineUrl,omitempty"`
	DefaultTemplate string `json:"defaultTemplate"`
}

// TemplatesResponse lists template names.
type TemplatesResponse struct {
	Templates []string `json:"templates"`
	Default   string   `json:"default"`
}

// StatusFor maps a generation kind to the HTTP status reported to callers.
func StatusFor(kind generation.Kind) int {
	switch kind {
	case generation.KindInvalidPrompt:
		return http.StatusBadRequest
	case generation.KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case generation.KindTemplateNotFound:
		return http.StatusNotFound
	case generation.KindTemplateInvalid:
		return http.StatusInternalServerError
	case generation.KindTransportError, generation.KindNetworkError, generation.KindSubmissionRejected:
		return http.StatusBadGateway
	case generation.KindResultUnavailable:
		return http.StatusGatewayTimeout
	case generation.KindCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse describes err the way every caller surface reports it.
func NewErrorResponse(err error) ErrorResponse {
	message := err.Error()
	if genErr, ok := generation.AsError(err); ok {
		message = genErr.Message
	}
	return ErrorResponse{
		Kind:    string(generation.KindOf(err)),
		Message: message,
		Lines:   generation.Lines(nil, err),
	}
}

// NewGenerateResponse describes a successful outcome, attaching the engine's
// raw result document when includeRaw is set.
func NewGenerateResponse(outcome *generation.Outcome, includeRaw bool) (GenerateResponse, error) {
	resp := GenerateResponse{
		Lines:      outcome.Lines,
		JobID:      outcome.JobID,
		Template:   outcome.Template,
		Probe:      outcome.Probe,
		DurationMS: outcome.Duration.Milliseconds(),
	}
	if !includeRaw {
		return resp, nil
	}
	raw, err := json.Marshal(outcome.Document)
	if err != nil {
		return resp, err
	}
	resp.Raw = raw
	return resp, nil
}
