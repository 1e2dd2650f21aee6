package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"carousel/internal/generation"
	"carousel/internal/logging"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(c echo.Context) error {
	var req GenerateRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		message := "invalid request body"
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Kind:    KindInvalidRequest,
			Message: message,
			Lines:   []string{"Error: " + message},
		})
	}

	outcome, err := s.generate(c.Request().Context(), req.Template, req.Prompt)
	if err != nil {
		return c.JSON(StatusFor(generation.KindOf(err)), NewErrorResponse(err))
	}

	resp, err := NewGenerateResponse(outcome, req.IncludeRaw)
	if err != nil {
		s.logger.Warn("raw result encoding failed",
			logging.Error(err),
			logging.String(logging.FieldJobID, outcome.JobID),
		)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleStatus(c echo.Context) error {
	resp := StatusResponse{DefaultTemplate: s.generator.DefaultTemplate()}
	status := http.StatusOK
	if s.prober != nil {
		resp.EngineURL = s.prober.BaseURL()
		resp.Available = s.prober.CheckAvailability(c.Request().Context())
		if !resp.Available {
			status = http.StatusServiceUnavailable
		}
	}
	return c.JSON(status, resp)
}

func (s *Server) handleTemplates(c echo.Context) error {
	resp := TemplatesResponse{Templates: []string{}, Default: s.generator.DefaultTemplate()}
	if s.templates != nil {
		names, err := s.templates.List()
		if err != nil {
			message := "could not list templates"
			s.logger.Error(message, logging.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Kind:    string(generation.KindTemplateInvalid),
				Message: message,
				Lines:   []string{"Error: " + message},
			})
		}
		sort.Strings(names)
		resp.Templates = append(resp.Templates, names...)
	}
	return c.JSON(http.StatusOK, resp)
}

// generate bounds a single generation by the configured request timeout.
func (s *Server) generate(ctx context.Context, template, prompt string) (*generation.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.generator.Run(ctx, template, prompt)
}
