package comfyui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"carousel/internal/config"
	"carousel/internal/logging"
	"carousel/internal/services"
	"carousel/internal/workflow"
)

const (
	defaultBaseURL           = "http://127.0.0.1:8188"
	defaultHTTPTimeout       = 30 * time.Second
	defaultTransportAttempts = 3
	defaultTransportDelay    = 1 * time.Second
	defaultPollAttempts      = 5
	defaultPollDelay         = 1 * time.Second
)

// Config captures the runtime settings required to talk to the engine.
type Config struct {
	BaseURL string
	// Timeout bounds each HTTP request; defaultHTTPTimeout when zero.
	Timeout time.Duration
	// ClientID identifies this client to the engine; a random UUID is used
	// when empty.
	ClientID string
}

// Client talks to a ComfyUI-style execution engine. It carries no per-job
// state and is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	transportAttempts int
	transportDelay    time.Duration
	pollAttempts      int
	pollDelay         time.Duration
	sleeper           func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTransportRetry overrides how often a single request is retried after a
// network failure (defaults to 3 attempts, 1s apart).
func WithTransportRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.transportAttempts = attempts
		c.transportDelay = delay
	}
}

// WithPollRetry overrides how often the result is polled (defaults to 5
// attempts, 1s apart).
func WithPollRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.pollAttempts = attempts
		c.pollDelay = delay
	}
}

// WithSleeper overrides how poll sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithLogger attaches a logger; the client logs under the comfyui component.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs an engine client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	client := &Client{
		cfg: Config{
			BaseURL:  config.NormalizeBaseURL(cfg.BaseURL),
			Timeout:  timeout,
			ClientID: strings.TrimSpace(cfg.ClientID),
		},
		httpClient:        &http.Client{Timeout: timeout},
		transportAttempts: defaultTransportAttempts,
		transportDelay:    defaultTransportDelay,
		pollAttempts:      defaultPollAttempts,
		pollDelay:         defaultPollDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.ClientID == "" {
		client.cfg.ClientID = uuid.NewString()
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	client.logger = logging.NewComponentLogger(client.logger, "comfyui")
	return client
}

// NewFromConfig constructs a client from application configuration.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Client {
	return NewClient(
		Config{BaseURL: cfg.Engine.BaseURL, Timeout: cfg.EngineTimeout()},
		WithTransportRetry(cfg.Retry.TransportAttempts, cfg.TransportDelay()),
		WithPollRetry(cfg.Retry.PollAttempts, cfg.PollDelay()),
		WithLogger(logger),
	)
}

// BaseURL returns the normalized engine address.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// JobHandle identifies a queued job. It has no client-side state.
type JobHandle struct {
	ID         string
	Number     int64
	NodeErrors map[string]any
	ClientID   string
}

// CheckAvailability reports whether the engine answers its status endpoint
// with a 2xx response. Failures are logged, never returned.
func (c *Client) CheckAvailability(ctx context.Context) bool {
	logger := logging.WithContext(ctx, c.logger)
	endpoint, err := c.endpoint("system_stats")
	if err != nil {
		logger.Warn("engine availability check failed", logging.Error(err))
		return false
	}
	if _, err := c.do(ctx, "probe", http.MethodGet, endpoint, nil); err != nil {
		logger.Warn("engine unavailable",
			logging.String("base_url", c.cfg.BaseURL),
			logging.Error(err),
			logging.String(logging.FieldEventType, "engine_unavailable"),
		)
		return false
	}
	logger.Debug("engine available", logging.String("base_url", c.cfg.BaseURL))
	return true
}

type submitRequest struct {
	Prompt   map[string]any `json:"prompt"`
	ClientID string         `json:"client_id"`
}

type submitResponse struct {
	PromptID   string         `json:"prompt_id"`
	Number     json.Number    `json:"number"`
	NodeErrors map[string]any `json:"node_errors"`
}

// Submit queues the flattened submission. A response without a prompt_id
// fails with services.ErrSubmissionRejected.
func (c *Client) Submit(ctx context.Context, sub *workflow.Submission) (JobHandle, error) {
	var handle JobHandle
	if sub == nil {
		return handle, services.Wrap(services.ErrInvalidInput, "comfyui", "submit", "submission is nil", nil)
	}
	endpoint, err := c.endpoint("prompt")
	if err != nil {
		return handle, services.Wrap(services.ErrTransport, "comfyui", "submit", "build url", err)
	}
	encoded, err := json.Marshal(submitRequest{Prompt: sub.Flatten(), ClientID: c.cfg.ClientID})
	if err != nil {
		return handle, services.Wrap(services.ErrTemplateInvalid, "comfyui", "submit", "encode workflow", err)
	}

	resp, err := c.do(ctx, "submit", http.MethodPost, endpoint, encoded)
	if err != nil {
		return handle, err
	}

	var parsed submitResponse
	if err := json.Unmarshal(resp.body, &parsed); err != nil {
		return handle, services.Wrap(services.ErrSubmissionRejected, "comfyui", "submit", "decode response: "+snippet(resp.body), err)
	}
	if strings.TrimSpace(parsed.PromptID) == "" {
		return handle, services.Wrap(services.ErrSubmissionRejected, "comfyui", "submit", "response has no prompt_id: "+snippet(resp.body), nil)
	}

	handle = JobHandle{
		ID:         strings.TrimSpace(parsed.PromptID),
		NodeErrors: parsed.NodeErrors,
		ClientID:   c.cfg.ClientID,
	}
	if n, err := parsed.Number.Int64(); err == nil {
		handle.Number = n
	}
	logging.WithContext(services.WithJobID(ctx, handle.ID), c.logger).Info("workflow queued",
		logging.String(logging.FieldTemplate, sub.Template),
		logging.Int("nodes", len(sub.Nodes)),
		logging.Any("queue_number", handle.Number),
	)
	return handle, nil
}

// FetchResult polls the history endpoint for jobID. HTTP 404 and empty
// documents mean the result is not published yet and are retried up to the
// poll budget; any other response is returned as-is. Other errors surface
// immediately.
func (c *Client) FetchResult(ctx context.Context, jobID string) (Document, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return Document{}, services.Wrap(services.ErrInvalidInput, "comfyui", "fetch result", "job id required", nil)
	}
	endpoint, err := c.endpoint("history", jobID)
	if err != nil {
		return Document{}, services.Wrap(services.ErrTransport, "comfyui", "fetch result", "build url", err)
	}
	logger := logging.WithContext(services.WithJobID(ctx, jobID), c.logger)

	attempts := c.pollAttemptCount()
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.do(ctx, "fetch result", http.MethodGet, endpoint, nil)
		switch {
		case err == nil:
			doc := DecodeDocument(resp.body).unwrapJob(jobID)
			if !doc.Empty() {
				logger.Debug("result fetched",
					logging.Int("attempt", attempt),
					logging.String("document_kind", doc.Kind().String()),
				)
				return doc, nil
			}
			logger.Debug("result not ready", logging.Int("attempt", attempt), logging.String("reason", "empty document"))
		case isNotReady(err):
			logger.Debug("result not ready", logging.Int("attempt", attempt), logging.String("reason", "not found"))
		default:
			return Document{}, err
		}

		if attempt < attempts {
			if err := c.sleep(ctx, c.pollDelay); err != nil {
				return Document{}, fmt.Errorf("comfyui fetch result: %w", err)
			}
		}
	}

	logger.Warn("result unavailable",
		logging.Int("attempts", attempts),
		logging.String(logging.FieldEventType, "result_unavailable"),
	)
	return Document{}, services.Wrap(services.ErrResultUnavailable, "comfyui", "fetch result",
		fmt.Sprintf("job %s not ready after %d attempts", jobID, attempts), nil)
}

func isNotReady(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

func (c *Client) endpoint(segments ...string) (string, error) {
	return url.JoinPath(c.cfg.BaseURL, segments...)
}

func (c *Client) pollAttemptCount() int {
	if c.pollAttempts <= 0 {
		return 1
	}
	return c.pollAttempts
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func snippet(body []byte) string {
	clean := strings.Join(strings.Fields(string(bytes.TrimSpace(body))), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
