package generation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"carousel/internal/config"
	"carousel/internal/extract"
	"carousel/internal/logging"
	"carousel/internal/services"
	"carousel/internal/services/comfyui"
	"carousel/internal/workflow"
)

const defaultInitialWait = 1 * time.Second

// TemplateLoader provides workflow templates by name.
type TemplateLoader interface {
	Load(name string) (*workflow.Template, error)
}

// Engine is the execution engine client.
type Engine interface {
	CheckAvailability(ctx context.Context) bool
	Submit(ctx context.Context, sub *workflow.Submission) (comfyui.JobHandle, error)
	FetchResult(ctx context.Context, jobID string) (comfyui.Document, error)
}

// Outcome describes a successful generation.
type Outcome struct {
	Lines    []string
	Template string
	JobID    string
	// Probe names the extraction strategy that matched, or extract.ProbeFallback.
	Probe    string
	Document comfyui.Document
	Duration time.Duration
}

// Service orchestrates one generation per call and holds no per-call state.
type Service struct {
	loader      TemplateLoader
	engine      Engine
	template    string
	initialWait time.Duration
	logger      *slog.Logger
	sleeper     func(time.Duration)
}

// Option customizes the service.
type Option func(*Service)

// WithTemplate sets the template used when a call names none.
func WithTemplate(name string) Option {
	return func(s *Service) {
		s.template = strings.TrimSpace(name)
	}
}

// WithInitialWait sets the pause between submission and the first poll
// (defaults to 1s).
func WithInitialWait(d time.Duration) Option {
	return func(s *Service) {
		s.initialWait = d
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithSleeper overrides how the initial wait is performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(s *Service) {
		s.sleeper = sleeper
	}
}

// NewService constructs a generation service.
func NewService(loader TemplateLoader, engine Engine, opts ...Option) *Service {
	s := &Service{
		loader:      loader,
		engine:      engine,
		template:    config.Default().Templates.Default,
		initialWait: defaultInitialWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "generation")
	return s
}

// DefaultTemplate returns the template used when a call names none.
func (s *Service) DefaultTemplate() string { return s.template }

// Generate turns prompt into generated lines using the default template. On
// success the slice holds exactly one element. Any error is a *Error.
func (s *Service) Generate(ctx context.Context, prompt string) ([]string, error) {
	outcome, err := s.Run(ctx, "", prompt)
	if err != nil {
		return nil, err
	}
	return outcome.Lines, nil
}

// Run performs a generation with the named template (the default when empty)
// and reports the job details alongside the lines. Any error is a *Error.
func (s *Service) Run(ctx context.Context, template, prompt string) (*Outcome, error) {
	start := time.Now()
	name := strings.TrimSpace(template)
	if name == "" {
		name = s.template
	}
	ctx = services.WithTemplate(ctx, name)

	prompt = norm.NFC.String(strings.TrimSpace(prompt))
	if prompt == "" {
		return nil, s.fail(ctx, name, start, services.Wrap(services.ErrInvalidInput, "generation", "validate prompt", "prompt is empty", nil))
	}

	if !s.engine.CheckAvailability(ctx) {
		return nil, s.fail(ctx, name, start, services.Wrap(services.ErrServiceUnavailable, "generation", "check availability", "engine probe failed", nil))
	}

	tmpl, err := s.loader.Load(name)
	if err != nil {
		return nil, s.fail(ctx, name, start, err)
	}
	sub, err := workflow.Parameterize(tmpl, workflow.Values{Prompt: prompt})
	if err != nil {
		return nil, s.fail(ctx, name, start, err)
	}

	handle, err := s.engine.Submit(ctx, sub)
	if err != nil {
		return nil, s.fail(ctx, name, start, err)
	}
	ctx = services.WithJobID(ctx, handle.ID)

	if err := s.wait(ctx); err != nil {
		return nil, s.fail(ctx, name, start, err)
	}

	doc, err := s.engine.FetchResult(ctx, handle.ID)
	if err != nil {
		return nil, s.fail(ctx, name, start, err)
	}

	result := extract.New(tmpl.Roles, extract.WithLogger(s.logger)).Run(doc)
	outcome := &Outcome{
		Lines:    []string{result.Content},
		Template: name,
		JobID:    handle.ID,
		Probe:    result.Probe,
		Document: doc,
		Duration: time.Since(start),
	}
	logging.WithContext(ctx, s.logger).Info("generation completed",
		logging.String("probe", result.Probe),
		logging.Int("content_length", len(result.Content)),
		logging.Duration("duration", outcome.Duration),
	)
	return outcome, nil
}

func (s *Service) fail(ctx context.Context, template string, start time.Time, err error) error {
	genErr := newError(ctx, template, err)
	logger := logging.WithContext(ctx, s.logger)
	attrs := []logging.Attr{
		logging.String("kind", string(genErr.Kind)),
		logging.Duration("duration", time.Since(start)),
		logging.Error(err),
		logging.String(logging.FieldEventType, "generation_failed"),
	}
	switch genErr.Kind {
	case KindInvalidPrompt, KindCanceled:
		logger.Info("generation not completed", logging.Args(attrs...)...)
	case KindServiceUnavailable, KindResultUnavailable:
		logger.Warn("generation failed", logging.Args(attrs...)...)
	default:
		logger.Error("generation failed", logging.Args(attrs...)...)
	}
	return genErr
}

func (s *Service) wait(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if s.initialWait <= 0 {
		return nil
	}
	if s.sleeper != nil {
		s.sleeper(s.initialWait)
		return ctx.Err()
	}
	timer := time.NewTimer(s.initialWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
