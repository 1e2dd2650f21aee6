package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mark3labs/mcp-go/server"

	"carousel/internal/generation"
	"carousel/internal/logging"
	"carousel/internal/services"
)

const defaultRequestTimeout = 5 * time.Minute

// Generator runs generations.
type Generator interface {
	Run(ctx context.Context, template, prompt string) (*generation.Outcome, error)
	DefaultTemplate() string
}

// Prober reports whether the execution engine is reachable.
type Prober interface {
	CheckAvailability(ctx context.Context) bool
	BaseURL() string
}

// TemplateLister enumerates template names.
type TemplateLister interface {
	List() ([]string, error)
}

// Options configures the API server.
type Options struct {
	Bind           string
	RequestTimeout time.Duration
	Version        string
	Logger         *slog.Logger
}

// Server serves the HTTP API and the MCP endpoint.
type Server struct {
	bind      string
	timeout   time.Duration
	generator Generator
	prober    Prober
	templates TemplateLister
	logger    *slog.Logger
	echo      *echo.Echo
	mcp       *server.MCPServer
}

// NewServer wires routes for the given collaborators. prober and templates may
// be nil, in which case the matching routes report what they can without them.
func NewServer(opts Options, generator Generator, prober Prober, templates TemplateLister) (*Server, error) {
	if generator == nil {
		return nil, errors.New("api server requires a generator")
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = "dev"
	}
	s := &Server{
		bind:      strings.TrimSpace(opts.Bind),
		timeout:   timeout,
		generator: generator,
		prober:    prober,
		templates: templates,
		logger:    logging.NewComponentLogger(opts.Logger, "api"),
	}
	s.mcp = newMCPServer(s, version)
	s.echo = s.routes()
	return s, nil
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api server bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.bind, err)
	}

	httpServer := &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.timeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("api server listening",
		logging.String("bind", listener.Addr().String()),
		logging.String(logging.FieldEventType, "api_server_started"),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("api server shutdown error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "api_server_shutdown_failed"),
			)
		}
		s.logger.Info("api server stopped")
		return nil
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	}
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(services.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []logging.Attr{
				logging.String("method", v.Method),
				logging.String("uri", v.URI),
				logging.Int("status", v.Status),
				logging.Duration("latency", v.Latency),
				logging.String(logging.FieldCorrelationID, v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, logging.Error(v.Error))
			}
			s.logger.Debug("api request", logging.Args(attrs...)...)
			return nil
		},
	}))

	e.GET("/healthz", s.handleHealth)
	e.POST("/api/generate", s.handleGenerate)
	e.GET("/api/status", s.handleStatus)
	e.GET("/api/templates", s.handleTemplates)

	sse := server.NewSSEServer(s.mcp, server.WithStaticBasePath("/mcp"))
	e.Any("/mcp/*", echo.WrapHandler(s.withoutStreamDeadlines(sse)))
	return e
}

// withoutStreamDeadlines clears the connection deadlines for SSE streams so
// a session outlives the server's read and write timeouts. Message posts keep
// them.
func (s *Server) withoutStreamDeadlines(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/sse") {
			rc := http.NewResponseController(w)
			if err := rc.SetWriteDeadline(time.Time{}); err != nil {
				s.logger.Debug("clear stream write deadline failed", logging.Error(err))
			}
			if err := rc.SetReadDeadline(time.Time{}); err != nil {
				s.logger.Debug("clear stream read deadline failed", logging.Error(err))
			}
		}
		next.ServeHTTP(w, r)
	})
}
