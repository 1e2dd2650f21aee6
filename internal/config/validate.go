package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/oliveagle/jsonpath"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateTemplates(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateEngine() error {
	parsed, err := url.Parse(c.Engine.BaseURL)
	if err != nil {
		return fmt.Errorf("engine.base_url is invalid: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("engine.base_url %q has no host", c.Engine.BaseURL)
	}
	if c.Engine.TimeoutSeconds <= 0 {
		return errors.New("engine.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.TransportAttempts < 1 {
		return errors.New("retry.transport_attempts must be at least 1")
	}
	if c.Retry.PollAttempts < 1 {
		return errors.New("retry.poll_attempts must be at least 1")
	}
	if err := ensureNonNegativeMap(map[string]int{
		"retry.transport_delay_ms": c.Retry.TransportDelayMillis,
		"retry.poll_delay_ms":      c.Retry.PollDelayMillis,
		"retry.initial_wait_ms":    c.Retry.InitialWaitMillis,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTemplates() error {
	for name, roles := range c.Templates.Roles {
		if name == "" {
			return errors.New("templates.roles: template name must not be empty")
		}
		path := strings.TrimSpace(roles.OutputPath)
		if path == "" {
			continue
		}
		if _, err := jsonpath.Compile(path); err != nil {
			return fmt.Errorf("templates.roles.%q.output_path: %w", name, err)
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.RequestTimeoutSeconds <= 0 {
		return errors.New("server.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	return nil
}
