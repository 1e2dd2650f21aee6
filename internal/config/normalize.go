package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeEngine()
	if err := c.normalizeTemplates(); err != nil {
		return err
	}
	if err := c.normalizeServer(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeEngine() {
	base := strings.TrimSpace(c.Engine.BaseURL)
	if base == "" {
		if value, ok := os.LookupEnv("COMFYUI_API_URL"); ok {
			base = strings.TrimSpace(value)
		}
	}
	if base == "" {
		base = defaultEngineBaseURL
	}
	c.Engine.BaseURL = NormalizeBaseURL(base)
}

// NormalizeBaseURL prepends http:// when the value carries no scheme and
// strips trailing slashes, so "127.0.0.1:8188/" becomes "http://127.0.0.1:8188".
func NormalizeBaseURL(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	lower := strings.ToLower(value)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		value = "http://" + value
	}
	return strings.TrimRight(value, "/")
}

func (c *Config) normalizeTemplates() error {
	dir := strings.TrimSpace(c.Templates.Dir)
	if dir == "" {
		if value, ok := os.LookupEnv("CAROUSEL_TEMPLATE_DIR"); ok {
			dir = strings.TrimSpace(value)
		}
	}
	if dir == "" {
		dir = defaultTemplateDir
	}
	var err error
	if c.Templates.Dir, err = expandPath(dir); err != nil {
		return fmt.Errorf("templates.dir: %w", err)
	}
	c.Templates.Default = strings.TrimSpace(c.Templates.Default)
	if c.Templates.Default == "" {
		c.Templates.Default = defaultTemplateName
	}
	if len(c.Templates.Roles) > 0 {
		trimmed := make(map[string]RoleConfig, len(c.Templates.Roles))
		for name, roles := range c.Templates.Roles {
			trimmed[strings.TrimSpace(name)] = roles
		}
		c.Templates.Roles = trimmed
	}
	return nil
}

func (c *Config) normalizeServer() error {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	lockPath := strings.TrimSpace(c.Server.LockPath)
	if lockPath == "" {
		lockPath = defaultLockPath
	}
	var err error
	if c.Server.LockPath, err = expandPath(lockPath); err != nil {
		return fmt.Errorf("server.lock_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if dir := strings.TrimSpace(c.Logging.Dir); dir != "" {
		var err error
		if c.Logging.Dir, err = expandPath(dir); err != nil {
			return fmt.Errorf("logging.dir: %w", err)
		}
	}
	return nil
}
