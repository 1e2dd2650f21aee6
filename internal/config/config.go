package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Engine contains connection settings for the workflow execution engine.
type Engine struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Retry contains the two independent retry budgets used when talking to the
// engine: transport retries repeat a single request after a network failure,
// poll retries repeat the history lookup while a job is still running.
type Retry struct {
	TransportAttempts    int `toml:"transport_attempts"`
	TransportDelayMillis int `toml:"transport_delay_ms"`
	PollAttempts         int `toml:"poll_attempts"`
	PollDelayMillis      int `toml:"poll_delay_ms"`
	InitialWaitMillis    int `toml:"initial_wait_ms"`
}

// RoleConfig declares which nodes of a template receive the prompt and hold
// the generated answer.
type RoleConfig struct {
	InputNode  string `toml:"input_node"`
	InputKey   string `toml:"input_key"`
	OutputNode string `toml:"output_node"`
	OutputKey  string `toml:"output_key"`
	OutputPath string `toml:"output_path"`
}

// Templates contains the template directory and per-template role overrides.
type Templates struct {
	Dir     string                `toml:"dir"`
	Default string                `toml:"default"`
	Roles   map[string]RoleConfig `toml:"roles"`
}

// Server contains configuration for the HTTP/MCP boundary.
type Server struct {
	Bind                  string `toml:"bind"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	LockPath              string `toml:"lock_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for carousel.
//
// Configuration sections by subsystem:
//   - Engine: execution engine address and HTTP timeout
//   - Retry: transport and poll retry budgets, initial wait after submission
//   - Templates: template directory, default template, node roles
//   - Server: HTTP/MCP bind address, request timeout, single-instance lock
//   - Logging: log format, level, and optional log directory
type Config struct {
	Engine    Engine    `toml:"engine"`
	Retry     Retry     `toml:"retry"`
	Templates Templates `toml:"templates"`
	Server    Server    `toml:"server"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/carousel/config.toml")
}

// LoadDotEnv populates the process environment from a .env file. Variables
// already present in the environment win. An empty path loads ./.env when it
// exists; an explicit path must exist.
func LoadDotEnv(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("carousel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates directories the server needs at runtime. The
// template directory is never created: a missing directory is reported by the
// loader as a missing template.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Server.LockPath)}
	if c.Logging.Dir != "" {
		dirs = append(dirs, c.Logging.Dir)
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EngineTimeout returns the per-request HTTP timeout for the engine client.
func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutSeconds) * time.Second
}

// TransportDelay returns the constant delay between transport retries.
func (c *Config) TransportDelay() time.Duration {
	return time.Duration(c.Retry.TransportDelayMillis) * time.Millisecond
}

// PollDelay returns the delay between history polls.
func (c *Config) PollDelay() time.Duration {
	return time.Duration(c.Retry.PollDelayMillis) * time.Millisecond
}

// InitialWait returns the pause between submission and the first poll.
func (c *Config) InitialWait() time.Duration {
	return time.Duration(c.Retry.InitialWaitMillis) * time.Millisecond
}

// RequestTimeout returns the deadline applied to each inbound generation request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// RolesFor returns the node roles declared for a template, with repository
// defaults filling any field the configuration leaves blank.
func (c *Config) RolesFor(name string) RoleConfig {
	roles := RoleConfig{
		InputNode:  defaultInputNode,
		InputKey:   defaultInputKey,
		OutputNode: defaultOutputNode,
		OutputKey:  defaultOutputKey,
	}
	override, ok := c.Templates.Roles[strings.TrimSpace(name)]
	if !ok {
		return roles
	}
	if v := strings.TrimSpace(override.InputNode); v != "" {
		roles.InputNode = v
	}
	if v := strings.TrimSpace(override.InputKey); v != "" {
		roles.InputKey = v
	}
	if v := strings.TrimSpace(override.OutputNode); v != "" {
		roles.OutputNode = v
	}
	if v := strings.TrimSpace(override.OutputKey); v != "" {
		roles.OutputKey = v
	}
	roles.OutputPath = strings.TrimSpace(override.OutputPath)
	return roles
}
