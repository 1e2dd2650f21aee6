package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carousel/internal/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("COMFYUI_API_URL", "")
	os.Unsetenv("COMFYUI_API_URL")
	t.Setenv("CAROUSEL_TEMPLATE_DIR", "")
	os.Unsetenv("CAROUSEL_TEMPLATE_DIR")
	t.Chdir(t.TempDir())
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, resolved, exists, err := config.Load("")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, filepath.Join(home, ".config", "carousel", "config.toml"), resolved)

	assert.Equal(t, "http://127.0.0.1:8188", cfg.Engine.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.EngineTimeout())
	assert.Equal(t, 3, cfg.Retry.TransportAttempts)
	assert.Equal(t, time.Second, cfg.TransportDelay())
	assert.Equal(t, 5, cfg.Retry.PollAttempts)
	assert.Equal(t, time.Second, cfg.PollDelay())
	assert.Equal(t, time.Second, cfg.InitialWait())
	assert.Equal(t, "2-Text Analysis", cfg.Templates.Default)
	assert.True(t, filepath.IsAbs(cfg.Templates.Dir))
	assert.Equal(t, "workflows", filepath.Base(cfg.Templates.Dir))
	assert.Equal(t, filepath.Join(home, ".local", "share", "carousel", "carousel.lock"), cfg.Server.LockPath)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadUsesEnvironmentFallbacks(t *testing.T) {
	isolate(t)
	t.Setenv("COMFYUI_API_URL", "comfy.internal:9000/")
	templateDir := t.TempDir()
	t.Setenv("CAROUSEL_TEMPLATE_DIR", templateDir)

	cfg, _, _, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://comfy.internal:9000", cfg.Engine.BaseURL)
	assert.Equal(t, templateDir, cfg.Templates.Dir)
}

func TestLoadFileOverridesEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("COMFYUI_API_URL", "ignored:1")

	path := filepath.Join(t.TempDir(), "carousel.toml")
	doc := map[string]any{
		"engine": map[string]any{"base_url": "https://engine.example.com", "timeout_seconds": 5},
		"retry":  map[string]any{"poll_attempts": 7, "poll_delay_ms": 250, "transport_attempts": 2},
		"templates": map[string]any{
			"default": "captions",
			"roles": map[string]any{
				"captions": map[string]any{"input_node": "12", "output_path": "$.outputs.caption"},
			},
		},
		"logging": map[string]any{"format": "JSON", "level": "Debug"},
	}
	data, err := toml.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, resolved, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, path, resolved)
	assert.Equal(t, "https://engine.example.com", cfg.Engine.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.EngineTimeout())
	assert.Equal(t, 7, cfg.Retry.PollAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.PollDelay())
	assert.Equal(t, 2, cfg.Retry.TransportAttempts)
	assert.Equal(t, "captions", cfg.Templates.Default)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)

	roles := cfg.RolesFor("captions")
	assert.Equal(t, "12", roles.InputNode)
	assert.Equal(t, "String", roles.InputKey)
	assert.Equal(t, "4", roles.OutputNode)
	assert.Equal(t, "STRING", roles.OutputKey)
	assert.Equal(t, "$.outputs.caption", roles.OutputPath)
}

func TestRolesForUnknownTemplateUsesDefaults(t *testing.T) {
	cfg := config.Default()
	roles := cfg.RolesFor("anything")
	assert.Equal(t, config.RoleConfig{InputNode: "1", InputKey: "String", OutputNode: "4", OutputKey: "STRING"}, roles)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"transport attempts": func(c *config.Config) { c.Retry.TransportAttempts = 0 },
		"poll attempts":      func(c *config.Config) { c.Retry.PollAttempts = 0 },
		"negative delay":     func(c *config.Config) { c.Retry.PollDelayMillis = -1 },
		"engine timeout":     func(c *config.Config) { c.Engine.TimeoutSeconds = 0 },
		"engine host":        func(c *config.Config) { c.Engine.BaseURL = "http://" },
		"request timeout":    func(c *config.Config) { c.Server.RequestTimeoutSeconds = 0 },
		"log level":          func(c *config.Config) { c.Logging.Level = "verbose" },
		"output path": func(c *config.Config) {
			c.Templates.Roles = map[string]config.RoleConfig{"t": {OutputPath: "outputs.caption"}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Engine.BaseURL = "http://127.0.0.1:8188"
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8188", config.NormalizeBaseURL("127.0.0.1:8188"))
	assert.Equal(t, "https://x.example", config.NormalizeBaseURL(" https://x.example/ "))
	assert.Equal(t, "HTTP://x", config.NormalizeBaseURL("HTTP://x"))
	assert.Equal(t, "", config.NormalizeBaseURL("  "))
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	os.Unsetenv("CAROUSEL_TEST_DOTENV")
	t.Cleanup(func() { os.Unsetenv("CAROUSEL_TEST_DOTENV") })

	require.NoError(t, config.LoadDotEnv(""), "missing ./.env is not an error")

	require.NoError(t, os.WriteFile(".env", []byte("CAROUSEL_TEST_DOTENV=from-file\n"), 0o644))
	require.NoError(t, config.LoadDotEnv(""))
	assert.Equal(t, "from-file", os.Getenv("CAROUSEL_TEST_DOTENV"))

	assert.Error(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestCreateSampleLoads(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, config.CreateSample(path))

	cfg, _, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "2-Text Analysis", cfg.Templates.Default)
	assert.Equal(t, "1", cfg.RolesFor("2-Text Analysis").InputNode)
}
