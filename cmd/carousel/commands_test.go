package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carousel/internal/api"
	"carousel/internal/generation"
)

func TestGeneratePrintsLines(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"generate", "Analyze", "this", "article"}, env.configPath, "")
	require.NoError(t, err)
	assert.Equal(t, "Title: X\n", out)

	subs := env.engine.submissions()
	require.Len(t, subs, 1)
	assert.Contains(t, subs[0], `"String":"Analyze this article"`)
}

func TestGenerateReadsPromptFromStdin(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"generate"}, env.configPath, "  from stdin \n")
	require.NoError(t, err)
	assert.Equal(t, "Title: X\n", out)
	require.Len(t, env.engine.submissions(), 1)
	assert.Contains(t, env.engine.submissions()[0], `"String":"from stdin"`)
}

func TestGenerateJSONOutput(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"generate", "--json", "--raw", "hello"}, env.configPath, "")
	require.NoError(t, err)

	var resp api.GenerateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"Title: X"}, resp.Lines)
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, "2-Text Analysis", resp.Template)
	assert.Equal(t, "outputs", resp.Probe)
	assert.JSONEq(t, `{"outputs": {"4": {"widgets_values": ["Title: X"]}}}`, string(resp.Raw))
}

func TestGenerateEngineDown(t *testing.T) {
	env := setupCLITestEnv(t)
	env.engine.setDown(true)

	out, _, err := runCLI(t, []string{"generate", "--json", "hello"}, env.configPath, "")
	require.Error(t, err)
	assert.Equal(t, generation.KindServiceUnavailable, generation.KindOf(err))
	assert.Empty(t, env.engine.submissions())

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, string(generation.KindServiceUnavailable), resp.Kind)
	assert.Equal(t, []string{"Error: ComfyUI service is not available. Please check your connection and try again."}, resp.Lines)
}

func TestGenerateUnknownTemplate(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"generate", "--template", "missing", "hello"}, env.configPath, "")
	require.Error(t, err)
	assert.Equal(t, generation.KindTemplateNotFound, generation.KindOf(err))
	assert.Empty(t, env.engine.submissions())
}

func TestGenerateEmptyPrompt(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"generate"}, env.configPath, "   ")
	require.Error(t, err)
	assert.Equal(t, generation.KindInvalidPrompt, generation.KindOf(err))
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath, "")
	require.NoError(t, err)
	assert.Contains(t, out, env.engine.server.URL+" (reachable)")
	assert.Contains(t, out, "Templates: 1 available")
	assert.Contains(t, out, "2-Text Analysis (3 nodes)")
	assert.NotContains(t, out, "FAIL")

	env.engine.setDown(true)
	out, _, err = runCLI(t, []string{"status", "--json"}, env.configPath, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 readiness check(s) failed")

	var report statusReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.NotEmpty(t, report.Checks)
	assert.Equal(t, "Execution engine", report.Checks[0].Name)
	assert.False(t, report.Checks[0].Passed)
	assert.Equal(t, env.engine.server.URL, report.Engine)
}

func TestTemplatesListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.templateDir, "broken.json"), []byte(`{"nodes": "x"}`), 0o644))

	out, _, err := runCLI(t, []string{"templates", "list", "--json"}, env.configPath, "")
	require.NoError(t, err)
	var summaries []templateSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 2)
	assert.Equal(t, "2-Text Analysis", summaries[0].Name)
	assert.True(t, summaries[0].Default)
	assert.Equal(t, 3, summaries[0].Nodes)
	assert.Equal(t, "broken", summaries[1].Name)
	assert.NotEmpty(t, summaries[1].Error)

	out, _, err = runCLI(t, []string{"templates", "list"}, env.configPath, "")
	require.NoError(t, err)
	assert.Contains(t, out, "2-Text Analysis (default)")
	assert.Contains(t, out, "invalid")

	out, _, err = runCLI(t, []string{"templates", "show"}, env.configPath, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Input:    node 1, key String")
	assert.Contains(t, out, "top_level_node, outputs, prompt_outputs, text_field, scan, bare_string")
	assert.Contains(t, out, "named: String")
	assert.Contains(t, out, "positional: 1")
	assert.Contains(t, out, "output")
}

func TestConfigInitShowValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote sample configuration")
	_, err = os.Stat(target)
	require.NoError(t, err)

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.NotContains(t, out, "Warning")

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# "+env.configPath))
	assert.Contains(t, out, env.engine.server.URL)
}

func TestLogLevelFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t)

	cmdCtx := newCommandContext(&env.configPath, new(string), ptr("DEBUG"))
	cfg, err := cmdCtx.ensureConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)

	cmdCtx = newCommandContext(&env.configPath, new(string), ptr("loud"))
	_, err = cmdCtx.ensureConfig()
	require.Error(t, err)
}

func TestEnvFileSuppliesTemplateDir(t *testing.T) {
	env := setupCLITestEnv(t)
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("CAROUSEL_TEMPLATE_DIR="+env.templateDir+"\n"), 0o644))
	t.Setenv("CAROUSEL_TEMPLATE_DIR", "")
	os.Unsetenv("CAROUSEL_TEMPLATE_DIR")

	emptyConfig := filepath.Join(t.TempDir(), "empty.toml")
	require.NoError(t, os.WriteFile(emptyConfig, nil, 0o644))

	cmdCtx := newCommandContext(&emptyConfig, &envFile, new(string))
	cfg, err := cmdCtx.ensureConfig()
	require.NoError(t, err)
	assert.Equal(t, env.templateDir, cfg.Templates.Dir)
}

func TestReadPrompt(t *testing.T) {
	prompt, err := readPrompt(strings.NewReader("ignored"), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "a b", prompt)

	prompt, err = readPrompt(strings.NewReader("piped"), nil)
	require.NoError(t, err)
	assert.Equal(t, "piped", prompt)

	_, err = readPrompt(nil, nil)
	require.Error(t, err)
}

func ptr(s string) *string { return &s }
