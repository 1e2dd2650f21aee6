package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const textAnalysisTemplate = `{"nodes": [
  {"id": 1, "type": "String Literal", "inputs": {"String": ""}},
  {"id": 2, "type": "LLM", "inputs": [{"name": "text", "link": 1}]},
  {"id": 4, "type": "ShowText", "widgets_values": [""]}
]}`

type cliTestEnv struct {
	configPath  string
	templateDir string
	engine      *fakeEngine
}

// fakeEngine is a minimal ComfyUI stand-in answering probe, submit, and
// history requests.
type fakeEngine struct {
	mu       sync.Mutex
	server   *httptest.Server
	down     bool
	prompts  []string
	response string
}

func newFakeEngine(t *testing.T) *fakeEngine {
	t.Helper()
	e := &fakeEngine{response: `{"outputs": {"4": {"widgets_values": ["Title: X"]}}}`}
	e.server = httptest.NewServer(http.HandlerFunc(e.serve))
	t.Cleanup(e.server.Close)
	return e
}

func (e *fakeEngine) serve(w http.ResponseWriter, r *http.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.down {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	switch r.URL.Path {
	case "/system_stats":
		_, _ = io.WriteString(w, `{}`)
	case "/prompt":
		body, _ := io.ReadAll(r.Body)
		e.prompts = append(e.prompts, string(body))
		_, _ = io.WriteString(w, `{"prompt_id": "job-1", "number": 1}`)
	case "/history/job-1":
		_, _ = io.WriteString(w, e.response)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (e *fakeEngine) setDown(down bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.down = down
}

func (e *fakeEngine) submissions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.prompts...)
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("COMFYUI_API_URL", "")
	os.Unsetenv("COMFYUI_API_URL")
	t.Chdir(base)

	templateDir := filepath.Join(base, "workflows")
	require.NoError(t, os.MkdirAll(templateDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(templateDir, "2-Text Analysis.json"), []byte(textAnalysisTemplate), 0o644))

	engine := newFakeEngine(t)
	configPath := filepath.Join(base, "carousel.toml")
	writeTestConfig(t, configPath, engine.server.URL, templateDir, filepath.Join(base, "carousel.lock"))

	return &cliTestEnv{configPath: configPath, templateDir: templateDir, engine: engine}
}

func writeTestConfig(t *testing.T, path, engineURL, templateDir, lockPath string) {
	t.Helper()
	content := fmt.Sprintf(`[engine]
base_url = %q
timeout_seconds = 5

[retry]
transport_attempts = 1
transport_delay_ms = 1
poll_attempts = 2
poll_delay_ms = 1
initial_wait_ms = 0

[templates]
dir = %q

[server]
bind = "127.0.0.1:0"
lock_path = %q

[logging]
level = "error"
`, engineURL, templateDir, lockPath)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func runCLI(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
