package extract_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carousel/internal/extract"
	"carousel/internal/services/comfyui"
	"carousel/internal/workflow"
)

func decode(body string) comfyui.Document {
	return comfyui.DecodeDocument([]byte(body))
}

func TestExtractProbesInOrder(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		want  string
		probe string
	}{
		{
			name:  "top level node",
			body:  `{"4": {"inputs": {"STRING": "direct"}}, "outputs": {"4": {"widgets_values": ["wrapped"]}}}`,
			want:  "direct",
			probe: "top_level_node",
		},
		{
			name:  "outputs inputs",
			body:  `{"outputs": {"4": {"inputs": {"STRING": "from inputs"}, "widgets_values": ["w"]}}}`,
			want:  "from inputs",
			probe: "outputs",
		},
		{
			name:  "outputs widgets",
			body:  `{"outputs": {"4": {"widgets_values": ["Title: X"]}}}`,
			want:  "Title: X",
			probe: "outputs",
		},
		{
			name:  "outputs text list",
			body:  `{"outputs": {"4": {"text": ["shown text"]}}, "status": {"completed": true}}`,
			want:  "shown text",
			probe: "outputs",
		},
		{
			name:  "prompt outputs",
			body:  `{"prompt": {"outputs": {"4": {"widgets_values": ["nested"]}}}}`,
			want:  "nested",
			probe: "prompt_outputs",
		},
		{
			name:  "text field",
			body:  `{"text": "plain", "7": {"widgets_values": ["scan"]}}`,
			want:  "plain",
			probe: "text_field",
		},
		{
			name:  "scan widgets",
			body:  `{"7": {"widgets_values": ["hello"]}}`,
			want:  "hello",
			probe: "scan",
		},
		{
			name:  "scan inputs",
			body:  `{"9": {"inputs": {"STRING": "from nine"}}}`,
			want:  "from nine",
			probe: "scan",
		},
		{
			name:  "bare string",
			body:  `"already text"`,
			want:  "already text",
			probe: "bare_string",
		},
		{
			name:  "non-string value is encoded",
			body:  `{"4": {"inputs": {"STRING": {"title": "X"}}}}`,
			want:  `{"title":"X"}`,
			probe: "top_level_node",
		},
	}
	extractor := extract.New(workflow.DefaultRoles())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := extractor.Run(decode(tc.body))
			assert.Equal(t, tc.want, result.Content)
			assert.Equal(t, tc.probe, result.Probe)
		})
	}
}

func TestExtractSkipsEmptyMatches(t *testing.T) {
	doc := decode(`{"4": {"inputs": {"STRING": ""}}, "outputs": {"4": {"widgets_values": ["  "]}}, "text": "fallthrough"}`)
	assert.Equal(t, "fallthrough", extract.New(workflow.DefaultRoles()).Extract(doc))
}

func TestExtractScanOrderIsDeterministic(t *testing.T) {
	doc := decode(`{"b": {"widgets_values": ["b"]}, "10": {"widgets_values": ["ten"]}, "2": {"widgets_values": ["two"]}, "a": {"widgets_values": ["a"]}}`)
	extractor := extract.New(workflow.DefaultRoles())
	for range 20 {
		assert.Equal(t, "two", extractor.Extract(doc))
	}

	doc = decode(`{"b": {"widgets_values": ["b"]}, "a": {"widgets_values": ["a"]}}`)
	assert.Equal(t, "a", extractor.Extract(doc))
}

func TestExtractFallback(t *testing.T) {
	extractor := extract.New(workflow.DefaultRoles())

	empty := extractor.Run(decode(`{}`))
	assert.Equal(t, extract.ProbeFallback, empty.Probe)
	assert.True(t, strings.HasPrefix(empty.Content, extract.FallbackPrefix))
	assert.Contains(t, empty.Content, "{}")

	for _, body := range []string{`null`, `[1, 2]`, `42`, ``, `<html>`, `""`, `{"4": {"widgets_values": []}}`} {
		t.Run(body, func(t *testing.T) {
			var out string
			require.NotPanics(t, func() { out = extractor.Extract(decode(body)) })
			assert.True(t, strings.HasPrefix(out, extract.FallbackPrefix))
		})
	}
}

func TestExtractCustomRoles(t *testing.T) {
	roles := workflow.Roles{OutputNode: "12", OutputKey: "text"}
	extractor := extract.New(roles)

	assert.Equal(t, "custom", extractor.Extract(decode(`{"outputs": {"12": {"inputs": {"text": "custom"}}, "4": {"widgets_values": ["default"]}}}`)))
}

func TestExtractOutputPath(t *testing.T) {
	roles := workflow.DefaultRoles()
	roles.OutputPath = "$.outputs.caption.text"
	extractor := extract.New(roles)

	require.Len(t, extractor.Probes(), 7)
	assert.Equal(t, "output_path", extractor.Probes()[0].Name)

	result := extractor.Run(decode(`{"outputs": {"caption": {"text": ["via path"]}, "4": {"widgets_values": ["default"]}}}`))
	assert.Equal(t, "via path", result.Content)
	assert.Equal(t, "output_path", result.Probe)

	result = extractor.Run(decode(`{"outputs": {"4": {"widgets_values": ["default"]}}}`))
	assert.Equal(t, "default", result.Content, "missing path falls through to built-in probes")
}

func TestProbesOrder(t *testing.T) {
	var names []string
	for _, p := range extract.New(workflow.DefaultRoles()).Probes() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"top_level_node", "outputs", "prompt_outputs", "text_field", "scan", "bare_string"}, names)
}
