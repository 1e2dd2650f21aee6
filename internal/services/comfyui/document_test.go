package comfyui_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"carousel/internal/services/comfyui"
)

func TestDecodeDocument(t *testing.T) {
	cases := []struct {
		body  string
		kind  comfyui.Kind
		empty bool
	}{
		{body: `{"a": 1}`, kind: comfyui.KindObject},
		{body: `{}`, kind: comfyui.KindObject, empty: true},
		{body: `"text"`, kind: comfyui.KindString},
		{body: `[1, 2]`, kind: comfyui.KindUnknown},
		{body: `42`, kind: comfyui.KindUnknown},
		{body: `null`, kind: comfyui.KindUnknown, empty: true},
		{body: ``, kind: comfyui.KindUnknown, empty: true},
		{body: `not json`, kind: comfyui.KindUnknown},
		{body: `{} {}`, kind: comfyui.KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.body, func(t *testing.T) {
			doc := comfyui.DecodeDocument([]byte(tc.body))
			assert.Equal(t, tc.kind, doc.Kind())
			assert.Equal(t, tc.empty, doc.Empty())
		})
	}
}

func TestDocumentKeepsNumbers(t *testing.T) {
	doc := comfyui.DecodeDocument([]byte(`{"seed": 123456789012345678}`))
	obj, ok := doc.Object()
	assert.True(t, ok)
	assert.Equal(t, json.Number("123456789012345678"), obj["seed"])

	encoded, err := json.Marshal(doc)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"seed": 123456789012345678}`, string(encoded))
}

func TestMalformedDocumentKeepsRawText(t *testing.T) {
	doc := comfyui.DecodeDocument([]byte("  <html>busy</html>\n"))
	assert.Equal(t, "<html>busy</html>", doc.Value())
	_, ok := doc.Text()
	assert.False(t, ok)
}
