package comfyui

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Kind classifies the top-level shape of a result document.
type Kind int

const (
	// KindUnknown covers arrays, numbers, booleans, null, and undecodable bodies.
	KindUnknown Kind = iota
	// KindObject is a JSON object.
	KindObject
	// KindString is a bare JSON string.
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Document is a weakly typed result returned by the engine. Numbers are kept
// as json.Number.
type Document struct {
	kind  Kind
	value any
}

// NewDocument wraps an already decoded value.
func NewDocument(value any) Document {
	switch v := value.(type) {
	case map[string]any:
		return Document{kind: KindObject, value: v}
	case string:
		return Document{kind: KindString, value: v}
	default:
		return Document{kind: KindUnknown, value: v}
	}
}

// DecodeDocument decodes a response body. A body that is not valid JSON is
// kept verbatim as an unknown document holding the raw text.
func DecodeDocument(data []byte) Document {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Document{}
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return Document{kind: KindUnknown, value: string(trimmed)}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Document{kind: KindUnknown, value: string(trimmed)}
	}
	return NewDocument(value)
}

// Kind reports the document's shape.
func (d Document) Kind() Kind { return d.kind }

// Value returns the decoded value.
func (d Document) Value() any { return d.value }

// Object returns the document as a JSON object.
func (d Document) Object() (map[string]any, bool) {
	obj, ok := d.value.(map[string]any)
	return obj, ok && d.kind == KindObject
}

// Text returns the document as a bare string.
func (d Document) Text() (string, bool) {
	s, ok := d.value.(string)
	return s, ok && d.kind == KindString
}

// Empty reports whether the document carries nothing: null, {}, or no body.
func (d Document) Empty() bool {
	switch v := d.value.(type) {
	case nil:
		return true
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

// MarshalJSON encodes the underlying value.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.value)
}

// unwrapJob returns the entry keyed by jobID when the document is the
// {"<job id>": {...}} envelope the history endpoint uses.
func (d Document) unwrapJob(jobID string) Document {
	obj, ok := d.Object()
	if !ok {
		return d
	}
	inner, ok := obj[jobID].(map[string]any)
	if !ok {
		return d
	}
	return NewDocument(inner)
}
