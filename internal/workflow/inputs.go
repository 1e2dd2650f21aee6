package workflow

import (
	"fmt"
	"strings"
)

// NormalizeInputs converts a node's inputs to the named mapping form.
//
// Named inputs are copied as-is. For positional entry i, an object carrying a
// non-empty string "name" is keyed by that name and contributes its "value"
// (or, when value is missing or null, the whole entry); any other entry is
// keyed input_<i>. Absent inputs yield an empty mapping.
func NormalizeInputs(in Inputs) map[string]any {
	switch in.Shape {
	case InputsNamed:
		out := make(map[string]any, len(in.Named))
		for k, v := range in.Named {
			out[k] = deepCopy(v)
		}
		return out
	case InputsPositional:
		out := make(map[string]any, len(in.Positional))
		for i, entry := range in.Positional {
			key, value := positionalEntry(i, entry)
			out[key] = deepCopy(value)
		}
		return out
	default:
		return map[string]any{}
	}
}

func positionalEntry(index int, entry any) (string, any) {
	if name, ok := slotName(entry); ok {
		obj := entry.(map[string]any)
		if value, ok := obj["value"]; ok && value != nil {
			return name, value
		}
		return name, obj
	}
	return fmt.Sprintf("input_%d", index), entry
}

// slotName reports the name of a positional slot. Only objects whose "name"
// is a non-blank string count as named.
func slotName(entry any) (string, bool) {
	obj, ok := entry.(map[string]any)
	if !ok {
		return "", false
	}
	name, ok := obj["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return "", false
	}
	return name, true
}

func parseInputs(raw any, present bool) (Inputs, error) {
	if !present || raw == nil {
		return Inputs{Shape: InputsAbsent}, nil
	}
	switch v := raw.(type) {
	case map[string]any:
		return Inputs{Shape: InputsNamed, Named: v}, nil
	case []any:
		return Inputs{Shape: InputsPositional, Positional: v}, nil
	default:
		return Inputs{}, fmt.Errorf("inputs must be an object or an array, got %T", raw)
	}
}

func (in Inputs) clone() Inputs {
	out := Inputs{Shape: in.Shape}
	if in.Named != nil {
		out.Named = deepCopy(in.Named).(map[string]any)
	}
	if in.Positional != nil {
		out.Positional = deepCopy(in.Positional).([]any)
	}
	return out
}

// deepCopy clones decoded document values. Scalars (strings, numbers, bools)
// are immutable and returned as-is.
func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = deepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return val
	}
}
