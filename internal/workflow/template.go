package workflow

import (
	"strings"

	"carousel/internal/config"
)

// DefaultKind is assigned to nodes that declare neither class_type nor type.
const DefaultKind = "default"

// InputsShape reports how a node declared its inputs.
type InputsShape int

const (
	// InputsAbsent means the node carried no inputs field.
	InputsAbsent InputsShape = iota
	// InputsNamed means inputs is a mapping from parameter name to value.
	InputsNamed
	// InputsPositional means inputs is an ordered list of values.
	InputsPositional
)

func (s InputsShape) String() string {
	switch s {
	case InputsNamed:
		return "named"
	case InputsPositional:
		return "positional"
	default:
		return "absent"
	}
}

// Inputs holds a node's input set in exactly one of its two representations.
type Inputs struct {
	Shape      InputsShape
	Named      map[string]any
	Positional []any
}

// Node is one step of a workflow template.
type Node struct {
	ID     string
	Kind   string
	Inputs Inputs
	// Extra carries every other node field (widgets_values, pos, size, ...)
	// through to the wire unchanged.
	Extra map[string]any
}

// Roles names the nodes a template reserves for the prompt and the answer.
type Roles struct {
	InputNode  string
	InputKey   string
	OutputNode string
	OutputKey  string
	// OutputPath is an optional JSONPath tried before the built-in lookups.
	OutputPath string
}

// DefaultRoles returns the conventional roles used by the stock templates.
func DefaultRoles() Roles {
	return Roles{InputNode: "1", InputKey: "String", OutputNode: "4", OutputKey: "STRING"}
}

// RoleResolver returns the declared roles for a template name.
type RoleResolver interface {
	RolesFor(name string) Roles
}

// RoleResolverFunc adapts a function to RoleResolver.
type RoleResolverFunc func(name string) Roles

// RolesFor implements RoleResolver.
func (f RoleResolverFunc) RolesFor(name string) Roles { return f(name) }

// ConfigRoles resolves roles from the [templates.roles] configuration table.
func ConfigRoles(cfg *config.Config) RoleResolver {
	return RoleResolverFunc(func(name string) Roles {
		if cfg == nil {
			return DefaultRoles()
		}
		return Roles(cfg.RolesFor(name))
	})
}

// Template is a parsed, validated workflow document.
type Template struct {
	Name  string
	Nodes []Node
	// Meta holds every top-level field other than nodes.
	Meta  map[string]any
	Roles Roles
}

// Node returns the node with the given id.
func (t *Template) Node(id string) (*Node, bool) {
	if t == nil {
		return nil, false
	}
	id = strings.TrimSpace(id)
	for i := range t.Nodes {
		if t.Nodes[i].ID == id {
			return &t.Nodes[i], true
		}
	}
	return nil, false
}

// Values are the caller-supplied parameters injected into a template.
type Values struct {
	Prompt string
}
