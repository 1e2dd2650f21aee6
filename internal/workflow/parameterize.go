package workflow

import (
	"errors"
	"fmt"

	"carousel/internal/services"
)

// Submission is a parameterized copy of a template ready for the engine.
// Every node's inputs are in the named form.
type Submission struct {
	Template string
	Roles    Roles
	Nodes    map[string]SubmittedNode
	// Order preserves the template's node order for logging and display.
	Order []string
}

// SubmittedNode is a node whose inputs have been normalized.
type SubmittedNode struct {
	Kind   string
	Inputs map[string]any
	Extra  map[string]any
}

// Parameterize returns an independent copy of t with values injected into
// the node named by t.Roles.InputNode. t is never modified.
//
// Positional inputs receive the prompt in slot 0: when that slot is an object
// with a name, its value is set, otherwise the slot is replaced. Named inputs
// receive it under Roles.InputKey. A missing input node, a node without
// inputs, or an empty positional list fails with services.ErrTemplateInvalid.
func Parameterize(t *Template, values Values) (*Submission, error) {
	if t == nil {
		return nil, services.Wrap(services.ErrTemplateInvalid, "workflow", "parameterize", "template is nil", nil)
	}
	roles := t.Roles
	if roles.InputNode == "" {
		roles = DefaultRoles()
	}

	target, ok := t.Node(roles.InputNode)
	if !ok {
		return nil, templateError(t.Name, fmt.Sprintf("input node %q not found", roles.InputNode))
	}
	injected, err := inject(target.Inputs.clone(), roles.InputKey, values.Prompt)
	if err != nil {
		return nil, templateError(t.Name, fmt.Sprintf("input node %q: %v", roles.InputNode, err))
	}

	sub := &Submission{
		Template: t.Name,
		Roles:    roles,
		Nodes:    make(map[string]SubmittedNode, len(t.Nodes)),
		Order:    make([]string, 0, len(t.Nodes)),
	}
	for i := range t.Nodes {
		node := &t.Nodes[i]
		inputs := node.Inputs
		if node.ID == target.ID {
			inputs = injected
		}
		sub.Nodes[node.ID] = SubmittedNode{
			Kind:   node.Kind,
			Inputs: NormalizeInputs(inputs),
			Extra:  deepCopy(node.Extra).(map[string]any),
		}
		sub.Order = append(sub.Order, node.ID)
	}
	return sub, nil
}

func inject(in Inputs, key, prompt string) (Inputs, error) {
	switch in.Shape {
	case InputsPositional:
		if len(in.Positional) == 0 {
			return in, errors.New("positional inputs are empty")
		}
		if _, named := slotName(in.Positional[0]); named {
			in.Positional[0].(map[string]any)["value"] = prompt
			return in, nil
		}
		in.Positional[0] = prompt
		return in, nil
	case InputsNamed:
		if key == "" {
			key = DefaultRoles().InputKey
		}
		if in.Named == nil {
			in.Named = map[string]any{}
		}
		in.Named[key] = prompt
		return in, nil
	default:
		return in, errors.New("node has no inputs")
	}
}

func templateError(name, message string) error {
	return services.Wrap(services.ErrTemplateInvalid, "workflow", "parameterize", fmt.Sprintf("%s: %s", name, message), nil)
}

// Flatten returns the wire form of the submission: an object keyed by node
// id whose values carry the node's extra fields plus class_type and inputs.
func (s *Submission) Flatten() map[string]any {
	flat := make(map[string]any, len(s.Nodes))
	for id, node := range s.Nodes {
		entry := make(map[string]any, len(node.Extra)+2)
		for k, v := range node.Extra {
			entry[k] = v
		}
		entry["class_type"] = node.Kind
		entry["inputs"] = node.Inputs
		flat[id] = entry
	}
	return flat
}
