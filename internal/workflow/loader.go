package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"carousel/internal/logging"
	"carousel/internal/services"
)

var templateExtensions = []string{".json", ".yaml", ".yml"}

// Loader reads workflow templates from a file system. It keeps no cache:
// every Load reads storage again so edited templates take effect immediately.
type Loader struct {
	fsys   fs.FS
	roles  RoleResolver
	logger *slog.Logger
}

// NewLoader constructs a loader over fsys. A nil resolver applies DefaultRoles
// to every template.
func NewLoader(fsys fs.FS, roles RoleResolver, logger *slog.Logger) *Loader {
	if roles == nil {
		roles = RoleResolverFunc(func(string) Roles { return DefaultRoles() })
	}
	return &Loader{
		fsys:   fsys,
		roles:  roles,
		logger: logging.NewComponentLogger(logger, "workflow"),
	}
}

// NewDirLoader constructs a loader reading templates from dir.
func NewDirLoader(dir string, roles RoleResolver, logger *slog.Logger) *Loader {
	return NewLoader(os.DirFS(dir), roles, logger)
}

// Load locates the named template, parses it, and validates its shape.
//
// The name may be given with or without its extension; .json, .yaml, and
// .yml are tried in that order. Missing templates fail with
// services.ErrTemplateNotFound and malformed ones with
// services.ErrTemplateInvalid.
func (l *Loader) Load(name string) (*Template, error) {
	name = strings.TrimSpace(name)
	if !validName(name) {
		return nil, services.Wrap(services.ErrTemplateNotFound, "workflow", "load template", fmt.Sprintf("invalid template name %q", name), nil)
	}

	file, data, err := l.read(name)
	if err != nil {
		return nil, err
	}

	doc, err := decodeDocument(file, data)
	if err != nil {
		return nil, services.Wrap(services.ErrTemplateInvalid, "workflow", "parse template", file, err)
	}

	logical := trimExtension(file)
	tmpl, err := parseTemplate(logical, doc)
	if err != nil {
		return nil, services.Wrap(services.ErrTemplateInvalid, "workflow", "validate template", file, err)
	}
	tmpl.Roles = l.roles.RolesFor(logical)

	if _, ok := tmpl.Node(tmpl.Roles.OutputNode); !ok && tmpl.Roles.OutputPath == "" {
		l.logger.Warn("template does not declare output node",
			logging.String(logging.FieldTemplate, logical),
			logging.String("output_node", tmpl.Roles.OutputNode),
			logging.String(logging.FieldEventType, "template_output_role_missing"),
		)
	}

	l.logger.Debug("template loaded",
		logging.String(logging.FieldTemplate, logical),
		logging.String("file", file),
		logging.Int("nodes", len(tmpl.Nodes)),
	)
	return tmpl, nil
}

// List returns the names of all templates in storage, extensions stripped,
// sorted and de-duplicated.
func (l *Loader) List() ([]string, error) {
	entries, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		return nil, services.Wrap(services.ErrTemplateNotFound, "workflow", "list templates", "template directory unavailable", err)
	}
	seen := make(map[string]struct{}, len(entries))
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !hasTemplateExtension(entry.Name()) {
			continue
		}
		name := trimExtension(entry.Name())
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (l *Loader) read(name string) (string, []byte, error) {
	candidates := []string{name}
	if !hasTemplateExtension(name) {
		for _, ext := range templateExtensions {
			candidates = append(candidates, name+ext)
		}
	}
	for _, candidate := range candidates {
		info, err := fs.Stat(l.fsys, candidate)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", nil, services.Wrap(services.ErrTemplateInvalid, "workflow", "read template", candidate, err)
		}
		if info.IsDir() {
			continue
		}
		data, err := fs.ReadFile(l.fsys, candidate)
		if err != nil {
			return "", nil, services.Wrap(services.ErrTemplateInvalid, "workflow", "read template", candidate, err)
		}
		return candidate, data, nil
	}
	return "", nil, services.Wrap(services.ErrTemplateNotFound, "workflow", "load template", fmt.Sprintf("%q", name), nil)
}

func validName(name string) bool {
	if name == "" || name == "." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return fs.ValidPath(name)
}

func hasTemplateExtension(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, candidate := range templateExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

func trimExtension(name string) string {
	if hasTemplateExtension(name) {
		return strings.TrimSuffix(name, path.Ext(name))
	}
	return name
}

func decodeDocument(file string, data []byte) (any, error) {
	switch strings.ToLower(path.Ext(file)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return normalizeYAML(doc), nil
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var doc any
		if err := dec.Decode(&doc); err != nil {
			return nil, err
		}
		if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			return nil, errors.New("unexpected content after document")
		}
		return doc, nil
	}
}

// normalizeYAML converts yaml mappings with non-string keys so YAML and JSON
// templates share one in-memory shape.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeYAML(item)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = normalizeYAML(item)
		}
		return val
	default:
		return val
	}
}

func parseTemplate(name string, doc any) (*Template, error) {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document must be an object, got %s", describe(doc))
	}
	rawNodes, ok := root["nodes"]
	if !ok {
		return nil, errors.New("missing nodes collection")
	}
	list, ok := rawNodes.([]any)
	if !ok {
		return nil, fmt.Errorf("nodes must be an array, got %s", describe(rawNodes))
	}

	tmpl := &Template{
		Name:  name,
		Nodes: make([]Node, 0, len(list)),
		Meta:  make(map[string]any, len(root)),
	}
	for k, v := range root {
		if k != "nodes" {
			tmpl.Meta[k] = v
		}
	}

	seen := make(map[string]int, len(list))
	for i, raw := range list {
		node, err := parseNode(raw)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		if first, dup := seen[node.ID]; dup {
			return nil, fmt.Errorf("node %d: duplicate id %q (first seen at node %d)", i, node.ID, first)
		}
		seen[node.ID] = i
		tmpl.Nodes = append(tmpl.Nodes, node)
	}
	return tmpl, nil
}

func parseNode(raw any) (Node, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Node{}, fmt.Errorf("entry must be an object, got %s", describe(raw))
	}
	id, ok := nodeID(obj["id"])
	if !ok {
		return Node{}, errors.New("missing or invalid id")
	}
	rawInputs, present := obj["inputs"]
	inputs, err := parseInputs(rawInputs, present)
	if err != nil {
		return Node{}, fmt.Errorf("id %q: %w", id, err)
	}

	extra := make(map[string]any, len(obj))
	for k, v := range obj {
		if k == "inputs" || k == "class_type" {
			continue
		}
		extra[k] = v
	}
	return Node{ID: id, Kind: nodeKind(obj), Inputs: inputs, Extra: extra}, nil
}

func nodeID(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case json.Number:
		return v.String(), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

func nodeKind(obj map[string]any) string {
	for _, key := range []string{"class_type", "type"} {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return DefaultKind
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return "number"
	}
}
