package extract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/oliveagle/jsonpath"

	"carousel/internal/logging"
	"carousel/internal/services/comfyui"
	"carousel/internal/workflow"
)

// FallbackPrefix starts the diagnostic returned when no probe matches.
const FallbackPrefix = "**Could not extract content from workflow result**\n\nRaw result: "

// ProbeFallback names the diagnostic outcome in Result.Probe.
const ProbeFallback = "fallback"

// Probe is one lookup strategy over a result document.
type Probe struct {
	Name string
	Find func(doc comfyui.Document) (string, bool)
}

// Result reports extracted content and the probe that produced it.
type Result struct {
	Content string
	Probe   string
}

// Extractor applies probes in order for one set of template roles.
type Extractor struct {
	roles  workflow.Roles
	probes []Probe
	logger *slog.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New builds an extractor for the given roles. Blank roles fall back to
// workflow.DefaultRoles.
func New(roles workflow.Roles, opts ...Option) *Extractor {
	defaults := workflow.DefaultRoles()
	if roles.OutputNode == "" {
		roles.OutputNode = defaults.OutputNode
	}
	if roles.OutputKey == "" {
		roles.OutputKey = defaults.OutputKey
	}
	e := &Extractor{roles: roles}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "extract")

	if path := strings.TrimSpace(roles.OutputPath); path != "" {
		e.probes = append(e.probes, Probe{Name: "output_path", Find: e.jsonPath(path)})
	}
	e.probes = append(e.probes,
		Probe{Name: "top_level_node", Find: e.topLevelNode},
		Probe{Name: "outputs", Find: e.outputs},
		Probe{Name: "prompt_outputs", Find: e.promptOutputs},
		Probe{Name: "text_field", Find: textField},
		Probe{Name: "scan", Find: e.scan},
		Probe{Name: "bare_string", Find: bareString},
	)
	return e
}

// Probes returns the probes in the order Extract applies them.
func (e *Extractor) Probes() []Probe {
	out := make([]Probe, len(e.probes))
	copy(out, e.probes)
	return out
}

// Extract returns the generated text, or a diagnostic embedding the raw
// document when no probe matches. It never fails.
func (e *Extractor) Extract(doc comfyui.Document) string {
	return e.Run(doc).Content
}

// Run is Extract that also reports which probe matched.
func (e *Extractor) Run(doc comfyui.Document) Result {
	for _, probe := range e.probes {
		if content, ok := safeFind(probe, doc); ok {
			e.logger.Debug("content extracted",
				logging.String("probe", probe.Name),
				logging.Int("length", len(content)),
			)
			return Result{Content: content, Probe: probe.Name}
		}
	}
	e.logger.Warn("could not extract content from result",
		logging.String("document_kind", doc.Kind().String()),
		logging.String("output_node", e.roles.OutputNode),
		logging.String(logging.FieldEventType, "extraction_fallback"),
	)
	return Result{Content: Fallback(doc), Probe: ProbeFallback}
}

// Fallback renders the diagnostic string for doc.
func Fallback(doc comfyui.Document) string {
	raw, err := json.MarshalIndent(doc.Value(), "", "  ")
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", doc.Value()))
	}
	return FallbackPrefix + string(raw)
}

func safeFind(probe Probe, doc comfyui.Document) (content string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			content, ok = "", false
		}
	}()
	return probe.Find(doc)
}

func (e *Extractor) jsonPath(path string) func(comfyui.Document) (string, bool) {
	return func(doc comfyui.Document) (string, bool) {
		if doc.Kind() != comfyui.KindObject {
			return "", false
		}
		value, err := jsonpath.JsonPathLookup(doc.Value(), path)
		if err != nil {
			return "", false
		}
		if list, ok := value.([]any); ok && len(list) == 1 {
			value = list[0]
		}
		return stringify(value)
	}
}

func (e *Extractor) topLevelNode(doc comfyui.Document) (string, bool) {
	obj, ok := doc.Object()
	if !ok {
		return "", false
	}
	node, ok := obj[e.roles.OutputNode].(map[string]any)
	if !ok {
		return "", false
	}
	return e.inputValue(node)
}

func (e *Extractor) outputs(doc comfyui.Document) (string, bool) {
	obj, ok := doc.Object()
	if !ok {
		return "", false
	}
	return e.outputNode(obj["outputs"])
}

func (e *Extractor) promptOutputs(doc comfyui.Document) (string, bool) {
	obj, ok := doc.Object()
	if !ok {
		return "", false
	}
	prompt, ok := obj["prompt"].(map[string]any)
	if !ok {
		return "", false
	}
	return e.outputNode(prompt["outputs"])
}

// outputNode looks up the output node inside an outputs wrapper. Besides the
// inputs and widgets_values shapes it accepts the {"text": [...]} shape text
// display nodes publish in history.
func (e *Extractor) outputNode(wrapper any) (string, bool) {
	outputs, ok := wrapper.(map[string]any)
	if !ok {
		return "", false
	}
	node, ok := outputs[e.roles.OutputNode].(map[string]any)
	if !ok {
		return "", false
	}
	if content, ok := e.inputValue(node); ok {
		return content, true
	}
	if content, ok := firstWidget(node); ok {
		return content, true
	}
	return firstOf(node["text"])
}

func textField(doc comfyui.Document) (string, bool) {
	obj, ok := doc.Object()
	if !ok {
		return "", false
	}
	text, ok := obj["text"].(string)
	if !ok {
		return "", false
	}
	return nonEmpty(text)
}

func (e *Extractor) scan(doc comfyui.Document) (string, bool) {
	obj, ok := doc.Object()
	if !ok {
		return "", false
	}
	for _, key := range scanOrder(obj) {
		node, ok := obj[key].(map[string]any)
		if !ok {
			continue
		}
		if content, ok := e.inputValue(node); ok {
			return content, true
		}
		if content, ok := firstWidget(node); ok {
			return content, true
		}
	}
	return "", false
}

func bareString(doc comfyui.Document) (string, bool) {
	text, ok := doc.Text()
	if !ok {
		return "", false
	}
	return nonEmpty(text)
}

func (e *Extractor) inputValue(node map[string]any) (string, bool) {
	inputs, ok := node["inputs"].(map[string]any)
	if !ok {
		return "", false
	}
	return stringify(inputs[e.roles.OutputKey])
}

func firstWidget(node map[string]any) (string, bool) {
	widgets, ok := node["widgets_values"].([]any)
	if !ok || len(widgets) == 0 {
		return "", false
	}
	return stringify(widgets[0])
}

func firstOf(value any) (string, bool) {
	if list, ok := value.([]any); ok {
		if len(list) == 0 {
			return "", false
		}
		return stringify(list[0])
	}
	return stringify(value)
}

// scanOrder sorts integer-like keys numerically, then the rest lexically.
func scanOrder(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aErr := strconv.ParseInt(keys[i], 10, 64)
		b, bErr := strconv.ParseInt(keys[j], 10, 64)
		switch {
		case aErr == nil && bErr == nil:
			if a != b {
				return a < b
			}
			return keys[i] < keys[j]
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// stringify yields a non-empty string for a matched value; non-string values
// are JSON encoded.
func stringify(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return nonEmpty(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return nonEmpty(string(encoded))
	}
}

func nonEmpty(s string) (string, bool) {
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}
