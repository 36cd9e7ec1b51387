// Package render routes canonical envelopes and persisted history records
// to a declarative tree of typed UI nodes. The core exposes what to render
// and what action a user gesture triggers; a host binding (terminal, web)
// owns the actual surface and mutation.
package render

import (
	"encoding/json"
	"strings"

	"github.com/assistkit/assistpanel/envelope"
	"github.com/assistkit/assistpanel/model"
)

// Node is one renderable element of the transcript.
type Node interface{ isNode() }

// Bubble is a plain transcript message.
type Bubble struct {
	Role model.Role
	Text string
}

// Details is a set of collapsed-by-default disclosures attached to the
// preceding bubble. Each section toggles independently.
type Details struct {
	Sections []Section
}

// Section is one disclosure inside a Details node.
type Section struct {
	Label string
	Text  string
}

// ToggleLabel is the control label for a section: the field name while
// collapsed, "Hide <field>" while open.
func (s Section) ToggleLabel(open bool) string {
	if open {
		return "Hide " + strings.ToLower(s.Label)
	}
	return s.Label
}

// Options is a row of quick-reply controls. Activating an item feeds its
// label through the same send path a typed message uses.
type Options struct {
	Items []Option
}

// Option is one quick-reply control.
type Option struct {
	Label string
}

// Typing is the provisional "assistant is typing" placeholder.
type Typing struct{}

func (Bubble) isNode()  {}
func (Details) isNode() {}
func (Options) isNode() {}
func (Typing) isNode()  {}

const (
	clarifyPrompt    = "Please clarify your request."
	outOfScopePrompt = "This question is outside current project data scope."
)

// Dispatch routes one canonical envelope to its render behavior. It never
// fails; unrecognized kinds fall through to a plain assistant bubble.
func Dispatch(env envelope.Envelope) []Node {
	switch env.Kind {
	case envelope.KindAnswer:
		return answerNodes(env)
	case envelope.KindClarification:
		return clarificationNodes(env)
	case envelope.KindOutOfScope:
		return outOfScopeNodes(env)
	case envelope.KindError:
		return errorNodes(fallback(env.Data.Error, env.Message, "Error"), env.Data.Code)
	default:
		return []Node{assistant(fallback(env.Message, "Unexpected response"))}
	}
}

func answerNodes(env envelope.Envelope) []Node {
	nodes := []Node{assistant(fallback(env.Message, env.Data.Summary))}
	interp := env.Data.Interpretation
	if interp == "" {
		interp = env.Meta.Interpretation
	}
	if d, ok := detailSections(interp, env.Data.Result, env.Data.HasResult, env.Data.Explanation, env.Data.Code); ok {
		nodes = append(nodes, d)
	}
	return nodes
}

func clarificationNodes(env envelope.Envelope) []Node {
	nodes := []Node{assistant(fallback(env.Message, env.Data.Question, clarifyPrompt))}
	if opts, ok := optionRow(env.Data.Options); ok {
		nodes = append(nodes, opts)
	}
	return nodes
}

func outOfScopeNodes(env envelope.Envelope) []Node {
	nodes := []Node{assistant(fallback(env.Message, outOfScopePrompt))}
	if env.Data.HowToRephrase != "" {
		nodes = append(nodes, assistant("How to rephrase: "+env.Data.HowToRephrase))
	}
	if len(env.Data.CandidateModels) > 0 {
		nodes = append(nodes, assistant("Possible entities: "+strings.Join(env.Data.CandidateModels, ", ")))
	}
	return nodes
}

func errorNodes(text, code string) []Node {
	nodes := []Node{assistant(fallback(text, "Error"))}
	if code != "" {
		nodes = append(nodes, Details{Sections: []Section{{Label: "Details", Text: code}}})
	}
	return nodes
}

// HistoryItem classifies one persisted record and routes it like a live
// envelope. Older records predate explicit kind tagging, so the kind is
// inferred from which meta fields were stored.
func HistoryItem(msg model.Message) []Node {
	if msg.Role == model.RoleUser {
		return []Node{Bubble{Role: model.RoleUser, Text: msg.Content}}
	}
	meta := msg.Meta
	if meta == nil {
		meta = &model.MessageMeta{}
	}
	kind := meta.ResponseType
	if kind == "" && meta.Error != "" {
		kind = "error"
	}
	if kind == "" && (meta.Result != nil || meta.Code != "" || meta.Explanation != "") {
		kind = "answer"
	}
	switch kind {
	case "error":
		return errorNodes(fallback(meta.Error, msg.Content, "Error"), meta.Code)
	case "clarification":
		nodes := []Node{assistant(msg.Content)}
		if opts, ok := optionRow(meta.Options); ok {
			nodes = append(nodes, opts)
		}
		return nodes
	case "out_of_scope":
		return []Node{assistant(msg.Content)}
	default:
		nodes := []Node{assistant(msg.Content)}
		if d, ok := detailSections(meta.Interpretation, meta.Result, meta.Result != nil, meta.Explanation, meta.Code); ok {
			nodes = append(nodes, d)
		}
		return nodes
	}
}

// Transcript renders a full loaded history.
func Transcript(msgs []model.Message) []Node {
	var nodes []Node
	for _, m := range msgs {
		nodes = append(nodes, HistoryItem(m)...)
	}
	return nodes
}

// detailSections builds the shared details panel: one disclosure per
// available field, in a fixed order.
func detailSections(interpretation string, result json.RawMessage, hasResult bool, explanation, code string) (Details, bool) {
	var sections []Section
	if interpretation != "" {
		sections = append(sections, Section{Label: "Interpretation", Text: interpretation})
	}
	if hasResult {
		sections = append(sections, Section{Label: "Result", Text: FormatResult(result)})
	}
	if explanation != "" {
		sections = append(sections, Section{Label: "Explanation", Text: explanation})
	}
	if code != "" {
		sections = append(sections, Section{Label: "Code", Text: code})
	}
	if len(sections) == 0 {
		return Details{}, false
	}
	return Details{Sections: sections}, true
}

// optionRow resolves option labels, skipping entries with no usable label.
func optionRow(opts []model.Option) (Options, bool) {
	var items []Option
	for _, o := range opts {
		if label := o.DisplayLabel(); label != "" {
			items = append(items, Option{Label: label})
		}
	}
	if len(items) == 0 {
		return Options{}, false
	}
	return Options{Items: items}, true
}

// FormatResult serializes an arbitrary result payload for display.
// Serialization failure falls back to the raw text rather than failing the
// render.
func FormatResult(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(pretty)
}

func assistant(text string) Bubble {
	return Bubble{Role: model.RoleAssistant, Text: text}
}

// fallback returns the first non-empty candidate.
func fallback(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
