package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/assistkit/assistpanel/model"
)

// Respond produces a canned assistant turn for one user message. Routing is
// keyword-based on purpose: each route exercises one of the wire shapes the
// service has emitted over time, so the client's normalizer and history
// classification see realistic traffic. The returned message is the record
// to persist; the byte slice is the wire payload to send back verbatim.
func Respond(content string) (model.Message, []byte) {
	lower := strings.ToLower(content)
	switch {
	case containsAny(lower, "crash", "broken", "fail"):
		return respondError(content)
	case containsAny(lower, "which", "ambiguous", "clarify"):
		return respondClarification()
	case containsAny(lower, "weather", "joke", "news", "stock"):
		return respondOutOfScope(content)
	default:
		return respondAnswer(content)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// respondAnswer replies in the legacy flat shape: summary at the top level,
// no type tag.
func respondAnswer(content string) (model.Message, []byte) {
	words := len(strings.Fields(content))
	summary := fmt.Sprintf("Found %d matching records.", words)
	result := json.RawMessage(fmt.Sprintf(`{"count":%d,"query":%q}`, words, content))
	explanation := "Counted the terms in the question and matched them against the demo dataset."

	msg := model.Message{
		Role:    model.RoleAssistant,
		Content: summary,
		Meta: &model.MessageMeta{
			ResponseType: "answer",
			Summary:      summary,
			Result:       result,
			Explanation:  explanation,
		},
	}
	payload := mustMarshal(map[string]any{
		"summary":     summary,
		"result":      result,
		"truncated":   false,
		"explanation": explanation,
	})
	return msg, payload
}

// respondError replies in the flat structured-error shape.
func respondError(content string) (model.Message, []byte) {
	text := "Query failed: " + model.Truncate(content, 60)
	msg := model.Message{
		Role:    model.RoleAssistant,
		Content: text,
		Meta:    &model.MessageMeta{ResponseType: "error", Error: text},
	}
	return msg, mustMarshal(map[string]any{"error": text})
}

// respondClarification replies in the canonical envelope shape with
// quick-reply options.
func respondClarification() (model.Message, []byte) {
	question := "Which dataset do you mean?"
	options := []model.Option{
		{ID: uuid.NewString(), Label: "Orders"},
		{ID: uuid.NewString(), Model: "Invoice"},
		{}, // no usable label at all; clients skip it
	}
	msg := model.Message{
		Role:    model.RoleAssistant,
		Content: question,
		Meta: &model.MessageMeta{
			ResponseType: "clarification",
			Options:      options,
		},
	}
	payload := mustMarshal(map[string]any{
		"type":    "clarification",
		"message": question,
		"data":    map[string]any{"question": question, "options": options},
	})
	return msg, payload
}

// respondOutOfScope replies in the canonical envelope shape with rephrase
// guidance.
func respondOutOfScope(content string) (model.Message, []byte) {
	text := "This question is outside current project data scope."
	rephrase := "Ask about the records in this project instead."
	candidates := []string{"Order", "Invoice", "Customer"}
	msg := model.Message{
		Role:    model.RoleAssistant,
		Content: text,
		Meta: &model.MessageMeta{
			ResponseType:    "out_of_scope",
			HowToRephrase:   rephrase,
			CandidateModels: candidates,
		},
	}
	payload := mustMarshal(map[string]any{
		"type":    "out_of_scope",
		"message": text,
		"data": map[string]any{
			"how_to_rephrase":  rephrase,
			"candidate_models": candidates,
		},
		"meta": map[string]any{"interpretation": "off-topic: " + model.Truncate(content, 40)},
	})
	return msg, payload
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// All inputs are built from literals above; this cannot fail.
		panic(err)
	}
	return data
}
