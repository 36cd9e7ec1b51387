package envelope

import (
	"encoding/json"

	"github.com/assistkit/assistpanel/api"
	"github.com/assistkit/assistpanel/model"
)

// unexpectedMessage is the terminal fallback for payloads no matcher claims.
const unexpectedMessage = "Unexpected response"

// Normalize maps a raw transport result onto exactly one canonical envelope.
// It is total: every input, including malformed JSON and empty bodies,
// yields a valid envelope, degrading to KindError rather than failing.
func Normalize(res api.Result) Envelope {
	raw := rawPayload{}
	if res.NonJSON {
		raw.Text = res.Text
	} else if len(res.JSON) > 0 {
		if err := json.Unmarshal(res.JSON, &raw); err != nil {
			return unexpected()
		}
	}
	for _, match := range matchers {
		if env, ok := match(raw); ok {
			return env
		}
	}
	return unexpected()
}

// rawPayload probes every field any known shape may carry. RawMessage fields
// distinguish absent keys (nil) from explicit nulls.
type rawPayload struct {
	Type        string          `json:"type"`
	Message     string          `json:"message"`
	Data        json.RawMessage `json:"data"`
	Meta        json.RawMessage `json:"meta"`
	Summary     json.RawMessage `json:"summary"`
	Result      json.RawMessage `json:"result"`
	Truncated   bool            `json:"truncated"`
	Explanation string          `json:"explanation"`
	Code        string          `json:"code"`
	Error       json.RawMessage `json:"error"`
	Text        string          `json:"text"`
}

// matcher inspects one payload shape. Matchers are tried in priority order;
// each is total and side-effect-free.
type matcher func(raw rawPayload) (Envelope, bool)

var matchers = []matcher{
	matchCanonical,
	matchLegacyAnswer,
	matchStructuredError,
	matchRawText,
}

// matchCanonical passes through payloads the service already normalized
// upstream (a "type" field is present).
func matchCanonical(raw rawPayload) (Envelope, bool) {
	if raw.Type == "" {
		return Envelope{}, false
	}
	env := Envelope{Kind: Kind(raw.Type), Message: raw.Message}
	if len(raw.Data) > 0 {
		var wd wireData
		if json.Unmarshal(raw.Data, &wd) == nil {
			env.Data = wd.toData()
		}
	}
	if len(raw.Meta) > 0 {
		var wm wireMeta
		if json.Unmarshal(raw.Meta, &wm) == nil {
			env.Meta = Meta(wm)
		}
	}
	return env, true
}

// matchLegacyAnswer handles the pre-envelope success shape keyed on a
// top-level "summary". Presence (even of an empty string) is what matters;
// only an absent or null summary falls through.
func matchLegacyAnswer(raw rawPayload) (Envelope, bool) {
	if !present(raw.Summary) {
		return Envelope{}, false
	}
	summary := coerceString(raw.Summary)
	return Envelope{
		Kind:    KindAnswer,
		Message: summary,
		Data: Data{
			Summary:     summary,
			Result:      raw.Result,
			HasResult:   raw.Result != nil,
			Truncated:   raw.Truncated,
			Explanation: raw.Explanation,
			Code:        raw.Code,
		},
	}, true
}

// matchStructuredError handles the shape {"error": "...", "code": "..."}.
func matchStructuredError(raw rawPayload) (Envelope, bool) {
	if !truthy(raw.Error) {
		return Envelope{}, false
	}
	msg := coerceString(raw.Error)
	if msg == "" {
		msg = "Error"
	}
	return Envelope{
		Kind:    KindError,
		Message: msg,
		Data:    Data{Error: msg, Code: raw.Code},
	}, true
}

// matchRawText handles the non-JSON transport fallback.
func matchRawText(raw rawPayload) (Envelope, bool) {
	if raw.Text == "" {
		return Envelope{}, false
	}
	return Envelope{
		Kind:    KindError,
		Message: raw.Text,
		Data:    Data{Error: raw.Text},
	}, true
}

func unexpected() Envelope {
	return Envelope{Kind: KindError, Message: unexpectedMessage}
}

// wireData mirrors the canonical envelope's "data" object on the wire.
type wireData struct {
	Summary         string          `json:"summary"`
	Result          json.RawMessage `json:"result"`
	Truncated       bool            `json:"truncated"`
	Explanation     string          `json:"explanation"`
	Code            string          `json:"code"`
	Interpretation  string          `json:"interpretation"`
	Question        string          `json:"question"`
	Options         []model.Option  `json:"options"`
	HowToRephrase   string          `json:"how_to_rephrase"`
	CandidateModels []string        `json:"candidate_models"`
	Error           string          `json:"error"`
}

func (wd wireData) toData() Data {
	return Data{
		Summary:         wd.Summary,
		Result:          wd.Result,
		HasResult:       wd.Result != nil,
		Truncated:       wd.Truncated,
		Explanation:     wd.Explanation,
		Code:            wd.Code,
		Interpretation:  wd.Interpretation,
		Question:        wd.Question,
		Options:         wd.Options,
		HowToRephrase:   wd.HowToRephrase,
		CandidateModels: wd.CandidateModels,
		Error:           wd.Error,
	}
}

type wireMeta struct {
	Interpretation  string   `json:"interpretation"`
	TraceID         string   `json:"trace_id"`
	CandidateModels []string `json:"candidate_models"`
}

// present reports whether a key was present with a non-null value.
func present(raw json.RawMessage) bool {
	return raw != nil && string(raw) != "null"
}

// truthy mirrors the loose presence checks older clients applied: absent,
// null, false, zero, and the empty string all fall through to the next
// matcher.
func truthy(raw json.RawMessage) bool {
	if !present(raw) {
		return false
	}
	switch string(raw) {
	case "false", "0", `""`:
		return false
	}
	return true
}

// coerceString renders a scalar as its string value and anything else as
// compact JSON. Used where historical payloads carried non-string values in
// string positions.
func coerceString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
