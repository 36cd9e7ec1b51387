// Package envelope unifies raw assistant responses into one canonical form.
//
// The service has changed its payload shape over time and across code paths:
// structured success, structured failure, and a raw-text fallback when the
// body is not JSON. Normalize isolates that churn so rendering only ever
// sees a canonical envelope.
package envelope

import (
	"encoding/json"

	"github.com/assistkit/assistpanel/model"
)

// Kind classifies one assistant turn.
type Kind string

const (
	KindAnswer        Kind = "answer"
	KindClarification Kind = "clarification"
	KindOutOfScope    Kind = "out_of_scope"
	KindError         Kind = "error"
	KindUnknown       Kind = "unknown"
)

// Envelope is the canonical in-memory representation of one assistant turn.
type Envelope struct {
	Kind    Kind
	Message string
	Data    Data
	Meta    Meta
}

// Data carries the kind-specific payload fields. Result keeps the raw JSON
// because its structure is arbitrary; HasResult distinguishes an absent
// result from an explicit null.
type Data struct {
	Summary         string
	Result          json.RawMessage
	HasResult       bool
	Truncated       bool
	Explanation     string
	Code            string
	Interpretation  string
	Question        string
	Options         []model.Option
	HowToRephrase   string
	CandidateModels []string
	Error           string
}

// Meta carries auxiliary fields the service attaches to canonical envelopes.
type Meta struct {
	Interpretation  string
	TraceID         string
	CandidateModels []string
}
