package envelope

import (
	"testing"

	"github.com/assistkit/assistpanel/api"
)

func jsonResult(body string) api.Result {
	return api.Result{Status: 200, JSON: []byte(body)}
}

func TestNormalizeLegacyAnswer(t *testing.T) {
	env := Normalize(jsonResult(`{"summary":"3 orders","result":[1,2,3],"truncated":false}`))
	if env.Kind != KindAnswer {
		t.Fatalf("expected kind answer, got %q", env.Kind)
	}
	if env.Message != "3 orders" {
		t.Fatalf("expected message '3 orders', got %q", env.Message)
	}
	if env.Data.Summary != "3 orders" {
		t.Fatalf("expected summary '3 orders', got %q", env.Data.Summary)
	}
	if !env.Data.HasResult || string(env.Data.Result) != "[1,2,3]" {
		t.Fatalf("expected result [1,2,3], got %q (has=%v)", env.Data.Result, env.Data.HasResult)
	}
	if env.Data.Truncated {
		t.Fatal("expected truncated=false")
	}
	if env.Data.Explanation != "" || env.Data.Code != "" {
		t.Fatalf("expected empty explanation/code defaults, got %q/%q", env.Data.Explanation, env.Data.Code)
	}
}

func TestNormalizeLegacyAnswerEmptySummary(t *testing.T) {
	// An empty summary is still the answer shape; only absence falls through.
	env := Normalize(jsonResult(`{"summary":""}`))
	if env.Kind != KindAnswer {
		t.Fatalf("expected kind answer, got %q", env.Kind)
	}
	if env.Data.HasResult {
		t.Fatal("expected no result")
	}
}

func TestNormalizeStructuredError(t *testing.T) {
	env := Normalize(jsonResult(`{"error":"Model not found"}`))
	if env.Kind != KindError {
		t.Fatalf("expected kind error, got %q", env.Kind)
	}
	if env.Message != "Model not found" {
		t.Fatalf("expected message 'Model not found', got %q", env.Message)
	}
	if env.Data.Error != "Model not found" || env.Data.Code != "" {
		t.Fatalf("expected data {error, code:''}, got %+v", env.Data)
	}
}

func TestNormalizeErrorWithCode(t *testing.T) {
	env := Normalize(jsonResult(`{"error":"boom","code":"Traceback ..."}`))
	if env.Kind != KindError || env.Data.Code != "Traceback ..." {
		t.Fatalf("expected error with code, got %+v", env)
	}
}

func TestNormalizeNonJSONFallback(t *testing.T) {
	env := Normalize(api.Result{Status: 500, NonJSON: true, Text: "<html>500</html>"})
	if env.Kind != KindError {
		t.Fatalf("expected kind error, got %q", env.Kind)
	}
	if env.Message != "<html>500</html>" {
		t.Fatalf("expected raw text message, got %q", env.Message)
	}
	if env.Data.Error != "<html>500</html>" {
		t.Fatalf("expected data.error to carry the text, got %q", env.Data.Error)
	}
}

func TestNormalizeCanonicalPassthrough(t *testing.T) {
	body := `{
		"type": "clarification",
		"message": "Which model?",
		"data": {
			"question": "Which model?",
			"options": [{"id":"1","label":"Orders","model":"shop.Order"}]
		},
		"meta": {"interpretation": "ambiguous entity", "trace_id": "t-1"}
	}`
	env := Normalize(jsonResult(body))
	if env.Kind != KindClarification {
		t.Fatalf("expected kind clarification, got %q", env.Kind)
	}
	if env.Message != "Which model?" {
		t.Fatalf("expected message, got %q", env.Message)
	}
	if len(env.Data.Options) != 1 || env.Data.Options[0].Label != "Orders" {
		t.Fatalf("expected one option 'Orders', got %+v", env.Data.Options)
	}
	if env.Meta.Interpretation != "ambiguous entity" || env.Meta.TraceID != "t-1" {
		t.Fatalf("expected meta passthrough, got %+v", env.Meta)
	}
}

func TestNormalizeCanonicalUnknownKindPassesThrough(t *testing.T) {
	env := Normalize(jsonResult(`{"type":"surprise","message":"hi"}`))
	if env.Kind != Kind("surprise") {
		t.Fatalf("expected kind passthrough, got %q", env.Kind)
	}
}

func TestNormalizeUnrecognizedShape(t *testing.T) {
	cases := []api.Result{
		jsonResult(`{}`),
		jsonResult(`{"status":204}`),
		jsonResult(`{"summary":null}`),
		jsonResult(`{"error":""}`),
		jsonResult(`{"error":false}`),
		jsonResult(`not json at all`),
		{Status: 204, NoContent: true},
		{},
	}
	for i, res := range cases {
		env := Normalize(res)
		if env.Kind != KindError {
			t.Errorf("case %d: expected kind error, got %q", i, env.Kind)
		}
		if env.Message != "Unexpected response" {
			t.Errorf("case %d: expected 'Unexpected response', got %q", i, env.Message)
		}
	}
}

func TestNormalizePriorityErrorBeforeText(t *testing.T) {
	env := Normalize(jsonResult(`{"error":"real error","text":"ignored"}`))
	if env.Kind != KindError || env.Message != "real error" {
		t.Fatalf("expected the error shape to win, got %+v", env)
	}
}

func TestNormalizeTypeBeatsSummary(t *testing.T) {
	env := Normalize(jsonResult(`{"type":"answer","message":"canonical","summary":"legacy"}`))
	if env.Message != "canonical" {
		t.Fatalf("expected canonical shape to win, got %q", env.Message)
	}
}

func TestNormalizeResultNullIsStillPresent(t *testing.T) {
	env := Normalize(jsonResult(`{"summary":"ok","result":null}`))
	if !env.Data.HasResult {
		t.Fatal("expected explicit null result to count as present")
	}
}
