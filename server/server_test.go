package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/assistkit/assistpanel/model"
	"github.com/assistkit/assistpanel/store/sqlite"
)

func testHandler(t *testing.T) *Handler {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return New(st, "/ai-assistant")
}

// request performs one request against the handler, echoing the CSRF token
// the way a browser (or the api client) would.
func request(t *testing.T, h *Handler, method, path, body, csrf string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if csrf != "" {
		req.AddCookie(&http.Cookie{Name: "csrftoken", Value: csrf})
		req.Header.Set("X-CSRFToken", csrf)
	}
	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, req)
	return w
}

func createChat(t *testing.T, h *Handler, title string) model.ChatSummary {
	t.Helper()
	w := request(t, h, http.MethodPost, "/ai-assistant/api/chats", `{"title":"`+title+`"}`, "tok")
	if w.Code != http.StatusCreated {
		t.Fatalf("create chat: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var chat model.ChatSummary
	if err := json.Unmarshal(w.Body.Bytes(), &chat); err != nil {
		t.Fatalf("decoding created chat: %v", err)
	}
	return chat
}

func TestHealthEndpoint(t *testing.T) {
	h := testHandler(t)
	w := request(t, h, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Fatalf("expected 'ok', got %q", w.Body.String())
	}
}

func TestMutationWithoutCSRFTokenIsRejected(t *testing.T) {
	h := testHandler(t)
	w := request(t, h, http.MethodPost, "/ai-assistant/api/chats", `{"title":"t"}`, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestSafeRequestIssuesCSRFCookie(t *testing.T) {
	h := testHandler(t)
	w := request(t, h, http.MethodGet, "/ai-assistant/api/chats", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "csrftoken" && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected csrftoken cookie on first GET")
	}
}

func TestChatLifecycle(t *testing.T) {
	h := testHandler(t)
	chat := createChat(t, h, "New chat")
	if chat.ID == "" {
		t.Fatal("expected created chat to carry an id")
	}

	w := request(t, h, http.MethodGet, "/ai-assistant/api/chats", "", "")
	var chats []model.ChatSummary
	if err := json.Unmarshal(w.Body.Bytes(), &chats); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(chats) != 1 || chats[0].ID != chat.ID {
		t.Fatalf("unexpected list: %+v", chats)
	}

	w = request(t, h, http.MethodDelete, "/ai-assistant/api/chats/"+string(chat.ID), "", "tok")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}

	w = request(t, h, http.MethodGet, "/ai-assistant/api/chats/"+string(chat.ID), "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestFirstMessageAdoptsTitle(t *testing.T) {
	h := testHandler(t)
	chat := createChat(t, h, "New chat")

	question := "how many orders shipped last week"
	w := request(t, h, http.MethodPost,
		"/ai-assistant/api/chats/"+string(chat.ID)+"/message",
		`{"content":"`+question+`"}`, "tok")
	if w.Code != http.StatusOK {
		t.Fatalf("send: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	g := request(t, h, http.MethodGet, "/ai-assistant/api/chats/"+string(chat.ID), "", "")
	var full model.Chat
	if err := json.Unmarshal(g.Body.Bytes(), &full); err != nil {
		t.Fatalf("decoding chat: %v", err)
	}
	if full.Title != question {
		t.Fatalf("expected adopted title %q, got %q", question, full.Title)
	}
	if len(full.Messages) != 2 {
		t.Fatalf("expected user+assistant messages, got %d", len(full.Messages))
	}
	if full.Messages[0].Role != model.RoleUser || full.Messages[1].Role != model.RoleAssistant {
		t.Fatalf("unexpected roles: %+v", full.Messages)
	}
}

func TestSecondMessageKeepsTitle(t *testing.T) {
	h := testHandler(t)
	chat := createChat(t, h, "New chat")

	for _, content := range []string{"first question", "second question"} {
		w := request(t, h, http.MethodPost,
			"/ai-assistant/api/chats/"+string(chat.ID)+"/message",
			`{"content":"`+content+`"}`, "tok")
		if w.Code != http.StatusOK {
			t.Fatalf("send %q: expected 200, got %d", content, w.Code)
		}
	}

	g := request(t, h, http.MethodGet, "/ai-assistant/api/chats/"+string(chat.ID), "", "")
	var full model.Chat
	if err := json.Unmarshal(g.Body.Bytes(), &full); err != nil {
		t.Fatalf("decoding chat: %v", err)
	}
	if full.Title != "first question" {
		t.Fatalf("title must stick to the first question, got %q", full.Title)
	}
}

func TestSendMessageBlankContentRejected(t *testing.T) {
	h := testHandler(t)
	chat := createChat(t, h, "t")
	w := request(t, h, http.MethodPost,
		"/ai-assistant/api/chats/"+string(chat.ID)+"/message",
		`{"content":"   "}`, "tok")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSendMessageUnknownChat(t *testing.T) {
	h := testHandler(t)
	w := request(t, h, http.MethodPost,
		"/ai-assistant/api/chats/nope/message", `{"content":"q"}`, "tok")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestSettingsCheck(t *testing.T) {
	h := testHandler(t)
	w := request(t, h, http.MethodGet, "/ai-assistant/api/settings/check", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var st struct {
		Configured bool   `json:"configured"`
		Provider   string `json:"provider"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if !st.Configured || st.Provider != "demo" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestRespondShapes(t *testing.T) {
	cases := []struct {
		name    string
		content string
		check   func(t *testing.T, payload map[string]json.RawMessage)
	}{
		{
			name:    "default is legacy answer",
			content: "how many orders",
			check: func(t *testing.T, payload map[string]json.RawMessage) {
				if _, ok := payload["summary"]; !ok {
					t.Fatal("expected top-level summary")
				}
				if _, ok := payload["type"]; ok {
					t.Fatal("legacy shape must not carry a type tag")
				}
			},
		},
		{
			name:    "failure keywords yield flat error",
			content: "why did the import fail",
			check: func(t *testing.T, payload map[string]json.RawMessage) {
				if _, ok := payload["error"]; !ok {
					t.Fatal("expected top-level error")
				}
			},
		},
		{
			name:    "ambiguity yields canonical clarification",
			content: "which one",
			check: func(t *testing.T, payload map[string]json.RawMessage) {
				var typ string
				if err := json.Unmarshal(payload["type"], &typ); err != nil || typ != "clarification" {
					t.Fatalf("expected type clarification, got %s", payload["type"])
				}
			},
		},
		{
			name:    "off-topic yields canonical out_of_scope",
			content: "what is the weather",
			check: func(t *testing.T, payload map[string]json.RawMessage) {
				var typ string
				if err := json.Unmarshal(payload["type"], &typ); err != nil || typ != "out_of_scope" {
					t.Fatalf("expected type out_of_scope, got %s", payload["type"])
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, raw := Respond(tc.content)
			if msg.Role != model.RoleAssistant {
				t.Fatalf("expected assistant reply, got %s", msg.Role)
			}
			var payload map[string]json.RawMessage
			if err := json.Unmarshal(raw, &payload); err != nil {
				t.Fatalf("payload is not JSON: %v", err)
			}
			tc.check(t, payload)
		})
	}
}
