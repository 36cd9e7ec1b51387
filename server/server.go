// Package server is a self-contained assistant service used for local
// development and end-to-end tests. It implements the same HTTP surface the
// client targets in production, backed by SQLite and a deterministic
// responder instead of a language model.
package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/assistkit/assistpanel/api"
	"github.com/assistkit/assistpanel/model"
	"github.com/assistkit/assistpanel/store/sqlite"
)

// titleMaxLen caps a title adopted from the first user message.
const titleMaxLen = 120

const csrfCookieName = "csrftoken"

// Handler serves the assistant HTTP API under a configurable base path.
type Handler struct {
	store  *sqlite.Store
	base   string
	router chi.Router
}

// New creates a handler over the given store, mounted under basePath.
func New(store *sqlite.Store, basePath string) *Handler {
	h := &Handler{store: store, base: api.NormalizeBasePath(basePath)}
	h.router = h.buildRouter()
	return h
}

// Router returns the HTTP router.
func (h *Handler) Router() chi.Router {
	return h.router
}

func (h *Handler) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(h.csrf)

	r.Route(h.base+"/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/chats", h.handleListChats)
		r.Post("/chats", h.handleCreateChat)
		r.Get("/chats/{id}", h.handleGetChat)
		r.Delete("/chats/{id}", h.handleDeleteChat)
		r.Post("/chats/{id}/message", h.handleSendMessage)
		r.Get("/settings/check", h.handleSettingsCheck)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return r
}

// csrf implements double-submit protection: safe requests are issued a
// token cookie, unsafe requests must echo it in the X-CSRFToken header.
func (h *Handler) csrf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(csrfCookieName)
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			if err != nil {
				http.SetCookie(w, &http.Cookie{
					Name:     csrfCookieName,
					Value:    newToken(),
					Path:     "/",
					SameSite: http.SameSiteLaxMode,
				})
			}
		default:
			if err != nil || cookie.Value == "" || r.Header.Get("X-CSRFToken") != cookie.Value {
				writeError(w, http.StatusForbidden, "CSRF verification failed")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func newToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(b)
}

// --- Request/Response types ---

type createChatRequest struct {
	Title string `json:"title"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Handlers ---

func (h *Handler) handleListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.store.ListChats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list chats")
		log.Printf("server: listing chats: %v", err)
		return
	}
	if chats == nil {
		chats = []model.ChatSummary{}
	}
	writeJSON(w, http.StatusOK, chats)
}

func (h *Handler) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New chat"
	}

	chat, err := h.store.CreateChat(model.ID(uuid.NewString()), title)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create chat")
		log.Printf("server: creating chat: %v", err)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

func (h *Handler) handleGetChat(w http.ResponseWriter, r *http.Request) {
	id := model.ID(chi.URLParam(r, "id"))
	summary, err := h.store.GetChat(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	msgs, err := h.store.GetMessages(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		log.Printf("server: loading messages for %s: %v", id, err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	writeJSON(w, http.StatusOK, model.Chat{ID: summary.ID, Title: summary.Title, Messages: msgs})
}

func (h *Handler) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	id := model.ID(chi.URLParam(r, "id"))
	if err := h.store.DeleteChat(id); err != nil {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := model.ID(chi.URLParam(r, "id"))
	chat, err := h.store.GetChat(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	existing, err := h.store.GetMessages(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		log.Printf("server: loading messages for %s: %v", id, err)
		return
	}

	if err := h.store.AddMessage(id, &model.Message{Role: model.RoleUser, Content: content}); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store message")
		log.Printf("server: storing message for %s: %v", id, err)
		return
	}

	// The first user message names the conversation.
	if len(existing) == 0 && (chat.Title == "" || chat.Title == "New chat") {
		if err := h.store.SetTitle(id, model.Truncate(content, titleMaxLen)); err != nil {
			log.Printf("server: adopting title for %s: %v", id, err)
		}
	}

	reply, payload := Respond(content)
	if err := h.store.AddMessage(id, &reply); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store reply")
		log.Printf("server: storing reply for %s: %v", id, err)
		return
	}
	if err := h.store.Touch(id); err != nil {
		log.Printf("server: touching %s: %v", id, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		log.Printf("server: writing response for %s: %v", id, err)
	}
}

func (h *Handler) handleSettingsCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.SettingsStatus{
		Configured: true,
		Model:      "rule-based",
		Provider:   "demo",
		TimeoutSec: 30,
		ServerTime: time.Now().UTC().Format(time.RFC3339),
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
