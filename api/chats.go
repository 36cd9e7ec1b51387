package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/assistkit/assistpanel/model"
)

// ListChats returns the chat summaries for the current user. Ordering is not
// guaranteed by the service; callers sort with model.SortChats.
func (c *Client) ListChats(ctx context.Context) ([]model.ChatSummary, error) {
	res, err := c.Do(ctx, http.MethodGet, "api/chats", nil)
	if err != nil {
		return nil, err
	}
	if res.JSON == nil {
		return nil, fmt.Errorf("listing chats: unexpected %d response", res.Status)
	}
	var chats []model.ChatSummary
	if err := json.Unmarshal(res.JSON, &chats); err != nil {
		return nil, fmt.Errorf("parsing chat list: %w", err)
	}
	return chats, nil
}

// CreateChat creates a persisted chat with the given title and returns it.
func (c *Client) CreateChat(ctx context.Context, title string) (model.ChatSummary, error) {
	res, err := c.Do(ctx, http.MethodPost, "api/chats", map[string]string{"title": title})
	if err != nil {
		return model.ChatSummary{}, err
	}
	if res.JSON == nil {
		return model.ChatSummary{}, fmt.Errorf("creating chat: unexpected %d response", res.Status)
	}
	var chat model.ChatSummary
	if err := json.Unmarshal(res.JSON, &chat); err != nil {
		return model.ChatSummary{}, fmt.Errorf("parsing created chat: %w", err)
	}
	if chat.ID == "" {
		return model.ChatSummary{}, fmt.Errorf("creating chat: service returned no id")
	}
	return chat, nil
}

// GetChat loads one chat with its full transcript.
func (c *Client) GetChat(ctx context.Context, id model.ID) (model.Chat, error) {
	res, err := c.Do(ctx, http.MethodGet, "api/chats/"+string(id), nil)
	if err != nil {
		return model.Chat{}, err
	}
	if res.JSON == nil {
		return model.Chat{}, fmt.Errorf("loading chat %s: unexpected %d response", id, res.Status)
	}
	var chat model.Chat
	if err := json.Unmarshal(res.JSON, &chat); err != nil {
		return model.Chat{}, fmt.Errorf("parsing chat %s: %w", id, err)
	}
	return chat, nil
}

// DeleteChat removes a chat. The service answers 204 on success or a JSON
// error body on failure.
func (c *Client) DeleteChat(ctx context.Context, id model.ID) error {
	res, err := c.Do(ctx, http.MethodDelete, "api/chats/"+string(id), nil)
	if err != nil {
		return err
	}
	if res.NoContent {
		return nil
	}
	if res.JSON != nil && res.Status < 400 {
		// Some deployments answer 200 with a body instead of 204.
		var probe struct {
			Error any `json:"error"`
		}
		if json.Unmarshal(res.JSON, &probe) == nil && probe.Error == nil {
			return nil
		}
	}
	return fmt.Errorf("deleting chat %s: service answered %d", id, res.Status)
}

// PostMessage sends one user message to a chat and returns the raw transport
// result. The payload arrives in one of several historical shapes, so the
// caller runs it through envelope.Normalize rather than decoding here.
func (c *Client) PostMessage(ctx context.Context, id model.ID, content string) (Result, error) {
	return c.Do(ctx, http.MethodPost, "api/chats/"+string(id)+"/message", map[string]string{"content": content})
}

// SettingsStatus reports whether the assistant backend is configured.
type SettingsStatus struct {
	Configured bool   `json:"configured"`
	Model      string `json:"model"`
	Provider   string `json:"provider"`
	TimeoutSec int    `json:"timeout_sec"`
	UpdatedAt  string `json:"updated_at"`
	ServerTime string `json:"server_time"`
}

// CheckSettings queries the service configuration health endpoint.
func (c *Client) CheckSettings(ctx context.Context) (SettingsStatus, error) {
	res, err := c.Do(ctx, http.MethodGet, "api/settings/check", nil)
	if err != nil {
		return SettingsStatus{}, err
	}
	if res.JSON == nil {
		return SettingsStatus{}, fmt.Errorf("checking settings: unexpected %d response", res.Status)
	}
	var st SettingsStatus
	if err := json.Unmarshal(res.JSON, &st); err != nil {
		return SettingsStatus{}, fmt.Errorf("parsing settings status: %w", err)
	}
	return st, nil
}
