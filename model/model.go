// Package model defines the core domain types shared across all assistpanel
// packages. It has zero dependencies on other assistpanel packages.
package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ID is an opaque chat identifier. The service has emitted both numeric and
// string ids over time, so it unmarshals from either.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// ChatSummary is one entry in the chat list as returned by the service.
// Timestamps are kept as raw strings; a parse failure must not lose the
// entry, it only demotes it in ordering.
type ChatSummary struct {
	ID           ID     `json:"id"`
	Title        string `json:"title"`
	CurrentTopic string `json:"current_topic,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// Chat is a full conversation: summary fields plus the loaded transcript.
type Chat struct {
	ID       ID        `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// Message is a single persisted transcript entry.
type Message struct {
	ID        int64        `json:"id,omitempty"`
	Role      Role         `json:"role"`
	Content   string       `json:"content"`
	Meta      *MessageMeta `json:"meta,omitempty"`
	CreatedAt string       `json:"created_at,omitempty"`
}

// MessageMeta is the auxiliary bag stored alongside assistant messages.
// Older records predate the response_type tag, so every field is optional.
type MessageMeta struct {
	ResponseType    string          `json:"response_type,omitempty"`
	Summary         string          `json:"summary,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
	Truncated       bool            `json:"truncated,omitempty"`
	Explanation     string          `json:"explanation,omitempty"`
	Code            string          `json:"code,omitempty"`
	Interpretation  string          `json:"interpretation,omitempty"`
	Error           string          `json:"error,omitempty"`
	Options         []Option        `json:"options,omitempty"`
	CandidateModels []string        `json:"candidate_models,omitempty"`
	HowToRephrase   string          `json:"how_to_rephrase,omitempty"`
}

// Option is one selectable quick-reply in a clarification turn.
type Option struct {
	ID    string `json:"id,omitempty"`
	Label string `json:"label,omitempty"`
	Model string `json:"model,omitempty"`
}

// DisplayLabel resolves the visible label for an option: label, else model,
// else id. Empty means the option is unusable and should be skipped.
func (o Option) DisplayLabel() string {
	if o.Label != "" {
		return o.Label
	}
	if o.Model != "" {
		return o.Model
	}
	return o.ID
}

// timestampLayouts covers the formats the service has been seen to emit.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a service timestamp. The boolean reports whether
// the value was parseable.
func ParseTimestamp(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// EffectiveTime is the ordering key for a chat list entry: updated_at,
// falling back to created_at. Unparsable values sort as the Unix epoch.
func (c ChatSummary) EffectiveTime() time.Time {
	if t, ok := ParseTimestamp(c.UpdatedAt); ok {
		return t
	}
	if t, ok := ParseTimestamp(c.CreatedAt); ok {
		return t
	}
	return time.Unix(0, 0).UTC()
}

// SortChats orders chats newest-first by effective timestamp. The sort is
// stable so equal (including all-unparsable) entries keep server order.
func SortChats(chats []ChatSummary) {
	// Insertion sort keeps this stable; chat lists are small.
	for i := 1; i < len(chats); i++ {
		for j := i; j > 0 && chats[j].EffectiveTime().After(chats[j-1].EffectiveTime()); j-- {
			chats[j], chats[j-1] = chats[j-1], chats[j]
		}
	}
}

// RelativeTime renders a service timestamp relative to now ("just now",
// "5m ago", ...). Returns "" when the value cannot be parsed.
func RelativeTime(value string, now time.Time) string {
	t, ok := ParseTimestamp(value)
	if !ok {
		return ""
	}
	diff := now.Sub(t)
	if diff < 0 {
		diff = 0
	}
	sec := int64(diff.Seconds())
	switch {
	case sec < 45:
		return "just now"
	case sec < 3600:
		return strconv.FormatInt(sec/60, 10) + "m ago"
	case sec < 86400:
		return strconv.FormatInt(sec/3600, 10) + "h ago"
	case sec < 7*86400:
		return strconv.FormatInt(sec/86400, 10) + "d ago"
	default:
		return strconv.FormatInt(sec/(7*86400), 10) + "w ago"
	}
}

// Truncate shortens a string to maxLen runes, adding "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 3 {
		r := []rune(s)
		if len(r) <= maxLen {
			return s
		}
		return string(r[:maxLen])
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
