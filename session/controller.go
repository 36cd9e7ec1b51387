// Package session owns the chat-session lifecycle: which conversation is
// active, draft-to-persisted promotion, history loading, deletion, and the
// single-flight request guard around outgoing messages. All session and
// guard state lives on the Controller; no other package mutates it.
package session

import (
	"context"
	"log"
	"sync"

	"github.com/assistkit/assistpanel/api"
	"github.com/assistkit/assistpanel/model"
	"github.com/assistkit/assistpanel/render"
)

// State is the lifecycle position of the controller.
type State int

const (
	// StateListing shows the session list; no transcript is bound.
	StateListing State = iota
	// StateDraft is a new conversation that exists only in memory; it has
	// no identifier until the first successful send promotes it.
	StateDraft
	// StateActive is a persisted conversation bound to the transcript.
	StateActive
)

const (
	defaultTitle = "AI Assistant"
	draftTitle   = "New chat"

	sendFailureText    = "Something went wrong while waiting for a response. Please try again."
	deleteFailureText  = "Failed to delete chat. Please try again."
	historyFailureText = "Failed to load history"
)

// Service is the remote surface the controller depends on. *api.Client
// satisfies it; tests substitute fakes.
type Service interface {
	ListChats(ctx context.Context) ([]model.ChatSummary, error)
	CreateChat(ctx context.Context, title string) (model.ChatSummary, error)
	GetChat(ctx context.Context, id model.ID) (model.Chat, error)
	DeleteChat(ctx context.Context, id model.ID) error
	PostMessage(ctx context.Context, id model.ID, content string) (api.Result, error)
}

// Controller is the single owner of session state and the request guard.
// Hosts drive it from one goroutine at a time per operation; the internal
// mutex keeps snapshots consistent when a binding settles sends from a
// background command.
type Controller struct {
	svc Service

	mu       sync.Mutex
	state    State
	chatID   model.ID
	title    string
	inFlight bool
	// seq identifies the most recent send or navigation. A settle carrying
	// an older seq must not release a guard taken by a newer send.
	seq uint64
}

// New creates a controller in the listing state.
func New(svc Service) *Controller {
	return &Controller{svc: svc, title: defaultTitle}
}

// Snapshot is a consistent copy of the controller's visible state.
type Snapshot struct {
	State    State
	ChatID   model.ID
	Title    string
	InFlight bool
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{State: c.state, ChatID: c.chatID, Title: c.title, InFlight: c.inFlight}
}

// IsCurrent reports whether id is the session bound to the transcript.
// Hosts use it to drop late responses for conversations the user has left.
func (c *Controller) IsCurrent(id model.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return id != "" && c.chatID == id
}

// RefreshList fetches the session list, newest first. Unparsable timestamps
// sort as the oldest. The active chat's title is adopted from the list so
// renames elsewhere show up.
func (c *Controller) RefreshList(ctx context.Context) ([]model.ChatSummary, error) {
	chats, err := c.svc.ListChats(ctx)
	if err != nil {
		return nil, err
	}
	model.SortChats(chats)
	c.mu.Lock()
	for _, it := range chats {
		if it.ID == c.chatID && it.Title != "" {
			c.title = it.Title
		}
	}
	c.mu.Unlock()
	return chats, nil
}

// NewChat enters draft mode: empty transcript, no identifier, guard and any
// provisional indicator cleared even if a request was mid-flight.
func (c *Controller) NewChat() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateDraft
	c.chatID = ""
	c.title = draftTitle
	c.resetGuardLocked()
	return c.snapshotLocked()
}

// Back returns to the session list, clearing the active session and guard.
func (c *Controller) Back() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateListing
	c.chatID = ""
	c.title = defaultTitle
	c.resetGuardLocked()
	return c.snapshotLocked()
}

// Open binds a persisted session and reloads its transcript, replacing the
// previous one. The returned nodes are always renderable: a load failure
// degrades to a single failure bubble rather than an error the host must
// interpret.
func (c *Controller) Open(ctx context.Context, id model.ID, title string) []render.Node {
	c.mu.Lock()
	c.state = StateActive
	c.chatID = id
	if title != "" {
		c.title = title
	}
	c.resetGuardLocked()
	c.mu.Unlock()

	chat, err := c.svc.GetChat(ctx, id)
	if err != nil {
		log.Printf("session: loading history for %s: %v", id, err)
		return []render.Node{render.Bubble{Role: model.RoleAssistant, Text: historyFailureText}}
	}
	if chat.Title != "" {
		c.mu.Lock()
		c.title = chat.Title
		c.mu.Unlock()
	}
	return render.Transcript(chat.Messages)
}

// DeleteResult reports the outcome of a Delete call.
type DeleteResult struct {
	// Deleted is true when the server confirmed removal and the controller
	// returned to the listing state.
	Deleted bool
	// Nodes carries an inline failure bubble when the remote call failed;
	// session state is unchanged in that case.
	Nodes []render.Node
}

// Delete removes the active session. Without confirmation it performs zero
// network calls; deletion is irreversible, so hosts must ask first.
func (c *Controller) Delete(ctx context.Context, confirmed bool) DeleteResult {
	c.mu.Lock()
	id := c.chatID
	c.mu.Unlock()
	if id == "" || !confirmed {
		return DeleteResult{}
	}

	if err := c.svc.DeleteChat(ctx, id); err != nil {
		log.Printf("session: deleting %s: %v", id, err)
		return DeleteResult{Nodes: []render.Node{render.Bubble{Role: model.RoleAssistant, Text: deleteFailureText}}}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateListing
	c.chatID = ""
	c.title = defaultTitle
	c.resetGuardLocked()
	return DeleteResult{Deleted: true}
}

// resetGuardLocked clears the in-flight guard and invalidates outstanding
// sends so their late settles cannot release a future guard.
func (c *Controller) resetGuardLocked() {
	c.inFlight = false
	c.seq++
}
