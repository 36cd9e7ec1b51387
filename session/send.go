package session

import (
	"context"
	"log"
	"strings"

	"github.com/assistkit/assistpanel/envelope"
	"github.com/assistkit/assistpanel/model"
	"github.com/assistkit/assistpanel/render"
)

// SendStart is the immediate, pre-network phase of one send. When OK, the
// guard is held and Nodes carry the optimistic user echo plus the typing
// placeholder; the host renders them before any round trip happens.
type SendStart struct {
	OK    bool
	Text  string
	Nodes []render.Node

	seq uint64
}

// SendOutcome is the settle of one send. The guard has been released on
// every path that produces an outcome.
type SendOutcome struct {
	// ChatID is the session the response belongs to, captured at send time
	// (after draft promotion). Hosts compare it against the current session
	// and may drop the nodes on mismatch instead of rendering a stale
	// answer into an unrelated transcript.
	ChatID model.ID
	// Nodes is what to append to the transcript: the dispatched envelope,
	// or a single generic failure bubble.
	Nodes []render.Node
	// Promoted is true when this send turned a draft into a persisted
	// session. Hosts refresh the session list after any outcome; promotion
	// additionally changes the header title.
	Promoted bool
	// Failed is true for transport-level failures (the generic bubble).
	Failed bool
}

// BeginSend validates the preconditions for sending text and, when they
// hold, takes the request guard. A held guard, blank text, or the absence
// of any session (draft or persisted) makes the call a no-op.
func (c *Controller) BeginSend(text string) SendStart {
	trimmed := strings.TrimSpace(text)
	c.mu.Lock()
	defer c.mu.Unlock()
	if trimmed == "" || c.inFlight || c.state == StateListing {
		return SendStart{}
	}
	c.inFlight = true
	c.seq++
	return SendStart{
		OK:   true,
		Text: trimmed,
		Nodes: []render.Node{
			render.Bubble{Role: model.RoleUser, Text: trimmed},
			render.Typing{},
		},
		seq: c.seq,
	}
}

// CompleteSend performs the network phase of a send started with BeginSend:
// draft promotion if needed, then the message post, normalization, and
// dispatch. The guard is released on every exit path; that invariant is the
// most safety-critical one in this package.
func (c *Controller) CompleteSend(ctx context.Context, start SendStart) SendOutcome {
	if !start.OK {
		return SendOutcome{Failed: true, Nodes: failureNodes()}
	}

	id, promoted, err := c.ensureActiveChat(ctx)
	if err != nil {
		log.Printf("session: creating chat: %v", err)
		c.settle(start.seq)
		return SendOutcome{Failed: true, Nodes: failureNodes()}
	}

	res, err := c.svc.PostMessage(ctx, id, start.Text)
	if err != nil {
		log.Printf("session: posting message to %s: %v", id, err)
		c.settle(start.seq)
		return SendOutcome{ChatID: id, Promoted: promoted, Failed: true, Nodes: failureNodes()}
	}

	c.settle(start.seq)
	return SendOutcome{
		ChatID:   id,
		Promoted: promoted,
		Nodes:    render.Dispatch(envelope.Normalize(res)),
	}
}

// ensureActiveChat returns the persisted chat id, promoting a draft via a
// remote create call first. On creation failure the session stays draft and
// the whole send aborts; the attempt is retryable.
func (c *Controller) ensureActiveChat(ctx context.Context) (model.ID, bool, error) {
	c.mu.Lock()
	id := c.chatID
	title := c.title
	c.mu.Unlock()
	if id != "" {
		return id, false, nil
	}
	if title == "" {
		title = draftTitle
	}

	chat, err := c.svc.CreateChat(ctx, title)
	if err != nil {
		return "", false, err
	}

	c.mu.Lock()
	c.chatID = chat.ID
	if chat.Title != "" {
		c.title = chat.Title
	}
	c.state = StateActive
	c.mu.Unlock()
	return chat.ID, true, nil
}

// settle releases the guard taken by the send identified by seq. A stale
// settle (the user navigated away, which invalidated the send) is a no-op
// so it cannot release a guard held by a newer send.
func (c *Controller) settle(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq == seq {
		c.inFlight = false
	}
}

func failureNodes() []render.Node {
	return []render.Node{render.Bubble{Role: model.RoleAssistant, Text: sendFailureText}}
}
