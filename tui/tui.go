// Package tui is the terminal host binding for the assistant panel. It
// renders the declarative node tree produced by the core and feeds user
// gestures back into the session controller; all lifecycle and guard
// decisions stay in the controller.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/assistkit/assistpanel/model"
	"github.com/assistkit/assistpanel/render"
	"github.com/assistkit/assistpanel/session"
)

type view int

const (
	viewList view = iota
	viewChat
)

// Model is the bubbletea model for the panel.
type Model struct {
	ctrl *session.Controller

	view       view
	chats      []model.ChatSummary
	cursor     int
	listErr    string
	confirming bool

	nodes    []render.Node
	expanded map[int]bool

	input    textarea.Model
	vp       viewport.Model
	spin     spinner.Model
	width    int
	height   int
	ready    bool
}

type chatsLoadedMsg struct {
	chats []model.ChatSummary
	err   error
}

type chatOpenedMsg struct {
	nodes []render.Node
}

type sendSettledMsg struct {
	outcome session.SendOutcome
}

type deleteDoneMsg struct {
	result session.DeleteResult
}

// New creates the panel model over a session controller.
func New(ctrl *session.Controller) Model {
	input := textarea.New()
	input.Placeholder = "Ask a question..."
	input.Prompt = "> "
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.CharLimit = 10000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctrl:     ctrl,
		input:    input,
		spin:     sp,
		expanded: map[int]bool{},
	}
}

// Run starts the interactive panel and blocks until the user quits.
func Run(ctrl *session.Controller) error {
	p := tea.NewProgram(New(ctrl), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), m.spin.Tick)
}

// --- Commands ---

func (m Model) refreshCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		chats, err := ctrl.RefreshList(ctx)
		return chatsLoadedMsg{chats: chats, err: err}
	}
}

func (m Model) openCmd(id model.ID, title string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return chatOpenedMsg{nodes: ctrl.Open(ctx, id, title)}
	}
}

func (m Model) completeSendCmd(start session.SendStart) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		return sendSettledMsg{outcome: ctrl.CompleteSend(ctx, start)}
	}
}

func (m Model) deleteCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return deleteDoneMsg{result: ctrl.Delete(ctx, true)}
	}
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(msg.Width - 4)
		if !m.ready {
			m.vp = viewport.New(msg.Width, msg.Height-7)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = msg.Height - 7
		}
		m.syncViewport()
		return m, nil

	case chatsLoadedMsg:
		if msg.err != nil {
			m.listErr = "Failed to load chats. Press r to retry."
		} else {
			m.listErr = ""
			m.chats = msg.chats
			if m.cursor >= len(m.chats) {
				m.cursor = max(0, len(m.chats)-1)
			}
		}
		return m, nil

	case chatOpenedMsg:
		m.view = viewChat
		m.nodes = msg.nodes
		m.expanded = map[int]bool{}
		m.input.Reset()
		m.input.Focus()
		m.syncViewport()
		return m, nil

	case sendSettledMsg:
		m.nodes = dropTyping(m.nodes)
		// A response for a session the user already left is dropped
		// instead of being rendered into the wrong transcript.
		if msg.outcome.ChatID == "" || m.ctrl.IsCurrent(msg.outcome.ChatID) {
			m.nodes = append(m.nodes, msg.outcome.Nodes...)
		}
		m.syncViewport()
		m.vp.GotoBottom()
		return m, m.refreshCmd()

	case deleteDoneMsg:
		m.confirming = false
		if msg.result.Deleted {
			m.view = viewList
			m.nodes = nil
			return m, m.refreshCmd()
		}
		m.nodes = append(m.nodes, msg.result.Nodes...)
		m.syncViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.confirming {
		switch msg.String() {
		case "y":
			return m, m.deleteCmd()
		default:
			m.confirming = false
			return m, nil
		}
	}
	if m.view == viewList {
		return m.handleListKey(msg)
	}
	return m.handleChatKey(msg)
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "r":
		return m, m.refreshCmd()
	case "n":
		m.ctrl.NewChat()
		m.view = viewChat
		m.nodes = nil
		m.expanded = map[int]bool{}
		m.input.Reset()
		m.input.Focus()
		m.syncViewport()
		return m, nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.chats)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(m.chats) {
			c := m.chats[m.cursor]
			return m, m.openCmd(c.ID, c.Title)
		}
	}
	return m, nil
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.ctrl.Snapshot()

	switch msg.Type {
	case tea.KeyEsc:
		m.ctrl.Back()
		m.view = viewList
		m.nodes = nil
		return m, m.refreshCmd()
	case tea.KeyCtrlD:
		if snap.State == session.StateActive {
			m.confirming = true
		}
		return m, nil
	case tea.KeyCtrlO:
		if i, ok := lastDetails(m.nodes); ok {
			m.expanded[i] = !m.expanded[i]
			m.syncViewport()
		}
		return m, nil
	case tea.KeyEnter:
		return m.send(m.input.Value())
	}

	// With an empty composer, a digit activates the matching quick reply.
	if m.input.Value() == "" && len(msg.Runes) == 1 && msg.Runes[0] >= '1' && msg.Runes[0] <= '9' {
		if label, ok := optionLabel(m.nodes, int(msg.Runes[0]-'1')); ok {
			return m.send(label)
		}
	}

	if snap.InFlight {
		// Composer is read-only while a request is pending.
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) send(text string) (tea.Model, tea.Cmd) {
	start := m.ctrl.BeginSend(text)
	if !start.OK {
		return m, nil
	}
	m.input.Reset()
	m.nodes = append(m.nodes, start.Nodes...)
	m.syncViewport()
	m.vp.GotoBottom()
	return m, tea.Batch(m.completeSendCmd(start), m.spin.Tick)
}

// --- Node helpers ---

func dropTyping(nodes []render.Node) []render.Node {
	out := nodes[:0]
	for _, n := range nodes {
		if _, ok := n.(render.Typing); ok {
			continue
		}
		out = append(out, n)
	}
	return out
}

func lastDetails(nodes []render.Node) (int, bool) {
	for i := len(nodes) - 1; i >= 0; i-- {
		if _, ok := nodes[i].(render.Details); ok {
			return i, true
		}
	}
	return 0, false
}

func optionLabel(nodes []render.Node, idx int) (string, bool) {
	for i := len(nodes) - 1; i >= 0; i-- {
		if opts, ok := nodes[i].(render.Options); ok {
			if idx < len(opts.Items) {
				return opts.Items[idx].Label, true
			}
			return "", false
		}
	}
	return "", false
}

func (m *Model) syncViewport() {
	if !m.ready {
		return
	}
	m.vp.SetContent(m.renderTranscript())
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
