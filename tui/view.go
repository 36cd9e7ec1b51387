package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/assistkit/assistpanel/model"
	"github.com/assistkit/assistpanel/render"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	helpStyle      = lipgloss.NewStyle().Faint(true).Padding(0, 1)
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Padding(0, 1)
	selectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	timeStyle      = lipgloss.NewStyle().Faint(true)
	userBubble     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).BorderForeground(lipgloss.Color("4"))
	assistBubble   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).BorderForeground(lipgloss.Color("8"))
	sectionStyle   = lipgloss.NewStyle().Faint(true).PaddingLeft(2)
	sectionBody    = lipgloss.NewStyle().PaddingLeft(4)
	optionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).PaddingLeft(2)
	confirmStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")).Padding(0, 1)
)

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	if m.view == viewList {
		return m.listView()
	}
	return m.chatView()
}

func (m Model) listView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("AI Assistant"))
	b.WriteString("\n\n")

	if m.listErr != "" {
		b.WriteString(errStyle.Render(m.listErr))
		b.WriteString("\n")
	}
	if len(m.chats) == 0 && m.listErr == "" {
		b.WriteString(helpStyle.Render("No chats yet."))
		b.WriteString("\n")
	}

	now := time.Now().UTC()
	for i, c := range m.chats {
		line := fmt.Sprintf("%s  %s", displayTitle(c), timeStyle.Render(model.RelativeTime(effectiveStamp(c), now)))
		if i == m.cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter open · n new chat · r refresh · q quit"))
	return b.String()
}

func displayTitle(c model.ChatSummary) string {
	if c.Title != "" {
		return model.Truncate(c.Title, 60)
	}
	return "Untitled"
}

// effectiveStamp mirrors list ordering: updated_at wins over created_at.
func effectiveStamp(c model.ChatSummary) string {
	if _, ok := model.ParseTimestamp(c.UpdatedAt); ok {
		return c.UpdatedAt
	}
	return c.CreatedAt
}

func (m Model) chatView() string {
	snap := m.ctrl.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render(snap.Title))
	b.WriteString("\n")
	b.WriteString(m.vp.View())
	b.WriteString("\n")

	switch {
	case m.confirming:
		b.WriteString(confirmStyle.Render("Delete this chat? y to confirm, any other key to cancel"))
	case snap.InFlight:
		b.WriteString(helpStyle.Render(m.spin.View() + " waiting for response..."))
	default:
		b.WriteString(m.input.View())
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter send · esc back · ctrl+o details · ctrl+d delete · ctrl+c quit"))
	return b.String()
}

func (m Model) renderTranscript() string {
	width := max(20, m.width-8)
	var parts []string
	for i, n := range m.nodes {
		switch n := n.(type) {
		case render.Bubble:
			parts = append(parts, m.renderBubble(n, width))
		case render.Details:
			parts = append(parts, m.renderDetails(n, m.expanded[i]))
		case render.Options:
			parts = append(parts, renderOptions(n))
		case render.Typing:
			parts = append(parts, assistBubble.Render(m.spin.View()+" ..."))
		}
	}
	return strings.Join(parts, "\n")
}

func (m Model) renderBubble(b render.Bubble, width int) string {
	text := lipgloss.NewStyle().Width(min(width, lipgloss.Width(b.Text)+2)).Render(b.Text)
	if b.Role == model.RoleUser {
		return lipgloss.PlaceHorizontal(m.width-4, lipgloss.Right, userBubble.Render(text))
	}
	return assistBubble.Render(text)
}

func (m Model) renderDetails(d render.Details, open bool) string {
	var b strings.Builder
	for i, s := range d.Sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionStyle.Render("[" + s.ToggleLabel(open) + "]"))
		if open {
			b.WriteString("\n")
			b.WriteString(sectionBody.Render(s.Text))
		}
	}
	return b.String()
}

func renderOptions(o render.Options) string {
	var b strings.Builder
	for i, item := range o.Items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(optionStyle.Render(fmt.Sprintf("%d. %s", i+1, item.Label)))
	}
	return b.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
