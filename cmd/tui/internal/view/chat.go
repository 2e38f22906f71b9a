package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/assistant"
)

const assistantTimeout = 30 * time.Second

type ChatModel struct {
	CommonModel
	assistant *assistant.Service

	transcript []assistant.Turn
	input      textinput.Model
	viewport   viewport.Model
	waiting    bool
	err        error
}

// NewChatModel accepts a nil service; the view then explains that the
// assistant is not configured.
func NewChatModel(svc *assistant.Service, userID uuid.UUID) ChatModel {
	ti := textinput.New()
	ti.Placeholder = "Ask about your spending..."
	ti.CharLimit = 500
	ti.Width = 70
	ti.Focus()

	vp := viewport.New(80, 15)

	return ChatModel{
		CommonModel: CommonModel{UserID: userID},
		assistant:   svc,
		input:       ti,
		viewport:    vp,
	}
}

func (m ChatModel) Title() string     { return "Assistant" }
func (m ChatModel) ShortHelp() string { return "Enter: send | Esc: back" }

func (m ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

type replyMsg struct {
	transcript []assistant.Turn
	err        error
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case replyMsg:
		m.waiting = false
		m.err = msg.err

		if msg.err == nil {
			m.transcript = msg.transcript
		}

		m.refresh()

		return m, nil

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = max(msg.Height-8, 5)
		m.refresh()

		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			return m, Back
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if m.assistant == nil || m.waiting || text == "" {
				return m, nil
			}

			m.input.SetValue("")
			m.waiting = true
			m.err = nil
			m.refreshWith(text)

			return m, m.replyCmd(text)
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)

			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m ChatModel) replyCmd(text string) tea.Cmd {
	transcript := m.transcript

	return func() tea.Msg {
		ctx, cancel := DbCtxWithTimeout(assistantTimeout)
		defer cancel()

		turns, err := m.assistant.Reply(ctx, m.UserID, transcript, text)

		return replyMsg{transcript: turns, err: err}
	}
}

func (m *ChatModel) refresh() {
	m.refreshWith("")
}

// refreshWith renders the transcript plus a pending message not yet answered.
func (m *ChatModel) refreshWith(pending string) {
	you := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	bot := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

	var b strings.Builder
	for _, t := range m.transcript {
		if t.Role == assistant.RoleUser {
			fmt.Fprintf(&b, "%s %s\n\n", you.Render("You:"), t.Text)
		} else {
			fmt.Fprintf(&b, "%s %s\n\n", bot.Render("Pexfin:"), t.Text)
		}
	}

	if pending != "" {
		fmt.Fprintf(&b, "%s %s\n\n%s\n", you.Render("You:"), pending, lipgloss.NewStyle().Faint(true).Render("thinking..."))
	}

	m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(b.String()))
	m.viewport.GotoBottom()
}

func (m ChatModel) View() string {
	if m.assistant == nil {
		return lipgloss.NewStyle().Padding(2).Render("The assistant is not configured.\n\n(Esc to go back)")
	}

	content := m.viewport.View() + "\n" + m.input.View()

	if m.err != nil {
		text := fmt.Sprintf("Error: %v", m.err)
		if errors.Is(m.err, assistant.ErrRateLimited) {
			text = "Slow down a little, try again in a moment."
		}

		content += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(text)
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}
