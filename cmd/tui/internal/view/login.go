package view

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/Willizberc/Pexfin/internal/identity"
)

// LoggedInMsg is sent once the user has signed in.
type LoggedInMsg struct {
	Credentials *identity.Credentials
}

type loginFields struct {
	email    string
	password string
}

type LoginModel struct {
	identity *identity.Service

	form   *huh.Form
	fields *loginFields
	err    error
}

func NewLoginModel(svc *identity.Service) LoginModel {
	m := LoginModel{identity: svc}
	m.reset()

	return m
}

func (m *LoginModel) reset() {
	email := ""
	if m.fields != nil {
		email = m.fields.email
	}

	m.fields = &loginFields{email: email}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("email").
				Title("Email").
				Value(&m.fields.email).
				Validate(notBlank("email")),

			huh.NewInput().
				Key("password").
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fields.password).
				Validate(notBlank("password")),
		),
	).WithWidth(45).WithShowHelp(false)
}

func notBlank(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}

		return nil
	}
}

func (m LoginModel) Title() string     { return "Sign In" }
func (m LoginModel) ShortHelp() string { return "Enter: next | Ctrl+C: quit" }

func (m LoginModel) Init() tea.Cmd {
	return m.form.Init()
}

type loginFailedMsg struct {
	err error
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if failed, ok := msg.(loginFailedMsg); ok {
		m.err = failed.err
		m.reset()

		return m, m.form.Init()
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.signInCmd()
}

func (m LoginModel) signInCmd() tea.Cmd {
	email, password := m.fields.email, m.fields.password

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		creds, err := m.identity.SignIn(ctx, email, password)
		if err != nil {
			return loginFailedMsg{err: err}
		}

		return LoggedInMsg{Credentials: creds}
	}
}

func (m LoginModel) View() string {
	content := "Pexfin\n\n" + m.form.View()

	if m.err != nil {
		text := fmt.Sprintf("Error: %v", m.err)
		if errors.Is(m.err, identity.ErrInvalidCredentials) {
			text = "Wrong email or password."
		}

		content += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(text)
	}

	return lipgloss.NewStyle().Padding(2).Render(content)
}
