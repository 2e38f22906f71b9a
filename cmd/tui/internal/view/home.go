package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/report"
)

type HomeModel struct {
	CommonModel
	reports *report.Service

	home    *report.Home
	table   table.Model
	loading bool
	err     error
}

func NewHomeModel(svc *report.Service, userID uuid.UUID) HomeModel {
	return HomeModel{
		CommonModel: CommonModel{UserID: userID},
		reports:     svc,
		table:       newTable(transactionColumns(), 10),
		loading:     true,
	}
}

func (m HomeModel) Title() string     { return "Home" }
func (m HomeModel) ShortHelp() string { return "Esc: back | r: refresh" }

func (m HomeModel) Init() tea.Cmd {
	return m.loadCmd()
}

type homeLoadedMsg struct {
	home *report.Home
	err  error
}

func (m HomeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case homeLoadedMsg:
		m.loading = false
		m.err = msg.err

		if msg.err == nil {
			m.home = msg.home
			m.table.SetRows(transactionRows(msg.home.Recent))
		}

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m HomeModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		home, err := m.reports.Home(ctx, m.UserID)

		return homeLoadedMsg{home: home, err: err}
	}
}

func (m HomeModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	h := m.home
	header := fmt.Sprintf("Hello, %s\n\nBalance: %s %s\nIncome:  %s\nExpense: %s\n",
		h.DisplayName,
		activeStyle(FormatAmount(h.Balance)), h.Currency,
		FormatAmount(h.Totals.Income),
		FormatAmount(h.Totals.Expense),
	)

	return lipgloss.NewStyle().Padding(1).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			"Recent transactions",
			tableStyle.Render(m.table.View()),
		),
	)
}
