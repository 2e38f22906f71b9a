package view

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/transaction"
)

var tableStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

func newTable(columns []table.Column, height int) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

func transactionColumns() []table.Column {
	return []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Category", Width: 10},
		{Title: "Amount", Width: 12},
		{Title: "Description", Width: 40},
	}
}

func transactionRows(txs []*transaction.Transaction) []table.Row {
	rows := make([]table.Row, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, table.Row{
			FormatDate(tx.Date),
			string(tx.Category),
			FormatSigned(tx),
			tx.Description,
		})
	}

	return rows
}

type ListModel struct {
	CommonModel
	txService *transaction.Service

	table table.Model
	txs   []*transaction.Transaction

	// Filter cycling
	categoryFilterIdx int
	dateFilterIdx     int

	filter  transaction.ListFilter
	loading bool
	err     error
}

func NewListModel(txSvc *transaction.Service, userID uuid.UUID) ListModel {
	return ListModel{
		CommonModel: CommonModel{UserID: userID},
		txService:   txSvc,
		table:       newTable(transactionColumns(), 15),
		filter:      transaction.ListFilter{UserID: userID},
		loading:     true,
	}
}

func (m ListModel) Title() string { return "Transactions" }
func (m ListModel) ShortHelp() string {
	return "Esc: back | c: category filter | d: date filter | r: refresh"
}

func (m ListModel) Init() tea.Cmd {
	return m.loadTxsCmd()
}

func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadListMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.txs = msg.txs
		m.table.SetRows(transactionRows(m.txs))
		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadTxsCmd()
		case "c":
			m.categoryFilterIdx = (m.categoryFilterIdx + 1) % 3
			m.applyFilter(time.Now())
			return m, m.loadTxsCmd()
		case "d":
			m.dateFilterIdx = (m.dateFilterIdx + 1) % 3
			m.applyFilter(time.Now())
			return m, m.loadTxsCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m ListModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading transactions...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	categoryLabels := []string{"All", "Income", "Expense"}
	dateLabels := []string{"All Time", "This Month", "Last Month"}

	header := fmt.Sprintf(
		"Filter: [c] Category: %s | [d] Date: %s",
		activeStyle(categoryLabels[m.categoryFilterIdx]),
		activeStyle(dateLabels[m.dateFilterIdx]),
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableStyle.Render(m.table.View()),
	)

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

func (m *ListModel) applyFilter(now time.Time) {
	switch m.categoryFilterIdx {
	case 1:
		m.filter.Category = new(transaction.Income)
	case 2:
		m.filter.Category = new(transaction.Expense)
	default:
		m.filter.Category = nil
	}

	// EndDate is inclusive.
	switch m.dateFilterIdx {
	case 1:
		s := monthStart(now)
		e := s.AddDate(0, 1, 0).Add(-time.Nanosecond)
		m.filter.StartDate = &s
		m.filter.EndDate = &e
	case 2:
		s := monthStart(now).AddDate(0, -1, 0)
		e := s.AddDate(0, 1, 0).Add(-time.Nanosecond)
		m.filter.StartDate = &s
		m.filter.EndDate = &e
	default:
		m.filter.StartDate = nil
		m.filter.EndDate = nil
	}
}

// Messages

type loadListMsg struct {
	txs []*transaction.Transaction
	err error
}

func (m ListModel) loadTxsCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := m.txService.List(ctx, filter)
		return loadListMsg{txs: txs, err: err}
	}
}
