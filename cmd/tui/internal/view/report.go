package view

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/report"
	"github.com/Willizberc/Pexfin/internal/transaction"
)

const barWidth = 40

type ReportModel struct {
	CommonModel
	reports *report.Service

	month    time.Time
	category transaction.Category
	report   *report.MonthlyReport
	loading  bool
	err      error
}

func NewReportModel(svc *report.Service, userID uuid.UUID) ReportModel {
	return ReportModel{
		CommonModel: CommonModel{UserID: userID},
		reports:     svc,
		month:       monthStart(time.Now().In(svc.Location())),
		category:    transaction.Expense,
		loading:     true,
	}
}

func (m ReportModel) Title() string { return "Monthly Report" }
func (m ReportModel) ShortHelp() string {
	return "Esc: back | Left/Right: month | Tab: income/expense"
}

func (m ReportModel) Init() tea.Cmd {
	return m.loadCmd()
}

type reportLoadedMsg struct {
	report *report.MonthlyReport
	err    error
}

func (m ReportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case reportLoadedMsg:
		m.loading = false
		m.report = msg.report
		m.err = msg.err

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "left", "h":
			m.month = m.month.AddDate(0, -1, 0)
		case "right", "l":
			m.month = m.month.AddDate(0, 1, 0)
		case "tab":
			if m.category == transaction.Expense {
				m.category = transaction.Income
			} else {
				m.category = transaction.Expense
			}
		default:
			return m, nil
		}

		m.loading = true

		return m, m.loadCmd()
	}

	return m, nil
}

func (m ReportModel) loadCmd() tea.Cmd {
	month, category := m.month, m.category

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		r, err := m.reports.Month(ctx, m.UserID, category, month)

		return reportLoadedMsg{report: r, err: err}
	}
}

func (m ReportModel) View() string {
	header := fmt.Sprintf("%s  %s", activeStyle(m.month.Format("January 2006")), m.category)

	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render(header + "\n\nLoading...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("%s\n\nError: %v", header, m.err))
	}

	return lipgloss.NewStyle().Padding(2).Render(header + "\n\n" + renderChart(m.report))
}

// renderChart draws one bar per day with activity, scaled to the busiest day.
func renderChart(r *report.MonthlyReport) string {
	if len(r.Daily) == 0 {
		return "No " + strings.ToLower(string(r.Category)) + " this month."
	}

	var peak int64
	for _, d := range r.Daily {
		peak = max(peak, d.Total)
	}

	color := lipgloss.Color("196")
	if r.Category == transaction.Income {
		color = lipgloss.Color("46")
	}

	bar := lipgloss.NewStyle().Foreground(color)

	var b strings.Builder
	for _, d := range r.Daily {
		// Pad before styling; escape codes have no width.
		blocks := Bar(d.Total, peak, barWidth)
		pad := strings.Repeat(" ", barWidth-utf8.RuneCountInString(blocks))

		fmt.Fprintf(&b, "%s  %s%s %10s\n",
			d.Date.Format("Mon 02"),
			bar.Render(blocks), pad,
			FormatAmount(d.Total),
		)
	}

	fmt.Fprintf(&b, "\nTotal: %s across %d transactions", FormatAmount(r.Total), len(r.Records))

	return b.String()
}
