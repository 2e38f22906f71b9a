package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/budget"
)

type BudgetsModel struct {
	CommonModel
	budgets *budget.Service

	list    []*budget.Budget
	goals   []*budget.Goal
	bar     progress.Model
	loading bool
	err     error
}

func NewBudgetsModel(svc *budget.Service, userID uuid.UUID) BudgetsModel {
	return BudgetsModel{
		CommonModel: CommonModel{UserID: userID},
		budgets:     svc,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		loading:     true,
	}
}

func (m BudgetsModel) Title() string     { return "Budgets & Goals" }
func (m BudgetsModel) ShortHelp() string { return "Esc: back | r: refresh" }

func (m BudgetsModel) Init() tea.Cmd {
	return m.loadCmd()
}

type budgetsLoadedMsg struct {
	budgets []*budget.Budget
	goals   []*budget.Goal
	err     error
}

func (m BudgetsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case budgetsLoadedMsg:
		m.loading = false
		m.list, m.goals, m.err = msg.budgets, msg.goals, msg.err

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

	return m, nil
}

func (m BudgetsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		budgets, err := m.budgets.List(ctx, m.UserID)
		if err != nil {
			return budgetsLoadedMsg{err: err}
		}

		goals, err := m.budgets.ListGoals(ctx, m.UserID)

		return budgetsLoadedMsg{budgets: budgets, goals: goals, err: err}
	}
}

func ratio(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}

	return min(float64(part)/float64(whole), 1)
}

func (m BudgetsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	over := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	var b strings.Builder

	b.WriteString(activeStyle("Budgets") + "\n\n")
	if len(m.list) == 0 {
		b.WriteString("No budgets yet.\n")
	}

	for _, bg := range m.list {
		line := fmt.Sprintf("%s / %s", FormatAmount(bg.Spent), FormatAmount(bg.TargetAmount))
		if bg.Remaining() < 0 {
			line = over.Render(line + " over budget")
		}

		fmt.Fprintf(&b, "%s  (%s to %s)\n%s  %s\n\n",
			bg.Name, FormatDate(bg.StartDate), FormatDate(bg.EndDate),
			m.bar.ViewAs(ratio(bg.Spent, bg.TargetAmount)), line)
	}

	b.WriteString(activeStyle("Goals") + "\n\n")
	if len(m.goals) == 0 {
		b.WriteString("No goals yet.\n")
	}

	for _, g := range m.goals {
		line := fmt.Sprintf("%s / %s", FormatAmount(g.Progress), FormatAmount(g.TargetAmount))
		if g.Reached() {
			line += " reached"
		}

		fmt.Fprintf(&b, "%s  (by %s)\n%s  %s\n\n",
			g.Name, FormatDate(g.EndDate),
			m.bar.ViewAs(ratio(g.Progress, g.TargetAmount)), line)
	}

	return lipgloss.NewStyle().Padding(1).Render(b.String())
}
