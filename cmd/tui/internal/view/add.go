package view

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/transaction"
	"github.com/Willizberc/Pexfin/internal/validation"
)

type addFields struct {
	description string
	amount      string
	category    string
}

// AddModel records one transaction. The form will not submit until every
// field is filled in; the recorder validates again before touching the store.
type AddModel struct {
	CommonModel
	txService *transaction.Service

	form   *huh.Form
	fields *addFields
	status string
	err    error
	done   bool
}

func NewAddModel(txSvc *transaction.Service, userID uuid.UUID) AddModel {
	m := AddModel{
		CommonModel: CommonModel{UserID: userID},
		txService:   txSvc,
	}
	m.reset()

	return m
}

func (m *AddModel) reset() {
	m.fields = &addFields{category: string(transaction.Expense)}
	m.done = false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("description").
				Title("Description").
				Value(&m.fields.description).
				Validate(notBlank("description")),

			huh.NewInput().
				Key("amount").
				Title("Amount").
				Placeholder("12,50").
				Value(&m.fields.amount).
				Validate(notBlank("amount")),

			huh.NewSelect[string]().
				Key("category").
				Title("Category").
				Options(
					huh.NewOption(string(transaction.Expense), string(transaction.Expense)),
					huh.NewOption(string(transaction.Income), string(transaction.Income)),
				).
				Value(&m.fields.category),
		),
	).WithWidth(45).WithShowHelp(false)
}

func (m AddModel) Title() string { return "Add Transaction" }
func (m AddModel) ShortHelp() string {
	if m.done {
		return "Enter: add another | Esc: back"
	}

	return "Enter: next | Esc: cancel"
}

func (m AddModel) Init() tea.Cmd {
	return m.form.Init()
}

type recordedMsg struct {
	receipt *transaction.Receipt
	err     error
}

func (m AddModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case recordedMsg:
		m.done = true
		m.err = msg.err

		if msg.err == nil {
			tx := msg.receipt.Transaction
			m.status = fmt.Sprintf("Recorded %s %s. Balance is now %s.",
				FormatSigned(tx), tx.Description, FormatAmount(msg.receipt.Balance))
		}

		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m, Back
		}

		if m.done {
			if msg.Type == tea.KeyEnter {
				m.reset()
				m.status, m.err = "", nil

				return m, m.form.Init()
			}

			return m, nil
		}
	}

	if m.done {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.recordCmd()
}

func (m AddModel) recordCmd() tea.Cmd {
	in := transaction.Input{
		Description: m.fields.description,
		Amount:      m.fields.amount,
		Category:    m.fields.category,
		// One submission of the form is one transaction.
		IdempotencyKey: uuid.NewString(),
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		receipt, err := m.txService.Record(ctx, m.UserID, in)

		return recordedMsg{receipt: receipt, err: err}
	}
}

func (m AddModel) View() string {
	if !m.done {
		return lipgloss.NewStyle().Padding(2).Render("New transaction\n\n" + m.form.View())
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(
			lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(describeError(m.err)) +
				"\n\n(Enter to try again, Esc to go back)",
		)
	}

	return lipgloss.NewStyle().Padding(2).Render(
		lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render(m.status) +
			"\n\n(Enter to add another, Esc to go back)",
	)
}

func describeError(err error) string {
	var invalid *validation.Error
	if !errors.As(err, &invalid) {
		return fmt.Sprintf("Error: %v", err)
	}

	names := slices.Sorted(maps.Keys(invalid.Fields))

	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = name + " " + invalid.Fields[name]
	}

	return "Invalid input:\n  " + strings.Join(lines, "\n  ")
}
