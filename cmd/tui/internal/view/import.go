package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/importer"
	"github.com/Willizberc/Pexfin/internal/transaction"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateBankSelect importState = iota
	importStateFilePick
	importStateImporting
	importStateDuplicates
	importStateResult
)

type ImportModel struct {
	CommonModel
	txService     *transaction.Service
	importService *importer.Service

	state        importState
	filePicker   filepicker.Model
	selectedBank importer.Bank
	bankOptions  []importer.Bank
	bankCursor   int

	duplicateList list.Model

	status string
	err    error
}

func NewImportModel(txSvc *transaction.Service, impSvc *importer.Service, userID uuid.UUID) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		CommonModel:   CommonModel{UserID: userID},
		txService:     txSvc,
		importService: impSvc,
		filePicker:    fp,
		bankOptions:   impSvc.Banks(),
	}
}

func (m ImportModel) Title() string { return "Import Statement" }

func (m ImportModel) ShortHelp() string {
	if m.state == importStateDuplicates {
		return "Up/Down: browse skipped | Enter/Esc: done"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return nil
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == importStateBankSelect {
			return m.updateBankSelect(msg)
		}

		if m.state == importStateDuplicates {
			if msg.Type == tea.KeyEnter {
				m.state = importStateResult
				return m, nil
			}

			var cmd tea.Cmd
			m.duplicateList, cmd = m.duplicateList.Update(msg)

			return m, cmd
		}

	case importResultMsg:
		if msg.err != nil {
			m.state = importStateResult
			m.err = msg.err
			m.status = describeError(msg.err)

			return m, nil
		}

		m.status = fmt.Sprintf("Imported %d transactions, skipped %d duplicates. Balance is now %s.",
			len(msg.result.Imported), len(msg.result.Duplicates), FormatAmount(msg.result.Balance))

		if len(msg.result.Duplicates) == 0 {
			m.state = importStateResult
			return m, nil
		}

		items := make([]list.Item, len(msg.result.Duplicates))
		for i, e := range msg.result.Duplicates {
			items[i] = duplicateItem{entry: e}
		}

		m.duplicateList = list.New(items, duplicateDelegate{}, 80, 20)
		m.duplicateList.Title = "Skipped duplicates"
		m.duplicateList.SetShowStatusBar(false)
		m.duplicateList.SetFilteringEnabled(false)
		m.duplicateList.SetShowHelp(false)
		m.state = importStateDuplicates

		return m, nil
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.status = fmt.Sprintf("Importing from %s...", path)

		return m, m.importCmd(path)
	}

	return m, cmd
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateFilePick, importStateResult, importStateDuplicates:
		m.state = importStateBankSelect
		m.err = nil
		m.status = ""

		return m, nil
	}

	return m, Back
}

func (m ImportModel) updateBankSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.bankCursor > 0 {
			m.bankCursor--
		}
	case tea.KeyDown:
		if m.bankCursor < len(m.bankOptions)-1 {
			m.bankCursor++
		}
	case tea.KeyEnter:
		if len(m.bankOptions) == 0 {
			return m, nil
		}

		m.selectedBank = m.bankOptions[m.bankCursor]
		m.state = importStateFilePick

		return m, m.filePicker.Init()
	}

	return m, nil
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateBankSelect:
		return m.viewBankSelect()
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select statement to import (%s):\n\n%s", m.selectedBank, m.filePicker.View()),
		)
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStateDuplicates:
		return lipgloss.NewStyle().Padding(1).Render(m.status + "\n\n" + m.duplicateList.View())
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewBankSelect() string {
	s := "Select Bank:\n\n"

	for i, bank := range m.bankOptions {
		cursor := " "
		if i == m.bankCursor {
			cursor = ">"
		}

		s += fmt.Sprintf("%s %s\n", cursor, string(bank))
	}

	return lipgloss.NewStyle().Padding(2).Render(s)
}

func (m ImportModel) viewResult() string {
	color := lipgloss.Color("46")
	if m.err != nil {
		color = lipgloss.Color("196")
	}

	return lipgloss.NewStyle().Padding(2).Render(
		lipgloss.NewStyle().Foreground(color).Render(m.status) + "\n\n(Esc to go back)",
	)
}

// Messages

type importResultMsg struct {
	result *transaction.ImportResult
	err    error
}

func (m ImportModel) importCmd(path string) tea.Cmd {
	bank := m.selectedBank

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importResultMsg{err: err}
		}
		defer f.Close()

		entries, err := m.importService.Import(bank, f)
		if err != nil {
			return importResultMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		result, err := m.txService.ImportBatch(ctx, m.UserID, entries)
		if err != nil {
			return importResultMsg{err: err}
		}

		return importResultMsg{result: result}
	}
}

// Duplicate list item

type duplicateItem struct {
	entry transaction.Entry
}

func (i duplicateItem) Title() string       { return i.entry.Description }
func (i duplicateItem) Description() string { return "" }
func (i duplicateItem) FilterValue() string { return i.entry.Description }

type duplicateDelegate struct{}

func (d duplicateDelegate) Height() int                             { return 1 }
func (d duplicateDelegate) Spacing() int                            { return 0 }
func (d duplicateDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d duplicateDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(duplicateItem)
	if !ok {
		return
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	e := item.entry
	fmt.Fprintf(w, "%s%s  %10s  %s",
		cursor,
		FormatDate(e.Date),
		FormatSigned(&transaction.Transaction{Category: e.Category, Amount: e.Amount}),
		e.Description,
	)
}
