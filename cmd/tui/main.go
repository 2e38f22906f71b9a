package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/Willizberc/Pexfin/cmd/tui/internal/view"
	"github.com/Willizberc/Pexfin/internal/account"
	accountStore "github.com/Willizberc/Pexfin/internal/account/store"
	"github.com/Willizberc/Pexfin/internal/assistant"
	"github.com/Willizberc/Pexfin/internal/budget"
	budgetStore "github.com/Willizberc/Pexfin/internal/budget/store"
	"github.com/Willizberc/Pexfin/internal/config"
	"github.com/Willizberc/Pexfin/internal/database"
	"github.com/Willizberc/Pexfin/internal/identity"
	identityStore "github.com/Willizberc/Pexfin/internal/identity/store"
	"github.com/Willizberc/Pexfin/internal/importer"
	"github.com/Willizberc/Pexfin/internal/live"
	"github.com/Willizberc/Pexfin/internal/logger"
	"github.com/Willizberc/Pexfin/internal/notification"
	notificationStore "github.com/Willizberc/Pexfin/internal/notification/store"
	"github.com/Willizberc/Pexfin/internal/report"
	"github.com/Willizberc/Pexfin/internal/transaction"
	txStore "github.com/Willizberc/Pexfin/internal/transaction/store"
)

type services struct {
	identity  *identity.Service
	tx        *transaction.Service
	importer  *importer.Service
	reports   *report.Service
	budgets   *budget.Service
	assistant *assistant.Service
}

type model struct {
	svc    services
	userID uuid.UUID

	currentView View
	active      view.View
	loginView   view.LoginModel
}

type View int

const (
	ViewLogin     View = 0
	ViewMenu      View = 1
	ViewHome      View = 2
	ViewAdd       View = 3
	ViewList      View = 4
	ViewImport    View = 5
	ViewReport    View = 6
	ViewBudgets   View = 7
	ViewAssistant View = 8
)

func fail(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fail("failed to load config", err)
	}

	// The terminal belongs to the UI; logs go to a file.
	logFile, err := tea.LogToFile("pexfin-tui.log", "")
	if err != nil {
		fail("failed to open log file", err)
	}

	log := logger.NewWithWriter(logFile, cfg.App.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		fail("failed to load timezone", err)
	}

	db, err := database.New(context.Background(), cfg.ConnectionString(), cfg.Pool())
	if err != nil {
		fail("failed to connect to database", err)
	}

	// Events still flow so budget alerts and notifications behave as in the API.
	hub := live.NewHub()

	var (
		accountSvc      = account.NewService(accountStore.New(db), hub)
		notificationSvc = notification.NewService(notificationStore.New(db), hub)
		identitySvc     = identity.NewService(
			identityStore.New(db),
			identity.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
			identity.NewLogMailer(log),
			identity.WithPublisher(hub),
			identity.WithLogger(log),
		)
		txSvc = transaction.NewService(txStore.New(db),
			transaction.WithPublisher(hub),
			transaction.WithLogger(log),
		)
		budgetSvc = budget.NewService(budgetStore.New(db), txSvc, hub)
		reportSvc = report.NewService(txSvc, accountSvc, identitySvc, loc)
	)

	txSvc.AddObserver(budget.NewAlerter(budgetSvc, notificationSvc, log))

	var assistantSvc *assistant.Service
	if cfg.Assistant.APIKey != "" {
		gemini, err := assistant.NewGemini(context.Background(), cfg.Assistant.APIKey, cfg.Assistant.Model)
		if err != nil {
			fail("failed to create assistant client", err)
		}

		assistantSvc = assistant.NewService(gemini,
			assistant.WithStatements(reportSvc),
			assistant.WithRate(cfg.Assistant.RatePerMin, cfg.Assistant.Burst),
			assistant.WithLogger(log),
		)
	}

	return model{
		svc: services{
			identity:  identitySvc,
			tx:        txSvc,
			importer:  importer.NewService(),
			reports:   reportSvc,
			budgets:   budgetSvc,
			assistant: assistantSvc,
		},
		currentView: ViewLogin,
		loginView:   view.NewLoginModel(identitySvc),
	}
}

func (m model) Init() tea.Cmd {
	return m.loginView.Init()
}

// open builds a fresh screen so every visit reloads its data.
func (m model) open(v View) view.View {
	switch v {
	case ViewHome:
		return view.NewHomeModel(m.svc.reports, m.userID)
	case ViewAdd:
		return view.NewAddModel(m.svc.tx, m.userID)
	case ViewList:
		return view.NewListModel(m.svc.tx, m.userID)
	case ViewImport:
		return view.NewImportModel(m.svc.tx, m.svc.importer, m.userID)
	case ViewReport:
		return view.NewReportModel(m.svc.reports, m.userID)
	case ViewBudgets:
		return view.NewBudgetsModel(m.svc.budgets, m.userID)
	case ViewAssistant:
		return view.NewChatModel(m.svc.assistant, m.userID)
	}

	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1", "2", "3", "4", "5", "6", "7":
				m.currentView = ViewHome + View(msg.Runes[0]-'1')
				m.active = m.open(m.currentView)

				return m, m.active.Init()
			}

			return m, nil
		}
	case view.LoggedInMsg:
		m.userID = msg.Credentials.User.ID
		m.currentView = ViewMenu

		return m, nil
	case view.BackMsg:
		m.currentView = ViewMenu
		m.active = nil

		return m, nil
	}

	var cmd tea.Cmd

	switch {
	case m.currentView == ViewLogin:
		var newModel tea.Model
		newModel, cmd = m.loginView.Update(msg)
		m.loginView = newModel.(view.LoginModel)
	case m.active != nil:
		var newModel tea.Model
		newModel, cmd = m.active.Update(msg)
		m.active = newModel.(view.View)
	}

	return m, cmd
}

func (m model) View() string {
	switch {
	case m.currentView == ViewLogin:
		return m.loginView.View()
	case m.currentView == ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Pexfin\n\n" +
				"1. Home\n" +
				"2. Add Transaction\n" +
				"3. Transactions\n" +
				"4. Import Statement\n" +
				"5. Monthly Report\n" +
				"6. Budgets & Goals\n" +
				"7. Assistant\n\n" +
				"q. Quit",
		)
	case m.active != nil:
		help := lipgloss.NewStyle().Faint(true).PaddingLeft(1).Render(m.active.ShortHelp())
		return lipgloss.JoinVertical(lipgloss.Left, m.active.View(), help)
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fail("failed to run TUI", err)
	}
}
