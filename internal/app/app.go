package app

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/automail/internal/api"
	"github.com/nhle/automail/internal/cart"
	"github.com/nhle/automail/internal/credential"
	"github.com/nhle/automail/internal/keys"
	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/store"
	appsync "github.com/nhle/automail/internal/sync"
	"github.com/nhle/automail/internal/ui"
	"github.com/nhle/automail/internal/ui/cartview"
	"github.com/nhle/automail/internal/ui/command"
	composeview "github.com/nhle/automail/internal/ui/compose"
	"github.com/nhle/automail/internal/ui/detail"
	"github.com/nhle/automail/internal/ui/drafts"
	"github.com/nhle/automail/internal/ui/files"
	helpview "github.com/nhle/automail/internal/ui/help"
	"github.com/nhle/automail/internal/ui/logs"
	"github.com/nhle/automail/internal/ui/smtpconfig"
	"github.com/nhle/automail/internal/ui/teacherlist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewCart
	ViewCompose
	ViewDrafts
	ViewSMTP
	ViewLogs
	ViewFiles
	ViewHelp
	ViewCommand
)

// Deps are the collaborators one session runs against.
type Deps struct {
	Config   *model.AppConfig
	Store    store.Store
	Services *api.Services
	Secrets  *credential.Store
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and the session's teacher selection.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	cfg          *model.AppConfig
	store        store.Store
	services     *api.Services
	secrets      *credential.Store
	cart         *cart.Store
	keys         *keys.KeyMap
	teacherList  teacherlist.Model
	detail       detail.Model
	cartView     cartview.Model
	composeView  composeview.Model
	draftsView   drafts.Model
	smtpView     smtpconfig.Model
	logsView     logs.Model
	filesView    files.Model
	helpView     helpview.Model
	commandView  command.Model
	poller       *appsync.Poller
	bounced      map[string]bool
	lastDraft    *model.Draft
	statusMsg    string
	statusErr    bool
	ready        bool
}

// New creates the root model. Each call starts with an empty selection.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()
	c := cart.New()
	interval := time.Duration(d.Config.Display.PollIntervalSec) * time.Second

	return Model{
		currentView: ViewList,
		cfg:         d.Config,
		store:       d.Store,
		services:    d.Services,
		secrets:     d.Secrets,
		cart:        c,
		keys:        k,
		teacherList: teacherlist.New(d.Store, c, k, 80, 24),
		detail:      detail.New(c, k, 80, 24),
		cartView:    cartview.New(c, k, 80, 24),
		composeView: composeview.New(80, 24),
		draftsView:  drafts.New(d.Store, k, 80, 24),
		smtpView:    smtpconfig.New(d.Services.SMTP, d.Secrets, k, 80, 24),
		logsView:    logs.New(d.Services.SMTP, k, model.DefaultLogLimit, 80, 24),
		filesView:   files.New(d.Services.Files, k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		poller:      appsync.New(d.Store, interval),
		bounced:     map[string]bool{},
	}
}

// Cart returns the session's selection.
func (m Model) Cart() *cart.Store {
	return m.cart
}

// Init loads the cached directory and starts background refreshes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.teacherList.Init(),
		m.loadBounced(),
		m.registerJobs(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w := m.layout.ContentWidth()
		h := m.layout.ContentHeight()
		m.teacherList.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.cartView.SetSize(w, h)
		m.composeView.SetSize(w, h)
		m.draftsView.SetSize(w, h)
		m.smtpView.SetSize(w, h)
		m.logsView.SetSize(w, h)
		m.filesView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case jobsRegisteredMsg:
		return m, m.poller.Start()

	case appsync.SyncResultMsg:
		return m, tea.Batch(m.handleSync(msg), m.poller.WaitForNextResult())

	case bouncedLoadedMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
			return m, nil
		}
		m.bounced = msg.addrs
		m.teacherList.SetBounced(msg.addrs)
		return m, nil

	case teacherlist.SelectedTeacherMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetTeacher(msg.Teacher, store.IsBouncedAddress(m.bounced, msg.Teacher.Email))
		return m, nil

	case teacherlist.CartChangedMsg:
		if msg.Added > 1 {
			m.setStatus(fmt.Sprintf("Added %d teachers", msg.Added), false)
		}
		return m, nil

	case detail.CartChangedMsg, cartview.ChangedMsg:
		return m, nil

	case detail.BackMsg, cartview.CloseMsg, drafts.CloseMsg, smtpconfig.CloseMsg,
		logs.CloseMsg, files.CloseMsg, composeview.CancelMsg:
		m.currentView = ViewList
		return m, nil

	case drafts.OpenMsg:
		return m, m.openCompose(msg.Draft)

	case composeReadyMsg:
		if msg.err != nil {
			m.setStatus("Attachments unavailable: "+msg.err.Error(), true)
		}
		m.composeView.SetFiles(msg.files)
		m.composeView.SetRecipients(recipientSummary(m.cart))
		m.previousView = m.currentView
		m.currentView = ViewCompose
		return m, m.composeView.Start(msg.draft)

	case composeview.SubmitMsg:
		m.currentView = ViewList
		d := msg.Draft
		m.lastDraft = &d
		switch msg.Action {
		case composeview.ActionSave:
			return m, m.saveDraft(d)
		case composeview.ActionDirect:
			return m, m.sendDirect(d, msg.Cc, msg.Bcc)
		default:
			return m, m.sendMailing(d)
		}

	case draftSavedMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
			return m, nil
		}
		m.lastDraft = &msg.draft
		m.setStatus("Draft saved: "+msg.draft.Subject, false)
		return m, nil

	case sentMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
		} else {
			m.setStatus(msg.text, false)
		}
		return m, m.poller.Refresh(appsync.KindLogs)

	case exportedMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
		} else {
			m.setStatus("Exported to "+msg.path, false)
		}
		return m, nil

	case bounceScanMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Bounce scan recorded %d new addresses", msg.added), false)
		return m, m.loadBounced()

	case smtpconfig.SavedMsg:
		m.setStatus("SMTP configuration saved for "+msg.Config.SenderEmail, false)
		return m, nil

	case files.ChangedMsg:
		m.composeView.SetFiles(msg.Files)
		return m, nil

	case logs.LoadedMsg:
		m.logsView, _ = m.logsView.Update(msg)
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that switch views. Views with text
// input only see ctrl+c here.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		m.poller.Stop()
		return tea.Quit, true
	}

	switch m.currentView {
	case ViewHelp:
		if msg.String() == "?" || msg.String() == "esc" {
			m.currentView = m.previousView
			return nil, true
		}
		return nil, false
	case ViewCommand:
		if msg.String() == "esc" {
			m.currentView = m.previousView
			return nil, true
		}
		return nil, false
	case ViewList:
		if m.teacherList.Searching() {
			return nil, false
		}
	default:
		return nil, false
	}

	switch msg.String() {
	case "q":
		m.poller.Stop()
		return tea.Quit, true
	case "?":
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil, true
	case ":":
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Focus(), true
	case "r":
		m.setStatus("Refreshing...", false)
		return tea.Batch(m.poller.RefreshAll(), m.teacherList.LoadTeachers()), true
	case "c":
		return m.open(ViewCart), true
	case "m":
		return m.openCompose(model.Draft{}), true
	case "D":
		return m.open(ViewDrafts), true
	case "S":
		return m.open(ViewSMTP), true
	case "L":
		return m.open(ViewLogs), true
	case "F":
		return m.open(ViewFiles), true
	}
	return nil, false
}

// open switches to a secondary view and returns its init command.
func (m *Model) open(v ViewState) tea.Cmd {
	m.previousView = m.currentView
	m.currentView = v
	switch v {
	case ViewCart:
		return m.cartView.Init()
	case ViewDrafts:
		return m.draftsView.Init()
	case ViewSMTP:
		return m.smtpView.Init()
	case ViewLogs:
		return m.logsView.Init()
	case ViewFiles:
		return m.filesView.Init()
	}
	return nil
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.teacherList, cmd = m.teacherList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewCart:
		m.cartView, cmd = m.cartView.Update(msg)
	case ViewCompose:
		m.composeView, cmd = m.composeView.Update(msg)
	case ViewDrafts:
		m.draftsView, cmd = m.draftsView.Update(msg)
	case ViewSMTP:
		m.smtpView, cmd = m.smtpView.Update(msg)
	case ViewLogs:
		m.logsView, cmd = m.logsView.Update(msg)
	case ViewFiles:
		m.filesView, cmd = m.filesView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("automail", m.syncStatus())
	content := m.renderContent()

	hints := m.keyHints()
	if m.statusMsg != "" {
		hints = m.statusMsg
	}
	statusBar := m.layout.RenderStatusBar(hints, fmt.Sprintf("selected %d", m.cart.Count()), m.statusErr)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.teacherList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewCart:
		return m.cartView.View()
	case ViewCompose:
		return m.composeView.View()
	case ViewDrafts:
		return m.draftsView.View()
	case ViewSMTP:
		return m.smtpView.View()
	case ViewLogs:
		return m.logsView.View()
	case ViewFiles:
		return m.filesView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// syncStatus returns a short string describing the combined sync state.
func (m Model) syncStatus() string {
	statuses := m.poller.GetStatuses()
	if len(statuses) == 0 {
		return "offline"
	}

	running := 0
	var failed []string
	for _, s := range statuses {
		switch s.State {
		case appsync.SyncRunning:
			running++
		case appsync.SyncError:
			failed = append(failed, string(s.Kind))
		}
	}

	if running > 0 {
		return fmt.Sprintf("syncing (%d)", running)
	}
	if len(failed) > 0 {
		return "⚠ unreachable: " + strings.Join(failed, ", ")
	}
	return "idle"
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewDetail:
		return "space select | esc back | j/k scroll"
	case ViewCompose:
		return "tab next field | enter submit | esc cancel"
	case ViewCart, ViewDrafts, ViewSMTP, ViewLogs, ViewFiles:
		return "esc back"
	default:
		if summary := m.teacherList.FilterSummary(); summary != "" {
			return summary + " | :clear"
		}
		return "q quit | ? help | space select | A add all | c cart | m compose | / search | tab sort"
	}
}

func (m *Model) setStatus(text string, isErr bool) {
	m.statusMsg = text
	m.statusErr = isErr
}
