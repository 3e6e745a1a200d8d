package smtpconfig

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/automail/internal/api"
	"github.com/nhle/automail/internal/credential"
	"github.com/nhle/automail/internal/keys"
	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/theme"
)

// Service is the part of the SMTP service group this view drives.
type Service interface {
	GetConfig(ctx context.Context) (model.SMTPConfig, error)
	AddConfig(ctx context.Context, cfg model.SMTPConfig) (model.SMTPConfig, error)
	DeleteConfig(ctx context.Context, id string) error
	TestConnection(ctx context.Context, cfg model.SMTPConfig) (model.SendResult, error)
}

// Secrets keeps the SMTP password out of the config file.
type Secrets interface {
	Lookup(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Mode represents the current state of the view.
type Mode int

const (
	ModeView          Mode = iota // Show the active configuration
	ModeForm                      // Edit form
	ModeWorking                   // Waiting on the service
	ModeResult                    // Outcome of a test or save
	ModeConfirmDelete             // Confirm removal
)

// CloseMsg signals the view should close and return to the main app.
type CloseMsg struct{}

// SavedMsg signals the configuration was replaced.
type SavedMsg struct {
	Config model.SMTPConfig
}

type configLoadedMsg struct {
	cfg model.SMTPConfig
	err error
}

type resultMsg struct {
	action string
	text   string
	err    error
	saved  *model.SMTPConfig
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	server      string
	port        string
	username    string
	password    string
	useTLS      bool
	senderName  string
	senderEmail string
	confirm     bool
}

// requestTimeout bounds a save or test; the service itself dials SMTP.
const requestTimeout = 30 * time.Second

// Model is the Bubble Tea model for the SMTP settings view.
type Model struct {
	mode       Mode
	service    Service
	secrets    Secrets
	keys       *keys.KeyMap
	config     *model.SMTPConfig
	loadErr    error
	form       *huh.Form
	fb         *formBindings
	spinner    spinner.Model
	working    string
	resultText string
	resultErr  error
	width      int
	height     int
}

// New creates a new SMTP settings view.
func New(svc Service, secrets Secrets, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		mode:    ModeView,
		service: svc,
		secrets: secrets,
		keys:    k,
		fb:      &formBindings{useTLS: true},
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Init loads the active configuration.
func (m Model) Init() tea.Cmd {
	return m.loadConfig()
}

// Mode returns the current mode.
func (m Model) Mode() Mode {
	return m.mode
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case configLoadedMsg:
		m.mode = ModeView
		if msg.err != nil {
			m.config = nil
			if !api.IsNotFound(msg.err) {
				m.loadErr = msg.err
			}
			return m, nil
		}
		cfg := msg.cfg
		m.config = &cfg
		m.loadErr = nil
		return m, nil

	case resultMsg:
		m.mode = ModeResult
		m.resultText = msg.text
		m.resultErr = msg.err
		if msg.saved != nil {
			saved := *msg.saved
			m.config = &saved
			return m, func() tea.Msg { return SavedMsg{Config: saved} }
		}
		if msg.action == "delete" && msg.err == nil {
			m.config = nil
		}
		return m, nil

	case spinner.TickMsg:
		if m.mode == ModeWorking {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m.updateActiveForm(msg)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeView:
		return m.handleViewKeys(msg)
	case ModeForm:
		return m.updateForm(msg)
	case ModeConfirmDelete:
		return m.updateConfirm(msg)
	case ModeResult:
		if msg.String() == "enter" || msg.String() == "esc" {
			m.mode = ModeView
			m.resultText = ""
			m.resultErr = nil
		}
		return m, nil
	case ModeWorking:
		// the request keeps running; its result is ignored once we leave
		if msg.String() == "esc" {
			m.mode = ModeView
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleViewKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Edit):
		m.fillForm()
		m.form = m.buildForm()
		m.mode = ModeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Test):
		if m.config == nil {
			return m, nil
		}
		cfg := *m.config
		m.mode = ModeWorking
		m.working = "Testing connection"
		return m, tea.Batch(m.spinner.Tick, m.testConfig(cfg))

	case key.Matches(msg, m.keys.Remove):
		if m.config == nil {
			return m, nil
		}
		m.fb.confirm = false
		m.form = m.buildConfirmForm()
		m.mode = ModeConfirmDelete
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadConfig()
	}
	return m, nil
}

func (m Model) updateActiveForm(msg tea.Msg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeForm:
		return m.updateForm(msg)
	case ModeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

func (m *Model) fillForm() {
	fb := m.fb
	*fb = formBindings{useTLS: true, port: "465"}
	if m.config == nil {
		return
	}
	c := m.config
	fb.server = c.Server
	fb.port = strconv.Itoa(c.Port)
	fb.username = c.Username
	fb.useTLS = c.UseTLS
	fb.senderName = c.SenderName
	fb.senderEmail = c.SenderEmail
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("SMTP server").
				Placeholder("smtp.qq.com").
				Value(&m.fb.server).
				Validate(validateRequired("Server")),
			huh.NewInput().
				Title("Port").
				Placeholder("465").
				Value(&m.fb.port).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Value(&m.fb.username).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Password or authorization code").
				Description("Leave empty to keep the saved one").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password),
			huh.NewConfirm().
				Title("Use TLS").
				Affirmative("Yes").
				Negative("No").
				Value(&m.fb.useTLS),
			huh.NewInput().
				Title("Sender name").
				Value(&m.fb.senderName).
				Validate(validateRequired("Sender name")),
			huh.NewInput().
				Title("Sender email").
				Value(&m.fb.senderEmail).
				Validate(validateRequired("Sender email")),
		),
	).WithWidth(m.formWidth())
}

func (m Model) buildConfirmForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Delete the SMTP configuration?").
				Description("Mail cannot be sent until a new one is added.").
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		cfg, err := m.configFromForm()
		if err != nil {
			m.mode = ModeResult
			m.resultErr = err
			return m, nil
		}
		m.mode = ModeWorking
		m.working = "Saving and testing"
		return m, tea.Batch(m.spinner.Tick, m.saveConfig(cfg))
	}
	if m.form.State == huh.StateAborted {
		m.mode = ModeView
		return m, nil
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		if m.fb.confirm && m.config != nil {
			m.mode = ModeWorking
			m.working = "Deleting"
			return m, tea.Batch(m.spinner.Tick, m.deleteConfig(m.config.ID))
		}
		m.mode = ModeView
		return m, nil
	}
	if m.form.State == huh.StateAborted {
		m.mode = ModeView
		return m, nil
	}
	return m, cmd
}

// configFromForm builds the configuration to submit, falling back to the
// saved password when the field was left empty.
func (m Model) configFromForm() (model.SMTPConfig, error) {
	port, err := strconv.Atoi(strings.TrimSpace(m.fb.port))
	if err != nil {
		return model.SMTPConfig{}, fmt.Errorf("port must be a number")
	}
	cfg := model.SMTPConfig{
		Server:      strings.TrimSpace(m.fb.server),
		Port:        port,
		Username:    strings.TrimSpace(m.fb.username),
		Password:    m.fb.password,
		UseTLS:      m.fb.useTLS,
		SenderName:  strings.TrimSpace(m.fb.senderName),
		SenderEmail: strings.TrimSpace(m.fb.senderEmail),
	}
	if cfg.Password == "" {
		saved, err := m.secrets.Lookup(credential.SMTPPasswordKey)
		if err != nil {
			return model.SMTPConfig{}, err
		}
		cfg.Password = saved
	}
	if err := api.Validate(cfg); err != nil {
		return model.SMTPConfig{}, err
	}
	return cfg, nil
}

// --- View ---

// View renders the settings view based on the current mode.
func (m Model) View() string {
	switch m.mode {
	case ModeForm, ModeConfirmDelete:
		if m.form == nil {
			return ""
		}
		return lipgloss.NewStyle().Padding(1, 2).Render(m.form.View())
	case ModeWorking:
		return m.frame(fmt.Sprintf("%s %s...\n\nPress esc to go back.", m.spinner.View(), m.working))
	case ModeResult:
		return m.viewResult()
	default:
		return m.viewConfig()
	}
}

func (m Model) viewConfig() string {
	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render("SMTP settings"))
	b.WriteString("\n\n")

	gray := lipgloss.NewStyle().Foreground(theme.ColorGray)
	switch {
	case m.loadErr != nil:
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorRed).Render(
			fmt.Sprintf("Could not load the configuration:\n%v", m.loadErr)))
	case m.config == nil:
		b.WriteString(gray.Italic(true).Render("No SMTP configuration.\nPress 'e' to add one."))
	default:
		c := m.config
		tls := "off"
		if c.UseTLS {
			tls = "on"
		}
		rows := [][2]string{
			{"Server", fmt.Sprintf("%s:%d", c.Server, c.Port)},
			{"TLS", tls},
			{"Username", c.Username},
			{"Sender", fmt.Sprintf("%s <%s>", c.SenderName, c.SenderEmail)},
		}
		for _, r := range rows {
			b.WriteString(fmt.Sprintf("%s %s\n", gray.Render(fmt.Sprintf("%-9s", r[0]+":")), r[1]))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(gray.Render("e edit | t test | d delete | r reload | esc back"))
	return m.frame(b.String())
}

func (m Model) viewResult() string {
	gray := lipgloss.NewStyle().Foreground(theme.ColorGray)
	if m.resultErr != nil {
		errStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorRed)
		return m.frame(errStyle.Render("Failed") + "\n\n" +
			m.resultErr.Error() + "\n\n" + gray.Render("enter/esc back"))
	}
	okStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGreen)
	return m.frame(okStyle.Render("Done") + "\n\n" +
		m.resultText + "\n\n" + gray.Render("enter/esc back"))
}

func (m Model) frame(content string) string {
	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(content)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	return max(40, min(m.width-4, 100))
}

// --- Commands ---

func (m Model) loadConfig() tea.Cmd {
	svc := m.service
	return func() tea.Msg {
		cfg, err := svc.GetConfig(context.Background())
		return configLoadedMsg{cfg: cfg, err: err}
	}
}

// testConfig tests the active configuration. The service masks the stored
// password, so the keyring copy is sent instead.
func (m Model) testConfig(cfg model.SMTPConfig) tea.Cmd {
	svc, secrets := m.service, m.secrets
	return func() tea.Msg {
		password, err := secrets.Lookup(credential.SMTPPasswordKey)
		if err != nil {
			return resultMsg{action: "test", err: err}
		}
		if password == "" {
			return resultMsg{action: "test", err: fmt.Errorf("no saved password; press e to enter it")}
		}
		cfg.Password = password

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := svc.TestConnection(ctx, cfg)
		if err != nil {
			return resultMsg{action: "test", err: err}
		}
		if !res.Success {
			return resultMsg{action: "test", err: fmt.Errorf("%s", res.Message)}
		}
		return resultMsg{action: "test", text: res.Message}
	}
}

func (m Model) saveConfig(cfg model.SMTPConfig) tea.Cmd {
	svc, secrets := m.service, m.secrets
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		saved, err := svc.AddConfig(ctx, cfg)
		if err != nil {
			return resultMsg{action: "save", err: err}
		}
		if err := secrets.Set(credential.SMTPPasswordKey, cfg.Password); err != nil {
			return resultMsg{action: "save", err: fmt.Errorf("configuration saved, but the password was not kept: %w", err)}
		}
		return resultMsg{
			action: "save",
			text:   fmt.Sprintf("Sending as %s <%s>", saved.SenderName, saved.SenderEmail),
			saved:  &saved,
		}
	}
}

func (m Model) deleteConfig(id string) tea.Cmd {
	svc, secrets := m.service, m.secrets
	return func() tea.Msg {
		if err := svc.DeleteConfig(context.Background(), id); err != nil {
			return resultMsg{action: "delete", err: err}
		}
		if err := secrets.Delete(credential.SMTPPasswordKey); err != nil {
			return resultMsg{action: "delete", err: err}
		}
		return resultMsg{action: "delete", text: "SMTP configuration deleted"}
	}
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}
