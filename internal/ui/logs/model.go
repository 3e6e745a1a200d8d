// Package logs shows the send log kept by the SMTP service.
package logs

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/automail/internal/keys"
	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/theme"
	"github.com/nhle/automail/internal/ui"
)

// Source lists send attempts, newest first.
type Source interface {
	Logs(ctx context.Context, q model.LogQuery) ([]model.EmailLog, error)
}

// CloseMsg signals the parent to close the logs view.
type CloseMsg struct{}

// LoadedMsg carries a page of logs for a query.
type LoadedMsg struct {
	Query model.LogQuery
	Logs  []model.EmailLog
	Err   error
}

var statusFilters = []string{"", model.SendStatusSuccess, model.SendStatusFailed}

// Model is the email log view.
type Model struct {
	source      Source
	keys        *keys.KeyMap
	query       model.LogQuery
	statusIdx   int
	logs        []model.EmailLog
	loadErr     error
	selectedIdx int
	expanded    bool
	searchMode  bool
	searchInput textinput.Model
	width       int
	height      int
}

// New creates a logs view fetching at most limit entries per query.
func New(src Source, k *keys.KeyMap, limit, width, height int) Model {
	si := textinput.New()
	si.Placeholder = "recipient address"
	si.Prompt = "/ "

	return Model{
		source:      src,
		keys:        k,
		query:       model.LogQuery{Limit: limit},
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Init loads the first page.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// SetLogs replaces the entries with a background refresh, unless a
// filter is active, in which case the refresh does not apply.
func (m *Model) SetLogs(logs []model.EmailLog) {
	if m.query.Status != "" || m.query.Email != "" {
		return
	}
	m.logs = logs
	m.loadErr = nil
	m.clampCursor()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.Query != m.query {
			return m, nil
		}
		m.logs = msg.Logs
		m.loadErr = msg.Err
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleKeys(msg)
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.query.Email = strings.TrimSpace(m.searchInput.Value())
		return m, m.Load()
	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.query.Email = ""
		return m, m.Load()
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		if m.expanded {
			m.expanded = false
			return m, nil
		}
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if len(m.logs) > 0 {
			m.selectedIdx = min(m.selectedIdx+1, len(m.logs)-1)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.selectedIdx > 0 {
			m.selectedIdx--
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		m.expanded = !m.expanded && len(m.logs) > 0
		return m, nil

	case key.Matches(msg, m.keys.CycleSort):
		m.statusIdx = (m.statusIdx + 1) % len(statusFilters)
		m.query.Status = statusFilters[m.statusIdx]
		return m, m.Load()

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.query.Email)
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.Load()
	}
	return m, nil
}

func (m *Model) clampCursor() {
	if m.selectedIdx >= len(m.logs) {
		m.selectedIdx = max(0, len(m.logs)-1)
	}
}

// Load returns a command fetching logs for the current query.
func (m Model) Load() tea.Cmd {
	src, q := m.source, m.query
	return func() tea.Msg {
		logs, err := src.Logs(context.Background(), q)
		return LoadedMsg{Query: q, Logs: logs, Err: err}
	}
}

// Selected returns the entry under the cursor.
func (m Model) Selected() (model.EmailLog, bool) {
	if m.selectedIdx < len(m.logs) {
		return m.logs[m.selectedIdx], true
	}
	return model.EmailLog{}, false
}

// View renders the log list, or the selected entry when expanded.
func (m Model) View() string {
	if m.expanded {
		if l, ok := m.Selected(); ok {
			return m.frame(m.renderEntry(l))
		}
	}

	var b strings.Builder
	title := "Email logs"
	if m.query.Status != "" {
		title += " · " + m.query.Status
	}
	if m.query.Email != "" {
		title += " · " + m.query.Email
	}
	b.WriteString(theme.TitleStyle.Render(title))
	b.WriteString("\n")
	if m.searchMode {
		b.WriteString(m.searchInput.View())
	}
	b.WriteString("\n")

	gray := lipgloss.NewStyle().Foreground(theme.ColorGray)
	switch {
	case m.loadErr != nil:
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.loadErr.Error()))
	case len(m.logs) == 0:
		b.WriteString(gray.Italic(true).Render("No matching send attempts."))
	}

	rows := max(1, m.height-8)
	start := 0
	if m.selectedIdx >= rows {
		start = m.selectedIdx - rows + 1
	}
	for i := start; i < len(m.logs) && i < start+rows; i++ {
		l := m.logs[i]
		line := fmt.Sprintf("%s %-10s %s  %s",
			theme.SendStatusStyle(l.Status).Render(fmt.Sprintf("%-7s", l.Status)),
			gray.Render(ui.RelativeTime(l.SendTime.Time)),
			ui.Truncate(strings.Join(l.To, ", "), 32),
			ui.Truncate(l.Subject, 40),
		)
		if i == m.selectedIdx {
			b.WriteString(theme.SelectedItemStyle.Render(line))
		} else {
			b.WriteString(theme.ListItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(gray.Render("enter open | tab status | / recipient | r reload | esc back"))
	return m.frame(b.String())
}

func (m Model) renderEntry(l model.EmailLog) string {
	gray := lipgloss.NewStyle().Foreground(theme.ColorGray)
	row := func(label, value string) string {
		return gray.Render(fmt.Sprintf("%-9s", label+":")) + " " + value + "\n"
	}

	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render(l.Subject))
	b.WriteString("\n")
	b.WriteString(row("Status", theme.SendStatusStyle(l.Status).Render(l.Status)))
	b.WriteString(row("Sent", l.SendTime.Local().Format("2006-01-02 15:04:05")))
	b.WriteString(row("From", l.SenderEmail))
	b.WriteString(row("To", strings.Join(l.To, ", ")))
	if len(l.Cc) > 0 {
		b.WriteString(row("Cc", strings.Join(l.Cc, ", ")))
	}
	if len(l.Bcc) > 0 {
		b.WriteString(row("Bcc", strings.Join(l.Bcc, ", ")))
	}
	if l.ErrorMessage != "" {
		b.WriteString(row("Error", lipgloss.NewStyle().Foreground(theme.ColorRed).Render(l.ErrorMessage)))
	}
	b.WriteString("\n")
	b.WriteString(l.Body)
	b.WriteString("\n\n")
	b.WriteString(gray.Render("esc back"))
	return b.String()
}

func (m Model) frame(content string) string {
	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(content)
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.searchInput.Width = width - 8
}
