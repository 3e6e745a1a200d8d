package drafts

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/automail/internal/keys"
	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/theme"
	"github.com/nhle/automail/internal/ui"
)

// Store is the draft persistence the view needs.
type Store interface {
	GetDrafts(ctx context.Context) ([]model.Draft, error)
	DeleteDraft(ctx context.Context, id string) error
}

// CloseMsg signals the parent to close the drafts view.
type CloseMsg struct{}

// OpenMsg asks the parent to open a draft in the compose form. A zero
// Draft starts a new message.
type OpenMsg struct {
	Draft model.Draft
}

type draftsMode int

const (
	modeList draftsMode = iota
	modeConfirmDelete
)

type formBindings struct {
	confirm bool
}

type draftsLoadedMsg struct {
	drafts []model.Draft
	err    error
}

type draftDeletedMsg struct{ err error }

// Model is the Bubble Tea model for the saved drafts list.
type Model struct {
	mode        draftsMode
	store       Store
	keys        *keys.KeyMap
	drafts      []model.Draft
	selectedIdx int
	confirmForm *huh.Form
	fb          *formBindings
	statusMsg   string
	width       int
	height      int
}

// New creates a new drafts view.
func New(s Store, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:  modeList,
		store: s,
		keys:  k,
		fb:    &formBindings{},
		width: width, height: height,
	}
}

// Init loads drafts from the store.
func (m Model) Init() tea.Cmd {
	return m.loadDrafts()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case draftsLoadedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		}
		m.drafts = msg.drafts
		if m.selectedIdx >= len(m.drafts) {
			m.selectedIdx = max(0, len(m.drafts)-1)
		}
		return m, nil

	case draftDeletedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = "Draft deleted"
		}
		m.mode = modeList
		return m, m.loadDrafts()

	case tea.KeyMsg:
		if m.mode == modeConfirmDelete {
			return m.updateConfirm(msg)
		}
		return m.handleListKey(msg)
	}

	if m.mode == modeConfirmDelete {
		return m.updateConfirm(msg)
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if len(m.drafts) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.drafts)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.drafts) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.drafts) - 1
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Select), key.Matches(msg, m.keys.Edit):
		if len(m.drafts) == 0 {
			return m, nil
		}
		d := m.drafts[m.selectedIdx]
		return m, func() tea.Msg { return OpenMsg{Draft: d} }

	case msg.String() == "n":
		return m, func() tea.Msg { return OpenMsg{} }

	case key.Matches(msg, m.keys.Remove):
		if len(m.drafts) == 0 {
			return m, nil
		}
		m.fb.confirm = false
		m.confirmForm = m.buildConfirmForm()
		m.mode = modeConfirmDelete
		return m, m.confirmForm.Init()
	}
	return m, nil
}

func (m Model) buildConfirmForm() *huh.Form {
	subject := ""
	if m.selectedIdx < len(m.drafts) {
		subject = m.drafts[m.selectedIdx].Subject
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete draft %q?", subject)).
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(max(40, min(m.width-4, 100)))
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil {
		m.mode = modeList
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	if m.confirmForm.State == huh.StateCompleted {
		if m.fb.confirm && m.selectedIdx < len(m.drafts) {
			return m, m.deleteDraft(m.drafts[m.selectedIdx].ID)
		}
		m.mode = modeList
		return m, nil
	}
	if m.confirmForm.State == huh.StateAborted {
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

// View renders the drafts list.
func (m Model) View() string {
	if m.mode == modeConfirmDelete && m.confirmForm != nil {
		return lipgloss.NewStyle().Padding(1, 2).Render(m.confirmForm.View())
	}

	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render("Drafts"))
	b.WriteString("\n\n")

	if len(m.drafts) == 0 {
		emptyStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)
		b.WriteString(emptyStyle.Render("No drafts yet. Press 'n' to write one."))
	}

	gray := lipgloss.NewStyle().Foreground(theme.ColorGray)
	for i, d := range m.drafts {
		subject := d.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		attach := ""
		if n := len(d.AttachmentIDs); n > 0 {
			attach = fmt.Sprintf(" +%d", n)
		}
		label := fmt.Sprintf("%s %s%s  %s",
			theme.FormatStyle(d.Format).Render(fmt.Sprintf("%-8s", d.Format)),
			ui.Truncate(subject, 40),
			attach,
			gray.Render(ui.RelativeTime(d.UpdatedAt)),
		)
		if i == m.selectedIdx {
			b.WriteString(theme.SelectedItemStyle.Render(label))
		} else {
			b.WriteString(theme.ListItemStyle.Render(label))
		}
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorYellow).Italic(true).Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(gray.Render("enter open | n new | d delete | esc back"))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) loadDrafts() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		drafts, err := s.GetDrafts(context.Background())
		return draftsLoadedMsg{drafts: drafts, err: err}
	}
}

func (m Model) deleteDraft(id string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		err := s.DeleteDraft(context.Background(), id)
		return draftDeletedMsg{err: err}
	}
}
