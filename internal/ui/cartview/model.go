// Package cartview shows the teachers selected for the next mailing.
package cartview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/automail/internal/cart"
	"github.com/nhle/automail/internal/keys"
	"github.com/nhle/automail/internal/theme"
	"github.com/nhle/automail/internal/ui"
)

// CloseMsg signals the parent to close the selection view.
type CloseMsg struct{}

// ChangedMsg signals that the selection was modified here.
type ChangedMsg struct{}

type mode int

const (
	modeList mode = iota
	modeConfirmClear
)

type formBindings struct {
	confirm bool
}

// Model is the Bubble Tea model for the selection view.
type Model struct {
	mode        mode
	cart        *cart.Store
	keys        *keys.KeyMap
	selectedIdx int
	confirmForm *huh.Form
	fb          *formBindings
	statusMsg   string
	width       int
	height      int
}

// New creates a selection view over c.
func New(c *cart.Store, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:  modeList,
		cart:  c,
		keys:  k,
		fb:    &formBindings{},
		width: width, height: height,
	}
}

// Init resets transient state when the view is opened.
func (m *Model) Init() tea.Cmd {
	m.mode = modeList
	m.statusMsg = ""
	m.clampCursor()
	return nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.mode == modeConfirmClear {
		return m.updateConfirm(msg)
	}

	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(kmsg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(kmsg, m.keys.Down):
		if n := m.cart.Count(); n > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % n
		}
		return m, nil

	case key.Matches(kmsg, m.keys.Up):
		if n := m.cart.Count(); n > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = n - 1
			}
		}
		return m, nil

	case key.Matches(kmsg, m.keys.Remove):
		items := m.cart.Items()
		if len(items) == 0 {
			return m, nil
		}
		ref := items[m.selectedIdx]
		m.cart.Remove(ref.ID)
		m.statusMsg = fmt.Sprintf("Removed %s", ref.Name)
		m.clampCursor()
		return m, func() tea.Msg { return ChangedMsg{} }

	case key.Matches(kmsg, m.keys.ClearCart):
		if m.cart.Count() == 0 {
			return m, nil
		}
		m.fb.confirm = false
		m.confirmForm = m.buildConfirmForm()
		m.mode = modeConfirmClear
		return m, m.confirmForm.Init()
	}
	return m, nil
}

func (m Model) buildConfirmForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Clear all %d selected teachers?", m.cart.Count())).
				Affirmative("Yes, clear").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth())
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
	switch m.confirmForm.State {
	case huh.StateCompleted:
		m.mode = modeList
		if !m.fb.confirm {
			return m, nil
		}
		m.cart.Clear()
		m.selectedIdx = 0
		m.statusMsg = "Selection cleared"
		return m, func() tea.Msg { return ChangedMsg{} }
	case huh.StateAborted:
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m *Model) clampCursor() {
	n := m.cart.Count()
	if m.selectedIdx >= n {
		m.selectedIdx = n - 1
	}
	if m.selectedIdx < 0 {
		m.selectedIdx = 0
	}
}

// View renders the selection.
func (m Model) View() string {
	if m.mode == modeConfirmClear && m.confirmForm != nil {
		return lipgloss.NewStyle().Padding(1, 2).Render(m.confirmForm.View())
	}

	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render(fmt.Sprintf("Selected teachers (%d)", m.cart.Count())))
	b.WriteString("\n\n")

	items := m.cart.Items()
	if len(items) == 0 {
		emptyStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)
		b.WriteString(emptyStyle.Render("Nothing selected. Press space on a teacher to add them."))
	}

	gray := lipgloss.NewStyle().Foreground(theme.ColorGray)
	for i, r := range items {
		label := fmt.Sprintf("%-12s %s  %s",
			ui.Truncate(r.Name, 12),
			r.Email,
			gray.Render(ui.Truncate(r.Title+" · "+r.SchoolCollege, 30)),
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
	b.WriteString(gray.Render("d remove | C clear | m compose | esc back"))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	return max(40, min(m.width-4, 100))
}
