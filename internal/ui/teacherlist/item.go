package teacherlist

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/automail/internal/cart"
	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/theme"
	"github.com/nhle/automail/internal/ui"
)

// TeacherItem wraps a model.Teacher so it can be used in a bubbles/list.
type TeacherItem struct {
	Teacher model.Teacher
}

// FilterValue returns the string used for fuzzy filtering.
func (i TeacherItem) FilterValue() string { return i.Teacher.Name }

// Title returns the teacher name for the list.
func (i TeacherItem) Title() string { return i.Teacher.Name }

// Description returns a short summary line for the list.
func (i TeacherItem) Description() string {
	parts := []string{i.Teacher.Title, i.Teacher.SchoolCollege, i.Teacher.Email}
	return strings.Join(parts, " | ")
}

// ItemDelegate renders one teacher per line, marking selected teachers
// and addresses known to bounce.
type ItemDelegate struct {
	cart    *cart.Store
	bounced map[string]bool
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single list item line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TeacherItem)
	if !ok {
		return
	}
	t := ti.Teacher

	mark := "○"
	if d.cart != nil && d.cart.Contains(t.ID) {
		mark = theme.CartMarkStyle.Render("●")
	}

	email := t.Email
	if d.bounced[strings.ToLower(strings.TrimSpace(t.Email))] {
		email = theme.BouncedStyle.Render(email) + lipgloss.NewStyle().
			Foreground(theme.ColorRed).
			Render(" bounced")
	}

	gray := lipgloss.NewStyle().Foreground(theme.ColorGray)
	line := fmt.Sprintf(
		"%s %-12s %s  %s  %s",
		mark,
		ui.Truncate(t.Name, 12),
		gray.Render(ui.Truncate(t.Title, 10)),
		gray.Render(ui.Truncate(t.SchoolCollege, 16)),
		email,
	)

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}
