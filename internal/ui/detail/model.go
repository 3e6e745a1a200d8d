package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/automail/internal/cart"
	"github.com/nhle/automail/internal/keys"
	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// CartChangedMsg reports that the shown teacher was added to or removed
// from the selection.
type CartChangedMsg struct {
	ID       string
	Selected bool
}

// Model is the teacher detail view component.
type Model struct {
	teacher  *model.Teacher
	bounced  bool
	viewport viewport.Model
	cart     *cart.Store
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(c *cart.Store, keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		cart:     c,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}

		case key.Matches(msg, m.keys.Toggle):
			if m.teacher == nil {
				return m, nil
			}
			id := m.teacher.ID
			selected := m.cart.Add(*m.teacher)
			if !selected {
				m.cart.Remove(id)
			}
			m.refresh()
			return m, func() tea.Msg {
				return CartChangedMsg{ID: id, Selected: selected}
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.teacher == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No teacher selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.teacher == nil {
		return ""
	}

	t := m.teacher
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(t.Name))

	// Badges: selection state, bounce state, school level
	var badges []string
	if m.cart.Contains(t.ID) {
		badges = append(badges, theme.CartMarkStyle.Render("● selected"))
	} else {
		badges = append(badges, lipgloss.NewStyle().Foreground(theme.ColorGray).Render("○ not selected"))
	}
	if m.bounced {
		badges = append(badges, theme.BouncedStyle.Render("bounced"))
	}
	if t.SchoolLevel != "" {
		badges = append(badges, lipgloss.NewStyle().Foreground(theme.ColorMagenta).Render(t.SchoolLevel))
	}
	sections = append(sections, strings.Join(badges, "  "))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	field := func(label, value string) {
		if value == "" {
			return
		}
		sections = append(sections, fmt.Sprintf(
			"%s %s",
			metaStyle.Render(fmt.Sprintf("%-9s", label+":")),
			valStyle.Render(value),
		))
	}
	field("Title", t.Title)
	field("Email", t.Email)
	field("School", t.School)
	field("College", t.SchoolCollege)
	field("URL", t.URL)
	field("ID", t.ID)

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(0, min(m.width-4, 80))))
	sections = append(sections, "", separator, "")

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	sections = append(sections, headerStyle.Render("Research"))

	research := strings.TrimSpace(t.Research)
	if research == "" {
		research = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No research description")
	} else {
		research = lipgloss.NewStyle().Width(max(20, min(m.width-4, 100))).Render(research)
	}
	sections = append(sections, research)

	sections = append(sections, "", metaStyle.Render("space select/unselect | esc back"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetTeacher updates the teacher being displayed and re-renders.
func (m *Model) SetTeacher(t model.Teacher, bounced bool) {
	m.teacher = &t
	m.bounced = bounced
	m.refresh()
	m.viewport.GotoTop()
}

// Teacher returns the displayed teacher, if any.
func (m Model) Teacher() (model.Teacher, bool) {
	if m.teacher == nil {
		return model.Teacher{}, false
	}
	return *m.teacher, true
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderContent())
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.refresh()
}
