package teacherlist

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/automail/internal/cart"
	"github.com/nhle/automail/internal/keys"
	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/query"
	"github.com/nhle/automail/internal/store"
	"github.com/nhle/automail/internal/theme"
)

// Source supplies the cached directory.
type Source interface {
	GetTeachers(ctx context.Context, filter store.TeacherFilter) ([]model.Teacher, error)
}

// TeachersLoadedMsg is sent when teachers have been loaded from the store.
type TeachersLoadedMsg struct {
	Teachers []model.Teacher
	Err      error
}

// SelectedTeacherMsg is sent when a user opens a teacher's details.
type SelectedTeacherMsg struct {
	Teacher model.Teacher
}

// CartChangedMsg reports a change to the selection made from the list.
type CartChangedMsg struct {
	Added   int
	Removed int
}

// sortModes defines the available sort modes cycled by Tab.
var sortModes = []string{
	"name",
	"school_college",
	"title",
	"email",
	"fetched_at",
}

// Model is the teacher directory view.
type Model struct {
	list        list.Model
	source      Source
	cart        *cart.Store
	keys        *keys.KeyMap
	filter      store.TeacherFilter
	expr        *query.Filter
	bounced     map[string]bool
	sortIndex   int
	searchMode  bool
	searchInput textinput.Model
	loadErr     error
	width       int
	height      int
}

// New creates a teacher list over src that toggles membership in c.
func New(src Source, c *cart.Store, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{cart: c}, width, height-2)
	l.Title = "Teachers"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search name, email, research, title..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		source:      src,
		cart:        c,
		keys:        k,
		filter:      store.TeacherFilter{SortBy: sortModes[0]},
		bounced:     map[string]bool{},
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Init returns a command that loads the cached directory.
func (m Model) Init() tea.Cmd {
	return m.LoadTeachers()
}

// Update handles messages for the teacher list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TeachersLoadedMsg:
		m.loadErr = msg.Err
		teachers := msg.Teachers
		if m.expr != nil && msg.Err == nil {
			filtered, err := m.expr.Apply(teachers)
			if err != nil {
				m.loadErr = err
			} else {
				teachers = filtered
			}
		}
		items := make([]list.Item, len(teachers))
		for i, t := range teachers {
			items[i] = TeacherItem{Teacher: t}
		}
		cmd := m.list.SetItems(items)
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		q := strings.TrimSpace(m.searchInput.Value())
		if q != "" {
			m.filter.Query = &q
		} else {
			m.filter.Query = nil
		}
		return m, m.LoadTeachers()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.filter.Query = nil
		return m, m.LoadTeachers()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		t, ok := m.SelectedTeacher()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return SelectedTeacherMsg{Teacher: t}
		}

	case key.Matches(msg, m.keys.Toggle):
		t, ok := m.SelectedTeacher()
		if !ok {
			return m, nil
		}
		changed := CartChangedMsg{}
		if m.cart.Contains(t.ID) {
			m.cart.Remove(t.ID)
			changed.Removed = 1
		} else {
			m.cart.Add(t)
			changed.Added = 1
		}
		m.list.CursorDown()
		return m, func() tea.Msg { return changed }

	case key.Matches(msg, m.keys.AddAll):
		added := cart.AddAll(m.cart, m.Visible())
		return m, func() tea.Msg { return CartChangedMsg{Added: added} }

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.CycleSort):
		m.sortIndex = (m.sortIndex + 1) % len(sortModes)
		m.filter.SortBy = sortModes[m.sortIndex]
		return m, m.LoadTeachers()
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// SelectedTeacher returns the teacher under the cursor.
func (m Model) SelectedTeacher() (model.Teacher, bool) {
	item, ok := m.list.SelectedItem().(TeacherItem)
	if !ok {
		return model.Teacher{}, false
	}
	return item.Teacher, true
}

// Visible returns the teachers currently listed, after every filter.
func (m Model) Visible() []model.Teacher {
	items := m.list.Items()
	out := make([]model.Teacher, 0, len(items))
	for _, it := range items {
		if ti, ok := it.(TeacherItem); ok {
			out = append(out, ti.Teacher)
		}
	}
	return out
}

// SetExpression installs a JMESPath filter applied on top of the store
// query. An empty expression removes it.
func (m *Model) SetExpression(expr string) (tea.Cmd, error) {
	f, err := query.Compile(expr)
	if err != nil {
		return nil, err
	}
	if f.String() == "" {
		m.expr = nil
	} else {
		m.expr = f
	}
	return m.LoadTeachers(), nil
}

// SetCollege restricts the list to one college; empty clears it.
func (m *Model) SetCollege(college string) tea.Cmd {
	m.filter.College = optional(college)
	return m.LoadTeachers()
}

// SetSchoolLevel restricts the list to one school level; empty clears it.
func (m *Model) SetSchoolLevel(level string) tea.Cmd {
	m.filter.SchoolLevel = optional(level)
	return m.LoadTeachers()
}

// ClearFilters removes the search, expression and field filters.
func (m *Model) ClearFilters() tea.Cmd {
	m.filter.Query = nil
	m.filter.College = nil
	m.filter.SchoolLevel = nil
	m.expr = nil
	m.searchInput.Reset()
	return m.LoadTeachers()
}

// SetBounced replaces the set of addresses marked as bouncing.
func (m *Model) SetBounced(addrs map[string]bool) {
	if addrs == nil {
		addrs = map[string]bool{}
	}
	m.bounced = addrs
	m.list.SetDelegate(ItemDelegate{cart: m.cart, bounced: addrs})
}

// FilterSummary describes the active filters, or "" when none is set.
func (m Model) FilterSummary() string {
	var parts []string
	if m.filter.Query != nil {
		parts = append(parts, fmt.Sprintf("search %q", *m.filter.Query))
	}
	if m.filter.College != nil {
		parts = append(parts, "college "+*m.filter.College)
	}
	if m.filter.SchoolLevel != nil {
		parts = append(parts, "level "+*m.filter.SchoolLevel)
	}
	if m.expr != nil {
		parts = append(parts, "filter "+m.expr.String())
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ", ")
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// SortBy returns the active sort column.
func (m Model) SortBy() string {
	return m.filter.SortBy
}

// View renders the teacher list view.
func (m Model) View() string {
	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when no teachers are listed.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.loadErr != nil {
		return style.Render(fmt.Sprintf("Could not list teachers:\n%v", m.loadErr))
	}
	if m.FilterSummary() != "" {
		return style.Render("No matching teachers.\nType :clear to reset the filters.")
	}
	return style.Render(
		"No teachers cached yet.\n\n" +
			"Press r to fetch the directory.",
	)
}

// LoadTeachers returns a tea.Cmd that queries the store with the current filter.
func (m Model) LoadTeachers() tea.Cmd {
	filter := m.filter
	src := m.source
	return func() tea.Msg {
		teachers, err := src.GetTeachers(context.Background(), filter)
		return TeachersLoadedMsg{Teachers: teachers, Err: err}
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
