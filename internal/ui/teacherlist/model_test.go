package teacherlist

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/automail/internal/cart"
	"github.com/nhle/automail/internal/keys"
	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/store"
)

type fakeSource struct {
	teachers []model.Teacher
	last     store.TeacherFilter
}

func (f *fakeSource) GetTeachers(_ context.Context, filter store.TeacherFilter) ([]model.Teacher, error) {
	f.last = filter
	return f.teachers, nil
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func loaded(t *testing.T, m Model) Model {
	t.Helper()
	msg := m.LoadTeachers()()
	m, _ = m.Update(msg)
	return m
}

func newList(t *testing.T) (Model, *cart.Store, *fakeSource) {
	t.Helper()
	src := &fakeSource{teachers: []model.Teacher{
		{ID: "1", Name: "Li", Email: "li@example.edu", SchoolLevel: "985"},
		{ID: "2", Name: "Wang", Email: "wang@example.edu", SchoolLevel: "211"},
		{ID: "3", Name: "Zhao", Email: "zhao@example.edu", SchoolLevel: "985"},
	}}
	c := cart.New()
	m := New(src, c, keys.DefaultKeyMap(), 80, 24)
	return loaded(t, m), c, src
}

func TestToggleSelectsAndUnselects(t *testing.T) {
	m, c, _ := newList(t)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	require.NotNil(t, cmd)
	assert.Equal(t, CartChangedMsg{Added: 1}, cmd())
	assert.Equal(t, []string{"1"}, c.IDs())

	// the cursor moved on; go back and toggle again
	m, _ = m.Update(runeKey('k'))
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.Equal(t, CartChangedMsg{Removed: 1}, cmd())
	assert.Zero(t, c.Count())
}

func TestAddAllAddsVisibleOnly(t *testing.T) {
	m, c, _ := newList(t)
	c.Add(model.Teacher{ID: "1", Email: "li@example.edu"})

	cmd, err := m.SetExpression("school_level == '985'")
	require.NoError(t, err)
	m, _ = m.Update(cmd())
	require.Len(t, m.Visible(), 2)

	_, cmd = m.Update(runeKey('A'))
	assert.Equal(t, CartChangedMsg{Added: 1}, cmd())
	assert.Equal(t, []string{"1", "3"}, c.IDs())
}

func TestBadExpressionKeepsPrevious(t *testing.T) {
	m, _, _ := newList(t)
	_, err := m.SetExpression("school_level ==")
	assert.Error(t, err)
	assert.Len(t, m.Visible(), 3)
	assert.Empty(t, m.FilterSummary())
}

func TestSearchAndSortReachTheStore(t *testing.T) {
	m, _, src := newList(t)

	m, _ = m.Update(runeKey('/'))
	for _, r := range "wang" {
		m, _ = m.Update(runeKey(r))
	}
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	cmd()
	require.NotNil(t, src.last.Query)
	assert.Equal(t, "wang", *src.last.Query)
	assert.Contains(t, m.FilterSummary(), `search "wang"`)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	cmd()
	assert.Equal(t, "school_college", src.last.SortBy)

	cmd = m.ClearFilters()
	cmd()
	assert.Nil(t, src.last.Query)
	assert.Empty(t, m.FilterSummary())
}

func TestFieldFilters(t *testing.T) {
	m, _, src := newList(t)

	m.SetCollege("计算机学院")()
	require.NotNil(t, src.last.College)
	assert.Equal(t, "计算机学院", *src.last.College)

	m.SetSchoolLevel(" ")()
	assert.Nil(t, src.last.SchoolLevel)
}

func TestSelectOpensDetail(t *testing.T) {
	m, _, _ := newList(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(SelectedTeacherMsg)
	require.True(t, ok)
	assert.Equal(t, "Li", msg.Teacher.Name)
}
