package cartview

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/automail/internal/cart"
	"github.com/nhle/automail/internal/keys"
	"github.com/nhle/automail/internal/model"
)

func filled() *cart.Store {
	c := cart.New()
	c.Add(model.TeacherRef{ID: "1", Name: "Li", Email: "li@example.edu"})
	c.Add(model.TeacherRef{ID: "2", Name: "Wang", Email: "wang@example.edu"})
	c.Add(model.TeacherRef{ID: "3", Name: "Zhao", Email: "zhao@example.edu"})
	return c
}

func press(m Model, s string) (Model, tea.Cmd) {
	return m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func TestRemoveUnderCursor(t *testing.T) {
	c := filled()
	m := New(c, keys.DefaultKeyMap(), 80, 24)

	m, _ = press(m, "j")
	m, cmd := press(m, "d")
	require.NotNil(t, cmd)
	assert.IsType(t, ChangedMsg{}, cmd())
	assert.Equal(t, []string{"1", "3"}, c.IDs())
	assert.Contains(t, m.View(), "Removed Wang")

	// the cursor now sits on the last row; removing it moves the cursor up
	m, _ = press(m, "d")
	assert.Equal(t, []string{"1"}, c.IDs())
	assert.Equal(t, 0, m.selectedIdx)
}

func TestRemoveOnEmptySelection(t *testing.T) {
	m := New(cart.New(), keys.DefaultKeyMap(), 80, 24)
	_, cmd := press(m, "d")
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Nothing selected")
}

func TestClearAsksFirst(t *testing.T) {
	c := filled()
	m := New(c, keys.DefaultKeyMap(), 80, 24)

	m, _ = press(m, "C")
	assert.Equal(t, modeConfirmClear, m.mode)
	assert.Equal(t, 3, c.Count(), "nothing cleared before confirming")
}

func TestEscCloses(t *testing.T) {
	m := New(filled(), keys.DefaultKeyMap(), 80, 24)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, CloseMsg{}, cmd())
}
