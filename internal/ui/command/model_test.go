package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line     string
		wantName string
		wantArg  string
	}{
		{"quit", "quit", ""},
		{"  Filter   contains(research, 'AI') ", "filter", "contains(research, 'AI')"},
		{"export /tmp/out.eml", "export", "/tmp/out.eml"},
		{"", "", ""},
	}
	for _, tt := range tests {
		name, arg := Parse(tt.line)
		assert.Equal(t, tt.wantName, name, tt.line)
		assert.Equal(t, tt.wantArg, arg, tt.line)
	}
}

func TestEnterEmitsCommand(t *testing.T) {
	m := New(80, 24)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("college Computing")})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, CommandMsg("college Computing"), cmd())
	assert.Empty(t, m.input.Value())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestViewHintsMatchPrefix(t *testing.T) {
	m := New(100, 24)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("dr")})
	v := m.View()
	assert.Contains(t, v, "drafts")
	assert.Contains(t, v, "drop-bounced")
	assert.NotContains(t, v, "scan-bounces")
}

func TestHistoryRecall(t *testing.T) {
	m := New(80, 24)
	for _, line := range []string{"cart", "logs", "logs"} {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(line)})
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	}
	assert.Equal(t, []string{"cart", "logs"}, m.History())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "logs", m.input.Value())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "cart", m.input.Value())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "cart", m.input.Value(), "stops at the oldest line")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Empty(t, m.input.Value())
}

func TestViewReportsUnknownPrefix(t *testing.T) {
	m := New(100, 24)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("zz")})
	assert.Contains(t, m.View(), "no such command")
}
