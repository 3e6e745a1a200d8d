package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestLayout_ContentHeight(t *testing.T) {
	assert.Equal(t, 22, NewLayout(80, 24).ContentHeight())
	assert.Equal(t, 0, NewLayout(80, 1).ContentHeight())
}

func TestLayout_BarsFillWidth(t *testing.T) {
	l := NewLayout(60, 20)

	header := l.RenderHeader("automail", "idle")
	assert.Equal(t, 60, lipgloss.Width(header))
	assert.Contains(t, header, "automail")
	assert.Contains(t, header, "idle")

	bar := l.RenderStatusBar("q quit", "3 selected", false)
	assert.Equal(t, 60, lipgloss.Width(bar))
	assert.True(t, strings.Index(bar, "q quit") < strings.Index(bar, "3 selected"))
}

func TestLayout_FrameStacksSections(t *testing.T) {
	l := NewLayout(20, 5)
	out := l.RenderWithFrame("head", "body", "foot")
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 3)
}
