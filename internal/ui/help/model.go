package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/automail/internal/keys"
	"github.com/nhle/automail/internal/theme"
	"github.com/nhle/automail/internal/ui/command"
)

// sectionTitles names the groups returned by KeyMap.FullHelp, in order.
var sectionTitles = []string{"Navigate", "Find", "Selection", "Views", "In view"}

// Model is the scrollable reference screen listing key bindings and
// palette commands.
type Model struct {
	keys     *keys.KeyMap
	viewport viewport.Model
	width    int
	height   int
}

// New creates the help screen.
func New(k *keys.KeyMap, width, height int) Model {
	m := Model{keys: k, viewport: viewport.New(0, 0)}
	m.SetSize(width, height)
	return m
}

// Init returns nil.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update scrolls the reference.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the reference inside the detail panel frame.
func (m Model) View() string {
	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(m.viewport.View())
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(width-8, 10)
	m.viewport.Height = max(height-6, 3)
	m.viewport.SetContent(m.content())
}

func (m Model) content() string {
	heading := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	keyStyle := lipgloss.NewStyle().Foreground(theme.ColorBlue)
	desc := lipgloss.NewStyle().Foreground(theme.ColorGray)

	var b strings.Builder
	for i, group := range m.keys.FullHelp() {
		title := "More"
		if i < len(sectionTitles) {
			title = sectionTitles[i]
		}
		b.WriteString(heading.Render(title))
		b.WriteString("\n")
		for _, binding := range group {
			writeBinding(&b, binding, keyStyle, desc)
		}
		b.WriteString("\n")
	}

	b.WriteString(heading.Render("Commands (press : then type)"))
	b.WriteString("\n")
	for _, c := range command.Commands {
		usage := strings.TrimSpace(c.Name + " " + c.Args)
		fmt.Fprintf(&b, "  %s %s\n", keyStyle.Render(fmt.Sprintf("%-24s", usage)), desc.Render(c.Usage))
	}
	return b.String()
}

func writeBinding(b *strings.Builder, k key.Binding, keyStyle, desc lipgloss.Style) {
	if !k.Enabled() {
		return
	}
	h := k.Help()
	fmt.Fprintf(b, "  %s %s\n", keyStyle.Render(fmt.Sprintf("%-10s", h.Key)), desc.Render(h.Desc))
}
