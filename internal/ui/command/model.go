package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/automail/internal/theme"
)

// CommandMsg is emitted when the user executes a command.
type CommandMsg string

// Spec describes one palette command.
type Spec struct {
	Name  string
	Args  string
	Usage string
}

// Commands lists what the palette understands, in display order.
var Commands = []Spec{
	{"filter", "<jmespath>", "filter teachers, e.g. contains(research, 'AI')"},
	{"college", "<name>", "show one college"},
	{"level", "<level>", "show one school level"},
	{"clear", "", "drop all filters"},
	{"add-all", "", "select every visible teacher"},
	{"drop-bounced", "", "unselect teachers whose address bounced"},
	{"cart", "", "open the selection"},
	{"clear-cart", "", "empty the selection"},
	{"compose", "", "write a message to the selection"},
	{"drafts", "", "open saved drafts"},
	{"smtp", "", "edit the SMTP configuration"},
	{"logs", "", "show the send log"},
	{"files", "", "manage attachments"},
	{"export", "<path>", "write the last draft as an .eml file"},
	{"scan-bounces", "", "look for bounce reports in the mailbox"},
	{"refresh", "", "reload teachers and logs"},
	{"theme", "[name]", "switch palette: default, campus, mono"},
	{"help", "", "show key bindings"},
	{"quit", "", "exit"},
}

// Parse splits a command line into its name and argument.
func Parse(line string) (name, arg string) {
	line = strings.TrimSpace(line)
	name, arg, _ = strings.Cut(line, " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

// historyLimit caps how many executed lines the palette remembers.
const historyLimit = 50

// Model is the command palette. Up and down walk through previously
// executed lines; ctrl+n and ctrl+p cycle name completions.
type Model struct {
	input   textinput.Model
	history []string
	// recall indexes history while browsing; len(history) means the
	// fresh line.
	recall int
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command, tab completes"
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.KeyMap.NextSuggestion = key.NewBinding(key.WithKeys("ctrl+n"))
	ti.KeyMap.PrevSuggestion = key.NewBinding(key.WithKeys("ctrl+p"))
	ti.Focus()
	ti.Width = width - 6

	names := make([]string, 0, len(Commands))
	for _, c := range Commands {
		names = append(names, c.Name)
	}
	ti.SetSuggestions(names)

	return Model{input: ti, width: width, height: height}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, nil
			}
			m.remember(line)
			return m, func() tea.Msg { return CommandMsg(line) }
		case tea.KeyUp:
			m.browse(-1)
			return m, nil
		case tea.KeyDown:
			m.browse(1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) remember(line string) {
	if n := len(m.history); n == 0 || m.history[n-1] != line {
		m.history = append(m.history, line)
	}
	if len(m.history) > historyLimit {
		m.history = m.history[len(m.history)-historyLimit:]
	}
	m.recall = len(m.history)
}

func (m *Model) browse(step int) {
	next := m.recall + step
	if next < 0 || next > len(m.history) {
		return
	}
	m.recall = next
	if next == len(m.history) {
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.history[next])
	m.input.CursorEnd()
}

// History returns the executed lines, oldest first.
func (m Model) History() []string {
	return append([]string(nil), m.history...)
}

// View renders the input with up to six matching commands beneath it.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Run command")

	name, _ := Parse(m.input.Value())
	usage := lipgloss.NewStyle().Foreground(theme.ColorGray)
	lines := []string{title, m.input.View(), ""}
	shown := 0
	for _, c := range Commands {
		if shown == 6 {
			break
		}
		if name != "" && !strings.HasPrefix(c.Name, name) {
			continue
		}
		lines = append(lines, usage.Render(fmt.Sprintf("%-24s %s", strings.TrimSpace(c.Name+" "+c.Args), c.Usage)))
		shown++
	}
	if shown == 0 {
		lines = append(lines, usage.Render("no such command"))
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
