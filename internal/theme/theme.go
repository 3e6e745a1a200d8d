// Package theme holds the colors and shared lipgloss styles of the UI.
// Use switches palettes; views read the package variables at render time.
package theme

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Palette is one named set of adaptive colors (dark value, light value).
type Palette struct {
	Blue, Green, Yellow, Red, Orange, Magenta lipgloss.AdaptiveColor
	Gray, White, Subtle, Border               lipgloss.AdaptiveColor
}

var palettes = map[string]Palette{
	"default": {
		Blue:    lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"},
		Green:   lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"},
		Yellow:  lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"},
		Red:     lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"},
		Orange:  lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"},
		Magenta: lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"},
		Gray:    lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"},
		White:   lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"},
		Subtle:  lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"},
		Border:  lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"},
	},
	// campus follows the school's blue and gold.
	"campus": {
		Blue:    lipgloss.AdaptiveColor{Dark: "#4F8FE6", Light: "#003A8C"},
		Green:   lipgloss.AdaptiveColor{Dark: "#52C41A", Light: "#237804"},
		Yellow:  lipgloss.AdaptiveColor{Dark: "#FFC53D", Light: "#AD6800"},
		Red:     lipgloss.AdaptiveColor{Dark: "#FF7875", Light: "#A8071A"},
		Orange:  lipgloss.AdaptiveColor{Dark: "#FFA940", Light: "#AD4E00"},
		Magenta: lipgloss.AdaptiveColor{Dark: "#B37FEB", Light: "#531DAB"},
		Gray:    lipgloss.AdaptiveColor{Dark: "#8C8C8C", Light: "#595959"},
		White:   lipgloss.AdaptiveColor{Dark: "#FAFAFA", Light: "#141414"},
		Subtle:  lipgloss.AdaptiveColor{Dark: "#1D39C4", Light: "#D6E4FF"},
		Border:  lipgloss.AdaptiveColor{Dark: "#2F54EB", Light: "#ADC6FF"},
	},
	"mono": {
		Blue:    lipgloss.AdaptiveColor{Dark: "#FFFFFF", Light: "#000000"},
		Green:   lipgloss.AdaptiveColor{Dark: "#D9D9D9", Light: "#262626"},
		Yellow:  lipgloss.AdaptiveColor{Dark: "#D9D9D9", Light: "#262626"},
		Red:     lipgloss.AdaptiveColor{Dark: "#FFFFFF", Light: "#000000"},
		Orange:  lipgloss.AdaptiveColor{Dark: "#BFBFBF", Light: "#434343"},
		Magenta: lipgloss.AdaptiveColor{Dark: "#BFBFBF", Light: "#434343"},
		Gray:    lipgloss.AdaptiveColor{Dark: "#8C8C8C", Light: "#8C8C8C"},
		White:   lipgloss.AdaptiveColor{Dark: "#FFFFFF", Light: "#000000"},
		Subtle:  lipgloss.AdaptiveColor{Dark: "#434343", Light: "#D9D9D9"},
		Border:  lipgloss.AdaptiveColor{Dark: "#595959", Light: "#BFBFBF"},
	},
}

// Current palette colors.
var (
	ColorBlue    lipgloss.AdaptiveColor
	ColorGreen   lipgloss.AdaptiveColor
	ColorYellow  lipgloss.AdaptiveColor
	ColorRed     lipgloss.AdaptiveColor
	ColorOrange  lipgloss.AdaptiveColor
	ColorMagenta lipgloss.AdaptiveColor
	ColorGray    lipgloss.AdaptiveColor
	ColorWhite   lipgloss.AdaptiveColor
	ColorSubtle  lipgloss.AdaptiveColor
	ColorBorder  lipgloss.AdaptiveColor
)

// Shared styles, rebuilt by Use.
var (
	// HeaderStyle is the application title bar.
	HeaderStyle lipgloss.Style
	// StatusBarStyle is the bottom bar; StatusErrorStyle replaces it while
	// an error is shown.
	StatusBarStyle   lipgloss.Style
	StatusErrorStyle lipgloss.Style
	DetailPanelStyle lipgloss.Style
	ListItemStyle    lipgloss.Style
	// SelectedItemStyle marks the row under the cursor.
	SelectedItemStyle lipgloss.Style
	HelpStyle         lipgloss.Style
	TitleStyle        lipgloss.Style
	// CartMarkStyle renders the marker of teachers in the selection.
	CartMarkStyle lipgloss.Style
	// BouncedStyle renders addresses known to bounce.
	BouncedStyle lipgloss.Style
)

var current string

func init() {
	if err := Use("default"); err != nil {
		panic(err)
	}
}

// Names lists the available palettes.
func Names() []string {
	names := make([]string, 0, len(palettes))
	for n := range palettes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Current returns the active palette name.
func Current() string {
	return current
}

// Use activates the named palette. An empty name selects "default"; an
// unknown name leaves the active palette unchanged.
func Use(name string) error {
	if name == "" {
		name = "default"
	}
	p, ok := palettes[name]
	if !ok {
		return fmt.Errorf("unknown theme %q (available: %v)", name, Names())
	}
	current = name

	ColorBlue, ColorGreen, ColorYellow = p.Blue, p.Green, p.Yellow
	ColorRed, ColorOrange, ColorMagenta = p.Red, p.Orange, p.Magenta
	ColorGray, ColorWhite, ColorSubtle, ColorBorder = p.Gray, p.White, p.Subtle, p.Border

	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorWhite).Background(ColorBlue).Padding(0, 1)
	StatusBarStyle = lipgloss.NewStyle().Foreground(ColorWhite).Background(ColorSubtle).Padding(0, 1)
	StatusErrorStyle = StatusBarStyle.Foreground(ColorRed).Bold(true)
	DetailPanelStyle = lipgloss.NewStyle().
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)
	ListItemStyle = lipgloss.NewStyle().PaddingLeft(2)
	SelectedItemStyle = lipgloss.NewStyle().
		PaddingLeft(1).
		Bold(true).
		Foreground(ColorBlue).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(ColorBlue)
	HelpStyle = lipgloss.NewStyle().Foreground(ColorGray).Italic(true)
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorWhite).MarginBottom(1)
	CartMarkStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorGreen)
	BouncedStyle = lipgloss.NewStyle().Foreground(ColorRed).Strikethrough(true)
	return nil
}

// SendStatusStyle returns a color-coded style for an email log status.
func SendStatusStyle(status string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch status {
	case "success":
		return base.Foreground(ColorGreen)
	case "failed":
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGray)
	}
}

// FormatStyle returns a color-coded style for a draft body format.
func FormatStyle(format string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch format {
	case "markdown":
		return base.Foreground(ColorMagenta)
	case "html":
		return base.Foreground(ColorOrange)
	default:
		return base.Foreground(ColorGray)
	}
}
