package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ralphopt/internal/tui/theme"
)

// Tab is one entry in the tab bar. Key is the shortcut and is always the
// first letter of Name, lower-cased.
type Tab struct {
	Name string
	Key  rune
}

// Tabs defines all available tabs.
var Tabs = []Tab{
	{Name: "Overview", Key: 'o'},
	{Name: "Sessions", Key: 's'},
	{Name: "Patterns", Key: 'p'},
}

// TabVisualWidth is the rendered width of a tab, including padding.
func TabVisualWidth(tab Tab, _ bool) int {
	return lipgloss.Width(tab.Name) + 2
}

// RenderTabBar renders a single-row tab bar padded to width.
func RenderTabBar(activeIdx int, width int) string {
	t := theme.Active

	activeStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(true).
		Padding(0, 1)

	inactiveStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	keyStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface).
		Bold(true)

	sepStyle := lipgloss.NewStyle().
		Foreground(t.Border).
		Background(t.Surface)

	pad := lipgloss.NewStyle().Background(t.Surface).Render(" ")

	parts := make([]string, 0, len(Tabs))
	for i, tab := range Tabs {
		if i == activeIdx {
			parts = append(parts, activeStyle.Render(tab.Name))
			continue
		}
		first, rest := tab.Name[:1], tab.Name[1:]
		parts = append(parts, pad+keyStyle.Render(first)+inactiveStyle.Render(rest)+pad)
	}

	bar := strings.Join(parts, sepStyle.Render("│"))
	return lipgloss.NewStyle().Background(t.Surface).Width(width).Render(bar)
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
