package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ralphopt/internal/tui/theme"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a unicode sparkline scaled to the series peak.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	peak := values[0]
	for _, v := range values[1:] {
		peak = max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v / peak * float64(len(sparkBlocks)-1))
		buf.WriteRune(sparkBlocks[min(max(idx, 0), len(sparkBlocks)-1)])
	}

	return lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(buf.String())
}

// HBar renders a horizontal bar of value/maxValue scaled to width cells.
func HBar(value, maxValue float64, width int, color lipgloss.Color) string {
	if maxValue <= 0 || width <= 0 {
		return ""
	}
	t := theme.Active
	n := min(max(int(value/maxValue*float64(width)), 0), width)
	filled := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(strings.Repeat("█", n))
	rest := lipgloss.NewStyle().Background(t.Surface).Render(strings.Repeat(" ", width-n))
	return filled + rest
}
