package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ralphopt/internal/tui/theme"
)

// ProgressBar renders the loading bar with a trailing percentage.
func ProgressBar(pct float64, width int) string {
	t := theme.Active
	pct = min(max(pct, 0), 1)
	filled := min(int(pct*float64(width)), width)

	barColor := t.Cyan
	switch {
	case pct >= 0.8:
		barColor = t.AccentBright
	case pct >= 0.5:
		barColor = t.Accent
	}

	filledStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface)
	emptyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	b.WriteString(filledStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(emptyStyle.Render(strings.Repeat("░", width-filled)))

	return b.String() + spaceStyle.Render(" ") + pctStyle.Render(fmt.Sprintf("%.0f%%", pct*100))
}

// ColorForShare returns a color that escalates with a 0-1 share of waste.
func ColorForShare(pct float64) string {
	t := theme.Active
	switch {
	case pct >= 0.5:
		return string(t.Red)
	case pct >= 0.25:
		return string(t.Orange)
	default:
		return string(t.Green)
	}
}

// ShareBar renders a labeled bar showing one pattern's share of total waste.
func ShareBar(label string, pct float64, labelW, barWidth int) string {
	t := theme.Active
	pct = min(max(pct, 0), 1)

	bar := progress.New(
		progress.WithSolidFill(ColorForShare(pct)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorForShare(pct))).Background(t.Surface).Bold(true)
	space := lipgloss.NewStyle().Background(t.Surface).Render(" ")

	if r := []rune(label); len(r) > labelW {
		label = string(r[:max(labelW-1, 0)]) + "…"
	}
	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) + space +
		bar.ViewAs(pct) + space + pctStyle.Render(fmt.Sprintf("%3.0f%%", pct*100))
}
