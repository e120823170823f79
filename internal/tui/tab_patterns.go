package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ralphopt/internal/cli"
	"github.com/theirongolddev/ralphopt/internal/tui/components"
	"github.com/theirongolddev/ralphopt/internal/tui/theme"
)

func (a App) renderPatternsTab(cw int) string {
	t := theme.Active
	patterns := a.result.Patterns

	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	if len(patterns) == 0 {
		return components.ContentCard("Detected Patterns", mutedStyle.Render("No significant waste patterns detected."), cw)
	}

	var total int64
	for _, p := range patterns {
		total += p.EstimatedWasteTokens
	}

	inner := components.CardInnerWidth(cw)
	labelW := 28
	barW := max(inner-labelW-6, 10)

	var shares strings.Builder
	for i, p := range patterns {
		pct := 0.0
		if total > 0 {
			pct = float64(p.EstimatedWasteTokens) / float64(total)
		}
		shares.WriteString(components.ShareBar(p.Name, pct, labelW, barW))
		if i < len(patterns)-1 {
			shares.WriteString("\n")
		}
	}

	var b strings.Builder
	b.WriteString(components.ContentCard(fmt.Sprintf("Waste Share (~%s tokens)", cli.FormatTokens(total)), shares.String(), cw))
	b.WriteString("\n")

	nameStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface).Bold(true)
	textStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Width(inner)
	suggestStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Width(inner)

	for i, p := range patterns {
		body := nameStyle.Render(p.Name) +
			mutedStyle.Render(fmt.Sprintf("  %d occurrences, ~%s wasted", p.Occurrences, cli.FormatTokens(p.EstimatedWasteTokens))) + "\n" +
			textStyle.Render(p.Description) + "\n" +
			suggestStyle.Render("→ "+p.Suggestion)
		b.WriteString(components.ContentCard(fmt.Sprintf("%d", i+1), body, cw))
		if i < len(patterns)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
