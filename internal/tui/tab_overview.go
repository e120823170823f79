package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ralphopt/internal/cli"
	"github.com/theirongolddev/ralphopt/internal/model"
	"github.com/theirongolddev/ralphopt/internal/pipeline"
	"github.com/theirongolddev/ralphopt/internal/tui/components"
	"github.com/theirongolddev/ralphopt/internal/tui/theme"
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	sum := pipeline.Summarize(a.result.Analysis)
	var b strings.Builder

	errNote := "no errors"
	if sum.Errors > 0 {
		errNote = fmt.Sprintf("%d errored", sum.Errors)
	}
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Iterations", Value: cli.FormatNumber(int64(sum.Iterations)), Note: errNote},
		{Label: "Sessions", Value: cli.FormatNumber(int64(sum.Sessions)), Note: fmt.Sprintf("%d agents", sum.Agents)},
		{Label: "Est. Cost", Value: cli.FormatCost(sum.TotalCost), Note: cli.FormatCost(sum.AvgCost) + "/session", Color: t.Green},
		{Label: "Tokens", Value: cli.FormatTokens(sum.InputTokens + sum.OutputTokens),
			Note: cli.FormatTokens(sum.InputTokens) + " in / " + cli.FormatTokens(sum.OutputTokens) + " out", Color: t.Blue},
		{Label: "Waste", Value: "~" + cli.FormatTokens(sum.WasteTokens), Note: fmt.Sprintf("%d patterns", len(a.result.Patterns)), Color: t.Orange},
	}, cw))
	b.WriteString("\n")

	if len(a.result.Results) > 0 {
		costs := make([]float64, len(a.result.Results))
		for i, r := range a.result.Results {
			costs[i] = r.Cost.EstimatedCost.InexactFloat64()
		}
		inner := components.CardInnerWidth(cw)
		if len(costs) > inner {
			costs = costs[len(costs)-inner:]
		}
		b.WriteString(components.ContentCard("Cost per session (iteration order)",
			components.Sparkline(costs, t.Green), cw))
		b.WriteString("\n")
	}

	halves := components.LayoutRow(cw, 2)
	b.WriteString(components.CardRow([]string{
		components.ContentCard("Tool Calls", a.renderToolDistribution(sum, halves[0]), halves[0]),
		components.ContentCard("Most Expensive Sessions", a.renderTopSessions(halves[1]), halves[1]),
	}))

	return b.String()
}

func (a App) renderToolDistribution(sum pipeline.Summary, outerW int) string {
	t := theme.Active
	if sum.ToolCalls == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render("No tool calls")
	}

	inner := components.CardInnerWidth(outerW)
	nameW := 16
	barW := max(inner-nameW-12, 5)
	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	numStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	tools := sum.Tools
	if limit := a.reporter.TopTools; limit > 0 && len(tools) > limit {
		tools = tools[:limit]
	}
	lines := make([]string, 0, len(tools))
	for _, tc := range tools {
		lines = append(lines,
			nameStyle.Render(fmt.Sprintf("%-*s", nameW, truncStr(tc.Name, nameW)))+
				components.HBar(float64(tc.Count), float64(sum.Tools[0].Count), barW, t.Blue)+
				numStyle.Render(fmt.Sprintf(" %5d %4.0f%%", tc.Count, float64(tc.Count)/float64(sum.ToolCalls)*100)))
	}
	return strings.Join(lines, "\n")
}

func (a App) renderTopSessions(outerW int) string {
	t := theme.Active
	ranked := pipeline.RankByCost(a.result.Results)
	if len(ranked) > 8 {
		ranked = ranked[:8]
	}
	if len(ranked) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render("No sessions")
	}

	inner := components.CardInnerWidth(outerW)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	costStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface)
	errStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)

	lines := make([]string, 0, len(ranked))
	for _, r := range ranked {
		line := rowStyle.Render(fmt.Sprintf("#%-4d %-11s ", r.Iteration.Number, cli.ShortID(r.Iteration.SessionID))) +
			costStyle.Render(fmt.Sprintf("%9s", cli.FormatCost(r.Cost.EstimatedCost))) +
			rowStyle.Render(fmt.Sprintf(" %7s", cli.FormatTokens(r.Cost.TotalTokens())))
		if kind := r.Iteration.ErrorKind(); kind != model.ErrorNone {
			line += errStyle.Render(" " + string(kind))
		}
		if lipgloss.Width(line) > inner {
			line = rowStyle.Render(truncStr(fmt.Sprintf("#%d %s", r.Iteration.Number, cli.FormatCost(r.Cost.EstimatedCost)), inner))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
