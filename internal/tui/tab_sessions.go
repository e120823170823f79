package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ralphopt/internal/cli"
	"github.com/theirongolddev/ralphopt/internal/model"
	"github.com/theirongolddev/ralphopt/internal/tui/components"
	"github.com/theirongolddev/ralphopt/internal/tui/theme"
)

const minListWidth = 34

// sessionsState holds the sessions tab state. The list keeps iteration
// order; the detail pane shows the selected session's breakdown.
type sessionsState struct {
	results    []model.SessionResult
	cursor     int
	fullDetail bool
	detail     viewport.Model
}

func (s *sessionsState) move(delta int) {
	s.cursor = min(max(s.cursor+delta, 0), max(len(s.results)-1, 0))
}

func (s sessionsState) selected() (model.SessionResult, bool) {
	if s.cursor < 0 || s.cursor >= len(s.results) {
		return model.SessionResult{}, false
	}
	return s.results[s.cursor], true
}

// updateSessionsKey handles keys owned by the sessions tab. It reports
// whether the key was consumed.
func (a App) updateSessionsKey(key string) (App, bool) {
	ss := &a.sessState
	switch key {
	case "j", "down":
		ss.move(1)
	case "k", "up":
		ss.move(-1)
	case "g", "home":
		ss.move(-len(ss.results))
	case "G", "end":
		ss.move(len(ss.results))
	case "J", "ctrl+d":
		ss.detail.SetYOffset(ss.detail.YOffset + max(ss.detail.Height/2, 1))
		return a, true
	case "K", "ctrl+u":
		ss.detail.SetYOffset(ss.detail.YOffset - max(ss.detail.Height/2, 1))
		return a, true
	case "enter", "f":
		ss.fullDetail = !ss.fullDetail
		a.resizeDetail()
		return a, true
	case "esc":
		if !ss.fullDetail {
			return a, false
		}
		ss.fullDetail = false
		a.resizeDetail()
		return a, true
	default:
		return a, false
	}
	a.refreshDetail()
	return a, true
}

// detailWidths splits the content width between list and detail panes.
func (a App) detailWidths() (listW, detailW int) {
	cw := a.contentWidth()
	if a.sessState.fullDetail {
		return 0, cw
	}
	listW = max(cw/3, minListWidth)
	return listW, cw - listW
}

func (a *App) resizeDetail() {
	_, detailW := a.detailWidths()
	contentH := max(a.height-2, minContentHeight) // tab bar + status bar
	a.sessState.detail.Width = components.CardInnerWidth(detailW)
	a.sessState.detail.Height = max(contentH-3, 1) // card border + title
}

func (a *App) refreshDetail() {
	res, ok := a.sessState.selected()
	if !ok {
		a.sessState.detail.SetContent("")
		return
	}
	var b strings.Builder
	_ = a.reporter.Detailed(&b, res)
	a.sessState.detail.SetContent(strings.TrimLeft(b.String(), "\n"))
	a.sessState.detail.GotoTop()
}

func (a App) renderSessionsTab(cw, h int) string {
	t := theme.Active
	ss := a.sessState

	if len(ss.results) == 0 {
		muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
		return components.ContentCard("Sessions", muted.Render("No sessions with a session id in this log"), cw)
	}

	listW, detailW := a.detailWidths()
	res, _ := ss.selected()
	title := fmt.Sprintf("Iteration %d · %s", res.Iteration.Number, cli.ShortID(res.Iteration.SessionID))
	detailCard := components.ContentCard(title, ss.detail.View(), detailW)

	if ss.fullDetail {
		return detailCard
	}
	return components.CardRow([]string{a.renderSessionList(listW, h), detailCard})
}

func (a App) renderSessionList(w, h int) string {
	t := theme.Active
	ss := a.sessState
	inner := components.CardInnerWidth(w)

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceHover).Bold(true)
	errStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)

	visible := max(h-5, 3) // card border, title, header row
	offset := 0
	if ss.cursor >= visible {
		offset = ss.cursor - visible + 1
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-4s %-11s %8s %6s", "#", "Session", "Cost", "Tools")))
	b.WriteString("\n")

	end := min(offset+visible, len(ss.results))
	for i := offset; i < end; i++ {
		r := ss.results[i]
		line := fmt.Sprintf("%-4d %-11s %8s %6d",
			r.Iteration.Number,
			cli.ShortID(r.Iteration.SessionID),
			cli.FormatCost(r.Cost.EstimatedCost),
			len(r.Session.ToolCalls))
		line = truncStr(line, inner-2)
		marker := "  "
		if r.Iteration.IsError {
			marker = "! "
		}

		style := rowStyle
		if i == ss.cursor {
			style = selectedStyle
		}
		if r.Iteration.IsError && i != ss.cursor {
			b.WriteString(errStyle.Render(marker) + style.Render(line))
		} else {
			b.WriteString(style.Render(marker + line))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	return components.ContentCard(fmt.Sprintf("Sessions (%d)", len(ss.results)), b.String(), w)
}
