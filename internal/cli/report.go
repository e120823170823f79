package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ralphopt/internal/config"
	"github.com/theirongolddev/ralphopt/internal/detect"
	"github.com/theirongolddev/ralphopt/internal/model"
	"github.com/theirongolddev/ralphopt/internal/pipeline"
)

// Default report limits.
const (
	DefaultDetailLimit = 50
	DefaultTopTools    = 10
)

// Reporter writes human-readable reports. With Styled unset the output is
// plain text suitable for pipes and files.
type Reporter struct {
	Styled      bool
	DetailLimit int // tool calls listed per session in detailed output
	TopTools    int // rows of the tool distribution
}

// NewReporter returns a Reporter with default limits.
func NewReporter(styled bool) *Reporter {
	return &Reporter{Styled: styled, DetailLimit: DefaultDetailLimit, TopTools: DefaultTopTools}
}

func (r *Reporter) style(s lipgloss.Style, text string) string {
	if !r.Styled {
		return text
	}
	return s.Render(text)
}

func (r *Reporter) limits() (detail, top int) {
	detail, top = r.DetailLimit, r.TopTools
	if detail <= 0 {
		detail = DefaultDetailLimit
	}
	if top <= 0 {
		top = DefaultTopTools
	}
	return detail, top
}

// Summary writes the aggregate report for one analysis.
func (r *Reporter) Summary(w io.Writer, a model.Analysis) error {
	sum := pipeline.Summarize(a)
	_, topTools := r.limits()
	var b strings.Builder

	b.WriteString(r.style(titleStyle, "Ralph Optimizer Report") + "\n")
	b.WriteString(r.style(dimStyle, strings.Repeat("=", 50)) + "\n")
	fmt.Fprintf(&b, "Log: %s\n", a.LogPath)
	if a.Project != "" {
		fmt.Fprintf(&b, "Project: %s\n", a.Project)
	}
	fmt.Fprintf(&b, "Iterations analyzed: %d\n", sum.Iterations)
	fmt.Fprintf(&b, "Sessions parsed: %d\n", sum.Sessions)
	fmt.Fprintf(&b, "Total estimated cost: %s\n", r.style(costStyle, FormatCost(sum.TotalCost)))
	fmt.Fprintf(&b, "Total tokens: %s input, %s output\n",
		r.style(tokenStyle, FormatTokens(sum.InputTokens)),
		r.style(tokenStyle, FormatTokens(sum.OutputTokens)))
	b.WriteString("\n")

	if sum.Errors > 0 {
		fmt.Fprintf(&b, "Error iterations: %s\n", r.style(warnStyle, fmt.Sprintf("%d/%d", sum.Errors, sum.Iterations)))
		if kinds := formatErrorKinds(sum.ErrorsByKind); kinds != "" {
			fmt.Fprintf(&b, "  %s\n", r.style(mutedStyle, kinds))
		}
		if reset, ok := a.LatestRateLimitReset(); ok {
			fmt.Fprintf(&b, "  Usage limit resets %s\n", reset)
		}
		b.WriteString("\n")
	}

	if len(a.Results) > 0 {
		b.WriteString(r.style(headerStyle, "Cost Per Session:") + "\n")
		for i, res := range a.Results {
			marker := ""
			if res.Iteration.IsError {
				marker = " " + r.style(errorStyle, "[ERROR]")
			}
			fmt.Fprintf(&b, "  %d. Session %s %s (%s tokens)%s\n",
				i+1,
				ShortID(res.Iteration.SessionID),
				r.style(costStyle, FormatCost(res.Cost.EstimatedCost)),
				FormatTokens(res.Cost.TotalTokens()),
				marker)
		}
		b.WriteString("\n")
	}

	if sum.ToolCalls > 0 {
		b.WriteString(r.style(headerStyle, fmt.Sprintf("Tool Call Distribution (%d total):", sum.ToolCalls)) + "\n")
		tools := sum.Tools
		if len(tools) > topTools {
			tools = tools[:topTools]
		}
		for _, tc := range tools {
			pct := float64(tc.Count) / float64(sum.ToolCalls) * 100
			fmt.Fprintf(&b, "  %-20s %4d (%.0f%%)", tc.Name, tc.Count, pct)
			if r.Styled {
				b.WriteString(" " + RenderHorizontalBar(float64(tc.Count), float64(sum.Tools[0].Count), 20))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(a.Patterns) > 0 {
		b.WriteString(r.style(headerStyle, "Detected Patterns:") + "\n")
		for i, p := range a.Patterns {
			fmt.Fprintf(&b, "  %d. %s (%d occurrences, ~%s wasted)\n",
				i+1, r.style(warnStyle, p.Name), p.Occurrences, FormatTokens(p.EstimatedWasteTokens))
			fmt.Fprintf(&b, "     %s\n", p.Description)
			fmt.Fprintf(&b, "     -> %s\n", p.Suggestion)
		}
		b.WriteString("\n")
	}

	b.WriteString(r.style(headerStyle, "Recommendations:") + "\n")
	if len(a.Patterns) == 0 {
		b.WriteString("  No significant waste patterns detected.\n")
	}
	for i, p := range a.Patterns {
		fmt.Fprintf(&b, "  %d. %s (saves ~%s tokens)\n", i+1, p.Suggestion, FormatTokens(p.EstimatedWasteTokens))
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// DetailedHeader writes the banner that precedes per-session breakdowns.
func (r *Reporter) DetailedHeader(w io.Writer) error {
	rule := r.style(dimStyle, strings.Repeat("=", 50))
	_, err := fmt.Fprintf(w, "\n%s\n%s\n%s\n", rule, r.style(titleStyle, "DETAILED SESSION BREAKDOWN"), rule)
	return err
}

// Detailed writes the breakdown of one session: token totals, the first
// DetailLimit tool calls, and one line per subagent.
func (r *Reporter) Detailed(w io.Writer, res model.SessionResult) error {
	detailLimit, _ := r.limits()
	s := res.Session
	var b strings.Builder

	fmt.Fprintf(&b, "\nSession: %s\n", r.style(headerStyle, s.SessionID))
	fmt.Fprintf(&b, "  Input tokens:  %s\n", FormatTokens(s.TotalInputTokens))
	fmt.Fprintf(&b, "  Output tokens: %s\n", FormatTokens(s.TotalOutputTokens))
	fmt.Fprintf(&b, "  Estimated cost: %s\n", r.style(costStyle, FormatCost(res.Cost.EstimatedCost)))
	fmt.Fprintf(&b, "  Tool calls: %d\n", len(s.ToolCalls))
	fmt.Fprintf(&b, "  Agents: %d\n", len(s.Agents))

	if len(s.ToolCalls) > 0 {
		b.WriteString("  Tool call sequence:\n")
		calls := s.ToolCalls
		if len(calls) > detailLimit {
			calls = calls[:detailLimit]
		}
		for _, tc := range calls {
			fmt.Fprintf(&b, "    [%3d] %s: %s\n", tc.Index, tc.Name, r.style(mutedStyle, SummarizeInput(tc)))
		}
		if extra := len(s.ToolCalls) - detailLimit; extra > 0 {
			fmt.Fprintf(&b, "    ... and %d more\n", extra)
		}
	}

	if reads := detect.LargeFileReads(s); len(reads) > 0 {
		b.WriteString("  Full-file re-reads:\n")
		for _, lf := range reads {
			fmt.Fprintf(&b, "    %s read %d times without offset/limit\n", lf.FilePath, lf.ReadCount)
		}
	}

	if len(s.Agents) > 0 {
		b.WriteString("  Agent sub-sessions:\n")
		for _, a := range s.Agents {
			label := a.Tier.String()
			if a.Model != "" {
				label += ", " + config.NormalizeModelName(a.Model)
			}
			fmt.Fprintf(&b, "    %s (%s) - %d tool calls, %s tokens\n",
				ShortID(a.AgentID), label, len(a.ToolCalls), FormatTokens(a.TotalTokens()))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

var errorKindLabels = []struct {
	kind  model.ErrorKind
	label string
}{
	{model.ErrorRateLimit, "rate limited"},
	{model.ErrorAPIServer, "API server error"},
	{model.ErrorOther, "other"},
}

func formatErrorKinds(kinds map[model.ErrorKind]int) string {
	var parts []string
	for _, k := range errorKindLabels {
		if n := kinds[k.kind]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, k.label))
		}
	}
	return strings.Join(parts, ", ")
}
