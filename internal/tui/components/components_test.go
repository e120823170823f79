package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/ralphopt/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRowSumsToTotal(t *testing.T) {
	for _, tc := range []struct{ total, n int }{{100, 3}, {80, 4}, {7, 2}, {10, 1}} {
		widths := LayoutRow(tc.total, tc.n)
		sum := 0
		for _, w := range widths {
			sum += w
		}
		if sum != tc.total {
			t.Errorf("LayoutRow(%d, %d) sums to %d", tc.total, tc.n, sum)
		}
		if widths[0] < widths[len(widths)-1] {
			t.Errorf("LayoutRow(%d, %d) = %v, remainder should go first", tc.total, tc.n, widths)
		}
	}
	if LayoutRow(10, 0) != nil {
		t.Error("LayoutRow with n=0 should be nil")
	}
}

func TestCardRowPadsShortCards(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	shortLines := lipgloss.Height(shortCard)
	tallLines := lipgloss.Height(tallCard)
	if shortLines >= tallLines {
		t.Fatal("short card should be shorter than tall card")
	}

	joined := CardRow([]string{tallCard, shortCard})
	lines := strings.Split(joined, "\n")
	if len(lines) != tallLines {
		t.Fatalf("joined height = %d, want %d", len(lines), tallLines)
	}

	width := lipgloss.Width(lines[0])
	for i, line := range lines {
		if lipgloss.Width(line) != width {
			t.Errorf("line %d width = %d, want %d", i, lipgloss.Width(line), width)
		}
		if i >= shortLines && !strings.Contains(line, "\x1b[") {
			t.Errorf("padding line %d has no styling", i)
		}
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	row := MetricCardRow([]Metric{
		{Label: "Cost", Value: "$1.00"},
		{Label: "Sessions", Value: "3", Note: "1 error"},
	}, 60)
	for i, line := range strings.Split(row, "\n") {
		if w := lipgloss.Width(line); w != 60 {
			t.Errorf("line %d width = %d, want 60", i, w)
		}
	}
}

func TestTabIdxByKey(t *testing.T) {
	for i, tab := range Tabs {
		if got := TabIdxByKey(tab.Key); got != i {
			t.Errorf("TabIdxByKey(%q) = %d, want %d", tab.Key, got, i)
		}
		if !strings.EqualFold(tab.Name[:1], string(tab.Key)) {
			t.Errorf("tab %q key %q is not its first letter", tab.Name, tab.Key)
		}
	}
	if TabIdxByKey('z') != -1 {
		t.Error("unknown key should map to -1")
	}
}

func TestRenderTabBarWidth(t *testing.T) {
	bar := RenderTabBar(1, 90)
	if w := lipgloss.Width(bar); w != 90 {
		t.Errorf("tab bar width = %d, want 90", w)
	}
	for _, tab := range Tabs {
		if !strings.Contains(bar, tab.Name[1:]) {
			t.Errorf("tab bar missing %q", tab.Name)
		}
	}
}

func TestStatusBarFillsWidth(t *testing.T) {
	bar := RenderStatusBar(50, "[q]uit", "3 sessions")
	if w := lipgloss.Width(bar); w != 50 {
		t.Errorf("status bar width = %d, want 50", w)
	}
}

func TestSparklineScalesToPeak(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)
	defer lipgloss.SetColorProfile(termenv.TrueColor)

	got := Sparkline([]float64{0, 5, 10}, theme.Active.Green)
	if got != "▁▄█" {
		t.Errorf("Sparkline = %q, want %q", got, "▁▄█")
	}
	if Sparkline(nil, theme.Active.Green) != "" {
		t.Error("empty series should render empty")
	}
}

func TestColorForShare(t *testing.T) {
	th := theme.Active
	if ColorForShare(0.1) != string(th.Green) {
		t.Error("small share should be green")
	}
	if ColorForShare(0.3) != string(th.Orange) {
		t.Error("mid share should be orange")
	}
	if ColorForShare(0.9) != string(th.Red) {
		t.Error("large share should be red")
	}
}
