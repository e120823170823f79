// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/ralphopt/internal/model"
)

// FormatTokens formats a token count with K/M suffixes.
// e.g., 1234 -> "1.2K", 1234567 -> "1.2M", 999 -> "999"
func FormatTokens(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FormatCost formats a USD amount with two decimals.
func FormatCost(cost decimal.Decimal) string {
	return "$" + cost.StringFixed(2)
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// ShortID abbreviates a session or agent id to its first 8 characters.
func ShortID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return id + "..."
}

// truncate cuts s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// SummarizeInput renders a one-line description of a tool call's input.
func SummarizeInput(tc model.ToolCall) string {
	switch tc.Name {
	case "Read", "Edit", "Write":
		fp := tc.StringInput("file_path")
		if fp == "" {
			return "(no path)"
		}
		return filepath.Base(fp)
	case "Bash":
		cmd := tc.StringInput("command")
		if len([]rune(cmd)) > 60 {
			return truncate(cmd, 60) + "..."
		}
		return cmd
	case "Grep":
		return `"` + tc.StringInput("pattern") + `"`
	case "Glob":
		return tc.StringInput("pattern")
	case "Task":
		return tc.StringInput("description")
	case "TodoWrite":
		return "(todo update)"
	}
	raw, err := json.Marshal(tc.Input)
	if err != nil {
		return ""
	}
	return truncate(string(raw), 60)
}
