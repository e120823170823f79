package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/ralphopt/internal/model"
)

// Output formats for machine-readable reports.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// StructuredReport is the machine-readable form of an analysis.
type StructuredReport struct {
	LogPath           string          `json:"log_path" yaml:"log_path"`
	Project           string          `json:"project,omitempty" yaml:"project,omitempty"`
	Iterations        int             `json:"iterations" yaml:"iterations"`
	Sessions          int             `json:"sessions" yaml:"sessions"`
	TotalCostUSD      float64         `json:"total_cost_usd" yaml:"total_cost_usd"`
	TotalInputTokens  int64           `json:"total_input_tokens" yaml:"total_input_tokens"`
	TotalOutputTokens int64           `json:"total_output_tokens" yaml:"total_output_tokens"`
	ErrorCount        int             `json:"error_count" yaml:"error_count"`
	PerSession        []SessionRecord `json:"per_session" yaml:"per_session"`
	Patterns          []model.Pattern `json:"patterns" yaml:"patterns"`
}

// SessionRecord is one per_session entry.
type SessionRecord struct {
	SessionID    string          `json:"session_id" yaml:"session_id"`
	Iteration    int             `json:"iteration" yaml:"iteration"`
	IsError      bool            `json:"is_error" yaml:"is_error"`
	ErrorKind    model.ErrorKind `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	CostUSD      float64         `json:"cost_usd" yaml:"cost_usd"`
	InputTokens  int64           `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int64           `json:"output_tokens" yaml:"output_tokens"`
	ToolCalls    int             `json:"tool_calls" yaml:"tool_calls"`
}

// BuildStructured converts an analysis into its structured report.
func BuildStructured(a model.Analysis) StructuredReport {
	in, out := a.TotalTokens()
	rep := StructuredReport{
		LogPath:           a.LogPath,
		Project:           a.Project,
		Iterations:        len(a.Iterations),
		Sessions:          len(a.Results),
		TotalCostUSD:      a.TotalCost().InexactFloat64(),
		TotalInputTokens:  in,
		TotalOutputTokens: out,
		ErrorCount:        a.ErrorCount(),
		PerSession:        make([]SessionRecord, 0, len(a.Results)),
		Patterns:          a.Patterns,
	}
	if rep.Patterns == nil {
		rep.Patterns = []model.Pattern{}
	}

	for _, r := range a.Results {
		rep.PerSession = append(rep.PerSession, SessionRecord{
			SessionID:    r.Iteration.SessionID,
			Iteration:    r.Iteration.Number,
			IsError:      r.Iteration.IsError,
			ErrorKind:    r.Iteration.ErrorKind(),
			CostUSD:      r.Cost.EstimatedCost.InexactFloat64(),
			InputTokens:  r.Cost.InputTokens,
			OutputTokens: r.Cost.OutputTokens,
			ToolCalls:    r.Cost.ByTool.Total(),
		})
	}
	return rep
}

// WriteStructured encodes the analysis as JSON or YAML.
func WriteStructured(w io.Writer, a model.Analysis, format string) error {
	rep := BuildStructured(a)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
