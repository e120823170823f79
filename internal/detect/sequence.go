package detect

import (
	"strings"

	"github.com/theirongolddev/ralphopt/internal/model"
)

// FirstMutation returns the first Edit or Write call.
func FirstMutation(calls []model.ToolCall) (model.ToolCall, bool) {
	for _, c := range calls {
		if isMutation(c.Name) {
			return c, true
		}
	}
	return model.ToolCall{}, false
}

// FirstReadOf returns the position of the first Read whose file_path
// contains name, or -1.
func FirstReadOf(calls []model.ToolCall, name string) int {
	for i, c := range calls {
		if c.Name == "Read" && strings.Contains(c.StringInput("file_path"), name) {
			return i
		}
	}
	return -1
}

// CheckResult is the outcome of one behavioural check on one session.
type CheckResult struct {
	Name   string
	Passed bool
	Detail string
}

// ReadBefore checks that before was read earlier than after. A session
// that never read after passes trivially; one that read after without
// first reading before fails.
func ReadBefore(calls []model.ToolCall, before, after string) CheckResult {
	res := CheckResult{Name: "read " + before + " before " + after}
	b, a := FirstReadOf(calls, before), FirstReadOf(calls, after)
	switch {
	case a == -1:
		res.Passed = true
		res.Detail = after + " never read"
	case b == -1:
		res.Detail = before + " never read"
	case b < a:
		res.Passed = true
		res.Detail = "ok"
	default:
		res.Detail = after + " read first"
	}
	return res
}

// MutatesFirst checks that the first mutation targets a path containing name.
func MutatesFirst(calls []model.ToolCall, name string) CheckResult {
	res := CheckResult{Name: "first mutation touches " + name}
	c, ok := FirstMutation(calls)
	if !ok {
		res.Detail = "no mutation"
		return res
	}
	fp := c.StringInput("file_path")
	res.Passed = strings.Contains(fp, name)
	res.Detail = c.Name + " " + fp
	return res
}

// TestsBeforeMutation checks that a test command ran before the first edit.
func TestsBeforeMutation(calls []model.ToolCall) CheckResult {
	res := CheckResult{Name: "tests run before first mutation"}
	for _, c := range calls {
		if isMutation(c.Name) {
			res.Detail = "mutated first"
			return res
		}
		if c.Name == "Bash" && IsTestCommand(c.StringInput("command")) {
			res.Passed = true
			res.Detail = "ok"
			return res
		}
	}
	res.Passed = true
	res.Detail = "no mutation"
	return res
}
