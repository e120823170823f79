package model

import "testing"

func TestParseRateLimitReset(t *testing.T) {
	tests := []struct {
		msg  string
		want RateLimitReset
		ok   bool
	}{
		{"You've hit your limit · resets 2am (America/Los_Angeles)", RateLimitReset{2, "am", "America/Los_Angeles"}, true},
		{"You've hit your limit · resets 5pm (America/New_York)", RateLimitReset{5, "pm", "America/New_York"}, true},
		{"You've hit your limit · resets 3AM (Europe/London)", RateLimitReset{3, "am", "Europe/London"}, true},
		{"resets  10am  (Asia/Tokyo)", RateLimitReset{10, "am", "Asia/Tokyo"}, true},
		{"Some other error message", RateLimitReset{}, false},
		{"", RateLimitReset{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseRateLimitReset(tt.msg)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseRateLimitReset(%q) = %+v, %v; want %+v, %v", tt.msg, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIsAPIServerError(t *testing.T) {
	positives := []string{
		"status_code: 500",
		"status code: 500",
		"statuscode:500",
		"Error with status code: 529",
		"500 error occurred",
		"error 503",
		"Got 502 error from server",
		"API is overloaded",
		"Internal_Server_Error",
		"Service_Unavailable",
		"anthropic.APIStatusError 529",
	}
	for _, msg := range positives {
		if !IsAPIServerError(msg) {
			t.Errorf("IsAPIServerError(%q) = false, want true", msg)
		}
	}

	negatives := []string{
		"You've hit your limit · resets 2am (America/Los_Angeles)",
		"Invalid API key",
		"",
	}
	for _, msg := range negatives {
		if IsAPIServerError(msg) {
			t.Errorf("IsAPIServerError(%q) = true, want false", msg)
		}
	}
}

func TestIterationErrorKind(t *testing.T) {
	tests := []struct {
		it   Iteration
		want ErrorKind
	}{
		{Iteration{}, ErrorNone},
		{Iteration{IsError: true, Result: "resets 2am (UTC)"}, ErrorRateLimit},
		{Iteration{IsError: true, Result: "overloaded"}, ErrorAPIServer},
		{Iteration{IsError: true, Result: "bad prompt"}, ErrorOther},
	}
	for _, tt := range tests {
		if got := tt.it.ErrorKind(); got != tt.want {
			t.Errorf("ErrorKind(%+v) = %q, want %q", tt.it, got, tt.want)
		}
	}
}

func TestClassifyTier(t *testing.T) {
	tests := []struct {
		model string
		want  AgentTier
	}{
		{"claude-haiku-4-5-20251001", TierCheap},
		{"claude-sonnet-4-6", TierMid},
		{"claude-opus-4-1", TierTop},
		{"", TierUnknown},
		{"gpt-x", TierUnknown},
		{"Claude-HAIKU-4", TierUnknown},
		{"claude-haiku-opus", TierCheap},
	}
	for _, tt := range tests {
		if got := ClassifyTier(tt.model); got != tt.want {
			t.Errorf("ClassifyTier(%q) = %v, want %v", tt.model, got, tt.want)
		}
	}
	if TierCheap.String() != "Explore/Haiku" {
		t.Errorf("TierCheap label = %q", TierCheap.String())
	}
}

func TestToolCountsSorted(t *testing.T) {
	tc := ToolCounts{}
	tc.Add("Read", 3)
	tc.Add("Bash", 3)
	tc.Merge(ToolCounts{"Edit": 5})

	got := tc.Sorted()
	want := []ToolCount{{"Edit", 5}, {"Bash", 3}, {"Read", 3}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sorted()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if tc.Total() != 11 {
		t.Errorf("Total() = %d, want 11", tc.Total())
	}
}

func TestAnalysis_LatestRateLimitReset(t *testing.T) {
	a := Analysis{Iterations: []Iteration{
		{IsError: true, Result: "resets 2am (UTC)"},
		{IsError: true, Result: "resets 7pm (Europe/Berlin)"},
		{IsError: true, Result: "overloaded"},
		{Result: "resets 9am (UTC)"},
	}}
	got, ok := a.LatestRateLimitReset()
	if !ok {
		t.Fatal("expected a reset time")
	}
	if got.String() != "7pm (Europe/Berlin)" {
		t.Errorf("reset = %q, want 7pm (Europe/Berlin)", got.String())
	}

	if _, ok := (Analysis{}).LatestRateLimitReset(); ok {
		t.Error("empty analysis should have no reset time")
	}
}
