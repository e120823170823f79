package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrorKind classifies the result text of a failed iteration.
type ErrorKind string

const (
	ErrorNone      ErrorKind = ""
	ErrorRateLimit ErrorKind = "rate_limit"
	ErrorAPIServer ErrorKind = "api_server_error"
	ErrorOther     ErrorKind = "other"
)

var rateLimitRe = regexp.MustCompile(`(?i)resets\s+(\d{1,2})(am|pm)\s+\(([^)]+)\)`)

var serverErrorRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)status[_\s]?code[:\s]+5\d{2}`),
	regexp.MustCompile(`(?i)\b5\d{2}\b.*error`),
	regexp.MustCompile(`(?i)error.*\b5\d{2}\b`),
	regexp.MustCompile(`(?i)overloaded`),
	regexp.MustCompile(`(?i)internal[_\s]?server[_\s]?error`),
	regexp.MustCompile(`(?i)service[_\s]?unavailable`),
	regexp.MustCompile(`(?i)APIStatusError.*5\d{2}`),
}

// RateLimitReset is the reset time announced in a usage-limit message.
type RateLimitReset struct {
	Hour     int
	AMPM     string
	Location string
}

func (r RateLimitReset) String() string {
	return fmt.Sprintf("%d%s (%s)", r.Hour, r.AMPM, r.Location)
}

// ParseRateLimitReset extracts the reset time from a usage-limit message
// such as "You've hit your limit · resets 2am (America/Los_Angeles)".
func ParseRateLimitReset(result string) (RateLimitReset, bool) {
	m := rateLimitRe.FindStringSubmatch(result)
	if m == nil {
		return RateLimitReset{}, false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return RateLimitReset{}, false
	}
	return RateLimitReset{Hour: hour, AMPM: strings.ToLower(m[2]), Location: m[3]}, true
}

// IsAPIServerError reports whether result looks like a transient 5xx failure.
func IsAPIServerError(result string) bool {
	for _, re := range serverErrorRes {
		if re.MatchString(result) {
			return true
		}
	}
	return false
}

// ClassifyError buckets an error result. Rate limits win over server errors.
func ClassifyError(result string) ErrorKind {
	switch {
	case rateLimitRe.MatchString(result):
		return ErrorRateLimit
	case IsAPIServerError(result):
		return ErrorAPIServer
	default:
		return ErrorOther
	}
}
