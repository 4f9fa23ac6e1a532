// FILE: peerxlat/src/internal/ruleset/errors.go
package ruleset

import (
	"errors"
	"fmt"
)

// Load failure causes. A *ParseError unwraps to exactly one of these.
var (
	ErrFileUnavailable = errors.New("rules file unavailable")
	ErrAllocation      = errors.New("rule capacity exhausted")
	ErrGrammar         = errors.New("grammar violation")
	ErrRange           = errors.New("prefix length out of range")
	ErrAddressSyntax   = errors.New("address syntax error")
)

// ParseError describes why a ruleset could not be loaded. Line is 1-based and
// zero when the failure is not tied to a line (e.g. the file could not be
// opened). Raw holds the offending line as read.
type ParseError struct {
	Cause  error
	Line   int
	Raw    string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := e.Cause.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Cause, e.Err}
	}
	return []error{e.Cause}
}

// CauseName returns a short stable identifier for the failure cause, suitable
// for log fields and metric labels.
func CauseName(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrFileUnavailable):
		return "file_unavailable"
	case errors.Is(err, ErrAllocation):
		return "allocation"
	case errors.Is(err, ErrGrammar):
		return "grammar"
	case errors.Is(err, ErrRange):
		return "range"
	case errors.Is(err, ErrAddressSyntax):
		return "address_syntax"
	default:
		return "unknown"
	}
}
