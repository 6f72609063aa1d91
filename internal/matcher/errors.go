package matcher

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPattern is returned for empty patterns and regular expressions that fail to compile.
	ErrInvalidPattern = errors.New("matcher: invalid pattern")
	// ErrDangerousPattern is returned for regular expressions using recursive subpattern constructs.
	ErrDangerousPattern = errors.New("matcher: dangerous pattern")
)

// PatternError describes why a pattern was rejected. It unwraps to one of the
// package sentinels so callers can use errors.Is.
type PatternError struct {
	Pattern string
	Reason  string
	Err     error
}

func (e *PatternError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %q", e.Err, e.Pattern)
	}
	return fmt.Sprintf("%v: %q: %s", e.Err, e.Pattern, e.Reason)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

func invalid(pattern, reason string) error {
	return &PatternError{Pattern: pattern, Reason: reason, Err: ErrInvalidPattern}
}
