package builder

import (
	"errors"
	"fmt"
)

// Reason classifies a BuildError.
type Reason string

const (
	UnsupportedPlatform Reason = "unsupported_platform"
	MissingRequired     Reason = "missing_required"
	InvalidNumber       Reason = "invalid_number"
	InvalidChoice       Reason = "invalid_choice"
)

var (
	ErrUnsupportedPlatform = errors.New("command not supported on this platform")
	ErrMissingRequired     = errors.New("required option missing")
	ErrInvalidNumber       = errors.New("invalid number")
	ErrInvalidChoice       = errors.New("invalid choice")
)

var sentinels = map[Reason]error{
	UnsupportedPlatform: ErrUnsupportedPlatform,
	MissingRequired:     ErrMissingRequired,
	InvalidNumber:       ErrInvalidNumber,
	InvalidChoice:       ErrInvalidChoice,
}

// BuildError is a per-request rejection: which option, and why.
type BuildError struct {
	Reason  Reason
	Command string
	Option  string
	Value   string
	Detail  string
}

func (e *BuildError) Error() string {
	msg := string(e.Reason)
	if sentinel, ok := sentinels[e.Reason]; ok {
		msg = sentinel.Error()
	}
	if e.Option != "" {
		msg = fmt.Sprintf("%s: option %q", msg, e.Option)
	}
	if e.Value != "" {
		msg = fmt.Sprintf("%s: value %q", msg, e.Value)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return fmt.Sprintf("build %s: %s", e.Command, msg)
}

// Is matches the sentinel for the error's Reason.
func (e *BuildError) Is(target error) bool {
	return sentinels[e.Reason] == target
}
