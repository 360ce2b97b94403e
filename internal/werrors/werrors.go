// Package werrors provides structured error types for the planner core's
// error taxonomy (spec §7): WorkerError, RoutingError, PlanningError, and
// InputRefError. Each preserves a message and an optional cause chain so
// errors.Is/errors.As keep working across the sub-goal boundary without
// collapsing into opaque strings.
package werrors

import (
	"errors"
	"fmt"
)

// Kind discriminates the error taxonomy from spec §7.
type Kind string

const (
	// KindWorker marks a failure raised by a worker body.
	KindWorker Kind = "worker_error"
	// KindRouting marks an unknown or empty worker name (spec §4.6).
	KindRouting Kind = "routing_error"
	// KindPlanning marks a fatal planner failure (malformed decision, LLM failure).
	KindPlanning Kind = "planning_error"
	// KindInputRef marks a bad InputRef on an individual sub-goal (spec §4.4 rule 4).
	KindInputRef Kind = "input_ref_error"
	// KindBudget marks round-budget exhaustion (spec §4.4 rule 1).
	KindBudget Kind = "budget_exhausted"
)

// Error is a structured failure that carries its taxonomy Kind alongside a
// human-readable message and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New constructs an Error of the given kind with a plain message.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = string(kind)
	}
	return &Error{Kind: kind, Message: message}
}

// Newf formats message according to a format specifier.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap constructs an Error of the given kind that wraps cause.
func Wrap(kind Kind, message string, cause error) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

// Unwrap returns the wrapped cause, supporting errors.Is/errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, werrors.New(werrors.KindBudget, "")).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}
