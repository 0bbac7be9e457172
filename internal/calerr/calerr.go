// Package calerr defines the error-kind taxonomy shared across this module,
// in the same shape as a CalDAV storage layer's typed errors: a stable
// Type plus an optional wrapped cause.
package calerr

import "fmt"

// Type enumerates the error kinds a caller can switch on.
type Type string

const (
	ParseError                     Type = "parse_error"
	UIDMismatch                    Type = "uid_mismatch"
	UnexpectedPropertyForSlot      Type = "unexpected_property_for_slot"
	MissingDtStart                 Type = "missing_dtstart"
	UnexpectedRecurrenceOnOverride Type = "unexpected_recurrence_on_override"
	BoundsInverted                 Type = "bounds_inverted"
	RuleSetCompileError            Type = "rule_set_compile_error"
	NonExistentEvent               Type = "non_existent_event"
	NonExistentOverride            Type = "non_existent_override"
	InvalidGeoCoordinate           Type = "invalid_geo_coordinate"
)

// Error is the single error shape surfaced by this module.
type Error struct {
	Type    Type
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error without a wrapped cause.
func New(t Type, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap builds an Error carrying a wrapped cause.
func Wrap(t Type, message string, err error) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

// Is reports whether err is an *Error of the given Type.
func Is(err error, t Type) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Type == t
}
