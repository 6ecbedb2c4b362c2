package dispatch

import (
	"fmt"
)

// The dispatcher owns the error taxonomy handlers signal with. Only the
// dispatcher converts these to user-visible messages; services below it
// return outcome structs or wrapped errors.

// BadArgument means an argument failed conversion.
type BadArgument struct {
	Param  string
	Value  string
	Reason string
}

func (e *BadArgument) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("bad argument %q for %s: %s", e.Value, e.Param, e.Reason)
	}
	return fmt.Sprintf("bad argument for %s: %s", e.Param, e.Reason)
}

// MissingPermission means the invoker lacks a capability or role.
type MissingPermission struct {
	Need string
}

func (e *MissingPermission) Error() string {
	return fmt.Sprintf("missing permission: %s", e.Need)
}

// NotFound means a referenced entity is absent.
type NotFound struct {
	What string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("%s not found", e.What)
}

// Forbidden means the bot itself lacks a permission for the requested action.
type Forbidden struct {
	Action string
}

func (e *Forbidden) Error() string {
	return fmt.Sprintf("missing bot permission for: %s", e.Action)
}

// StateConflict means a domain invariant would be violated. This is the
// dispatcher-facing form of a domain error; Message is shown verbatim.
type StateConflict struct {
	Message string
}

func (e *StateConflict) Error() string {
	return e.Message
}

// Conflictf builds a StateConflict with a formatted message.
func Conflictf(format string, args ...any) error {
	return &StateConflict{Message: fmt.Sprintf(format, args...)}
}
