// Package domain defines core types, interfaces, and errors for the access
// control and resource liveness subsystem.
package domain

import (
	"fmt"
	"strconv"
	"time"
)

// NotFoundError indicates a principal, command, group or resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input or an invalid feature definition.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a duplicate key. The store swallows it for
// idempotent upserts; it only escapes from explicit create operations.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// PermissionError indicates the invoking principal is not allowed to run a
// command. Actual levels are nil when no level is stored for that context.
type PermissionError struct {
	Message         string
	RequiredUser    int
	RequiredChannel int
	ActualUser      *int
	ActualChannel   *int
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s (required %d:%d, actual %s:%s)",
		e.Message, e.RequiredUser, e.RequiredChannel,
		levelString(e.ActualUser), levelString(e.ActualChannel))
}

// ConfigurationError indicates a required permission level is missing for a
// channel. It fails closed and is distinct from an insufficient level.
type ConfigurationError struct {
	Message string
	Group   string
	Channel string
}

func (e *ConfigurationError) Error() string { return e.Message }

// StateError indicates a resource is not in a state the command accepts.
type StateError struct {
	Resource string
	Required StateSet
	Actual   State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("resource %q is %s, command requires %s", e.Resource, e.Actual, e.Required)
}

// ResourceError indicates a manual action failed. Launch is set when its
// script could not be started; otherwise the resource never answered. It is
// terminal and never retried automatically.
type ResourceError struct {
	Resource string
	Message  string
	Launch   bool
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource %q: %s", e.Resource, e.Message)
}

// CooldownError indicates an action is rate limited for the invoker.
type CooldownError struct {
	Command    string
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("command %q on cooldown for %d seconds", e.Command, e.RetryAfterSeconds())
}

// RetryAfterSeconds rounds the remaining cooldown up to whole seconds.
func (e *CooldownError) RetryAfterSeconds() int {
	secs := int(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

func levelString(v *int) string {
	if v == nil {
		return "none"
	}
	return strconv.Itoa(*v)
}
