// Package util provides utility functions and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure categories a batch run distinguishes.
var (
	ErrPreconditionFailed = errors.New("precondition not met")
	ErrConnect            = errors.New("connect failed")
	ErrInteraction        = errors.New("device interaction failed")
	ErrValidationFailed   = errors.New("validation failed")
)

// ErrorKind classifies an error for the per-device recovery boundary.
// The set is closed: anything that is not a connect or interaction
// failure is KindOther and halts the batch.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindConnect
	KindInteraction
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnect:
		return "connect"
	case KindInteraction:
		return "interaction"
	default:
		return "other"
	}
}

// KindOf returns the kind of err. Wrapped errors are inspected with errors.As,
// so fmt.Errorf("...: %w", connectErr) still classifies as KindConnect.
func KindOf(err error) ErrorKind {
	var ce *ConnectError
	if errors.As(err, &ce) {
		return KindConnect
	}
	var ie *InteractionError
	if errors.As(err, &ie) {
		return KindInteraction
	}
	return KindOther
}

// PreconditionError represents a failed precondition check with context
type PreconditionError struct {
	Operation    string
	Resource     string
	Precondition string
	Details      string
}

func (e *PreconditionError) Error() string {
	msg := fmt.Sprintf("precondition failed for %s on %s: %s", e.Operation, e.Resource, e.Precondition)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *PreconditionError) Unwrap() error {
	return ErrPreconditionFailed
}

// NewPreconditionError creates a new precondition error
func NewPreconditionError(operation, resource, precondition, details string) *PreconditionError {
	return &PreconditionError{
		Operation:    operation,
		Resource:     resource,
		Precondition: precondition,
		Details:      details,
	}
}

// ConnectError is a failure to establish a session to a device or jump host.
type ConnectError struct {
	Host string
	Err  error
}

func (e *ConnectError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connect to %s failed", e.Host)
	}
	return e.Err.Error()
}

func (e *ConnectError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConnect}
	}
	return []error{ErrConnect, e.Err}
}

// NewConnectError creates a connect error for host
func NewConnectError(host string, err error) *ConnectError {
	return &ConnectError{Host: host, Err: err}
}

// InteractionError is a failure in the command/response dialog with a device
// that is already connected.
type InteractionError struct {
	Host    string
	Command string // command being run, "" if not command-specific
	Err     error
}

func (e *InteractionError) Error() string {
	var cause string
	if e.Err != nil {
		cause = e.Err.Error()
	} else {
		cause = "interaction failed"
	}
	if e.Command != "" {
		return fmt.Sprintf("%q: %s", e.Command, cause)
	}
	return cause
}

func (e *InteractionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInteraction}
	}
	return []error{ErrInteraction, e.Err}
}

// NewInteractionError creates an interaction error for host
func NewInteractionError(host, command string, err error) *InteractionError {
	return &InteractionError{Host: host, Command: command, Err: err}
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}
