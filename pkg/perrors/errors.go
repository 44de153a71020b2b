// Package perrors provides structured errors carrying the framework's
// machine-parseable ErrorCode (§6/§7 of the lifecycle spec).
package perrors

import (
	"errors"
	"fmt"

	v1 "github.com/pluggit/pluggit/api/v1"
)

// PluginError is the standard structured error type returned by core
// operations. Every recoverable failure path in the engine returns one, or
// an error that wraps one.
type PluginError struct {
	Code     v1.ErrorCode // Machine-parseable error code
	Op       string       // Operation chain, e.g. "resolve.dependency"
	PluginID string       // Plug-in identifier the error concerns, if any
	Cause    error        // Wrapped upstream error
	Advice   string       // Human-readable remediation hint
}

func (e *PluginError) Error() string {
	if e.PluginID != "" {
		return fmt.Sprintf("[%s] %s (%s): %v", e.Code, e.Op, e.PluginID, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Op, e.Cause)
}

func (e *PluginError) Unwrap() error {
	return e.Cause
}

// New creates a PluginError with no wrapped cause; Cause is a formatted
// error built from op and code so Error() is never empty.
func New(code v1.ErrorCode, op string) *PluginError {
	return &PluginError{Code: code, Op: op, Cause: errors.New(op)}
}

// Newf creates a PluginError with a formatted message as the cause.
func Newf(code v1.ErrorCode, op, format string, args ...any) *PluginError {
	return &PluginError{Code: code, Op: op, Cause: fmt.Errorf(format, args...)}
}

// Wrap wraps an existing error as a PluginError at a new operation boundary.
// Returns nil if err is nil.
func Wrap(err error, code v1.ErrorCode, op string) *PluginError {
	if err == nil {
		return nil
	}
	return &PluginError{Code: code, Op: op, Cause: err}
}

// WithPlugin sets the plugin identifier on a PluginError.
func (e *PluginError) WithPlugin(id string) *PluginError {
	e.PluginID = id
	return e
}

// WithAdvice sets the human-readable remediation hint.
func (e *PluginError) WithAdvice(advice string) *PluginError {
	e.Advice = advice
	return e
}

// Code extracts the ErrorCode from err, defaulting to Unspecified if err is
// not (or does not wrap) a *PluginError.
func Code(err error) v1.ErrorCode {
	var pe *PluginError
	if errors.As(err, &pe) {
		return pe.Code
	}
	if err == nil {
		return v1.OK
	}
	return v1.Unspecified
}

// IsCode reports whether err is a PluginError with the given code.
func IsCode(err error, code v1.ErrorCode) bool {
	var pe *PluginError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// As extracts the *PluginError from err, or returns nil.
func As(err error) *PluginError {
	var pe *PluginError
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}
