// Package errors provides structured error handling for vcf2parquet.
//
// Every failure surfaced by the conversion engine carries an ErrorType that
// names the failing condition (invalid input, I/O, malformed input, schema
// violation, ...). Callers branch on the type with IsType or TypeOf and map it
// to a process exit code with ExitCode.
//
// # Basic Usage
//
//	err := errors.New(errors.ErrorTypeMalformedInput, "second header line").
//	    WithDetail("line", 42)
//
//	if _, err := f.Read(buf); err != nil {
//	    return errors.Wrap(err, errors.ErrorTypeIO, "failed to read input")
//	}
package errors

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInvalidInput represents a missing source file or an unrecognized extension
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	// ErrorTypeIO represents read/write failures on either stream
	ErrorTypeIO ErrorType = "io"
	// ErrorTypeMalformedInput represents structural problems in the preamble or header
	ErrorTypeMalformedInput ErrorType = "malformed_input"
	// ErrorTypeSchemaViolation represents a body row whose arity disagrees with the header
	ErrorTypeSchemaViolation ErrorType = "schema_violation"
	// ErrorTypeConfig represents invalid options
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeCanceled represents a conversion stopped by its context
	ErrorTypeCanceled ErrorType = "canceled"
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with stack trace
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context.
// Context cancellation is always reported as ErrorTypeCanceled regardless of
// the requested type, so callers do not have to special-case it.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		errType = ErrorTypeCanceled
	}

	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}

// TypeOf returns the type of the outermost structured error in the chain.
// Plain errors report ErrorTypeInternal, or ErrorTypeCanceled when they wrap a
// context error.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	var sv *SchemaViolationError
	if errors.As(err, &sv) {
		return ErrorTypeSchemaViolation
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeCanceled
	}
	return ErrorTypeInternal
}

// ExitCode maps an error to the process exit status used by the CLI.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch TypeOf(err) {
	case ErrorTypeInvalidInput, ErrorTypeConfig:
		return 2
	case ErrorTypeMalformedInput:
		return 3
	case ErrorTypeSchemaViolation:
		return 4
	case ErrorTypeIO:
		return 5
	case ErrorTypeCanceled:
		return 130
	default:
		return 1
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
