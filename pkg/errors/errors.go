// Package errors provides structured error types for dep2j.
//
// This package defines error codes and types that enable:
//   - One failure channel for parse, encoding, and I/O problems
//   - Machine-readable error codes for the HTTP service and scripts
//   - Source positions so a human can find the offending input
//
// # Error Codes
//
//   - MALFORMED_INPUT: tokenizer or parser syntax violation
//   - ENCODING_ERROR: a name cannot be written as JSON text
//   - IO_ERROR: a source is unreadable or the destination unwritable
//   - INVALID_INPUT: bad options or configuration
//   - INTERNAL_ERROR: unexpected failures
//
// # Usage
//
//	err := errors.Malformed(errors.Position{Source: "main.d", Line: 3, Offset: 41}, "rule separator without target")
//	if errors.Is(err, errors.ErrCodeMalformedInput) {
//	    pos, _ := errors.PositionOf(err)
//	    fmt.Println(pos)
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "read %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	ErrCodeMalformedInput Code = "MALFORMED_INPUT"
	ErrCodeEncoding       Code = "ENCODING_ERROR"
	ErrCodeIO             Code = "IO_ERROR"

	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidPath  Code = "INVALID_PATH"
	ErrCodeTooLarge     Code = "TOO_LARGE"

	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Position locates an error inside a named input source.
// Line is 1-based; Offset is the 0-based byte offset from the start of the source.
type Position struct {
	Source string
	Line   int
	Offset int
}

// String formats the position as "source:line (offset N)".
func (p Position) String() string {
	src := p.Source
	if src == "" {
		src = "<input>"
	}
	if p.Line > 0 {
		return fmt.Sprintf("%s:%d (offset %d)", src, p.Line, p.Offset)
	}
	return fmt.Sprintf("%s (offset %d)", src, p.Offset)
}

// Error is a structured error with a code, optional position, and optional cause.
type Error struct {
	Code    Code      // Machine-readable error code
	Message string    // Human-readable message
	Pos     *Position // Location in the input (optional)
	Cause   error     // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Pos != nil {
		msg = e.Pos.String() + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Malformed creates a MALFORMED_INPUT error at pos.
func Malformed(pos Position, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeMalformedInput,
		Message: fmt.Sprintf(format, args...),
		Pos:     &pos,
	}
}

// Encoding creates an ENCODING_ERROR at pos. Source is left empty when the
// failing bytes belong to a name rather than to an input file.
func Encoding(pos Position, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeEncoding,
		Message: fmt.Sprintf(format, args...),
		Pos:     &pos,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// PositionOf returns the first position found along err's chain.
func PositionOf(err error) (Position, bool) {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return Position{}, false
		}
		if e.Pos != nil {
			return *e.Pos, true
		}
		err = e.Cause
	}
	return Position{}, false
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the positioned message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Pos != nil {
			return e.Pos.String() + ": " + e.Message
		}
		return e.Message
	}
	return err.Error()
}
