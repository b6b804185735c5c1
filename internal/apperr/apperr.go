// Package apperr carries an error code across service boundaries so the
// HTTP layer can choose a status without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	Internal     Code = ""
	Validation   Code = "VALIDATION"
	Unauthorized Code = "UNAUTHORIZED"
	Forbidden    Code = "FORBIDDEN"
	NotFound     Code = "NOT_FOUND"
	Conflict     Code = "CONFLICT"
	RateLimited  Code = "RATE_LIMITED"
)

type codedError struct {
	code Code
	msg  string
	err  error
}

func (e *codedError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *codedError) Unwrap() error { return e.err }
func (e *codedError) Code() Code    { return e.code }

// Message is the text safe to show to a client.
func (e *codedError) Message() string { return e.msg }

// New returns an error with the given code and client-facing message.
func New(code Code, msg string) error {
	return &codedError{code: code, msg: msg}
}

// Newf is New with formatting.
func Newf(code Code, format string, args ...any) error {
	return &codedError{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(code Code, msg string, err error) error {
	return &codedError{code: code, msg: msg, err: err}
}

// CodeOf extracts the code; errors without one are Internal.
func CodeOf(err error) Code {
	var ce interface{ Code() Code }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return Internal
}

// MessageOf returns the client-facing message of a coded error, or fallback.
func MessageOf(err error, fallback string) string {
	var ce interface{ Message() string }
	if errors.As(err, &ce) && CodeOf(err) != Internal {
		return ce.Message()
	}
	return fallback
}
