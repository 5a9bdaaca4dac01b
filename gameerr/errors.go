// Package gameerr defines the error taxonomy shared by the game services and
// its mapping onto HTTP status codes.
package gameerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an Error.
type Code string

const (
	CodeValidation            Code = "validation"
	CodeNotFound              Code = "not_found"
	CodeInvalidOperation      Code = "invalid_operation"
	CodeInsufficientResources Code = "insufficient_resources"
	CodeForbidden             Code = "forbidden"
	CodeInternal              Code = "internal"
)

// Error is a classified game error. Message is safe to show to players.
type Error struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so errors.Is(err, gameerr.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithMeta attaches a metadata entry and returns e.
func (e *Error) WithMeta(key string, value interface{}) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]interface{})
	}
	e.Meta[key] = value
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation            = &Error{Code: CodeValidation}
	ErrNotFound              = &Error{Code: CodeNotFound}
	ErrInvalidOperation      = &Error{Code: CodeInvalidOperation}
	ErrInsufficientResources = &Error{Code: CodeInsufficientResources}
	ErrForbidden             = &Error{Code: CodeForbidden}
)

func newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newf(CodeValidation, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(CodeNotFound, format, args...)
}

func InvalidOperation(format string, args ...interface{}) *Error {
	return newf(CodeInvalidOperation, format, args...)
}

func InsufficientResources(format string, args ...interface{}) *Error {
	return newf(CodeInsufficientResources, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newf(CodeForbidden, format, args...)
}

// Wrap wraps err, keeping its code when it already is an *Error and
// classifying it as internal otherwise.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: message, Cause: err, Meta: existing.Meta}
	}
	return &Error{Code: CodeInternal, Message: message, Cause: err}
}

// CodeOf returns the code of err, or CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps err onto the HTTP status the API responds with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation, CodeInvalidOperation, CodeInsufficientResources:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message to show the caller. Internal errors never
// leak their cause.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != CodeInternal {
		return e.Message
	}
	return "internal error"
}
