// Package apperrors holds the error taxonomy returned by every engine
// operation and its mapping to HTTP status codes.
package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Kind classifies an error for callers
type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindIllegalTransition Kind = "ILLEGAL_TRANSITION"
	KindForbidden         Kind = "FORBIDDEN"
	KindDeadlineExceeded  Kind = "DEADLINE_EXCEEDED"
	KindInternal          Kind = "INTERNAL"
)

// Error is the structured error surfaced by the engine
type Error struct {
	Kind    Kind
	Message string
	// Field names the offending input for Validation and Conflict.
	Field  string
	Fields map[string]string
	// From and To are set for IllegalTransition.
	From string
	To   string
	// Ref identifies an Internal error in the logs.
	Ref string
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(string(e.Kind)))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Field != "" {
		b.WriteString(" (")
		b.WriteString(e.Field)
		b.WriteString(")")
	}
	if e.Kind == KindIllegalTransition {
		fmt.Fprintf(&b, " [%s -> %s]", e.From, e.To)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so errors.Is(err, &Error{Kind: KindNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Field == "" || t.Field == e.Field)
}

// Validation builds a Validation error for a single field
func Validation(field, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: message,
		Field:   field,
		Fields:  map[string]string{field: message},
	}
}

// NotFound builds a NotFound error for an entity
func NotFound(entity string, id interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %v not found", entity, id)}
}

// Conflict builds a Conflict error for a unique field
func Conflict(field, message string) *Error {
	return &Error{Kind: KindConflict, Message: message, Field: field}
}

// IllegalTransition builds an IllegalTransition error
func IllegalTransition(entity, from, to string) *Error {
	return &Error{
		Kind:    KindIllegalTransition,
		Message: entity + " transition not allowed",
		From:    from,
		To:      to,
	}
}

// Forbidden builds a Forbidden error
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// TargetMissing is NotFound for an approval target
func TargetMissing(objectType string, objectID int64) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("approval target %s %d not found", objectType, objectID),
		Field:   "object_id",
	}
}

// Internal wraps an unexpected error behind an opaque reference
func Internal(err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Message: "internal error",
		Ref:     uuid.New().String(),
		Err:     err,
	}
}

// KindOf returns the Kind of err, Internal for anything unclassified
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindDeadlineExceeded
	}
	return KindInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a taxonomy entry to its transport status
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindIllegalTransition:
		return http.StatusUnprocessableEntity
	case KindDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
