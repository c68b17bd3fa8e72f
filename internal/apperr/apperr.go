// Package apperr classifies failures into the kinds the rest of the
// application reasons about: what to retry, what to show the user and which
// HTTP status to answer with.
package apperr

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindStore
	KindValidation
	KindNetwork
	KindPermission
)

var kindNames = map[Kind]string{
	KindUnknown:    "unknown_error",
	KindAuth:       "auth_error",
	KindStore:      "store_error",
	KindValidation: "validation_error",
	KindNetwork:    "network_error",
	KindPermission: "permission_error",
}

var kindMessages = map[Kind]string{
	KindUnknown:    "Something went wrong. Please try again.",
	KindAuth:       "Authentication failed. Please try again.",
	KindStore:      "Failed to save data. Please check your connection and try again.",
	KindValidation: "Please check your input and try again.",
	KindNetwork:    "Network connection failed. Please check your internet connection.",
	KindPermission: "You don't have permission to perform this action.",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// Message is the user-facing text for the kind.
func (k Kind) Message() string {
	if s, ok := kindMessages[k]; ok {
		return s
	}
	return kindMessages[KindUnknown]
}

// Retriable reports whether failures of this kind are retried automatically.
func (k Kind) Retriable() bool {
	switch k {
	case KindNetwork, KindStore, KindUnknown:
		return true
	}
	return false
}

// HTTPStatus maps the kind to a response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindPermission:
		return http.StatusForbidden
	case KindNetwork:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a classified failure. Op is the context label of the operation
// that failed, e.g. "entry.create".
type Error struct {
	Kind   Kind
	Op     string
	Err    error
	Fields []FieldError
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a stack trace.
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Wrap classifies err under kind. A stack is attached if err has none.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: withStack(err)}
}

// Validation builds a KindValidation error from field failures.
func Validation(op string, fields ...FieldError) error {
	msg := "invalid input"
	if len(fields) > 0 {
		msg = fields[0].Field + ": " + fields[0].Message
	}
	return &Error{Kind: KindValidation, Op: op, Err: errors.New(msg), Fields: fields}
}

// From returns err as an *Error, classifying it when it is not one already.
func From(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Kind: Classify(err), Op: op, Err: withStack(err)}
}

// KindOf returns the kind of err.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Classify(err)
}

// IsRetriable reports whether err should be retried.
func IsRetriable(err error) bool {
	return err != nil && KindOf(err).Retriable()
}

// FieldsOf returns the field errors carried by err, if any.
func FieldsOf(err error) []FieldError {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Fields
	}
	return nil
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func withStack(err error) error {
	var st stackTracer
	if errors.As(err, &st) {
		return err
	}
	return errors.WithStack(err)
}

// Log records err under a context label with its kind and stack trace.
func Log(logger *slog.Logger, label string, err error) {
	if err == nil {
		return
	}
	kind := KindOf(err)
	logger.Error(label,
		"kind", kind.String(),
		"error", err.Error(),
		"stack", fmt.Sprintf("%+v", stackOf(err)),
	)
}

func stackOf(err error) any {
	var st stackTracer
	if errors.As(err, &st) {
		return st.StackTrace()
	}
	return "(no stack)"
}
