package service

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error for rollback and user messaging.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthenticated
	KindNotFound
	KindValidation
	KindTransport
	KindMalformed
	KindMissingParameter
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not-found"
	case KindValidation:
		return "validation-failure"
	case KindTransport:
		return "transport-failure"
	case KindMalformed:
		return "malformed-response"
	case KindMissingParameter:
		return "missing-parameter"
	}
	return "unknown"
}

// Error is a classified error. Message is safe to show to the user.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a classified error.
func E(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap classifies err under kind. Returns nil if err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Sentinel errors for comparisons with errors.Is.
var (
	ErrNotFound         = E(KindNotFound, "", "not found")
	ErrUnauthenticated  = E(KindUnauthenticated, "", "Unauthorized")
	ErrMalformedPayload = E(KindMalformed, "", "unexpected response from task store")
)

// Is matches errors of the same kind, so errors.Is(err, ErrNotFound) holds
// for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// KindOf returns the kind of err. Context cancellation and deadline errors
// are transport failures; anything unclassified is KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransport
	}
	return KindUnknown
}

// UserMessage returns a short human-readable message for err.
// Only validation and transport failures get their own wording; other
// classified errors fall back to fallback, and unclassified errors to
// "unknown error".
func UserMessage(err error, fallback string) string {
	if err == nil {
		return "unknown error"
	}
	switch KindOf(err) {
	case KindValidation:
		var e *Error
		if errors.As(err, &e) && e.Message != "" {
			return e.Message
		}
		return "invalid task data"
	case KindTransport:
		return "network error: task store unreachable"
	case KindUnknown:
		return "unknown error"
	}
	if fallback == "" {
		return "unknown error"
	}
	return fallback
}
