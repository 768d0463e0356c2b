package storage

import (
	"errors"
	"fmt"
)

// Kind classifies a storage failure so callers need one handling path
// regardless of backing.
type Kind string

const (
	// KindTransient covers failures before a structured answer was obtained:
	// network errors, and on the local backing serialization or quota faults.
	KindTransient Kind = "transient"

	// KindRejected is a structured refusal from the remote (validation,
	// authorization, constraint). Message carries the remote's text.
	KindRejected Kind = "rejected"
)

// Error is returned by every Driver operation that fails.
type Error struct {
	Kind       Kind
	Op         string
	Collection string

	// Code and Message come from the remote when it reported a structured
	// reason; both are empty otherwise.
	Code    string
	Message string

	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.Collection, e.Kind)
	if e.Code != "" {
		msg += " [" + e.Code + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient wraps err as a KindTransient failure of op on collection.
func Transient(op, collection string, err error) *Error {
	return &Error{Kind: KindTransient, Op: op, Collection: collection, Err: err}
}

// Rejected builds a KindRejected failure with the remote's code and message.
func Rejected(op, collection, code, message string) *Error {
	return &Error{Kind: KindRejected, Op: op, Collection: collection, Code: code, Message: message}
}

// IsTransient reports whether err is a transient storage failure.
func IsTransient(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindTransient
}

// IsRejected reports whether err is a remote rejection.
func IsRejected(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindRejected
}
