// Package fault classifies collection failures into the small taxonomy
// recorded by the failure ledger and surfaced in run reports.
package fault

import (
	"context"
	"errors"
	"net"
)

// Type identifies a failure class.
type Type string

// Failure classes recorded by the collection pipeline.
const (
	TypeHTTPNotFound    Type = "HTTP_404"
	TypeTimeout         Type = "TIMEOUT"
	TypeConnectionError Type = "CONNECTION_ERROR"
	TypeJSONError       Type = "JSON_ERROR"
	TypeNoData          Type = "NO_DATA"
	TypeDatabaseSave    Type = "DATABASE_SAVE_FAILED"
	TypeUnknown         Type = "UNKNOWN"
)

// maxMessageLen bounds stored messages so ledger entries stay small.
const maxMessageLen = 200

// Error is a classified collection failure.
type Error struct {
	Type    Type
	Message string
	URL     string
}

// New creates a classified failure. The message is truncated to 200
// characters.
func New(t Type, message, url string) *Error {
	if len(message) > maxMessageLen {
		message = message[:maxMessageLen]
	}
	return &Error{Type: t, Message: message, URL: url}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Type)
	}
	return string(e.Type) + ": " + e.Message
}

// TypeOf extracts the failure class from an error chain. Unclassified
// errors report TypeUnknown; nil reports the empty type.
func TypeOf(err error) Type {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Type
	}
	return TypeUnknown
}

// Is reports whether the error chain carries a failure of class t.
func Is(err error, t Type) bool {
	return TypeOf(err) == t
}

// Classify wraps an arbitrary error as a classified failure. Already
// classified errors pass through unchanged. Timeouts and connection
// errors are recognized from the transport; everything else is UNKNOWN.
func Classify(err error, url string) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return New(TypeTimeout, err.Error(), url)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return New(TypeTimeout, err.Error(), url)
		}
		return New(TypeConnectionError, err.Error(), url)
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return New(TypeConnectionError, err.Error(), url)
	}
	return New(TypeUnknown, err.Error(), url)
}
