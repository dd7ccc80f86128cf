// Package farmerr is the error taxonomy shared by the dashboard components.
//
// Every failure that reaches the view boundary is one of four kinds and is
// turned into a user-visible text there with UserMessage.
package farmerr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUserInputMissing  Kind = "input"
	KindTransport         Kind = "transport"
	KindServerRejected    Kind = "rejected"
	KindMalformedResponse Kind = "malformed"
	KindUnknown           Kind = "unknown"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap attaches a kind to err. A nil err stays nil and an err that already
// carries a kind is returned untouched.
func Wrap(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return err
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// IsKind checks whether the first typed error in the chain has the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the kind of the first typed error in the chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindUnknown
}

// UserMessage picks the text shown to the user for err. Input and rejection
// errors carry a message meant for people (for rejections it is the server's
// own error string); everything else falls back to the generic text.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var target *Error
	if !errors.As(err, &target) {
		return fallback
	}
	switch target.Kind {
	case KindUserInputMissing, KindServerRejected:
		if target.Message != "" {
			return target.Message
		}
	}
	return fallback
}
