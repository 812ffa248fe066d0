// Package apperr defines the core's error taxonomy as tagged kinds rather
// than concrete exception types: Authorization, NotFound, BadOffer,
// Transport, EncoderFailure, Internal.
package apperr

import (
	"errors"
	"fmt"
)

// Kind tags the category of failure without committing to a concrete type
// hierarchy.
type Kind int

const (
	// Internal marks an invariant violation; the caller should treat the
	// owning session as forcibly closed.
	Internal Kind = iota
	Authorization
	NotFound
	BadOffer
	Transport
	EncoderFailure
)

func (k Kind) String() string {
	switch k {
	case Authorization:
		return "authorization"
	case NotFound:
		return "not_found"
	case BadOffer:
		return "bad_offer"
	case Transport:
		return "transport"
	case EncoderFailure:
		return "encoder_failure"
	default:
		return "internal"
	}
}

// Error wraps an underlying error with a Kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a Kind-tagged error with no underlying cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds a Kind-tagged error around an underlying cause.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind of err, defaulting to Internal for errors not
// produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// HTTPStatus maps a Kind to the status code the signaling HTTP surface
// should return for it.
func HTTPStatus(k Kind) int {
	switch k {
	case Authorization:
		return 403
	case NotFound:
		return 404
	case BadOffer:
		return 400
	case Transport, EncoderFailure:
		return 502
	default:
		return 500
	}
}
