// Package apperr defines the stable error kinds returned by services.
//
// Services declare sentinel values with a kind and a client-facing message;
// transport code maps the kind to a status code and never exposes wrapped causes.
package apperr

import "errors"

type Kind int

const (
	Internal Kind = iota
	Invalid
	Unauthorized
	Forbidden
	NotFound
	Conflict
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Unavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error carries a kind and a message safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func NewInvalid(msg string) *Error      { return New(Invalid, msg) }
func NewUnauthorized(msg string) *Error { return New(Unauthorized, msg) }
func NewForbidden(msg string) *Error    { return New(Forbidden, msg) }
func NewNotFound(msg string) *Error     { return New(NotFound, msg) }
func NewConflict(msg string) *Error     { return New(Conflict, msg) }
func NewUnavailable(msg string) *Error  { return New(Unavailable, msg) }

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the client message for err, or "" for internal errors.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
