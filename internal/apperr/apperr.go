// Package apperr defines the error kinds surfaced to the user.
package apperr

import "errors"

// Kind classifies an error for display and handling.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConfiguration
	KindUpstream
	KindEmptyResponse
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindUpstream:
		return "upstream"
	case KindEmptyResponse:
		return "empty response"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrUpstream      = &Error{Kind: KindUpstream}
	ErrEmptyResponse = &Error{Kind: KindEmptyResponse}
)

// Error carries a user-facing message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String() + " error"
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the sentinels above work
// with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func Configuration(msg string) error {
	return &Error{Kind: KindConfiguration, Msg: msg}
}

func EmptyResponse(msg string) error {
	return &Error{Kind: KindEmptyResponse, Msg: msg}
}

// Upstream wraps a transport or API failure, keeping its message verbatim.
// fallback is used when err has no message.
func Upstream(err error, fallback string) error {
	msg := fallback
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

// KindOf reports the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
