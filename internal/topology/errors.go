package topology

import "errors"

// ErrorKind classifies graph construction and expansion failures.
type ErrorKind uint8

const (
	ErrorMalformedEndpoint ErrorKind = iota + 1
	ErrorTooManyEndpoints
	ErrorInvalidAddress
	ErrorDuplicateInterface
	ErrorAmbiguousPeer
	ErrorIncompleteLink
	ErrorPublishRangeViolation
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorMalformedEndpoint:
		return "malformed_endpoint"
	case ErrorTooManyEndpoints:
		return "too_many_endpoints"
	case ErrorInvalidAddress:
		return "invalid_address"
	case ErrorDuplicateInterface:
		return "duplicate_interface"
	case ErrorAmbiguousPeer:
		return "ambiguous_peer"
	case ErrorIncompleteLink:
		return "incomplete_link"
	case ErrorPublishRangeViolation:
		return "publish_range_violation"
	default:
		return "unknown"
	}
}

var (
	ErrMalformedEndpoint  = &Error{Kind: ErrorMalformedEndpoint}
	ErrTooManyEndpoints   = &Error{Kind: ErrorTooManyEndpoints}
	ErrInvalidAddress     = &Error{Kind: ErrorInvalidAddress}
	ErrDuplicateInterface = &Error{Kind: ErrorDuplicateInterface}
	ErrAmbiguousPeer      = &Error{Kind: ErrorAmbiguousPeer}
	ErrIncompleteLink     = &Error{Kind: ErrorIncompleteLink}
	ErrPublishRange       = &Error{Kind: ErrorPublishRangeViolation}
)

// Error is a classified topology failure. Subject names the token, link or
// device the failure is about.
type Error struct {
	Kind    ErrorKind
	Subject string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Subject != "" {
		msg += " " + e.Subject
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the package sentinels work with
// errors.Is regardless of subject.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, subject string, err error) *Error {
	return &Error{Kind: kind, Subject: subject, Err: err}
}
