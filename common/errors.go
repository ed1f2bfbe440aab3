package common

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	KindUnauthorized
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindUpstream:
		return "upstream_unavailable"
	default:
		return "internal"
	}
}

// HTTPStatus maps an error kind onto the status code returned to clients.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. The exported Err* values are sentinels;
// operations wrap them with context and callers match with errors.Is.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrValidation          = &Error{Kind: KindValidation, Code: "validation_error", Message: "invalid input"}
	ErrInvalidRating       = &Error{Kind: KindValidation, Code: "invalid_rating", Message: "rating must be between 1 and 5"}
	ErrSelfFollow          = &Error{Kind: KindValidation, Code: "self_follow_not_allowed", Message: "user cannot follow itself"}
	ErrNotFound            = &Error{Kind: KindNotFound, Code: "not_found", Message: "not found"}
	ErrUnknownBook         = &Error{Kind: KindNotFound, Code: "unknown_book", Message: "book not found in catalog"}
	ErrForbidden           = &Error{Kind: KindForbidden, Code: "forbidden", Message: "not allowed"}
	ErrDuplicateEmail      = &Error{Kind: KindConflict, Code: "duplicate_email", Message: "email already registered"}
	ErrDuplicateReview     = &Error{Kind: KindConflict, Code: "duplicate_review", Message: "user already reviewed this book"}
	ErrInvalidCredentials  = &Error{Kind: KindUnauthorized, Code: "invalid_credentials", Message: "invalid credentials"}
	ErrInvalidToken        = &Error{Kind: KindUnauthorized, Code: "invalid_or_expired_token", Message: "invalid or expired token"}
	ErrUpstreamUnavailable = &Error{Kind: KindUpstream, Code: "upstream_unavailable", Message: "book catalog unavailable"}
)

// Invalid wraps ErrValidation with a field-specific message.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the machine-readable code for err, "internal_error" if unclassified.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}
