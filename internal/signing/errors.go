package signing

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by Service wraps exactly one of them.
var (
	ErrValidation        = errors.New("validation error")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrSourceFetch       = errors.New("source fetch failed")
	ErrInvalidDocument   = errors.New("invalid document")
	ErrInvalidPage       = errors.New("invalid page number")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrRender            = errors.New("render failure")
	ErrStore             = errors.New("store failure")
	ErrMail              = errors.New("mail failure")
)

// Error carries a kind, a message that is safe to show to callers and the
// underlying cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func validationError(format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// HTTPStatus maps an error to the status code reported to API callers.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidDocument),
		errors.Is(err, ErrInvalidPage),
		errors.Is(err, ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSourceFetch), errors.Is(err, ErrMail):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-facing message of err. Errors that are not an
// *Error get a generic message so internal details are never exposed.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}
