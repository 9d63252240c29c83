// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors, and the HTTP layer maps them to
// status codes without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a resource is missing or not owned by the caller.
	KindNotFound
	// KindValidation indicates invalid input data or a failed precondition.
	KindValidation
	// KindConflict indicates a conflict with the current state of a resource.
	KindConflict
	// KindForbidden indicates the action is not allowed for the user.
	KindForbidden
	// KindUnauthorized indicates authentication is required or failed.
	KindUnauthorized
	// KindBadRequest indicates a malformed request.
	KindBadRequest
	// KindInternal indicates an unexpected internal error.
	KindInternal
	// KindDomainNotFound indicates a field path whose prefix is not registered.
	KindDomainNotFound
	// KindUnavailable indicates an upstream dependency failed transiently and
	// retries were exhausted. Clients may try again.
	KindUnavailable
	// KindPersistence indicates the store rejected or failed a write.
	KindPersistence
	// KindNotification indicates a best-effort notification failed. These are
	// logged where they happen and never returned to HTTP callers.
	KindNotification
)

// String returns the taxonomy name of the kind, used in logs.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFoundError"
	case KindValidation:
		return "ValidationError"
	case KindConflict:
		return "ConflictError"
	case KindForbidden:
		return "ForbiddenError"
	case KindUnauthorized:
		return "UnauthorizedError"
	case KindBadRequest:
		return "BadRequestError"
	case KindInternal:
		return "InternalError"
	case KindDomainNotFound:
		return "DomainNotFoundError"
	case KindUnavailable:
		return "UpstreamTransientError"
	case KindPersistence:
		return "PersistenceError"
	case KindNotification:
		return "NotificationError"
	default:
		return "UnknownError"
	}
}

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string      // Operation that failed (optional)
	Err     error       // Underlying error (optional)
	Details interface{} // Additional details for response (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest, KindDomainNotFound:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the operation and returns the same error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails sets response details and returns the same error.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Conflict creates a conflict error.
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// Forbidden creates a forbidden error.
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// BadRequest creates a bad request error.
func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// DomainNotFound creates an error for an unregistered field-path prefix.
func DomainNotFound(prefix string) *Error {
	return New(KindDomainNotFound, fmt.Sprintf("domínio desconhecido: %q", prefix))
}

// Unavailable wraps the last transient failure after retries ran out.
func Unavailable(message string, err error) *Error {
	return Wrap(KindUnavailable, message, err)
}

// Persistence wraps a store failure.
func Persistence(message string, err error) *Error {
	return Wrap(KindPersistence, message, err)
}

// Notification wraps a webhook delivery failure.
func Notification(message string, err error) *Error {
	return Wrap(KindNotification, message, err)
}

// GetKind extracts the error kind from anywhere in the error chain.
// Returns KindUnknown if the chain holds no *Error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err carries an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
