package errorbank

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Kind categorises an application error. Transports translate kinds into
// their own status vocabularies; everything else carries the kind through.
type Kind string

const (
	KindBadRequest          Kind = "bad_request"
	KindConflict            Kind = "conflict"
	KindNotFound            Kind = "not_found"
	KindUnprocessableEntity Kind = "unprocessable_entity"
	KindInternal            Kind = "internal"
)

var httpStatusByKind = map[Kind]int{
	KindBadRequest:          http.StatusBadRequest,
	KindConflict:            http.StatusConflict,
	KindNotFound:            http.StatusNotFound,
	KindUnprocessableEntity: http.StatusUnprocessableEntity,
	KindInternal:            http.StatusInternalServerError,
}

var grpcCodeByKind = map[Kind]codes.Code{
	KindBadRequest:          codes.InvalidArgument,
	KindConflict:            codes.AlreadyExists,
	KindNotFound:            codes.NotFound,
	KindUnprocessableEntity: codes.FailedPrecondition,
	KindInternal:            codes.Internal,
}

// AppError is the error type services return across package boundaries.
type AppError struct {
	kind    Kind
	message string
	details map[string]any
	cause   error
}

// Option mutates an AppError during construction.
type Option func(*AppError)

// WithCause attaches an underlying error for errors.Is/errors.As chains.
func WithCause(err error) Option {
	return func(e *AppError) {
		e.cause = err
	}
}

// WithDetail records one named detail value, rendered in error payloads.
func WithDetail(key string, value any) Option {
	return func(e *AppError) {
		if e.details == nil {
			e.details = make(map[string]any)
		}
		e.details[key] = value
	}
}

// WithDetails merges a set of detail values.
func WithDetails(details map[string]any) Option {
	return func(e *AppError) {
		if len(details) == 0 {
			return
		}
		if e.details == nil {
			e.details = make(map[string]any)
		}
		for k, v := range details {
			e.details[k] = v
		}
	}
}

// New builds an AppError of the given kind. An empty message falls back to
// the kind name.
func New(kind Kind, message string, opts ...Option) *AppError {
	if message == "" {
		message = string(kind)
	}
	e := &AppError{kind: kind, message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap exposes the wrapped cause.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Kind returns the error category. A nil receiver reads as internal.
func (e *AppError) Kind() Kind {
	if e == nil {
		return KindInternal
	}
	return e.kind
}

// Message returns the human-readable message.
func (e *AppError) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Details returns optional structured metadata, nil when none was attached.
func (e *AppError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return e.details
}

// StatusCode resolves the HTTP status for the error kind.
func (e *AppError) StatusCode() int {
	if status, ok := httpStatusByKind[e.Kind()]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// GRPCCode maps the error kind onto a gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if code, ok := grpcCodeByKind[e.Kind()]; ok {
		return code
	}
	return codes.Internal
}

// BadRequest flags malformed or incomplete input.
func BadRequest(message string, opts ...Option) *AppError {
	return New(KindBadRequest, message, opts...)
}

// Conflict flags an operation the current record state forbids.
func Conflict(message string, opts ...Option) *AppError {
	return New(KindConflict, message, opts...)
}

// NotFound flags a missing record.
func NotFound(message string, opts ...Option) *AppError {
	return New(KindNotFound, message, opts...)
}

// Unprocessable flags input that is well-formed but violates a domain rule.
func Unprocessable(message string, opts ...Option) *AppError {
	return New(KindUnprocessableEntity, message, opts...)
}

// Internal flags an unexpected failure.
func Internal(message string, opts ...Option) *AppError {
	return New(KindInternal, message, opts...)
}

// From coerces any error into an AppError, wrapping unknown errors as
// internal. A nil error stays nil.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal error", WithCause(err))
}
