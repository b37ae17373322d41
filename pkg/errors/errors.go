// Package errors is the typed error used across services and handlers. A
// Code decides the HTTP status and how much of the error reaches the client;
// details carry structured context such as the failing step.
package errors

import (
	stdErrors "errors"
	"maps"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	HTTPStatus    int
	PublicMessage string
	// Retryable tells clients the same request may succeed later.
	Retryable bool
	// DetailsAllowed exposes Details in the response body.
	DetailsAllowed bool
}

var codes = map[Code]Metadata{
	CodeValidation:    {http.StatusBadRequest, "validation failed", false, true},
	CodeUnauthorized:  {http.StatusUnauthorized, "authentication required", false, false},
	CodeForbidden:     {http.StatusForbidden, "access denied", false, false},
	CodeNotFound:      {http.StatusNotFound, "resource not found", false, false},
	CodeConflict:      {http.StatusConflict, "conflict detected", false, true},
	CodeStateConflict: {http.StatusUnprocessableEntity, "state transition disallowed", false, true},
	CodeIdempotency:   {http.StatusConflict, "idempotency key reused", false, true},
	CodeRateLimit:     {http.StatusTooManyRequests, "rate limit exceeded", false, false},
	CodeInternal:      {http.StatusInternalServerError, "internal server error", true, false},
	CodeDependency:    {http.StatusServiceUnavailable, "dependency unavailable", true, true},
}

// MetadataFor treats unknown codes as CodeInternal.
func MetadataFor(code Code) Metadata {
	if meta, ok := codes[code]; ok {
		return meta
	}
	return codes[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap keeps err reachable through errors.Is and errors.As.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func Is(err error, code Code) bool {
	return As(err).codeIs(code)
}

func (e *Error) codeIs(code Code) bool {
	return e != nil && e.code == code
}

// WithStep names the step of a multi-step operation that failed. It is
// stored as details["step"] next to any map details already present.
func (e *Error) WithStep(step string) *Error {
	if e == nil {
		return nil
	}
	details := map[string]any{"step": step}
	if existing, ok := e.details.(map[string]any); ok {
		merged := maps.Clone(existing)
		merged["step"] = step
		details = merged
	}
	e.details = details
	return e
}

func Step(err error) string {
	if details, ok := As(err).Details().(map[string]any); ok {
		step, _ := details["step"].(string)
		return step
	}
	return ""
}

// AtStep tags err with step. Untyped errors become CodeInternal first.
func AtStep(err error, step string) error {
	if err == nil {
		return nil
	}
	typed := As(err)
	if typed == nil {
		typed = Wrap(CodeInternal, err, step+" failed")
	}
	return typed.WithStep(step)
}
