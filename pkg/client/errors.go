package client

import (
	"errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

// Error is the structured failure returned for every non-2xx response.
type Error struct {
	Code    pkgerrors.Code `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Status  int            `json:"-"`
}

func (e *Error) Error() string {
	if step := e.Step(); step != "" {
		return fmt.Sprintf("%s (%d) at %s: %s", e.Code, e.Status, step, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Step returns details.step when the server reported which stage of a
// multi-step operation failed.
func (e *Error) Step() string {
	if e == nil || e.Details == nil {
		return ""
	}
	step, _ := e.Details["step"].(string)
	return step
}

// Constraint returns the violated constraint name, if reported.
func (e *Error) Constraint() string {
	if e == nil || e.Details == nil {
		return ""
	}
	name, _ := e.Details["constraint"].(string)
	return name
}

func asError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// IsNotFound also covers rows hidden by the server's read policies.
func IsNotFound(err error) bool {
	e := asError(err)
	return e != nil && e.Code == pkgerrors.CodeNotFound
}

func IsForbidden(err error) bool {
	e := asError(err)
	return e != nil && e.Code == pkgerrors.CodeForbidden
}

func IsUnauthorized(err error) bool {
	e := asError(err)
	return e != nil && e.Code == pkgerrors.CodeUnauthorized
}

// IsConstraint reports a rejected write: a check or uniqueness violation or
// an invalid state transition.
func IsConstraint(err error) bool {
	e := asError(err)
	if e == nil {
		return false
	}
	switch e.Code {
	case pkgerrors.CodeConflict, pkgerrors.CodeStateConflict:
		return true
	case pkgerrors.CodeValidation:
		return e.Constraint() != ""
	}
	return false
}

// IsTransient reports failures worth retrying: dependency outages, rate
// limits and transport errors that never produced a response.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	e := asError(err)
	if e == nil {
		var tErr *TransportError
		return errors.As(err, &tErr)
	}
	if e.Code == pkgerrors.CodeRateLimit || pkgerrors.MetadataFor(e.Code).Retryable {
		return true
	}
	return e.Status == http.StatusBadGateway || e.Status == http.StatusServiceUnavailable || e.Status == http.StatusGatewayTimeout
}

// Step extracts details.step from err, if any.
func Step(err error) string {
	return asError(err).Step()
}

// TransportError wraps failures that happened before a response arrived.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }
