package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

type (
	// NotFoundError indicates a project, item, image or parent folder was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string   { return e.Message }
func (e *ValidationError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int   { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

// Is allows errors.Is() to match against ErrNotFound
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Is allows errors.Is() to match against ErrValidation
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrValidation = errors.New("validation failed")
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (report, folder, project, generation)
	ResourceID   string // ID of the conflicting resource
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// GenerationKind classifies a failed generation into a user-actionable category.
type GenerationKind string

const (
	GenerationConfiguration GenerationKind = "configuration"
	GenerationRateLimit     GenerationKind = "rate_limit"
	GenerationModelNotFound GenerationKind = "model_not_found"
	GenerationSafetyBlock   GenerationKind = "safety_block"
	GenerationOverloaded    GenerationKind = "overloaded"
	GenerationUnknown       GenerationKind = "unknown"
)

// GenerationError is the only error shape that reaches user-facing text for a
// failed model call. Message is already cleaned for display; Cause keeps the
// raw upstream error for logs.
type GenerationError struct {
	Kind    GenerationKind
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	return e.Message
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// StatusCode implements the HTTPError interface
func (e *GenerationError) StatusCode() int {
	switch e.Kind {
	case GenerationConfiguration:
		return http.StatusPreconditionFailed
	case GenerationRateLimit:
		return http.StatusTooManyRequests
	case GenerationSafetyBlock:
		return http.StatusUnprocessableEntity
	case GenerationOverloaded:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
