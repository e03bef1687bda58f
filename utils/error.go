package utils

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrorRecordNotFound = errors.New("record not found")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}

// Domain error taxonomy. Every error that crosses the GraphQL boundary is one
// of these (or is logged and surfaced as a generic internal error).

type NotFoundError struct {
	Entity string
	Id     string
}

func (e *NotFoundError) Error() string {
	if e.Id == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s with id %s not found", e.Entity, e.Id)
}

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

type DeletionError struct {
	Message string
}

func (e *DeletionError) Error() string { return e.Message }

type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string {
	if e.Message == "" {
		return "permission denied"
	}
	return e.Message
}

// NameAlreadyExistsError is a ConflictError specialization for human-readable names.
type NameAlreadyExistsError struct {
	Entity string
	Name   string
}

func (e *NameAlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with name %q already exists", e.Entity, e.Name)
}

// ErrorTypeTag returns the stable `type` tag and HTTP-equivalent status used in
// GraphQL error extensions.
func ErrorTypeTag(err error) (string, int) {
	var notFound *NotFoundError
	var validation *ValidationError
	var conflict *ConflictError
	var deletion *DeletionError
	var permission *PermissionError
	var nameExists *NameAlreadyExistsError

	switch {
	case errors.As(err, &nameExists):
		return "NAME_ALREADY_EXISTS", http.StatusConflict
	case errors.As(err, &notFound), errors.Is(err, ErrorRecordNotFound):
		return "NOT_FOUND", http.StatusNotFound
	case errors.As(err, &validation):
		return "VALIDATION_ERROR", http.StatusUnprocessableEntity
	case errors.As(err, &conflict):
		return "CONFLICT", http.StatusConflict
	case errors.As(err, &deletion):
		return "DELETION_ERROR", http.StatusConflict
	case errors.As(err, &permission):
		return "PERMISSION_DENIED", http.StatusForbidden
	}
	return "INTERNAL", http.StatusInternalServerError
}

// IsDomainError reports whether err is part of the taxonomy (safe to expose).
func IsDomainError(err error) bool {
	tag, _ := ErrorTypeTag(err)
	return tag != "INTERNAL"
}
