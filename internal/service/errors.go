// Package service provides business logic services for Sharecode.
package service

import (
	"errors"
	"sort"
	"strings"
)

// Common service errors.
var (
	// ErrValidation is the sentinel wrapped by every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrInternalError hides infrastructure failures from callers.
	ErrInternalError = errors.New("internal server error")

	// ErrUnknownCommand indicates a command without registered handler.
	ErrUnknownCommand = errors.New("unknown command")
)

// ValidationError collects per-field input problems.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates an empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a problem for field. The first message per field wins.
func (e *ValidationError) Add(field, message string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// AddError records err's message for field.
func (e *ValidationError) AddError(field string, err error) {
	e.Add(field, err.Error())
}

// OrNil returns e if any field was recorded, nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Error lists the fields in sorted order.
func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + e.Fields[f]
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap makes errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
