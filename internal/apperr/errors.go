// Package apperr defines the error taxonomy shared by the store, the
// narrative service and the transport layers.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidScope is returned when a target book number is below 1.
	ErrInvalidScope = errors.New("invalid scope: target book must be >= 1")
	// ErrSeriesNotFound also matches ErrNotFound.
	ErrSeriesNotFound = fmt.Errorf("series %w", ErrNotFound)
	// ErrEvaluationTimeout marks a canon check that ran past its deadline.
	ErrEvaluationTimeout = errors.New("canon evaluation timed out")
	// ErrOverrideRejected is returned for any override of an immutable rule or attribute.
	ErrOverrideRejected = errors.New("override rejected: target is immutable")
	// ErrInvalidTransition also matches ErrConflict.
	ErrInvalidTransition = fmt.Errorf("invalid arc status transition: %w", ErrConflict)
	// ErrLockedAttribute also matches ErrConflict.
	ErrLockedAttribute = fmt.Errorf("locked attribute: %w", ErrConflict)
)

// ValidationError reports malformed or invariant-violating input with one
// message per offending field.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// FromValidation converts the result of an ozzo-validation call into a
// *ValidationError. Nil stays nil and internal rule errors pass through.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	fields := make(map[string]string)
	var errs validation.Errors
	if errors.As(err, &errs) {
		flatten("", errs, fields)
	} else {
		fields["_"] = err.Error()
	}
	return &ValidationError{Fields: fields}
}

// flatten walks nested validation.Errors (from embedded structs and Each
// rules) producing dotted field paths.
func flatten(prefix string, errs validation.Errors, out map[string]string) {
	for k, v := range errs {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		var nested validation.Errors
		if errors.As(v, &nested) {
			flatten(key, nested, out)
			continue
		}
		out[key] = v.Error()
	}
}
