package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrAuthorization = errors.New("authorization error")
	ErrConflict      = errors.New("conflict")
	ErrEntitlement   = errors.New("entitlement error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Kind is the closed classification every orchestrator failure maps onto.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindEntitlement   Kind = "entitlement"
	KindNotFound      Kind = "not_found"
	KindInternal      Kind = "internal"
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Validation is shorthand for Wrap(ErrValidation, ...) without a cause.
func Validation(component, operation, message string) error {
	return Wrap(ErrValidation, component, operation, message, nil)
}

// Unauthorized is shorthand for Wrap(ErrAuthorization, ...) without a cause.
func Unauthorized(component, operation, message string) error {
	return Wrap(ErrAuthorization, component, operation, message, nil)
}

// KindOf classifies err. Unmarked errors, including store and network
// failures, are internal and safe to retry.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrAuthorization):
		return KindAuthorization
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrEntitlement):
		return KindEntitlement
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// Retryable reports whether the caller may reload and try again.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindConflict, KindInternal:
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
