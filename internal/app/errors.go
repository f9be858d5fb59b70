package app

import (
	"errors"
	"fmt"
	"net/http"

	"pathwise/api/internal/checkin"
	"pathwise/api/internal/goals"
	"pathwise/api/internal/identity"
	"pathwise/api/internal/tutor"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(message string) *DomainError {
	return domainError(http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

var (
	errUnauthorized = domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	errNotFound     = domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
)

// classify turns package sentinel errors into the caller-facing taxonomy.
// Errors it does not recognise are returned unchanged and surface as 500.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case errors.Is(err, identity.ErrInvalidEmail),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, goals.ErrInvalidInput),
		errors.Is(err, checkin.ErrInvalidInput),
		errors.Is(err, tutor.ErrUnknownType):
		return validationError(err.Error())
	case errors.Is(err, identity.ErrInvalidCredentials):
		return domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	case errors.Is(err, identity.ErrDuplicateEmail):
		return domainError(http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
	case errors.Is(err, goals.ErrNotFound):
		return errNotFound
	}
	return err
}
