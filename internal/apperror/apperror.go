package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP layer. Everything that is not
// explicitly classified is treated as Internal.
type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	Auth
)

type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewValidation(message string) *AppError {
	return &AppError{Kind: Validation, Message: message}
}

func NewNotFound(message string) *AppError {
	return &AppError{Kind: NotFound, Message: message}
}

func NewAuth(message string) *AppError {
	return &AppError{Kind: Auth, Message: message}
}

func NewInternal(message string, err error) *AppError {
	return &AppError{Kind: Internal, Message: message, Err: err}
}

// KindOf extracts the kind of err, defaulting to Internal for errors
// raised outside the taxonomy (driver failures and the like).
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// StatusCode maps an error to the HTTP status the handlers respond with.
func StatusCode(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Auth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is what the caller sees. Internal errors are flattened to
// a generic message so store details never leak through the API.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind != Internal {
		return appErr.Message
	}
	return "internal server error"
}
