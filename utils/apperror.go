package utils

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies engine failures.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindAmbiguous  ErrorKind = "ambiguous"
	KindConflict   ErrorKind = "conflict"
	KindStorage    ErrorKind = "storage"
)

// HTTPStatus returns the status code an error of this kind is surfaced as.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAmbiguous, KindConflict:
		return http.StatusConflict
	case KindStorage:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// AppError is the typed error returned by the engine services.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another *AppError by kind, and by code when the target sets one.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Kind sentinels for errors.Is checks.
var (
	ErrValidation = &AppError{Kind: KindValidation}
	ErrNotFound   = &AppError{Kind: KindNotFound}
	ErrAmbiguous  = &AppError{Kind: KindAmbiguous}
	ErrConflict   = &AppError{Kind: KindConflict}
	ErrStorage    = &AppError{Kind: KindStorage}
)

func NewValidationError(code, format string, args ...any) error {
	return &AppError{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(code, format string, args ...any) error {
	return &AppError{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NewAmbiguousError(code, format string, args ...any) error {
	return &AppError{Kind: KindAmbiguous, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NewConflictError(code, format string, args ...any) error {
	return &AppError{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewStorageError wraps a document-store failure.
func NewStorageError(code string, err error) error {
	return &AppError{Kind: KindStorage, Code: code, Message: "storage unavailable", Err: err}
}
