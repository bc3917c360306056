package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes shared by services and the HTTP layer.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeStatusNotFound    = "STATUS_NOT_FOUND"
	CodeValidation        = "VALIDATION_FAILED"
	CodeForbidden         = "FORBIDDEN"
	CodeCardNotActive     = "CARD_NOT_ACTIVE"
	CodeCardsNotActive    = "CARDS_NOT_ACTIVE"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeEncryption        = "ENCRYPTION_FAILED"
	CodeConflict          = "CONFLICT"
	CodeInternal          = "INTERNAL_ERROR"
)

// Sentinels for errors.Is matching. Two DomainErrors match when their codes match.
var (
	ErrNotFound          = &DomainError{Code: CodeNotFound}
	ErrStatusNotFound    = &DomainError{Code: CodeStatusNotFound}
	ErrValidation        = &DomainError{Code: CodeValidation}
	ErrForbidden         = &DomainError{Code: CodeForbidden}
	ErrCardNotActive     = &DomainError{Code: CodeCardNotActive}
	ErrCardsNotActive    = &DomainError{Code: CodeCardsNotActive}
	ErrInsufficientFunds = &DomainError{Code: CodeInsufficientFunds}
	ErrUnauthorized      = &DomainError{Code: CodeUnauthorized}
	ErrEncryption        = &DomainError{Code: CodeEncryption}
	ErrConflict          = &DomainError{Code: CodeConflict}
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewStatusNotFound(name string) error {
	return NewDomainError(CodeStatusNotFound, fmt.Sprintf("status not found: %s", name), http.StatusBadRequest, nil)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewCardNotActive(message string) error {
	return NewDomainError(CodeCardNotActive, message, http.StatusBadRequest, nil)
}

func NewCardsNotActive(message string) error {
	return NewDomainError(CodeCardsNotActive, message, http.StatusBadRequest, nil)
}

func NewInsufficientFunds(message string) error {
	return NewDomainError(CodeInsufficientFunds, message, http.StatusBadRequest, nil)
}

// NewEncryptionError never carries the underlying cipher error.
func NewEncryptionError(message string) error {
	return NewDomainError(CodeEncryption, message, http.StatusInternalServerError, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	return ToDomainError(err)
}

// HasCode reports whether err is a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}
