package auth

import (
	apperrors "github.com/spec-kit/bankcards-service/pkg/util/errorutil"
)

// Reason classifies authentication failures.
type Reason string

const (
	ReasonMalformed        Reason = "malformed"
	ReasonExpired          Reason = "expired"
	ReasonSignatureInvalid Reason = "signature_invalid"
	ReasonWrongTokenType   Reason = "wrong_token_type"
	ReasonBadCredentials   Reason = "bad_credentials"
)

var (
	ErrTokenMalformed        = &AuthError{Reason: ReasonMalformed}
	ErrTokenExpired          = &AuthError{Reason: ReasonExpired}
	ErrTokenSignatureInvalid = &AuthError{Reason: ReasonSignatureInvalid}
	ErrWrongTokenType        = &AuthError{Reason: ReasonWrongTokenType}
	ErrBadCredentials        = &AuthError{Reason: ReasonBadCredentials}
)

var reasonMessages = map[Reason]string{
	ReasonMalformed:        "invalid token",
	ReasonExpired:          "token expired",
	ReasonSignatureInvalid: "invalid token",
	ReasonWrongTokenType:   "invalid token type",
	ReasonBadCredentials:   "invalid credentials",
}

// AuthError reports bad credentials or an unusable token.
// It unwraps to an UNAUTHORIZED DomainError for the HTTP layer.
type AuthError struct {
	Reason Reason
}

func (e *AuthError) Error() string {
	return reasonMessages[e.Reason]
}

// Is matches another AuthError with the same reason.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Reason == e.Reason
}

func (e *AuthError) Unwrap() error {
	return apperrors.NewUnauthorized(e.Error())
}
