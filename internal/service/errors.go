package service

import "errors"

// Kind is the closed set of failure classes a flow can return.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindAuthentication Kind = "authentication"
	KindNotFound       Kind = "not_found"
	KindIntegrity      Kind = "integrity"
)

// Error is an expected flow failure. Reason is stable and meant for logs and
// metrics; Message is what a transport may show for non-authentication kinds.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, reason, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message}
}

var (
	ErrMultiplePrimaryPhones = newError(KindValidation, "multiple_primary_phones", "at most one phone number can be primary")

	ErrEmailTaken      = newError(KindConflict, "email_taken", "email already registered")
	ErrCompanyNotFound = newError(KindConflict, "company_not_found", "company does not exist")

	ErrUserNotFound    = newError(KindNotFound, "user_not_found", "user not found")
	ErrSessionNotFound = newError(KindNotFound, "session_not_found", "session not found")

	ErrInvalidCredentials        = newError(KindAuthentication, "invalid_credentials", "invalid credentials")
	ErrInvalidRefreshToken       = newError(KindAuthentication, "invalid_refresh_token", "invalid refresh token")
	ErrRefreshTokenReuseDetected = newError(KindAuthentication, "refresh_token_reuse_detected", "refresh token reuse detected")
	ErrSessionRevoked            = newError(KindAuthentication, "session_revoked", "session revoked")
	ErrSessionExpired            = newError(KindAuthentication, "session_expired", "session expired")
	ErrInactiveUser              = newError(KindAuthentication, "inactive_user", "user is not active")
	ErrInvalidAccessToken        = newError(KindAuthentication, "invalid_access_token", "invalid access token")
	ErrAccessTokenRevoked        = newError(KindAuthentication, "access_token_revoked", "access token revoked")
	ErrInvalidResetCode          = newError(KindAuthentication, "invalid_reset_code", "invalid or expired reset code")
	ErrLoginThrottled            = newError(KindAuthentication, "login_throttled", "too many failed attempts")
)

// KindOf classifies err. Anything outside the taxonomy is an integrity failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindIntegrity
}

func ReasonOf(err error) string {
	if err == nil {
		return "none"
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return "internal"
}
