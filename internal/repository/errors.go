package repository

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrCompanyNotFound      = errors.New("company not found")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrRevokedTokenNotFound = errors.New("revoked access token not found")
)

func outcomeOf(err error, notFound error) string {
	switch {
	case err == nil:
		return "success"
	case notFound != nil && errors.Is(err, notFound):
		return "not_found"
	default:
		return "error"
	}
}
