package auth

import "errors"

// Token errors. The API middleware maps expired tokens to "Token expired"
// and every other validation failure to "Invalid token".
var (
	ErrInvalidToken     = errors.New("invalid authentication token")
	ErrExpiredToken     = errors.New("authentication token has expired")
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")
	ErrMissingToken     = errors.New("authentication token is missing")
	ErrEmptySubject     = errors.New("token subject cannot be empty")
)
