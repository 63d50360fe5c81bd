package auth

import "errors"

var (
	ErrMissingToken       = errors.New("missing authorization token")
	ErrInvalidTokenFormat = errors.New("invalid token format")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrConfigNotLoaded    = errors.New("auth config not loaded")
)
