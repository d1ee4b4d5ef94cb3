package domain

import "github.com/pkg/errors"

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")

	// ErrUserExists is returned when registering a taken username
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidCredentials is returned on a password mismatch
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated is returned when an action needs an identity
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidToken is returned when a credential fails verification
	ErrInvalidToken = errors.New("invalid token")
)
