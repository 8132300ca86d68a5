package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrEmailTaken         = errors.New("email is already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountNotFound    = errors.New("account not found")
	ErrStorageConflict    = errors.New("storage conflict")
	ErrForbidden          = errors.New("operation not permitted for this account")

	// ErrTokenRefresh is the kind shared by every refresh failure.
	ErrTokenRefresh        = errors.New("refresh token rejected")
	ErrInvalidRefreshToken = fmt.Errorf("%w: refresh token not found", ErrTokenRefresh)
	ErrRefreshTokenExpired = fmt.Errorf("%w: refresh token expired", ErrTokenRefresh)
)
