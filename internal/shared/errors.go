package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates too many consecutive failed logins.
	ErrAccountLocked = errors.New("account locked")
	// ErrPasswordExpired indicates the password must be changed before login.
	ErrPasswordExpired = errors.New("password expired")
)
