package auth

import "time"

// Account is the credential view of a user loaded for authentication.
type Account struct {
	ID                int64
	Username          string
	PasswordHash      string
	Role              string
	IsEnabled         bool
	FailedLogins      int
	PasswordExpiresAt *time.Time
}

// TokenResult carries an issued access token and its expiry.
type TokenResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}
