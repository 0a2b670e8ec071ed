package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ammonsd/activitytracking/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo            Repository
	tokens          *TokenManager
	revocations     *RevocationStore
	maxFailedLogins int
	now             func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenManager, revocations *RevocationStore, maxFailedLogins int) *Service {
	if maxFailedLogins <= 0 {
		maxFailedLogins = 5
	}
	return &Service{
		repo:            repo,
		tokens:          tokens,
		revocations:     revocations,
		maxFailedLogins: maxFailedLogins,
		now:             time.Now,
	}
}

// Login validates credentials and issues an access token. Lockout and
// password expiry are enforced here, before any token is minted.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenResult, error) {
	acc, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !acc.IsEnabled {
		return nil, shared.ErrInvalidCredentials
	}
	if acc.FailedLogins >= s.maxFailedLogins {
		return nil, shared.ErrAccountLocked
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		if count, recErr := s.repo.RecordFailedLogin(ctx, username); recErr == nil && count >= s.maxFailedLogins {
			return nil, shared.ErrAccountLocked
		}
		return nil, shared.ErrInvalidCredentials
	}
	if acc.PasswordExpiresAt != nil && s.now().After(*acc.PasswordExpiresAt) {
		return nil, shared.ErrPasswordExpired
	}
	if err := s.repo.ResetFailedLogins(ctx, username); err != nil {
		return nil, err
	}

	token, claims, err := s.tokens.Issue(acc.Username, acc.Role)
	if err != nil {
		return nil, err
	}
	return &TokenResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Username:  acc.Username,
		Role:      acc.Role,
	}, nil
}

// Logout revokes the presented token so it never authenticates again.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	return s.revocations.Revoke(ctx, claims.ID, claims.Subject, claims.ExpiresAt.Time)
}
