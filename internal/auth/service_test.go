package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ammonsd/activitytracking/internal/shared"
)

type memoryAuthRepo struct {
	accounts map[string]Account
}

func newMemoryAuthRepo() *memoryAuthRepo {
	return &memoryAuthRepo{accounts: make(map[string]Account)}
}

func (r *memoryAuthRepo) FindByUsername(ctx context.Context, username string) (*Account, error) {
	acc, ok := r.accounts[username]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &acc, nil
}

func (r *memoryAuthRepo) RecordFailedLogin(ctx context.Context, username string) (int, error) {
	acc := r.accounts[username]
	acc.FailedLogins++
	r.accounts[username] = acc
	return acc.FailedLogins, nil
}

func (r *memoryAuthRepo) ResetFailedLogins(ctx context.Context, username string) error {
	acc := r.accounts[username]
	acc.FailedLogins = 0
	r.accounts[username] = acc
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	tokens := NewTokenManager("test-secret", "activitytracking", time.Hour)
	return NewService(repo, tokens, nil, 5)
}

func TestLoginSuccess(t *testing.T) {
	repo := newMemoryAuthRepo()
	repo.accounts["dekker"] = Account{
		Username:     "dekker",
		PasswordHash: hashPassword(t, "correct horse"),
		Role:         shared.RoleUser,
		IsEnabled:    true,
	}
	svc := newTestService(t, repo)

	result, err := svc.Login(context.Background(), "dekker", "correct horse")
	require.NoError(t, err)
	require.Equal(t, "dekker", result.Username)
	require.Equal(t, shared.RoleUser, result.Role)
	require.NotEmpty(t, result.Token)
	require.True(t, result.ExpiresAt.After(time.Now()))
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMemoryAuthRepo()
	repo.accounts["dekker"] = Account{
		Username:     "dekker",
		PasswordHash: hashPassword(t, "correct horse"),
		Role:         shared.RoleUser,
		IsEnabled:    true,
	}
	svc := newTestService(t, repo)

	_, err := svc.Login(context.Background(), "dekker", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	require.Equal(t, 1, repo.accounts["dekker"].FailedLogins)
}

func TestLoginLockoutAfterFiveFailures(t *testing.T) {
	repo := newMemoryAuthRepo()
	repo.accounts["dekker"] = Account{
		Username:     "dekker",
		PasswordHash: hashPassword(t, "correct horse"),
		Role:         shared.RoleUser,
		IsEnabled:    true,
	}
	svc := newTestService(t, repo)

	for i := 0; i < 4; i++ {
		_, err := svc.Login(context.Background(), "dekker", "wrong")
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	}
	// Fifth failure crosses the threshold.
	_, err := svc.Login(context.Background(), "dekker", "wrong")
	require.ErrorIs(t, err, shared.ErrAccountLocked)

	// Correct password no longer helps once locked.
	_, err = svc.Login(context.Background(), "dekker", "correct horse")
	require.ErrorIs(t, err, shared.ErrAccountLocked)
}

func TestLoginExpiredPassword(t *testing.T) {
	expired := time.Now().Add(-24 * time.Hour)
	repo := newMemoryAuthRepo()
	repo.accounts["dekker"] = Account{
		Username:          "dekker",
		PasswordHash:      hashPassword(t, "correct horse"),
		Role:              shared.RoleUser,
		IsEnabled:         true,
		PasswordExpiresAt: &expired,
	}
	svc := newTestService(t, repo)

	_, err := svc.Login(context.Background(), "dekker", "correct horse")
	require.ErrorIs(t, err, shared.ErrPasswordExpired)
}

func TestLoginDisabledAccount(t *testing.T) {
	repo := newMemoryAuthRepo()
	repo.accounts["dekker"] = Account{
		Username:     "dekker",
		PasswordHash: hashPassword(t, "correct horse"),
		Role:         shared.RoleUser,
		IsEnabled:    false,
	}
	svc := newTestService(t, repo)

	_, err := svc.Login(context.Background(), "dekker", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenManager("test-secret", "activitytracking", time.Hour)

	signed, claims, err := tokens.Issue("dekker", shared.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)

	parsed, err := tokens.Parse(signed)
	require.NoError(t, err)
	require.Equal(t, "dekker", parsed.Subject)
	require.Equal(t, shared.RoleAdmin, parsed.Role)
	require.Equal(t, claims.ID, parsed.ID)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	tokens := NewTokenManager("test-secret", "activitytracking", time.Hour)
	other := NewTokenManager("other-secret", "activitytracking", time.Hour)

	signed, _, err := tokens.Issue("dekker", shared.RoleUser)
	require.NoError(t, err)

	_, err = other.Parse(signed)
	require.Error(t, err)
}

func TestTokenRejectsExpired(t *testing.T) {
	tokens := NewTokenManager("test-secret", "activitytracking", time.Minute)
	signed, _, err := tokens.Issue("dekker", shared.RoleUser)
	require.NoError(t, err)

	tokens.WithNow(func() time.Time { return time.Now().Add(time.Hour) })
	_, err = tokens.Parse(signed)
	require.Error(t, err)
}

func TestRevocationCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRevocationStore(nil, client, discardLogger())

	ctx := context.Background()
	revoked, err := store.IsRevoked(ctx, "some-jti")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "some-jti", "dekker", time.Now().Add(time.Hour)))

	revoked, err = store.IsRevoked(ctx, "some-jti")
	require.NoError(t, err)
	require.True(t, revoked)

	// Cache-only deployments have nothing durable to purge.
	purged, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, purged)
}
