package users

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ammonsd/activitytracking/internal/shared"
)

type memoryUserRepo struct {
	users  map[int64]User
	hashes map[int64]string
	nextID int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]User), hashes: make(map[int64]string)}
}

func (r *memoryUserRepo) List(ctx context.Context, req ListUsersRequest) ([]User, int, error) {
	var out []User
	for _, u := range r.users {
		if req.Search != "" && !strings.Contains(u.Username, req.Search) {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (r *memoryUserRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (r *memoryUserRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (r *memoryUserRepo) Create(ctx context.Context, u User, passwordHash string) (User, error) {
	for _, other := range r.users {
		if other.Username == u.Username {
			return User{}, ErrDuplicateUsername
		}
	}
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = u
	r.hashes[u.ID] = passwordHash
	return u, nil
}

func (r *memoryUserRepo) Update(ctx context.Context, u User) (User, error) {
	if _, ok := r.users[u.ID]; !ok {
		return User{}, shared.ErrNotFound
	}
	r.users[u.ID] = u
	return u, nil
}

func (r *memoryUserRepo) SetPassword(ctx context.Context, id int64, passwordHash string, expiresAt time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	r.hashes[id] = passwordHash
	u.PasswordExpiresAt = &expiresAt
	r.users[id] = u
	return nil
}

func (r *memoryUserRepo) PasswordHash(ctx context.Context, id int64) (string, error) {
	hash, ok := r.hashes[id]
	if !ok {
		return "", shared.ErrNotFound
	}
	return hash, nil
}

func (r *memoryUserRepo) ResetFailedLogins(ctx context.Context, id int64) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.FailedLogins = 0
	r.users[id] = u
	return nil
}

func (r *memoryUserRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.users, id)
	delete(r.hashes, id)
	return nil
}

func newTestService(repo *memoryUserRepo) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, shared.NewAuditLogger(nil), logger, 90)
	return svc.WithNow(func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	})
}

func TestCreateHashesPasswordAndSetsExpiry(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := newTestService(repo)

	u, err := svc.Create(context.Background(), "admin", CreateUserInput{
		Username:    "  Alice ",
		DisplayName: "Alice Liddell",
		Email:       "alice@example.com",
		Password:    "correct horse battery",
	})
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
	require.True(t, u.IsEnabled)

	wantExpiry := time.Date(2026, 5, 30, 12, 0, 0, 0, time.UTC)
	require.NotNil(t, u.PasswordExpiresAt)
	require.Equal(t, wantExpiry, *u.PasswordExpiresAt)

	hash := repo.hashes[u.ID]
	require.NotEqual(t, "correct horse battery", hash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse battery")))
}

func TestCreateRejectsWeakPassword(t *testing.T) {
	svc := newTestService(newMemoryUserRepo())

	_, err := svc.Create(context.Background(), "admin", CreateUserInput{Username: "alice", Password: "short"})
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestCreateRejectsDuplicateUsername(t *testing.T) {
	svc := newTestService(newMemoryUserRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, "admin", CreateUserInput{Username: "alice", Password: "long enough"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "admin", CreateUserInput{Username: "ALICE", Password: "long enough"})
	require.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	u, err := svc.Create(ctx, "admin", CreateUserInput{Username: "alice", Password: "original pass"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, "alice", u.ID, "wrong pass", "replacement pass", true)
	require.ErrorIs(t, err, ErrWrongPassword)

	err = svc.ChangePassword(ctx, "alice", u.ID, "original pass", "replacement pass", true)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[u.ID]), []byte("replacement pass")))

	// Admin resets skip verification.
	err = svc.ChangePassword(ctx, "admin", u.ID, "", "admin set pass", false)
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, "alice", u.ID, "admin set pass", "short", true)
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestChangePasswordRollsExpiryForward(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	u, err := svc.Create(ctx, "admin", CreateUserInput{Username: "alice", Password: "original pass"})
	require.NoError(t, err)
	require.NoError(t, svc.ChangePassword(ctx, "alice", u.ID, "original pass", "replacement pass", true))

	stored, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 5, 30, 12, 0, 0, 0, time.UTC), *stored.PasswordExpiresAt)
}

func TestResetLockout(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	u, err := svc.Create(ctx, "admin", CreateUserInput{Username: "alice", Password: "original pass"})
	require.NoError(t, err)
	locked := repo.users[u.ID]
	locked.FailedLogins = 5
	repo.users[u.ID] = locked

	require.NoError(t, svc.ResetLockout(ctx, "admin", u.ID))
	require.Zero(t, repo.users[u.ID].FailedLogins)
}
