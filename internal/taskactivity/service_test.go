package taskactivity

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ammonsd/activitytracking/internal/shared"
)

type memoryActivityRepo struct {
	activities map[int64]Activity
	nextID     int64
}

func newMemoryActivityRepo() *memoryActivityRepo {
	return &memoryActivityRepo{activities: make(map[int64]Activity)}
}

func (r *memoryActivityRepo) duplicate(a Activity) bool {
	for _, other := range r.activities {
		if other.ID == a.ID {
			continue
		}
		if other.Username == a.Username && other.TaskDate.Equal(a.TaskDate) &&
			other.Client == a.Client && other.Project == a.Project &&
			other.Phase == a.Phase && other.Description == a.Description {
			return true
		}
	}
	return false
}

func (r *memoryActivityRepo) List(ctx context.Context, req ListRequest) ([]Activity, int, error) {
	var out []Activity
	for _, a := range r.activities {
		if req.Username != "" && a.Username != req.Username {
			continue
		}
		if req.Client != "" && a.Client != req.Client {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

func (r *memoryActivityRepo) Get(ctx context.Context, id int64) (Activity, error) {
	a, ok := r.activities[id]
	if !ok {
		return Activity{}, shared.ErrNotFound
	}
	return a, nil
}

func (r *memoryActivityRepo) Create(ctx context.Context, a Activity) (Activity, error) {
	if r.duplicate(a) {
		return Activity{}, ErrDuplicateActivity
	}
	r.nextID++
	a.ID = r.nextID
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.activities[a.ID] = a
	return a, nil
}

func (r *memoryActivityRepo) Update(ctx context.Context, a Activity) (Activity, error) {
	if _, ok := r.activities[a.ID]; !ok {
		return Activity{}, shared.ErrNotFound
	}
	if r.duplicate(a) {
		return Activity{}, ErrDuplicateActivity
	}
	a.UpdatedAt = time.Now()
	r.activities[a.ID] = a
	return a, nil
}

func (r *memoryActivityRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.activities[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.activities, id)
	return nil
}

type allowAllVocab struct{}

func (allowAllVocab) Validate(ctx context.Context, category, value string) (bool, error) {
	return value != "", nil
}

func newTestService() (*Service, *memoryActivityRepo) {
	repo := newMemoryActivityRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, allowAllVocab{}, shared.NewAuditLogger(nil), logger), repo
}

func user(name string) *shared.Identity {
	return &shared.Identity{Username: name, Role: shared.RoleUser,
		Permissions: []string{shared.PermTaskCreate, shared.PermTaskRead, shared.PermTaskUpdate, shared.PermTaskDelete}}
}

func admin() *shared.Identity {
	return &shared.Identity{Username: "root", Role: shared.RoleAdmin}
}

func validInput() WriteInput {
	return WriteInput{
		TaskDate:    time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		Client:      "Initech",
		Project:     "Migration",
		Phase:       "Build",
		Hours:       decimal.RequireFromString("7.5"),
		Description: "Schema conversion",
		Billable:    true,
	}
}

func TestCreateAssignsOwner(t *testing.T) {
	svc, _ := newTestService()

	a, err := svc.Create(context.Background(), user("alice"), validInput())
	require.NoError(t, err)
	require.Equal(t, "alice", a.Username)
	require.True(t, a.Hours.Equal(decimal.RequireFromString("7.5")))
}

func TestCreateRejectsDuplicate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, user("alice"), validInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, user("alice"), validInput())
	require.ErrorIs(t, err, ErrDuplicateActivity)

	// Same entry under a different user is fine.
	_, err = svc.Create(ctx, user("bob"), validInput())
	require.NoError(t, err)
}

func TestHoursValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	in := validInput()
	in.Hours = decimal.Zero
	_, err := svc.Create(ctx, user("alice"), in)
	require.ErrorIs(t, err, ErrInvalidHours)

	in.Hours = decimal.RequireFromString("24.5")
	_, err = svc.Create(ctx, user("alice"), in)
	require.ErrorIs(t, err, ErrInvalidHours)

	in.Hours = decimal.NewFromInt(24)
	_, err = svc.Create(ctx, user("alice"), in)
	require.NoError(t, err)
}

func TestValidationErrors(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	in := validInput()
	in.Description = "   "
	_, err := svc.Create(ctx, user("alice"), in)
	require.ErrorIs(t, err, ErrInvalidInput)

	in = validInput()
	in.Client = ""
	_, err = svc.Create(ctx, user("alice"), in)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestOwnershipEnforced(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Create(ctx, user("alice"), validInput())
	require.NoError(t, err)

	_, err = svc.Get(ctx, user("bob"), a.ID)
	require.ErrorIs(t, err, ErrNotOwner)
	_, err = svc.Update(ctx, user("bob"), a.ID, validInput())
	require.ErrorIs(t, err, ErrNotOwner)
	err = svc.Delete(ctx, user("bob"), a.ID)
	require.ErrorIs(t, err, ErrNotOwner)

	// Admins can act on anyone's entries.
	_, err = svc.Get(ctx, admin(), a.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, admin(), a.ID))
}

func TestListScopedToCaller(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, user("alice"), validInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, user("bob"), validInput())
	require.NoError(t, err)

	// Non-admins only see their own rows even when asking for another user.
	list, _, err := svc.List(ctx, user("alice"), ListRequest{Username: "bob"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "alice", list[0].Username)

	all, _, err := svc.List(ctx, admin(), ListRequest{})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestUpdateReplacesFields(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Create(ctx, user("alice"), validInput())
	require.NoError(t, err)

	in := validInput()
	in.Description = "Schema conversion and data load"
	in.Billable = false
	updated, err := svc.Update(ctx, user("alice"), a.ID, in)
	require.NoError(t, err)
	require.Equal(t, "Schema conversion and data load", updated.Description)
	require.False(t, updated.Billable)
}
