package reports

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeReportRepo struct {
	users          []UserSummary
	clients        []ClientBillability
	hoursByWindow  map[string]map[string]decimal.Decimal
	stale          []StaleProject
	weekdays       []DayOfWeekHours
	repetition     []RepetitionRate
	expenses       []ExpenseClientTotal
	userQueryCount int
}

func (r *fakeReportRepo) UserSummaries(ctx context.Context, w Window) ([]UserSummary, error) {
	r.userQueryCount++
	return r.users, nil
}

func (r *fakeReportRepo) ClientBillability(ctx context.Context, w Window) ([]ClientBillability, error) {
	return r.clients, nil
}

func (r *fakeReportRepo) ClientHours(ctx context.Context, w Window) (map[string]decimal.Decimal, error) {
	return r.hoursByWindow[w.From.Format(time.DateOnly)], nil
}

func (r *fakeReportRepo) StaleProjects(ctx context.Context, idleAfter time.Duration, asOf time.Time) ([]StaleProject, error) {
	return r.stale, nil
}

func (r *fakeReportRepo) HoursByWeekday(ctx context.Context, w Window) ([]DayOfWeekHours, error) {
	return r.weekdays, nil
}

func (r *fakeReportRepo) RepetitionRates(ctx context.Context, w Window) ([]RepetitionRate, error) {
	return r.repetition, nil
}

func (r *fakeReportRepo) ExpenseTotalsByClient(ctx context.Context, w Window) ([]ExpenseClientTotal, error) {
	return r.expenses, nil
}

func testWindow() Window {
	return Window{
		From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func newFakeRepo() *fakeReportRepo {
	w := testWindow()
	span := w.To.Sub(w.From)
	prevFrom := w.From.Add(-span - 24*time.Hour)
	return &fakeReportRepo{
		users: []UserSummary{
			{Username: "alice", TotalHours: decimal.NewFromInt(160), BillableHours: decimal.NewFromInt(120), BillablePct: 75, DaysWorked: 20, EntryCount: 40},
			{Username: "bob", TotalHours: decimal.NewFromInt(80), BillableHours: decimal.NewFromInt(80), BillablePct: 100, DaysWorked: 10, EntryCount: 10},
		},
		hoursByWindow: map[string]map[string]decimal.Decimal{
			w.From.Format(time.DateOnly): {
				"Initech": decimal.NewFromInt(100),
				"Globex":  decimal.NewFromInt(40),
			},
			prevFrom.Format(time.DateOnly): {
				"Initech": decimal.NewFromInt(120),
				"Hooli":   decimal.NewFromInt(10),
			},
		},
	}
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, NewCache(client, time.Minute), logger, 30).WithNow(func() time.Time {
		return time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	})
}

func TestDashboardAssemblesAllDatasets(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	d, err := svc.Dashboard(context.Background(), testWindow())
	require.NoError(t, err)
	require.Equal(t, "2026-03-01", d.From)
	require.Equal(t, "2026-03-31", d.To)
	require.Len(t, d.Users, 2)
	require.Len(t, d.Deltas, 3)
}

func TestPeriodDeltasCoverBothWindows(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	d, err := svc.Dashboard(context.Background(), testWindow())
	require.NoError(t, err)

	byClient := map[string]PeriodDelta{}
	for _, delta := range d.Deltas {
		byClient[delta.Client] = delta
	}

	require.True(t, byClient["Initech"].DeltaHours.Equal(decimal.NewFromInt(-20)))
	// Clients present in only one window still appear, against zero.
	require.True(t, byClient["Globex"].DeltaHours.Equal(decimal.NewFromInt(40)))
	require.True(t, byClient["Hooli"].DeltaHours.Equal(decimal.NewFromInt(-10)))

	// Sorted by client name for stable rendering.
	require.Equal(t, "Globex", d.Deltas[0].Client)
	require.Equal(t, "Hooli", d.Deltas[1].Client)
	require.Equal(t, "Initech", d.Deltas[2].Client)
}

func TestUserSummariesCached(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	first, err := svc.UserSummaries(ctx, testWindow())
	require.NoError(t, err)
	second, err := svc.UserSummaries(ctx, testWindow())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.userQueryCount)
}

func TestDefaultWindowTrailingThirtyDays(t *testing.T) {
	svc := newTestService(t, newFakeRepo())

	w := svc.DefaultWindow()
	require.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), w.To)
	require.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), w.From)
}

func TestTotalHours(t *testing.T) {
	total := TotalHours(newFakeRepo().users)
	require.True(t, total.Equal(decimal.NewFromInt(240)))
}
