package reports

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Service assembles report datasets. Dashboard queries run concurrently and
// the combined payload is cached for a short interval.
type Service struct {
	repo      Repository
	cache     *Cache
	logger    *slog.Logger
	staleDays int
	now       func() time.Time
}

func NewService(repo Repository, cache *Cache, logger *slog.Logger, staleDays int) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		logger:    logger,
		staleDays: staleDays,
		now:       time.Now,
	}
}

// WithNow overrides the clock for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// DefaultWindow is the trailing 30 days ending today.
func (s *Service) DefaultWindow() Window {
	to := s.now().UTC().Truncate(24 * time.Hour)
	return Window{From: to.AddDate(0, 0, -30), To: to}
}

// Dashboard loads all landing-page datasets for the window.
func (s *Service) Dashboard(ctx context.Context, w Window) (Dashboard, error) {
	from := w.From.Format(time.DateOnly)
	to := w.To.Format(time.DateOnly)

	var cached Dashboard
	if s.cache.Get(ctx, &cached, "dashboard", from, to) {
		return cached, nil
	}

	d := Dashboard{Window: w, From: from, To: to}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.Users, err = s.repo.UserSummaries(gctx, w)
		return err
	})
	g.Go(func() error {
		var err error
		d.Clients, err = s.repo.ClientBillability(gctx, w)
		return err
	})
	g.Go(func() error {
		var err error
		d.Deltas, err = s.periodDeltas(gctx, w)
		return err
	})
	g.Go(func() error {
		var err error
		d.DaysOfWeek, err = s.repo.HoursByWeekday(gctx, w)
		return err
	})
	g.Go(func() error {
		var err error
		d.Repetition, err = s.repo.RepetitionRates(gctx, w)
		return err
	})
	g.Go(func() error {
		var err error
		d.ExpenseSpend, err = s.repo.ExpenseTotalsByClient(gctx, w)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	s.cache.Set(ctx, d, "dashboard", from, to)
	return d, nil
}

// periodDeltas compares the window against the immediately preceding window
// of equal length.
func (s *Service) periodDeltas(ctx context.Context, w Window) ([]PeriodDelta, error) {
	span := w.To.Sub(w.From)
	prev := Window{From: w.From.Add(-span - 24*time.Hour), To: w.From.Add(-24 * time.Hour)}

	current, err := s.repo.ClientHours(ctx, w)
	if err != nil {
		return nil, err
	}
	previous, err := s.repo.ClientHours(ctx, prev)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []PeriodDelta
	appendDelta := func(client string) {
		if seen[client] {
			return
		}
		seen[client] = true
		cur := current[client]
		prv := previous[client]
		out = append(out, PeriodDelta{
			Client:        client,
			CurrentHours:  cur,
			PreviousHours: prv,
			DeltaHours:    cur.Sub(prv),
		})
	}
	for client := range current {
		appendDelta(client)
	}
	for client := range previous {
		appendDelta(client)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Client < out[j].Client })
	return out, nil
}

// UserSummaries exposes the per-user aggregate on its own.
func (s *Service) UserSummaries(ctx context.Context, w Window) ([]UserSummary, error) {
	var cached []UserSummary
	from, to := w.From.Format(time.DateOnly), w.To.Format(time.DateOnly)
	if s.cache.Get(ctx, &cached, "users", from, to) {
		return cached, nil
	}
	out, err := s.repo.UserSummaries(ctx, w)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, out, "users", from, to)
	return out, nil
}

// StaleProjects lists projects idle longer than the configured threshold.
func (s *Service) StaleProjects(ctx context.Context) ([]StaleProject, error) {
	return s.repo.StaleProjects(ctx, time.Duration(s.staleDays)*24*time.Hour, s.now().UTC())
}

// TotalHours sums the hours in a user summary set.
func TotalHours(users []UserSummary) decimal.Decimal {
	total := decimal.Zero
	for _, u := range users {
		total = total.Add(u.TotalHours)
	}
	return total
}
