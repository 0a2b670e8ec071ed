package taskactivity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammonsd/activitytracking/internal/dropdowns"
	"github.com/ammonsd/activitytracking/internal/shared"
)

var (
	ErrDuplicateActivity = errors.New("an identical activity already exists for that day")
	ErrNotOwner          = errors.New("activity belongs to another user")
	ErrInvalidInput      = errors.New("invalid activity")
	ErrInvalidHours      = fmt.Errorf("%w: hours must be greater than 0 and at most 24", ErrInvalidInput)
)

// Vocabulary validates values against the configured dropdown lists.
type Vocabulary interface {
	Validate(ctx context.Context, category, value string) (bool, error)
}

// Service manages task activity entries.
type Service struct {
	repo   Repository
	vocab  Vocabulary
	audit  *shared.AuditLogger
	logger *slog.Logger
}

func NewService(repo Repository, vocab Vocabulary, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, vocab: vocab, audit: audit, logger: logger}
}

var maxHours = decimal.NewFromInt(24)

func (s *Service) validateInput(ctx context.Context, in WriteInput) error {
	if in.TaskDate.IsZero() {
		return fmt.Errorf("%w: task date is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if !in.Hours.IsPositive() || in.Hours.GreaterThan(maxHours) {
		return ErrInvalidHours
	}
	for _, check := range []struct{ category, value string }{
		{dropdowns.CategoryClient, in.Client},
		{dropdowns.CategoryProject, in.Project},
		{dropdowns.CategoryPhase, in.Phase},
	} {
		ok, err := s.vocab.Validate(ctx, check.category, check.value)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %q is not a configured %s", ErrInvalidInput, check.value, check.category)
		}
	}
	return nil
}

// List returns activities visible to identity. Non-admin users only see
// their own entries regardless of the requested filter.
func (s *Service) List(ctx context.Context, identity *shared.Identity, req ListRequest) ([]Activity, shared.Pagination, error) {
	if !identity.IsAdmin() {
		req.Username = identity.Username
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 || req.PerPage > 200 {
		req.PerPage = 50
	}
	list, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(req.Page, req.PerPage, total), nil
}

func (s *Service) Get(ctx context.Context, identity *shared.Identity, id int64) (Activity, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	if a.Username != identity.Username && !identity.IsAdmin() {
		return Activity{}, ErrNotOwner
	}
	return a, nil
}

func (s *Service) Create(ctx context.Context, identity *shared.Identity, in WriteInput) (Activity, error) {
	if err := s.validateInput(ctx, in); err != nil {
		return Activity{}, err
	}
	created, err := s.repo.Create(ctx, Activity{
		Username:    identity.Username,
		TaskDate:    in.TaskDate,
		Client:      in.Client,
		Project:     in.Project,
		Phase:       in.Phase,
		Hours:       in.Hours,
		Description: strings.TrimSpace(in.Description),
		Billable:    in.Billable,
	})
	if err != nil {
		return Activity{}, err
	}
	s.audit.Record(ctx, shared.AuditLog{
		Actor:    identity.Username,
		Action:   "task.create",
		Entity:   "task_activity",
		EntityID: fmt.Sprint(created.ID),
		Meta:     map[string]any{"date": created.TaskDate.Format(time.DateOnly), "client": created.Client},
	})
	return created, nil
}

func (s *Service) Update(ctx context.Context, identity *shared.Identity, id int64, in WriteInput) (Activity, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	if existing.Username != identity.Username && !identity.IsAdmin() {
		return Activity{}, ErrNotOwner
	}
	if err := s.validateInput(ctx, in); err != nil {
		return Activity{}, err
	}
	existing.TaskDate = in.TaskDate
	existing.Client = in.Client
	existing.Project = in.Project
	existing.Phase = in.Phase
	existing.Hours = in.Hours
	existing.Description = strings.TrimSpace(in.Description)
	existing.Billable = in.Billable

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return Activity{}, err
	}
	s.audit.Record(ctx, shared.AuditLog{
		Actor:    identity.Username,
		Action:   "task.update",
		Entity:   "task_activity",
		EntityID: fmt.Sprint(id),
	})
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, identity *shared.Identity, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.Username != identity.Username && !identity.IsAdmin() {
		return ErrNotOwner
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, shared.AuditLog{
		Actor:    identity.Username,
		Action:   "task.delete",
		Entity:   "task_activity",
		EntityID: fmt.Sprint(id),
	})
	return nil
}
