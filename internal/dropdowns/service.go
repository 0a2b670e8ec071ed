package dropdowns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ammonsd/activitytracking/internal/shared"
)

var (
	ErrDuplicateValue  = errors.New("value already exists in category")
	ErrUnknownCategory = errors.New("unknown dropdown category")
)

// Service manages configurable dropdown values.
type Service struct {
	repo   Repository
	audit  *shared.AuditLogger
	logger *slog.Logger
}

func NewService(repo Repository, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

func (s *Service) List(ctx context.Context, category string, activeOnly bool) ([]Value, error) {
	if !knownCategory(category) {
		return nil, ErrUnknownCategory
	}
	return s.repo.List(ctx, category, activeOnly)
}

func (s *Service) Create(ctx context.Context, actor, category, value string, sortOrder int) (Value, error) {
	if !knownCategory(category) {
		return Value{}, ErrUnknownCategory
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return Value{}, errors.New("value is required")
	}
	created, err := s.repo.Create(ctx, Value{
		Category:  category,
		Value:     value,
		SortOrder: sortOrder,
		IsActive:  true,
	})
	if err != nil {
		return Value{}, err
	}
	s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   "dropdown.create",
		Entity:   "dropdown_value",
		EntityID: fmt.Sprint(created.ID),
		Meta:     map[string]any{"category": category, "value": value},
	})
	return created, nil
}

func (s *Service) Update(ctx context.Context, actor string, id int64, value string, sortOrder int, isActive bool) (Value, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Value{}, err
	}
	existing.Value = strings.TrimSpace(value)
	existing.SortOrder = sortOrder
	existing.IsActive = isActive
	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return Value{}, err
	}
	s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   "dropdown.update",
		Entity:   "dropdown_value",
		EntityID: fmt.Sprint(id),
	})
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actor string, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   "dropdown.delete",
		Entity:   "dropdown_value",
		EntityID: fmt.Sprint(id),
	})
	return nil
}

// Validate reports whether value is an active member of category. Used by the
// activity and expense services to enforce configured vocabularies.
func (s *Service) Validate(ctx context.Context, category, value string) (bool, error) {
	if !knownCategory(category) {
		return false, ErrUnknownCategory
	}
	return s.repo.Exists(ctx, category, value)
}
