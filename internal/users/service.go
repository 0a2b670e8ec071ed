package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ammonsd/activitytracking/internal/shared"
)

var (
	ErrDuplicateUsername = errors.New("username already exists")
	ErrWrongPassword     = errors.New("current password does not match")
	ErrWeakPassword      = errors.New("password must be at least 8 characters")
)

// Service manages user accounts.
type Service struct {
	repo       Repository
	audit      *shared.AuditLogger
	logger     *slog.Logger
	expiryDays int
	now        func() time.Time
}

func NewService(repo Repository, audit *shared.AuditLogger, logger *slog.Logger, expiryDays int) *Service {
	return &Service{
		repo:       repo,
		audit:      audit,
		logger:     logger,
		expiryDays: expiryDays,
		now:        time.Now,
	}
}

// WithNow overrides the clock for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) List(ctx context.Context, req ListUsersRequest) ([]User, shared.Pagination, error) {
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

func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor string, in CreateUserInput) (User, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if username == "" {
		return User{}, errors.New("username is required")
	}
	if len(in.Password) < 8 {
		return User{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	expires := s.now().UTC().AddDate(0, 0, s.expiryDays)
	u := User{
		Username:          username,
		DisplayName:       strings.TrimSpace(in.DisplayName),
		Email:             strings.TrimSpace(in.Email),
		RoleID:            in.RoleID,
		PasswordExpiresAt: &expires,
		IsEnabled:         true,
	}
	created, err := s.repo.Create(ctx, u, string(hash))
	if err != nil {
		return User{}, err
	}
	s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   "user.create",
		Entity:   "user",
		EntityID: fmt.Sprint(created.ID),
		Meta:     map[string]any{"username": created.Username},
	})
	return created, nil
}

func (s *Service) Update(ctx context.Context, actor string, id int64, in UpdateUserInput) (User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if in.DisplayName != "" {
		u.DisplayName = strings.TrimSpace(in.DisplayName)
	}
	if in.Email != "" {
		u.Email = strings.TrimSpace(in.Email)
	}
	if in.RoleID != nil {
		u.RoleID = in.RoleID
	}
	if in.IsEnabled != nil {
		u.IsEnabled = *in.IsEnabled
	}
	updated, err := s.repo.Update(ctx, u)
	if err != nil {
		return User{}, err
	}
	s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   "user.update",
		Entity:   "user",
		EntityID: fmt.Sprint(id),
	})
	return updated, nil
}

// ChangePassword sets a new password. Self-service callers must supply the
// current password; admins changing another account pass verify=false.
func (s *Service) ChangePassword(ctx context.Context, actor string, id int64, current, next string, verify bool) error {
	if len(next) < 8 {
		return ErrWeakPassword
	}
	if verify {
		hash, err := s.repo.PasswordHash(ctx, id)
		if err != nil {
			return err
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(current)) != nil {
			return ErrWrongPassword
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	expires := s.now().UTC().AddDate(0, 0, s.expiryDays)
	if err := s.repo.SetPassword(ctx, id, string(hash), expires); err != nil {
		return err
	}
	s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   "user.password_change",
		Entity:   "user",
		EntityID: fmt.Sprint(id),
	})
	return nil
}

// ResetLockout clears the failed-login counter so a locked account can sign in again.
func (s *Service) ResetLockout(ctx context.Context, actor string, id int64) error {
	if err := s.repo.ResetFailedLogins(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   "user.unlock",
		Entity:   "user",
		EntityID: fmt.Sprint(id),
	})
	return nil
}

func (s *Service) Delete(ctx context.Context, actor string, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   "user.delete",
		Entity:   "user",
		EntityID: fmt.Sprint(id),
	})
	return nil
}
