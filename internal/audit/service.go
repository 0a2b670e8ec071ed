package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Service answers audit-trail queries. Writing happens elsewhere; this
// module is read only.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of the audit trail, newest first. It fetches one
// extra row to decide whether a next page exists.
func (s *Service) Timeline(ctx context.Context, f Filters) (Result, error) {
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.PageSize
	entries, err := s.repo.Timeline(ctx, f, f.PageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(entries) > f.PageSize
	if hasNext {
		entries = entries[:f.PageSize]
	}
	return Result{
		Entries: entries,
		Paging:  Paging{Page: f.Page, PageSize: f.PageSize, HasNext: hasNext},
	}, nil
}

// WriteCSV streams the filtered trail as CSV, paging through the repository
// so large exports do not load everything at once.
func (s *Service) WriteCSV(ctx context.Context, w io.Writer, f Filters) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"occurred_at", "actor", "action", "entity", "entity_id"}); err != nil {
		return err
	}
	const batch = 500
	for offset := 0; ; offset += batch {
		entries, err := s.repo.Timeline(ctx, f, batch, offset)
		if err != nil {
			return err
		}
		for _, e := range entries {
			record := []string{
				e.OccurredAt.UTC().Format(time.RFC3339),
				e.Actor,
				e.Action,
				e.Entity,
				e.EntityID,
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		if len(entries) < batch {
			break
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write audit csv: %w", err)
	}
	return nil
}
