package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/ammonsd/activitytracking/internal/jobs"
	"github.com/ammonsd/activitytracking/internal/reports"
)

type failingReportRepo struct{ err error }

func (r failingReportRepo) UserSummaries(ctx context.Context, w reports.Window) ([]reports.UserSummary, error) {
	return nil, r.err
}

func (r failingReportRepo) ClientBillability(ctx context.Context, w reports.Window) ([]reports.ClientBillability, error) {
	return nil, r.err
}

func (r failingReportRepo) ClientHours(ctx context.Context, w reports.Window) (map[string]decimal.Decimal, error) {
	return nil, r.err
}

func (r failingReportRepo) StaleProjects(ctx context.Context, idleAfter time.Duration, asOf time.Time) ([]reports.StaleProject, error) {
	return nil, r.err
}

func (r failingReportRepo) HoursByWeekday(ctx context.Context, w reports.Window) ([]reports.DayOfWeekHours, error) {
	return nil, r.err
}

func (r failingReportRepo) RepetitionRates(ctx context.Context, w reports.Window) ([]reports.RepetitionRate, error) {
	return nil, r.err
}

func (r failingReportRepo) ExpenseTotalsByClient(ctx context.Context, w reports.Window) ([]reports.ExpenseClientTotal, error) {
	return nil, r.err
}

func counterValue(t *testing.T, families []*dto.MetricFamily, name, job string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "job" && label.GetValue() == job {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestStaleProjectScanCountsFailedRun(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	boom := errors.New("aggregation query failed")
	svc := reports.NewService(failingReportRepo{err: boom}, nil, logger, 30)

	job := NewStaleProjectScanJob(new(pgxpool.Pool), svc, logger, metrics)
	err := job.Handle(context.Background(), NewStaleProjectScanTask())
	require.ErrorIs(t, err, boom)

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Equal(t, 1.0, counterValue(t, families, "activitytracking_job_failures_total", TaskStaleProjectScan))
	require.Equal(t, 1.0, counterValue(t, families, "activitytracking_job_runs_total", TaskStaleProjectScan))
}
