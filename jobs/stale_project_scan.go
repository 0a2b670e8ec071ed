package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/ammonsd/activitytracking/internal/jobs"
	"github.com/ammonsd/activitytracking/internal/reports"
)

// StaleProjectScanJob snapshots projects with no recent activity so the
// dashboard can show trend history.
type StaleProjectScanJob struct {
	Pool    *pgxpool.Pool
	Reports *reports.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

func NewStaleProjectScanJob(pool *pgxpool.Pool, reportsSvc *reports.Service, logger *slog.Logger,
	metrics *jobmetrics.Metrics) *StaleProjectScanJob {
	return &StaleProjectScanJob{
		Pool:    pool,
		Reports: reportsSvc,
		Logger:  logger,
		Metrics: metrics,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the scan.
func (j *StaleProjectScanJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Pool == nil || j.Reports == nil {
		return errors.New("stale project scan: handler not configured")
	}
	tracker := j.Metrics.Track(TaskStaleProjectScan)
	defer func() { resultErr = tracker.End(resultErr) }()

	projects, err := j.Reports.StaleProjects(ctx)
	if err != nil {
		resultErr = err
		return resultErr
	}

	scannedAt := j.clock()
	for _, p := range projects {
		if _, err := j.Pool.Exec(ctx, `INSERT INTO stale_project_snapshots
			(client, project, last_activity, idle_days, scanned_at)
			VALUES ($1, $2, $3, $4, $5)`,
			p.Client, p.Project, p.LastActivity, p.IdleDays, scannedAt); err != nil {
			j.Logger.Error("snapshot stale project failed",
				slog.String("client", p.Client), slog.String("project", p.Project), slog.Any("error", err))
			resultErr = err
		}
	}
	tracker.AddRows(len(projects))
	j.Logger.Info("stale project scan complete", slog.Int("stale", len(projects)))
	return resultErr
}
