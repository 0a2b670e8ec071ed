package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ammonsd/activitytracking/internal/auth"
	jobmetrics "github.com/ammonsd/activitytracking/internal/jobs"
)

// TaskTokenPurge removes revocation rows for tokens that have expired anyway.
const TaskTokenPurge = "auth:token_purge"

// NewTokenPurgeTask constructs the daily revoked-token purge task.
func NewTokenPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskTokenPurge, nil)
}

// TokenPurgeJob trims the revoked token table.
type TokenPurgeJob struct {
	Revocations *auth.RevocationStore
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
}

func NewTokenPurgeJob(revocations *auth.RevocationStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *TokenPurgeJob {
	return &TokenPurgeJob{Revocations: revocations, Logger: logger, Metrics: metrics}
}

// Handle executes the purge.
func (j *TokenPurgeJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Revocations == nil {
		return errors.New("token purge: handler not configured")
	}
	tracker := j.Metrics.Track(TaskTokenPurge)
	removed, err := j.Revocations.PurgeExpired(ctx)
	if err == nil {
		tracker.AddRows(int(removed))
		j.Logger.Info("revoked token purge complete", slog.Int64("removed", removed))
	}
	return tracker.End(err)
}
