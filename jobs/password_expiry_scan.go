package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/ammonsd/activitytracking/internal/jobs"
)

// PasswordExpiryScanJob finds accounts whose passwords expire within the
// warning window and queues a reminder email for each.
type PasswordExpiryScanJob struct {
	Pool     *pgxpool.Pool
	Client   *Client
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	WarnDays int
	clock    func() time.Time
}

func NewPasswordExpiryScanJob(pool *pgxpool.Pool, client *Client, logger *slog.Logger,
	metrics *jobmetrics.Metrics, warnDays int) *PasswordExpiryScanJob {
	return &PasswordExpiryScanJob{
		Pool:     pool,
		Client:   client,
		Logger:   logger,
		Metrics:  metrics,
		WarnDays: warnDays,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the scan.
func (j *PasswordExpiryScanJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Pool == nil {
		return errors.New("password expiry scan: handler not configured")
	}
	tracker := j.Metrics.Track(TaskPasswordExpiryScan)
	defer func() { resultErr = tracker.End(resultErr) }()

	now := j.clock()
	horizon := now.AddDate(0, 0, j.WarnDays)

	rows, err := j.Pool.Query(ctx, `SELECT username, display_name, email, password_expires_at
		FROM users
		WHERE is_enabled AND email <> ''
		  AND password_expires_at IS NOT NULL
		  AND password_expires_at BETWEEN $1 AND $2
		ORDER BY password_expires_at`, now, horizon)
	if err != nil {
		resultErr = fmt.Errorf("query expiring passwords: %w", err)
		return resultErr
	}
	defer rows.Close()

	type expiring struct {
		username, displayName, email string
		expiresAt                    time.Time
	}
	var pending []expiring
	for rows.Next() {
		var e expiring
		if err := rows.Scan(&e.username, &e.displayName, &e.email, &e.expiresAt); err != nil {
			resultErr = fmt.Errorf("scan expiring password row: %w", err)
			return resultErr
		}
		pending = append(pending, e)
	}
	if err := rows.Err(); err != nil {
		resultErr = err
		return resultErr
	}

	queued := 0
	for _, e := range pending {
		days := int(e.expiresAt.Sub(now).Hours() / 24)
		_, err := j.Client.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      e.email,
			Subject: "Your password expires soon",
			Body: fmt.Sprintf("Hi %s,\n\nYour password expires in %d day(s), on %s. "+
				"Please change it before then to avoid being locked out.\n",
				e.displayName, days, e.expiresAt.Format("2006-01-02")),
		})
		if err != nil {
			j.Logger.Error("queue expiry reminder failed",
				slog.String("username", e.username), slog.Any("error", err))
			continue
		}
		queued++
	}
	tracker.AddRows(queued)
	j.Logger.Info("password expiry scan complete",
		slog.Int("expiring", len(pending)), slog.Int("queued", queued))
	return resultErr
}
