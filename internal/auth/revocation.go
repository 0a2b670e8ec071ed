package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "activitytracking:revoked:"

// RevocationStore tracks revoked token IDs. Postgres is the durable record;
// Redis fronts it so the auth middleware avoids a database round trip on
// every request.
type RevocationStore struct {
	pool   *pgxpool.Pool
	cache  *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewRevocationStore constructs a RevocationStore.
func NewRevocationStore(pool *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) *RevocationStore {
	return &RevocationStore{pool: pool, cache: cache, logger: logger, now: time.Now}
}

// Revoke records the token ID until the token would have expired anyway.
func (s *RevocationStore) Revoke(ctx context.Context, jti, username string, expiresAt time.Time) error {
	if s == nil {
		return errors.New("revocation store not initialised")
	}
	if jti == "" {
		return errors.New("token id required")
	}
	if s.pool != nil {
		_, err := s.pool.Exec(ctx, `INSERT INTO revoked_tokens (jti, username, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (jti) DO NOTHING`, jti, username, expiresAt.UTC())
		if err != nil {
			return err
		}
	}
	if s.cache != nil {
		ttl := time.Until(expiresAt)
		if ttl > 0 {
			if err := s.cache.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err(); err != nil {
				s.logger.Warn("cache revoked token", slog.Any("error", err))
			}
		}
	}
	return nil
}

// IsRevoked reports whether the token ID has been revoked.
func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if s == nil || jti == "" {
		return false, nil
	}
	if s.cache != nil {
		n, err := s.cache.Exists(ctx, revokedKeyPrefix+jti).Result()
		if err == nil && n > 0 {
			return true, nil
		}
		if err != nil {
			s.logger.Warn("revocation cache lookup", slog.Any("error", err))
		}
	}
	if s.pool == nil {
		return false, nil
	}
	var found bool
	err := s.pool.QueryRow(ctx, `SELECT true FROM revoked_tokens WHERE jti=$1 AND expires_at > NOW()`, jti).Scan(&found)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return found, nil
}

// PurgeExpired removes revocation records whose tokens have expired.
func (s *RevocationStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
