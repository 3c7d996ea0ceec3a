package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"expense-reports-service/internal/apperr"
	"expense-reports-service/internal/database"
)

// IdempotencyRepository is the durable (route, key) → response cache backing
// mutation replay. Records older than the retention window are treated as
// absent and purged periodically.
type IdempotencyRepository struct {
	db        *database.DB
	retention time.Duration
}

// NewIdempotencyRepository creates a repository with the given retention
// window.
func NewIdempotencyRepository(db *database.DB, retention time.Duration) *IdempotencyRepository {
	return &IdempotencyRepository{db: db, retention: retention}
}

// Get returns the recorded response for (route, key) within the retention
// window. found is false when no live record exists.
func (r *IdempotencyRepository) Get(ctx context.Context, route, key string) (status int, body []byte, found bool, err error) {
	query := `
		SELECT response_status, response_body
		FROM idempotency_keys
		WHERE route = $1
		  AND key = $2
		  AND created_at > NOW() - $3::interval`

	err = r.db.QueryRow(ctx, query, route, key, r.retention).Scan(&status, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, apperr.Wrap(err, apperr.CodeDBError, "failed to read idempotency record")
	}
	return status, body, true, nil
}

// Save records the response produced for (route, key). The first writer wins;
// replays of an in-flight duplicate keep the original record.
func (r *IdempotencyRepository) Save(ctx context.Context, route, key string, status int, body []byte) error {
	query := `
		INSERT INTO idempotency_keys (route, key, response_status, response_body)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (route, key) DO NOTHING`

	_, err := r.db.Exec(ctx, query, route, key, status, body)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeDBError, "failed to save idempotency record")
	}
	return nil
}

// PurgeExpired deletes records past the retention window, returning the
// number removed.
func (r *IdempotencyRepository) PurgeExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM idempotency_keys WHERE created_at <= NOW() - $1::interval`

	tag, err := r.db.Exec(ctx, query, r.retention)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.CodeDBError, "failed to purge idempotency records")
	}
	return tag.RowsAffected(), nil
}
