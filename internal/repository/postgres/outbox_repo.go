package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loangraph/microlend/internal/jobs"
)

// OutboxRepository serves ledger_events to the relay worker.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// ClaimPending moves up to limit due events to processing and returns them.
// Concurrent workers skip rows another worker already holds.
func (r *OutboxRepository) ClaimPending(ctx context.Context, limit int32) ([]jobs.OutboxJob, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `
WITH due AS (
  SELECT id FROM ledger_events
  WHERE status IN ('pending', 'retry') AND available_at <= NOW()
  ORDER BY id
  LIMIT $1
  FOR UPDATE SKIP LOCKED
)
UPDATE ledger_events e
SET status = 'processing', attempts = e.attempts + 1, updated_at = NOW()
FROM due
WHERE e.id = due.id
RETURNING e.id, e.event, e.payload::text, e.status, e.attempts, e.last_error, e.available_at
`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]jobs.OutboxJob, 0)
	for rows.Next() {
		var job jobs.OutboxJob
		var payload string
		if err := rows.Scan(&job.ID, &job.Topic, &payload, &job.Status, &job.Attempts, &job.LastError, &job.AvailableAt); err != nil {
			return nil, err
		}
		job.Payload = []byte(payload)
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OutboxRepository) MarkDone(ctx context.Context, jobID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE ledger_events SET status = 'done', last_error = '', updated_at = NOW() WHERE id = $1`, jobID)
	return err
}

func (r *OutboxRepository) MarkRetry(ctx context.Context, jobID int64, nextAvailableAt time.Time, lastError string) error {
	_, err := r.pool.Exec(ctx, `UPDATE ledger_events SET status = 'retry', available_at = $2, last_error = $3, updated_at = NOW() WHERE id = $1`, jobID, nextAvailableAt, lastError)
	return err
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, jobID int64, lastError string) error {
	_, err := r.pool.Exec(ctx, `UPDATE ledger_events SET status = 'failed', last_error = $2, updated_at = NOW() WHERE id = $1`, jobID, lastError)
	return err
}

// Requeue returns stuck processing rows to the queue, e.g. after a worker
// crashed mid-batch.
func (r *OutboxRepository) Requeue(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE ledger_events SET status = 'retry', updated_at = NOW()
WHERE status = 'processing' AND updated_at < NOW() - make_interval(secs => $1)
`, olderThan.Seconds())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
