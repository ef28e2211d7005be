package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loangraph/microlend/internal/chain"
)

const heightKey = "height"

// LedgerRepository journals committed host batches. Rows and their events
// land in one database transaction, so the outbox never sees an event whose
// state change was lost.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) Persist(ctx context.Context, b chain.Batch) error {
	height, err := toInt64(b.Height)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, c := range b.Changes {
		if c.Payload == nil {
			batch.Queue(`DELETE FROM ledger_rows WHERE table_name = $1 AND row_key = $2`, c.Table, c.Key)
			continue
		}
		batch.Queue(`
INSERT INTO ledger_rows (table_name, row_key, payload, height)
VALUES ($1, $2, $3::jsonb, $4)
ON CONFLICT (table_name, row_key) DO UPDATE SET
  payload = EXCLUDED.payload,
  height = EXCLUDED.height,
  updated_at = NOW()
`, c.Table, c.Key, string(c.Payload), height)
	}
	for _, ev := range b.Events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", ev.Name, err)
		}
		batch.Queue(`
INSERT INTO ledger_events (tx_id, seq, height, event, payload, fingerprint)
VALUES ($1, $2, $3, $4, $5::jsonb, $6)
ON CONFLICT (fingerprint) DO NOTHING
`, ev.TxID, ev.Seq, height, ev.Name, string(payload), ev.Fingerprint)
	}
	queueHeight(batch, height)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("journal tx %s: %w", b.TxID, err)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *LedgerRepository) PersistHeight(ctx context.Context, height uint64) error {
	h, err := toInt64(height)
	if err != nil {
		return err
	}
	batch := &pgx.Batch{}
	queueHeight(batch, h)
	return r.pool.SendBatch(ctx, batch).Close()
}

// LoadRows returns every journaled row and the last recorded height.
func (r *LedgerRepository) LoadRows(ctx context.Context) ([]chain.Change, uint64, error) {
	rows, err := r.pool.Query(ctx, `SELECT table_name, row_key, payload::text FROM ledger_rows ORDER BY table_name, row_key`)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]chain.Change, 0)
	for rows.Next() {
		var c chain.Change
		var payload string
		if err := rows.Scan(&c.Table, &c.Key, &payload); err != nil {
			return nil, 0, err
		}
		c.Payload = []byte(payload)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var height int64
	err = r.pool.QueryRow(ctx, `SELECT value FROM ledger_meta WHERE key = $1`, heightKey).Scan(&height)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, err
	}
	if height < 0 {
		height = 0
	}
	return out, uint64(height), nil
}

func queueHeight(batch *pgx.Batch, height int64) {
	batch.Queue(`
INSERT INTO ledger_meta (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET
  value = GREATEST(ledger_meta.value, EXCLUDED.value),
  updated_at = NOW()
`, heightKey, height)
}

func toInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("height %d out of range", v)
	}
	return int64(v), nil
}

