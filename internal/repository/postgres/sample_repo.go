package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/linkpulse/linkpulse/internal/domain/sample"
)

var _ sample.Repo = (*SampleRepoImpl)(nil)

type SampleRepoImpl struct{ db *DB }

func NewSampleRepo(db *DB) *SampleRepoImpl { return &SampleRepoImpl{db: db} }

const (
	qSampleInsert = `
INSERT INTO ping_samples (ts, is_up, latency_ms, error)
VALUES ($1, $2, $3, $4);
`
	qSampleLatest = `
SELECT id, ts, is_up, latency_ms, error
FROM ping_samples
ORDER BY ts DESC
LIMIT 1;
`
	qSamplesRange = `
SELECT id, ts, is_up, latency_ms, error
FROM ping_samples
WHERE ts >= $1 AND ts <= $2
ORDER BY ts ASC;
`
)

// AppendBatch writes all samples inside one transaction so a flush is never
// half-applied.
func (r *SampleRepoImpl) AppendBatch(ctx context.Context, batch []sample.Sample) error {
	if len(batch) == 0 {
		return nil
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b := &pgx.Batch{}
	for _, s := range batch {
		b.Queue(qSampleInsert, s.Timestamp, s.Up, s.LatencyMS, nullStr(s.Error))
	}
	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *SampleRepoImpl) Latest(ctx context.Context) (*sample.Sample, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var s sample.Sample
	var errStr sql.NullString
	err := r.db.Pool.QueryRow(ctx, qSampleLatest).
		Scan(&s.ID, &s.Timestamp, &s.Up, &s.LatencyMS, &errStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan sample: %w", err)
	}
	s.Error = errStr.String
	return &s, nil
}

func (r *SampleRepoImpl) ListRange(ctx context.Context, from, to time.Time) ([]sample.Sample, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qSamplesRange, from, to)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []sample.Sample
	for rows.Next() {
		var s sample.Sample
		var errStr sql.NullString
		if err := rows.Scan(&s.ID, &s.Timestamp, &s.Up, &s.LatencyMS, &errStr); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		s.Error = errStr.String
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
