package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/linkpulse/linkpulse/internal/domain/outage"
)

var _ outage.Repo = (*OutageRepoImpl)(nil)

type OutageRepoImpl struct{ db *DB }

func NewOutageRepo(db *DB) *OutageRepoImpl { return &OutageRepoImpl{db: db} }

const (
	qOutageOpen = `
INSERT INTO outages (started_at, ended_at)
VALUES ($1, NULL)
RETURNING id;
`
	qOutageClose = `
UPDATE outages
SET ended_at = $2
WHERE id = $1 AND ended_at IS NULL;
`
	qOutageCurrent = `
SELECT id, started_at, ended_at
FROM outages
WHERE ended_at IS NULL
ORDER BY started_at DESC
LIMIT 1;
`
	qOutagesRange = `
SELECT id, started_at, ended_at
FROM outages
WHERE started_at < $2
  AND (ended_at IS NULL OR ended_at > $1)
ORDER BY started_at ASC;
`
)

func (r *OutageRepoImpl) Open(ctx context.Context, i *outage.Interval) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return r.db.Pool.QueryRow(ctx, qOutageOpen, i.StartedAt).Scan(&i.ID)
}

func (r *OutageRepoImpl) Close(ctx context.Context, id int64, endedAt time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qOutageClose, id, endedAt)
	if err != nil {
		return fmt.Errorf("close outage: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *OutageRepoImpl) Current(ctx context.Context) (*outage.Interval, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var i outage.Interval
	err := r.db.Pool.QueryRow(ctx, qOutageCurrent).Scan(&i.ID, &i.StartedAt, &i.EndedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan outage: %w", err)
	}
	return &i, nil
}

func (r *OutageRepoImpl) ListRange(ctx context.Context, from, to time.Time) ([]outage.Interval, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qOutagesRange, from, to)
	if err != nil {
		return nil, fmt.Errorf("query outages: %w", err)
	}
	defer rows.Close()

	var out []outage.Interval
	for rows.Next() {
		var i outage.Interval
		if err := rows.Scan(&i.ID, &i.StartedAt, &i.EndedAt); err != nil {
			return nil, fmt.Errorf("scan outage: %w", err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
