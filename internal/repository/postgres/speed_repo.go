package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/linkpulse/linkpulse/internal/domain/speed"
)

var _ speed.Repo = (*SpeedRepoImpl)(nil)

type SpeedRepoImpl struct{ db *DB }

func NewSpeedRepo(db *DB) *SpeedRepoImpl { return &SpeedRepoImpl{db: db} }

const (
	qSpeedInsert = `
INSERT INTO speed_tests (
  started_at, mode, duration_seconds, bytes_downloaded, download_mbps,
  upload_mbps, ping_ms, server_name, server_country, error
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id;
`
	qSpeedSelect = `
SELECT id, started_at, mode, duration_seconds, bytes_downloaded, download_mbps,
       upload_mbps, ping_ms, server_name, server_country, error
FROM speed_tests
`
	qSpeedLast           = qSpeedSelect + `ORDER BY started_at DESC LIMIT 1;`
	qSpeedLastSuccessful = qSpeedSelect + `WHERE error IS NULL ORDER BY started_at DESC LIMIT 1;`
	qSpeedRange          = qSpeedSelect + `WHERE started_at >= $1 AND started_at <= $2 ORDER BY started_at ASC;`
)

func (r *SpeedRepoImpl) Insert(ctx context.Context, res *speed.Result) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return r.db.Pool.QueryRow(ctx, qSpeedInsert,
		res.StartedAt,
		string(res.Mode),
		res.Duration.Seconds(),
		res.BytesDownloaded,
		res.DownloadMbps,
		res.UploadMbps,
		res.PingMS,
		nullStr(res.ServerName),
		nullStr(res.ServerCountry),
		nullStr(res.Error),
	).Scan(&res.ID)
}

func scanSpeed(row pgx.Row, res *speed.Result) error {
	var (
		mode            string
		durationSeconds float64
		serverName      sql.NullString
		serverCountry   sql.NullString
		errStr          sql.NullString
	)
	if err := row.Scan(
		&res.ID,
		&res.StartedAt,
		&mode,
		&durationSeconds,
		&res.BytesDownloaded,
		&res.DownloadMbps,
		&res.UploadMbps,
		&res.PingMS,
		&serverName,
		&serverCountry,
		&errStr,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan speed test: %w", err)
	}
	res.Mode = speed.Mode(mode)
	res.Duration = time.Duration(durationSeconds * float64(time.Second))
	res.ServerName = serverName.String
	res.ServerCountry = serverCountry.String
	res.Error = errStr.String
	return nil
}

func (r *SpeedRepoImpl) Last(ctx context.Context) (*speed.Result, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var res speed.Result
	if err := scanSpeed(r.db.Pool.QueryRow(ctx, qSpeedLast), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *SpeedRepoImpl) LastSuccessful(ctx context.Context) (*speed.Result, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var res speed.Result
	if err := scanSpeed(r.db.Pool.QueryRow(ctx, qSpeedLastSuccessful), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *SpeedRepoImpl) ListRange(ctx context.Context, from, to time.Time) ([]speed.Result, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qSpeedRange, from, to)
	if err != nil {
		return nil, fmt.Errorf("query speed tests: %w", err)
	}
	defer rows.Close()

	var out []speed.Result
	for rows.Next() {
		var res speed.Result
		if err := scanSpeed(rows, &res); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
