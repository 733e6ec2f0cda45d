package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/models"
	"github.com/google/uuid"
)

// DefaultHistoryLimit bounds RecentAttempts when no limit is given.
const DefaultHistoryLimit = 50

// RecordAttempt stores one dispatch attempt.
func (d *Database) RecordAttempt(ctx context.Context, rec models.DispatchRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := d.querier(ctx).ExecContext(ctx,
		`INSERT INTO dispatch_attempts (id, camera, code, param, success, elapsed_us, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID,
		rec.Camera,
		rec.Code,
		rec.Param,
		rec.Success,
		rec.Elapsed.Microseconds(),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// RecentAttempts returns the latest attempts against camera, newest first.
func (d *Database) RecentAttempts(ctx context.Context, camera, limit int) ([]models.DispatchRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := d.querier(ctx).QueryContext(ctx, `
		SELECT id, camera, code, param, success, elapsed_us, created_at
		FROM dispatch_attempts
		WHERE camera = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, camera, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var recs []models.DispatchRecord
	for rows.Next() {
		var rec models.DispatchRecord
		var elapsedUS int64
		if err := rows.Scan(
			&rec.ID,
			&rec.Camera,
			&rec.Code,
			&rec.Param,
			&rec.Success,
			&elapsedUS,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Elapsed = time.Duration(elapsedUS) * time.Microsecond
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// PruneAttempts deletes attempts older than cutoff and reports how many went.
func (d *Database) PruneAttempts(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := d.InTx(ctx, func(ctx context.Context) error {
		res, err := d.querier(ctx).ExecContext(ctx,
			`DELETE FROM dispatch_attempts WHERE created_at < $1`, cutoff)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune attempts: %w", err)
	}
	return removed, nil
}
