package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nevesb/romc-catalog/internal/domain"
)

// snapshotRepository implements SnapshotRepository on Postgres.
type snapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new snapshot repository.
func NewSnapshotRepository(pool *pgxpool.Pool) SnapshotRepository {
	return &snapshotRepository{pool: pool}
}

func (r *snapshotRepository) Latest(ctx context.Context) (domain.Snapshot, bool, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT dataset_tag, extracted_at
		 FROM snapshots
		 ORDER BY extracted_at DESC, dataset_tag DESC
		 LIMIT 1`)

	var snapshot domain.Snapshot
	if err := row.Scan(&snapshot.Tag, &snapshot.ExtractedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Snapshot{}, false, nil
		}
		return domain.Snapshot{}, false, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return snapshot, true, nil
}

func (r *snapshotRepository) ListOrderedByTime(ctx context.Context) ([]domain.Snapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT dataset_tag, extracted_at
		 FROM snapshots
		 ORDER BY extracted_at DESC, dataset_tag DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []domain.Snapshot
	for rows.Next() {
		var snapshot domain.Snapshot
		if err := rows.Scan(&snapshot.Tag, &snapshot.ExtractedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshots: %w", err)
	}
	return snapshots, nil
}
