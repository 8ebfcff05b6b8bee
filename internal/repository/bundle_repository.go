package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nevesb/romc-catalog/internal/domain"
)

// bundleRepository implements BundleRepository on Postgres. One row per
// (dataset_tag, path) pair.
type bundleRepository struct {
	pool *pgxpool.Pool
}

// NewBundleRepository creates a new bundle repository.
func NewBundleRepository(pool *pgxpool.Pool) BundleRepository {
	return &bundleRepository{pool: pool}
}

func (r *bundleRepository) GetManifest(ctx context.Context, path, tag string) (domain.BundleManifest, bool, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT dataset_tag, path, checksum, assets, extracted_at
		 FROM bundle_assets WHERE path = $1 AND dataset_tag = $2`, path, tag)

	manifest, err := scanManifest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.BundleManifest{}, false, nil
		}
		return domain.BundleManifest{}, false, fmt.Errorf("failed to get manifest %q@%q: %w", path, tag, err)
	}
	return manifest, true, nil
}

func (r *bundleRepository) ListManifests(ctx context.Context, tag string) ([]domain.BundleManifest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT dataset_tag, path, checksum, assets, extracted_at
		 FROM bundle_assets WHERE dataset_tag = $1
		 ORDER BY path`, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to list manifests for tag %q: %w", tag, err)
	}
	defer rows.Close()

	var manifests []domain.BundleManifest
	for rows.Next() {
		manifest, err := scanManifest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan manifest: %w", err)
		}
		manifests = append(manifests, manifest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifests: %w", err)
	}
	return manifests, nil
}

func scanManifest(row rowScanner) (domain.BundleManifest, error) {
	var (
		manifest   domain.BundleManifest
		assetsJSON []byte
	)
	err := row.Scan(
		&manifest.DatasetTag,
		&manifest.Path,
		&manifest.Checksum,
		&assetsJSON,
		&manifest.ExtractedAt,
	)
	if err != nil {
		return domain.BundleManifest{}, err
	}
	if len(assetsJSON) > 0 {
		if err := json.Unmarshal(assetsJSON, &manifest.Assets); err != nil {
			return domain.BundleManifest{}, fmt.Errorf("failed to decode manifest assets: %w", err)
		}
	}
	return manifest, nil
}
