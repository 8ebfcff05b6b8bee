package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nevesb/romc-catalog/internal/domain"
)

// entityRepository implements EntityRepository on Postgres. All entity
// collections share one table keyed by (collection, id).
type entityRepository struct {
	pool *pgxpool.Pool
}

// NewEntityRepository creates a new entity repository.
func NewEntityRepository(pool *pgxpool.Pool) EntityRepository {
	return &entityRepository{pool: pool}
}

func (r *entityRepository) GetByIDs(ctx context.Context, collection domain.Collection, ids []int64) ([]domain.EntityRecord, error) {
	if len(ids) == 0 {
		return []domain.EntityRecord{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, dataset_tag, name, description, raw, extracted_at
		 FROM entities
		 WHERE collection = $1 AND id = ANY($2)`,
		string(collection), ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s by ids: %w", collection, err)
	}
	defer rows.Close()

	return collectEntities(rows, collection)
}

func (r *entityRepository) FindByFilter(ctx context.Context, collection domain.Collection, filter domain.RecordFilter) ([]domain.EntityRecord, error) {
	query := `SELECT id, dataset_tag, name, description, raw, extracted_at
	          FROM entities WHERE collection = $1`
	args := []any{string(collection)}

	if filter.ID != nil {
		args = append(args, *filter.ID)
		query += ` AND id = $` + strconv.Itoa(len(args))
	}
	if filter.DatasetTag != "" {
		args = append(args, filter.DatasetTag)
		query += ` AND dataset_tag = $` + strconv.Itoa(len(args))
	}
	if filter.TextContains != "" {
		args = append(args, "%"+filter.TextContains+"%")
		query += ` AND EXISTS (
		  SELECT 1 FROM jsonb_each_text(name) AS localized
		  WHERE localized.value ILIKE $` + strconv.Itoa(len(args)) + `)`
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to filter %s: %w", collection, err)
	}
	defer rows.Close()

	return collectEntities(rows, collection)
}

func collectEntities(rows pgx.Rows, collection domain.Collection) ([]domain.EntityRecord, error) {
	var records []domain.EntityRecord
	for rows.Next() {
		var (
			record          domain.EntityRecord
			nameJSON        []byte
			descriptionJSON []byte
			rawJSON         []byte
		)
		err := rows.Scan(
			&record.ID,
			&record.DatasetTag,
			&nameJSON,
			&descriptionJSON,
			&rawJSON,
			&record.ExtractedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s record: %w", collection, err)
		}
		if err := json.Unmarshal(nameJSON, &record.Name); err != nil {
			return nil, fmt.Errorf("failed to decode %s name: %w", collection, err)
		}
		if len(descriptionJSON) > 0 {
			if err := json.Unmarshal(descriptionJSON, &record.Description); err != nil {
				return nil, fmt.Errorf("failed to decode %s description: %w", collection, err)
			}
		}
		if len(rawJSON) > 0 {
			if err := json.Unmarshal(rawJSON, &record.Raw); err != nil {
				return nil, fmt.Errorf("failed to decode %s raw payload: %w", collection, err)
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s records: %w", collection, err)
	}
	return records, nil
}
