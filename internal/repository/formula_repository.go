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

// formulaRepository implements FormulaRepository on Postgres. One row per
// formula name: the current revision plus the embedded version history.
type formulaRepository struct {
	pool *pgxpool.Pool
}

// NewFormulaRepository creates a new formula repository.
func NewFormulaRepository(pool *pgxpool.Pool) FormulaRepository {
	return &formulaRepository{pool: pool}
}

func (r *formulaRepository) GetByName(ctx context.Context, name string) (domain.FormulaDefinition, bool, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT name, dataset_tag, extracted_at, code, versions
		 FROM formula_definitions WHERE name = $1`, name)

	formula, err := scanFormula(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.FormulaDefinition{}, false, nil
		}
		return domain.FormulaDefinition{}, false, fmt.Errorf("failed to get formula %q: %w", name, err)
	}
	return formula, true, nil
}

func (r *formulaRepository) ListByTag(ctx context.Context, tag string) ([]domain.FormulaDefinition, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT name, dataset_tag, extracted_at, code, versions
		 FROM formula_definitions
		 WHERE dataset_tag = $1
		    OR EXISTS (
		      SELECT 1 FROM jsonb_array_elements(versions) AS version
		      WHERE version->>'dataset_tag' = $1
		    )
		 ORDER BY name`, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to list formulas for tag %q: %w", tag, err)
	}
	defer rows.Close()

	var formulas []domain.FormulaDefinition
	for rows.Next() {
		formula, err := scanFormula(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan formula: %w", err)
		}
		formulas = append(formulas, formula)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read formulas: %w", err)
	}
	return formulas, nil
}

func scanFormula(row rowScanner) (domain.FormulaDefinition, error) {
	var (
		formula      domain.FormulaDefinition
		versionsJSON []byte
	)
	err := row.Scan(
		&formula.Name,
		&formula.DatasetTag,
		&formula.ExtractedAt,
		&formula.Code,
		&versionsJSON,
	)
	if err != nil {
		return domain.FormulaDefinition{}, err
	}
	if len(versionsJSON) > 0 {
		if err := json.Unmarshal(versionsJSON, &formula.Versions); err != nil {
			return domain.FormulaDefinition{}, fmt.Errorf("failed to decode formula versions: %w", err)
		}
	}
	return formula, nil
}
