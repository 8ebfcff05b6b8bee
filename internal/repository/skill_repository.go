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

const skillColumns = `id, dataset_tag, name, name_token, description, icon, levels, raw, extracted_at`

// skillRepository implements SkillRepository on Postgres.
type skillRepository struct {
	pool *pgxpool.Pool
}

// NewSkillRepository creates a new skill repository.
func NewSkillRepository(pool *pgxpool.Pool) SkillRepository {
	return &skillRepository{pool: pool}
}

func (r *skillRepository) GetByID(ctx context.Context, id int64) (domain.Skill, bool, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+skillColumns+` FROM skills WHERE id = $1`, id)

	skill, err := scanSkill(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Skill{}, false, nil
		}
		return domain.Skill{}, false, fmt.Errorf("failed to get skill %d: %w", id, err)
	}
	return skill, true, nil
}

func (r *skillRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Skill, error) {
	if len(ids) == 0 {
		return []domain.Skill{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+skillColumns+` FROM skills WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get skills by ids: %w", err)
	}
	defer rows.Close()

	return collectSkills(rows)
}

func (r *skillRepository) FindByNextID(ctx context.Context, nextID int64) ([]domain.Skill, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+skillColumns+` FROM skills
		 WHERE EXISTS (
		   SELECT 1 FROM jsonb_array_elements(levels) AS level
		   WHERE COALESCE(level->>'next_id', '0')::bigint = $1
		      OR COALESCE(level->>'next_branch_id', '0')::bigint = $1
		 )`, nextID)
	if err != nil {
		return nil, fmt.Errorf("failed to find skills by next id %d: %w", nextID, err)
	}
	defer rows.Close()

	return collectSkills(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSkill(row rowScanner) (domain.Skill, error) {
	var (
		skill           domain.Skill
		nameJSON        []byte
		descriptionJSON []byte
		levelsJSON      []byte
		rawJSON         []byte
	)
	err := row.Scan(
		&skill.ID,
		&skill.DatasetTag,
		&nameJSON,
		&skill.NameToken,
		&descriptionJSON,
		&skill.Icon,
		&levelsJSON,
		&rawJSON,
		&skill.ExtractedAt,
	)
	if err != nil {
		return domain.Skill{}, err
	}

	if err := json.Unmarshal(nameJSON, &skill.Name); err != nil {
		return domain.Skill{}, fmt.Errorf("failed to decode skill name: %w", err)
	}
	if len(descriptionJSON) > 0 {
		if err := json.Unmarshal(descriptionJSON, &skill.Description); err != nil {
			return domain.Skill{}, fmt.Errorf("failed to decode skill description: %w", err)
		}
	}
	if len(levelsJSON) > 0 {
		if err := json.Unmarshal(levelsJSON, &skill.Levels); err != nil {
			return domain.Skill{}, fmt.Errorf("failed to decode skill levels: %w", err)
		}
	}
	if len(rawJSON) > 0 {
		if err := json.Unmarshal(rawJSON, &skill.Raw); err != nil {
			return domain.Skill{}, fmt.Errorf("failed to decode skill raw payload: %w", err)
		}
	}
	return skill, nil
}

func collectSkills(rows pgx.Rows) ([]domain.Skill, error) {
	var skills []domain.Skill
	for rows.Next() {
		skill, err := scanSkill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		skills = append(skills, skill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read skills: %w", err)
	}
	return skills, nil
}
