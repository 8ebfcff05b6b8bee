package repository

import (
	"context"

	"github.com/nevesb/romc-catalog/internal/domain"
)

// SnapshotRepository answers questions about the known dataset snapshots.
// Absence of a snapshot is reported through the boolean, never as an error.
type SnapshotRepository interface {
	// Latest returns the most recent snapshot by extraction time.
	Latest(ctx context.Context) (domain.Snapshot, bool, error)
	// ListOrderedByTime returns every known snapshot ordered newest first.
	ListOrderedByTime(ctx context.Context) ([]domain.Snapshot, error)
}

// SkillRepository reads skill records.
type SkillRepository interface {
	GetByID(ctx context.Context, id int64) (domain.Skill, bool, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Skill, error)
	// FindByNextID returns skills holding a level whose forward link points
	// at the given skill id. Used for chain head discovery.
	FindByNextID(ctx context.Context, nextID int64) ([]domain.Skill, error)
}

// EntityRepository reads plain entity records (items, monsters, buffs).
type EntityRepository interface {
	// GetByIDs performs one batched lookup across a collection.
	GetByIDs(ctx context.Context, collection domain.Collection, ids []int64) ([]domain.EntityRecord, error)
	// FindByFilter applies the store's equality/contains filters.
	FindByFilter(ctx context.Context, collection domain.Collection, filter domain.RecordFilter) ([]domain.EntityRecord, error)
}

// FormulaRepository reads formula definitions and their embedded histories.
type FormulaRepository interface {
	GetByName(ctx context.Context, name string) (domain.FormulaDefinition, bool, error)
	// ListByTag returns every formula whose current or historical revision
	// belongs to the given snapshot tag.
	ListByTag(ctx context.Context, tag string) ([]domain.FormulaDefinition, error)
}

// BundleRepository reads per-snapshot bundle manifests.
type BundleRepository interface {
	GetManifest(ctx context.Context, path, tag string) (domain.BundleManifest, bool, error)
	ListManifests(ctx context.Context, tag string) ([]domain.BundleManifest, error)
}
