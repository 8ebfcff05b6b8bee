package catalog

import (
	"context"
	"fmt"

	"github.com/nevesb/romc-catalog/internal/domain"
	"github.com/nevesb/romc-catalog/internal/luacheck"
	"github.com/nevesb/romc-catalog/internal/repository"
)

// Engine bundles the derivation components behind the read operations the
// presentation layer consumes. Every operation is side-effect-free and
// idempotent; the only state is the graph resolver's per-tag cache.
type Engine struct {
	snapshots repository.SnapshotRepository
	formulas  repository.FormulaRepository
	entities  repository.EntityRepository

	chains  *ChainResolver
	differ  *VersionDiffer
	bundles *BundleDiffer
	graph   *GraphResolver
}

// NewEngine wires the derivation components over the record repositories.
func NewEngine(
	snapshots repository.SnapshotRepository,
	skills repository.SkillRepository,
	entities repository.EntityRepository,
	formulas repository.FormulaRepository,
	bundles repository.BundleRepository,
	names NameResolver,
) *Engine {
	return &Engine{
		snapshots: snapshots,
		formulas:  formulas,
		entities:  entities,
		chains:    NewChainResolver(skills),
		differ:    NewVersionDiffer(formulas),
		bundles:   NewBundleDiffer(bundles, snapshots),
		graph:     NewGraphResolver(formulas, snapshots, names),
	}
}

// ResolveSkillChain returns the canonical leveled view of the upgrade chain
// containing skillID.
func (e *Engine) ResolveSkillChain(ctx context.Context, skillID int64) (domain.SkillChain, error) {
	return e.chains.Resolve(ctx, skillID)
}

// DiffFormulaVersions returns the meaningful diff for a formula anchored at
// anchorTag (or its newest version). A nil result means there is nothing to
// diff against.
func (e *Engine) DiffFormulaVersions(ctx context.Context, name, anchorTag string) (*domain.FormulaVersionDiff, error) {
	return e.differ.Diff(ctx, name, anchorTag)
}

// DiffBundleManifests diffs one bundle path between two snapshots; an empty
// previousTag resolves to the snapshot immediately before currentTag.
func (e *Engine) DiffBundleManifests(ctx context.Context, path, currentTag, previousTag string) (domain.BundleDiff, bool, error) {
	return e.bundles.DiffBundle(ctx, path, currentTag, previousTag)
}

// DiffSnapshotBundles aggregates the whole manifest set of a snapshot
// against its predecessor.
func (e *Engine) DiffSnapshotBundles(ctx context.Context, currentTag, previousTag string) (domain.ManifestSetDiff, error) {
	return e.bundles.DiffSnapshot(ctx, currentTag, previousTag)
}

// DependenciesOf returns the resolved forward references of a formula.
func (e *Engine) DependenciesOf(ctx context.Context, name, tag string) (domain.ResolvedDependencies, error) {
	return e.graph.DependenciesOf(ctx, name, tag)
}

// DependentsOf returns the formulas referencing the given one.
func (e *Engine) DependentsOf(ctx context.Context, name, tag string) ([]string, error) {
	return e.graph.DependentsOf(ctx, name, tag)
}

// DependencyRecords exposes the full dependency map of a snapshot for
// report export.
func (e *Engine) DependencyRecords(ctx context.Context, tag string) (map[string]domain.DependencyRecord, string, error) {
	return e.graph.Records(ctx, tag)
}

// InvalidateDependencyCache drops the memoized dependency map for a tag.
func (e *Engine) InvalidateDependencyCache(tag string) {
	e.graph.Invalidate(tag)
}

// FindEntities applies the store's filters to one entity collection.
func (e *Engine) FindEntities(ctx context.Context, collection domain.Collection, filter domain.RecordFilter) ([]domain.EntityRecord, error) {
	return e.entities.FindByFilter(ctx, collection, filter)
}

// Snapshots returns the known snapshots ordered newest first.
func (e *Engine) Snapshots(ctx context.Context) ([]domain.Snapshot, error) {
	return e.snapshots.ListOrderedByTime(ctx)
}

// PreviousSnapshot answers "the snapshot immediately before tag", or the
// second-most-recent snapshot when tag is empty.
func (e *Engine) PreviousSnapshot(ctx context.Context, tag string) (domain.Snapshot, bool, error) {
	index, err := LoadSnapshotIndex(ctx, e.snapshots)
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	previous, ok := index.PreviousOf(tag)
	return previous, ok, nil
}

// LintFormula parse-checks the formula revision belonging to tag (or the
// newest revision when tag is empty or unknown) as a Lua chunk.
func (e *Engine) LintFormula(ctx context.Context, name, tag string) (luacheck.Result, error) {
	formula, ok, err := e.formulas.GetByName(ctx, name)
	if err != nil {
		return luacheck.Result{}, fmt.Errorf("failed to load formula %q: %w", name, err)
	}
	if !ok {
		return luacheck.Result{Name: name, Valid: false, Error: "formula not found"}, nil
	}

	code := formula.Code
	revisionTag := formula.DatasetTag
	if tag != "" {
		for _, version := range formula.OrderedVersions() {
			if version.DatasetTag == tag {
				code = version.Code
				revisionTag = version.DatasetTag
				break
			}
		}
	}

	result := luacheck.Result{Name: name, DatasetTag: revisionTag, Valid: true}
	if err := luacheck.Check(name, code); err != nil {
		result.Valid = false
		result.Error = err.Error()
	}
	return result, nil
}
