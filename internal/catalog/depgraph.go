package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/nevesb/romc-catalog/internal/domain"
	"github.com/nevesb/romc-catalog/internal/repository"
)

// NameResolver resolves entity ids to display names in one batched lookup
// per call. Ids with no backing record are simply absent from the result.
type NameResolver interface {
	ResolveNames(ctx context.Context, collection domain.Collection, ids []int64) (map[int64]string, error)
}

// snapshotGraph is the fully built dependency map of one snapshot.
type snapshotGraph struct {
	tag     string
	records map[string]domain.DependencyRecord
}

// GraphResolver extracts forward references from formula source, inverts
// them into a dependents index, and serves point lookups. The per-snapshot
// map is memoized: concurrent builds for the same tag converge, the first
// stored result wins and later builders discard their work.
type GraphResolver struct {
	formulas  repository.FormulaRepository
	snapshots repository.SnapshotRepository
	names     NameResolver

	mu    sync.Mutex
	cache map[string]*snapshotGraph
}

// NewGraphResolver creates a dependency graph resolver.
func NewGraphResolver(
	formulas repository.FormulaRepository,
	snapshots repository.SnapshotRepository,
	names NameResolver,
) *GraphResolver {
	return &GraphResolver{
		formulas:  formulas,
		snapshots: snapshots,
		names:     names,
		cache:     map[string]*snapshotGraph{},
	}
}

// DependenciesOf returns the formula's forward references inside the given
// snapshot, with ids resolved to display names. An empty tag resolves
// against the latest known snapshot; a formula with no dependency record
// yields empty sets, never an error.
func (r *GraphResolver) DependenciesOf(ctx context.Context, name, tag string) (domain.ResolvedDependencies, error) {
	graph, err := r.graphFor(ctx, tag)
	if err != nil {
		return domain.ResolvedDependencies{}, err
	}
	if graph == nil {
		return emptyResolved(name, tag), nil
	}

	record, ok := graph.records[name]
	if !ok {
		return emptyResolved(name, graph.tag), nil
	}
	return r.resolveRecord(ctx, record)
}

// DependentsOf returns the names of formulas whose source references the
// given formula inside the snapshot.
func (r *GraphResolver) DependentsOf(ctx context.Context, name, tag string) ([]string, error) {
	graph, err := r.graphFor(ctx, tag)
	if err != nil {
		return nil, err
	}
	if graph == nil {
		return []string{}, nil
	}
	record, ok := graph.records[name]
	if !ok {
		return []string{}, nil
	}
	return record.Dependents, nil
}

// Records returns every dependency record of the snapshot, keyed by formula
// name. Used by the report exporter.
func (r *GraphResolver) Records(ctx context.Context, tag string) (map[string]domain.DependencyRecord, string, error) {
	graph, err := r.graphFor(ctx, tag)
	if err != nil {
		return nil, "", err
	}
	if graph == nil {
		return map[string]domain.DependencyRecord{}, tag, nil
	}
	return graph.records, graph.tag, nil
}

// Invalidate drops the cached dependency map for a tag. Rebuilding is pure
// recomputation, so dropping is always safe.
func (r *GraphResolver) Invalidate(tag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, tag)
}

// graphFor returns the memoized dependency map for the tag, building it on
// first use. A nil graph (with nil error) means no snapshot exists at all.
func (r *GraphResolver) graphFor(ctx context.Context, tag string) (*snapshotGraph, error) {
	if tag == "" {
		latest, ok, err := r.snapshots.Latest(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve latest snapshot: %w", err)
		}
		if !ok {
			return nil, nil
		}
		tag = latest.Tag
	}

	r.mu.Lock()
	if graph, ok := r.cache[tag]; ok {
		r.mu.Unlock()
		return graph, nil
	}
	r.mu.Unlock()

	// Build outside the lock; derivation is pure and safe to race. The
	// first stored result wins, later builders adopt it.
	built, err := r.build(ctx, tag)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.cache[tag]; ok {
		return existing, nil
	}
	r.cache[tag] = built
	return built, nil
}

func (r *GraphResolver) build(ctx context.Context, tag string) (*snapshotGraph, error) {
	formulas, err := r.formulas.ListByTag(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to list formulas for tag %q: %w", tag, err)
	}

	records := make(map[string]domain.DependencyRecord, len(formulas))
	dependents := map[string]map[string]struct{}{}

	for _, formula := range formulas {
		deps := ExtractReferences(codeAt(formula, tag))
		deps.Formulas = withoutSelf(deps.Formulas, formula.Name)

		records[formula.Name] = domain.DependencyRecord{
			Name:         formula.Name,
			DatasetTag:   tag,
			Dependencies: deps,
		}

		for _, target := range deps.Formulas {
			if dependents[target] == nil {
				dependents[target] = map[string]struct{}{}
			}
			dependents[target][formula.Name] = struct{}{}
		}
	}

	for name, record := range records {
		record.Dependents = domain.SortedStrings(dependents[name])
		records[name] = record
	}

	return &snapshotGraph{tag: tag, records: records}, nil
}

// codeAt picks the formula revision belonging to the tag, falling back to
// the newest revision when the tag never touched this formula.
func codeAt(formula domain.FormulaDefinition, tag string) string {
	versions := formula.OrderedVersions()
	for _, version := range versions {
		if version.DatasetTag == tag {
			return version.Code
		}
	}
	return versions[0].Code
}

// withoutSelf drops a formula's mention of its own name; the definition line
// of the source always matches the call pattern.
func withoutSelf(formulas []string, name string) []string {
	out := formulas[:0]
	for _, f := range formulas {
		if f != name {
			out = append(out, f)
		}
	}
	return out
}

func (r *GraphResolver) resolveRecord(ctx context.Context, record domain.DependencyRecord) (domain.ResolvedDependencies, error) {
	resolved := domain.ResolvedDependencies{
		Name:       record.Name,
		DatasetTag: record.DatasetTag,
		Formulas:   record.Dependencies.Formulas,
		MapTypes:   record.Dependencies.MapTypes,
		ZoneTypes:  record.Dependencies.ZoneTypes,
	}

	var err error
	if resolved.Skills, err = r.resolveRefs(ctx, domain.CollectionSkills, "Skill", record.Dependencies.Skills); err != nil {
		return domain.ResolvedDependencies{}, err
	}
	if resolved.Buffs, err = r.resolveRefs(ctx, domain.CollectionBuffs, "Buff", record.Dependencies.Buffs); err != nil {
		return domain.ResolvedDependencies{}, err
	}
	if resolved.Npcs, err = r.resolveRefs(ctx, domain.CollectionMonsters, "Monster", record.Dependencies.Npcs); err != nil {
		return domain.ResolvedDependencies{}, err
	}
	if resolved.Gems, err = r.resolveRefs(ctx, domain.CollectionItems, "Gem", record.Dependencies.Gems); err != nil {
		return domain.ResolvedDependencies{}, err
	}
	if resolved.Cards, err = r.resolveRefs(ctx, domain.CollectionItems, "Card", record.Dependencies.Cards); err != nil {
		return domain.ResolvedDependencies{}, err
	}

	// Skill flags have no backing collection; they always keep synthetic labels.
	resolved.SkillFlags = placeholderRefs("Skill Flag", record.Dependencies.SkillFlags)

	return resolved, nil
}

// resolveRefs turns ids into display refs with one batched lookup. Ids that
// resolve to nothing degrade to a "<Kind> <id>" placeholder instead of
// failing the request.
func (r *GraphResolver) resolveRefs(ctx context.Context, collection domain.Collection, kind string, ids []int64) ([]domain.EntityRef, error) {
	if len(ids) == 0 {
		return []domain.EntityRef{}, nil
	}

	names, err := r.names.ResolveNames(ctx, collection, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s names: %w", collection, err)
	}

	refs := make([]domain.EntityRef, 0, len(ids))
	for _, id := range ids {
		name, ok := names[id]
		if !ok || name == "" {
			name = fmt.Sprintf("%s %d", kind, id)
		}
		refs = append(refs, domain.EntityRef{ID: id, Name: name})
	}
	return refs, nil
}

func placeholderRefs(kind string, ids []int64) []domain.EntityRef {
	refs := make([]domain.EntityRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, domain.EntityRef{ID: id, Name: fmt.Sprintf("%s %d", kind, id)})
	}
	return refs
}

func emptyResolved(name, tag string) domain.ResolvedDependencies {
	return domain.ResolvedDependencies{
		Name:       name,
		DatasetTag: tag,
		Formulas:   []string{},
		Skills:     []domain.EntityRef{},
		Buffs:      []domain.EntityRef{},
		Npcs:       []domain.EntityRef{},
		Gems:       []domain.EntityRef{},
		Cards:      []domain.EntityRef{},
		SkillFlags: []domain.EntityRef{},
		MapTypes:   []int{},
		ZoneTypes:  []int{},
	}
}
