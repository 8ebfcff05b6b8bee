package catalog

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nevesb/romc-catalog/internal/domain"
)

func graphFixture() (*stubFormulaRepo, *stubSnapshotRepo, *stubNameResolver) {
	formulas := &stubFormulaRepo{formulas: map[string]domain.FormulaDefinition{
		"CommonFun.calcDamage": taggedFormula("CommonFun.calcDamage", "2024-05-10", `
local base = CommonFun.calcAttack(srcUser)
local lv = srcUser:GetLernedSkillLevel(2310)
if targetUser:HasBuffID(5011) then base = base * 1.1 end
return base + CommonFun.calcDamage(srcUser, targetUser, 0)
`),
		"CommonFun.calcAttack": taggedFormula("CommonFun.calcAttack", "2024-05-10", `
return srcUser:GetGemValue(61001) + 100
`),
		"CommonFun.calcHeal": taggedFormula("CommonFun.calcHeal", "2024-05-10", `
return CommonFun.calcAttack(srcUser) * 0.5
`),
	}}
	snapshots := &stubSnapshotRepo{snapshots: []domain.Snapshot{
		snapshotAt("2024-05-10", 10),
		snapshotAt("2024-05-05", 5),
	}}
	names := &stubNameResolver{names: map[domain.Collection]map[int64]string{
		domain.CollectionSkills: {2310: "Double Strafe"},
		domain.CollectionBuffs:  {5011: "Blessing"},
	}}
	return formulas, snapshots, names
}

func TestGraphResolverDependenciesOf(t *testing.T) {
	formulas, snapshots, names := graphFixture()
	resolver := NewGraphResolver(formulas, snapshots, names)

	deps, err := resolver.DependenciesOf(context.Background(), "CommonFun.calcDamage", "2024-05-10")
	if err != nil {
		t.Fatalf("dependencies returned error: %v", err)
	}

	// Self-mention is dropped, the real call survives.
	if !reflect.DeepEqual(deps.Formulas, []string{"CommonFun.calcAttack"}) {
		t.Fatalf("unexpected formula deps: %v", deps.Formulas)
	}
	if len(deps.Skills) != 1 || deps.Skills[0] != (domain.EntityRef{ID: 2310, Name: "Double Strafe"}) {
		t.Fatalf("unexpected skill refs: %+v", deps.Skills)
	}
	if len(deps.Buffs) != 1 || deps.Buffs[0].Name != "Blessing" {
		t.Fatalf("unexpected buff refs: %+v", deps.Buffs)
	}
}

func TestGraphResolverDependentsSymmetry(t *testing.T) {
	formulas, snapshots, names := graphFixture()
	resolver := NewGraphResolver(formulas, snapshots, names)
	ctx := context.Background()

	dependents, err := resolver.DependentsOf(ctx, "CommonFun.calcAttack", "2024-05-10")
	if err != nil {
		t.Fatalf("dependents returned error: %v", err)
	}
	if !reflect.DeepEqual(dependents, []string{"CommonFun.calcDamage", "CommonFun.calcHeal"}) {
		t.Fatalf("unexpected dependents: %v", dependents)
	}

	// Every name listed as a dependent must itself list the target as a
	// dependency.
	for _, dependent := range dependents {
		deps, err := resolver.DependenciesOf(ctx, dependent, "2024-05-10")
		if err != nil {
			t.Fatalf("dependencies of %s returned error: %v", dependent, err)
		}
		found := false
		for _, f := range deps.Formulas {
			if f == "CommonFun.calcAttack" {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s listed as dependent but lacks the dependency edge", dependent)
		}
	}
}

func TestGraphResolverEmptyTagUsesLatestSnapshot(t *testing.T) {
	formulas, snapshots, names := graphFixture()
	resolver := NewGraphResolver(formulas, snapshots, names)

	deps, err := resolver.DependenciesOf(context.Background(), "CommonFun.calcDamage", "")
	if err != nil {
		t.Fatalf("dependencies returned error: %v", err)
	}
	if deps.DatasetTag != "2024-05-10" {
		t.Fatalf("expected latest tag 2024-05-10, got %q", deps.DatasetTag)
	}
}

func TestGraphResolverUnknownFormulaYieldsEmptySets(t *testing.T) {
	formulas, snapshots, names := graphFixture()
	resolver := NewGraphResolver(formulas, snapshots, names)

	deps, err := resolver.DependenciesOf(context.Background(), "CommonFun.missing", "2024-05-10")
	if err != nil {
		t.Fatalf("dependencies returned error: %v", err)
	}
	if len(deps.Formulas) != 0 || len(deps.Skills) != 0 {
		t.Fatalf("expected empty sets, got %+v", deps)
	}
	if deps.Formulas == nil || deps.Skills == nil {
		t.Fatalf("expected empty slices, not nil")
	}
}

func TestGraphResolverNoSnapshotsAtAll(t *testing.T) {
	formulas := &stubFormulaRepo{formulas: map[string]domain.FormulaDefinition{}}
	resolver := NewGraphResolver(formulas, &stubSnapshotRepo{}, &stubNameResolver{})

	deps, err := resolver.DependenciesOf(context.Background(), "CommonFun.calcDamage", "")
	if err != nil {
		t.Fatalf("dependencies returned error: %v", err)
	}
	if len(deps.Formulas) != 0 {
		t.Fatalf("expected empty result, got %+v", deps)
	}
	if formulas.listCalls != 0 {
		t.Fatalf("no snapshot should mean no formula listing, got %d calls", formulas.listCalls)
	}
}

func TestGraphResolverUnresolvedIDsDegradeToPlaceholders(t *testing.T) {
	formulas := &stubFormulaRepo{formulas: map[string]domain.FormulaDefinition{
		"CommonFun.calcFlag": taggedFormula("CommonFun.calcFlag", "2024-05-10", `
local lv = srcUser:GetLernedSkillLevel(9999)
local flag = srcUser:GetSkillFlag(3)
return lv + flag
`),
	}}
	snapshots := &stubSnapshotRepo{snapshots: []domain.Snapshot{snapshotAt("2024-05-10", 10)}}
	resolver := NewGraphResolver(formulas, snapshots, &stubNameResolver{})

	deps, err := resolver.DependenciesOf(context.Background(), "CommonFun.calcFlag", "2024-05-10")
	if err != nil {
		t.Fatalf("dependencies returned error: %v", err)
	}
	if len(deps.Skills) != 1 || deps.Skills[0].Name != "Skill 9999" {
		t.Fatalf("expected placeholder skill name, got %+v", deps.Skills)
	}
	if len(deps.SkillFlags) != 1 || deps.SkillFlags[0].Name != "Skill Flag 3" {
		t.Fatalf("expected synthetic skill flag label, got %+v", deps.SkillFlags)
	}
}

func TestGraphResolverCachesPerTag(t *testing.T) {
	formulas, snapshots, names := graphFixture()
	resolver := NewGraphResolver(formulas, snapshots, names)
	ctx := context.Background()

	if _, err := resolver.DependenciesOf(ctx, "CommonFun.calcDamage", "2024-05-10"); err != nil {
		t.Fatalf("first lookup returned error: %v", err)
	}
	if _, err := resolver.DependentsOf(ctx, "CommonFun.calcAttack", "2024-05-10"); err != nil {
		t.Fatalf("second lookup returned error: %v", err)
	}
	if formulas.listCalls != 1 {
		t.Fatalf("expected one graph build, got %d", formulas.listCalls)
	}

	resolver.Invalidate("2024-05-10")
	if _, err := resolver.DependenciesOf(ctx, "CommonFun.calcDamage", "2024-05-10"); err != nil {
		t.Fatalf("lookup after invalidation returned error: %v", err)
	}
	if formulas.listCalls != 2 {
		t.Fatalf("expected a rebuild after invalidation, got %d builds", formulas.listCalls)
	}
}

// gatedFormulaRepo blocks every ListByTag call on a gate so a test can hold
// multiple builders inside the build phase at once.
type gatedFormulaRepo struct {
	formulas map[string]domain.FormulaDefinition
	entered  chan struct{}
	release  chan struct{}
	calls    int64
}

func (g *gatedFormulaRepo) GetByName(ctx context.Context, name string) (domain.FormulaDefinition, bool, error) {
	formula, ok := g.formulas[name]
	return formula, ok, nil
}

func (g *gatedFormulaRepo) ListByTag(ctx context.Context, tag string) ([]domain.FormulaDefinition, error) {
	atomic.AddInt64(&g.calls, 1)
	g.entered <- struct{}{}
	<-g.release

	var out []domain.FormulaDefinition
	for _, formula := range g.formulas {
		out = append(out, formula)
	}
	return out, nil
}

func TestGraphResolverConcurrentBuildsConverge(t *testing.T) {
	const workers = 8

	repo := &gatedFormulaRepo{
		formulas: map[string]domain.FormulaDefinition{
			"CommonFun.calcDamage": taggedFormula("CommonFun.calcDamage", "2024-05-10",
				"return CommonFun.calcAttack(srcUser)\n"),
			"CommonFun.calcAttack": taggedFormula("CommonFun.calcAttack", "2024-05-10",
				"return 100\n"),
		},
		entered: make(chan struct{}, workers),
		release: make(chan struct{}),
	}
	snapshots := &stubSnapshotRepo{snapshots: []domain.Snapshot{snapshotAt("2024-05-10", 10)}}
	resolver := NewGraphResolver(repo, snapshots, &stubNameResolver{})

	results := make([][]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = resolver.DependentsOf(context.Background(), "CommonFun.calcAttack", "2024-05-10")
		}(i)
	}

	// No build can finish before the gate opens, so every worker misses the
	// cache and enters its own build.
	for i := 0; i < workers; i++ {
		<-repo.entered
	}
	close(repo.release)
	wg.Wait()

	want := []string{"CommonFun.calcDamage"}
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d returned error: %v", i, errs[i])
		}
		if !reflect.DeepEqual(results[i], want) {
			t.Fatalf("worker %d diverged: %v", i, results[i])
		}
	}

	builds := atomic.LoadInt64(&repo.calls)
	if builds != workers {
		t.Fatalf("expected %d concurrent builds, got %d", workers, builds)
	}

	// Exactly one build was stored; later lookups serve it without rebuilding.
	if _, err := resolver.DependentsOf(context.Background(), "CommonFun.calcAttack", "2024-05-10"); err != nil {
		t.Fatalf("lookup after the race returned error: %v", err)
	}
	if got := atomic.LoadInt64(&repo.calls); got != builds {
		t.Fatalf("expected the stored build to serve later lookups, got %d more builds", got-builds)
	}
}

func TestGraphResolverUsesRevisionOfTheTag(t *testing.T) {
	// The formula dropped its calcAttack call in the newest revision; asking
	// for the older tag must extract from the older source.
	formulas := &stubFormulaRepo{formulas: map[string]domain.FormulaDefinition{
		"CommonFun.calcDamage": taggedFormula("CommonFun.calcDamage", "2024-05-10",
			"return 100\n",
			domain.FormulaVersion{DatasetTag: "2024-05-05", Code: "return CommonFun.calcAttack(srcUser)\n"},
		),
	}}
	snapshots := &stubSnapshotRepo{snapshots: []domain.Snapshot{
		snapshotAt("2024-05-10", 10),
		snapshotAt("2024-05-05", 5),
	}}
	resolver := NewGraphResolver(formulas, snapshots, &stubNameResolver{})
	ctx := context.Background()

	current, err := resolver.DependenciesOf(ctx, "CommonFun.calcDamage", "2024-05-10")
	if err != nil {
		t.Fatalf("current lookup returned error: %v", err)
	}
	if len(current.Formulas) != 0 {
		t.Fatalf("expected no deps in the newest revision, got %v", current.Formulas)
	}

	older, err := resolver.DependenciesOf(ctx, "CommonFun.calcDamage", "2024-05-05")
	if err != nil {
		t.Fatalf("older lookup returned error: %v", err)
	}
	if !reflect.DeepEqual(older.Formulas, []string{"CommonFun.calcAttack"}) {
		t.Fatalf("expected the older revision's deps, got %v", older.Formulas)
	}
}
