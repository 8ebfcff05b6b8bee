package catalog

import (
	"context"
	"fmt"

	"github.com/nevesb/romc-catalog/internal/domain"
)

type stubSnapshotRepo struct {
	snapshots []domain.Snapshot
	err       error
	listCalls int
}

func (s *stubSnapshotRepo) Latest(ctx context.Context) (domain.Snapshot, bool, error) {
	if s.err != nil {
		return domain.Snapshot{}, false, s.err
	}
	if len(s.snapshots) == 0 {
		return domain.Snapshot{}, false, nil
	}
	latest := s.snapshots[0]
	for _, snapshot := range s.snapshots[1:] {
		if latest.Before(snapshot) {
			latest = snapshot
		}
	}
	return latest, true, nil
}

func (s *stubSnapshotRepo) ListOrderedByTime(ctx context.Context) ([]domain.Snapshot, error) {
	s.listCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshots, nil
}

type stubSkillRepo struct {
	skills map[int64]domain.Skill
}

func (s *stubSkillRepo) GetByID(ctx context.Context, id int64) (domain.Skill, bool, error) {
	skill, ok := s.skills[id]
	return skill, ok, nil
}

func (s *stubSkillRepo) GetByIDs(ctx context.Context, ids []int64) ([]domain.Skill, error) {
	out := make([]domain.Skill, 0, len(ids))
	for _, id := range ids {
		if skill, ok := s.skills[id]; ok {
			out = append(out, skill)
		}
	}
	return out, nil
}

func (s *stubSkillRepo) FindByNextID(ctx context.Context, nextID int64) ([]domain.Skill, error) {
	var out []domain.Skill
	for _, skill := range s.skills {
		for _, level := range skill.Levels {
			if level.NextLink() == nextID {
				out = append(out, skill)
				break
			}
		}
	}
	return out, nil
}

type stubFormulaRepo struct {
	formulas  map[string]domain.FormulaDefinition
	err       error
	listCalls int
}

func (s *stubFormulaRepo) GetByName(ctx context.Context, name string) (domain.FormulaDefinition, bool, error) {
	if s.err != nil {
		return domain.FormulaDefinition{}, false, s.err
	}
	formula, ok := s.formulas[name]
	return formula, ok, nil
}

func (s *stubFormulaRepo) ListByTag(ctx context.Context, tag string) ([]domain.FormulaDefinition, error) {
	s.listCalls++
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.FormulaDefinition
	for _, formula := range s.formulas {
		for _, version := range formula.OrderedVersions() {
			if version.DatasetTag == tag {
				out = append(out, formula)
				break
			}
		}
	}
	return out, nil
}

type manifestKey struct {
	path string
	tag  string
}

type stubBundleRepo struct {
	manifests map[manifestKey]domain.BundleManifest
}

func (s *stubBundleRepo) GetManifest(ctx context.Context, path, tag string) (domain.BundleManifest, bool, error) {
	manifest, ok := s.manifests[manifestKey{path: path, tag: tag}]
	return manifest, ok, nil
}

func (s *stubBundleRepo) ListManifests(ctx context.Context, tag string) ([]domain.BundleManifest, error) {
	var out []domain.BundleManifest
	for key, manifest := range s.manifests {
		if key.tag == tag {
			out = append(out, manifest)
		}
	}
	return out, nil
}

type stubNameResolver struct {
	names map[domain.Collection]map[int64]string
	calls int
	err   error
}

func (s *stubNameResolver) ResolveNames(ctx context.Context, collection domain.Collection, ids []int64) (map[int64]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := map[int64]string{}
	for _, id := range ids {
		if name, ok := s.names[collection][id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

func englishName(text string) domain.LocalizedText {
	return domain.LocalizedText{"english": text}
}

func chainSkill(id int64, name string, levels ...domain.SkillLevel) domain.Skill {
	return domain.Skill{
		ID:         id,
		DatasetTag: "2024-05-01",
		Name:       englishName(name),
		Levels:     levels,
	}
}

func taggedFormula(name, tag, code string, history ...domain.FormulaVersion) domain.FormulaDefinition {
	return domain.FormulaDefinition{
		Name:       name,
		Code:       code,
		DatasetTag: tag,
		Versions:   history,
	}
}

var errStore = fmt.Errorf("store unavailable")
