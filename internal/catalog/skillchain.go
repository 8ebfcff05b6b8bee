package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/nevesb/romc-catalog/internal/domain"
	"github.com/nevesb/romc-catalog/internal/repository"
)

// ChainResolver merges the family of skill records connected by forward
// links into one canonical, leveled view. Forward links may form cycles in
// bad data; every walk is bounded by a visited set.
type ChainResolver struct {
	skills repository.SkillRepository
}

// NewChainResolver creates a chain resolver over the skill repository.
func NewChainResolver(skills repository.SkillRepository) *ChainResolver {
	return &ChainResolver{skills: skills}
}

// Resolve finds the head of the upgrade chain containing skillID and returns
// the deduplicated, ordered level set across the whole chain. The result is
// deterministic for a fixed record set.
func (r *ChainResolver) Resolve(ctx context.Context, skillID int64) (domain.SkillChain, error) {
	head, err := r.findHead(ctx, skillID)
	if err != nil {
		return domain.SkillChain{}, err
	}
	return r.collectLevels(ctx, head)
}

// findHead walks predecessor links backwards until no skill points at the
// current one. Revisiting an id means the links form a cycle; the walk stops
// there and treats the current skill as the head.
func (r *ChainResolver) findHead(ctx context.Context, skillID int64) (int64, error) {
	current := skillID
	visited := map[int64]struct{}{current: {}}

	for {
		predecessors, err := r.skills.FindByNextID(ctx, current)
		if err != nil {
			return 0, fmt.Errorf("failed to look up predecessors of skill %d: %w", current, err)
		}
		if len(predecessors) == 0 {
			return current, nil
		}

		// Multiple predecessors is a data anomaly; pick the lowest id so the
		// choice never depends on store ordering.
		sort.Slice(predecessors, func(i, j int) bool {
			return predecessors[i].ID < predecessors[j].ID
		})

		next := predecessors[0].ID
		if _, seen := visited[next]; seen {
			return current, nil
		}
		visited[next] = struct{}{}
		current = next
	}
}

// levelCandidate tracks one level slot during dedup.
type levelCandidate struct {
	level domain.SkillLevel
	order int
}

func (r *ChainResolver) collectLevels(ctx context.Context, headID int64) (domain.SkillChain, error) {
	chain := domain.SkillChain{HeadID: headID}

	visited := map[int64]struct{}{}
	candidates := map[int64]levelCandidate{}
	insertions := 0

	current := headID
	for current != 0 {
		if _, seen := visited[current]; seen {
			break
		}
		visited[current] = struct{}{}

		skill, ok, err := r.skills.GetByID(ctx, current)
		if err != nil {
			return domain.SkillChain{}, fmt.Errorf("failed to load chain member %d: %w", current, err)
		}
		if !ok {
			break
		}
		chain.ChainIDs = append(chain.ChainIDs, skill.ID)

		var forward int64
		for _, level := range skill.Levels {
			key := levelKey(level, insertions)
			insertions++

			existing, collides := candidates[key]
			if !collides || preferLevel(level, existing.level) {
				candidates[key] = levelCandidate{level: level, order: insertions}
			}

			if forward == 0 {
				if link := level.NextLink(); link != 0 && link != skill.ID {
					forward = link
				}
			}
		}

		current = forward
	}

	chain.Levels = sortedLevels(candidates)
	return chain, nil
}

// levelKey keys a level by its level number. Levels without one never
// collide; each keeps a unique synthetic slot in insertion order.
func levelKey(level domain.SkillLevel, insertion int) int64 {
	if level.Level > 0 {
		return int64(level.Level)
	}
	return -int64(insertion + 1)
}

// preferLevel decides whether candidate should replace existing for the same
// level number. A level whose display name is translated always beats a raw
// placeholder token; otherwise the first record seen stays.
func preferLevel(candidate, existing domain.SkillLevel) bool {
	return domain.IsPlaceholderToken(levelName(existing)) &&
		!domain.IsPlaceholderToken(levelName(candidate))
}

func levelName(level domain.SkillLevel) string {
	if name := level.Name.Get("english"); name != "" {
		return name
	}
	return level.NameToken
}

func sortedLevels(candidates map[int64]levelCandidate) []domain.SkillLevel {
	ordered := make([]levelCandidate, 0, len(candidates))
	for _, c := range candidates {
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i].level, ordered[j].level
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		if a.LevelID != b.LevelID {
			return a.LevelID < b.LevelID
		}
		return ordered[i].order < ordered[j].order
	})

	levels := make([]domain.SkillLevel, len(ordered))
	for i, c := range ordered {
		levels[i] = c.level
	}
	return levels
}
