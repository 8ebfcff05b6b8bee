package domain

import "sort"

// DependencySet holds the typed forward references extracted from one formula
// revision. All fields are deduplicated and sorted; duplicate matches in the
// source collapse.
type DependencySet struct {
	Formulas   []string `json:"formulas"`
	Skills     []int64  `json:"skills"`
	Buffs      []int64  `json:"buffs"`
	Npcs       []int64  `json:"npcs"`
	Gems       []int64  `json:"gems"`
	Cards      []int64  `json:"cards"`
	SkillFlags []int64  `json:"skill_flags"`
	MapTypes   []int    `json:"map_types"`
	ZoneTypes  []int    `json:"zone_types"`
}

// IsEmpty reports whether the set carries no references at all.
func (s DependencySet) IsEmpty() bool {
	return len(s.Formulas) == 0 && len(s.Skills) == 0 && len(s.Buffs) == 0 &&
		len(s.Npcs) == 0 && len(s.Gems) == 0 && len(s.Cards) == 0 &&
		len(s.SkillFlags) == 0 && len(s.MapTypes) == 0 && len(s.ZoneTypes) == 0
}

// DependencyRecord is the derived dependency entry for one formula inside one
// snapshot: its forward references plus the formulas that reference it.
type DependencyRecord struct {
	Name         string        `json:"name"`
	DatasetTag   string        `json:"dataset_tag"`
	Dependencies DependencySet `json:"dependencies"`
	Dependents   []string      `json:"dependents"`
}

// EntityRef pairs a referenced numeric id with its resolved display name. An
// id with no backing record keeps a synthetic placeholder name instead.
type EntityRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ResolvedDependencies mirrors DependencySet with ids resolved to display
// names for presentation.
type ResolvedDependencies struct {
	Name       string      `json:"name"`
	DatasetTag string      `json:"dataset_tag"`
	Formulas   []string    `json:"formulas"`
	Skills     []EntityRef `json:"skills"`
	Buffs      []EntityRef `json:"buffs"`
	Npcs       []EntityRef `json:"npcs"`
	Gems       []EntityRef `json:"gems"`
	Cards      []EntityRef `json:"cards"`
	SkillFlags []EntityRef `json:"skill_flags"`
	MapTypes   []int       `json:"map_types"`
	ZoneTypes  []int       `json:"zone_types"`
}

// SortedInt64s copies and sorts a set of int64 keys.
func SortedInt64s(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SortedInts copies and sorts a set of int keys.
func SortedInts(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// SortedStrings copies and sorts a set of string keys.
func SortedStrings(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
