package domain

import "time"

// Skill is one snapshot revision of a skill record. A logical upgrade chain
// is split across multiple skill records connected by forward links inside
// their level lists.
type Skill struct {
	ID          int64          `json:"id"`
	DatasetTag  string         `json:"dataset_tag"`
	Name        LocalizedText  `json:"name"`
	NameToken   string         `json:"name_token"`
	Description LocalizedText  `json:"description"`
	Icon        string         `json:"icon,omitempty"`
	Levels      []SkillLevel   `json:"levels"`
	Raw         map[string]any `json:"raw,omitempty"`
	ExtractedAt time.Time      `json:"extracted_at"`
}

// SkillLevel is one leveled entry embedded in a skill record. NextID and
// NextBranchID point at the skill that continues the upgrade chain; either
// may be zero, and the links may form cycles (a data error the resolver must
// survive).
type SkillLevel struct {
	LevelID      int64          `json:"level_id"`
	Level        int            `json:"level"`
	NextID       int64          `json:"next_id,omitempty"`
	NextBranchID int64          `json:"next_branch_id,omitempty"`
	Name         LocalizedText  `json:"name"`
	NameToken    string         `json:"name_token"`
	Description  LocalizedText  `json:"description,omitempty"`
	Fields       map[string]any `json:"fields,omitempty"`
}

// NextLink returns the forward link for the level, preferring the branch
// pointer when both are present.
func (l SkillLevel) NextLink() int64 {
	if l.NextBranchID != 0 {
		return l.NextBranchID
	}
	return l.NextID
}

// SkillChain is the canonical, deduplicated view of a whole upgrade chain.
// Levels are ordered ascending by level number; ChainIDs lists the member
// skill ids in walk order for downstream per-level lookups.
type SkillChain struct {
	HeadID   int64        `json:"head_id"`
	ChainIDs []int64      `json:"chain_ids"`
	Levels   []SkillLevel `json:"levels"`
}
