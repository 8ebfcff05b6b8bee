package catalog

import (
	"regexp"
	"strconv"

	"github.com/nevesb/romc-catalog/internal/domain"
)

// refKind names the typed buckets a reference pattern can feed.
type refKind int

const (
	refFormula refKind = iota
	refSkill
	refBuff
	refNpc
	refGem
	refCard
	refSkillFlag
	refMapType
	refZoneType
)

// refRule couples one source pattern with the bucket its captured value
// belongs to. The table is data: new reference conventions get a new row,
// not new traversal code.
type refRule struct {
	kind    refKind
	pattern *regexp.Regexp
}

var referenceRules = []refRule{
	{refFormula, regexp.MustCompile(`CommonFun\.(\w+)\s*\(`)},
	{refSkill, regexp.MustCompile(`(?:srcUser|targetUser):GetLernedSkillLevel\s*\(\s*(\d+)\s*\)`)},
	{refBuff, regexp.MustCompile(`(?:srcUser|targetUser):HasBuffID\s*\(\s*(\d+)\s*\)`)},
	{refBuff, regexp.MustCompile(`(?:srcUser|targetUser):GetBuffLayer\s*\(\s*(\d+)\s*\)`)},
	{refBuff, regexp.MustCompile(`(?:srcUser|targetUser):GetBuffActive\s*\(\s*(\d+)\s*\)`)},
	{refGem, regexp.MustCompile(`(?:srcUser|targetUser):GetGemValue\s*\(\s*(\d+)\s*\)`)},
	{refCard, regexp.MustCompile(`(?:srcUser|targetUser):GetCardValue\s*\(\s*(\d+)\s*\)`)},
	{refSkillFlag, regexp.MustCompile(`(?:srcUser|targetUser):GetSkillFlag\s*\(\s*(\d+)\s*\)`)},
	{refNpc, regexp.MustCompile(`(?:srcUser|targetUser):GetMonsterID\s*\(\s*(\d+)\s*\)`)},
	{refMapType, regexp.MustCompile(`\bmapType\s*==\s*(\d+)`)},
	{refZoneType, regexp.MustCompile(`\bzoneType\s*==\s*(\d+)`)},
}

// ExtractReferences scans formula source text against the reference rule
// table and returns the deduplicated, sorted forward sets. Formula mentions
// keep their qualified name; numeric captures land in the matching id set.
func ExtractReferences(code string) domain.DependencySet {
	formulas := map[string]struct{}{}
	ids := map[refKind]map[int64]struct{}{}
	ints := map[refKind]map[int]struct{}{}

	for _, rule := range referenceRules {
		for _, match := range rule.pattern.FindAllStringSubmatch(code, -1) {
			capture := match[1]
			switch rule.kind {
			case refFormula:
				formulas["CommonFun."+capture] = struct{}{}
			case refMapType, refZoneType:
				value, err := strconv.Atoi(capture)
				if err != nil {
					continue
				}
				if ints[rule.kind] == nil {
					ints[rule.kind] = map[int]struct{}{}
				}
				ints[rule.kind][value] = struct{}{}
			default:
				value, err := strconv.ParseInt(capture, 10, 64)
				if err != nil {
					continue
				}
				if ids[rule.kind] == nil {
					ids[rule.kind] = map[int64]struct{}{}
				}
				ids[rule.kind][value] = struct{}{}
			}
		}
	}

	return domain.DependencySet{
		Formulas:   domain.SortedStrings(formulas),
		Skills:     domain.SortedInt64s(ids[refSkill]),
		Buffs:      domain.SortedInt64s(ids[refBuff]),
		Npcs:       domain.SortedInt64s(ids[refNpc]),
		Gems:       domain.SortedInt64s(ids[refGem]),
		Cards:      domain.SortedInt64s(ids[refCard]),
		SkillFlags: domain.SortedInt64s(ids[refSkillFlag]),
		MapTypes:   domain.SortedInts(ints[refMapType]),
		ZoneTypes:  domain.SortedInts(ints[refZoneType]),
	}
}
