package catalog

import (
	"context"
	"fmt"

	"github.com/nevesb/romc-catalog/internal/domain"
	"github.com/nevesb/romc-catalog/internal/repository"
)

// VersionDiffer finds the nearest ancestor of a formula version whose source
// materially differs, skipping re-exported revisions with byte-identical
// code, and renders the line diff between the two.
type VersionDiffer struct {
	formulas repository.FormulaRepository
}

// NewVersionDiffer creates a version differ over the formula repository.
func NewVersionDiffer(formulas repository.FormulaRepository) *VersionDiffer {
	return &VersionDiffer{formulas: formulas}
}

// Diff walks the formula's version history starting at the anchor tag (the
// newest version when the anchor is empty or unknown) and compares each
// version to the next older one. The first differing pair produces the
// result; a history with no differing pair yields nil.
func (d *VersionDiffer) Diff(ctx context.Context, name, anchorTag string) (*domain.FormulaVersionDiff, error) {
	formula, ok, err := d.formulas.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load formula %q: %w", name, err)
	}
	if !ok {
		return nil, nil
	}

	versions := formula.OrderedVersions()
	if len(versions) < 2 {
		return nil, nil
	}

	pos := 0
	if anchorTag != "" {
		for i, version := range versions {
			if version.DatasetTag == anchorTag {
				pos = i
				break
			}
		}
	}

	for i := pos; i+1 < len(versions); i++ {
		current, previous := versions[i], versions[i+1]
		if current.Code == previous.Code {
			continue
		}
		return &domain.FormulaVersionDiff{
			Name:         name,
			AnchorTag:    versions[pos].DatasetTag,
			PreviousTag:  previous.DatasetTag,
			PreviousCode: previous.Code,
			CurrentCode:  current.Code,
			Diff: domain.BuildUnifiedDiff(
				previous.DatasetTag, current.DatasetTag,
				previous.Code, current.Code,
			),
		}, nil
	}

	return nil, nil
}
