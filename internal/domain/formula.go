package domain

import "time"

// FormulaDefinition is the stored record for one scripted damage/effect
// formula, identified by name. The embedded Versions list is a pre-aggregated
// history ordered newest first; consecutive entries frequently carry
// byte-identical code because the extractor re-exports unchanged sources.
type FormulaDefinition struct {
	Name        string           `json:"name"`
	Code        string           `json:"code"`
	DatasetTag  string           `json:"dataset_tag"`
	ExtractedAt time.Time        `json:"extracted_at"`
	Versions    []FormulaVersion `json:"versions,omitempty"`
}

// FormulaVersion is one historical revision of a formula's source.
type FormulaVersion struct {
	DatasetTag  string    `json:"dataset_tag"`
	ExtractedAt time.Time `json:"extracted_at"`
	Code        string    `json:"code"`
}

// OrderedVersions flattens the record into a newest-to-oldest version list,
// with the current revision at position zero.
func (f FormulaDefinition) OrderedVersions() []FormulaVersion {
	versions := make([]FormulaVersion, 0, len(f.Versions)+1)
	versions = append(versions, FormulaVersion{
		DatasetTag:  f.DatasetTag,
		ExtractedAt: f.ExtractedAt,
		Code:        f.Code,
	})
	versions = append(versions, f.Versions...)
	return versions
}

// FormulaVersionDiff reports the nearest ancestor whose source materially
// differs from the anchor version, plus the rendered line diff between them.
type FormulaVersionDiff struct {
	Name         string `json:"name"`
	AnchorTag    string `json:"anchor_tag"`
	PreviousTag  string `json:"previous_tag"`
	PreviousCode string `json:"previous_code"`
	CurrentCode  string `json:"current_code"`
	Diff         string `json:"diff"`
}
