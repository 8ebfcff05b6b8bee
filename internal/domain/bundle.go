package domain

import "time"

// BundleAsset is one entry of a bundle manifest. Assets are identified across
// snapshots by (Name, Type); the checksum, when present, detects content
// changes, with PathID as a weaker fallback.
type BundleAsset struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	PathID   int64  `json:"path_id,omitempty"`
	Checksum string `json:"checksum,omitempty"`
}

// AssetKey is the cross-snapshot identity of a bundle asset.
type AssetKey struct {
	Name string
	Type string
}

// Key returns the asset's cross-snapshot identity.
func (a BundleAsset) Key() AssetKey {
	return AssetKey{Name: a.Name, Type: a.Type}
}

// BundleManifest lists the assets of one bundle path inside one snapshot.
type BundleManifest struct {
	DatasetTag  string        `json:"dataset_tag"`
	Path        string        `json:"path"`
	Checksum    string        `json:"checksum,omitempty"`
	Assets      []BundleAsset `json:"assets"`
	ExtractedAt time.Time     `json:"extracted_at"`
}

// ChangedAsset pairs the previous and current revision of an asset whose
// content changed between two snapshots.
type ChangedAsset struct {
	Previous BundleAsset `json:"previous"`
	Current  BundleAsset `json:"current"`
}

// BundleDiff is the set-based comparison of one bundle path between two
// snapshots.
type BundleDiff struct {
	Path        string            `json:"path"`
	CurrentTag  string            `json:"current_tag"`
	PreviousTag string            `json:"previous_tag,omitempty"`
	Added       []BundleAsset     `json:"added"`
	Removed     []BundleAsset     `json:"removed"`
	Changed     []ChangedAsset    `json:"changed"`
	Summary     BundleDiffSummary `json:"summary"`
}

// BundleDiffSummary carries the per-bundle aggregate counts.
type BundleDiffSummary struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Changed int `json:"changed"`
}

// ManifestSetDiff aggregates a whole snapshot's manifests against the
// previous snapshot: bundle paths that appeared, disappeared, or contain at
// least one changed asset.
type ManifestSetDiff struct {
	CurrentTag   string   `json:"current_tag"`
	PreviousTag  string   `json:"previous_tag,omitempty"`
	AddedPaths   []string `json:"added_paths"`
	RemovedPaths []string `json:"removed_paths"`
	ChangedPaths []string `json:"changed_paths"`
}
