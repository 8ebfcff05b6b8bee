package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/nevesb/romc-catalog/internal/domain"
	"github.com/nevesb/romc-catalog/internal/repository"
)

// BundleDiffer computes set-based added/removed/changed diffs between bundle
// manifests of adjacent snapshots.
type BundleDiffer struct {
	bundles   repository.BundleRepository
	snapshots repository.SnapshotRepository
}

// NewBundleDiffer creates a bundle differ over the bundle and snapshot
// repositories.
func NewBundleDiffer(bundles repository.BundleRepository, snapshots repository.SnapshotRepository) *BundleDiffer {
	return &BundleDiffer{bundles: bundles, snapshots: snapshots}
}

// DiffBundle diffs one bundle path between currentTag and previousTag. An
// empty previousTag resolves to the snapshot immediately before currentTag;
// when no previous manifest exists every current asset counts as added. The
// boolean is false when the current manifest itself is absent.
func (d *BundleDiffer) DiffBundle(ctx context.Context, path, currentTag, previousTag string) (domain.BundleDiff, bool, error) {
	current, ok, err := d.bundles.GetManifest(ctx, path, currentTag)
	if err != nil {
		return domain.BundleDiff{}, false, err
	}
	if !ok {
		return domain.BundleDiff{}, false, nil
	}

	if previousTag == "" {
		index, err := LoadSnapshotIndex(ctx, d.snapshots)
		if err != nil {
			return domain.BundleDiff{}, false, fmt.Errorf("failed to order snapshots: %w", err)
		}
		if previous, ok := index.PreviousOf(currentTag); ok {
			previousTag = previous.Tag
		}
	}

	var previous *domain.BundleManifest
	if previousTag != "" {
		manifest, ok, err := d.bundles.GetManifest(ctx, path, previousTag)
		if err != nil {
			return domain.BundleDiff{}, false, err
		}
		if ok {
			previous = &manifest
		}
	}

	return DiffManifests(current, previous), true, nil
}

// DiffManifests is the pure diff between a current manifest and an optional
// previous one. Assets match across snapshots by (name, type); content
// changes are detected by checksum, falling back to path_id when either side
// lacks a checksum.
func DiffManifests(current domain.BundleManifest, previous *domain.BundleManifest) domain.BundleDiff {
	diff := domain.BundleDiff{
		Path:       current.Path,
		CurrentTag: current.DatasetTag,
		Added:      []domain.BundleAsset{},
		Removed:    []domain.BundleAsset{},
		Changed:    []domain.ChangedAsset{},
	}

	if previous == nil {
		diff.Added = append(diff.Added, current.Assets...)
		sortAssets(diff.Added)
		diff.Summary = domain.BundleDiffSummary{Added: len(diff.Added)}
		return diff
	}
	diff.PreviousTag = previous.DatasetTag

	prevByKey := make(map[domain.AssetKey]domain.BundleAsset, len(previous.Assets))
	for _, asset := range previous.Assets {
		prevByKey[asset.Key()] = asset
	}

	currKeys := make(map[domain.AssetKey]struct{}, len(current.Assets))
	for _, asset := range current.Assets {
		key := asset.Key()
		currKeys[key] = struct{}{}

		prevAsset, shared := prevByKey[key]
		if !shared {
			diff.Added = append(diff.Added, asset)
			continue
		}
		if assetChanged(prevAsset, asset) {
			diff.Changed = append(diff.Changed, domain.ChangedAsset{
				Previous: prevAsset,
				Current:  asset,
			})
		}
	}

	for _, asset := range previous.Assets {
		if _, shared := currKeys[asset.Key()]; !shared {
			diff.Removed = append(diff.Removed, asset)
		}
	}

	sortAssets(diff.Added)
	sortAssets(diff.Removed)
	sort.Slice(diff.Changed, func(i, j int) bool {
		return assetLess(diff.Changed[i].Current, diff.Changed[j].Current)
	})

	diff.Summary = domain.BundleDiffSummary{
		Added:   len(diff.Added),
		Removed: len(diff.Removed),
		Changed: len(diff.Changed),
	}
	return diff
}

// DiffSnapshot aggregates every manifest of currentTag against previousTag:
// bundle paths that appeared, disappeared, or hold at least one changed
// asset. An empty previousTag resolves through the snapshot index; a missing
// previous snapshot marks every current path as added.
func (d *BundleDiffer) DiffSnapshot(ctx context.Context, currentTag, previousTag string) (domain.ManifestSetDiff, error) {
	setDiff := domain.ManifestSetDiff{
		CurrentTag:   currentTag,
		AddedPaths:   []string{},
		RemovedPaths: []string{},
		ChangedPaths: []string{},
	}

	currentManifests, err := d.bundles.ListManifests(ctx, currentTag)
	if err != nil {
		return domain.ManifestSetDiff{}, err
	}

	if previousTag == "" {
		index, err := LoadSnapshotIndex(ctx, d.snapshots)
		if err != nil {
			return domain.ManifestSetDiff{}, fmt.Errorf("failed to order snapshots: %w", err)
		}
		if previous, ok := index.PreviousOf(currentTag); ok {
			previousTag = previous.Tag
		}
	}

	var previousManifests []domain.BundleManifest
	if previousTag != "" {
		setDiff.PreviousTag = previousTag
		previousManifests, err = d.bundles.ListManifests(ctx, previousTag)
		if err != nil {
			return domain.ManifestSetDiff{}, err
		}
	}

	prevByPath := make(map[string]domain.BundleManifest, len(previousManifests))
	for _, manifest := range previousManifests {
		prevByPath[manifest.Path] = manifest
	}

	currPaths := make(map[string]struct{}, len(currentManifests))
	for _, manifest := range currentManifests {
		currPaths[manifest.Path] = struct{}{}

		prev, shared := prevByPath[manifest.Path]
		if !shared {
			setDiff.AddedPaths = append(setDiff.AddedPaths, manifest.Path)
			continue
		}
		bundleDiff := DiffManifests(manifest, &prev)
		if bundleDiff.Summary.Added+bundleDiff.Summary.Removed+bundleDiff.Summary.Changed > 0 {
			setDiff.ChangedPaths = append(setDiff.ChangedPaths, manifest.Path)
		}
	}

	for path := range prevByPath {
		if _, shared := currPaths[path]; !shared {
			setDiff.RemovedPaths = append(setDiff.RemovedPaths, path)
		}
	}

	sort.Strings(setDiff.AddedPaths)
	sort.Strings(setDiff.RemovedPaths)
	sort.Strings(setDiff.ChangedPaths)
	return setDiff, nil
}

func assetChanged(previous, current domain.BundleAsset) bool {
	if previous.Checksum != "" && current.Checksum != "" {
		return previous.Checksum != current.Checksum
	}
	return previous.PathID != current.PathID
}

func assetLess(a, b domain.BundleAsset) bool {
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	return a.Name < b.Name
}

func sortAssets(assets []domain.BundleAsset) {
	sort.Slice(assets, func(i, j int) bool {
		return assetLess(assets[i], assets[j])
	})
}
