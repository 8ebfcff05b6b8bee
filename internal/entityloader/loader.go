package entityloader

import (
	"context"
	"strconv"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/nevesb/romc-catalog/internal/domain"
	"github.com/nevesb/romc-catalog/internal/repository"
)

// displayLocale is the locale dependency views resolve names against.
const displayLocale = "english"

// RecordLoader batches id lookups per collection through dataloader, so a
// dependency view resolves all its referenced names in one repository read
// per collection.
type RecordLoader struct {
	loaders map[domain.Collection]*dataloader.Loader
}

// NewRecordLoader creates a loader over the entity repository for every
// known collection.
func NewRecordLoader(repo repository.EntityRepository) *RecordLoader {
	collections := []domain.Collection{
		domain.CollectionItems,
		domain.CollectionMonsters,
		domain.CollectionSkills,
		domain.CollectionBuffs,
	}

	loaders := make(map[domain.Collection]*dataloader.Loader, len(collections))
	for _, collection := range collections {
		// Entity rows are overwritten in place on re-extraction, so cached
		// results must not outlive a batch window: dedup within one batch,
		// re-read on the next.
		loaders[collection] = dataloader.NewBatchedLoader(
			batchFn(repo, collection),
			dataloader.WithWait(5*time.Millisecond),
			dataloader.WithClearCacheOnBatch(),
		)
	}
	return &RecordLoader{loaders: loaders}
}

func batchFn(repo repository.EntityRepository, collection domain.Collection) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]int64, len(keys))
		for i, key := range keys {
			id, err := strconv.ParseInt(key.String(), 10, 64)
			if err != nil {
				results := make([]*dataloader.Result, len(keys))
				for j := range results {
					results[j] = &dataloader.Result{Error: err}
				}
				return results
			}
			ids[i] = id
		}

		records, err := repo.GetByIDs(ctx, collection, ids)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		byID := make(map[int64]domain.EntityRecord, len(records))
		for _, record := range records {
			byID[record.ID] = record
		}

		// Results must line up with the incoming key order; absent ids
		// degrade to nil data rather than an error.
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if record, ok := byID[id]; ok {
				results[i] = &dataloader.Result{Data: record}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}
		return results
	}
}

// ResolveNames resolves entity ids to display names in one batched read.
// Ids with no backing record are absent from the returned map.
func (l *RecordLoader) ResolveNames(ctx context.Context, collection domain.Collection, ids []int64) (map[int64]string, error) {
	loader, ok := l.loaders[collection]
	if !ok || len(ids) == 0 {
		return map[int64]string{}, nil
	}

	keys := make(dataloader.Keys, len(ids))
	for i, id := range ids {
		keys[i] = dataloader.StringKey(strconv.FormatInt(id, 10))
	}

	thunk := loader.LoadMany(ctx, keys)
	values, errs := thunk()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	names := make(map[int64]string, len(values))
	for i, value := range values {
		record, ok := value.(domain.EntityRecord)
		if !ok {
			continue
		}
		names[ids[i]] = record.DisplayName(displayLocale)
	}
	return names, nil
}
