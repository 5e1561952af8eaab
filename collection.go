package postpulse

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lumerio/postpulse/retry"
	"github.com/lumerio/postpulse/vector"
)

// CollectionStore owns the lifecycle of the backing collection. Every remote
// call runs through the retry runner, a disappeared collection is recreated
// and the call retried once, and read failures degrade to empty results so
// the surrounding pipeline keeps going through a store outage.
type CollectionStore struct {
	store     vector.Store
	runner    *retry.Runner
	batchSize int
	log       *zap.Logger
}

func NewCollectionStore(store vector.Store, runner *retry.Runner, batchSize int) *CollectionStore {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	log := zap.L().With(
		zap.String("component", "collection"),
	)

	return &CollectionStore{
		store:     store,
		runner:    runner,
		batchSize: batchSize,
		log:       log,
	}
}

// Init probes the store and ensures the collection exists. Failure here is
// fatal: the core cannot run blind against an unreachable store.
func (cs *CollectionStore) Init(ctx context.Context) error {
	if err := cs.store.Health(ctx); err != nil {
		return fmt.Errorf("%w: %s", ErrStoreUnhealthy, err.Error())
	}

	if err := cs.store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("%w: %s", ErrStoreUnhealthy, err.Error())
	}

	return nil
}

// recovering runs op, recreating the collection and retrying once when the
// remote reports it missing. Any recurrence surfaces as the original error
// and is handled by the retry runner as a transient fault.
func recovering[T any](ctx context.Context, cs *CollectionStore, op func() (T, error)) (T, error) {
	out, err := op()
	if err == nil || !errors.Is(err, vector.ErrCollectionMissing) {
		return out, err
	}

	cs.log.Warn("collection missing, recreating")

	if rerr := cs.store.EnsureCollection(ctx); rerr != nil {
		return out, err
	}

	return op()
}

// Count returns the number of stored documents, degrading to zero after
// exhausted retries.
func (cs *CollectionStore) Count(ctx context.Context) int {
	count, err := retry.Do(ctx, cs.runner, nil, func() (int, error) {
		return recovering(ctx, cs, func() (int, error) {
			return cs.store.Count(ctx)
		})
	})

	if err != nil {
		cs.log.Error(err.Error(), zap.String("action", "count"))
		return 0
	}

	return count
}

// Upsert persists docs in fixed-size batches, each batch retried
// independently. The returned count reports how many documents were actually
// committed; a short count signals partial failure without stopping the
// caller.
func (cs *CollectionStore) Upsert(ctx context.Context, docs []vector.Document) int {
	log := cs.log.With(
		zap.String("action", "upsert"),
	)

	persisted := 0
	for start := 0; start < len(docs); start += cs.batchSize {
		end := start + cs.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		_, err := retry.Do(ctx, cs.runner, nil, func() (struct{}, error) {
			return recovering(ctx, cs, func() (struct{}, error) {
				return struct{}{}, cs.store.Upsert(ctx, batch)
			})
		})

		if err != nil {
			log.Error(err.Error(),
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
			)
			continue
		}

		persisted += len(batch)
	}

	return persisted
}

// Get returns stored documents matching filter, degrading to empty.
func (cs *CollectionStore) Get(ctx context.Context, filter vector.Filter) []vector.Document {
	docs, err := retry.Do(ctx, cs.runner, nil, func() ([]vector.Document, error) {
		return recovering(ctx, cs, func() ([]vector.Document, error) {
			return cs.store.Get(ctx, filter)
		})
	})

	if err != nil {
		cs.log.Error(err.Error(), zap.String("action", "get"))
		return nil
	}

	return docs
}

type queryOutcome struct {
	docs      []vector.Document
	distances []float64
}

// Query runs a nearest-neighbor search, degrading to empty.
func (cs *CollectionStore) Query(ctx context.Context, embedding []float32, k int) ([]vector.Document, []float64) {
	out, err := retry.Do(ctx, cs.runner, nil, func() (queryOutcome, error) {
		return recovering(ctx, cs, func() (queryOutcome, error) {
			docs, distances, err := cs.store.Query(ctx, embedding, k)
			return queryOutcome{docs: docs, distances: distances}, err
		})
	})

	if err != nil {
		cs.log.Error(err.Error(), zap.String("action", "query"))
		return nil, nil
	}

	return out.docs, out.distances
}

// Clear deletes and recreates the collection.
func (cs *CollectionStore) Clear(ctx context.Context) error {
	_, err := retry.Do(ctx, cs.runner, nil, func() (struct{}, error) {
		return struct{}{}, cs.store.Clear(ctx)
	})
	return err
}
