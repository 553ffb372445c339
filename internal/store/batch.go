package store

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/matjip/internal/metrics"
	"github.com/sells-group/matjip/internal/model"
)

// keyedMutex serializes work per record id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

// Lock acquires the locks of ids in sorted order and returns the release
// function. Duplicate ids are locked once.
func (k *keyedMutex) Lock(ids ...string) func() {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	sort.Strings(uniq)

	held := make([]*refLock, 0, len(uniq))
	for _, id := range uniq {
		k.mu.Lock()
		l, ok := k.locks[id]
		if !ok {
			l = &refLock{}
			k.locks[id] = l
		}
		l.refs++
		k.mu.Unlock()

		l.mu.Lock()
		held = append(held, l)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			k.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(k.locks, uniq[i])
			}
			k.mu.Unlock()
		}
	}
}

// size reports the number of live lock entries.
func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// writeFunc writes recs in one transaction, merging each with its stored
// version.
type writeFunc func(ctx context.Context, recs []model.CanonicalRestaurant) error

// upsertBatches splits recs into batches of size, writes each in one
// transaction and, when a batch fails, retries its records one by one so
// a single bad record cannot sink the rest.
func upsertBatches(ctx context.Context, locks *keyedMutex, size int, recs []model.CanonicalRestaurant, write writeFunc) BatchResult {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var res BatchResult
	for start := 0; start < len(recs); start += size {
		if ctx.Err() != nil {
			for _, r := range recs[start:] {
				res.Failed = append(res.Failed, FailedRecord{ID: r.ID, Err: ctx.Err()})
			}
			break
		}
		end := min(start+size, len(recs))
		batch := recs[start:end]
		res.Batches++
		metrics.StoreBatchSize.Observe(float64(len(batch)))

		ids := make([]string, len(batch))
		for i, r := range batch {
			ids[i] = r.ID
		}
		unlock := locks.Lock(ids...)

		err := write(ctx, batch)
		if err == nil {
			res.Stored += len(batch)
			unlock()
			continue
		}

		res.Fallbacks++
		metrics.StoreFallbacks.Inc()
		zap.L().Warn("store: batch failed, writing records individually",
			zap.Int("batch_size", len(batch)), zap.Error(err))

		for _, r := range batch {
			if err := write(ctx, []model.CanonicalRestaurant{r}); err != nil {
				zap.L().Error("store: record write failed", zap.String("restaurant_id", r.ID), zap.Error(err))
				res.Failed = append(res.Failed, FailedRecord{ID: r.ID, Err: err})
				continue
			}
			res.Stored++
		}
		unlock()
	}
	return res
}

// mergeInto folds recs into the stored versions in order. Repeated ids
// within recs merge onto each other.
func mergeInto(stored map[string]*model.CanonicalRestaurant, recs []model.CanonicalRestaurant) []model.CanonicalRestaurant {
	out := make([]model.CanonicalRestaurant, 0, len(recs))
	pos := make(map[string]int, len(recs))
	for _, r := range recs {
		if i, ok := pos[r.ID]; ok {
			prev := out[i]
			mentions := append(prev.Mentions, r.Mentions...)
			out[i] = ApplyPolicy(&prev, r)
			out[i].Mentions = mentions
			continue
		}
		pos[r.ID] = len(out)
		out = append(out, ApplyPolicy(stored[r.ID], r))
	}
	return out
}
