// Package ingest implements the periodic background fetcher: a
// ticker-driven task that polls the coordinator's List operation against
// a seed query and upserts fresh (non-cached) results into the item
// store.
package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sunerpy/indexproxy/fetch"
	"github.com/sunerpy/indexproxy/store"
)

// Ingester is started once at process startup and owns its own
// cancellation: Run blocks until ctx is cancelled, at which point the next
// sleep is interrupted and the loop exits instead of resuming.
type Ingester struct {
	coordinator *fetch.Coordinator
	store       *store.ItemStore
	interval    time.Duration
	seed        fetch.ListQuery
	log         *zap.Logger
}

func New(coordinator *fetch.Coordinator, itemStore *store.ItemStore, interval time.Duration, seed fetch.ListQuery, log *zap.Logger) *Ingester {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingester{coordinator: coordinator, store: itemStore, interval: interval, seed: seed, log: log}
}

// Run loops forever: fetch, upsert on a fresh (non-cached) success, log
// and continue on any error, then sleep until the next tick. Cancelling
// ctx stops the next sleep from resuming.
func (in *Ingester) Run(ctx context.Context) {
	ticker := time.NewTicker(in.interval)
	defer ticker.Stop()

	in.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			in.tick(ctx)
		}
	}
}

func (in *Ingester) tick(ctx context.Context) {
	items, cached, err := in.coordinator.List(ctx, in.seed)
	if err != nil {
		in.log.Warn("ingest: list failed", zap.Error(err))
		return
	}
	if cached {
		return
	}
	if err := in.store.UpsertAll(items); err != nil {
		in.log.Warn("ingest: upsert failed", zap.Error(err))
		return
	}
	in.log.Debug("ingest: upserted items", zap.Int("count", len(items)))
}
