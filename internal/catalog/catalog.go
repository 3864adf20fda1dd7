// Package catalog owns the in-memory snapshot of the user's loans, holds and
// cards. Successful syncs replace the snapshot wholesale; there is no
// incremental merge, so a caller holding a snapshot always sees one consistent
// sync cycle.
package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/shelfbridge/loansync-service/internal/model"
)

type Syncer interface {
	Sync(ctx context.Context) (*model.Snapshot, error)
}

type Fetcher struct {
	log    *zap.Logger
	client Syncer
	ttl    time.Duration

	mu   sync.Mutex
	snap *model.Snapshot
}

func NewFetcher(client Syncer, ttl time.Duration, log *zap.Logger) *Fetcher {
	return &Fetcher{
		log:    log.Named("catalog"),
		client: client,
		ttl:    ttl,
	}
}

// Snapshot returns the current snapshot, refreshing it from the lending
// service when stale or when force is set. On refresh failure no partial data
// is kept: the previous snapshot stays in place and a single aggregated error
// is returned.
func (f *Fetcher) Snapshot(ctx context.Context, force bool) (*model.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !force && f.snap != nil && time.Since(f.snap.SyncedAt) < f.ttl {
		return f.snap, nil
	}

	snap, err := f.client.Sync(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "catalog sync")
	}
	f.snap = snap
	f.log.Info("snapshot replaced",
		zap.Int("loans", len(snap.Loans)),
		zap.Int("holds", len(snap.Holds)),
		zap.Int("cards", len(snap.Cards)))
	return f.snap, nil
}

// Current returns the cached snapshot without refreshing.
func (f *Fetcher) Current() (*model.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.snap != nil
}

// Invalidate drops the cached snapshot so the next read re-syncs. Used after
// circulation operations that change upstream state.
func (f *Fetcher) Invalidate() {
	f.mu.Lock()
	f.snap = nil
	f.mu.Unlock()
}
