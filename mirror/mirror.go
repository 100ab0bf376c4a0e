// Package mirror implements the multi-upstream façade: N independent
// (Coordinator, Tracker) pairs, one per configured origin, fanned out
// under the same List/View/Download shape plus a Health projection over
// each origin's own ledger. The façade never merges budgets across
// origins — each keeps its own cache/rate-limit/ledger.
package mirror

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sunerpy/indexproxy/cache"
	"github.com/sunerpy/indexproxy/config"
	"github.com/sunerpy/indexproxy/fetch"
	"github.com/sunerpy/indexproxy/ledger"
	"github.com/sunerpy/indexproxy/models"
	"github.com/sunerpy/indexproxy/ratelimit"
)

// ErrUnknownOrigin is returned when a caller names an origin id the façade
// wasn't configured with.
var ErrUnknownOrigin = fmt.Errorf("mirror: unknown origin")

type origin struct {
	coordinator *fetch.Coordinator
	tracker     *ledger.Tracker
}

// Facade holds one Coordinator+Tracker pair per configured origin.
type Facade struct {
	origins map[string]*origin
	order   []string
	log     *zap.Logger
}

// New builds one cache/limiter/tracker/coordinator stack per entry in
// cfgs, each under its own cache directory and rate-limit budget.
func New(cfgs []config.OriginConfig, db func(id string) (*ledger.Tracker, error), log *zap.Logger) (*Facade, error) {
	if log == nil {
		log = zap.NewNop()
	}
	f := &Facade{origins: make(map[string]*origin, len(cfgs)), log: log}
	for _, cfg := range cfgs {
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		ch, err := cache.New(cfg.CacheDir, cfg.CacheSize, log)
		if err != nil {
			return nil, fmt.Errorf("mirror: origin %q: cache: %w", cfg.ID, err)
		}
		lim := ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow)
		tr, err := db(cfg.ID)
		if err != nil {
			return nil, fmt.Errorf("mirror: origin %q: ledger: %w", cfg.ID, err)
		}
		co := fetch.New(cfg, ch, lim, tr, log, fetch.WithMirrorID(cfg.ID))
		f.origins[cfg.ID] = &origin{coordinator: co, tracker: tr}
		f.order = append(f.order, cfg.ID)
	}
	return f, nil
}

func (f *Facade) lookup(id string) (*origin, error) {
	o, ok := f.origins[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOrigin, id)
	}
	return o, nil
}

// List delegates to the named origin's coordinator.
func (f *Facade) List(ctx context.Context, id string, q fetch.ListQuery) ([]models.ListItem, bool, error) {
	o, err := f.lookup(id)
	if err != nil {
		return nil, false, err
	}
	return o.coordinator.List(ctx, q)
}

// View delegates to the named origin's coordinator.
func (f *Facade) View(ctx context.Context, id string, itemID int64) (models.View, bool, error) {
	o, err := f.lookup(id)
	if err != nil {
		return models.View{}, false, err
	}
	return o.coordinator.View(ctx, itemID)
}

// Download delegates to the named origin's coordinator.
func (f *Facade) Download(ctx context.Context, id string, itemID int64) (fetch.DownloadResult, bool, error) {
	o, err := f.lookup(id)
	if err != nil {
		return fetch.DownloadResult{}, false, err
	}
	return o.coordinator.Download(ctx, itemID)
}

// OriginStatus is one origin's health projection: up/down plus its most
// recent ledger record.
type OriginStatus struct {
	ID        string                `json:"id"`
	Healthy   bool                  `json:"healthy"`
	LastEvent *models.RequestRecord `json:"last_event,omitempty"`
}

// Health projects every origin's most recent ledger record into an
// up/down signal: an origin is "down" if its most recent record failed
// (an origin with no records yet counts as up). The façade itself stores nothing new here, it
// reads what Tracker already recorded.
func (f *Facade) Health(ctx context.Context) []OriginStatus {
	statuses := make([]OriginStatus, len(f.order))
	g, _ := errgroup.WithContext(ctx)
	for i, id := range f.order {
		i, id := i, id
		g.Go(func() error {
			o := f.origins[id]
			records, err := o.tracker.Get(id, 1)
			if err != nil {
				f.log.Warn("mirror: health query failed", zap.String("origin", id), zap.Error(err))
				statuses[i] = OriginStatus{ID: id, Healthy: false}
				return nil
			}
			if len(records) == 0 {
				statuses[i] = OriginStatus{ID: id, Healthy: true}
				return nil
			}
			statuses[i] = OriginStatus{ID: id, Healthy: records[0].Success, LastEvent: &records[0]}
			return nil
		})
	}
	_ = g.Wait()
	return statuses
}

// Origins reports the configured origin ids, in configuration order.
func (f *Facade) Origins() []string {
	return append([]string(nil), f.order...)
}
