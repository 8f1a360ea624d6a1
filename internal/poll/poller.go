package poll

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/adityapw/wallet-tracker/pkg/types"
)

// Poller refreshes the announcement feed on a fixed period: one fetch
// immediately, then one per tick. Each result replaces the list
// wholesale; there is no merging, backoff, or dedup.

// Fetch loads the current announcement list; it degrades to empty on
// failure (the resource client already does).
type Fetch func(ctx context.Context) []types.Announcement

// Apply hands the fetched list to whoever owns announcement state.
type Apply func(items []types.Announcement)

type Poller struct {
	interval time.Duration
	fetch    Fetch
	apply    Apply
	log      *zap.Logger
}

func New(interval time.Duration, fetch Fetch, apply Apply, log *zap.Logger) *Poller {
	return &Poller{interval: interval, fetch: fetch, apply: apply, log: log}
}

// Run blocks until ctx is cancelled. The ticker is released on return; a
// leaked ticker after unmount is a bug, not a nuisance.
func (p *Poller) Run(ctx context.Context) {
	p.apply(p.fetch(ctx))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Debug("announcement poller stopped")
			return
		case <-ticker.C:
			p.apply(p.fetch(ctx))
		}
	}
}
