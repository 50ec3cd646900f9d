// Package tickfeed keeps the persisted tick window warm for every
// market in the catalogue.
package tickfeed

import (
	"context"
	"sync"
	"time"

	"github.com/jpillora/backoff"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/interfaces"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/logger"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/persistence"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

// Feed subscribes to tick streams, persists each tick with the retention
// TTL, and fans updates out to websocket clients. Lost subscriptions are
// reopened with exponential backoff.
type Feed struct {
	broker    interfaces.Broker
	repo      persistence.Repository
	pub       interfaces.Publisher
	retention time.Duration
}

func New(broker interfaces.Broker, repo persistence.Repository, pub interfaces.Publisher, retention time.Duration) *Feed {
	return &Feed{broker: broker, repo: repo, pub: pub, retention: retention}
}

// Run blocks until ctx is done, maintaining one subscription per symbol.
func (f *Feed) Run(ctx context.Context, symbols []string) {
	var wg sync.WaitGroup
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			f.watch(ctx, symbol)
		}(symbol)
	}
	wg.Wait()
}

func (f *Feed) watch(ctx context.Context, symbol string) {
	b := &backoff.Backoff{Min: time.Second, Max: 30 * time.Second, Factor: 2, Jitter: true}
	for {
		if ctx.Err() != nil {
			return
		}

		ticks, cancel, err := f.broker.SubscribeTicks(ctx, symbol)
		if err != nil {
			wait := b.Duration()
			logger.Warn(ctx, "Tick subscription failed, backing off",
				"symbol", symbol, "retry_in", wait.String(), "error", err)
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return
			}
		}
		b.Reset()

		f.consume(ctx, symbol, ticks)
		cancel()
	}
}

// consume drains one subscription until it closes or ctx ends.
func (f *Feed) consume(ctx context.Context, symbol string, ticks <-chan types.Tick) {
	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-ticks:
			if !ok {
				logger.Warn(ctx, "Tick stream closed, resubscribing", "symbol", symbol)
				return
			}
			if err := f.repo.SaveTick(tick, f.retention); err != nil {
				logger.Warn(ctx, "Tick persist failed", "symbol", symbol, "error", err)
			}
			if f.pub != nil {
				f.pub.PublishTick(tick)
			}
		}
	}
}
