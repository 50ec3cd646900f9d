package persistence

import (
	"time"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

// Repository is the durable document store behind bots, trades, recovery
// snapshots and the tick cache. Lookups for absent keys return (nil, nil)
// rather than an error.
type Repository interface {
	SaveBot(spec *types.BotSpec) error
	LoadBot(id string) (*types.BotSpec, error)
	ListBots() ([]*types.BotSpec, error)
	DeleteBot(id string) error

	// AppendTrade stores rec under a per-bot monotonic sequence and
	// returns the assigned sequence number.
	AppendTrade(rec types.TradeRecord) (uint64, error)
	RecentTrades(botID string, limit int) ([]types.TradeRecord, error)

	SaveRecovery(botID string, state types.RecoveryState) error
	LoadRecovery(botID string) (*types.RecoveryState, error)
	DeleteRecovery(botID string) error

	// SaveTick stores a tick with a retention TTL.
	SaveTick(tick types.Tick, ttl time.Duration) error
	RecentTicks(symbol string, limit int) ([]types.Tick, error)

	Close() error
}
