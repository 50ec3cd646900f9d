package interfaces

import (
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

// Publisher fans runtime events out to connected clients. Implementations
// must never block the caller.
type Publisher interface {
	PublishTick(tick types.Tick)
	PublishTrade(rec types.TradeRecord)
	PublishBotStatus(status types.BotStatus)
}
