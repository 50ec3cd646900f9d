package interfaces

import (
	"context"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

// SignalSource proposes the next trade direction for a symbol. ok is false
// when no confident signal is available yet.
type SignalSource interface {
	Next(ctx context.Context, symbol string) (sig types.Signal, ok bool)
}
