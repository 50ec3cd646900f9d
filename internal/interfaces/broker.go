package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

// Broker is the order-execution and market-data collaborator. All blocking
// calls honor ctx cancellation.
type Broker interface {
	Authorize(ctx context.Context, token string) (types.AccountInfo, error)
	Accounts(ctx context.Context) ([]types.AccountInfo, error)
	SwitchAccount(ctx context.Context, loginID string) (types.AccountInfo, error)
	Balance(ctx context.Context) (decimal.Decimal, error)
	// SubscribeTicks returns a tick stream for symbol plus a cancel func
	// that releases the subscription. The channel is closed on cancel or
	// connection loss.
	SubscribeTicks(ctx context.Context, symbol string) (<-chan types.Tick, func(), error)
	// Buy submits a contract and blocks until settlement.
	Buy(ctx context.Context, spec types.ContractSpec) (types.ContractResult, error)
	Close() error
}
