package brokerobs

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/interfaces"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/logger"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/trace"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

// observableBroker wraps a Broker with observability (logging & tracing)
type observableBroker struct {
	broker interfaces.Broker
}

// Compile-time interface check
var _ interfaces.Broker = (*observableBroker)(nil)

// Wrap wraps a broker with observability middleware
func Wrap(broker interfaces.Broker) interfaces.Broker {
	return &observableBroker{
		broker: broker,
	}
}

// Authorize authenticates a session with observability
func (ob *observableBroker) Authorize(ctx context.Context, token string) (types.AccountInfo, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Authorize")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Authorizing broker session")

	account, err := ob.broker.Authorize(ctx, token)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Authorization failed", err)
		return types.AccountInfo{}, err
	}

	logger.InfoSkip(ctx, 1, "Authorized broker session",
		"loginid", account.LoginID,
		"currency", account.Currency,
		"virtual", account.IsVirtual,
	)
	return account, nil
}

// Accounts lists accounts with observability
func (ob *observableBroker) Accounts(ctx context.Context) ([]types.AccountInfo, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Accounts")
	defer span.End()

	accounts, err := ob.broker.Accounts(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to list accounts", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Accounts listed", "count", len(accounts))
	return accounts, nil
}

// SwitchAccount changes the active account with observability
func (ob *observableBroker) SwitchAccount(ctx context.Context, loginID string) (types.AccountInfo, error) {
	ctx, span := trace.StartSpan(ctx, "broker.SwitchAccount")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Switching account", "loginid", loginID)

	account, err := ob.broker.SwitchAccount(ctx, loginID)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to switch account", err, "loginid", loginID)
		return types.AccountInfo{}, err
	}

	logger.InfoSkip(ctx, 1, "Account switched", "loginid", account.LoginID)
	return account, nil
}

// Balance fetches the balance with observability
func (ob *observableBroker) Balance(ctx context.Context) (decimal.Decimal, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Balance")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching balance")

	balance, err := ob.broker.Balance(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch balance", err)
		return decimal.Zero, err
	}

	logger.DebugSkip(ctx, 1, "Balance fetched", "balance", balance.String())
	return balance, nil
}

// SubscribeTicks opens a tick stream with observability
func (ob *observableBroker) SubscribeTicks(ctx context.Context, symbol string) (<-chan types.Tick, func(), error) {
	ctx, span := trace.StartSpan(ctx, "broker.SubscribeTicks")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Subscribing to ticks", "symbol", symbol)

	ticks, cancel, err := ob.broker.SubscribeTicks(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to subscribe to ticks", err, "symbol", symbol)
		return nil, nil, err
	}

	logger.DebugSkip(ctx, 1, "Tick subscription open", "symbol", symbol)
	return ticks, cancel, nil
}

// Buy submits a contract and waits for settlement with observability
func (ob *observableBroker) Buy(ctx context.Context, spec types.ContractSpec) (types.ContractResult, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Buy")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Purchasing contract",
		"symbol", spec.Symbol,
		"contract_type", string(spec.Type),
		"stake", spec.Stake.String(),
	)

	result, err := ob.broker.Buy(ctx, spec)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Contract purchase failed", err,
			"symbol", spec.Symbol,
			"contract_type", string(spec.Type),
		)
		return types.ContractResult{}, err
	}

	logger.InfoSkip(ctx, 1, "Contract settled",
		"symbol", spec.Symbol,
		"contract_id", result.ContractID,
		"outcome", string(result.Outcome),
		"profit", result.Profit.String(),
	)
	return result, nil
}

// Close shuts the broker connection with observability
func (ob *observableBroker) Close() error {
	logger.Info(context.Background(), "Closing broker connection")
	return ob.broker.Close()
}
