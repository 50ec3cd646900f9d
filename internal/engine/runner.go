package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/interfaces"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/logger"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/metrics"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/persistence"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

const maxBuyAttempts = 3

// Runner drives one bot session: signal, stake, submit, settle, observe.
// A Runner is single-use; restarting a bot builds a fresh one. Stop
// requests take effect at the next suspension point, never mid
// submission, so at most one contract is in flight at any time.
type Runner struct {
	spec    *types.BotSpec
	ctrl    *Controller
	broker  interfaces.Broker
	signals interfaces.SignalSource
	ledger  interfaces.Ledger
	repo    persistence.Repository
	pub     interfaces.Publisher

	mu        sync.Mutex
	state     types.BotState
	reason    string
	balance   decimal.Decimal
	startedAt time.Time

	stopCh    chan struct{}
	stopOnce  sync.Once
	doneCh    chan struct{}
	startOnce sync.Once
}

func NewRunner(
	spec *types.BotSpec,
	ctrl *Controller,
	broker interfaces.Broker,
	signals interfaces.SignalSource,
	ledger interfaces.Ledger,
	repo persistence.Repository,
	pub interfaces.Publisher,
) *Runner {
	return &Runner{
		spec:    spec,
		ctrl:    ctrl,
		broker:  broker,
		signals: signals,
		ledger:  ledger,
		repo:    repo,
		pub:     pub,
		state:   types.StateCreated,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start launches the session loop. It returns an error when the runner
// has already been started.
func (r *Runner) Start(ctx context.Context) error {
	started := false
	r.startOnce.Do(func() {
		started = true
		r.setState(types.StateStarting, "")
		r.mu.Lock()
		r.startedAt = time.Now().UTC()
		r.mu.Unlock()
		go r.run(ctx)
	})
	if !started {
		return fmt.Errorf("runner for bot %s already started", r.spec.ID)
	}
	return nil
}

// Stop requests termination. It is safe to call repeatedly and returns
// immediately; Done unblocks once the loop has wound down.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Done is closed when the session loop has exited.
func (r *Runner) Done() <-chan struct{} { return r.doneCh }

func (r *Runner) State() (types.BotState, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.reason
}

func (r *Runner) setState(state types.BotState, reason string) {
	r.mu.Lock()
	r.state = state
	r.reason = reason
	r.mu.Unlock()
	if r.pub != nil {
		r.pub.PublishBotStatus(r.Status())
	}
}

// Status assembles the reportable view from the ledger aggregates and
// the controller snapshot.
func (r *Runner) Status() types.BotStatus {
	r.mu.Lock()
	state := r.state
	reason := r.reason
	balance := r.balance
	startedAt := r.startedAt
	r.mu.Unlock()

	stats := r.ledger.Stats()
	rec := r.ctrl.State()

	status := types.BotStatus{
		BotID:           r.spec.ID,
		Name:            r.spec.Name,
		State:           state,
		Reason:          reason,
		CurrentBalance:  balance,
		TotalTrades:     stats.TotalTrades(),
		WinningTrades:   stats.Wins,
		WinRate:         stats.WinRate(),
		TotalProfit:     stats.TotalProfit,
		CurrentStreak:   stats.Streak,
		StreakOutcome:   stats.StreakOutcome,
		BestStreak:      stats.BestWinStreak,
		MartingaleLevel: rec.CurrentStep,
		IsRecovering:    rec.IsRecovering(),
	}
	if lt, ok := r.ledger.(interface{ LastTradeTime() *time.Time }); ok {
		status.LastTradeTime = lt.LastTradeTime()
	}
	if state == types.StateActive && !startedAt.IsZero() {
		status.Uptime = time.Since(startedAt).Round(time.Second).String()
	}
	return status
}

// RecoveryInfo is the martingale view of the session.
func (r *Runner) RecoveryInfo() types.RecoveryInfo {
	rec := r.ctrl.State()
	return types.RecoveryInfo{
		IsRecovering:    rec.IsRecovering(),
		CurrentLevel:    rec.CurrentStep,
		MaxLevel:        r.ctrl.MaxSteps(),
		AttemptsAtLevel: rec.AttemptsAtStep,
		AmountToRecover: rec.AmountToRecover,
		NextStake:       r.ctrl.PreviewStake(),
		SessionProfit:   r.ctrl.SessionProfit(),
	}
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.doneCh)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-r.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if bal, err := r.broker.Balance(ctx); err == nil {
		r.mu.Lock()
		r.balance = bal
		r.mu.Unlock()
	}

	r.setState(types.StateActive, "")
	metrics.BotStarted()
	defer metrics.BotStopped()
	logger.Info(ctx, "Bot session started",
		"bot_id", r.spec.ID, "symbol", r.spec.Symbol, "base_stake", r.spec.BaseStake.String())

	ticker := time.NewTicker(r.spec.TradeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.finish(ctx, types.StateStopped, "stop requested")
			return
		case <-ctx.Done():
			r.finish(ctx, types.StateStopped, "context canceled")
			return
		case <-ticker.C:
		}

		if done := r.cycle(ctx); done {
			return
		}
	}
}

// cycle runs one trade attempt. It returns true when the session is over.
func (r *Runner) cycle(ctx context.Context) bool {
	stake, sig := r.ctrl.NextStake()
	if sig.Terminal() {
		metrics.RecordControlSignal(r.spec.ID, string(sig))
		logger.Recovery(ctx, r.spec.ID, string(sig), r.ctrl.State().CurrentStep)
		r.finish(ctx, types.StateStopped, string(sig))
		return true
	}

	signal, ok := r.signals.Next(ctx, r.spec.Symbol)
	if !ok || signal.Confidence < r.spec.MinConfidence {
		return false
	}

	spec := types.ContractSpec{
		Type:          signal.ContractType,
		Symbol:        r.spec.Symbol,
		Stake:         stake,
		DurationTicks: 1,
		Currency:      "USD",
	}
	if signal.ContractType == types.ContractDigitOver || signal.ContractType == types.ContractDigitUnder {
		spec.Barrier = "5"
	}

	rec := r.ctrl.State()
	submitted := time.Now()
	op := logger.StartOperation(ctx, "contract_purchase",
		"bot_id", r.spec.ID, "symbol", r.spec.Symbol, "contract_type", string(signal.ContractType))
	result, err := r.buyWithRetry(op.GetContext(), spec)
	if err != nil {
		op.EndWithError(err)
		if types.IsFatalBrokerError(err) || errors.Is(err, types.ErrStorage) {
			logger.ErrorWithErr(ctx, "Bot halted on fatal broker error", err, "bot_id", r.spec.ID)
			r.finish(ctx, types.StateError, err.Error())
			return true
		}
		logger.Warn(ctx, "Trade attempt abandoned after retries",
			"bot_id", r.spec.ID, "error", err)
		return false
	}
	op.End("contract_id", result.ContractID)

	trade := types.TradeRecord{
		ID:             uuid.NewString(),
		BotID:          r.spec.ID,
		Symbol:         r.spec.Symbol,
		ContractType:   signal.ContractType,
		ContractID:     result.ContractID,
		Stake:          stake,
		Outcome:        result.Outcome,
		ProfitLoss:     result.Profit,
		MartingaleStep: rec.CurrentStep,
		RepeatAttempt:  rec.AttemptsAtStep,
		ExecutedAt:     time.Now().UTC(),
	}

	if err := r.ledger.Append(trade); err != nil {
		// An untracked trade would desynchronize staking from reality.
		logger.ErrorWithErr(ctx, "Bot halted on ledger failure", err, "bot_id", r.spec.ID)
		r.finish(ctx, types.StateError, "storage failure")
		return true
	}

	r.mu.Lock()
	r.balance = r.balance.Add(result.Profit)
	r.mu.Unlock()

	stakeF, _ := stake.Float64()
	metrics.RecordTrade(r.spec.Symbol, string(signal.ContractType), string(result.Outcome),
		stakeF, time.Since(submitted))
	logger.Trade(ctx, r.spec.ID, r.spec.Symbol, string(signal.ContractType),
		stake.StringFixed(2), string(result.Outcome), result.Profit.StringFixed(2), result.ContractID)

	obs := r.ctrl.Observe(trade)
	if obs == types.SignalRecoveryComplete {
		metrics.RecordControlSignal(r.spec.ID, string(obs))
		logger.Recovery(ctx, r.spec.ID, string(obs), 0,
			"session_profit", r.ctrl.SessionProfit().StringFixed(2))
	}
	metrics.SetRecoveryStep(r.spec.ID, r.ctrl.State().CurrentStep)

	if err := r.repo.SaveRecovery(r.spec.ID, r.ctrl.State()); err != nil {
		logger.ErrorWithErr(ctx, "Bot halted on recovery snapshot failure", err, "bot_id", r.spec.ID)
		r.finish(ctx, types.StateError, "storage failure")
		return true
	}

	if r.pub != nil {
		r.pub.PublishTrade(trade)
		r.pub.PublishBotStatus(r.Status())
	}
	return false
}

// buyWithRetry submits a contract, retrying transient broker failures
// with exponential backoff. The submission itself is never interrupted
// by a stop request; cancellation is honored between attempts.
func (r *Runner) buyWithRetry(ctx context.Context, spec types.ContractSpec) (types.ContractResult, error) {
	b := &backoff.Backoff{Min: 500 * time.Millisecond, Max: 5 * time.Second, Factor: 2, Jitter: true}

	var lastErr error
	for attempt := 1; attempt <= maxBuyAttempts; attempt++ {
		result, err := r.broker.Buy(context.WithoutCancel(ctx), spec)
		if err == nil {
			return result, nil
		}
		lastErr = err
		metrics.RecordBrokerError(errorKind(err))
		if types.IsFatalBrokerError(err) {
			return types.ContractResult{}, err
		}
		logger.Warn(ctx, "Contract purchase failed, retrying",
			"bot_id", r.spec.ID, "attempt", attempt, "error", err)

		select {
		case <-time.After(b.Duration()):
		case <-ctx.Done():
			return types.ContractResult{}, lastErr
		}
	}
	return types.ContractResult{}, lastErr
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, types.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, types.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, types.ErrMarketClosed):
		return "market_closed"
	case errors.Is(err, types.ErrBrokerUnavailable):
		return "broker_unavailable"
	case errors.Is(err, types.ErrStorage):
		return "storage"
	default:
		return "other"
	}
}

func (r *Runner) finish(ctx context.Context, state types.BotState, reason string) {
	r.setState(state, reason)
	logger.Info(ctx, "Bot session finished",
		"bot_id", r.spec.ID, "state", string(state), "reason", reason,
		"session_profit", r.ctrl.SessionProfit().StringFixed(2))
}
