// Package registry manages the bot fleet: creation, lifecycle
// transitions, and the per-session wiring of controller, ledger, and
// runtime loop.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/engine"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/interfaces"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/ledger"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/logger"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/persistence"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

var (
	// ErrAlreadyRunning rejects a start while a session is live.
	ErrAlreadyRunning = errors.New("bot already running")
	// ErrNeedsAcknowledge rejects resuming a finished session without an
	// explicit reset acknowledgement, since restarting zeroes the session
	// statistics.
	ErrNeedsAcknowledge = errors.New("restart requires acknowledge_reset")
)

const stopWait = 30 * time.Second

type Registry struct {
	repo    persistence.Repository
	broker  interfaces.Broker
	signals interfaces.SignalSource
	pub     interfaces.Publisher

	mu      sync.Mutex
	runners map[string]*engine.Runner
}

func New(repo persistence.Repository, broker interfaces.Broker, signals interfaces.SignalSource, pub interfaces.Publisher) *Registry {
	return &Registry{
		repo:    repo,
		broker:  broker,
		signals: signals,
		pub:     pub,
		runners: make(map[string]*engine.Runner),
	}
}

// Create validates and persists a new bot. The API token is checked
// against the broker before anything is stored.
func (r *Registry) Create(ctx context.Context, spec *types.BotSpec) (*types.BotSpec, error) {
	spec.ID = uuid.NewString()
	now := time.Now().UTC()
	spec.CreatedAt = now
	spec.UpdatedAt = now
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.BaseStake.GreaterThan(spec.TakeProfit) {
		logger.Warn(ctx, "Base stake exceeds take profit target",
			"bot_id", spec.ID, "base_stake", spec.BaseStake.String(), "take_profit", spec.TakeProfit.String())
	}

	if _, err := r.broker.Authorize(ctx, spec.APIToken); err != nil {
		return nil, err
	}

	if err := r.repo.SaveBot(spec); err != nil {
		return nil, err
	}
	logger.Info(ctx, "Bot created", "bot_id", spec.ID, "name", spec.Name, "symbol", spec.Symbol)
	return spec, nil
}

func (r *Registry) Get(id string) (*types.BotSpec, error) {
	spec, err := r.repo.LoadBot(id)
	if err != nil {
		return nil, err
	}
	if spec == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownBot, id)
	}
	return spec, nil
}

func (r *Registry) List() ([]*types.BotSpec, error) {
	return r.repo.ListBots()
}

// Start launches a session for a bot. A bot whose previous session
// already finished must be restarted with an acknowledged reset instead.
func (r *Registry) Start(ctx context.Context, id string) error {
	spec, err := r.Get(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if runner, ok := r.runners[id]; ok {
		state, _ := runner.State()
		switch state {
		case types.StateStarting, types.StateActive:
			return fmt.Errorf("%w: %s", ErrAlreadyRunning, id)
		default:
			return fmt.Errorf("%w: session for %s already finished", ErrNeedsAcknowledge, id)
		}
	}

	runner, err := r.buildRunner(spec, true)
	if err != nil {
		return err
	}
	r.runners[id] = runner
	return runner.Start(ctx)
}

// buildRunner wires a fresh session. resume reloads the persisted
// recovery snapshot so an interrupted martingale sequence continues
// where it left off.
func (r *Registry) buildRunner(spec *types.BotSpec, resume bool) (*engine.Runner, error) {
	ctrl, err := engine.NewController(spec, types.MinStake)
	if err != nil {
		return nil, err
	}
	if resume {
		if snap, err := r.repo.LoadRecovery(spec.ID); err != nil {
			return nil, err
		} else if snap != nil {
			if err := ctrl.Restore(*snap); err != nil {
				return nil, err
			}
		}
	}
	l := ledger.New(r.repo, spec.ID)
	return engine.NewRunner(spec, ctrl, r.broker, r.signals, l, r.repo, r.pub), nil
}

// Stop requests termination of a running session. The stop lands at the
// loop's next suspension point.
func (r *Registry) Stop(id string) error {
	if _, err := r.Get(id); err != nil {
		return err
	}
	r.mu.Lock()
	runner, ok := r.runners[id]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	runner.Stop()
	return nil
}

// Restart tears down any finished or running session and starts a fresh
// one with zeroed recovery state and session statistics.
func (r *Registry) Restart(ctx context.Context, id string, acknowledgeReset bool) error {
	spec, err := r.Get(id)
	if err != nil {
		return err
	}
	if !acknowledgeReset {
		return fmt.Errorf("%w: bot %s", ErrNeedsAcknowledge, id)
	}

	if err := r.teardown(id); err != nil {
		return err
	}
	if err := r.repo.DeleteRecovery(id); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	runner, err := r.buildRunner(spec, false)
	if err != nil {
		return err
	}
	r.runners[id] = runner
	logger.Info(ctx, "Bot restarted with reset session", "bot_id", id)
	return runner.Start(ctx)
}

// teardown stops a live runner and waits for it to wind down.
func (r *Registry) teardown(id string) error {
	r.mu.Lock()
	runner, ok := r.runners[id]
	delete(r.runners, id)
	r.mu.Unlock()
	if !ok {
		return nil
	}

	runner.Stop()
	select {
	case <-runner.Done():
		return nil
	case <-time.After(stopWait):
		return fmt.Errorf("bot %s did not stop within %s", id, stopWait)
	}
}

// Delete removes a bot and all of its stored state. A running session is
// stopped first.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if _, err := r.Get(id); err != nil {
		return err
	}
	if err := r.teardown(id); err != nil {
		return err
	}
	if err := r.repo.DeleteRecovery(id); err != nil {
		return err
	}
	if err := r.repo.DeleteBot(id); err != nil {
		return err
	}
	logger.Info(ctx, "Bot deleted", "bot_id", id)
	return nil
}

// Status reports the live session view, or a created-state view for a
// bot with no session this process.
func (r *Registry) Status(id string) (types.BotStatus, error) {
	spec, err := r.Get(id)
	if err != nil {
		return types.BotStatus{}, err
	}

	r.mu.Lock()
	runner, ok := r.runners[id]
	r.mu.Unlock()
	if ok {
		return runner.Status(), nil
	}
	return types.BotStatus{
		BotID: spec.ID,
		Name:  spec.Name,
		State: types.StateCreated,
	}, nil
}

// Trades returns persisted trade history, newest first.
func (r *Registry) Trades(id string, limit int) ([]types.TradeRecord, error) {
	if _, err := r.Get(id); err != nil {
		return nil, err
	}
	return r.repo.RecentTrades(id, limit)
}

// RecoveryInfo reports the martingale view, falling back to the
// persisted snapshot when no session is live.
func (r *Registry) RecoveryInfo(id string) (types.RecoveryInfo, error) {
	spec, err := r.Get(id)
	if err != nil {
		return types.RecoveryInfo{}, err
	}

	r.mu.Lock()
	runner, ok := r.runners[id]
	r.mu.Unlock()
	if ok {
		return runner.RecoveryInfo(), nil
	}

	info := types.RecoveryInfo{
		MaxLevel:        spec.MaxMartingaleSteps,
		NextStake:       spec.BaseStake,
		AmountToRecover: decimal.Zero,
	}
	if snap, err := r.repo.LoadRecovery(id); err != nil {
		return types.RecoveryInfo{}, err
	} else if snap != nil {
		info.IsRecovering = snap.IsRecovering()
		info.CurrentLevel = snap.CurrentStep
		info.AttemptsAtLevel = snap.AttemptsAtStep
		info.AmountToRecover = snap.AmountToRecover
		info.NextStake = stakeAt(spec, snap.CurrentStep)
	}
	return info, nil
}

func stakeAt(spec *types.BotSpec, step int) decimal.Decimal {
	stake := spec.BaseStake.Mul(spec.MartingaleMultiplier.Pow(decimal.NewFromInt(int64(step)))).Round(2)
	if stake.LessThan(types.MinStake) {
		return types.MinStake
	}
	return stake
}

// Shutdown stops every live session and waits for them to finish.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	runners := make([]*engine.Runner, 0, len(r.runners))
	for _, runner := range r.runners {
		runners = append(runners, runner)
	}
	r.mu.Unlock()

	for _, runner := range runners {
		runner.Stop()
	}
	for _, runner := range runners {
		select {
		case <-runner.Done():
		case <-ctx.Done():
			return
		}
	}
}
