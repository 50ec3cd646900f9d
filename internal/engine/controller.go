// Package engine holds the recovery-staking controller and the per-bot
// runtime loop that drives it.
package engine

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

// Controller owns the martingale recovery state for one bot session. It
// sizes the next stake, applies settled outcomes, and raises control
// signals when a session guard trips. All methods are safe for concurrent
// use, though each bot drives its controller from a single loop.
type Controller struct {
	mu sync.Mutex

	baseStake  decimal.Decimal
	multiplier decimal.Decimal
	maxSteps   int
	repeatPer  int
	takeProfit decimal.Decimal
	stopLoss   decimal.Decimal
	minStake   decimal.Decimal

	state         types.RecoveryState
	sessionProfit decimal.Decimal
	exhausted     bool
}

// NewController builds a controller from a validated spec. minStake is the
// broker's floor for a single stake.
func NewController(spec *types.BotSpec, minStake decimal.Decimal) (*Controller, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		baseStake:  spec.BaseStake,
		multiplier: spec.MartingaleMultiplier,
		maxSteps:   spec.MaxMartingaleSteps,
		repeatPer:  spec.RepeatAttemptsPerStep,
		takeProfit: spec.TakeProfit,
		stopLoss:   spec.StopLoss,
		minStake:   minStake,
	}, nil
}

// stakeAt sizes the stake for a step: base * multiplier^step, rounded
// half-up to cents, never below the broker floor.
func (c *Controller) stakeAt(step int) decimal.Decimal {
	stake := c.baseStake.Mul(c.multiplier.Pow(decimal.NewFromInt(int64(step)))).Round(2)
	if stake.LessThan(c.minStake) {
		return c.minStake
	}
	return stake
}

// NextStake returns the stake for the next trade, or a terminal control
// signal with a zero stake. Guards are checked before any stake is
// issued, so a tripped guard never lets one more trade through.
func (c *Controller) NextStake() (decimal.Decimal, types.ControlSignal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionProfit.GreaterThanOrEqual(c.takeProfit) {
		return decimal.Zero, types.SignalTakeProfit
	}
	if c.sessionProfit.Neg().GreaterThanOrEqual(c.stopLoss) {
		return decimal.Zero, types.SignalStopLoss
	}
	if c.exhausted {
		return decimal.Zero, types.SignalMaxSteps
	}
	return c.stakeAt(c.state.CurrentStep), types.SignalNone
}

// Observe applies a settled trade. It returns SignalRecoveryComplete when
// a win clears the accumulated deficit; session guards are reported by
// the next NextStake call, never from here.
func (c *Controller) Observe(rec types.TradeRecord) types.ControlSignal {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessionProfit = c.sessionProfit.Add(rec.ProfitLoss)

	switch rec.Outcome {
	case types.OutcomeWin:
		if c.state.CurrentStep == 0 {
			c.state = types.RecoveryState{}
			return types.SignalNone
		}
		c.state.AmountToRecover = c.state.AmountToRecover.Sub(rec.ProfitLoss)
		if c.state.AmountToRecover.LessThanOrEqual(decimal.Zero) {
			c.state = types.RecoveryState{}
			return types.SignalRecoveryComplete
		}
		// Partial recovery: hold the step, restart its attempt count.
		c.state.AttemptsAtStep = 0
		return types.SignalNone

	case types.OutcomeLoss:
		c.state.AmountToRecover = c.state.AmountToRecover.Add(rec.Stake)
		c.state.AttemptsAtStep++
		if c.state.AttemptsAtStep >= c.repeatPer {
			if c.state.CurrentStep >= c.maxSteps {
				c.exhausted = true
			} else {
				c.state.CurrentStep++
				c.state.AttemptsAtStep = 0
			}
		}
	}
	return types.SignalNone
}

// State returns a snapshot of the recovery state.
func (c *Controller) State() types.RecoveryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Restore replaces the recovery state, used when resuming a persisted
// session. The exhausted flag is recomputed from the restored step.
func (c *Controller) Restore(state types.RecoveryState) error {
	if state.CurrentStep < 0 || state.CurrentStep > c.maxSteps {
		return fmt.Errorf("%w: restored step %d outside [0, %d]",
			types.ErrInvalidConfiguration, state.CurrentStep, c.maxSteps)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	c.exhausted = state.CurrentStep >= c.maxSteps && state.AttemptsAtStep >= c.repeatPer
	return nil
}

// Reset clears the recovery state and session aggregates, as when a
// stopped bot restarts with an acknowledged reset.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = types.RecoveryState{}
	c.sessionProfit = decimal.Zero
	c.exhausted = false
}

// SessionProfit is the cumulative profit of the current session.
func (c *Controller) SessionProfit() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionProfit
}

// MaxSteps is the configured recovery ceiling.
func (c *Controller) MaxSteps() int { return c.maxSteps }

// PreviewStake sizes the stake the controller would issue next without
// consulting the session guards.
func (c *Controller) PreviewStake() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stakeAt(c.state.CurrentStep)
}
