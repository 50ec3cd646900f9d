package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

func testSpec() *types.BotSpec {
	spec := &types.BotSpec{
		ID:                    "bot-1",
		Name:                  "test",
		APIToken:              "token",
		Symbol:                "R_100",
		BaseStake:             decimal.NewFromInt(1),
		MartingaleMultiplier:  decimal.NewFromInt(2),
		MaxMartingaleSteps:    3,
		RepeatAttemptsPerStep: 1,
		TakeProfit:            decimal.NewFromInt(10),
		StopLoss:              decimal.NewFromInt(100),
		TradeInterval:         3 * time.Second,
		MinConfidence:         55,
	}
	return spec
}

func newTestController(t *testing.T, spec *types.BotSpec) *Controller {
	t.Helper()
	c, err := NewController(spec, types.MinStake)
	require.NoError(t, err)
	return c
}

func loss(stake decimal.Decimal, step int) types.TradeRecord {
	return types.TradeRecord{
		BotID:          "bot-1",
		Stake:          stake,
		Outcome:        types.OutcomeLoss,
		ProfitLoss:     stake.Neg(),
		MartingaleStep: step,
		ExecutedAt:     time.Now().UTC(),
	}
}

func win(stake, profit decimal.Decimal, step int) types.TradeRecord {
	return types.TradeRecord{
		BotID:          "bot-1",
		Stake:          stake,
		Outcome:        types.OutcomeWin,
		ProfitLoss:     profit,
		MartingaleStep: step,
		ExecutedAt:     time.Now().UTC(),
	}
}

func TestStakeDoublesPerStepUntilMaxSteps(t *testing.T) {
	c := newTestController(t, testSpec())

	want := []string{"1", "2", "4", "8"}
	for i, w := range want {
		stake, sig := c.NextStake()
		require.Equal(t, types.SignalNone, sig, "cycle %d", i)
		assert.True(t, stake.Equal(decimal.RequireFromString(w)),
			"cycle %d: want %s got %s", i, w, stake)
		assert.Equal(t, types.SignalNone, c.Observe(loss(stake, i)))
	}

	// Fifth cycle never stakes.
	stake, sig := c.NextStake()
	assert.Equal(t, types.SignalMaxSteps, sig)
	assert.True(t, stake.IsZero())
}

func TestMaxStepsSignalIsSticky(t *testing.T) {
	c := newTestController(t, testSpec())
	for i := 0; i < 4; i++ {
		stake, _ := c.NextStake()
		c.Observe(loss(stake, i))
	}
	for i := 0; i < 3; i++ {
		_, sig := c.NextStake()
		assert.Equal(t, types.SignalMaxSteps, sig)
	}
}

func TestWinClearingDeficitResetsAndSignalsRecoveryComplete(t *testing.T) {
	c := newTestController(t, testSpec())

	stake, sig := c.NextStake()
	require.Equal(t, types.SignalNone, sig)
	require.True(t, stake.Equal(decimal.NewFromInt(1)))
	require.Equal(t, types.SignalNone, c.Observe(loss(stake, 0)))

	st := c.State()
	assert.Equal(t, 1, st.CurrentStep)
	assert.True(t, st.AmountToRecover.Equal(decimal.NewFromInt(1)))

	stake, sig = c.NextStake()
	require.Equal(t, types.SignalNone, sig)
	require.True(t, stake.Equal(decimal.NewFromInt(2)))

	sig = c.Observe(win(stake, decimal.NewFromInt(2), 1))
	assert.Equal(t, types.SignalRecoveryComplete, sig)

	st = c.State()
	assert.Equal(t, 0, st.CurrentStep)
	assert.Equal(t, 0, st.AttemptsAtStep)
	assert.True(t, st.AmountToRecover.IsZero())
	assert.False(t, st.IsRecovering())
}

func TestWinAtBaseStepFullyResets(t *testing.T) {
	c := newTestController(t, testSpec())

	stake, _ := c.NextStake()
	sig := c.Observe(win(stake, decimal.RequireFromString("0.95"), 0))
	assert.Equal(t, types.SignalNone, sig)
	st := c.State()
	assert.Equal(t, 0, st.CurrentStep)
	assert.True(t, st.AmountToRecover.IsZero())
}

func TestPartialRecoveryHoldsStepAndResetsAttempts(t *testing.T) {
	spec := testSpec()
	spec.RepeatAttemptsPerStep = 2
	c := newTestController(t, spec)

	// Two losses at step 0 move to step 1 with 2.00 to recover.
	c.Observe(loss(decimal.NewFromInt(1), 0))
	c.Observe(loss(decimal.NewFromInt(1), 0))
	st := c.State()
	require.Equal(t, 1, st.CurrentStep)
	require.True(t, st.AmountToRecover.Equal(decimal.NewFromInt(2)))

	// One more loss at step 1 puts an attempt on the board.
	c.Observe(loss(decimal.NewFromInt(2), 1))
	st = c.State()
	require.Equal(t, 1, st.AttemptsAtStep)

	// A small win leaves a deficit: step holds, attempts restart.
	sig := c.Observe(win(decimal.NewFromInt(2), decimal.NewFromInt(1), 1))
	assert.Equal(t, types.SignalNone, sig)
	st = c.State()
	assert.Equal(t, 1, st.CurrentStep)
	assert.Equal(t, 0, st.AttemptsAtStep)
	assert.True(t, st.AmountToRecover.Equal(decimal.NewFromInt(3)))
	assert.True(t, st.IsRecovering())
}

func TestRepeatAttemptsHoldStepBeforeEscalating(t *testing.T) {
	spec := testSpec()
	spec.RepeatAttemptsPerStep = 2
	c := newTestController(t, spec)

	stake, _ := c.NextStake()
	require.True(t, stake.Equal(decimal.NewFromInt(1)))
	c.Observe(loss(stake, 0))

	// Second attempt at the same step, same stake.
	stake, sig := c.NextStake()
	require.Equal(t, types.SignalNone, sig)
	assert.True(t, stake.Equal(decimal.NewFromInt(1)))
	c.Observe(loss(stake, 0))

	stake, _ = c.NextStake()
	assert.True(t, stake.Equal(decimal.NewFromInt(2)))
}

func TestTakeProfitGuardStopsBeforeNextStake(t *testing.T) {
	c := newTestController(t, testSpec())

	// Ten wins of exactly one unit each reach the target exactly.
	for i := 0; i < 10; i++ {
		stake, sig := c.NextStake()
		require.Equal(t, types.SignalNone, sig)
		c.Observe(win(stake, decimal.NewFromInt(1), 0))
	}

	stake, sig := c.NextStake()
	assert.Equal(t, types.SignalTakeProfit, sig)
	assert.True(t, stake.IsZero())
	assert.True(t, c.SessionProfit().Equal(decimal.NewFromInt(10)))
}

func TestStopLossGuardStopsBeforeNextStake(t *testing.T) {
	spec := testSpec()
	spec.StopLoss = decimal.NewFromInt(10)
	spec.MaxMartingaleSteps = 10
	c := newTestController(t, spec)

	// Losses 1+2+4+8 = 15 breach the 10 limit.
	for i := 0; i < 4; i++ {
		stake, sig := c.NextStake()
		require.Equal(t, types.SignalNone, sig, "cycle %d", i)
		c.Observe(loss(stake, i))
	}

	stake, sig := c.NextStake()
	assert.Equal(t, types.SignalStopLoss, sig)
	assert.True(t, stake.IsZero())
}

func TestStakeRoundingAndFloor(t *testing.T) {
	spec := testSpec()
	spec.BaseStake = decimal.RequireFromString("0.35")
	spec.MartingaleMultiplier = decimal.RequireFromString("1.1")
	c := newTestController(t, spec)

	// 0.35 * 1.1 = 0.385, rounds half-up to 0.39.
	c.Observe(loss(decimal.RequireFromString("0.35"), 0))
	stake, _ := c.NextStake()
	assert.True(t, stake.Equal(decimal.RequireFromString("0.39")), "got %s", stake)
}

func TestRestoreResumesRecoveryState(t *testing.T) {
	c := newTestController(t, testSpec())

	err := c.Restore(types.RecoveryState{
		CurrentStep:     2,
		AttemptsAtStep:  0,
		AmountToRecover: decimal.NewFromInt(3),
	})
	require.NoError(t, err)

	stake, sig := c.NextStake()
	require.Equal(t, types.SignalNone, sig)
	assert.True(t, stake.Equal(decimal.NewFromInt(4)))
}

func TestRestoreRejectsStepBeyondCeiling(t *testing.T) {
	c := newTestController(t, testSpec())
	err := c.Restore(types.RecoveryState{CurrentStep: 7})
	assert.ErrorIs(t, err, types.ErrInvalidConfiguration)
}

func TestResetClearsSession(t *testing.T) {
	c := newTestController(t, testSpec())
	for i := 0; i < 4; i++ {
		stake, _ := c.NextStake()
		c.Observe(loss(stake, i))
	}
	_, sig := c.NextStake()
	require.Equal(t, types.SignalMaxSteps, sig)

	c.Reset()
	stake, sig := c.NextStake()
	assert.Equal(t, types.SignalNone, sig)
	assert.True(t, stake.Equal(decimal.NewFromInt(1)))
	assert.True(t, c.SessionProfit().IsZero())
}

func TestControllerRejectsInvalidSpec(t *testing.T) {
	spec := testSpec()
	spec.BaseStake = decimal.NewFromInt(5000)
	_, err := NewController(spec, types.MinStake)
	assert.ErrorIs(t, err, types.ErrInvalidConfiguration)
}
