package registry

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/broker/sim"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/persistence"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

type noSignals struct{}

func (noSignals) Next(ctx context.Context, symbol string) (types.Signal, bool) {
	return types.Signal{}, false
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	repo, err := persistence.NewBadgerRepository("", true)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return New(repo, sim.New(sim.WithSeed(1)), noSignals{}, nil)
}

func newBotSpec() *types.BotSpec {
	return &types.BotSpec{
		Name:       "even bot",
		APIToken:   "demo-token",
		Symbol:     "R_100",
		BaseStake:  decimal.NewFromInt(1),
		TakeProfit: decimal.NewFromInt(10),
		StopLoss:   decimal.NewFromInt(50),
	}
}

func TestCreateAssignsIDAndDefaults(t *testing.T) {
	r := newTestRegistry(t)

	spec, err := r.Create(context.Background(), newBotSpec())
	require.NoError(t, err)
	assert.NotEmpty(t, spec.ID)
	assert.Equal(t, 5, spec.MaxMartingaleSteps)
	assert.Equal(t, 1, spec.RepeatAttemptsPerStep)
	assert.True(t, spec.MartingaleMultiplier.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, types.DefaultTradeInterval, spec.TradeInterval)

	loaded, err := r.Get(spec.ID)
	require.NoError(t, err)
	assert.Equal(t, spec.Name, loaded.Name)
}

func TestCreateRejectsInvalidSpec(t *testing.T) {
	r := newTestRegistry(t)

	bad := newBotSpec()
	bad.Symbol = "NASDAQ"
	_, err := r.Create(context.Background(), bad)
	assert.ErrorIs(t, err, types.ErrInvalidConfiguration)
}

func TestCreateRejectsBadToken(t *testing.T) {
	r := newTestRegistry(t)

	bad := newBotSpec()
	bad.APIToken = ""
	_, err := r.Create(context.Background(), bad)
	assert.ErrorIs(t, err, types.ErrInvalidConfiguration)
}

func TestGetUnknownBot(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Get("missing")
	assert.ErrorIs(t, err, types.ErrUnknownBot)
}

func TestStartStopLifecycle(t *testing.T) {
	r := newTestRegistry(t)
	spec, err := r.Create(context.Background(), newBotSpec())
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background(), spec.ID))

	// Double start conflicts while the session is live.
	err = r.Start(context.Background(), spec.ID)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, r.Stop(spec.ID))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		status, err := r.Status(spec.ID)
		require.NoError(t, err)
		if status.State == types.StateStopped {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("bot did not reach STOPPED")
}

func TestStartAfterFinishedSessionNeedsAcknowledge(t *testing.T) {
	r := newTestRegistry(t)
	spec, err := r.Create(context.Background(), newBotSpec())
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background(), spec.ID))
	require.NoError(t, r.Stop(spec.ID))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		status, _ := r.Status(spec.ID)
		if status.State == types.StateStopped {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	err = r.Start(context.Background(), spec.ID)
	assert.ErrorIs(t, err, ErrNeedsAcknowledge)
}

func TestRestartRequiresAcknowledge(t *testing.T) {
	r := newTestRegistry(t)
	spec, err := r.Create(context.Background(), newBotSpec())
	require.NoError(t, err)

	err = r.Restart(context.Background(), spec.ID, false)
	assert.ErrorIs(t, err, ErrNeedsAcknowledge)

	require.NoError(t, r.Restart(context.Background(), spec.ID, true))
	status, err := r.Status(spec.ID)
	require.NoError(t, err)
	assert.Contains(t, []types.BotState{types.StateStarting, types.StateActive}, status.State)

	require.NoError(t, r.Stop(spec.ID))
}

func TestRestartClearsRecoverySnapshot(t *testing.T) {
	r := newTestRegistry(t)
	spec, err := r.Create(context.Background(), newBotSpec())
	require.NoError(t, err)

	require.NoError(t, r.repo.SaveRecovery(spec.ID, types.RecoveryState{
		CurrentStep:     2,
		AmountToRecover: decimal.NewFromInt(3),
	}))

	require.NoError(t, r.Restart(context.Background(), spec.ID, true))
	defer r.Stop(spec.ID)

	info, err := r.RecoveryInfo(spec.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, info.CurrentLevel)
	assert.False(t, info.IsRecovering)
}

func TestDeleteRemovesBotAndState(t *testing.T) {
	r := newTestRegistry(t)
	spec, err := r.Create(context.Background(), newBotSpec())
	require.NoError(t, err)

	require.NoError(t, r.Delete(context.Background(), spec.ID))
	_, err = r.Get(spec.ID)
	assert.ErrorIs(t, err, types.ErrUnknownBot)
}

func TestRecoveryInfoFromPersistedSnapshot(t *testing.T) {
	r := newTestRegistry(t)
	spec, err := r.Create(context.Background(), newBotSpec())
	require.NoError(t, err)

	require.NoError(t, r.repo.SaveRecovery(spec.ID, types.RecoveryState{
		CurrentStep:     2,
		AttemptsAtStep:  0,
		AmountToRecover: decimal.NewFromInt(3),
	}))

	info, err := r.RecoveryInfo(spec.ID)
	require.NoError(t, err)
	assert.True(t, info.IsRecovering)
	assert.Equal(t, 2, info.CurrentLevel)
	assert.Equal(t, 5, info.MaxLevel)
	assert.True(t, info.NextStake.Equal(decimal.NewFromInt(4)))
}
