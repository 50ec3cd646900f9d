package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/persistence"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	repo, err := persistence.NewBadgerRepository("", true)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return New(repo, "bot-1")
}

func record(outcome types.Outcome, profit string) types.TradeRecord {
	return types.TradeRecord{
		ID:         "t-" + profit,
		BotID:      "bot-1",
		Symbol:     "R_100",
		Stake:      decimal.NewFromInt(1),
		Outcome:    outcome,
		ProfitLoss: decimal.RequireFromString(profit),
		ExecutedAt: time.Now().UTC(),
	}
}

func TestAppendUpdatesAggregates(t *testing.T) {
	l := newTestLedger(t)

	require.NoError(t, l.Append(record(types.OutcomeWin, "0.95")))
	require.NoError(t, l.Append(record(types.OutcomeLoss, "-1")))
	require.NoError(t, l.Append(record(types.OutcomeWin, "0.95")))
	require.NoError(t, l.Append(record(types.OutcomeWin, "0.95")))

	stats := l.Stats()
	assert.Equal(t, 3, stats.Wins)
	assert.Equal(t, 1, stats.Losses)
	assert.Equal(t, 4, stats.TotalTrades())
	assert.InDelta(t, 75.0, stats.WinRate(), 0.001)
	assert.True(t, stats.TotalProfit.Equal(decimal.RequireFromString("1.85")),
		"got %s", stats.TotalProfit)
	assert.Equal(t, 2, stats.Streak)
	assert.Equal(t, types.OutcomeWin, stats.StreakOutcome)
	assert.Equal(t, 2, stats.BestWinStreak)
}

func TestStreakFlipsOnOutcomeChange(t *testing.T) {
	l := newTestLedger(t)

	require.NoError(t, l.Append(record(types.OutcomeLoss, "-1")))
	require.NoError(t, l.Append(record(types.OutcomeLoss, "-2")))
	stats := l.Stats()
	assert.Equal(t, 2, stats.Streak)
	assert.Equal(t, types.OutcomeLoss, stats.StreakOutcome)

	require.NoError(t, l.Append(record(types.OutcomeWin, "3.8")))
	stats = l.Stats()
	assert.Equal(t, 1, stats.Streak)
	assert.Equal(t, types.OutcomeWin, stats.StreakOutcome)
}

func TestRecentReadsPersistedHistory(t *testing.T) {
	l := newTestLedger(t)

	require.NoError(t, l.Append(record(types.OutcomeWin, "0.95")))
	require.NoError(t, l.Append(record(types.OutcomeLoss, "-1")))

	trades, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, types.OutcomeLoss, trades[0].Outcome)
}

func TestFreshLedgerStartsEmpty(t *testing.T) {
	l := newTestLedger(t)

	stats := l.Stats()
	assert.Equal(t, 0, stats.TotalTrades())
	assert.True(t, stats.TotalProfit.IsZero())
	assert.Nil(t, l.LastTradeTime())
	assert.Equal(t, 0.0, stats.WinRate())
}
