package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/persistence"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

func testCfg() Config {
	return Config{WindowSize: 100, MinSample: 20, ParityMargin: 10, OverUnderMargin: 15}
}

func ticksWithDigits(digits []int) []types.Tick {
	ticks := make([]types.Tick, len(digits))
	for i, d := range digits {
		ticks[i] = types.Tick{
			Symbol:    "R_100",
			Price:     1000 + float64(i),
			Epoch:     int64(1700000000 + i),
			LastDigit: d,
		}
	}
	return ticks
}

func TestEvenDominanceSignalsOddCorrection(t *testing.T) {
	// 80% even digits over 40 ticks.
	digits := make([]int, 0, 40)
	for i := 0; i < 32; i++ {
		digits = append(digits, 2)
	}
	for i := 0; i < 8; i++ {
		digits = append(digits, 3)
	}
	report := Analyze(testCfg(), "R_100", ticksWithDigits(digits))

	assert.InDelta(t, 80, report.EvenPercent, 0.01)
	sig, ok := report.Best()
	require.True(t, ok)
	assert.Equal(t, types.ContractDigitOdd, sig.ContractType)
	// margin 60 -> 50 + 60*0.8 = 98, capped at 95.
	assert.InDelta(t, 95, sig.Confidence, 0.01)
	assert.Equal(t, []int{1, 3, 5, 7, 9}, sig.WinningDigits)
}

func TestOverDominanceSignalsUnderCorrection(t *testing.T) {
	// Parity balanced, over-5 dominant: alternate 7 and 8.
	digits := make([]int, 0, 40)
	for i := 0; i < 40; i++ {
		if i%2 == 0 {
			digits = append(digits, 7)
		} else {
			digits = append(digits, 8)
		}
	}
	report := Analyze(testCfg(), "R_100", ticksWithDigits(digits))

	assert.InDelta(t, 100, report.OverPercent, 0.01)
	sig, ok := report.Best()
	require.True(t, ok)
	assert.Equal(t, types.ContractDigitUnder, sig.ContractType)
	// margin 100 -> capped at 95.
	assert.InDelta(t, 95, sig.Confidence, 0.01)
}

func TestBalancedWindowFallsBackToTrend(t *testing.T) {
	// Even/odd and over/under both balanced; last ten ticks lean even
	// and over, so both fallbacks bet the correction.
	digits := make([]int, 0, 40)
	for i := 0; i < 30; i++ {
		digits = append(digits, []int{3, 8, 4, 7}[i%4])
	}
	digits = append(digits, 0, 2, 4, 6, 8, 6, 3, 7, 9, 5)
	report := Analyze(testCfg(), "R_100", ticksWithDigits(digits))

	require.Len(t, report.Signals, 2)
	sig, ok := report.Best()
	require.True(t, ok)
	assert.Equal(t, types.ContractDigitOdd, sig.ContractType)
	assert.InDelta(t, 55, sig.Confidence, 0.01)

	assert.Equal(t, types.ContractDigitUnder, report.Signals[1].ContractType)
	assert.InDelta(t, 52, report.Signals[1].Confidence, 0.01)
}

func TestDigitFiveCountsForNeitherSide(t *testing.T) {
	// 40% over, 40% under, 20% fives: no dominance either way, so the
	// over/under prediction comes from the trend fallback.
	digits := make([]int, 0, 40)
	for i := 0; i < 16; i++ {
		digits = append(digits, 7)
	}
	for i := 0; i < 16; i++ {
		digits = append(digits, 2)
	}
	for i := 0; i < 8; i++ {
		digits = append(digits, 5)
	}
	report := Analyze(testCfg(), "R_100", ticksWithDigits(digits))

	assert.InDelta(t, 40, report.OverPercent, 0.01)
	assert.InDelta(t, 40, report.UnderPercent, 0.01)
	assert.InDelta(t, 20, report.FivePercent, 0.01)

	// Odd dominance (60%) carries the parity signal at 66; the trailing
	// under-leaning ticks make the fallback bet over at 52.
	sig, ok := report.Best()
	require.True(t, ok)
	assert.Equal(t, types.ContractDigitEven, sig.ContractType)
	assert.InDelta(t, 66, sig.Confidence, 0.01)

	assert.Equal(t, types.ContractDigitOver, report.Signals[1].ContractType)
	assert.InDelta(t, 52, report.Signals[1].Confidence, 0.01)
}

func TestMatchDifferOnStretchedDigit(t *testing.T) {
	report := Analyze(testCfg(), "R_100", ticksWithDigits(pattern40()))

	md := report.MatchDiffer
	require.NotNil(t, md)
	// Digit 2 holds 80% of the window; the match bet goes to the least
	// frequent digit with the unseen-digit tie falling to 9.
	assert.Equal(t, 9, md.MatchDigit)
	assert.InDelta(t, 80, md.MatchConfidence, 0.01)
	assert.InDelta(t, 95, md.DifferConfidence, 0.01)
}

func TestMatchDifferOnBalancedWindow(t *testing.T) {
	// No digit above 15%; digit 7 trends in the last twenty ticks.
	digits := make([]int, 0, 40)
	for c := 0; c < 3; c++ {
		for d := 0; d < 10; d++ {
			digits = append(digits, d)
		}
	}
	digits = append(digits, 7, 7, 2, 3, 4, 5, 6, 1, 8, 9)
	report := Analyze(testCfg(), "R_100", ticksWithDigits(digits))

	md := report.MatchDiffer
	require.NotNil(t, md)
	assert.Equal(t, 7, md.MatchDigit)
	assert.InDelta(t, 58, md.MatchConfidence, 0.01)
	assert.InDelta(t, 52, md.DifferConfidence, 0.01)
}

func TestSmallSampleYieldsNoSignals(t *testing.T) {
	report := Analyze(testCfg(), "R_100", ticksWithDigits([]int{2, 4, 6}))
	assert.Equal(t, 3, report.SampleSize)
	assert.Empty(t, report.Signals)
	assert.Nil(t, report.MatchDiffer)
	_, ok := report.Best()
	assert.False(t, ok)
}

func TestHotAndColdDigits(t *testing.T) {
	digits := []int{5, 5, 5, 5, 1, 2, 3, 4, 6, 7, 8, 9, 0, 1, 2, 3, 4, 6, 7, 8, 9, 0}
	report := Analyze(testCfg(), "R_100", ticksWithDigits(digits))
	assert.Equal(t, []int{5}, report.HotDigits)
}

func TestServiceReadsPersistedTicks(t *testing.T) {
	repo, err := persistence.NewBadgerRepository("", true)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	t.Setenv("TRADER_LOG_DIR", t.TempDir())

	for i, tick := range ticksWithDigits(pattern40()) {
		_ = i
		require.NoError(t, repo.SaveTick(tick, time.Minute))
	}

	svc := NewService(testCfg(), time.Second, repo)
	sig, ok := svc.Next(context.Background(), "R_100")
	require.True(t, ok)
	assert.Equal(t, types.ContractDigitOdd, sig.ContractType)
}

func pattern40() []int {
	digits := make([]int, 0, 40)
	for i := 0; i < 32; i++ {
		digits = append(digits, 2)
	}
	for i := 0; i < 8; i++ {
		digits = append(digits, 3)
	}
	return digits
}
