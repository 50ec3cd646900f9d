package reporter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

func TestFleetSummaryRendersRows(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithWriter(&buf)

	r.FleetSummary([]types.BotStatus{
		{
			Name:        "even bot",
			State:       types.StateStopped,
			TotalTrades: 12,
			WinRate:     58.3,
			TotalProfit: decimal.RequireFromString("4.20"),
			Reason:      "STOP_TAKE_PROFIT",
		},
	})

	out := buf.String()
	for _, want := range []string{"even bot", "STOPPED", "58.3%", "4.20", "STOP_TAKE_PROFIT"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestTradeHistoryRendersRows(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithWriter(&buf)

	r.TradeHistory("even bot", []types.TradeRecord{
		{
			ContractType:   types.ContractDigitEven,
			Stake:          decimal.NewFromInt(2),
			Outcome:        types.OutcomeWin,
			ProfitLoss:     decimal.RequireFromString("1.90"),
			MartingaleStep: 1,
			ExecutedAt:     time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		},
	})

	out := buf.String()
	for _, want := range []string{"DIGITEVEN", "2.00", "WIN", "1.90", "09:30:00"} {
		if !strings.Contains(out, want) {
			t.Errorf("history missing %q:\n%s", want, out)
		}
	}
}
