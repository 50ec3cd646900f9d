// Package reporter renders console summaries of the bot fleet.
package reporter

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

type Reporter struct {
	out io.Writer
}

func New() *Reporter { return &Reporter{out: os.Stdout} }

func NewWithWriter(w io.Writer) *Reporter { return &Reporter{out: w} }

// FleetSummary prints one row per bot with its session aggregates.
func (r *Reporter) FleetSummary(statuses []types.BotStatus) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("Bot Sessions")
	t.AppendHeader(table.Row{"Bot", "State", "Trades", "Win Rate", "Profit", "Step", "Reason"})
	for _, s := range statuses {
		profit := s.TotalProfit.StringFixed(2)
		t.AppendRow(table.Row{
			s.Name,
			string(s.State),
			s.TotalTrades,
			fmt.Sprintf("%.1f%%", s.WinRate),
			profit,
			s.MartingaleLevel,
			s.Reason,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Profit", Align: text.AlignRight},
		{Name: "Trades", Align: text.AlignRight},
	})
	t.Render()
}

// TradeHistory prints the most recent trades of one bot.
func (r *Reporter) TradeHistory(name string, trades []types.TradeRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(fmt.Sprintf("Trades: %s", name))
	t.AppendHeader(table.Row{"Time", "Contract", "Stake", "Outcome", "P/L", "Step"})
	for _, tr := range trades {
		t.AppendRow(table.Row{
			tr.ExecutedAt.Format("15:04:05"),
			string(tr.ContractType),
			tr.Stake.StringFixed(2),
			string(tr.Outcome),
			tr.ProfitLoss.StringFixed(2),
			tr.MartingaleStep,
		})
	}
	t.Render()
}
