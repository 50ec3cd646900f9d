// Package ledger maintains the append-only trade record for one bot
// session plus the aggregates derived from it.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/logger"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/persistence"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/tradelog"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

// Ledger persists every record through the repository and keeps session
// aggregates in memory. A fresh Ledger starts a fresh session: aggregates
// reset while the persisted history accumulates across sessions.
type Ledger struct {
	mu    sync.Mutex
	repo  persistence.Repository
	botID string

	stats    types.LedgerStats
	lastTime *time.Time
}

func New(repo persistence.Repository, botID string) *Ledger {
	return &Ledger{repo: repo, botID: botID}
}

// Append records a settled trade. Persistence failure leaves the
// aggregates untouched so the caller can halt without drift between the
// two views.
func (l *Ledger) Append(rec types.TradeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.repo.AppendTrade(rec); err != nil {
		return fmt.Errorf("append trade: %w", err)
	}
	if err := tradelog.Append(rec); err != nil {
		logger.Warn(context.Background(), "Trade journal write failed",
			"bot_id", l.botID, "error", err)
	}

	switch rec.Outcome {
	case types.OutcomeWin:
		l.stats.Wins++
		if l.stats.StreakOutcome == types.OutcomeWin {
			l.stats.Streak++
		} else {
			l.stats.StreakOutcome = types.OutcomeWin
			l.stats.Streak = 1
		}
		if l.stats.Streak > l.stats.BestWinStreak {
			l.stats.BestWinStreak = l.stats.Streak
		}
	case types.OutcomeLoss:
		l.stats.Losses++
		if l.stats.StreakOutcome == types.OutcomeLoss {
			l.stats.Streak++
		} else {
			l.stats.StreakOutcome = types.OutcomeLoss
			l.stats.Streak = 1
		}
	}
	l.stats.TotalProfit = l.stats.TotalProfit.Add(rec.ProfitLoss)
	t := rec.ExecutedAt
	l.lastTime = &t
	return nil
}

func (l *Ledger) Stats() types.LedgerStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Recent returns up to limit persisted records, newest first. History
// spans sessions.
func (l *Ledger) Recent(limit int) ([]types.TradeRecord, error) {
	return l.repo.RecentTrades(l.botID, limit)
}

// LastTradeTime is the execution time of the most recent trade this
// session, nil before the first one.
func (l *Ledger) LastTradeTime() *time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastTime
}
