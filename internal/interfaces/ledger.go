package interfaces

import (
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

// Ledger is the append-only trade record for one bot session.
type Ledger interface {
	// Append records a settled trade. A storage error here is fatal to
	// the session; callers must halt rather than continue untracked.
	Append(rec types.TradeRecord) error
	Stats() types.LedgerStats
	Recent(limit int) ([]types.TradeRecord, error)
}
