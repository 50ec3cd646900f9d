package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome is the settled result of a digit contract.
type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
)

// ContractType is a Deriv digit contract type.
type ContractType string

const (
	ContractDigitEven  ContractType = "DIGITEVEN"
	ContractDigitOdd   ContractType = "DIGITODD"
	ContractDigitOver  ContractType = "DIGITOVER"
	ContractDigitUnder ContractType = "DIGITUNDER"
)

// Tick is a single price update from the broker. LastDigit is the final
// digit of the quote with the decimal point removed (7678.08 -> 8).
type Tick struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Epoch     int64   `json:"epoch"`
	LastDigit int     `json:"last_digit"`
}

func (t Tick) Time() time.Time { return time.Unix(t.Epoch, 0).UTC() }

// Signal is a trading direction produced by the analysis collaborator.
type Signal struct {
	Symbol        string       `json:"symbol"`
	ContractType  ContractType `json:"contract_type"`
	Confidence    float64      `json:"confidence"`
	Reason        string       `json:"reason"`
	WinningDigits []int        `json:"winning_digits"`
}

// ContractSpec describes a contract purchase request.
type ContractSpec struct {
	Type          ContractType
	Symbol        string
	Stake         decimal.Decimal
	DurationTicks int
	Barrier       string
	Currency      string
}

// ContractResult is the settled outcome of a purchased contract.
type ContractResult struct {
	ContractID string
	Outcome    Outcome
	Payout     decimal.Decimal
	Profit     decimal.Decimal
}

// AccountInfo describes a broker account as returned by authorize.
type AccountInfo struct {
	LoginID   string          `json:"loginid"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	IsVirtual bool            `json:"is_virtual"`
}

// TradeRecord is the immutable record of one executed trade. It is appended
// to the ledger by the runtime loop after fill confirmation, never mutated.
type TradeRecord struct {
	ID             string          `json:"id"`
	BotID          string          `json:"bot_id"`
	Symbol         string          `json:"symbol"`
	ContractType   ContractType    `json:"contract_type"`
	ContractID     string          `json:"contract_id,omitempty"`
	Stake          decimal.Decimal `json:"stake"`
	Outcome        Outcome         `json:"outcome"`
	ProfitLoss     decimal.Decimal `json:"profit_loss"`
	MartingaleStep int             `json:"martingale_step"`
	RepeatAttempt  int             `json:"repeat_attempt"`
	ExecutedAt     time.Time       `json:"executed_at"`
}

// RecoveryState is the mutable martingale state owned by the controller.
// CurrentStep 0 means at base stake, not recovering.
type RecoveryState struct {
	CurrentStep     int             `json:"current_step"`
	AttemptsAtStep  int             `json:"attempts_at_step"`
	AmountToRecover decimal.Decimal `json:"amount_to_recover"`
}

func (s RecoveryState) IsRecovering() bool { return s.CurrentStep > 0 }

// ControlSignal is emitted by the controller alongside (or instead of) a
// stake. Terminal signals are successful termination reasons, not errors.
type ControlSignal string

const (
	SignalNone             ControlSignal = ""
	SignalRecoveryComplete ControlSignal = "RECOVERY_COMPLETE"
	SignalTakeProfit       ControlSignal = "STOP_TAKE_PROFIT"
	SignalStopLoss         ControlSignal = "STOP_STOP_LOSS"
	SignalMaxSteps         ControlSignal = "MAX_STEPS_EXCEEDED"
)

func (s ControlSignal) Terminal() bool {
	switch s {
	case SignalTakeProfit, SignalStopLoss, SignalMaxSteps:
		return true
	}
	return false
}

// BotState is the runtime lifecycle state of a bot.
type BotState string

const (
	StateCreated  BotState = "CREATED"
	StateStarting BotState = "STARTING"
	StateActive   BotState = "ACTIVE"
	StateStopped  BotState = "STOPPED"
	StateError    BotState = "ERROR"
)

// LedgerStats are the session aggregates maintained by the trade ledger.
type LedgerStats struct {
	Wins          int             `json:"wins"`
	Losses        int             `json:"losses"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	Streak        int             `json:"streak"`
	StreakOutcome Outcome         `json:"streak_outcome,omitempty"`
	BestWinStreak int             `json:"best_win_streak"`
}

func (s LedgerStats) TotalTrades() int { return s.Wins + s.Losses }

func (s LedgerStats) WinRate() float64 {
	total := s.TotalTrades()
	if total == 0 {
		return 0
	}
	return float64(s.Wins) / float64(total) * 100
}

// BotStatus is the reportable view of one bot, recomputed on demand from
// the ledger aggregates and the recovery state.
type BotStatus struct {
	BotID           string          `json:"bot_id"`
	Name            string          `json:"name"`
	State           BotState        `json:"state"`
	Reason          string          `json:"reason,omitempty"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	TotalTrades     int             `json:"total_trades"`
	WinningTrades   int             `json:"winning_trades"`
	WinRate         float64         `json:"win_rate"`
	TotalProfit     decimal.Decimal `json:"total_profit"`
	CurrentStreak   int             `json:"current_streak"`
	StreakOutcome   Outcome         `json:"streak_outcome,omitempty"`
	BestStreak      int             `json:"best_streak"`
	MartingaleLevel int             `json:"martingale_level"`
	IsRecovering    bool            `json:"is_recovering"`
	LastTradeTime   *time.Time      `json:"last_trade_time,omitempty"`
	Uptime          string          `json:"uptime,omitempty"`
}

// RecoveryInfo is the martingale view exposed over the API.
type RecoveryInfo struct {
	IsRecovering    bool            `json:"is_recovering"`
	CurrentLevel    int             `json:"current_level"`
	MaxLevel        int             `json:"max_level"`
	AttemptsAtLevel int             `json:"attempts_at_level"`
	AmountToRecover decimal.Decimal `json:"amount_to_recover"`
	NextStake       decimal.Decimal `json:"next_stake"`
	SessionProfit   decimal.Decimal `json:"session_profit"`
}
