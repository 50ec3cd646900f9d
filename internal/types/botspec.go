package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Stake and session limits, in account currency.
var (
	MinStake        = decimal.RequireFromString("0.35")
	MaxStake        = decimal.NewFromInt(1000)
	MinTakeProfit   = decimal.NewFromInt(10)
	MaxTakeProfit   = decimal.NewFromInt(10000)
	MinStopLoss     = decimal.NewFromInt(10)
	MaxStopLoss     = decimal.NewFromInt(5000)
	MinMultiplier   = decimal.RequireFromString("1.1")
	MaxMultiplier   = decimal.RequireFromString("5.0")
	MaxRecoverSteps = 10
)

const (
	DefaultTradeInterval = 3 * time.Second
	DefaultMinConfidence = 55.0
)

// BotSpec is the immutable configuration of one bot. It is validated at
// creation and persisted; runtime state lives elsewhere.
type BotSpec struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	APIToken              string          `json:"api_token"`
	Symbol                string          `json:"symbol"`
	BaseStake             decimal.Decimal `json:"base_stake"`
	MartingaleMultiplier  decimal.Decimal `json:"martingale_multiplier"`
	MaxMartingaleSteps    int             `json:"max_martingale_steps"`
	RepeatAttemptsPerStep int             `json:"repeat_attempts_per_step"`
	TakeProfit            decimal.Decimal `json:"take_profit"`
	StopLoss              decimal.Decimal `json:"stop_loss"`
	TradeInterval         time.Duration   `json:"trade_interval"`
	MinConfidence         float64         `json:"min_confidence"`
	DryRun                bool            `json:"dry_run"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// ApplyDefaults fills zero-valued optional fields.
func (b *BotSpec) ApplyDefaults() {
	if b.MartingaleMultiplier.IsZero() {
		b.MartingaleMultiplier = decimal.NewFromInt(2)
	}
	if b.MaxMartingaleSteps == 0 {
		b.MaxMartingaleSteps = 5
	}
	if b.RepeatAttemptsPerStep == 0 {
		b.RepeatAttemptsPerStep = 1
	}
	if b.TradeInterval == 0 {
		b.TradeInterval = DefaultTradeInterval
	}
	if b.MinConfidence == 0 {
		b.MinConfidence = DefaultMinConfidence
	}
}

// Validate checks all configured ranges. A base stake exceeding the take
// profit target is legal; callers may warn but must not reject it.
func (b *BotSpec) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfiguration)
	}
	if b.APIToken == "" {
		return fmt.Errorf("%w: api_token is required", ErrInvalidConfiguration)
	}
	if !IsKnownSymbol(b.Symbol) {
		return fmt.Errorf("%w: unknown symbol %q", ErrInvalidConfiguration, b.Symbol)
	}
	if b.BaseStake.LessThan(MinStake) || b.BaseStake.GreaterThan(MaxStake) {
		return fmt.Errorf("%w: base_stake %s outside [%s, %s]",
			ErrInvalidConfiguration, b.BaseStake, MinStake, MaxStake)
	}
	if b.TakeProfit.LessThan(MinTakeProfit) || b.TakeProfit.GreaterThan(MaxTakeProfit) {
		return fmt.Errorf("%w: take_profit %s outside [%s, %s]",
			ErrInvalidConfiguration, b.TakeProfit, MinTakeProfit, MaxTakeProfit)
	}
	if b.StopLoss.LessThan(MinStopLoss) || b.StopLoss.GreaterThan(MaxStopLoss) {
		return fmt.Errorf("%w: stop_loss %s outside [%s, %s]",
			ErrInvalidConfiguration, b.StopLoss, MinStopLoss, MaxStopLoss)
	}
	if b.MartingaleMultiplier.LessThan(MinMultiplier) || b.MartingaleMultiplier.GreaterThan(MaxMultiplier) {
		return fmt.Errorf("%w: martingale_multiplier %s outside [%s, %s]",
			ErrInvalidConfiguration, b.MartingaleMultiplier, MinMultiplier, MaxMultiplier)
	}
	if b.MaxMartingaleSteps < 1 || b.MaxMartingaleSteps > MaxRecoverSteps {
		return fmt.Errorf("%w: max_martingale_steps %d outside [1, %d]",
			ErrInvalidConfiguration, b.MaxMartingaleSteps, MaxRecoverSteps)
	}
	if b.RepeatAttemptsPerStep < 1 {
		return fmt.Errorf("%w: repeat_attempts_per_step must be at least 1", ErrInvalidConfiguration)
	}
	if b.TradeInterval < time.Second {
		return fmt.Errorf("%w: trade_interval must be at least 1s", ErrInvalidConfiguration)
	}
	if b.MinConfidence < 0 || b.MinConfidence > 100 {
		return fmt.Errorf("%w: min_confidence must be within [0, 100]", ErrInvalidConfiguration)
	}
	return nil
}
