// Package sim is an in-process broker for dry runs: synthetic tick
// streams and instantly settled digit contracts against them.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/interfaces"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/metrics"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

// payoutRate approximates the broker's even-money digit payout.
var payoutRate = decimal.RequireFromString("0.95")

// Broker simulates a funded demo account. Contracts settle against the
// synthetic tick that would follow the purchase.
type Broker struct {
	mu        sync.Mutex
	rng       *rand.Rand
	balance   decimal.Decimal
	prices    map[string]float64
	lastEpoch map[string]int64
	tickGap   time.Duration
	nextCtr   int64
	authed    bool
}

// Option tweaks the simulator, mostly for tests.
type Option func(*Broker)

// WithSeed makes the simulated market deterministic.
func WithSeed(seed int64) Option {
	return func(b *Broker) { b.rng = rand.New(rand.NewSource(seed)) }
}

// WithTickInterval overrides the synthetic tick cadence.
func WithTickInterval(d time.Duration) Option {
	return func(b *Broker) { b.tickGap = d }
}

func New(opts ...Option) *Broker {
	b := &Broker{
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		balance:   decimal.NewFromInt(10000),
		prices:    make(map[string]float64),
		lastEpoch: make(map[string]int64),
		tickGap:   time.Second,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

var _ interfaces.Broker = (*Broker)(nil)

func (b *Broker) Authorize(ctx context.Context, token string) (types.AccountInfo, error) {
	if token == "" {
		return types.AccountInfo{}, fmt.Errorf("%w: empty token", types.ErrInvalidToken)
	}
	b.mu.Lock()
	b.authed = true
	balance := b.balance
	b.mu.Unlock()
	return types.AccountInfo{
		LoginID:   "VRTC0001",
		Currency:  "USD",
		Balance:   balance,
		IsVirtual: true,
	}, nil
}

func (b *Broker) Accounts(ctx context.Context) ([]types.AccountInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.authed {
		return nil, fmt.Errorf("%w: not authorized", types.ErrInvalidToken)
	}
	return []types.AccountInfo{
		{LoginID: "VRTC0001", Currency: "USD", Balance: b.balance, IsVirtual: true},
	}, nil
}

func (b *Broker) SwitchAccount(ctx context.Context, loginID string) (types.AccountInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.authed {
		return types.AccountInfo{}, fmt.Errorf("%w: not authorized", types.ErrInvalidToken)
	}
	return types.AccountInfo{LoginID: loginID, Currency: "USD", Balance: b.balance, IsVirtual: true}, nil
}

func (b *Broker) Balance(ctx context.Context) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance, nil
}

// nextQuote advances the random walk for symbol and returns the quote
// with its last digit.
func (b *Broker) nextQuote(symbol string) (float64, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	price, ok := b.prices[symbol]
	if !ok {
		price = 1000 + b.rng.Float64()*5000
	}
	price += (b.rng.Float64() - 0.5) * 2
	if price < 1 {
		price = 1
	}
	b.prices[symbol] = price

	quote := strconv.FormatFloat(price, 'f', 2, 64)
	digit := int(quote[len(quote)-1] - '0')
	return price, digit
}

// nextEpoch returns a strictly increasing epoch for symbol so rapid
// synthetic ticks never share a timestamp.
func (b *Broker) nextEpoch(symbol string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	epoch := time.Now().Unix()
	if epoch <= b.lastEpoch[symbol] {
		epoch = b.lastEpoch[symbol] + 1
	}
	b.lastEpoch[symbol] = epoch
	return epoch
}

func (b *Broker) SubscribeTicks(ctx context.Context, symbol string) (<-chan types.Tick, func(), error) {
	if !types.IsKnownSymbol(symbol) {
		return nil, nil, fmt.Errorf("%w: unknown symbol %q", types.ErrMarketClosed, symbol)
	}

	ticks := make(chan types.Tick, 16)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(done) }) }

	go func() {
		defer close(ticks)
		ticker := time.NewTicker(b.tickGap)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				price, digit := b.nextQuote(symbol)
				tick := types.Tick{
					Symbol:    symbol,
					Price:     price,
					Epoch:     b.nextEpoch(symbol),
					LastDigit: digit,
				}
				metrics.RecordTick(symbol)
				select {
				case ticks <- tick:
				default:
				}
			}
		}
	}()
	return ticks, cancel, nil
}

// Buy settles immediately against the next synthetic quote.
func (b *Broker) Buy(ctx context.Context, spec types.ContractSpec) (types.ContractResult, error) {
	b.mu.Lock()
	if spec.Stake.GreaterThan(b.balance) {
		b.mu.Unlock()
		return types.ContractResult{}, fmt.Errorf("%w: stake %s exceeds balance %s",
			types.ErrInsufficientFunds, spec.Stake, b.balance)
	}
	b.nextCtr++
	contractID := b.nextCtr
	b.mu.Unlock()

	_, digit := b.nextQuote(spec.Symbol)

	var won bool
	switch spec.Type {
	case types.ContractDigitEven:
		won = digit%2 == 0
	case types.ContractDigitOdd:
		won = digit%2 == 1
	case types.ContractDigitOver:
		won = digit > 5
	case types.ContractDigitUnder:
		won = digit < 5
	default:
		return types.ContractResult{}, fmt.Errorf("%w: unsupported contract type %q",
			types.ErrBrokerUnavailable, spec.Type)
	}

	result := types.ContractResult{
		ContractID: fmt.Sprintf("sim-%d", contractID),
		Outcome:    types.OutcomeLoss,
		Profit:     spec.Stake.Neg(),
	}
	if won {
		result.Outcome = types.OutcomeWin
		result.Profit = spec.Stake.Mul(payoutRate).Round(2)
		result.Payout = spec.Stake.Add(result.Profit)
	}

	b.mu.Lock()
	b.balance = b.balance.Add(result.Profit)
	b.mu.Unlock()
	return result, nil
}

func (b *Broker) Close() error { return nil }
