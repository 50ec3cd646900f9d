package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

func TestAuthorizeRejectsEmptyToken(t *testing.T) {
	b := New(WithSeed(1))
	_, err := b.Authorize(context.Background(), "")
	if !errors.Is(err, types.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestBuySettlesAndMovesBalance(t *testing.T) {
	b := New(WithSeed(42))
	start, _ := b.Balance(context.Background())

	result, err := b.Buy(context.Background(), types.ContractSpec{
		Type:   types.ContractDigitEven,
		Symbol: "R_100",
		Stake:  decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatal(err)
	}

	after, _ := b.Balance(context.Background())
	if !after.Equal(start.Add(result.Profit)) {
		t.Errorf("balance drift: start %s, profit %s, after %s", start, result.Profit, after)
	}

	switch result.Outcome {
	case types.OutcomeWin:
		want := decimal.RequireFromString("9.5")
		if !result.Profit.Equal(want) {
			t.Errorf("win profit = %s, want %s", result.Profit, want)
		}
	case types.OutcomeLoss:
		if !result.Profit.Equal(decimal.NewFromInt(-10)) {
			t.Errorf("loss profit = %s, want -10", result.Profit)
		}
	}
}

func TestBuyRejectsStakeOverBalance(t *testing.T) {
	b := New(WithSeed(1))
	_, err := b.Buy(context.Background(), types.ContractSpec{
		Type:   types.ContractDigitOdd,
		Symbol: "R_50",
		Stake:  decimal.NewFromInt(1000000),
	})
	if !errors.Is(err, types.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
}

func TestSubscribeTicksDeliversKnownSymbols(t *testing.T) {
	b := New(WithSeed(7), WithTickInterval(time.Millisecond))
	ticks, cancel, err := b.SubscribeTicks(context.Background(), "R_25")
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	select {
	case tick := <-ticks:
		if tick.Symbol != "R_25" {
			t.Errorf("symbol = %s", tick.Symbol)
		}
		if tick.LastDigit < 0 || tick.LastDigit > 9 {
			t.Errorf("last digit out of range: %d", tick.LastDigit)
		}
	case <-time.After(time.Second):
		t.Fatal("no tick delivered")
	}
}

func TestSubscribeTicksRejectsUnknownSymbol(t *testing.T) {
	b := New()
	_, _, err := b.SubscribeTicks(context.Background(), "EURUSD")
	if !errors.Is(err, types.ErrMarketClosed) {
		t.Fatalf("want ErrMarketClosed, got %v", err)
	}
}
