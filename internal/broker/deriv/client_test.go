package deriv

import (
	"errors"
	"testing"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

func TestLastDigit(t *testing.T) {
	cases := []struct {
		quote string
		want  int
	}{
		{"7678.08", 8},
		{"1234.50", 0},
		{"9999.99", 9},
		{"1000", 0},
		{"0.35", 5},
		{"", 0},
	}
	for _, tc := range cases {
		if got := LastDigit(tc.quote); got != tc.want {
			t.Errorf("LastDigit(%q) = %d, want %d", tc.quote, got, tc.want)
		}
	}
}

func TestMapError(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{"InvalidToken", types.ErrInvalidToken},
		{"AuthorizationRequired", types.ErrInvalidToken},
		{"InsufficientBalance", types.ErrInsufficientFunds},
		{"MarketIsClosed", types.ErrMarketClosed},
		{"RateLimit", types.ErrBrokerUnavailable},
	}
	for _, tc := range cases {
		err := mapError(&apiError{Code: tc.code, Message: "m"})
		if !errors.Is(err, tc.want) {
			t.Errorf("mapError(%s) = %v, want %v", tc.code, err, tc.want)
		}
	}
}
