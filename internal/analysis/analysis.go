// Package analysis derives trade signals from recent last-digit
// distributions of a symbol's tick stream.
package analysis

import (
	"fmt"
	"math"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

// Config tunes the digit-distribution analysis.
type Config struct {
	WindowSize      int
	MinSample       int
	ParityMargin    float64
	OverUnderMargin float64
}

// Report is the full digit-distribution breakdown for one symbol.
// Digit 5 loses both over and under contracts at barrier 5, so it is
// counted apart from either side.
type Report struct {
	Symbol         string         `json:"symbol"`
	SampleSize     int            `json:"sample_size"`
	DigitFrequency [10]int        `json:"digit_frequency"`
	DigitPercent   [10]float64    `json:"digit_percent"`
	EvenPercent    float64        `json:"even_percent"`
	OddPercent     float64        `json:"odd_percent"`
	OverPercent    float64        `json:"over_percent"`
	UnderPercent   float64        `json:"under_percent"`
	FivePercent    float64        `json:"five_percent"`
	HotDigits      []int          `json:"hot_digits"`
	ColdDigits     []int          `json:"cold_digits"`
	Signals        []types.Signal `json:"signals"`
	MatchDiffer    *MatchDiffer   `json:"match_differ,omitempty"`
}

// MatchDiffer scores a digit for the match/differ contract pair. It
// feeds the analysis view only; the runner does not trade these
// contract types.
type MatchDiffer struct {
	MatchDigit       int     `json:"match_digit"`
	MatchConfidence  float64 `json:"match_confidence"`
	MatchReason      string  `json:"match_reason"`
	DifferConfidence float64 `json:"differ_confidence"`
	DifferReason     string  `json:"differ_reason"`
}

// Best returns the highest-confidence signal, ok false when the report
// carries none.
func (r Report) Best() (types.Signal, bool) {
	if len(r.Signals) == 0 {
		return types.Signal{}, false
	}
	best := r.Signals[0]
	for _, s := range r.Signals[1:] {
		if s.Confidence > best.Confidence {
			best = s
		}
	}
	return best, true
}

// Analyze builds a report from a tick window, oldest first. Windows
// smaller than MinSample produce a report without signals.
func Analyze(cfg Config, symbol string, ticks []types.Tick) Report {
	if cfg.WindowSize > 0 && len(ticks) > cfg.WindowSize {
		ticks = ticks[len(ticks)-cfg.WindowSize:]
	}

	report := Report{Symbol: symbol, SampleSize: len(ticks)}
	if len(ticks) == 0 {
		return report
	}

	var even, over, under int
	for _, t := range ticks {
		report.DigitFrequency[t.LastDigit]++
		if t.LastDigit%2 == 0 {
			even++
		}
		switch {
		case t.LastDigit > 5:
			over++
		case t.LastDigit < 5:
			under++
		}
	}

	n := float64(len(ticks))
	for d := 0; d < 10; d++ {
		report.DigitPercent[d] = float64(report.DigitFrequency[d]) / n * 100
	}
	report.EvenPercent = float64(even) / n * 100
	report.OddPercent = 100 - report.EvenPercent
	report.OverPercent = float64(over) / n * 100
	report.UnderPercent = float64(under) / n * 100
	report.FivePercent = 100 - report.OverPercent - report.UnderPercent
	report.HotDigits, report.ColdDigits = rankDigits(report.DigitFrequency)

	if len(ticks) < cfg.MinSample {
		return report
	}
	report.Signals = buildSignals(cfg, symbol, report, ticks)
	report.MatchDiffer = matchDiffer(report, ticks)
	return report
}

func rankDigits(freq [10]int) (hot, cold []int) {
	max, min := freq[0], freq[0]
	for _, c := range freq[1:] {
		if c > max {
			max = c
		}
		if c < min {
			min = c
		}
	}
	for d, c := range freq {
		if c == max {
			hot = append(hot, d)
		}
		if c == min {
			cold = append(cold, d)
		}
	}
	return hot, cold
}

// buildSignals always yields one parity and one over/under prediction,
// from the dominance margin when one is in play and otherwise from the
// recent trend.
func buildSignals(cfg Config, symbol string, r Report, ticks []types.Tick) []types.Signal {
	return []types.Signal{
		paritySignal(cfg, symbol, r, ticks),
		overUnderSignal(cfg, symbol, r, ticks),
	}
}

func paritySignal(cfg Config, symbol string, r Report, ticks []types.Tick) types.Signal {
	if margin := math.Abs(r.EvenPercent - r.OddPercent); margin >= cfg.ParityMargin {
		// Bet against the dominant side: a stretched distribution tends
		// to revert over the window.
		sig := types.Signal{Symbol: symbol, Confidence: math.Min(95, 50+margin*0.8)}
		if r.EvenPercent > r.OddPercent {
			sig.ContractType = types.ContractDigitOdd
			sig.Reason = fmt.Sprintf("even dominance %.1f%%, betting odd correction", r.EvenPercent)
			sig.WinningDigits = []int{1, 3, 5, 7, 9}
		} else {
			sig.ContractType = types.ContractDigitEven
			sig.Reason = fmt.Sprintf("odd dominance %.1f%%, betting even correction", r.OddPercent)
			sig.WinningDigits = []int{0, 2, 4, 6, 8}
		}
		return sig
	}

	// Balanced window: bet against the parity majority of the last ten.
	recent := lastN(ticks, 10)
	even := 0
	for _, t := range recent {
		if t.LastDigit%2 == 0 {
			even++
		}
	}
	if even > len(recent)-even {
		return types.Signal{
			Symbol:        symbol,
			ContractType:  types.ContractDigitOdd,
			Confidence:    55,
			Reason:        "recent even trend, expecting odd",
			WinningDigits: []int{1, 3, 5, 7, 9},
		}
	}
	return types.Signal{
		Symbol:        symbol,
		ContractType:  types.ContractDigitEven,
		Confidence:    55,
		Reason:        "recent odd trend, expecting even",
		WinningDigits: []int{0, 2, 4, 6, 8},
	}
}

func overUnderSignal(cfg Config, symbol string, r Report, ticks []types.Tick) types.Signal {
	if margin := math.Abs(r.OverPercent - r.UnderPercent); margin >= cfg.OverUnderMargin {
		sig := types.Signal{Symbol: symbol, Confidence: math.Min(95, 50+margin*0.6)}
		if r.OverPercent > r.UnderPercent {
			sig.ContractType = types.ContractDigitUnder
			sig.Reason = fmt.Sprintf("over-5 dominance %.1f%%, betting under correction", r.OverPercent)
			sig.WinningDigits = []int{0, 1, 2, 3, 4}
		} else {
			sig.ContractType = types.ContractDigitOver
			sig.Reason = fmt.Sprintf("under-5 dominance %.1f%%, betting over correction", r.UnderPercent)
			sig.WinningDigits = []int{6, 7, 8, 9}
		}
		return sig
	}

	recent := lastN(ticks, 10)
	over, under := 0, 0
	for _, t := range recent {
		switch {
		case t.LastDigit > 5:
			over++
		case t.LastDigit < 5:
			under++
		}
	}
	if over > under {
		return types.Signal{
			Symbol:        symbol,
			ContractType:  types.ContractDigitUnder,
			Confidence:    52,
			Reason:        "recent over-5 trend, expecting under",
			WinningDigits: []int{0, 1, 2, 3, 4},
		}
	}
	return types.Signal{
		Symbol:        symbol,
		ContractType:  types.ContractDigitOver,
		Confidence:    52,
		Reason:        "recent under-5 trend, expecting over",
		WinningDigits: []int{6, 7, 8, 9},
	}
}

// matchDiffer scores the least frequent digit for a match bet when one
// digit is stretched past 15% of the window, otherwise the digit
// trending over the last twenty ticks.
func matchDiffer(r Report, ticks []types.Tick) *MatchDiffer {
	most, least := 0, 0
	for d := 1; d < 10; d++ {
		if r.DigitFrequency[d] > r.DigitFrequency[most] {
			most = d
		}
		if r.DigitFrequency[d] <= r.DigitFrequency[least] {
			least = d
		}
	}

	if r.DigitPercent[most] > 15 {
		return &MatchDiffer{
			MatchDigit:       least,
			MatchConfidence:  math.Min(95, 50+(15-r.DigitPercent[least])*2),
			MatchReason:      fmt.Sprintf("digit %d overrepresented, expecting %d", most, least),
			DifferConfidence: math.Min(95, 50+r.DigitPercent[most]-10),
			DifferReason:     fmt.Sprintf("digit %d very frequent, unlikely to repeat", most),
		}
	}

	recent := lastN(ticks, 20)
	var counts, firstSeen [10]int
	for d := range firstSeen {
		firstSeen[d] = len(recent)
	}
	for i, t := range recent {
		if counts[t.LastDigit] == 0 {
			firstSeen[t.LastDigit] = i
		}
		counts[t.LastDigit]++
	}
	hot := 0
	for d := 1; d < 10; d++ {
		if counts[d] > counts[hot] || (counts[d] == counts[hot] && firstSeen[d] < firstSeen[hot]) {
			hot = d
		}
	}
	return &MatchDiffer{
		MatchDigit:       hot,
		MatchConfidence:  58,
		MatchReason:      fmt.Sprintf("digit %d trending in recent ticks", hot),
		DifferConfidence: 52,
		DifferReason:     "balanced distribution, slight favor to differ",
	}
}

func lastN(ticks []types.Tick, n int) []types.Tick {
	if len(ticks) > n {
		return ticks[len(ticks)-n:]
	}
	return ticks
}
