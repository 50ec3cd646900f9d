package tradelog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

var mu sync.Mutex

type Entry struct {
	Time, BotID, Symbol, ContractType, ContractID string
	Stake, Outcome, ProfitLoss                    string
	MartingaleStep, RepeatAttempt                 int
	Extra                                         map[string]any `json:"extra,omitempty"`
}

type SignalEntry struct {
	Time, Symbol, ContractType, Reason string
	Confidence                         float64
	WinningDigits                      []int
	Extra                              map[string]any `json:"extra,omitempty"`
}

func logDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}
func dailyFilepath(t time.Time) string {
	d := t.UTC().Format("2006-01-02")
	return filepath.Join(logDir(), d+".txt")
}
func signalsFilepath(t time.Time) string {
	d := t.UTC().Format("2006-01-02")
	return filepath.Join(logDir(), "signals", d+".txt")
}

// Append journals a settled trade to the daily file.
func Append(rec types.TradeRecord) error {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now().UTC()
	e := Entry{
		Time:           now.Format("2006-01-02 15:04:05"),
		BotID:          rec.BotID,
		Symbol:         rec.Symbol,
		ContractType:   string(rec.ContractType),
		ContractID:     rec.ContractID,
		Stake:          rec.Stake.StringFixed(2),
		Outcome:        string(rec.Outcome),
		ProfitLoss:     rec.ProfitLoss.StringFixed(2),
		MartingaleStep: rec.MartingaleStep,
		RepeatAttempt:  rec.RepeatAttempt,
	}
	return appendLine(dailyFilepath(now), e)
}

// AppendSignal journals an analysis signal to the daily signals file.
func AppendSignal(sig types.Signal) error {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now().UTC()
	e := SignalEntry{
		Time:          now.Format("2006-01-02 15:04:05"),
		Symbol:        sig.Symbol,
		ContractType:  string(sig.ContractType),
		Reason:        sig.Reason,
		Confidence:    sig.Confidence,
		WinningDigits: sig.WinningDigits,
	}
	return appendLine(signalsFilepath(now), e)
}

func appendLine(p string, v any) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, _ := json.Marshal(v)
	_, err = fmt.Fprintln(f, string(b))
	return err
}

func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	root := logDir()
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(p) != ".txt" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil {
			return nil
		}
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		if info.ModTime().Before(cutoff) {
			gz := p + ".gz"
			// if already gz exists, remove original .txt
			if _, e2 := os.Stat(gz); e2 == nil {
				_ = os.Remove(p)
				return nil
			}

			in, e3 := os.Open(p)
			if e3 != nil {
				return nil
			}
			defer in.Close()

			out, e4 := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if e4 != nil {
				return nil
			}
			gw := gzip.NewWriter(out)
			if _, e5 := io.Copy(gw, in); e5 == nil {
				_ = gw.Close()
				_ = out.Close()
				_ = os.Remove(p)
			} else {
				_ = gw.Close()
				_ = out.Close()
			}
		}
		return nil
	})
}
