package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/logger"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/persistence"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/tradelog"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

// Service serves cached reports over the persisted tick window. Reports
// stay warm for the cache TTL so concurrent bots on one symbol share the
// computation.
type Service struct {
	cfg      Config
	cacheTTL time.Duration
	repo     persistence.Repository

	mu    sync.Mutex
	cache map[string]cachedReport
}

type cachedReport struct {
	report Report
	at     time.Time
}

func NewService(cfg Config, cacheTTL time.Duration, repo persistence.Repository) *Service {
	return &Service{
		cfg:      cfg,
		cacheTTL: cacheTTL,
		repo:     repo,
		cache:    make(map[string]cachedReport),
	}
}

// Report returns the current analysis for symbol.
func (s *Service) Report(ctx context.Context, symbol string) (Report, error) {
	s.mu.Lock()
	if c, ok := s.cache[symbol]; ok && time.Since(c.at) < s.cacheTTL {
		s.mu.Unlock()
		return c.report, nil
	}
	s.mu.Unlock()

	ticks, err := s.repo.RecentTicks(symbol, s.cfg.WindowSize)
	if err != nil {
		return Report{}, err
	}
	report := Analyze(s.cfg, symbol, ticks)

	s.mu.Lock()
	s.cache[symbol] = cachedReport{report: report, at: time.Now()}
	s.mu.Unlock()
	return report, nil
}

// Next implements the signal source consumed by bot runtime loops.
func (s *Service) Next(ctx context.Context, symbol string) (types.Signal, bool) {
	report, err := s.Report(ctx, symbol)
	if err != nil {
		logger.Warn(ctx, "Analysis unavailable", "symbol", symbol, "error", err)
		return types.Signal{}, false
	}
	sig, ok := report.Best()
	if !ok {
		return types.Signal{}, false
	}
	if err := tradelog.AppendSignal(sig); err != nil {
		logger.Warn(ctx, "Signal journal write failed", "symbol", symbol, "error", err)
	}
	return sig, true
}
