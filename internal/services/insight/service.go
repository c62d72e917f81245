// Package insight generates AI commentary for portfolio tickers
package insight

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
)

// ErrInsightsUnavailable is returned when no Gemini client is configured.
var ErrInsightsUnavailable = errors.New("insights unavailable: no Gemini API key configured")

// DefaultMaxCacheEntries bounds the number of insights held in memory.
const DefaultMaxCacheEntries = 512

type cacheEntry struct {
	insight *models.Insight
	ttl     time.Duration
}

// Service implements InsightService
type Service struct {
	gemini interfaces.GeminiClient
	logger common.Logger

	mu         sync.Mutex
	cache      map[string]cacheEntry
	maxEntries int
}

// NewService creates a new insight service. gemini may be nil, in which
// case every call returns ErrInsightsUnavailable.
func NewService(gemini interfaces.GeminiClient, logger common.Logger) *Service {
	return &Service{
		gemini:     gemini,
		logger:     logger,
		cache:      make(map[string]cacheEntry),
		maxEntries: DefaultMaxCacheEntries,
	}
}

// Available reports whether a generator is configured.
func (s *Service) Available() bool {
	return s.gemini != nil
}

// SummarizeNews explains a ticker's return against the benchmark return
func (s *Service) SummarizeNews(ctx context.Context, ticker string, tickerReturn, benchmarkReturn float64) (*models.Insight, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	if math.IsNaN(tickerReturn) || math.IsNaN(benchmarkReturn) {
		return nil, fmt.Errorf("returns for %s must be numbers", ticker)
	}
	key := fmt.Sprintf("%s|%s|%.4f|%.4f", models.InsightNews, ticker, tickerReturn, benchmarkReturn)
	return s.generate(ctx, key, ticker, models.InsightNews, common.FreshnessNews, newsSystem, newsPrompt(ticker, tickerReturn, benchmarkReturn))
}

// ProfileFund describes a fund's mandate and characteristics
func (s *Service) ProfileFund(ctx context.Context, ticker, name string) (*models.Insight, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	key := fmt.Sprintf("%s|%s", models.InsightFundProfile, ticker)
	return s.generate(ctx, key, ticker, models.InsightFundProfile, common.FreshnessFundProfile, fundSystem, fundPrompt(ticker, name))
}

func (s *Service) generate(ctx context.Context, key, ticker string, kind models.InsightKind, ttl time.Duration, system, prompt string) (*models.Insight, error) {
	if s.gemini == nil {
		return nil, ErrInsightsUnavailable
	}

	if cached, ok := s.cached(key); ok {
		s.logger.Debug().Str("ticker", ticker).Str("kind", string(kind)).Msg("Insight served from cache")
		return cached, nil
	}

	logger := common.LoggerFromContext(ctx, s.logger)
	start := time.Now()

	text, err := s.gemini.GenerateWithSearch(ctx, system, prompt)
	if err != nil {
		logger.Warn().Str("ticker", ticker).Str("kind", string(kind)).Err(err).Msg("Insight generation failed")
		return nil, fmt.Errorf("generate %s for %s: %w", kind, ticker, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("generate %s for %s: empty response", kind, ticker)
	}

	insight := &models.Insight{
		Ticker:      ticker,
		Kind:        kind,
		Text:        text,
		Model:       s.gemini.Model(),
		GeneratedAt: time.Now().UTC(),
	}

	s.store(key, insight, ttl)

	logger.Info().
		Str("ticker", ticker).
		Str("kind", string(kind)).
		Int("chars", len(text)).
		Str("elapsed", time.Since(start).String()).
		Msg("Insight generated")
	return insight, nil
}

// cached returns a fresh entry, dropping it when stale.
func (s *Service) cached(key string) (*models.Insight, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache[key]
	if !ok {
		return nil, false
	}
	if !common.IsFresh(e.insight.GeneratedAt, e.ttl) {
		delete(s.cache, key)
		return nil, false
	}
	return e.insight, true
}

// store adds an entry after pruning stale ones. At capacity the oldest
// entry is evicted.
func (s *Service) store(key string, insight *models.Insight, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.cache {
		if !common.IsFresh(e.insight.GeneratedAt, e.ttl) {
			delete(s.cache, k)
		}
	}
	if _, exists := s.cache[key]; !exists && s.maxEntries > 0 {
		for len(s.cache) >= s.maxEntries {
			oldest := ""
			var at time.Time
			for k, e := range s.cache {
				if oldest == "" || e.insight.GeneratedAt.Before(at) {
					oldest, at = k, e.insight.GeneratedAt
				}
			}
			delete(s.cache, oldest)
		}
	}
	s.cache[key] = cacheEntry{insight: insight, ttl: ttl}
}

// Ensure Service implements InsightService
var _ interfaces.InsightService = (*Service)(nil)
