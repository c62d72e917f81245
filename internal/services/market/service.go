// Package market provides price history and reference data from EODHD
package market

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
)

// Service implements MarketService
type Service struct {
	eodhd  interfaces.EODHDClient
	logger common.Logger

	mu           sync.Mutex
	prices       map[string]cachedHistory
	fundamentals map[string]*models.Fundamentals
}

type cachedHistory struct {
	bars      []models.EODBar
	fetchedAt time.Time
}

// NewService creates a new market service
func NewService(eodhd interfaces.EODHDClient, logger common.Logger) *Service {
	return &Service{
		eodhd:        eodhd,
		logger:       logger,
		prices:       make(map[string]cachedHistory),
		fundamentals: make(map[string]*models.Fundamentals),
	}
}

// symbol returns the EODHD symbol for a bare ticker ("AAPL" -> "AAPL.US").
func symbol(ticker string) string {
	return models.Holding{Ticker: ticker}.EODHDTicker()
}

// FetchPriceTable loads adjusted closes for tickers. Columns are named by
// the tickers as given; bare tickers resolve to the US exchange.
func (s *Service) FetchPriceTable(ctx context.Context, tickers []string, from, to time.Time) (*models.PriceTable, error) {
	symbols := make(map[string]string, len(tickers))
	for _, t := range tickers {
		symbols[t] = symbol(t)
	}
	return s.fetch(ctx, tickers, symbols, from, to)
}

// FetchHoldingPrices loads adjusted closes for holdings, resolving each
// holding's exchange. Columns are named by the holding ticker.
func (s *Service) FetchHoldingPrices(ctx context.Context, holdings models.Holdings, from, to time.Time) (*models.PriceTable, error) {
	symbols := make(map[string]string, len(holdings))
	for _, h := range holdings {
		symbols[h.Ticker] = h.EODHDTicker()
	}
	return s.fetch(ctx, holdings.Tickers(), symbols, from, to)
}

// fetch aligns every ticker on the sorted union of trading dates. A date a
// ticker did not trade is NaN.
func (s *Service) fetch(ctx context.Context, tickers []string, symbols map[string]string, from, to time.Time) (*models.PriceTable, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers to fetch")
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("invalid range: %s is before %s", to.Format(models.DateLayout), from.Format(models.DateLayout))
	}

	series := make(map[string]map[time.Time]float64, len(tickers))
	union := make(map[time.Time]bool)

	for _, t := range tickers {
		bars, err := s.history(ctx, symbols[t], from, to)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", t, err)
		}
		col := make(map[time.Time]float64, len(bars))
		for _, b := range bars {
			d := models.NormalizeDate(b.Date)
			price := b.AdjClose
			if price == 0 {
				price = b.Close
			}
			col[d] = price
			union[d] = true
		}
		series[t] = col
	}

	dates := make([]time.Time, 0, len(union))
	for d := range union {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	close := make(map[string][]float64, len(tickers))
	for _, t := range tickers {
		col := make([]float64, len(dates))
		for i, d := range dates {
			if v, ok := series[t][d]; ok {
				col[i] = v
			} else {
				col[i] = math.NaN()
			}
		}
		close[t] = col
	}

	s.logger.Info().Int("tickers", len(tickers)).Int("dates", len(dates)).Msg("Price table fetched")
	return models.NewPriceTable(dates, tickers, close)
}

func (s *Service) history(ctx context.Context, sym string, from, to time.Time) ([]models.EODBar, error) {
	key := sym + "|" + from.Format(models.DateLayout) + "|" + to.Format(models.DateLayout)

	s.mu.Lock()
	cached, ok := s.prices[key]
	s.mu.Unlock()
	if ok && common.IsFresh(cached.fetchedAt, common.FreshnessPrices) {
		s.logger.Debug().Str("ticker", sym).Msg("Price history served from cache")
		return cached.bars, nil
	}

	resp, err := s.eodhd.GetEOD(ctx, sym, interfaces.WithDateRange(from, to), interfaces.WithOrder("a"))
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no price history returned for %s", sym)
	}

	s.mu.Lock()
	s.prices[key] = cachedHistory{bars: resp.Data, fetchedAt: time.Now()}
	s.mu.Unlock()
	return resp.Data, nil
}

// EnrichHoldings fills missing names, sectors, expense ratios and AUM from
// EODHD fundamentals. A failed lookup leaves the holding unchanged and is
// reported as a diagnostic.
func (s *Service) EnrichHoldings(ctx context.Context, holdings models.Holdings) (models.Holdings, []models.Diagnostic) {
	out := make(models.Holdings, len(holdings))
	var diags []models.Diagnostic

	for i, h := range holdings {
		out[i] = h
		if h.Name != "" && h.Sector != "" && h.ExpenseRatio != nil && h.AUM != nil {
			continue
		}

		f, err := s.getFundamentals(ctx, h.EODHDTicker())
		if err != nil {
			s.logger.Warn().Str("ticker", h.Ticker).Err(err).Msg("Fundamentals lookup failed")
			diags = append(diags, models.Diagnostic{
				Ticker:  h.Ticker,
				Code:    models.DiagFetchFailed,
				Message: err.Error(),
			})
			continue
		}

		if out[i].Name == "" {
			out[i].Name = f.Name
		}
		if out[i].Sector == "" {
			out[i].Sector = f.Sector
		}
		if out[i].ExpenseRatio == nil && f.IsETF && f.ExpenseRatio > 0 {
			v := f.ExpenseRatio
			out[i].ExpenseRatio = &v
		}
		if out[i].AUM == nil {
			switch {
			case f.TotalAssets > 0:
				v := f.TotalAssets
				out[i].AUM = &v
			case f.MarketCap > 0:
				v := f.MarketCap
				out[i].AUM = &v
			}
		}
	}

	return out, diags
}

func (s *Service) getFundamentals(ctx context.Context, sym string) (*models.Fundamentals, error) {
	key := strings.ToUpper(sym)

	s.mu.Lock()
	cached, ok := s.fundamentals[key]
	s.mu.Unlock()
	if ok && common.IsFresh(cached.LastUpdated, common.FreshnessFundamentals) {
		return cached, nil
	}

	f, err := s.eodhd.GetFundamentals(ctx, sym)
	if err != nil {
		return nil, err
	}
	if f.LastUpdated.IsZero() {
		f.LastUpdated = time.Now()
	}

	s.mu.Lock()
	s.fundamentals[key] = f
	s.mu.Unlock()
	return f, nil
}

// Ensure Service implements MarketService
var _ interfaces.MarketService = (*Service)(nil)
