// Package analysis orchestrates the analytics engines over immutable sessions
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/prism/internal/analytics"
	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
)

// ErrSessionNotFound is returned for an unknown or evicted session id.
var ErrSessionNotFound = errors.New("session not found")

// Service implements AnalysisService
type Service struct {
	sessions interfaces.SessionStore
	config   common.AnalysisConfig
	logger   common.Logger
}

// NewService creates a new analysis service
func NewService(sessions interfaces.SessionStore, config common.AnalysisConfig, logger common.Logger) *Service {
	return &Service{
		sessions: sessions,
		config:   config,
		logger:   logger,
	}
}

func (s *Service) log(ctx context.Context) common.Logger {
	return common.LoggerFromContext(ctx, s.logger)
}

// NewSession computes the valuation panel once and registers the session.
// Sessions are never mutated; new inputs mean a new session.
func (s *Service) NewSession(ctx context.Context, holdings models.Holdings, prices *models.PriceTable) (*models.Session, error) {
	start := time.Now()

	panel, err := analytics.ComputePanel(holdings, prices)
	if err != nil {
		s.log(ctx).Warn().Err(err).Msg("Valuation panel rejected")
		return nil, err
	}

	session := &models.Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Holdings:  append(models.Holdings(nil), holdings...),
		Prices:    prices,
		Panel:     panel,
	}
	s.sessions.Put(session)

	s.log(ctx).Info().
		Str("session", session.ID).
		Int("holdings", len(holdings)).
		Int("dates", len(prices.Dates)).
		Int("diagnostics", len(panel.Diagnostics)).
		Str("elapsed", time.Since(start).String()).
		Msg("Session created")
	return session, nil
}

// GetSession returns a registered session
func (s *Service) GetSession(ctx context.Context, id string) (*models.Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// resolveTickers applies the sector filter, then narrows to the explicit
// tickers. Holdings order is kept. A filter that selects nothing is an error
// rather than the whole universe.
func (s *Service) resolveTickers(session *models.Session, filter interfaces.Filter) ([]string, error) {
	selected := session.Holdings.FilterBySector(filter.Sectors...).Tickers()

	if len(filter.Tickers) > 0 {
		want := make(map[string]bool, len(filter.Tickers))
		for _, t := range filter.Tickers {
			t = strings.TrimSpace(t)
			if _, ok := session.Holdings.Find(t); !ok {
				return nil, fmt.Errorf("%w: %s", analytics.ErrUnknownTicker, t)
			}
			want[t] = true
		}
		narrowed := selected[:0:0]
		for _, t := range selected {
			if want[t] {
				narrowed = append(narrowed, t)
			}
		}
		selected = narrowed
	}

	if len(selected) == 0 {
		return nil, &analytics.InsufficientAssetsError{Context: "filter", Have: 0, Need: 1}
	}
	return selected, nil
}

func (s *Service) returnMatrix(session *models.Session, filter interfaces.Filter) (*analytics.ReturnMatrix, error) {
	tickers, err := s.resolveTickers(session, filter)
	if err != nil {
		return nil, err
	}
	m, err := analytics.LogReturnMatrix(session.Panel, tickers)
	if err != nil {
		return nil, err
	}
	m.TradingDays = s.config.TradingDays
	return m, nil
}

// Correlation computes the pairwise log-return correlation matrix
func (s *Service) Correlation(ctx context.Context, session *models.Session, filter interfaces.Filter) (*models.CorrelationMatrix, error) {
	m, err := s.returnMatrix(session, filter)
	if err != nil {
		return nil, err
	}
	corr, err := analytics.Correlation(m)
	if err != nil {
		return nil, err
	}
	s.log(ctx).Debug().Str("session", session.ID).Int("tickers", len(corr.Tickers)).Msg("Correlation computed")
	return corr, nil
}

// Cluster groups the filtered universe into k clusters. k = 0 picks one
// cluster per two assets that have returns.
func (s *Service) Cluster(ctx context.Context, session *models.Session, filter interfaces.Filter, k int, mode models.FeatureMode) (*models.ClusterResult, error) {
	m, err := s.returnMatrix(session, filter)
	if err != nil {
		return nil, err
	}
	if k == 0 {
		usable, _ := m.Usable()
		k = DefaultClusterCount(len(usable))
	}
	res, err := analytics.Cluster(m, k, mode, session.Holdings)
	if err != nil {
		return nil, err
	}
	s.log(ctx).Debug().
		Str("session", session.ID).
		Str("mode", mode.String()).
		Int("clusters", len(res.Groups)).
		Msg("Clusters computed")
	return res, nil
}

// DefaultClusterCount returns one cluster per two assets, at least one.
func DefaultClusterCount(n int) int {
	return max(1, n/2)
}

// Factors runs the PCA. components = 0 keeps every component and reports
// the variance-threshold default; otherwise the first components are kept.
func (s *Service) Factors(ctx context.Context, session *models.Session, filter interfaces.Filter, components int) (*models.FactorDecomposition, error) {
	m, err := s.returnMatrix(session, filter)
	if err != nil {
		return nil, err
	}
	dec, err := analytics.Decompose(m, s.config.PCAVarianceThreshold)
	if err != nil {
		return nil, err
	}
	if components > 0 {
		if dec, err = dec.Truncate(components); err != nil {
			return nil, err
		}
	}
	s.log(ctx).Debug().
		Str("session", session.ID).
		Int("components", len(dec.Components)).
		Int("default", dec.DefaultComponents).
		Msg("Factors computed")
	return dec, nil
}

// Attribution regresses each ticker on the portfolio. The regression always
// runs on the full panel; the filter narrows the reported tickers.
func (s *Service) Attribution(ctx context.Context, session *models.Session, filter interfaces.Filter) (*models.AttributionReport, error) {
	tickers, err := s.resolveTickers(session, filter)
	if err != nil {
		return nil, err
	}
	report, err := analytics.Attribute(session.Panel, s.attributionOptions())
	if err != nil {
		return nil, err
	}
	report = narrowReport(report, tickers)
	s.log(ctx).Debug().
		Str("session", session.ID).
		Int("records", len(report.Order)).
		Int("skipped", len(report.Skipped)).
		Msg("Attribution computed")
	return report, nil
}

func (s *Service) attributionOptions() analytics.Options {
	return analytics.Options{
		TradingDays:       s.config.TradingDays,
		MinObservations:   s.config.MinRegressionObs,
		SignificanceLevel: s.config.SignificanceLevel,
	}
}

func narrowReport(report *models.AttributionReport, tickers []string) *models.AttributionReport {
	keep := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		keep[t] = true
	}
	out := &models.AttributionReport{Records: make(map[string]*models.AttributionRecord)}
	for _, t := range report.Order {
		if keep[t] {
			out.Order = append(out.Order, t)
			out.Records[t] = report.Records[t]
		}
	}
	for _, d := range report.Skipped {
		if keep[d.Ticker] {
			out.Skipped = append(out.Skipped, d)
		}
	}
	return out
}

// Frontier traces the hedge frontier for one ticker
func (s *Service) Frontier(ctx context.Context, session *models.Session, ticker string) (*models.HedgeFrontier, error) {
	f, err := analytics.HedgeFrontier(session.Panel, ticker, s.config.FrontierPoints, s.config.TradingDays)
	if err != nil {
		return nil, err
	}
	s.log(ctx).Debug().Str("session", session.ID).Str("ticker", ticker).Int("points", len(f.Points)).Msg("Hedge frontier computed")
	return f, nil
}

// Scores rates every ticker and the portfolio by risk-adjusted return
func (s *Service) Scores(ctx context.Context, session *models.Session) ([]models.RiskScore, error) {
	return analytics.RiskScores(session.Panel, s.config.TradingDays), nil
}

// Run dispatches one engine by kind
func (s *Service) Run(ctx context.Context, session *models.Session, req interfaces.AnalysisRequest) (*models.AnalysisResult, error) {
	result := &models.AnalysisResult{
		Engine:    req.Engine.String(),
		SessionID: session.ID,
	}

	var err error
	switch req.Engine {
	case analytics.EngineCorrelation:
		result.Correlation, err = s.Correlation(ctx, session, req.Filter)
		if err == nil {
			result.Tickers = result.Correlation.Tickers
		}
	case analytics.EngineCluster:
		result.Clusters, err = s.Cluster(ctx, session, req.Filter, req.Clusters, req.Mode)
		if err == nil {
			result.Tickers = result.Clusters.Tickers
		}
	case analytics.EngineFactors:
		result.Factors, err = s.Factors(ctx, session, req.Filter, req.Components)
		if err == nil {
			result.Tickers = result.Factors.Tickers
		}
	case analytics.EngineAttribution:
		result.Attribution, err = s.Attribution(ctx, session, req.Filter)
		if err == nil {
			result.Tickers = result.Attribution.Order
		}
	case analytics.EngineFrontier:
		result.Frontier, err = s.Frontier(ctx, session, req.Ticker)
		if err == nil {
			result.Tickers = []string{req.Ticker}
		}
	case analytics.EngineScores:
		result.Scores, err = s.Scores(ctx, session)
		result.RiskReturn = analytics.RiskReturn(session.Panel, s.config.TradingDays)
		result.Tickers = session.Panel.Tickers
	default:
		return nil, fmt.Errorf("%w: %s", analytics.ErrUnknownEngine, req.Engine)
	}
	if err != nil {
		s.log(ctx).Warn().Str("session", session.ID).Str("engine", result.Engine).Err(err).Msg("Engine failed")
		return nil, err
	}
	return result, nil
}

// Ensure Service implements AnalysisService
var _ interfaces.AnalysisService = (*Service)(nil)
