package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/prism/internal/analytics"
	"github.com/bobmcallan/prism/internal/models"
)

// AnalysisService runs the analytics engines over a session
type AnalysisService interface {
	// NewSession computes the valuation panel and registers a new session
	NewSession(ctx context.Context, holdings models.Holdings, prices *models.PriceTable) (*models.Session, error)

	// GetSession returns a registered session
	GetSession(ctx context.Context, id string) (*models.Session, error)

	Correlation(ctx context.Context, s *models.Session, filter Filter) (*models.CorrelationMatrix, error)
	Cluster(ctx context.Context, s *models.Session, filter Filter, k int, mode models.FeatureMode) (*models.ClusterResult, error)
	Factors(ctx context.Context, s *models.Session, filter Filter, components int) (*models.FactorDecomposition, error)
	Attribution(ctx context.Context, s *models.Session, filter Filter) (*models.AttributionReport, error)
	Frontier(ctx context.Context, s *models.Session, ticker string) (*models.HedgeFrontier, error)
	Scores(ctx context.Context, s *models.Session) ([]models.RiskScore, error)

	// Run dispatches one engine by kind
	Run(ctx context.Context, s *models.Session, req AnalysisRequest) (*models.AnalysisResult, error)
}

// Filter narrows the universe by sector and/or explicit tickers. Empty
// fields select everything.
type Filter struct {
	Sectors []string `json:"sectors,omitempty"`
	Tickers []string `json:"tickers,omitempty"`
}

// AnalysisRequest parameterises one engine run
type AnalysisRequest struct {
	Engine     analytics.EngineKind
	Filter     Filter
	Clusters   int                // flat cluster count; 0 means one cluster per two assets
	Mode       models.FeatureMode // clustering dissimilarity
	Components int                // PCA components to keep; 0 means the variance default
	Ticker     string             // hedge frontier target
}

// MarketService supplies price history and reference data
type MarketService interface {
	// FetchPriceTable loads adjusted closes for tickers aligned on a common date index
	FetchPriceTable(ctx context.Context, tickers []string, from, to time.Time) (*models.PriceTable, error)

	// FetchHoldingPrices is FetchPriceTable keyed by holding, honouring each holding's exchange
	FetchHoldingPrices(ctx context.Context, holdings models.Holdings, from, to time.Time) (*models.PriceTable, error)

	// EnrichHoldings fills missing names, sectors, expense ratios and AUM
	EnrichHoldings(ctx context.Context, holdings models.Holdings) (models.Holdings, []models.Diagnostic)
}

// InsightService generates AI commentary
type InsightService interface {
	// SummarizeNews explains recent performance of a ticker against a benchmark
	SummarizeNews(ctx context.Context, ticker string, tickerReturn, benchmarkReturn float64) (*models.Insight, error)

	// ProfileFund describes a fund's mandate and characteristics
	ProfileFund(ctx context.Context, ticker, name string) (*models.Insight, error)
}
