package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/bobmcallan/prism/internal/models"
)

// Options tunes the attribution regression.
type Options struct {
	TradingDays       int
	MinObservations   int
	SignificanceLevel float64
}

// DefaultOptions returns 252 trading days, 3 observations and a 5% level.
func DefaultOptions() Options {
	return Options{TradingDays: DefaultTradingDays, MinObservations: 3, SignificanceLevel: 0.05}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TradingDays <= 0 {
		o.TradingDays = d.TradingDays
	}
	if o.MinObservations < 3 {
		o.MinObservations = d.MinObservations
	}
	if o.SignificanceLevel <= 0 || o.SignificanceLevel >= 1 {
		o.SignificanceLevel = d.SignificanceLevel
	}
	return o
}

// Attribute regresses every universe ticker's log returns on the portfolio's
// and splits total return and volatility into portfolio, beta and alpha
// parts plus a reported residual. Tickers that cannot be regressed are
// listed in Skipped.
func Attribute(panel *models.ValuationPanel, opts Options) (*models.AttributionReport, error) {
	opts = opts.withDefaults()
	if !panel.HasTicker(models.PortfolioTicker) {
		return nil, &DataAlignmentError{Ticker: models.PortfolioTicker, Reason: "panel has no aggregate series"}
	}

	report := &models.AttributionReport{Records: make(map[string]*models.AttributionRecord)}
	portRet := panel.Values(models.PortfolioTicker, models.FieldLogRet)
	portTotal := panel.Last(models.PortfolioTicker, models.FieldCumRet)
	td := float64(opts.TradingDays)

	for _, ticker := range panel.Universe() {
		x, y := pairwise(portRet, panel.Values(ticker, models.FieldLogRet))
		n := len(x)
		if n < opts.MinObservations || !portTotal.Valid {
			err := &InsufficientAssetsError{Context: "regression", Ticker: ticker, Have: n, Need: opts.MinObservations}
			report.Skipped = append(report.Skipped, diagnosticFrom(ticker, models.DiagInsufficientObservations, err))
			continue
		}
		total := panel.Last(ticker, models.FieldCumRet)
		if !total.Valid {
			err := &InsufficientDataError{Ticker: ticker, Have: 0, Need: 1, Reason: "cumulative returns"}
			report.Skipped = append(report.Skipped, diagnosticFrom(ticker, models.DiagInsufficientData, err))
			continue
		}
		if stat.Variance(x, nil) == 0 {
			report.Skipped = append(report.Skipped, models.Diagnostic{
				Ticker:  ticker,
				Code:    models.DiagDegenerateRegressor,
				Message: "portfolio returns have no variance over the aligned dates",
			})
			continue
		}

		rec := regress(ticker, x, y, opts)
		rec.TotalReturn = total.Float64
		rec.PortfolioReturn = portTotal.Float64
		rec.ExcessReturn = rec.TotalReturn - rec.PortfolioReturn

		rec.PerfFromPortfolio = rec.PortfolioReturn
		rec.PerfFromBeta = (rec.Beta - 1) * rec.PortfolioReturn
		rec.PerfFromAlpha = rec.Alpha * float64(n) / td
		rec.PerfError = rec.TotalReturn - rec.PerfFromPortfolio - rec.PerfFromBeta - rec.PerfFromAlpha

		rec.Volatility = stat.StdDev(y, nil) * math.Sqrt(td)
		rec.PortfolioVolatility = stat.StdDev(x, nil) * math.Sqrt(td)
		rec.VolFromPortfolio = rec.PortfolioVolatility
		rec.VolFromBeta = (rec.Beta - 1) * rec.PortfolioVolatility
		rec.VolError = rec.Volatility - rec.VolFromPortfolio - rec.VolFromBeta

		report.Records[ticker] = rec
		report.Order = append(report.Order, ticker)
	}
	return report, nil
}

// regress fits y = alpha + beta*x by OLS and derives the fit statistics.
func regress(ticker string, x, y []float64, opts Options) *models.AttributionRecord {
	n := len(x)
	alpha, beta := stat.LinearRegression(x, y, nil, false)

	meanY := stat.Mean(y, nil)
	var sst, sse float64
	for i := range y {
		dy := y[i] - meanY
		sst += dy * dy
		r := y[i] - alpha - beta*x[i]
		sse += r * r
	}

	rec := &models.AttributionRecord{
		Ticker:       ticker,
		DailyAlpha:   alpha,
		Alpha:        alpha * float64(opts.TradingDays),
		PeriodAlpha:  alpha * float64(n),
		Beta:         beta,
		Observations: n,
		PValue:       1,
	}
	if sst > 0 {
		rec.RSquared = clamp(stat.RSquared(x, y, nil, alpha, beta), 0, 1)
	}

	df := float64(n - 2)
	ssr := math.Max(sst-sse, 0)
	switch {
	case sst == 0:
		// constant response: nothing to explain
	case sse == 0:
		rec.PValue = 0
	default:
		f := ssr / (sse / df)
		rec.FStatistic = models.NewNullFloat64(f)
		rec.PValue = distuv.F{D1: 1, D2: df}.Survival(f)
	}
	rec.Significant = rec.PValue < opts.SignificanceLevel
	return rec
}
