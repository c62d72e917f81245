package analytics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/prism/internal/models"
)

// HedgeFrontier traces the two-asset line between a ticker sleeve and the
// portfolio that already holds it. Sleeve weights run from the full short
// that removes the ticker's net exposure up to 1; the pure portfolio (weight
// 0) is always included.
func HedgeFrontier(panel *models.ValuationPanel, ticker string, points, tradingDays int) (*models.HedgeFrontier, error) {
	if ticker == models.PortfolioTicker || !panel.HasTicker(ticker) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTicker, ticker)
	}
	if points < 2 {
		return nil, fmt.Errorf("frontier needs at least 2 points, got %d", points)
	}
	if tradingDays <= 0 {
		tradingDays = DefaultTradingDays
	}
	if n := len(panel.Universe()); n < 2 {
		return nil, &InsufficientAssetsError{Context: "hedge frontier", Have: n, Need: 2}
	}

	tickerValue := panel.Last(ticker, models.FieldValue)
	portValue := panel.Last(models.PortfolioTicker, models.FieldValue)
	if !tickerValue.Valid || !portValue.Valid || portValue.Float64 <= 0 {
		return nil, &InsufficientDataError{Ticker: ticker, Have: 0, Need: 1, Reason: "valued observations"}
	}
	w := tickerValue.Float64 / portValue.Float64
	if w >= 1 {
		return nil, &InsufficientAssetsError{Context: "hedge frontier", Have: 1, Need: 2}
	}

	xt, xp := pairwise(panel.Values(ticker, models.FieldLogRet), panel.Values(models.PortfolioTicker, models.FieldLogRet))
	if len(xt) < 2 {
		return nil, &InsufficientDataError{Ticker: ticker, Have: len(xt), Need: 2, Reason: "aligned returns"}
	}

	rt, volT := annualised(xt, tradingDays)
	rp, volP := annualised(xp, tradingDays)
	rho := 0.0
	if volT > 0 && volP > 0 {
		rho = clamp(stat.Correlation(xt, xp, nil), -1, 1)
	}

	point := func(x float64) models.FrontierPoint {
		variance := x*x*volT*volT + (1-x)*(1-x)*volP*volP + 2*x*(1-x)*rho*volT*volP
		return models.FrontierPoint{
			Weight:      x,
			NetExposure: x + (1-x)*w,
			Return:      x*rt + (1-x)*rp,
			Volatility:  math.Sqrt(math.Max(variance, 0)),
		}
	}

	short := w / (1 - w)
	weights := floats.Span(make([]float64, points), -short, 1)
	weights[0], weights[points-1] = -short, 1
	hasZero := false
	for _, x := range weights {
		if x == 0 {
			hasZero = true
		}
	}
	if !hasZero {
		weights = append(weights, 0)
		sort.Float64s(weights)
	}

	out := &models.HedgeFrontier{
		Ticker:       ticker,
		FinalWeight:  w,
		ShortWeight:  short,
		Correlation:  rho,
		ZeroExposure: point(-short),
	}
	for _, x := range weights {
		out.Points = append(out.Points, point(x))
	}
	excess, err := ExcessReturns(panel, ticker)
	if err != nil {
		return nil, err
	}
	out.Dates = append(models.DateList(nil), panel.Dates...)
	out.Excess = excess
	return out, nil
}

// ExcessReturns returns the ticker's cumulative return minus the portfolio's
// on each date. A date where either is missing is null.
func ExcessReturns(panel *models.ValuationPanel, ticker string) ([]models.NullFloat64, error) {
	if ticker == models.PortfolioTicker || !panel.HasTicker(ticker) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTicker, ticker)
	}
	t := panel.Series(ticker, models.FieldCumRet)
	p := panel.Series(models.PortfolioTicker, models.FieldCumRet)
	out := make([]models.NullFloat64, len(t))
	for i := range t {
		if t[i].Valid && p[i].Valid {
			out[i] = models.Float(t[i].Float64 - p[i].Float64)
		}
	}
	return out, nil
}
