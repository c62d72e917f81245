package analytics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/bobmcallan/prism/internal/models"
)

// RiskScores rates every panel ticker, Portfolio included, by total log
// return per unit of annualised volatility. Series without variance score null.
func RiskScores(panel *models.ValuationPanel, tradingDays int) []models.RiskScore {
	if tradingDays <= 0 {
		tradingDays = DefaultTradingDays
	}
	out := make([]models.RiskScore, 0, len(panel.Tickers))
	for _, t := range panel.Tickers {
		score := models.RiskScore{Ticker: t}
		rets := finite(panel.Values(t, models.FieldLogRet))
		if len(rets) >= 2 {
			vol := stat.StdDev(rets, nil) * math.Sqrt(float64(tradingDays))
			if vol > 0 {
				x := floats.Sum(rets) / vol
				score.RiskAdjusted = models.NewNullFloat64(x)
				score.RiskAdjustedLinear = models.NewNullFloat64(math.Exp(x) - 1)
				score.Probability = models.NewNullFloat64(distuv.UnitNormal.CDF(x))
			}
		}
		out = append(out, score)
	}
	return out
}

// RiskReturn returns annualised volatility and total return for every panel
// ticker with at least two returns.
func RiskReturn(panel *models.ValuationPanel, tradingDays int) []models.RiskReturnPoint {
	if tradingDays <= 0 {
		tradingDays = DefaultTradingDays
	}
	var out []models.RiskReturnPoint
	for _, t := range panel.Tickers {
		rets := finite(panel.Values(t, models.FieldLogRet))
		total := panel.Last(t, models.FieldCumRet)
		if len(rets) < 2 || !total.Valid {
			continue
		}
		_, vol := annualised(rets, tradingDays)
		out = append(out, models.RiskReturnPoint{Ticker: t, Volatility: vol, TotalReturn: total.Float64})
	}
	return out
}
