package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// finite drops missing values.
func finite(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

// pairwise keeps the positions where both series are finite.
func pairwise(x, y []float64) (xs, ys []float64) {
	for i := range x {
		if isFinite(x[i]) && isFinite(y[i]) {
			xs = append(xs, x[i])
			ys = append(ys, y[i])
		}
	}
	return xs, ys
}

// annualised returns the annualised mean and sample volatility of returns.
func annualised(returns []float64, tradingDays int) (ret, vol float64) {
	mean, std := stat.MeanStdDev(returns, nil)
	return mean * float64(tradingDays), std * math.Sqrt(float64(tradingDays))
}

// standardize scales x to zero mean and unit population variance. A
// constant series maps to zeros; the second result reports that case.
func standardize(x []float64) ([]float64, bool) {
	mean := stat.Mean(x, nil)
	std := populationStdDev(x, mean)
	out := make([]float64, len(x))
	if std == 0 || !isFinite(std) {
		return out, false
	}
	for i, v := range x {
		out[i] = (v - mean) / std
	}
	return out, true
}

func populationStdDev(x []float64, mean float64) float64 {
	if len(x) == 0 {
		return 0
	}
	ss := 0.0
	for _, v := range x {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(x)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
