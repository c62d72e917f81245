package analytics

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/prism/internal/models"
)

// Correlation computes the pairwise-complete Pearson correlation of every
// ticker pair. The diagonal is exactly 1. A pair without variance or with
// fewer than two common observations correlates at 0 and is reported as a
// diagnostic.
func Correlation(m *ReturnMatrix) (*models.CorrelationMatrix, error) {
	n := len(m.Tickers)
	if n < 2 {
		return nil, &InsufficientAssetsError{Context: "correlation", Have: n, Need: 2}
	}

	cols := make([][]float64, n)
	flat := make([]bool, n)
	out := &models.CorrelationMatrix{
		Tickers: append([]string(nil), m.Tickers...),
		Values:  make([][]float64, n),
	}
	for j := range cols {
		cols[j] = m.Column(j)
		out.Values[j] = make([]float64, n)
		out.Values[j][j] = 1

		vals := finite(cols[j])
		if len(vals) < 2 || stat.Variance(vals, nil) == 0 {
			flat[j] = true
			out.Diagnostics = append(out.Diagnostics, models.Diagnostic{
				Ticker:  m.Tickers[j],
				Code:    models.DiagZeroVariance,
				Message: "no return variance; correlations reported as 0",
			})
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if flat[i] || flat[j] {
				continue
			}
			xs, ys := pairwise(cols[i], cols[j])
			rho := 0.0
			if len(xs) >= 2 && stat.Variance(xs, nil) > 0 && stat.Variance(ys, nil) > 0 {
				rho = clamp(stat.Correlation(xs, ys, nil), -1, 1)
			} else {
				out.Diagnostics = append(out.Diagnostics, models.Diagnostic{
					Ticker:  m.Tickers[i] + "/" + m.Tickers[j],
					Code:    models.DiagInsufficientObservations,
					Message: fmt.Sprintf("%d overlapping observations with variance; correlation reported as 0", len(xs)),
				})
			}
			out.Values[i][j] = rho
			out.Values[j][i] = rho
		}
	}
	return out, nil
}
