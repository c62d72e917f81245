package analytics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/prism/internal/models"
)

// DefaultVarianceThreshold is the cumulative explained variance the default
// component count must reach.
const DefaultVarianceThreshold = 0.8

// Decompose extracts principal components from the standardised complete
// rows of m. min(assets, observations) components are returned by
// descending explained variance. Each component is signed so its largest
// loading is positive; signs carry no meaning across runs.
func Decompose(m *ReturnMatrix, threshold float64) (*models.FactorDecomposition, error) {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultVarianceThreshold
	}

	// A ticker without returns has no complete row; keeping it would empty the matrix.
	usable, dropped := m.Usable()
	if len(usable) < len(m.Tickers) {
		m = m.Subset(usable)
	}

	p := len(m.Tickers)
	if p == 0 {
		return nil, &InsufficientAssetsError{Context: "factor decomposition", Have: 0, Need: 1}
	}
	rows, dates := m.CompleteRows()
	nObs := len(rows)
	if nObs < 2 {
		return nil, &InsufficientDataError{Have: nObs, Need: 2, Reason: "complete observations"}
	}

	result := &models.FactorDecomposition{
		Tickers:      append([]string(nil), m.Tickers...),
		Dates:        dates,
		Observations: nObs,
		Diagnostics:  dropped,
	}

	x := mat.NewDense(nObs, p, nil)
	col := make([]float64, nObs)
	for j := 0; j < p; j++ {
		for i := range rows {
			col[i] = rows[i][j]
		}
		scaled, ok := standardize(col)
		if !ok {
			result.Diagnostics = append(result.Diagnostics, models.Diagnostic{
				Ticker:  m.Tickers[j],
				Code:    models.DiagZeroVariance,
				Message: "constant returns over the complete rows; contributes no variance",
			})
		}
		x.SetCol(j, scaled)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)
	if mat.Trace(&cov) <= 0 {
		return nil, &InsufficientDataError{Have: nObs, Need: 2, Reason: "observations with non-zero variance"}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(&cov, true); !ok {
		return nil, errors.New("factor decomposition: eigendecomposition did not converge")
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	k := min(p, nObs)
	kept := make([]float64, k)
	v := mat.NewDense(p, k, nil)
	for c := 0; c < k; c++ {
		src := p - 1 - c // gonum returns eigenvalues in ascending order
		kept[c] = math.Max(values[src], 0)

		vec := make([]float64, p)
		mat.Col(vec, src, &vectors)
		largest := 0
		for i := range vec {
			if math.Abs(vec[i]) > math.Abs(vec[largest]) {
				largest = i
			}
		}
		if vec[largest] < 0 {
			for i := range vec {
				vec[i] = -vec[i]
			}
		}
		v.SetCol(c, vec)
	}

	total := 0.0
	for _, ev := range kept {
		total += ev
	}
	result.Components = make([]string, k)
	result.ExplainedVarianceRatio = make([]float64, k)
	result.CumulativeVariance = make([]float64, k)
	cum := 0.0
	for c := 0; c < k; c++ {
		result.Components[c] = fmt.Sprintf("PC%d", c+1)
		result.ExplainedVarianceRatio[c] = kept[c] / total
		cum += result.ExplainedVarianceRatio[c]
		result.CumulativeVariance[c] = cum
		if result.DefaultComponents == 0 && cum >= threshold-1e-12 {
			result.DefaultComponents = c + 1
		}
	}
	if result.DefaultComponents == 0 {
		result.DefaultComponents = k
	}

	result.Loadings = make(map[string][]float64, p)
	for j, t := range m.Tickers {
		result.Loadings[t] = mat.Row(nil, j, v)
	}

	var proj mat.Dense
	proj.Mul(x, v)
	result.Projected = make([][]float64, nObs)
	for i := 0; i < nObs; i++ {
		result.Projected[i] = mat.Row(nil, i, &proj)
	}

	return result, nil
}
