package analytics

import (
	"fmt"
	"math"

	"github.com/bobmcallan/prism/internal/models"
)

// Cluster groups the matrix tickers into exactly k flat clusters by average
// linkage, cutting the dendrogram by maximum cluster count. Tickers with
// fewer than two returns are left out with a diagnostic. Holdings supply the
// expense ratio and AUM used to pick each group's winner; they may be nil.
func Cluster(m *ReturnMatrix, k int, mode models.FeatureMode, holdings models.Holdings) (*models.ClusterResult, error) {
	result := &models.ClusterResult{Mode: mode, Requested: k}

	usable, dropped := m.Usable()
	result.Diagnostics = append(result.Diagnostics, dropped...)
	if len(usable) < len(m.Tickers) {
		m = m.Subset(usable)
	}

	n := len(m.Tickers)
	if n < 2 {
		return nil, &InsufficientAssetsError{Context: "clustering", Have: n, Need: 2}
	}
	if k < 1 || k > n {
		return nil, fmt.Errorf("%w: requested %d clusters for %d assets", ErrInvalidClusterCount, k, n)
	}

	td := m.tradingDays()
	annRet := make([]float64, n)
	annVol := make([]float64, n)
	for j := range m.Tickers {
		annRet[j], annVol[j] = annualised(finite(m.Column(j)), td)
	}

	dist, diags, err := distanceMatrix(m, mode, annRet, annVol)
	if err != nil {
		return nil, err
	}
	result.Diagnostics = append(result.Diagnostics, diags...)

	linkage, err := AverageLinkage(Condensed(dist), n)
	if err != nil {
		return nil, err
	}
	labels, err := CutMaxClusters(linkage, n, k)
	if err != nil {
		return nil, err
	}

	result.Tickers = append([]string(nil), m.Tickers...)
	result.Linkage = linkage
	result.Assignment = make(map[string]int, n)
	for j, t := range m.Tickers {
		result.Assignment[t] = labels[j]
	}

	for id := 1; id <= k; id++ {
		g := models.ClusterGroup{ID: id}
		for j, t := range m.Tickers {
			if labels[j] != id {
				continue
			}
			g.Tickers = append(g.Tickers, t)
			g.AvgAnnualReturn += annRet[j]
			g.AvgAnnualVolatility += annVol[j]
		}
		g.Size = len(g.Tickers)
		g.AvgAnnualReturn /= float64(g.Size)
		g.AvgAnnualVolatility /= float64(g.Size)
		g.Singleton = g.Size == 1
		if g.Singleton && k < n {
			result.Diagnostics = append(result.Diagnostics, models.Diagnostic{
				Ticker:  g.Tickers[0],
				Code:    models.DiagSingleMemberCluster,
				Message: fmt.Sprintf("cluster %d has a single member", id),
			})
		}

		if winner, ok := lowestExpenseRatio(g.Tickers, holdings); ok {
			g.Winner = winner
		} else if holdings != nil {
			result.Diagnostics = append(result.Diagnostics, models.Diagnostic{
				Code:    models.DiagNoExpenseRatio,
				Message: fmt.Sprintf("cluster %d has no expense ratios; no winner chosen", id),
			})
		}
		result.Groups = append(result.Groups, g)
	}

	return result, nil
}

func distanceMatrix(m *ReturnMatrix, mode models.FeatureMode, annRet, annVol []float64) ([][]float64, []models.Diagnostic, error) {
	n := len(m.Tickers)
	if mode == models.ModeCorrelation {
		corr, err := Correlation(m)
		if err != nil {
			return nil, nil, err
		}
		dist := make([][]float64, n)
		for i := range dist {
			dist[i] = make([]float64, n)
			for j := range dist[i] {
				if i != j {
					dist[i][j] = 1 - corr.Values[i][j]
				}
			}
		}
		return dist, corr.Diagnostics, nil
	}

	var features [][]float64
	switch mode {
	case models.ModeReturnVolatility:
		features = [][]float64{annRet, annVol}
	case models.ModeReturn:
		features = [][]float64{annRet}
	case models.ModeVolatility:
		features = [][]float64{annVol}
	default:
		return nil, nil, fmt.Errorf("unsupported cluster mode %s", mode)
	}

	var diags []models.Diagnostic
	scaled := make([][]float64, len(features))
	for f, values := range features {
		var ok bool
		scaled[f], ok = standardize(values)
		if !ok {
			diags = append(diags, models.Diagnostic{
				Code:    models.DiagZeroVariance,
				Message: "a clustering feature is constant across assets and was standardised to 0",
			})
		}
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			ss := 0.0
			for _, col := range scaled {
				d := col[i] - col[j]
				ss += d * d
			}
			dist[i][j] = math.Sqrt(ss)
			dist[j][i] = dist[i][j]
		}
	}
	return dist, diags, nil
}

// lowestExpenseRatio picks the ticker with the lowest expense ratio; ties
// go to the larger AUM, then to the first ticker.
func lowestExpenseRatio(tickers []string, holdings models.Holdings) (string, bool) {
	best := ""
	var bestER, bestAUM float64
	for _, t := range tickers {
		h, ok := holdings.Find(t)
		if !ok || h.ExpenseRatio == nil {
			continue
		}
		er := *h.ExpenseRatio
		aum := math.Inf(-1)
		if h.AUM != nil {
			aum = *h.AUM
		}
		if best == "" || er < bestER || (er == bestER && aum > bestAUM) {
			best, bestER, bestAUM = t, er, aum
		}
	}
	return best, best != ""
}

// AverageLinkage performs UPGMA agglomeration over a condensed distance
// vector of n points, the upper triangle of the distance matrix row by row.
// Ties merge the pair with the lowest cluster ids first.
func AverageLinkage(condensed []float64, n int) (models.Linkage, error) {
	if n < 1 {
		return nil, &InsufficientAssetsError{Context: "linkage", Have: n, Need: 1}
	}
	if len(condensed) != n*(n-1)/2 {
		return nil, fmt.Errorf("condensed distances have %d entries, want %d for %d points", len(condensed), n*(n-1)/2, n)
	}
	for k, v := range condensed {
		if !isFinite(v) {
			return nil, fmt.Errorf("condensed distances have non-finite entry %d", k)
		}
	}

	total := 2*n - 1
	d := make([][]float64, total)
	for i := range d {
		d[i] = make([]float64, total)
	}
	k := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d[i][j], d[j][i] = condensed[k], condensed[k]
			k++
		}
	}

	size := make([]int, total)
	active := make([]int, n)
	for i := range active {
		active[i] = i
		size[i] = 1
	}

	linkage := make(models.Linkage, 0, n-1)
	for step := 0; step < n-1; step++ {
		bi, bj := -1, -1
		best := math.Inf(1)
		for a := 0; a < len(active); a++ {
			for b := a + 1; b < len(active); b++ {
				if v := d[active[a]][active[b]]; v < best {
					best, bi, bj = v, a, b
				}
			}
		}

		left, right := active[bi], active[bj]
		id := n + step
		size[id] = size[left] + size[right]
		for _, c := range active {
			if c == left || c == right {
				continue
			}
			v := (float64(size[left])*d[c][left] + float64(size[right])*d[c][right]) / float64(size[id])
			d[c][id], d[id][c] = v, v
		}
		linkage = append(linkage, models.Merge{Left: left, Right: right, Distance: best, Size: size[id]})

		// remove right first so the left index stays valid
		active = append(active[:bj], active[bj+1:]...)
		active = append(active[:bi], active[bi+1:]...)
		active = append(active, id)
	}
	return linkage, nil
}

// CutMaxClusters returns 1-based flat labels for n leaves by applying the
// first n-k merges. Labels are numbered in order of first appearance.
func CutMaxClusters(linkage models.Linkage, n, k int) ([]int, error) {
	if k < 1 || k > n {
		return nil, fmt.Errorf("%w: requested %d clusters for %d assets", ErrInvalidClusterCount, k, n)
	}
	if len(linkage) != n-1 {
		return nil, fmt.Errorf("linkage has %d merges, want %d for %d leaves", len(linkage), n-1, n)
	}

	parent := make([]int, 2*n-1)
	for i := range parent {
		parent[i] = i
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	// merges are recorded in non-decreasing height, so a cut is a prefix
	for i, mg := range linkage[:n-k] {
		id := n + i
		parent[find(mg.Left)] = id
		parent[find(mg.Right)] = id
	}

	labels := make([]int, n)
	seen := make(map[int]int)
	for leaf := 0; leaf < n; leaf++ {
		root := find(leaf)
		if _, ok := seen[root]; !ok {
			seen[root] = len(seen) + 1
		}
		labels[leaf] = seen[root]
	}
	return labels, nil
}

// Condensed returns the upper triangle of a square matrix, row by row.
func Condensed(dist [][]float64) []float64 {
	n := len(dist)
	out := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, dist[i][j])
		}
	}
	return out
}
