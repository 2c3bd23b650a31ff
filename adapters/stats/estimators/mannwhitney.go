package estimators

import (
	"fmt"
	"math"
	"sort"

	"goab/domain/core"
	"goab/domain/stats"
)

// exactMaxSmallSample is the largest size of the smaller sample for which
// the exact null distribution of U is used (when there are no ties).
const exactMaxSmallSample = 8

// MannWhitney is the two-sided rank-sum test on the raw per-unit ratios X and Y.
type MannWhitney struct{}

func NewMannWhitney() *MannWhitney { return &MannWhitney{} }

func (e *MannWhitney) Name() string { return "mann_whitney" }

func (e *MannWhitney) Description() string {
	return "Two-sided Mann-Whitney U test on per-unit ratios"
}

// Estimate returns U for sample X and a two-sided p-value. Small tie-free
// samples use the exact distribution; otherwise the normal approximation
// with tie and continuity corrections.
func (e *MannWhitney) Estimate(st stats.Statistics) stats.EstimatorResult {
	x, y := finiteValues(st.X), finiteValues(st.Y)
	n1, n2 := len(x), len(y)
	if n1 == 0 || n2 == 0 {
		return stats.Failure(fmt.Errorf("%w: rank test needs observations in both variants (n_x=%d, n_y=%d)",
			core.ErrInsufficientData, n1, n2))
	}

	ranks, tieCounts := averageRanks(append(append([]float64{}, x...), y...))
	r1 := 0.0
	for i := 0; i < n1; i++ {
		r1 += ranks[i]
	}
	u1 := r1 - float64(n1*(n1+1))/2
	u2 := float64(n1*n2) - u1
	u := math.Max(u1, u2)

	var p float64
	if len(tieCounts) == 0 && (n1 <= exactMaxSmallSample || n2 <= exactMaxSmallSample) {
		p = 2 * exactUSurvival(int(math.Round(u)), n1, n2)
	} else {
		z, err := normalApproxZ(u, n1, n2, tieCounts)
		if err != nil {
			return stats.Failure(err)
		}
		p = 2 * normalSurvival(z)
	}

	return stats.Success(u1, clampProbability(p))
}

func finiteValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// averageRanks assigns 1-based ranks, averaging over ties. tieCounts holds
// the size of every tie group larger than one.
func averageRanks(values []float64) (ranks []float64, tieCounts []int) {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	ranks = make([]float64, len(values))
	for i := 0; i < len(order); {
		j := i + 1
		for j < len(order) && values[order[j]] == values[order[i]] {
			j++
		}
		// positions i..j-1 share ranks i+1..j
		avg := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		if j-i > 1 {
			tieCounts = append(tieCounts, j-i)
		}
		i = j
	}
	return ranks, tieCounts
}

func normalApproxZ(u float64, n1, n2 int, tieCounts []int) (float64, error) {
	fn1, fn2 := float64(n1), float64(n2)
	n := fn1 + fn2
	mu := fn1 * fn2 / 2

	tieTerm := 0.0
	for _, t := range tieCounts {
		ft := float64(t)
		tieTerm += ft*ft*ft - ft
	}
	variance := fn1 * fn2 / 12 * ((n + 1) - tieTerm/(n*(n-1)))
	if variance <= 0 || math.IsNaN(variance) {
		return 0, fmt.Errorf("%w: all observations are tied", core.ErrDegenerateVariance)
	}

	// continuity correction toward the mean
	return (u - mu - 0.5) / math.Sqrt(variance), nil
}

// exactUSurvival returns P(U >= u) under the null hypothesis for sample sizes
// n1, n2 without ties. The frequencies of U are the coefficients of the
// Gaussian binomial [n1+n2 choose n1]_q, built as
// prod_{i=1..n1} (1 - q^(n2+i)) / (1 - q^i).
func exactUSurvival(u, n1, n2 int) float64 {
	maxU := n1 * n2
	if u <= 0 {
		return 1
	}
	if u > maxU {
		return 0
	}

	freq := make([]float64, maxU+1)
	freq[0] = 1
	for i := 1; i <= n1; i++ {
		step := n2 + i
		for k := maxU; k >= step; k-- {
			freq[k] -= freq[k-step]
		}
		for k := i; k <= maxU; k++ {
			freq[k] += freq[k-i]
		}
	}

	total, tail := 0.0, 0.0
	for k, f := range freq {
		total += f
		if k >= u {
			tail += f
		}
	}
	return tail / total
}
