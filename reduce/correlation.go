package reduce

import (
	"math"
	"sort"

	"github.com/svilsen/RWNN/rwnn"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// reduceCorrelation drops every neuron whose activations correlate, in
// absolute value, at or above rho with an earlier neuron of the same
// layer. The earliest neuron of each correlated group survives.
func reduceCorrelation(r *Reducer, net *rwnn.Network, x, y *mat.Dense, p Params) error {
	corr, err := correlator(p.Correlation)
	if err != nil {
		return err
	}
	h, err := r.forward.Forward(x, net.HiddenLayers())
	if err != nil {
		return err
	}

	drops := correlatedDrops(h, net.Widths, corr, func(rhat float64) bool {
		return !math.IsNaN(rhat) && rhat >= p.Rho
	})
	return applyDrops(r, net, drops)
}

// reduceCorrelationTest keeps a neuron only when its correlation with
// every earlier neuron tests significantly below rho: the Fisher
// z-statistic (atanh(r) - atanh(rho)) * sqrt(n-3) is compared against the
// left tail at level alpha, and any pair failing to reject flags the later
// neuron for removal.
func reduceCorrelationTest(r *Reducer, net *rwnn.Network, x, y *mat.Dense, p Params) error {
	corr, err := correlator(p.Correlation)
	if err != nil {
		return err
	}
	h, err := r.forward.Forward(x, net.HiddenLayers())
	if err != nil {
		return err
	}

	n, _ := x.Dims()
	if n <= 3 {
		r.log.Warnf("correlation test needs more than 3 samples, have %d; skipping", n)
		return nil
	}
	// atanh is unbounded at 1, so back the threshold off the pole.
	zRho := math.Atanh(math.Min(p.Rho, 1-1e-9))
	scale := math.Sqrt(float64(n) - 3)

	drops := correlatedDrops(h, net.Widths, corr, func(rhat float64) bool {
		if math.IsNaN(rhat) {
			return false
		}
		return distuv.UnitNormal.CDF(fisherZ(rhat, zRho, scale)) >= p.Alpha
	})
	return applyDrops(r, net, drops)
}

// fisherZ computes (atanh(r) - zRho) * scale. A sample correlation can
// round past 1 on exactly dependent columns, where atanh goes NaN, so the
// statistic backs off the pole like the threshold.
func fisherZ(rhat, zRho, scale float64) float64 {
	return (math.Atanh(math.Min(rhat, 1-1e-9)) - zRho) * scale
}

// correlatedDrops flags, per layer, each neuron paired too closely with an
// earlier one. Pairs are visited once in upper-triangular order; the first
// neuron is never flagged, so a layer cannot empty. Width-1 layers are
// exempt.
func correlatedDrops(h []*mat.Dense, widths []int, corr func(a, b []float64) float64, flagged func(rhat float64) bool) [][]int {
	drops := make([][]int, len(h))
	for l, hm := range h {
		if widths[l] <= 1 {
			continue
		}
		cols := make([][]float64, widths[l])
		for j := range cols {
			cols[j] = mat.Col(nil, j, hm)
		}
		var drop []int
		for j := 1; j < widths[l]; j++ {
			for i := 0; i < j; i++ {
				if flagged(corr(cols[i], cols[j])) {
					drop = append(drop, j)
					break
				}
			}
		}
		drops[l] = drop
	}
	return drops
}

func correlator(kind string) (func(a, b []float64) float64, error) {
	switch kind {
	case "", CorrPearson:
		return func(a, b []float64) float64 {
			return math.Abs(stat.Correlation(a, b, nil))
		}, nil
	case CorrSpearman:
		return func(a, b []float64) float64 {
			return math.Abs(stat.Correlation(ranks(a), ranks(b), nil))
		}, nil
	case CorrKendall:
		return func(a, b []float64) float64 {
			return math.Abs(stat.Kendall(a, b, nil))
		}, nil
	}
	return nil, ConfigError{Reason: "unknown correlation kind " + kind}
}

// ranks maps values to their average-tied ranks.
func ranks(v []float64) []float64 {
	n := len(v)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })

	out := make([]float64, n)
	for s := 0; s < n; {
		e := s
		for e < n && v[idx[e]] == v[idx[s]] {
			e++
		}
		avg := float64(s+e-1) / 2
		for k := s; k < e; k++ {
			out[idx[k]] = avg
		}
		s = e
	}
	return out
}
