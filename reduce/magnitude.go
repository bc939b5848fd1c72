package reduce

import (
	"math"
	"sort"

	"github.com/svilsen/RWNN/rwnn"
	"gonum.org/v1/gonum/mat"
)

// quantileThreshold returns the p-quantile of scores, linearly
// interpolated at position p*(n-1) between order statistics. An exact
// proportion lands the threshold strictly between the bracketing scores,
// so removing the entries strictly below it takes out p*n of n distinct
// scores while boundary ties stay in the network. An empty input
// thresholds at zero.
func quantileThreshold(scores []float64, p float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	h := p * float64(len(sorted)-1)
	lo := int(math.Floor(h))
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

func collectAbs(pool []float64, m *mat.Dense) []float64 {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			pool = append(pool, math.Abs(m.At(i, j)))
		}
	}
	return pool
}

func zeroBelowAbs(m *mat.Dense, thr float64) int {
	r, c := m.Dims()
	n := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); v != 0 && math.Abs(v) < thr {
				m.Set(i, j, 0)
				n++
			}
		}
	}
	return n
}

func zeroScoredBelow(m, scores *mat.Dense, thr float64) int {
	r, c := m.Dims()
	n := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) != 0 && scores.At(i, j) < thr {
				m.Set(i, j, 0)
				n++
			}
		}
	}
	return n
}

// reduceGlobal zeroes the weights whose magnitude falls below the
// proportion quantile of magnitudes pooled across every hidden layer and
// the output layer. Shapes are untouched.
func reduceGlobal(r *Reducer, net *rwnn.Network, x, y *mat.Dense, p Params) error {
	var pool []float64
	for _, w := range net.Weights {
		pool = collectAbs(pool, w)
	}
	pool = collectAbs(pool, net.OutputWeights)

	thr := quantileThreshold(pool, p.Proportion)
	n := 0
	for _, w := range net.Weights {
		n += zeroBelowAbs(w, thr)
	}
	n += zeroBelowAbs(net.OutputWeights, thr)
	r.log.Debugf("global magnitude zeroed %d of %d weights", n, len(pool))
	return nil
}

// reduceUniform applies the magnitude quantile to each hidden layer and
// the output layer independently.
func reduceUniform(r *Reducer, net *rwnn.Network, x, y *mat.Dense, p Params) error {
	n := 0
	for l, w := range net.Weights {
		thr := quantileThreshold(collectAbs(nil, w), p.Proportion)
		zeroed := zeroBelowAbs(w, thr)
		n += zeroed
		r.log.Debugf("uniform magnitude zeroed %d weights in layer %d", zeroed, l)
	}
	thr := quantileThreshold(collectAbs(nil, net.OutputWeights), p.Proportion)
	n += zeroBelowAbs(net.OutputWeights, thr)
	r.log.Debugf("uniform magnitude zeroed %d weights in total", n)
	return nil
}

// lampScores fills a score matrix parallel to m: each entry's squared
// value over the within-column sum of squares of the entries with equal or
// larger magnitude. An all-zero tail makes the denominator zero, which
// scores as zero.
func lampScores(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	type entry struct {
		abs float64
		row int
	}
	ents := make([]entry, r)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			ents[i] = entry{abs: math.Abs(m.At(i, j)), row: i}
		}
		sort.Slice(ents, func(a, b int) bool { return ents[a].abs > ents[b].abs })

		prefix := 0.0
		for s := 0; s < r; {
			e := s
			groupSum := 0.0
			for e < r && ents[e].abs == ents[s].abs {
				groupSum += ents[e].abs * ents[e].abs
				e++
			}
			denom := prefix + groupSum
			for k := s; k < e; k++ {
				if denom > 0 {
					out.Set(ents[k].row, j, ents[k].abs*ents[k].abs/denom)
				}
			}
			prefix = denom
			s = e
		}
	}
	return out
}

// reduceLAMP zeroes hidden weights whose layer-adaptive magnitude score
// falls below the proportion quantile pooled across the hidden layers.
func reduceLAMP(r *Reducer, net *rwnn.Network, x, y *mat.Dense, p Params) error {
	scores := make([]*mat.Dense, net.Depth())
	var pool []float64
	for l, w := range net.Weights {
		scores[l] = lampScores(w)
		pool = collectAbs(pool, scores[l])
	}

	thr := quantileThreshold(pool, p.Proportion)
	n := 0
	for l, w := range net.Weights {
		n += zeroScoredBelow(w, scores[l], thr)
	}
	r.log.Debugf("lamp zeroed %d of %d hidden weights", n, len(pool))
	return nil
}
