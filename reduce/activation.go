package reduce

import (
	"math"

	"github.com/svilsen/RWNN/rwnn"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	critAPOZ   = "apoz"
	critEnergy = "norm"
)

// reduceAPOZ drops the neurons whose share of near-zero standardized
// activations falls below the proportion quantile.
func reduceAPOZ(r *Reducer, net *rwnn.Network, x, y *mat.Dense, p Params) error {
	return reduceActivation(r, net, x, p, critAPOZ)
}

// reduceNorm drops the neurons with the least activation energy, the sum
// of squared raw activations over the training samples.
func reduceNorm(r *Reducer, net *rwnn.Network, x, y *mat.Dense, p Params) error {
	return reduceActivation(r, net, x, p, critEnergy)
}

func reduceActivation(r *Reducer, net *rwnn.Network, x *mat.Dense, p Params, crit string) error {
	h, err := r.forward.Forward(x, net.HiddenLayers())
	if err != nil {
		return err
	}

	scores := make([][]float64, len(h))
	for l, hm := range h {
		_, width := hm.Dims()
		s := make([]float64, width)
		for j := 0; j < width; j++ {
			col := mat.Col(nil, j, hm)
			if crit == critAPOZ {
				s[j] = scoreAPOZ(col, p.Tolerance)
			} else {
				s[j] = scoreEnergy(col)
			}
		}
		scores[l] = s
	}
	return dropByScores(r, net, scores, p)
}

// scoreAPOZ is the fraction of samples whose standardized activation lies
// within tol of zero. A constant column cannot be standardized and scores
// zero.
func scoreAPOZ(col []float64, tol float64) float64 {
	mean := stat.Mean(col, nil)
	sd := stat.StdDev(col, nil)
	if sd == 0 || math.IsNaN(sd) {
		return 0
	}
	n := 0
	for _, v := range col {
		if math.Abs((v-mean)/sd) < tol {
			n++
		}
	}
	return float64(n) / float64(len(col))
}

func scoreEnergy(col []float64) float64 {
	s := 0.0
	for _, v := range col {
		s += v * v
	}
	return s
}

// dropByScores removes below-quantile neurons layer by layer, pooling the
// scores across layers ("global") or thresholding each layer on its own
// ("uniform"). Width-1 layers are exempt, and a layer always keeps its
// best-scoring neuron.
func dropByScores(r *Reducer, net *rwnn.Network, scores [][]float64, p Params) error {
	typ := p.Type
	if typ == "" {
		typ = TypeGlobal
	}
	if typ != TypeGlobal && typ != TypeUniform {
		return ConfigError{Reason: "unknown threshold type " + typ}
	}

	drops := make([][]int, len(scores))
	if typ == TypeGlobal {
		var pool []float64
		for l, s := range scores {
			if net.Widths[l] > 1 {
				pool = append(pool, s...)
			}
		}
		if len(pool) == 0 {
			return nil
		}
		thr := quantileThreshold(pool, p.Proportion)
		for l, s := range scores {
			if net.Widths[l] > 1 {
				drops[l] = keepBest(belowThreshold(s, thr), s)
			}
		}
	} else {
		for l, s := range scores {
			if net.Widths[l] > 1 {
				drops[l] = belowThreshold(s, quantileThreshold(s, p.Proportion))
			}
		}
	}

	return applyDrops(r, net, drops)
}

func belowThreshold(s []float64, thr float64) []int {
	var idx []int
	for j, v := range s {
		if v < thr {
			idx = append(idx, j)
		}
	}
	return idx
}

// keepBest removes the highest-scoring index from a drop set that would
// otherwise empty the layer.
func keepBest(drop []int, s []float64) []int {
	if len(drop) < len(s) {
		return drop
	}
	best := 0
	for j, v := range s {
		if v > s[best] {
			best = j
		}
	}
	out := make([]int, 0, len(drop)-1)
	for _, j := range drop {
		if j != best {
			out = append(out, j)
		}
	}
	return out
}
