package reduce

import (
	"math"

	"github.com/svilsen/RWNN/rwnn"
	"gonum.org/v1/gonum/mat"
)

// reduceRelief scores connections by relative importance: the magnitude of
// a weight times its source's mean absolute activation, normalized by the
// total such mass flowing into the destination. "weight" mode zeroes the
// hidden connections below the pooled proportion quantile; "neuron" mode
// sums each neuron's outgoing importances and drops the weakest neurons
// per layer.
func reduceRelief(r *Reducer, net *rwnn.Network, x, y *mat.Dense, p Params) error {
	mode := p.Mode
	if mode == "" {
		mode = ModeWeight
	}
	if mode != ModeWeight && mode != ModeNeuron {
		return ConfigError{Reason: "unknown relief mode " + mode}
	}

	h, err := r.forward.Forward(x, net.HiddenLayers())
	if err != nil {
		return err
	}

	if mode == ModeWeight {
		return reliefWeights(r, net, x, h, p)
	}
	return reliefNeurons(r, net, x, h, p)
}

func reliefWeights(r *Reducer, net *rwnn.Network, x *mat.Dense, h []*mat.Dense, p Params) error {
	ri := make([]*mat.Dense, net.Depth())
	var pool []float64
	for l, w := range net.Weights {
		ri[l] = columnImportance(w, layerSourceScales(net, x, h, l))
		pool = collectAbs(pool, ri[l])
	}

	thr := quantileThreshold(pool, p.Proportion)
	n := 0
	for l, w := range net.Weights {
		n += zeroScoredBelow(w, ri[l], thr)
	}
	r.log.Debugf("relief zeroed %d of %d hidden connections", n, len(pool))
	return nil
}

func reliefNeurons(r *Reducer, net *rwnn.Network, x *mat.Dense, h []*mat.Dense, p Params) error {
	riOut := columnImportance(net.OutputWeights, outputSourceScales(net, x, h))

	drops := make([][]int, net.Depth())
	for l := 0; l < net.Depth(); l++ {
		width := net.Widths[l]
		if width <= 1 {
			continue
		}
		scores := make([]float64, width)
		if l+1 < net.Depth() {
			ri := columnImportance(net.Weights[l+1], layerSourceScales(net, x, h, l+1))
			off := 0
			if net.Biases[l+1] {
				off = 1
			}
			_, cols := ri.Dims()
			for u := 0; u < width; u++ {
				for j := 0; j < cols; j++ {
					scores[u] += ri.At(off+u, j)
				}
			}
		}
		if net.CombineHidden || l == net.Depth()-1 {
			off := net.OutputOffset(l)
			_, cols := riOut.Dims()
			for u := 0; u < width; u++ {
				for j := 0; j < cols; j++ {
					scores[u] += riOut.At(off+u, j)
				}
			}
		}

		total := 0.0
		for _, v := range scores {
			total += v
		}
		if total > 0 {
			for u := range scores {
				scores[u] /= total
			}
		}
		drops[l] = belowThreshold(scores, quantileThreshold(scores, p.Proportion))
	}
	return applyDrops(r, net, drops)
}

// layerSourceScales gives the per-row source scale for hidden layer l's
// weight matrix: 1 for the bias row and the mean absolute activation of
// each feeding column, taken from the raw input for the first layer.
func layerSourceScales(net *rwnn.Network, x *mat.Dense, h []*mat.Dense, l int) []float64 {
	src := x
	if l > 0 {
		src = h[l-1]
	}
	_, c := src.Dims()
	scales := make([]float64, 0, c+1)
	if net.Biases[l] {
		scales = append(scales, 1)
	}
	for j := 0; j < c; j++ {
		scales = append(scales, meanAbs(mat.Col(nil, j, src)))
	}
	return scales
}

// outputSourceScales gives the per-row source scale of the output design:
// 1 for the bias row, mean absolute feature values for pass-through
// columns, and mean absolute activations for the hidden blocks.
func outputSourceScales(net *rwnn.Network, x *mat.Dense, h []*mat.Dense) []float64 {
	scales := make([]float64, 0, net.OutputRows())
	if net.OutputBias {
		scales = append(scales, 1)
	}
	if net.CombineInput {
		for _, j := range net.InputColumns() {
			scales = append(scales, meanAbs(mat.Col(nil, j, x)))
		}
	}
	appendLayer := func(l int) {
		for j := 0; j < net.Widths[l]; j++ {
			scales = append(scales, meanAbs(mat.Col(nil, j, h[l])))
		}
	}
	if net.CombineHidden {
		for l := range h {
			appendLayer(l)
		}
	} else {
		appendLayer(len(h) - 1)
	}
	return scales
}

// columnImportance maps each entry of w to |w|*scale over the column's
// total weighted mass. A vanishing column mass scores the whole column 0.
func columnImportance(w *mat.Dense, scales []float64) *mat.Dense {
	r, c := w.Dims()
	out := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		total := 0.0
		for i := 0; i < r; i++ {
			total += math.Abs(w.At(i, j)) * scales[i]
		}
		if total == 0 {
			continue
		}
		for i := 0; i < r; i++ {
			out.Set(i, j, math.Abs(w.At(i, j))*scales[i]/total)
		}
	}
	return out
}

func meanAbs(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += math.Abs(x)
	}
	return s / float64(len(v))
}
