package reduce

import (
	"github.com/svilsen/RWNN/rwnn"
	"gonum.org/v1/gonum/mat"
)

// normTol is the structural near-zero cutoff of the cleanup pass.
const normTol = 1e-8

// normalize removes degenerate structure left behind by a strategy: zero
// hidden bias rows, all-zero layers (the network is truncated there), dead
// neurons with no surviving forward connection, and a zero output bias.
// Passes repeat until nothing changes, so normalizing an already clean
// network is a no-op.
func (r *Reducer) normalize(net *rwnn.Network) error {
	for {
		changed, err := r.normalizePass(net)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
	}
}

func (r *Reducer) normalizePass(net *rwnn.Network) (bool, error) {
	changed := false

	for l := 0; l < net.Depth(); l++ {
		if net.Biases[l] && rowNearZero(net.Weights[l], 0, normTol) {
			net.Weights[l] = removeRows(net.Weights[l], []int{0})
			net.Biases[l] = false
			changed = true
			r.log.Debugf("dropped the zero bias row of layer %d", l)
		}
	}

	for l := 0; l < net.Depth(); l++ {
		if matrixNearZero(net.Weights[l], normTol) {
			if l == 0 {
				return false, DegenerateError{Reason: "first hidden layer is entirely zero"}
			}
			truncate(net, l)
			changed = true
			r.log.Debugf("truncated the network before all-zero layer %d", l)
			break
		}
	}

	// A neuron whose whole outgoing row vanished is dead code, but only
	// when the output cannot see it directly.
	if !net.CombineHidden {
		dead := make([][]int, net.Depth())
		for l := 0; l+1 < net.Depth(); l++ {
			if net.Widths[l] <= 1 {
				continue
			}
			off := 0
			if net.Biases[l+1] {
				off = 1
			}
			for u := 0; u < net.Widths[l]; u++ {
				if rowNearZero(net.Weights[l+1], off+u, normTol) {
					dead[l] = append(dead[l], u)
				}
			}
			if len(dead[l]) == net.Widths[l] {
				dead[l] = dead[l][1:]
			}
		}
		for l, cols := range dead {
			if len(cols) == 0 {
				continue
			}
			if err := dropNeurons(net, l, cols); err != nil {
				return false, err
			}
			changed = true
			r.log.Debugf("removed %d dead neurons from layer %d", len(cols), l)
		}
	}

	if net.OutputBias && rowNearZero(net.OutputWeights, 0, normTol) {
		net.OutputWeights = removeRows(net.OutputWeights, []int{0})
		net.OutputBias = false
		changed = true
		r.log.Debugf("dropped the zero output bias row")
	}

	return changed, nil
}

// truncate drops hidden layer l and everything after it. With combined
// hidden layers the surviving output rows keep their values; otherwise the
// output block belonged to the removed last layer and is rebuilt as zeros
// for the new last layer, to be filled in by retraining.
func truncate(net *rwnn.Network, l int) {
	if net.CombineHidden {
		start := net.OutputOffset(l)
		count := 0
		for k := l; k < net.Depth(); k++ {
			count += net.Widths[k]
		}
		rows := make([]int, count)
		for i := range rows {
			rows[i] = start + i
		}
		net.OutputWeights = removeRows(net.OutputWeights, rows)
	} else {
		base := net.OutputOffset(0)
		_, t := net.OutputWeights.Dims()
		out := mat.NewDense(base+net.Widths[l-1], t, nil)
		for i := 0; i < base; i++ {
			out.SetRow(i, net.OutputWeights.RawRowView(i))
		}
		net.OutputWeights = out
	}
	net.Widths = net.Widths[:l]
	net.Weights = net.Weights[:l]
	net.Biases = net.Biases[:l]
	net.Activations = net.Activations[:l]
}

// retrain re-estimates the output layer on the current structure. This is
// the only step of a reduction that computes new weight values.
func (r *Reducer) retrain(net *rwnn.Network, x, y *mat.Dense) error {
	h, err := r.forward.Forward(x, net.HiddenLayers())
	if err != nil {
		return err
	}
	design, err := net.DesignMatrix(x, h)
	if err != nil {
		return err
	}
	beta, sigma, err := r.estimate.Estimate(design, y, net.Norm, net.Penalty)
	if err != nil {
		return err
	}
	net.OutputWeights = beta
	net.Sigma = sigma
	return nil
}
