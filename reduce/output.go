package reduce

import (
	"github.com/svilsen/RWNN/rwnn"
	"gonum.org/v1/gonum/mat"
)

// reduceOutput removes the structure behind near-zero output rows. Each
// row whose entries all lie within tolerance of zero is traced back to its
// origin: the output bias row clears the bias flag, a pass-through row
// drops that input feature from the design, and a hidden row removes the
// neuron with the edit cascaded through the editor.
func reduceOutput(r *Reducer, net *rwnn.Network, x, y *mat.Dense, p Params) error {
	ow := net.OutputWeights
	tol := p.Tolerance

	// Classify every zero row against the current layout before editing.
	dropBias := net.OutputBias && rowNearZero(ow, 0, tol)

	kept := net.InputColumns()
	var dropFeatures map[int]bool
	if net.CombineInput {
		biasOff := 0
		if net.OutputBias {
			biasOff = 1
		}
		dropFeatures = make(map[int]bool)
		for i, feat := range kept {
			if rowNearZero(ow, biasOff+i, tol) {
				dropFeatures[feat] = true
			}
		}
	}

	neuronDrops := make([][]int, net.Depth())
	scan := func(l int) {
		if net.Widths[l] <= 1 {
			return
		}
		base := net.OutputOffset(l)
		for j := 0; j < net.Widths[l]; j++ {
			if rowNearZero(ow, base+j, tol) {
				neuronDrops[l] = append(neuronDrops[l], j)
			}
		}
		if len(neuronDrops[l]) == net.Widths[l] {
			// The whole block is zero; keep the first neuron so the layer
			// survives and leave its zero row to the caller's retrain.
			neuronDrops[l] = neuronDrops[l][1:]
		}
	}
	if net.CombineHidden {
		for l := 0; l < net.Depth(); l++ {
			scan(l)
		}
	} else {
		scan(net.Depth() - 1)
	}

	// Neurons first: the editor removes their output rows and keeps the
	// bias and pass-through rows in place.
	if err := applyDrops(r, net, neuronDrops); err != nil {
		return err
	}

	if len(dropFeatures) > 0 {
		biasOff := 0
		if net.OutputBias {
			biasOff = 1
		}
		var rows []int
		newKeep := make([]int, 0, len(kept)-len(dropFeatures))
		for i, feat := range kept {
			if dropFeatures[feat] {
				rows = append(rows, biasOff+i)
			} else {
				newKeep = append(newKeep, feat)
			}
		}
		net.OutputWeights = removeRows(net.OutputWeights, rows)
		net.InputKeep = newKeep
		r.log.Debugf("dropped %d pass-through features from the output design", len(rows))
	}

	if dropBias {
		net.OutputWeights = removeRows(net.OutputWeights, []int{0})
		net.OutputBias = false
		r.log.Debugf("dropped the zero output bias row")
	}
	return nil
}
