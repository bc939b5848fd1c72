package reduce

import (
	"fmt"
	"math"

	"github.com/svilsen/RWNN/rwnn"
	"gonum.org/v1/gonum/mat"
)

// dropNeurons removes the given columns from hidden layer w and cascades
// the edit through the downstream bookkeeping: the layer's declared width
// shrinks, the next layer loses the matching input rows, and when the
// layer feeds the output directly the matching output rows are removed at
// the layer's current row offset. cols must be strictly increasing.
func dropNeurons(net *rwnn.Network, w int, cols []int) error {
	if w < 0 || w >= net.Depth() {
		return ConfigError{Reason: fmt.Sprintf("layer %d out of range", w)}
	}
	if len(cols) == 0 {
		return nil
	}
	if err := validateColumns(cols, net.Widths[w]); err != nil {
		return err
	}
	if len(cols) == net.Widths[w] {
		return DegenerateError{Reason: fmt.Sprintf("removing every neuron of layer %d", w)}
	}

	net.Weights[w] = removeColumns(net.Weights[w], cols)
	net.Widths[w] -= len(cols)

	if w+1 < net.Depth() {
		off := 0
		if net.Biases[w+1] {
			off = 1
		}
		net.Weights[w+1] = removeRows(net.Weights[w+1], shifted(cols, off))
	}
	if net.CombineHidden || w == net.Depth()-1 {
		net.OutputWeights = removeRows(net.OutputWeights, shifted(cols, net.OutputOffset(w)))
	}
	return nil
}

// applyDrops runs dropNeurons for every non-empty drop set, one hidden
// layer at a time. drops is indexed by layer and holds strictly
// increasing column indices relative to the layer before any edit.
func applyDrops(r *Reducer, net *rwnn.Network, drops [][]int) error {
	for l, cols := range drops {
		if len(cols) == 0 {
			continue
		}
		if err := dropNeurons(net, l, cols); err != nil {
			return err
		}
		r.log.Debugf("dropped %d neurons from layer %d, %d remain", len(cols), l, net.Widths[l])
	}
	return nil
}

func validateColumns(cols []int, width int) error {
	for i, c := range cols {
		if c < 0 || c >= width {
			return ConfigError{Reason: fmt.Sprintf("column %d out of range for width %d", c, width)}
		}
		if i > 0 && c <= cols[i-1] {
			return ConfigError{Reason: "columns must be strictly increasing"}
		}
	}
	return nil
}

func shifted(idx []int, off int) []int {
	out := make([]int, len(idx))
	for i, v := range idx {
		out[i] = v + off
	}
	return out
}

// removeColumns returns m without the given sorted columns.
func removeColumns(m *mat.Dense, cols []int) *mat.Dense {
	if len(cols) == 0 {
		return m
	}
	r, c := m.Dims()
	out := mat.NewDense(r, c-len(cols), nil)
	j, k := 0, 0
	for src := 0; src < c; src++ {
		if k < len(cols) && cols[k] == src {
			k++
			continue
		}
		out.SetCol(j, mat.Col(nil, src, m))
		j++
	}
	return out
}

// removeRows returns m without the given sorted rows.
func removeRows(m *mat.Dense, rows []int) *mat.Dense {
	if len(rows) == 0 {
		return m
	}
	r, c := m.Dims()
	out := mat.NewDense(r-len(rows), c, nil)
	i, k := 0, 0
	for src := 0; src < r; src++ {
		if k < len(rows) && rows[k] == src {
			k++
			continue
		}
		out.SetRow(i, m.RawRowView(src))
		i++
	}
	return out
}

func rowNearZero(m *mat.Dense, i int, tol float64) bool {
	_, c := m.Dims()
	for j := 0; j < c; j++ {
		if math.Abs(m.At(i, j)) > tol {
			return false
		}
	}
	return true
}

func matrixNearZero(m *mat.Dense, tol float64) bool {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		if !rowNearZero(m, i, tol) {
			return false
		}
	}
	return true
}
