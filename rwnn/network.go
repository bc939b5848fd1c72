package rwnn

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// TrainingSet is the data a network was fitted on. Reduction falls back to
// it when a call supplies no features or targets of its own.
type TrainingSet struct {
	X *mat.Dense
	Y *mat.Dense
}

// Network is a random weight neural network: hidden weights sampled once and
// never trained, output weights estimated in closed form. The struct is the
// unit the reduction subsystem mutates, so all structure is exported.
//
// Shape invariants, restored by every operation that edits the network:
//   - Weights[i] is (inputs_i + bias_i) x Widths[i] where inputs_i is the
//     previous layer's width, or the input feature count for layer 0;
//   - for every layer w < last, Weights[w+1] has Widths[w] + bias_{w+1} rows;
//   - OutputWeights has OutputRows() rows (bias row, kept input pass-through
//     columns when CombineInput, then the contributing hidden widths).
type Network struct {
	Widths        []int
	Weights       []*mat.Dense
	Biases        []bool
	Activations   []string
	OutputWeights *mat.Dense
	OutputBias    bool
	CombineInput  bool
	CombineHidden bool

	// InputKeep lists the raw feature indices still passed through to the
	// output layer when CombineInput is set; nil means all of them. It only
	// shrinks, when output-layer reduction deletes a pass-through row.
	InputKeep []int

	Norm    string
	Penalty float64
	Sigma   float64

	// Data is the training set the network was fitted on. It is carried by
	// reference, never serialized, and treated as read-only by reductions.
	Data *TrainingSet
}

// Reducible is the closed set of targets a reduction can be applied to:
// *Network and *Ensemble. The unexported method keeps the set closed.
type Reducible interface {
	reducibleTarget()
}

func (n *Network) reducibleTarget() {}

// Depth is the number of hidden layers.
func (n *Network) Depth() int {
	return len(n.Widths)
}

// InputDim is the raw input feature count, derived from layer 0.
func (n *Network) InputDim() int {
	r, _ := n.Weights[0].Dims()
	if n.Biases[0] {
		r--
	}
	return r
}

// OutputDim is the number of target dimensions.
func (n *Network) OutputDim() int {
	_, c := n.OutputWeights.Dims()
	return c
}

// InputColumns returns the raw feature indices that feed the output layer
// when CombineInput is set.
func (n *Network) InputColumns() []int {
	if n.InputKeep != nil {
		out := make([]int, len(n.InputKeep))
		copy(out, n.InputKeep)
		return out
	}
	out := make([]int, n.InputDim())
	for i := range out {
		out[i] = i
	}
	return out
}

func (n *Network) inputCount() int {
	if n.InputKeep != nil {
		return len(n.InputKeep)
	}
	return n.InputDim()
}

// OutputOffset returns the first row of OutputWeights attributable to hidden
// layer w: the bias row, the input pass-through rows, and the widths of the
// layers contributing before w. Every structural edit of the output layer
// must go through this formula; it is never re-derived at call sites.
func (n *Network) OutputOffset(w int) int {
	off := 0
	if n.OutputBias {
		off++
	}
	if n.CombineInput {
		off += n.inputCount()
	}
	if n.CombineHidden {
		for k := 0; k < w; k++ {
			off += n.Widths[k]
		}
	}
	return off
}

// OutputRows is the row count OutputWeights must have under the current
// flags and widths.
func (n *Network) OutputRows() int {
	last := n.Depth() - 1
	return n.OutputOffset(last) + n.Widths[last]
}

// ParamCount is the total number of weight entries, output layer included.
// Reductions never increase it.
func (n *Network) ParamCount() int {
	total := 0
	for _, w := range n.Weights {
		r, c := w.Dims()
		total += r * c
	}
	r, c := n.OutputWeights.Dims()
	return total + r*c
}

// Validate checks the structural invariants. It never mutates the network.
func (n *Network) Validate() error {
	d := n.Depth()
	if d == 0 {
		return errors.New("network has no hidden layers")
	}
	if len(n.Weights) != d || len(n.Biases) != d || len(n.Activations) != d {
		return errors.Errorf("inconsistent layer bookkeeping: %d widths, %d weight matrices, %d bias flags, %d activations",
			d, len(n.Weights), len(n.Biases), len(n.Activations))
	}
	if n.Norm != "" && n.Norm != NormL1 && n.Norm != NormL2 {
		return errors.Errorf("unknown regularization norm %q", n.Norm)
	}
	for i, w := range n.Weights {
		if w == nil {
			return errors.Errorf("layer %d has no weight matrix", i)
		}
		r, c := w.Dims()
		if c != n.Widths[i] {
			return errors.Errorf("layer %d: weight matrix has %d columns, declared width is %d", i, c, n.Widths[i])
		}
		if n.Widths[i] < 1 {
			return errors.Errorf("layer %d has width %d", i, n.Widths[i])
		}
		if i > 0 {
			want := n.Widths[i-1]
			if n.Biases[i] {
				want++
			}
			if r != want {
				return errors.Errorf("layer %d: weight matrix has %d rows, previous width plus bias requires %d", i, r, want)
			}
		} else {
			min := 1
			if n.Biases[0] {
				min = 2
			}
			if r < min {
				return errors.Errorf("layer 0: weight matrix has %d rows", r)
			}
		}
		if _, err := LookupActivator(n.Activations[i]); err != nil {
			return errors.Wrapf(err, "layer %d", i)
		}
	}
	if n.InputKeep != nil {
		dim := n.InputDim()
		prev := -1
		for _, k := range n.InputKeep {
			if k <= prev || k >= dim {
				return errors.Errorf("input pass-through indices must be strictly increasing within [0, %d), got %v", dim, n.InputKeep)
			}
			prev = k
		}
	}
	if n.OutputWeights == nil {
		return errors.New("network has no output weights")
	}
	if r, _ := n.OutputWeights.Dims(); r != n.OutputRows() {
		return errors.Errorf("output weights have %d rows, flags and widths require %d", r, n.OutputRows())
	}
	return nil
}

// Clone returns a deep copy. The training data reference is shared, not
// copied; reductions treat it as read-only.
func (n *Network) Clone() *Network {
	out := &Network{
		Widths:        append([]int(nil), n.Widths...),
		Weights:       cloneMatrices(n.Weights),
		Biases:        append([]bool(nil), n.Biases...),
		Activations:   append([]string(nil), n.Activations...),
		OutputBias:    n.OutputBias,
		CombineInput:  n.CombineInput,
		CombineHidden: n.CombineHidden,
		Norm:          n.Norm,
		Penalty:       n.Penalty,
		Sigma:         n.Sigma,
		Data:          n.Data,
	}
	if n.OutputWeights != nil {
		out.OutputWeights = mat.DenseCopyOf(n.OutputWeights)
	}
	if n.InputKeep != nil {
		out.InputKeep = append([]int(nil), n.InputKeep...)
	}
	return out
}

// HiddenLayers packages the hidden stack for the forward evaluator.
func (n *Network) HiddenLayers() []Layer {
	layers := make([]Layer, n.Depth())
	for i := range layers {
		layers[i] = Layer{W: n.Weights[i], Activation: n.Activations[i], Bias: n.Biases[i]}
	}
	return layers
}

// DesignMatrix assembles the output-layer design from the input x and the
// hidden activations h: an optional ones column for the bias, the kept input
// pass-through columns, then the contributing hidden activations. Column k
// of the design corresponds to row k of OutputWeights.
func (n *Network) DesignMatrix(x *mat.Dense, h []*mat.Dense) (*mat.Dense, error) {
	if len(h) != n.Depth() {
		return nil, errors.Errorf("expected %d activation matrices, got %d", n.Depth(), len(h))
	}
	rows, cols := x.Dims()
	if cols != n.InputDim() {
		return nil, ShapeError{Op: "design", Want: n.InputDim(), Got: cols}
	}
	var parts []mat.Matrix
	if n.OutputBias {
		parts = append(parts, onesColumn(rows))
	}
	if n.CombineInput {
		// Reduction can delete every pass-through row; the design then
		// carries no input block at all.
		if cols := n.InputColumns(); len(cols) > 0 {
			parts = append(parts, selectColumns(x, cols))
		}
	}
	if n.CombineHidden {
		for _, hi := range h {
			parts = append(parts, hi)
		}
	} else {
		parts = append(parts, h[len(h)-1])
	}
	return augment(parts...), nil
}

// Predict evaluates the network on x.
func (n *Network) Predict(x *mat.Dense) (*mat.Dense, error) {
	h, err := Forward(x, n.HiddenLayers())
	if err != nil {
		return nil, err
	}
	design, err := n.DesignMatrix(x, h)
	if err != nil {
		return nil, err
	}
	return dot(design, n.OutputWeights), nil
}
