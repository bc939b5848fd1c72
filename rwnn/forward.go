package rwnn

import (
	"gonum.org/v1/gonum/mat"
)

// Layer is one hidden layer as consumed by the forward evaluator: a weight
// matrix, the activation identifier, and whether row 0 of W is a bias row.
type Layer struct {
	W          *mat.Dense
	Activation string
	Bias       bool
}

// ForwardEvaluator produces per-layer hidden activation matrices for an
// input. Implementations must be deterministic given identical inputs and
// must return one matrix per layer with column count equal to that layer's
// width.
type ForwardEvaluator interface {
	Forward(x *mat.Dense, layers []Layer) ([]*mat.Dense, error)
}

// ForwardFunc adapts a function to the ForwardEvaluator interface.
type ForwardFunc func(x *mat.Dense, layers []Layer) ([]*mat.Dense, error)

func (f ForwardFunc) Forward(x *mat.Dense, layers []Layer) ([]*mat.Dense, error) {
	return f(x, layers)
}

// Forward is the default evaluator: each layer computes
// act([1 | previous] * W), the ones column present only when the layer has a
// bias row. Samples are rows throughout.
func Forward(x *mat.Dense, layers []Layer) ([]*mat.Dense, error) {
	h := make([]*mat.Dense, len(layers))
	prev := x
	for i, layer := range layers {
		act, err := LookupActivator(layer.Activation)
		if err != nil {
			return nil, err
		}
		in := mat.Matrix(prev)
		if layer.Bias {
			in = prependOnes(prev)
		}
		_, cols := in.Dims()
		rows, _ := layer.W.Dims()
		if cols != rows {
			return nil, ShapeError{Op: "forward", Want: rows, Got: cols}
		}
		h[i] = apply(act.Activate, dot(in, layer.W))
		prev = h[i]
	}
	return h, nil
}
