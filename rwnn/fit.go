package rwnn

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// New fits a random weight neural network: hidden weights are drawn once
// from the configured sampler and the output layer is estimated in closed
// form on (x, y). x holds one sample per row.
func New(cfg Config, x, y *mat.Dense) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	net, err := sampleNetwork(cfg, x)
	if err != nil {
		return nil, err
	}
	if err := estimateOutput(net, x, y); err != nil {
		return nil, err
	}
	return net, nil
}

// NewAutoencoder fits a network whose hidden weights are pre-trained layer
// by layer: each layer's random projection is replaced by the transposed
// least-squares reconstruction map of that layer's input, then the output
// layer is estimated as usual.
func NewAutoencoder(cfg Config, x, y *mat.Dense) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	net, err := sampleNetwork(cfg, x)
	if err != nil {
		return nil, err
	}

	ls := LeastSquares{}
	input := x
	for l := 0; l < net.Depth(); l++ {
		layer := Layer{W: net.Weights[l], Activation: net.Activations[l], Bias: net.Biases[l]}
		h, err := Forward(input, []Layer{layer})
		if err != nil {
			return nil, err
		}
		// Reconstruction map from the projected representation back to the
		// layer input; its transpose becomes the layer's weights.
		recon, _, err := ls.Estimate(h[0], input, cfg.Norm, cfg.Penalty)
		if err != nil {
			return nil, errors.Wrapf(err, "autoencoder layer %d", l)
		}
		_, inCols := input.Dims()
		w := mat.NewDense(rowsOf(net.Weights[l]), net.Widths[l], nil)
		start := 0
		if net.Biases[l] {
			for j := 0; j < net.Widths[l]; j++ {
				w.Set(0, j, net.Weights[l].At(0, j))
			}
			start = 1
		}
		for i := 0; i < inCols; i++ {
			for j := 0; j < net.Widths[l]; j++ {
				w.Set(start+i, j, recon.At(j, i))
			}
		}
		net.Weights[l] = w

		h, err = Forward(input, []Layer{{W: w, Activation: net.Activations[l], Bias: net.Biases[l]}})
		if err != nil {
			return nil, err
		}
		input = h[0]
	}

	if err := estimateOutput(net, x, y); err != nil {
		return nil, err
	}
	return net, nil
}

func sampleNetwork(cfg Config, x *mat.Dense) (*Network, error) {
	n, d := x.Dims()
	if n == 0 || d == 0 {
		return nil, errors.New("fit: empty feature matrix")
	}

	net := &Network{
		Widths:        append([]int(nil), cfg.Widths...),
		Weights:       make([]*mat.Dense, len(cfg.Widths)),
		Biases:        append([]bool(nil), cfg.Bias...),
		Activations:   append([]string(nil), cfg.Activations...),
		OutputBias:    cfg.OutputBias,
		CombineInput:  cfg.CombineInput,
		CombineHidden: cfg.CombineHidden,
		Norm:          cfg.Norm,
		Penalty:       cfg.Penalty,
	}
	in := d
	for l, width := range cfg.Widths {
		rows := in
		if cfg.Bias[l] {
			rows++
		}
		net.Weights[l] = cfg.Sampler.Sample(rows, width)
		in = width
	}
	return net, nil
}

func estimateOutput(net *Network, x, y *mat.Dense) error {
	h, err := Forward(x, net.HiddenLayers())
	if err != nil {
		return err
	}
	design, err := net.DesignMatrix(x, h)
	if err != nil {
		return err
	}
	beta, sigma, err := LeastSquares{}.Estimate(design, y, net.Norm, net.Penalty)
	if err != nil {
		return err
	}
	net.OutputWeights = beta
	net.Sigma = sigma
	net.Data = &TrainingSet{X: x, Y: y}
	return nil
}

func rowsOf(m *mat.Dense) int {
	r, _ := m.Dims()
	return r
}
