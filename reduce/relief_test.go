package reduce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/svilsen/RWNN/rwnn"
)

func TestMeanAbs(t *testing.T) {
	assert.Equal(t, 2.0, meanAbs([]float64{1, -2, 3}))
}

func TestColumnImportance(t *testing.T) {
	w := mat.NewDense(2, 2, []float64{
		1, 3,
		2, 4,
	})
	ri := columnImportance(w, []float64{1, 0.5})

	assert.Equal(t, 0.5, ri.At(0, 0))
	assert.Equal(t, 0.5, ri.At(1, 0))
	assert.Equal(t, 0.6, ri.At(0, 1))
	assert.Equal(t, 0.4, ri.At(1, 1))

	// A column with no mass keeps the zero score instead of dividing by
	// zero.
	zero := columnImportance(mat.NewDense(2, 1, nil), []float64{1, 1})
	assert.Equal(t, 0.0, zero.At(0, 0))
	assert.Equal(t, 0.0, zero.At(1, 0))
}

func TestLayerSourceScales(t *testing.T) {
	net := buildNetwork(2, []int{3}, []bool{true}, false, false, false)
	x := mat.NewDense(2, 2, []float64{
		1, -1,
		2, 3,
	})
	scales := layerSourceScales(net, x, nil, 0)
	assert.Equal(t, []float64{1, 1.5, 2}, scales)
}

func TestReduceRelief_WeightModeZeroesConnections(t *testing.T) {
	// Both features have mean absolute activation 1, so importance is
	// weight mass over column mass: column scores are {.1,.9}, {.25,.75}
	// and {.75,.25}. The pooled median 0.5 zeroes the three entries below
	// it.
	net := &rwnn.Network{
		Widths: []int{3},
		Weights: []*mat.Dense{mat.NewDense(2, 3, []float64{
			1, 1, 3,
			9, 3, 1,
		})},
		Biases:        []bool{false},
		Activations:   []string{"identity"},
		OutputWeights: mat.NewDense(3, 1, []float64{5, 6, 7}),
		Norm:          rwnn.NormL2,
	}
	require.NoError(t, net.Validate())

	x := mat.NewDense(2, 2, []float64{
		1, 1,
		-1, -1,
	})
	r := New()
	require.NoError(t, r.Reduce(net, "relief", Params{Proportion: 0.5, X: x}))

	assert.Equal(t, []int{3}, net.Widths)
	assert.Equal(t, []float64{0, 0, 3}, net.Weights[0].RawRowView(0))
	assert.Equal(t, []float64{9, 3, 0}, net.Weights[0].RawRowView(1))
	assert.Equal(t, []float64{5, 6, 7}, mat.Col(nil, 0, net.OutputWeights))
	require.NoError(t, net.Validate())
}

func TestReduceRelief_NeuronModeSkipsWidthOne(t *testing.T) {
	// Even at the maximum removal pressure a width-1 layer is left alone;
	// the width-3 layer keeps only its most important neuron.
	net := buildNetwork(1, []int{1, 3}, []bool{false, false}, false, false, false)
	require.NoError(t, net.Validate())

	h0 := mat.NewDense(1, 1, []float64{1})
	h1 := mat.NewDense(1, 3, []float64{2, 4, 10})
	r := New(WithForward(stubForward{h: []*mat.Dense{h0, h1}}))

	p := Params{Proportion: 1, Mode: ModeNeuron, X: mat.NewDense(1, 1, nil)}
	require.NoError(t, r.Reduce(net, "relief", p))

	assert.Equal(t, []int{1, 1}, net.Widths)
	assert.Equal(t, []float64{1}, net.Weights[0].RawRowView(0))
	assert.Equal(t, []float64{4}, net.Weights[1].RawRowView(0))
	assert.Equal(t, []float64{7}, mat.Col(nil, 0, net.OutputWeights))
	require.NoError(t, net.Validate())
}

func TestReduceRelief_NeuronModeAggregatesOutgoing(t *testing.T) {
	// Layer 0 scores come from its outgoing rows in layer 1: neuron 0
	// carries importances .8 and .5, neuron 1 carries .2 and .5, so the
	// median drops neuron 1. Layer 1 scores tie at .5 and the boundary tie
	// keeps both.
	net := &rwnn.Network{
		Widths: []int{2, 2},
		Weights: []*mat.Dense{
			mat.NewDense(1, 2, []float64{5, 6}),
			mat.NewDense(2, 2, []float64{
				8, 1,
				2, 1,
			}),
		},
		Biases:        []bool{false, false},
		Activations:   []string{"identity", "identity"},
		OutputWeights: mat.NewDense(2, 1, []float64{1, 3}),
		Norm:          rwnn.NormL2,
	}
	require.NoError(t, net.Validate())

	h0 := mat.NewDense(1, 2, []float64{1, 1})
	h1 := mat.NewDense(1, 2, []float64{3, 1})
	r := New(WithForward(stubForward{h: []*mat.Dense{h0, h1}}))

	p := Params{Proportion: 0.5, Mode: ModeNeuron, X: mat.NewDense(1, 1, nil)}
	require.NoError(t, r.Reduce(net, "relief", p))

	assert.Equal(t, []int{1, 2}, net.Widths)
	assert.Equal(t, []float64{5}, net.Weights[0].RawRowView(0))
	assert.Equal(t, []float64{8, 1}, net.Weights[1].RawRowView(0))
	assert.Equal(t, []float64{1, 3}, mat.Col(nil, 0, net.OutputWeights))
	require.NoError(t, net.Validate())
}

func TestReduceRelief_UnknownMode(t *testing.T) {
	net := buildNetwork(1, []int{2}, []bool{false}, false, false, false)
	r := New()
	err := r.Reduce(net, "relief", Params{Mode: "banana", X: mat.NewDense(1, 1, nil)})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}
