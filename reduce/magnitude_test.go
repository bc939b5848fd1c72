package reduce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/svilsen/RWNN/rwnn"
)

func TestQuantileThreshold(t *testing.T) {
	scores := []float64{4, 1, 3, 2}
	assert.Equal(t, 2.5, quantileThreshold(scores, 0.5))
	assert.InDelta(t, 2.8, quantileThreshold(scores, 0.6), 1e-12)
	assert.Equal(t, 1.0, quantileThreshold(scores, 0))
	assert.Equal(t, 4.0, quantileThreshold(scores, 1))
	// The input is sorted on a copy.
	assert.Equal(t, []float64{4, 1, 3, 2}, scores)

	twenty := make([]float64, 20)
	for i := range twenty {
		twenty[i] = float64(i + 1)
	}
	assert.Equal(t, 10.5, quantileThreshold(twenty, 0.5))

	// No scores, no threshold.
	assert.Equal(t, 0.0, quantileThreshold(nil, 0.5))
	assert.Equal(t, 0.0, quantileThreshold([]float64{}, 1))
}

func TestZeroBelowAbs_SkipsExistingZeros(t *testing.T) {
	m := mat.NewDense(1, 3, []float64{0, 0.5, 2})
	assert.Equal(t, 1, zeroBelowAbs(m, 1))
	assert.Equal(t, []float64{0, 0, 2}, m.RawRowView(0))
}

// magnitudeFixture interleaves hidden and output magnitudes so the pooled
// median splits both matrices in half without emptying either.
func magnitudeFixture() *rwnn.Network {
	net := &rwnn.Network{
		Widths:        []int{10},
		Weights:       []*mat.Dense{mat.NewDense(1, 10, []float64{1, 3, 5, 7, 9, 11, 13, 15, 17, 19})},
		Biases:        []bool{false},
		Activations:   []string{"identity"},
		OutputWeights: mat.NewDense(10, 1, []float64{2, 4, 6, 8, 10, 12, 14, 16, 18, 20}),
		Norm:          rwnn.NormL2,
	}
	return net
}

func TestReduceGlobal_ZeroesPooledLowerHalf(t *testing.T) {
	// Pooled magnitudes are 1..20, so the 0.5 quantile is 10.5 and exactly
	// the ten smallest entries go to zero. Shapes and widths are untouched.
	net := magnitudeFixture()
	require.NoError(t, net.Validate())

	r := New()
	require.NoError(t, r.Reduce(net, "global", Params{Proportion: 0.5}))

	assert.Equal(t, []int{10}, net.Widths)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 11, 13, 15, 17, 19}, net.Weights[0].RawRowView(0))
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 12, 14, 16, 18, 20}, mat.Col(nil, 0, net.OutputWeights))
	require.NoError(t, net.Validate())

	other := magnitudeFixture()
	require.NoError(t, r.Reduce(other, "glbl", Params{Proportion: 0.5}))
	assert.True(t, mat.Equal(net.Weights[0], other.Weights[0]))
	assert.True(t, mat.Equal(net.OutputWeights, other.OutputWeights))
}

func TestReduceUniform_PerLayerThresholds(t *testing.T) {
	net := &rwnn.Network{
		Widths:        []int{4},
		Weights:       []*mat.Dense{mat.NewDense(1, 4, []float64{1, 2, 3, 4})},
		Biases:        []bool{false},
		Activations:   []string{"identity"},
		OutputWeights: mat.NewDense(4, 1, []float64{10, 20, 30, 40}),
		Norm:          rwnn.NormL2,
	}
	require.NoError(t, net.Validate())

	r := New()
	require.NoError(t, r.Reduce(net, "unif", Params{Proportion: 0.5}))

	// Each matrix meets its own median: 2.5 for the hidden layer, 25 for
	// the output layer.
	assert.Equal(t, []float64{0, 0, 3, 4}, net.Weights[0].RawRowView(0))
	assert.Equal(t, []float64{0, 0, 30, 40}, mat.Col(nil, 0, net.OutputWeights))
	require.NoError(t, net.Validate())
}

func TestLampScores(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{
		3, 2,
		-2, 2,
		1, 0,
	})
	s := lampScores(m)

	// Column 0 sorts to 3, 2, 1: the largest entry always scores 1, the
	// rest divide by the sum of squares at or above their own magnitude.
	assert.Equal(t, 1.0, s.At(0, 0))
	assert.Equal(t, 4.0/13.0, s.At(1, 0))
	assert.Equal(t, 1.0/14.0, s.At(2, 0))

	// Tied entries share a denominator, and zero entries score zero.
	assert.Equal(t, 0.5, s.At(0, 1))
	assert.Equal(t, 0.5, s.At(1, 1))
	assert.Equal(t, 0.0, s.At(2, 1))

	zero := lampScores(mat.NewDense(2, 1, nil))
	assert.Equal(t, 0.0, zero.At(0, 0))
	assert.Equal(t, 0.0, zero.At(1, 0))
}

func TestReduceLAMP_KeepsColumnTops(t *testing.T) {
	// Sequential weights give every column the score 1 at its largest
	// entry, so pooled thresholding can never empty a column.
	net := buildNetwork(2, []int{3, 2}, []bool{false, false}, false, false, true)
	require.NoError(t, net.Validate())
	out := mat.DenseCopyOf(net.OutputWeights)

	r := New()
	require.NoError(t, r.Reduce(net, "lamp", Params{Proportion: 0.5}))

	assert.Equal(t, []float64{0, 0, 0}, net.Weights[0].RawRowView(0))
	assert.Equal(t, []float64{4, 5, 6}, net.Weights[0].RawRowView(1))
	assert.Equal(t, []float64{0, 0}, net.Weights[1].RawRowView(0))
	assert.Equal(t, []float64{0, 10}, net.Weights[1].RawRowView(1))
	assert.Equal(t, []float64{11, 12}, net.Weights[1].RawRowView(2))

	// The output layer is not scored by lamp.
	assert.True(t, mat.Equal(out, net.OutputWeights))
	require.NoError(t, net.Validate())
}
