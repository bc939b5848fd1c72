package reduce

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"
)

func TestRanks(t *testing.T) {
	assert.Equal(t, []float64{2, 0, 1}, ranks([]float64{3, 1, 2}))
	// Ties share the average of the ranks they span.
	assert.Equal(t, []float64{1.5, 1.5, 0}, ranks([]float64{5, 5, 1}))
}

func TestCorrelator_Kinds(t *testing.T) {
	a := []float64{1, 2, 3}

	pearson, err := correlator("")
	require.NoError(t, err)
	assert.InDelta(t, 1, pearson(a, []float64{2, 4, 6}), 1e-12)
	assert.InDelta(t, 1, pearson(a, []float64{-2, -4, -6}), 1e-12)

	spearman, err := correlator(CorrSpearman)
	require.NoError(t, err)
	assert.InDelta(t, 1, spearman(a, []float64{1, 8, 27}), 1e-12)

	kendall, err := correlator(CorrKendall)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, kendall(a, []float64{3, 1, 2}), 1e-12)

	_, err = correlator("cosine")
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestReduceCorrelation_DropsDuplicates(t *testing.T) {
	// Columns 1 and 3 are scaled and negated copies of column 0; column 2
	// is unrelated. The earliest copy survives, the later ones go.
	v := []float64{1, 2, 3, 4, 5}
	h0 := mat.NewDense(5, 4, nil)
	for i, x := range v {
		h0.Set(i, 0, x)
		h0.Set(i, 1, 2*x)
		h0.Set(i, 3, -x)
	}
	h0.SetCol(2, []float64{2, 1, 4, 1, 3})

	net := buildNetwork(2, []int{4}, []bool{false}, false, false, false)
	require.NoError(t, net.Validate())

	r := New(WithForward(stubForward{h: []*mat.Dense{h0}}))
	p := Params{Rho: 0.99, X: mat.NewDense(5, 2, nil)}
	require.NoError(t, r.Reduce(net, "correlation", p))

	assert.Equal(t, []int{2}, net.Widths)
	assert.Equal(t, []float64{1, 3}, net.Weights[0].RawRowView(0))
	assert.Equal(t, []float64{5, 7}, net.Weights[0].RawRowView(1))
	assert.Equal(t, []float64{9, 11}, mat.Col(nil, 0, net.OutputWeights))
	require.NoError(t, net.Validate())
}

func TestReduceCorrelation_SpearmanFlagsMonotone(t *testing.T) {
	// A cubic relation is monotone but not linear: Pearson stays under
	// 0.99 while Spearman hits exactly 1.
	h0 := mat.NewDense(5, 2, nil)
	for i := 0; i < 5; i++ {
		x := float64(i + 1)
		h0.Set(i, 0, x)
		h0.Set(i, 1, x*x*x)
	}

	r := New(WithForward(stubForward{h: []*mat.Dense{h0}}))

	pearsonNet := buildNetwork(1, []int{2}, []bool{false}, false, false, false)
	p := Params{Rho: 0.99, Correlation: CorrPearson, X: mat.NewDense(5, 1, nil)}
	require.NoError(t, r.Reduce(pearsonNet, "cor", p))
	assert.Equal(t, []int{2}, pearsonNet.Widths)

	spearmanNet := buildNetwork(1, []int{2}, []bool{false}, false, false, false)
	p.Correlation = CorrSpearman
	require.NoError(t, r.Reduce(spearmanNet, "cor", p))
	assert.Equal(t, []int{1}, spearmanNet.Widths)
	assert.Equal(t, []float64{1}, spearmanNet.Weights[0].RawRowView(0))
	assert.Equal(t, []float64{3}, mat.Col(nil, 0, spearmanNet.OutputWeights))
}

func TestReduceCorrelation_ConstantColumnSurvives(t *testing.T) {
	// A constant activation has no defined correlation; the NaN must read
	// as "not correlated" rather than flagging the neuron.
	h0 := mat.NewDense(4, 2, nil)
	h0.SetCol(0, []float64{1, 2, 3, 4})
	h0.SetCol(1, []float64{5, 5, 5, 5})

	net := buildNetwork(1, []int{2}, []bool{false}, false, false, false)
	r := New(WithForward(stubForward{h: []*mat.Dense{h0}}))
	require.NoError(t, r.Reduce(net, "correlation", Params{Rho: 0.5, X: mat.NewDense(4, 1, nil)}))
	assert.Equal(t, []int{2}, net.Widths)
}

// repeatPattern tiles pat until the result holds times copies.
func repeatPattern(pat []float64, times int) []float64 {
	out := make([]float64, 0, len(pat)*times)
	for i := 0; i < times; i++ {
		out = append(out, pat...)
	}
	return out
}

// mixToward returns r*a + sqrt(1-r^2)*e, which has sample correlation
// exactly r with a when a and e are orthogonal, balanced and equally
// scaled.
func mixToward(a, e []float64, r float64) []float64 {
	s := math.Sqrt(1 - r*r)
	out := make([]float64, len(a))
	for i := range out {
		out[i] = r*a[i] + s*e[i]
	}
	return out
}

func TestReduceCorrelationTest_KeepsOnlySignificantlyBelow(t *testing.T) {
	// Orthogonal Hadamard patterns give exact correlations against column
	// 0: 0.8 is on the threshold (p = 0.5, dropped), 0.6 tests clearly
	// below rho (kept), 0.75 is under rho but not significantly (dropped).
	reps := 11
	a := repeatPattern([]float64{1, -1, 1, -1, 1, -1, 1, -1}, reps)
	e1 := repeatPattern([]float64{1, 1, -1, -1, 1, 1, -1, -1}, reps)
	e2 := repeatPattern([]float64{1, -1, -1, 1, 1, -1, -1, 1}, reps)
	e3 := repeatPattern([]float64{1, 1, 1, 1, -1, -1, -1, -1}, reps)

	h0 := mat.NewDense(len(a), 4, nil)
	h0.SetCol(0, a)
	h0.SetCol(1, mixToward(a, e1, 0.8))
	h0.SetCol(2, mixToward(a, e2, 0.6))
	h0.SetCol(3, mixToward(a, e3, 0.75))

	net := buildNetwork(1, []int{4}, []bool{false}, false, false, false)
	require.NoError(t, net.Validate())

	r := New(WithForward(stubForward{h: []*mat.Dense{h0}}))
	p := Params{Rho: 0.8, Alpha: 0.05, X: mat.NewDense(len(a), 1, nil)}
	require.NoError(t, r.Reduce(net, "cortest", p))

	assert.Equal(t, []int{2}, net.Widths)
	assert.Equal(t, []float64{1, 3}, net.Weights[0].RawRowView(0))
	assert.Equal(t, []float64{5, 7}, mat.Col(nil, 0, net.OutputWeights))
	require.NoError(t, net.Validate())
}

func TestReduceCorrelationTest_TooFewSamplesSkips(t *testing.T) {
	h0 := mat.NewDense(3, 2, nil)
	h0.SetCol(0, []float64{1, 2, 3})
	h0.SetCol(1, []float64{2, 4, 6})

	core, logs := observer.New(zapcore.WarnLevel)
	net := buildNetwork(1, []int{2}, []bool{false}, false, false, false)
	r := New(
		WithForward(stubForward{h: []*mat.Dense{h0}}),
		WithLogger(zap.New(core).Sugar()),
	)

	require.NoError(t, r.Reduce(net, "correlationtest", Params{Rho: 0.9, Alpha: 0.05, X: mat.NewDense(3, 1, nil)}))
	assert.Equal(t, []int{2}, net.Widths)
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "skipping")
}

func TestFisherZ_FiniteAtUnitCorrelation(t *testing.T) {
	// atanh is NaN past 1, so a correlation at or above the pole has to
	// clamp rather than poison the statistic.
	zRho := math.Atanh(0.9)
	for _, r := range []float64{1, math.Nextafter(1, 2)} {
		z := fisherZ(r, zRho, math.Sqrt(5))
		require.False(t, math.IsNaN(z), "r = %v", r)
		assert.Greater(t, z, 0.0)
	}
}

func TestReduceCorrelationTest_DropsExactScaledDuplicate(t *testing.T) {
	// Column 1 is column 0 scaled by s. The sample correlation of an exact
	// multiple can round a hair past 1 and the pair must still flag.
	s := 0.5045928885850302
	h0 := mat.NewDense(4, 2, nil)
	for i, v := range []float64{1, 3, 5, 7} {
		h0.Set(i, 0, v)
		h0.Set(i, 1, s*v)
	}

	net := buildNetwork(1, []int{2}, []bool{false}, false, false, false)
	require.NoError(t, net.Validate())

	r := New(WithForward(stubForward{h: []*mat.Dense{h0}}))
	p := Params{Rho: 0.9, Alpha: 0.05, X: mat.NewDense(4, 1, nil)}
	require.NoError(t, r.Reduce(net, "cortest", p))

	assert.Equal(t, []int{1}, net.Widths)
	assert.Equal(t, []float64{1}, net.Weights[0].RawRowView(0))
	assert.Equal(t, []float64{3}, mat.Col(nil, 0, net.OutputWeights))
	require.NoError(t, net.Validate())
}
