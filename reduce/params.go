package reduce

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Pooling types for score thresholds.
const (
	TypeGlobal  = "global"
	TypeUniform = "uniform"
)

// Relief pruning units.
const (
	ModeWeight = "weight"
	ModeNeuron = "neuron"
)

// Correlation kinds.
const (
	CorrPearson  = "pearson"
	CorrSpearman = "spearman"
	CorrKendall  = "kendall"
)

// Params carries the strategy knobs. Out-of-range numeric values are
// clamped to the nearest valid value with a diagnostic before any strategy
// runs; unknown enum values are fatal. The zero value keeps everything and
// skips retraining; DefaultParams gives the documented defaults.
type Params struct {
	// Proportion is the removal quantile in [0, 1] for the magnitude,
	// activation and relief strategies.
	Proportion float64
	// Rho is the correlation threshold in [0, 1].
	Rho float64
	// Alpha is the significance level in [0, 1] for the correlation test.
	Alpha float64
	// Tolerance is the near-zero cutoff for the activation, output and
	// stack strategies. Negative values are clamped to 0.
	Tolerance float64

	// Type selects pooled ("global") or per-layer ("uniform") thresholds
	// for the activation strategies. Empty means global.
	Type string
	// Mode selects the relief unit: "weight" zeroes connections in place,
	// "neuron" removes whole columns. Empty means weight.
	Mode string
	// Correlation selects the coefficient for the correlation strategies:
	// "pearson", "spearman" or "kendall". Empty means pearson.
	Correlation string

	// Retrain re-estimates the output layer after the structural edit.
	Retrain bool

	// X and Y override the training data remembered by the network. When
	// nil, the network's own data is used; strategies that score
	// activations fail without either.
	X, Y *mat.Dense
}

// DefaultParams returns the documented defaults: median removal quantile,
// correlation threshold 0.99, significance 0.05, tolerance 1e-8, with
// output retraining enabled.
func DefaultParams() Params {
	return Params{
		Proportion: 0.5,
		Rho:        0.99,
		Alpha:      0.05,
		Tolerance:  1e-8,
		Retrain:    true,
	}
}

// clamp pulls the numeric knobs into range, logging each correction.
// Enum fields are validated by the strategies that consume them.
func (p Params) clamp(log *zap.SugaredLogger) Params {
	unit := func(name string, v float64) float64 {
		switch {
		case v < 0:
			log.Warnf("%s %v below range, clamped to 0", name, v)
			return 0
		case v > 1:
			log.Warnf("%s %v above range, clamped to 1", name, v)
			return 1
		}
		return v
	}
	p.Proportion = unit("proportion", p.Proportion)
	p.Rho = unit("rho", p.Rho)
	p.Alpha = unit("alpha", p.Alpha)
	if p.Tolerance < 0 {
		log.Warnf("tolerance %v below range, clamped to 0", p.Tolerance)
		p.Tolerance = 0
	}
	return p
}
