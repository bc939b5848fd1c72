package rwnn

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Ensemble methods. Only stacking permits removing members during
// reduction.
const (
	MethodBagging      = "bagging"
	MethodBoosting     = "boosting"
	MethodStacking     = "stacking"
	MethodEnsembleDeep = "ensemble-deep"
)

// Ensemble is an ordered collection of networks with non-negative
// combination weights summing to one.
type Ensemble struct {
	Models  []*Network `json:"models"`
	Weights []float64  `json:"weights"`
	Method  string     `json:"method"`
}

func (e *Ensemble) reducibleTarget() {}

// Size is the number of members.
func (e *Ensemble) Size() int {
	return len(e.Models)
}

// Validate checks the ensemble bookkeeping and every member's invariants.
func (e *Ensemble) Validate() error {
	switch e.Method {
	case MethodBagging, MethodBoosting, MethodStacking, MethodEnsembleDeep:
	default:
		return errors.Errorf("unknown ensemble method %q", e.Method)
	}
	if len(e.Models) == 0 {
		return errors.New("ensemble has no members")
	}
	if len(e.Models) != len(e.Weights) {
		return errors.Errorf("%d members but %d combination weights", len(e.Models), len(e.Weights))
	}
	sum := 0.0
	for i, w := range e.Weights {
		if w < 0 {
			return errors.Errorf("member %d has negative combination weight %v", i, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		return errors.Errorf("combination weights sum to %v, not 1", sum)
	}
	for i, m := range e.Models {
		if err := m.Validate(); err != nil {
			return errors.Wrapf(err, "member %d", i)
		}
	}
	return nil
}

// Clone returns a deep copy of the ensemble and its members.
func (e *Ensemble) Clone() *Ensemble {
	out := &Ensemble{
		Models:  make([]*Network, len(e.Models)),
		Weights: append([]float64(nil), e.Weights...),
		Method:  e.Method,
	}
	for i, m := range e.Models {
		out.Models[i] = m.Clone()
	}
	return out
}

// Predict combines member predictions: a weighted average for every method
// except boosting, whose members are residual fits and therefore sum.
func (e *Ensemble) Predict(x *mat.Dense) (*mat.Dense, error) {
	var out *mat.Dense
	for i, m := range e.Models {
		p, err := m.Predict(x)
		if err != nil {
			return nil, errors.Wrapf(err, "member %d", i)
		}
		w := e.Weights[i]
		if e.Method == MethodBoosting {
			w = 1
		}
		var scaled mat.Dense
		scaled.Scale(w, p)
		if out == nil {
			out = &scaled
			continue
		}
		out.Add(out, &scaled)
	}
	return out, nil
}

// EnsembleConfig holds the ensemble driver knobs. Out-of-range values are
// clamped to documented defaults with a diagnostic rather than failing.
type EnsembleConfig struct {
	// B is the number of members; values below 1 become 100.
	B int
	// Folds is the stacking cross-validation fold count; values below 2
	// become 10.
	Folds int
	// Epsilon is the boosting learning rate; values outside (0, 1] become
	// 0.1.
	Epsilon float64
	// Optimise selects non-negative least-squares stacking weights instead
	// of uniform ones.
	Optimise bool
}

func (ec *EnsembleConfig) normalize(log *zap.SugaredLogger) {
	if ec.B < 1 {
		if log != nil && ec.B != 0 {
			log.Warnf("ensemble size %d out of range, using 100", ec.B)
		}
		ec.B = 100
	}
	if ec.Folds < 2 {
		if log != nil && ec.Folds != 0 {
			log.Warnf("fold count %d out of range, using 10", ec.Folds)
		}
		ec.Folds = 10
	}
	if ec.Epsilon <= 0 || ec.Epsilon > 1 {
		if log != nil && ec.Epsilon != 0 {
			log.Warnf("learning rate %v out of range, using 0.1", ec.Epsilon)
		}
		ec.Epsilon = 0.1
	}
}

// NewBagging fits B networks on bootstrap resamples of (x, y) with uniform
// combination weights. Members keep a reference to the full training set so
// later reduction can re-estimate against it.
func NewBagging(cfg Config, ec EnsembleConfig, x, y *mat.Dense) (*Ensemble, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ec.normalize(cfg.Logger)

	n, _ := x.Dims()
	rng := rand.New(rand.NewSource(cfg.Seed + 1))
	full := &TrainingSet{X: x, Y: y}

	ens := &Ensemble{Method: MethodBagging}
	for b := 0; b < ec.B; b++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		m, err := New(cfg, selectRows(x, idx), selectRows(y, idx))
		if err != nil {
			return nil, errors.Wrapf(err, "bagging member %d", b)
		}
		m.Data = full
		ens.Models = append(ens.Models, m)
		if cfg.Logger != nil {
			cfg.Logger.Debugf("bagging member %d/%d fitted", b+1, ec.B)
		}
	}
	ens.Weights = uniformWeights(ec.B)
	return ens, nil
}

// NewBoosting fits B networks sequentially, each on the current residual
// scaled by the learning rate, so member predictions sum to the boosted fit.
func NewBoosting(cfg Config, ec EnsembleConfig, x, y *mat.Dense) (*Ensemble, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ec.normalize(cfg.Logger)

	n, t := y.Dims()
	fitted := mat.NewDense(n, t, nil)

	ens := &Ensemble{Method: MethodBoosting}
	for b := 0; b < ec.B; b++ {
		var target mat.Dense
		target.Sub(y, fitted)
		target.Scale(ec.Epsilon, &target)
		m, err := New(cfg, x, mat.DenseCopyOf(&target))
		if err != nil {
			return nil, errors.Wrapf(err, "boosting member %d", b)
		}
		p, err := m.Predict(x)
		if err != nil {
			return nil, errors.Wrapf(err, "boosting member %d", b)
		}
		fitted.Add(fitted, p)
		ens.Models = append(ens.Models, m)
		if cfg.Logger != nil {
			cfg.Logger.Debugf("boosting member %d/%d fitted", b+1, ec.B)
		}
	}
	ens.Weights = uniformWeights(ec.B)
	return ens, nil
}

// NewStacking fits B networks and estimates their combination weights from
// out-of-fold predictions: uniform by default, or non-negative least squares
// renormalized to sum one when Optimise is set.
func NewStacking(cfg Config, ec EnsembleConfig, x, y *mat.Dense) (*Ensemble, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ec.normalize(cfg.Logger)

	n, t := y.Dims()
	folds := ec.Folds
	if folds > n {
		folds = n
	}
	rng := rand.New(rand.NewSource(cfg.Seed + 1))
	assign := make([]int, n)
	for i, s := range rng.Perm(n) {
		assign[s] = i % folds
	}

	full := &TrainingSet{X: x, Y: y}
	ens := &Ensemble{Method: MethodStacking}
	oof := make([]*mat.Dense, ec.B)
	for b := 0; b < ec.B; b++ {
		oof[b] = mat.NewDense(n, t, nil)
		for k := 0; k < folds; k++ {
			var trainIdx, holdIdx []int
			for i := 0; i < n; i++ {
				if assign[i] == k {
					holdIdx = append(holdIdx, i)
				} else {
					trainIdx = append(trainIdx, i)
				}
			}
			m, err := New(cfg, selectRows(x, trainIdx), selectRows(y, trainIdx))
			if err != nil {
				return nil, errors.Wrapf(err, "stacking member %d fold %d", b, k)
			}
			p, err := m.Predict(selectRows(x, holdIdx))
			if err != nil {
				return nil, errors.Wrapf(err, "stacking member %d fold %d", b, k)
			}
			for r, i := range holdIdx {
				for c := 0; c < t; c++ {
					oof[b].Set(i, c, p.At(r, c))
				}
			}
		}
		m, err := New(cfg, x, y)
		if err != nil {
			return nil, errors.Wrapf(err, "stacking member %d", b)
		}
		m.Data = full
		ens.Models = append(ens.Models, m)
		if cfg.Logger != nil {
			cfg.Logger.Debugf("stacking member %d/%d fitted", b+1, ec.B)
		}
	}

	ens.Weights = uniformWeights(ec.B)
	if ec.Optimise {
		w, err := stackingWeights(oof, y)
		if err != nil {
			return nil, err
		}
		if w != nil {
			ens.Weights = w
		} else if cfg.Logger != nil {
			cfg.Logger.Warnf("stacking weight optimisation degenerated, keeping uniform weights")
		}
	}
	return ens, nil
}

// NewEnsembleDeep fits one deep network and stacks its depth prefixes: the
// member at depth l reuses the first l hidden layers with its own
// re-estimated output layer.
func NewEnsembleDeep(cfg Config, x, y *mat.Dense) (*Ensemble, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	deep, err := New(cfg, x, y)
	if err != nil {
		return nil, err
	}

	depth := deep.Depth()
	ens := &Ensemble{Method: MethodEnsembleDeep}
	for l := 1; l <= depth; l++ {
		m := &Network{
			Widths:        append([]int(nil), deep.Widths[:l]...),
			Weights:       cloneMatrices(deep.Weights[:l]),
			Biases:        append([]bool(nil), deep.Biases[:l]...),
			Activations:   append([]string(nil), deep.Activations[:l]...),
			OutputBias:    deep.OutputBias,
			CombineInput:  deep.CombineInput,
			CombineHidden: deep.CombineHidden,
			Norm:          deep.Norm,
			Penalty:       deep.Penalty,
		}
		if err := estimateOutput(m, x, y); err != nil {
			return nil, errors.Wrapf(err, "depth %d member", l)
		}
		ens.Models = append(ens.Models, m)
	}
	ens.Weights = uniformWeights(depth)
	return ens, nil
}

// stackingWeights solves the non-negative combination problem on flattened
// out-of-fold predictions. A nil result means the solution degenerated to
// all zeros.
func stackingWeights(oof []*mat.Dense, y *mat.Dense) ([]float64, error) {
	n, t := y.Dims()
	a := mat.NewDense(n*t, len(oof), nil)
	for b, p := range oof {
		for i := 0; i < n; i++ {
			for c := 0; c < t; c++ {
				a.Set(i*t+c, b, p.At(i, c))
			}
		}
	}
	yv := make([]float64, n*t)
	for i := 0; i < n; i++ {
		for c := 0; c < t; c++ {
			yv[i*t+c] = y.At(i, c)
		}
	}
	w, err := nonNegativeLS(a, yv)
	if err != nil {
		return nil, errors.Wrap(err, "stacking weights")
	}
	sum := floats.Sum(w)
	if sum <= 0 {
		return nil, nil
	}
	floats.Scale(1/sum, w)
	return w, nil
}

func uniformWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}

func selectRows(m *mat.Dense, idx []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for r, i := range idx {
		for j := 0; j < c; j++ {
			out.Set(r, j, m.At(i, j))
		}
	}
	return out
}
