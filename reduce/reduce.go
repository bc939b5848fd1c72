package reduce

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/svilsen/RWNN/rwnn"
)

// Strategy is a user-supplied reduction. It edits net in place using the
// resolved training data and the shared parameters; the surrounding
// pipeline still normalizes, optionally retrains and validates the result.
type Strategy func(net *rwnn.Network, x, y *mat.Dense, p Params) error

// Reducer runs reduction strategies against fitted networks and
// ensembles. Construct with New; the zero value has no evaluator wired.
type Reducer struct {
	log      *zap.SugaredLogger
	forward  rwnn.ForwardEvaluator
	estimate rwnn.OutputEstimator
}

// Option configures a Reducer.
type Option func(*Reducer)

// WithLogger routes diagnostics to l instead of discarding them.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Reducer) {
		if l != nil {
			r.log = l
		}
	}
}

// WithForward substitutes the evaluator used for activation scoring and
// retraining.
func WithForward(f rwnn.ForwardEvaluator) Option {
	return func(r *Reducer) {
		if f != nil {
			r.forward = f
		}
	}
}

// WithEstimator substitutes the estimator used for output retraining.
func WithEstimator(e rwnn.OutputEstimator) Option {
	return func(r *Reducer) {
		if e != nil {
			r.estimate = e
		}
	}
}

// New returns a Reducer backed by the package defaults: the built-in
// forward pass, ridge and lasso estimation, and a no-op logger.
func New(opts ...Option) *Reducer {
	r := &Reducer{
		log:      zap.NewNop().Sugar(),
		forward:  rwnn.ForwardFunc(rwnn.Forward),
		estimate: rwnn.LeastSquares{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reduce applies the named strategy to a network, or distributes it over
// an ensemble's members. The target is mutated only on success; a fatal
// error leaves it exactly as it was. Ensembles additionally accept
// "stack", which trims members by combination weight instead of editing
// their networks.
func (r *Reducer) Reduce(target rwnn.Reducible, strategy string, p Params) error {
	switch t := target.(type) {
	case *rwnn.Network:
		return r.reduceNetwork(t, strategy, nil, p)
	case *rwnn.Ensemble:
		return r.reduceEnsemble(t, strategy, nil, p)
	}
	return ConfigError{Reason: "unsupported reduction target"}
}

// ReduceWith applies a one-off strategy without registering a name.
func (r *Reducer) ReduceWith(target rwnn.Reducible, s Strategy, p Params) error {
	if s == nil {
		return ConfigError{Reason: "nil strategy"}
	}
	switch t := target.(type) {
	case *rwnn.Network:
		return r.reduceNetwork(t, "", s, p)
	case *rwnn.Ensemble:
		return r.reduceEnsemble(t, "", s, p)
	}
	return ConfigError{Reason: "unsupported reduction target"}
}

var defaultReducer = New()

// Reduce applies the named strategy to target using a shared default
// Reducer. Callers that need logging or a custom evaluator should
// construct their own with New.
func Reduce(target rwnn.Reducible, strategy string, p Params) error {
	return defaultReducer.Reduce(target, strategy, p)
}

// ReduceWith applies a one-off strategy to target using a shared
// default Reducer.
func ReduceWith(target rwnn.Reducible, s Strategy, p Params) error {
	return defaultReducer.ReduceWith(target, s, p)
}

func (r *Reducer) reduceNetwork(net *rwnn.Network, name string, custom Strategy, p Params) error {
	p = p.clamp(r.log)

	var fn builtinFn
	needsData := false
	switch {
	case custom != nil:
		fn = wrap(custom)
	case name == "stack" || name == "stacking":
		return ConfigError{Reason: "stack reduction requires a stacking ensemble"}
	default:
		if b, ok := lookupBuiltin(name); ok {
			fn, needsData = b.fn, b.needsData
		} else if s, ok := lookupCustom(name); ok {
			fn = wrap(s)
		} else {
			return ConfigError{Reason: fmt.Sprintf("unknown strategy %q", name)}
		}
	}

	x, y := p.X, p.Y
	if net.Data != nil {
		if x == nil {
			x = net.Data.X
		}
		if y == nil {
			y = net.Data.Y
		}
	}
	if needsData && x == nil {
		return ConfigError{Reason: "strategy scores activations but no training features are available"}
	}
	if p.Retrain && (x == nil || y == nil) {
		return ConfigError{Reason: "retraining requested but no training data is available"}
	}

	// Work on a copy and swap it in whole, so a fatal path cannot leave a
	// half-edited network behind.
	clone := net.Clone()
	if err := fn(r, clone, x, y, p); err != nil {
		return err
	}
	if err := r.normalize(clone); err != nil {
		return err
	}
	if p.Retrain {
		if err := r.retrain(clone, x, y); err != nil {
			return err
		}
	}
	if err := clone.Validate(); err != nil {
		return errors.Wrap(err, "reduction left the network invalid")
	}
	*net = *clone
	return nil
}

func wrap(s Strategy) builtinFn {
	return func(_ *Reducer, net *rwnn.Network, x, y *mat.Dense, p Params) error {
		return s(net, x, y, p)
	}
}
