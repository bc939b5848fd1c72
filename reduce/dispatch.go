package reduce

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/svilsen/RWNN/rwnn"
)

func (r *Reducer) reduceEnsemble(ens *rwnn.Ensemble, name string, custom Strategy, p Params) error {
	if custom == nil && (name == "stack" || name == "stacking") {
		return r.stackTrim(ens, p)
	}
	return r.distribute(ens, name, custom, p)
}

// stackTrim removes the members whose combination weight does not exceed
// the tolerance and renormalizes the survivors to sum to one. Only trained
// stacks carry weights that mean anything, so other methods are rejected.
func (r *Reducer) stackTrim(ens *rwnn.Ensemble, p Params) error {
	if ens.Method != rwnn.MethodStacking {
		return ConfigError{Reason: fmt.Sprintf("stack reduction requires a stacking ensemble, not %q", ens.Method)}
	}
	p = p.clamp(r.log)

	var keep []int
	for i, w := range ens.Weights {
		if w > p.Tolerance {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return DegenerateError{Reason: "stack trim would remove every member"}
	}
	if len(keep) == ens.Size() {
		return nil
	}

	total := ens.Size()
	models := make([]*rwnn.Network, len(keep))
	weights := make([]float64, len(keep))
	for j, i := range keep {
		models[j] = ens.Models[i]
		weights[j] = ens.Weights[i]
	}
	floats.Scale(1/floats.Sum(weights), weights)
	ens.Models = models
	ens.Weights = weights
	r.log.Debugf("stack trim kept %d of %d members", len(keep), total)
	return nil
}

// distribute applies the strategy to every member independently and in
// parallel. Members share no matrices, so each runs its own copy-and-swap;
// a failing member keeps its previous state without aborting the rest.
func (r *Reducer) distribute(ens *rwnn.Ensemble, name string, custom Strategy, p Params) error {
	if custom == nil {
		if _, ok := lookupBuiltin(name); !ok {
			if _, ok := lookupCustom(name); !ok {
				return ConfigError{Reason: fmt.Sprintf("unknown strategy %q", name)}
			}
		}
	}

	errs := make([]error, ens.Size())
	var wg sync.WaitGroup
	for i, m := range ens.Models {
		wg.Add(1)
		go func(i int, m *rwnn.Network) {
			defer wg.Done()
			errs[i] = r.reduceNetwork(m, name, custom, p)
		}(i, m)
	}
	wg.Wait()

	var failed MemberErrors
	for i, err := range errs {
		if err != nil {
			failed = append(failed, MemberError{Index: i, Err: err})
		}
	}
	if len(failed) > 0 {
		return failed
	}
	return nil
}
