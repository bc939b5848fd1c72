package reduce

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/svilsen/RWNN/rwnn"
)

type builtinFn func(r *Reducer, net *rwnn.Network, x, y *mat.Dense, p Params) error

type builtinEntry struct {
	fn        builtinFn
	needsData bool
}

var builtins = map[string]builtinEntry{}

func init() {
	add := func(fn builtinFn, needsData bool, names ...string) {
		for _, n := range names {
			builtins[n] = builtinEntry{fn: fn, needsData: needsData}
		}
	}
	add(reduceGlobal, false, "global", "glbl")
	add(reduceUniform, false, "uniform", "unif")
	add(reduceLAMP, false, "lamp")
	add(reduceAPOZ, true, "apoz")
	add(reduceNorm, true, "norm")
	add(reduceCorrelation, true, "correlation", "cor")
	add(reduceCorrelationTest, true, "correlationtest", "cortest")
	add(reduceRelief, true, "relief")
	add(reduceOutput, false, "output")
}

var (
	customMu sync.RWMutex
	registry = map[string]Strategy{}
)

// Register makes a custom strategy available to Reduce under the given
// name. Builtin names cannot be replaced, and a name can only be
// registered once.
func Register(name string, s Strategy) error {
	if name == "" || s == nil {
		return errors.New("reduce: Register needs a name and a strategy")
	}
	if _, ok := builtins[name]; ok || name == "stack" || name == "stacking" {
		return errors.Errorf("reduce: %q is a builtin strategy", name)
	}
	customMu.Lock()
	defer customMu.Unlock()
	if _, ok := registry[name]; ok {
		return errors.Errorf("reduce: strategy %q already registered", name)
	}
	registry[name] = s
	return nil
}

// Strategies lists every recognized strategy name, builtin and registered,
// in sorted order.
func Strategies() []string {
	customMu.RLock()
	defer customMu.RUnlock()
	names := make([]string, 0, len(builtins)+len(registry)+2)
	for n := range builtins {
		names = append(names, n)
	}
	for n := range registry {
		names = append(names, n)
	}
	names = append(names, "stack", "stacking")
	sort.Strings(names)
	return names
}

func lookupBuiltin(name string) (builtinEntry, bool) {
	b, ok := builtins[name]
	return b, ok
}

func lookupCustom(name string) (Strategy, bool) {
	customMu.RLock()
	defer customMu.RUnlock()
	s, ok := registry[name]
	return s, ok
}
