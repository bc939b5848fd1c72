package rwnn

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Activator applies an elementwise activation function. The i, j arguments
// carry the matrix position so implementations can be used directly with
// mat.Dense.Apply.
type Activator interface {
	Activate(i, j int, sum float64) float64
	fmt.Stringer
}

// ActivatorLookup maps activation identifiers to their implementations.
// Entries may be added before fitting to make custom activations available
// by name.
var ActivatorLookup = map[string]Activator{
	"sigmoid":      Sigmoid{},
	"tanh":         Tanh{},
	"relu":         ReLU{},
	"silu":         SiLU{},
	"softplus":     Softplus{},
	"softsign":     Softsign{},
	"sqnl":         SQNL{},
	"gaussian":     Gaussian{},
	"sqrbf":        SqRBF{},
	"bentidentity": BentIdentity{},
	"identity":     Identity{},
}

// LookupActivator resolves an activation identifier.
func LookupActivator(id string) (Activator, error) {
	a, ok := ActivatorLookup[id]
	if !ok {
		return nil, errors.Errorf("unknown activation %q", id)
	}
	return a, nil
}

type Sigmoid struct{}

func (s Sigmoid) Activate(i, j int, sum float64) float64 {
	return 1.0 / (1.0 + math.Exp(-sum))
}

func (s Sigmoid) String() string {
	return "sigmoid"
}

type Tanh struct{}

func (t Tanh) Activate(i, j int, sum float64) float64 {
	return math.Tanh(sum)
}

func (t Tanh) String() string {
	return "tanh"
}

type ReLU struct{}

func (r ReLU) Activate(i, j int, sum float64) float64 {
	if sum < 0 {
		return 0
	}
	return sum
}

func (r ReLU) String() string {
	return "relu"
}

type SiLU struct{}

func (s SiLU) Activate(i, j int, sum float64) float64 {
	return sum / (1.0 + math.Exp(-sum))
}

func (s SiLU) String() string {
	return "silu"
}

type Softplus struct{}

func (s Softplus) Activate(i, j int, sum float64) float64 {
	// log(1+e^x) overflows for large x; it is x + log(1+e^-x) there.
	if sum > 30 {
		return sum + math.Log1p(math.Exp(-sum))
	}
	return math.Log1p(math.Exp(sum))
}

func (s Softplus) String() string {
	return "softplus"
}

type Softsign struct{}

func (s Softsign) Activate(i, j int, sum float64) float64 {
	return sum / (1.0 + math.Abs(sum))
}

func (s Softsign) String() string {
	return "softsign"
}

// SQNL is the square nonlinearity, saturating at +-1 outside [-2, 2].
type SQNL struct{}

func (s SQNL) Activate(i, j int, sum float64) float64 {
	switch {
	case sum > 2:
		return 1
	case sum >= 0:
		return sum - sum*sum/4.0
	case sum >= -2:
		return sum + sum*sum/4.0
	default:
		return -1
	}
}

func (s SQNL) String() string {
	return "sqnl"
}

type Gaussian struct{}

func (g Gaussian) Activate(i, j int, sum float64) float64 {
	return math.Exp(-sum * sum)
}

func (g Gaussian) String() string {
	return "gaussian"
}

// SqRBF is the square radial basis function, compactly supported on [-2, 2].
type SqRBF struct{}

func (s SqRBF) Activate(i, j int, sum float64) float64 {
	a := math.Abs(sum)
	switch {
	case a <= 1:
		return 1 - sum*sum/2.0
	case a < 2:
		return (2 - a) * (2 - a) / 2.0
	default:
		return 0
	}
}

func (s SqRBF) String() string {
	return "sqrbf"
}

type BentIdentity struct{}

func (b BentIdentity) Activate(i, j int, sum float64) float64 {
	return (math.Sqrt(sum*sum+1)-1)/2.0 + sum
}

func (b BentIdentity) String() string {
	return "bentidentity"
}

type Identity struct{}

func (id Identity) Activate(i, j int, sum float64) float64 {
	return sum
}

func (id Identity) String() string {
	return "identity"
}
