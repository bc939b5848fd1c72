package rwnn

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// Config specifies the architecture and estimation settings of a network.
type Config struct {
	// Widths gives the hidden layer sizes, outermost first.
	Widths []int
	// Activations holds one identifier per layer; a single element is
	// broadcast to every layer. Empty defaults to sigmoid.
	Activations []string
	// Bias holds the hidden bias flags; a single element is broadcast.
	// Empty defaults to true for every layer.
	Bias []bool

	OutputBias    bool
	CombineInput  bool
	CombineHidden bool

	// Norm and Penalty govern output-weight estimation. Empty norm means
	// l2; a negative penalty is clamped to zero.
	Norm    string
	Penalty float64

	// Sampler draws the hidden weights. Nil selects U(-1, 1) seeded from
	// Seed.
	Sampler Sampler
	Seed    uint64

	// Logger receives non-fatal diagnostics from validation and the
	// ensemble drivers. Nil discards them.
	Logger *zap.SugaredLogger
}

// DefaultConfig returns the standard setup for the given hidden widths:
// sigmoid activations, bias terms everywhere, ridge penalty 0.01.
func DefaultConfig(widths ...int) Config {
	return Config{
		Widths:      widths,
		Activations: []string{"sigmoid"},
		Bias:        []bool{true},
		OutputBias:  true,
		Norm:        NormL2,
		Penalty:     0.01,
	}
}

// Validate normalizes the configuration in place: slices are broadcast to
// the layer count, recoverable values are clamped with a diagnostic, and
// anything unusable is returned as an error.
func (c *Config) Validate() error {
	if len(c.Widths) == 0 {
		return errors.New("config: at least one hidden layer is required")
	}
	for i, w := range c.Widths {
		if w < 1 {
			return errors.Errorf("config: layer %d has width %d", i, w)
		}
	}

	switch len(c.Activations) {
	case 0:
		c.Activations = []string{"sigmoid"}
		fallthrough
	case 1:
		acts := make([]string, len(c.Widths))
		for i := range acts {
			acts[i] = c.Activations[0]
		}
		c.Activations = acts
	case len(c.Widths):
	default:
		return errors.Errorf("config: %d activations for %d layers", len(c.Activations), len(c.Widths))
	}
	for i, id := range c.Activations {
		if _, err := LookupActivator(id); err != nil {
			return errors.Wrapf(err, "config: layer %d", i)
		}
	}

	switch len(c.Bias) {
	case 0:
		c.Bias = []bool{true}
		fallthrough
	case 1:
		bias := make([]bool, len(c.Widths))
		for i := range bias {
			bias[i] = c.Bias[0]
		}
		c.Bias = bias
	case len(c.Widths):
	default:
		return errors.Errorf("config: %d bias flags for %d layers", len(c.Bias), len(c.Widths))
	}

	if c.Norm == "" {
		c.Norm = NormL2
	}
	if c.Norm != NormL1 && c.Norm != NormL2 {
		return errors.Errorf("config: unknown regularization norm %q", c.Norm)
	}
	if c.Penalty < 0 {
		c.diagf("negative penalty %v clamped to 0", c.Penalty)
		c.Penalty = 0
	}
	if c.Sampler == nil {
		c.Sampler = NewUniformSampler(-1, 1, rand.NewSource(c.Seed))
	}
	return nil
}

func (c *Config) diagf(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Warnf(format, args...)
	}
}
