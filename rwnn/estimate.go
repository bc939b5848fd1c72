package rwnn

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Regularization norms for output-weight estimation.
const (
	NormL1 = "l1"
	NormL2 = "l2"
)

// OutputEstimator solves the regularized least-squares problem for the
// output layer. Implementations must accept a design with zero or more
// columns removed relative to a previous call (re-fitting after pruning) and
// must fail with a ShapeError when design and target row counts differ.
type OutputEstimator interface {
	Estimate(design, target *mat.Dense, norm string, penalty float64) (*mat.Dense, float64, error)
}

// LeastSquares is the default estimator. The l2 path solves the ridge
// system in augmented form [A; sqrt(penalty) I] w = [y; 0] by QR; the l1
// path runs cyclic coordinate descent with soft thresholding, one target
// column at a time. The second return value is the residual scale
// sqrt(RSS / n).
type LeastSquares struct {
	// MaxIter and Tol bound the l1 coordinate descent. Zero values select
	// 1000 sweeps and 1e-7.
	MaxIter int
	Tol     float64
}

func (ls LeastSquares) Estimate(design, target *mat.Dense, norm string, penalty float64) (*mat.Dense, float64, error) {
	n, p := design.Dims()
	tn, _ := target.Dims()
	if n != tn {
		return nil, 0, ShapeError{Op: "estimate", Want: n, Got: tn}
	}
	if p == 0 {
		return nil, 0, errors.New("estimate: design has no columns")
	}
	if penalty < 0 {
		penalty = 0
	}

	var beta *mat.Dense
	var err error
	switch norm {
	case NormL2, "":
		beta, err = ridge(design, target, penalty)
	case NormL1:
		beta, err = ls.lasso(design, target, penalty)
	default:
		err = errors.Errorf("unknown regularization norm %q", norm)
	}
	if err != nil {
		return nil, 0, err
	}

	var resid mat.Dense
	resid.Mul(design, beta)
	resid.Sub(target, &resid)
	sigma := math.Sqrt(sumSquares(&resid) / float64(n))
	return beta, sigma, nil
}

func ridge(design, target *mat.Dense, penalty float64) (*mat.Dense, error) {
	var beta mat.Dense
	if penalty == 0 {
		if err := beta.Solve(design, target); err != nil {
			return nil, errors.Wrap(err, "output solve")
		}
		return &beta, nil
	}
	_, p := design.Dims()
	_, t := target.Dims()
	var a, b mat.Dense
	a.Stack(design, identityScaled(p, math.Sqrt(penalty)))
	b.Stack(target, mat.NewDense(p, t, nil))
	if err := beta.Solve(&a, &b); err != nil {
		return nil, errors.Wrap(err, "output solve")
	}
	return &beta, nil
}

func (ls LeastSquares) lasso(design, target *mat.Dense, penalty float64) (*mat.Dense, error) {
	maxIter := ls.MaxIter
	if maxIter <= 0 {
		maxIter = 1000
	}
	tol := ls.Tol
	if tol <= 0 {
		tol = 1e-7
	}

	n, p := design.Dims()
	_, t := target.Dims()

	colSq := make([]float64, p)
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			v := design.At(i, j)
			colSq[j] += v * v
		}
	}

	beta := mat.NewDense(p, t, nil)
	for c := 0; c < t; c++ {
		b := make([]float64, p)
		resid := mat.Col(nil, c, target)
		for iter := 0; iter < maxIter; iter++ {
			maxDelta := 0.0
			for j := 0; j < p; j++ {
				if colSq[j] == 0 {
					continue
				}
				// Partial correlation with j's own contribution restored.
				rho := colSq[j] * b[j]
				for i := 0; i < n; i++ {
					rho += design.At(i, j) * resid[i]
				}
				next := softThreshold(rho, penalty) / colSq[j]
				if next == b[j] {
					continue
				}
				delta := next - b[j]
				for i := 0; i < n; i++ {
					resid[i] -= delta * design.At(i, j)
				}
				b[j] = next
				if d := math.Abs(delta); d > maxDelta {
					maxDelta = d
				}
			}
			if maxDelta < tol {
				break
			}
		}
		beta.SetCol(c, b)
	}
	return beta, nil
}

func softThreshold(z, gamma float64) float64 {
	switch {
	case z > gamma:
		return z - gamma
	case z < -gamma:
		return z + gamma
	default:
		return 0
	}
}

// nonNegativeLS solves min ||y - A w|| subject to w >= 0 with a
// Lawson-Hanson active set, used for stacking-weight estimation.
func nonNegativeLS(a *mat.Dense, y []float64) ([]float64, error) {
	n, p := a.Dims()
	if len(y) != n {
		return nil, ShapeError{Op: "nnls", Want: n, Got: len(y)}
	}

	w := make([]float64, p)
	passive := make([]bool, p)
	resid := append([]float64(nil), y...)

	grad := func() []float64 {
		g := make([]float64, p)
		for j := 0; j < p; j++ {
			for i := 0; i < n; i++ {
				g[j] += a.At(i, j) * resid[i]
			}
		}
		return g
	}

	solvePassive := func() ([]float64, []int, error) {
		var cols []int
		for j := 0; j < p; j++ {
			if passive[j] {
				cols = append(cols, j)
			}
		}
		if len(cols) == 0 {
			return nil, nil, nil
		}
		sub := selectColumns(a, cols)
		var z mat.Dense
		if err := z.Solve(sub, mat.NewDense(n, 1, append([]float64(nil), y...))); err != nil {
			return nil, nil, errors.Wrap(err, "nnls passive solve")
		}
		zs := make([]float64, len(cols))
		for k := range cols {
			zs[k] = z.At(k, 0)
		}
		return zs, cols, nil
	}

	refreshResid := func() {
		copy(resid, y)
		for j := 0; j < p; j++ {
			if w[j] == 0 {
				continue
			}
			for i := 0; i < n; i++ {
				resid[i] -= a.At(i, j) * w[j]
			}
		}
	}

	const eps = 1e-12
	for outer := 0; outer < 3*p+10; outer++ {
		g := grad()
		best, bestVal := -1, eps
		for j := 0; j < p; j++ {
			if !passive[j] && g[j] > bestVal {
				best, bestVal = j, g[j]
			}
		}
		if best < 0 {
			break
		}
		passive[best] = true

		for inner := 0; inner < 3*p+10; inner++ {
			zs, cols, err := solvePassive()
			if err != nil {
				return nil, err
			}
			if len(cols) == 0 {
				// The step zeroed out the last passive column.
				break
			}
			feasible := true
			alpha := 1.0
			for k, j := range cols {
				if zs[k] <= eps {
					feasible = false
					if step := w[j] / (w[j] - zs[k]); step < alpha {
						alpha = step
					}
				}
			}
			if feasible {
				for j := range w {
					w[j] = 0
				}
				for k, j := range cols {
					w[j] = zs[k]
				}
				break
			}
			for k, j := range cols {
				w[j] += alpha * (zs[k] - w[j])
				if w[j] <= eps {
					w[j] = 0
					passive[j] = false
				}
			}
		}
		refreshResid()
	}
	return w, nil
}
