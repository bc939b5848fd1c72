package rwnn

import (
	"gonum.org/v1/gonum/mat"
)

func apply(fn func(i, j int, v float64) float64, m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.Apply(fn, m)
	return o
}

func dot(m, n mat.Matrix) *mat.Dense {
	r, _ := m.Dims()
	_, c := n.Dims()
	o := mat.NewDense(r, c, nil)
	o.Mul(m, n)
	return o
}

// prependOnes returns [1 | m]: a leading column of ones so that a bias row
// in the following weight matrix lines up with column 0.
func prependOnes(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	o := mat.NewDense(r, c+1, nil)
	for i := 0; i < r; i++ {
		o.Set(i, 0, 1)
		for j := 0; j < c; j++ {
			o.Set(i, j+1, m.At(i, j))
		}
	}
	return o
}

// augment concatenates matrices side by side. All parts must share the same
// row count; parts may be empty.
func augment(parts ...mat.Matrix) *mat.Dense {
	if len(parts) == 0 {
		return nil
	}
	o := mat.DenseCopyOf(parts[0])
	for _, p := range parts[1:] {
		var next mat.Dense
		next.Augment(o, p)
		o = &next
	}
	return o
}

// selectColumns returns the submatrix of m restricted to the given columns,
// in the given order.
func selectColumns(m mat.Matrix, cols []int) *mat.Dense {
	r, _ := m.Dims()
	o := mat.NewDense(r, len(cols), nil)
	for k, j := range cols {
		for i := 0; i < r; i++ {
			o.Set(i, k, m.At(i, j))
		}
	}
	return o
}

// onesColumn is an n x 1 matrix of ones, the bias part of a design matrix.
func onesColumn(n int) *mat.Dense {
	o := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		o.Set(i, 0, 1)
	}
	return o
}

// identityScaled is s * I with the given size.
func identityScaled(n int, s float64) *mat.Dense {
	o := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		o.Set(i, i, s)
	}
	return o
}

// sumSquares accumulates the squared entries of m.
func sumSquares(m mat.Matrix) float64 {
	r, c := m.Dims()
	var s float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			s += v * v
		}
	}
	return s
}

func cloneMatrices(ms []*mat.Dense) []*mat.Dense {
	out := make([]*mat.Dense, len(ms))
	for i, m := range ms {
		if m != nil {
			out[i] = mat.DenseCopyOf(m)
		}
	}
	return out
}
