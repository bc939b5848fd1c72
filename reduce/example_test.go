package reduce

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/svilsen/RWNN/rwnn"
)

func ExampleReduce() {
	net := &rwnn.Network{
		Widths:        []int{4},
		Weights:       []*mat.Dense{mat.NewDense(1, 4, []float64{1, 2, 3, 4})},
		Biases:        []bool{false},
		Activations:   []string{"identity"},
		OutputWeights: mat.NewDense(4, 1, []float64{10, 20, 30, 40}),
		Norm:          rwnn.NormL2,
	}

	// Zero the weights below each layer's own median magnitude.
	if err := Reduce(net, "uniform", Params{Proportion: 0.5}); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(mat.Row(nil, 0, net.Weights[0]))
	fmt.Println(mat.Col(nil, 0, net.OutputWeights))
	// Output:
	// [0 0 3 4]
	// [0 0 30 40]
}

func ExampleRegister() {
	floor := func(net *rwnn.Network, x, y *mat.Dense, p Params) error {
		w := net.Weights[0]
		rows, cols := w.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if math.Abs(w.At(i, j)) < 2.5 {
					w.Set(i, j, 0)
				}
			}
		}
		return nil
	}
	if err := Register("floor", floor); err != nil {
		fmt.Println(err)
		return
	}

	net := &rwnn.Network{
		Widths:        []int{4},
		Weights:       []*mat.Dense{mat.NewDense(1, 4, []float64{1, 2, 3, 4})},
		Biases:        []bool{false},
		Activations:   []string{"identity"},
		OutputWeights: mat.NewDense(4, 1, []float64{10, 20, 30, 40}),
		Norm:          rwnn.NormL2,
	}
	if err := Reduce(net, "floor", Params{}); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(mat.Row(nil, 0, net.Weights[0]))
	// Output:
	// [0 0 3 4]
}
