package rwnn

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler draws the entries of a randomly initialized weight matrix. Hidden
// weights are sampled exactly once per fit and never trained afterwards, so
// reproducibility comes from handing the sampler an explicit seeded source
// rather than from ambient generator state.
type Sampler interface {
	Sample(rows, cols int) *mat.Dense
}

// UniformSampler draws entries uniformly from [Min, Max).
type UniformSampler struct {
	Min, Max float64
	Src      rand.Source
}

// NewUniformSampler returns a sampler over [min, max) seeded by src. A nil
// src falls back to the shared global stream.
func NewUniformSampler(min, max float64, src rand.Source) UniformSampler {
	return UniformSampler{Min: min, Max: max, Src: src}
}

func (u UniformSampler) Sample(rows, cols int) *mat.Dense {
	dist := distuv.Uniform{Min: u.Min, Max: u.Max, Src: u.Src}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = dist.Rand()
	}
	return mat.NewDense(rows, cols, data)
}

// NormalSampler draws entries from N(Mean, SD^2).
type NormalSampler struct {
	Mean, SD float64
	Src      rand.Source
}

func NewNormalSampler(mean, sd float64, src rand.Source) NormalSampler {
	return NormalSampler{Mean: mean, SD: sd, Src: src}
}

func (s NormalSampler) Sample(rows, cols int) *mat.Dense {
	dist := distuv.Normal{Mu: s.Mean, Sigma: s.SD, Src: s.Src}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = dist.Rand()
	}
	return mat.NewDense(rows, cols, data)
}
