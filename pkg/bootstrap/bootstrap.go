// Package bootstrap provides the building blocks of a Central Limit Theorem
// simulation: drawing samples with replacement, averaging them and
// aggregating the resulting sample means into a distribution.
//
// The functions here are sequential and free of shared state. Running many
// resamples in parallel is the caller's business; each resample should use its
// own random generator.
package bootstrap

import (
	"math"
	"math/rand/v2"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/statkit/internal/sentinel"
	"github.com/hyp3rd/statkit/pkg/descriptive"
)

const (
	// MaxResamples bounds the number of resamples of a single simulation.
	MaxResamples = 10_000_000
	// MaxSampleSize bounds the number of draws of a single resample.
	MaxSampleSize = 1_000_000
)

// Params configures a simulation: N resamples of K draws each.
type Params struct {
	N int `json:"n" yaml:"resamples"`
	K int `json:"k" yaml:"sample_size"`
}

// Valid reports whether p describes a simulation that schedules any work.
func (p Params) Valid() bool {
	return p.N > 0 && p.K > 0
}

// CheckLimits reports ErrBootstrapLimit when p exceeds MaxResamples or
// MaxSampleSize. Non-positive values are within limits: they schedule nothing.
func (p Params) CheckLimits() error {
	if p.N > MaxResamples || p.K > MaxSampleSize {
		return ewrap.Wrapf(sentinel.ErrBootstrapLimit, "n %d (max %d), k %d (max %d)", p.N, MaxResamples, p.K, MaxSampleSize)
	}

	return nil
}

// Distribution is the outcome of a simulation.
type Distribution struct {
	SampleMeans   []float64 `json:"sampleMeans"`
	MeanOfMeans   float64   `json:"meanOfMeans"`
	StandardError float64   `json:"standardError"`
}

// Empty returns the distribution of a simulation that did not run.
func Empty() Distribution {
	return Distribution{SampleMeans: []float64{}}
}

// Len returns the number of sample means.
func (d Distribution) Len() int {
	return len(d.SampleMeans)
}

// Draw returns k values picked uniformly at random from data, with replacement.
// k may exceed len(data). data must not be empty when k > 0.
func Draw(rng *rand.Rand, data []float64, k int) []float64 {
	if k <= 0 {
		return []float64{}
	}

	sample := make([]float64, k)
	for i := range sample {
		sample[i] = data[rng.IntN(len(data))]
	}

	return sample
}

// SampleMean draws k values with replacement and returns their mean.
func SampleMean(rng *rand.Rand, data []float64, k int) float64 {
	if k <= 0 || len(data) == 0 {
		return 0
	}

	return descriptive.Mean(Draw(rng, data, k))
}

// Aggregate summarizes the sample means of a simulation whose samples had k
// values each. StandardError is the population standard deviation of the
// means divided by sqrt(k).
func Aggregate(means []float64, k int) Distribution {
	if len(means) == 0 || k <= 0 {
		return Empty()
	}

	meanOfMeans := descriptive.Mean(means)
	stdDevOfMeans := math.Sqrt(descriptive.VarianceAround(means, meanOfMeans))

	return Distribution{
		SampleMeans:   means,
		MeanOfMeans:   meanOfMeans,
		StandardError: stdDevOfMeans / math.Sqrt(float64(k)),
	}
}

// Seeds derives n independent generator seeds from rng. Taking the seeds up
// front keeps a seeded simulation reproducible regardless of scheduling.
func Seeds(rng *rand.Rand, n int) [][2]uint64 {
	seeds := make([][2]uint64, n)
	for i := range seeds {
		seeds[i] = [2]uint64{rng.Uint64(), rng.Uint64()}
	}

	return seeds
}

// NewRand returns a generator for one resample.
func NewRand(seed [2]uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed[0], seed[1]))
}

// Run executes a whole simulation sequentially. It is the reference the
// parallel sampler is checked against. Parameters beyond the limits yield Empty.
func Run(rng *rand.Rand, data []float64, params Params) Distribution {
	if len(data) == 0 || !params.Valid() || params.CheckLimits() != nil {
		return Empty()
	}

	seeds := Seeds(rng, params.N)

	means := make([]float64, params.N)
	for i, seed := range seeds {
		means[i] = SampleMean(NewRand(seed), data, params.K)
	}

	return Aggregate(means, params.K)
}
