package bootstrap

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/longbridgeapp/assert"

	"github.com/hyp3rd/statkit/internal/sentinel"
	"github.com/hyp3rd/statkit/pkg/descriptive"
)

func uniformData(seed uint64, size int) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed+1))

	data := make([]float64, size)
	for i := range data {
		data[i] = rng.Float64() * 100
	}

	return data
}

func TestParams_Valid(t *testing.T) {
	tests := []struct {
		params Params
		valid  bool
	}{
		{Params{N: 10, K: 5}, true},
		{Params{N: 0, K: 5}, false},
		{Params{N: 10, K: 0}, false},
		{Params{N: -1, K: 5}, false},
		{Params{N: 10, K: -3}, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, tt.params.Valid())
	}
}

func TestParams_CheckLimits(t *testing.T) {
	assert.Nil(t, Params{N: MaxResamples, K: MaxSampleSize}.CheckLimits())
	assert.Nil(t, Params{N: -1, K: 0}.CheckLimits())
	assert.True(t, errors.Is(Params{N: MaxResamples + 1, K: 1}.CheckLimits(), sentinel.ErrBootstrapLimit))
	assert.True(t, errors.Is(Params{N: 1, K: MaxSampleSize + 1}.CheckLimits(), sentinel.ErrBootstrapLimit))
	assert.Equal(t, 0, Run(rand.New(rand.NewPCG(1, 1)), []float64{1}, Params{N: 1 << 62, K: 1}).Len())
}

func TestDraw_WithReplacement(t *testing.T) {
	data := []float64{1, 2, 3}
	rng := rand.New(rand.NewPCG(3, 4))

	sample := Draw(rng, data, 50)
	assert.Equal(t, 50, len(sample))

	for _, v := range sample {
		assert.True(t, slices.Contains(data, v))
	}

	assert.Equal(t, 0, len(Draw(rng, data, 0)))
}

func TestSampleMean_MatchesDraw(t *testing.T) {
	data := uniformData(5, 100)
	seed := [2]uint64{42, 43}

	expected := descriptive.Mean(Draw(NewRand(seed), data, 30))
	assert.Equal(t, expected, SampleMean(NewRand(seed), data, 30))
}

func TestAggregate(t *testing.T) {
	dist := Aggregate([]float64{1, 2, 3, 4}, 4)

	assert.Equal(t, 4, dist.Len())
	assert.Equal(t, 2.5, dist.MeanOfMeans)
	assert.Equal(t, math.Sqrt(1.25)/2, dist.StandardError)
}

func TestAggregate_Degenerate(t *testing.T) {
	assert.Equal(t, Empty(), Aggregate(nil, 4))
	assert.Equal(t, Empty(), Aggregate([]float64{1, 2}, 0))
}

func TestRun_InvalidInput(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))

	assert.Equal(t, Empty(), Run(rng, nil, Params{N: 10, K: 10}))
	assert.Equal(t, Empty(), Run(rng, []float64{1}, Params{N: 0, K: 10}))
	assert.Equal(t, Empty(), Run(rng, []float64{1}, Params{N: 10, K: 0}))
}

func TestRun_Reproducible(t *testing.T) {
	data := uniformData(9, 500)
	params := Params{N: 200, K: 20}

	first := Run(rand.New(rand.NewPCG(77, 78)), data, params)
	second := Run(rand.New(rand.NewPCG(77, 78)), data, params)

	assert.Equal(t, first, second)
	assert.Equal(t, params.N, first.Len())
}

func TestRun_SampleLargerThanDataset(t *testing.T) {
	dist := Run(rand.New(rand.NewPCG(5, 6)), []float64{2, 4}, Params{N: 100, K: 10})

	assert.Equal(t, 100, dist.Len())

	for _, m := range dist.SampleMeans {
		assert.True(t, m >= 2 && m <= 4)
	}
}

func TestRun_Convergence(t *testing.T) {
	data := uniformData(13, 10000)
	trueMean := descriptive.Mean(data)

	small := Run(rand.New(rand.NewPCG(21, 22)), data, Params{N: 2000, K: 5})
	large := Run(rand.New(rand.NewPCG(21, 22)), data, Params{N: 2000, K: 50})

	assert.True(t, math.Abs(small.MeanOfMeans-trueMean) < 1.5)
	assert.True(t, math.Abs(large.MeanOfMeans-trueMean) < 0.5)
	assert.True(t, large.StandardError < small.StandardError)
}
