// Package descriptive computes the descriptive statistics of a dataset: mean,
// mode, median, population variance and standard deviation.
//
// The individual functions are pure and never fail; degenerate input (an empty
// slice) yields zero values. Compute runs the five of them concurrently against
// the same input and assembles the results into a single Snapshot.
package descriptive

import (
	"context"
	"errors"
	"math"
	"slices"

	"github.com/hyp3rd/ewrap"
	"golang.org/x/sync/errgroup"

	"github.com/hyp3rd/statkit/internal/sentinel"
)

// Snapshot holds the descriptive statistics of one dataset version.
type Snapshot struct {
	Count             int       `json:"count"`
	Mean              float64   `json:"mean"`
	Mode              []float64 `json:"mode"`
	Median            float64   `json:"median"`
	Variance          float64   `json:"variance"`
	StandardDeviation float64   `json:"standardDeviation"`
}

// Neutral returns the snapshot of an empty dataset.
func Neutral() Snapshot {
	return Snapshot{Mode: []float64{}}
}

// IsNeutral reports whether s describes an empty dataset.
func (s Snapshot) IsNeutral() bool {
	return s.Count == 0
}

// Mean returns the arithmetic mean of data.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}

	var sum float64
	for _, v := range data {
		sum += v
	}

	return sum / float64(len(data))
}

// Mode returns every value that occurs with the highest frequency, in ascending order.
// Values are grouped by exact equality.
func Mode(data []float64) []float64 {
	if len(data) == 0 {
		return []float64{}
	}

	frequency := make(map[float64]int, len(data))

	maxFrequency := 0
	for _, v := range data {
		frequency[v]++
		if frequency[v] > maxFrequency {
			maxFrequency = frequency[v]
		}
	}

	mode := make([]float64, 0, len(frequency))
	for v, count := range frequency {
		if count == maxFrequency {
			mode = append(mode, v)
		}
	}

	slices.Sort(mode)

	return mode
}

// Median returns the middle value of data, or the average of the two middle
// values when the count is even. data is not modified.
func Median(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}

	sorted := slices.Clone(data)
	slices.Sort(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}

	return sorted[mid]
}

// Variance returns the population variance of data.
func Variance(data []float64) float64 {
	return VarianceAround(data, Mean(data))
}

// VarianceAround returns the mean squared deviation of data from mean, divided by N.
func VarianceAround(data []float64, mean float64) float64 {
	if len(data) == 0 {
		return 0
	}

	var sum float64
	for _, v := range data {
		d := v - mean
		sum += d * d
	}

	return sum / float64(len(data))
}

// StandardDeviation returns the population standard deviation of data.
// The mean is computed once and reused for the variance.
func StandardDeviation(data []float64) float64 {
	return math.Sqrt(VarianceAround(data, Mean(data)))
}

// Compute calculates all statistics of data. The five computations run
// concurrently and the snapshot is assembled only after every one returned.
// The only error is the cancellation of ctx; it matches both
// sentinel.ErrTimeoutOrCanceled and the context error.
func Compute(ctx context.Context, data []float64) (Snapshot, error) {
	if len(data) == 0 {
		return Neutral(), nil
	}

	var (
		mean, median, variance, stdDev float64
		mode                           []float64
	)

	group, gctx := errgroup.WithContext(ctx)

	run := func(fn func()) {
		group.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			fn()

			return nil
		})
	}

	run(func() { mean = Mean(data) })
	run(func() { mode = Mode(data) })
	run(func() { median = Median(data) })
	run(func() { variance = Variance(data) })
	run(func() { stdDev = StandardDeviation(data) })

	err := group.Wait()
	if err != nil {
		return Snapshot{}, ewrap.Wrap(errors.Join(sentinel.ErrTimeoutOrCanceled, err), "descriptive statistics")
	}

	return Snapshot{
		Count:             len(data),
		Mean:              mean,
		Mode:              mode,
		Median:            median,
		Variance:          variance,
		StandardDeviation: stdDev,
	}, nil
}
