// Package histogram buckets a dataset into fixed-width bins and classifies
// each bin by its distance, in standard deviations, from the mean.
package histogram

import (
	"math"

	"github.com/aclements/go-moremath/stats"
	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/statkit/internal/sentinel"
)

const (
	// DefaultStep is the bin width used when none is configured.
	DefaultStep = 0.5
	// MaxBins bounds the number of bins a single histogram may hold.
	MaxBins = 10_000

	defaultStart = 0.0
	defaultEnd   = 10.0
	// tolerance absorbs rounding when the range is an exact multiple of the step.
	tolerance = 1e-9
)

// Band classifies a bin relative to the mean and standard deviation.
type Band uint8

const (
	// BandOutside is a bin more than three standard deviations from the mean.
	BandOutside Band = iota
	// BandMean is the bin that starts within one step above the mean.
	BandMean
	// BandOneSigma is a bin within one standard deviation of the mean.
	BandOneSigma
	// BandTwoSigma is a bin between one and two standard deviations from the mean.
	BandTwoSigma
	// BandThreeSigma is a bin between two and three standard deviations from the mean.
	BandThreeSigma
)

var bandNames = [...]string{
	BandOutside:    "outside",
	BandMean:       "mean",
	BandOneSigma:   "one-sigma",
	BandTwoSigma:   "two-sigma",
	BandThreeSigma: "three-sigma",
}

// String returns the name of the band.
func (b Band) String() string {
	if int(b) < len(bandNames) {
		return bandNames[b]
	}

	return "unknown"
}

// MarshalText encodes the band by name.
func (b Band) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// Config describes the bins: starting at Start, every Step, through End inclusive.
type Config struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Step  float64 `json:"step"`
}

// DefaultConfig spans the observed range of data with DefaultStep wide bins.
// The step doubles until the range fits within MaxBins.
func DefaultConfig(data []float64) Config {
	if len(data) == 0 {
		return Config{Start: defaultStart, End: defaultEnd, Step: DefaultStep}
	}

	lo, hi := stats.Sample{Xs: data}.Bounds()

	step := DefaultStep
	for (hi-lo)/step >= MaxBins {
		step *= 2
	}

	return Config{Start: lo, End: hi, Step: step}
}

// Bins returns the number of bins cfg describes.
func (cfg Config) Bins() int {
	return int(math.Floor((cfg.End-cfg.Start)/cfg.Step+tolerance)) + 1
}

// Validate checks that cfg describes a finite, non-empty set of bins.
func (cfg Config) Validate() error {
	if !(cfg.Step > 0) || math.IsInf(cfg.Step, 0) {
		return ewrap.Wrapf(sentinel.ErrInvalidBinStep, "step %v", cfg.Step)
	}

	if math.IsNaN(cfg.Start) || math.IsNaN(cfg.End) || cfg.End < cfg.Start {
		return ewrap.Wrapf(sentinel.ErrInvalidBinRange, "start %v end %v", cfg.Start, cfg.End)
	}

	if (cfg.End-cfg.Start)/cfg.Step >= MaxBins {
		return ewrap.Wrapf(sentinel.ErrInvalidBinStep, "step %v yields more than %d bins", cfg.Step, MaxBins)
	}

	return nil
}

// Bin is one bucket of a histogram, counting values in [Start, End).
type Bin struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Count int     `json:"count"`
	Band  Band    `json:"band"`
}

// Compute buckets data according to cfg. mean and stdDev classify the bins.
func Compute(data []float64, cfg Config, mean, stdDev float64) ([]Bin, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	nbins := cfg.Bins()

	edge := func(i int) float64 { return cfg.Start + float64(i)*cfg.Step }

	// each bin ends where the next one starts, so the bins tile the range
	bins := make([]Bin, nbins)
	for i := range bins {
		start := edge(i)
		bins[i] = Bin{
			Start: start,
			End:   edge(i + 1),
			Band:  Classify(start, cfg.Step, mean, stdDev),
		}
	}

	for _, v := range data {
		i, ok := locate(bins, cfg, v)
		if ok {
			bins[i].Count++
		}
	}

	return bins, nil
}

// locate returns the bin whose reported [Start, End) holds v. The estimate
// from the step can be off by one through rounding, so it is checked against
// the edges themselves.
func locate(bins []Bin, cfg Config, v float64) (int, bool) {
	if math.IsNaN(v) || v < bins[0].Start || v >= bins[len(bins)-1].End {
		return 0, false
	}

	i := min(max(int((v-cfg.Start)/cfg.Step), 0), len(bins)-1)

	for i > 0 && v < bins[i].Start {
		i--
	}

	for i < len(bins)-1 && v >= bins[i].End {
		i++
	}

	return i, v >= bins[i].Start && v < bins[i].End
}

// Classify returns the band of a bin starting at start.
func Classify(start, step, mean, stdDev float64) Band {
	within := func(lo, hi float64) bool { return start >= lo && start <= hi }

	switch {
	case within(mean, mean+step):
		return BandMean
	case within(mean-3*stdDev, mean-2*stdDev) || within(mean+2*stdDev, mean+3*stdDev):
		return BandThreeSigma
	case within(mean-2*stdDev, mean-stdDev) || within(mean+stdDev, mean+2*stdDev):
		return BandTwoSigma
	case start >= mean-stdDev && start < mean+stdDev:
		return BandOneSigma
	default:
		return BandOutside
	}
}

// Total returns the number of values counted across bins.
func Total(bins []Bin) int {
	total := 0
	for _, b := range bins {
		total += b.Count
	}

	return total
}
