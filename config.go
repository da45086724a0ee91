package statkit

import (
	"math/rand/v2"
	"runtime"

	"go.uber.org/zap"

	"github.com/hyp3rd/statkit/pkg/bootstrap"
)

const (
	// DefaultResamples is the default number of bootstrap resamples (n).
	DefaultResamples = 250
	// DefaultSampleSize is the default number of draws per resample (k).
	DefaultSampleSize = 50

	// seedMix decorrelates the two PCG words derived from a single seed.
	seedMix = 0x9e3779b97f4a7c15
)

// Config is a struct that wraps the configuration options used to set up `StatKit`.
type Config struct {
	// Options is a slice of options that can be used to configure `StatKit`.
	Options []Option
}

// NewConfig returns a new `Config` struct with default values:
//   - `WithWorkers(runtime.GOMAXPROCS(0))`
//   - `WithBootstrapParameters(DefaultResamples, DefaultSampleSize)`
//
// Options appended to the returned config override the defaults.
func NewConfig() *Config {
	return &Config{
		Options: []Option{
			WithWorkers(runtime.GOMAXPROCS(0)),
			WithBootstrapParameters(DefaultResamples, DefaultSampleSize),
		},
	}
}

// Option is a function type that can be used to configure the `StatKit` struct.
type Option func(*StatKit)

// ApplyOptions applies the given options to the given kit.
func ApplyOptions(kit *StatKit, options ...Option) {
	for _, option := range options {
		option(kit)
	}
}

// WithWorkers sets the number of goroutines resampling in parallel.
func WithWorkers(workers int) Option {
	return func(kit *StatKit) {
		kit.workers = workers
	}
}

// WithBootstrapParameters sets the initial resample count n and sample size k.
func WithBootstrapParameters(n, k int) Option {
	return func(kit *StatKit) {
		kit.params = bootstrap.Params{N: n, K: k}
	}
}

// WithSeed makes the bootstrap simulation reproducible.
func WithSeed(seed uint64) Option {
	return func(kit *StatKit) {
		kit.rng = rand.New(rand.NewPCG(seed, seed^seedMix))
	}
}

// WithRandSource sets the generator the bootstrap seeds are drawn from.
func WithRandSource(src rand.Source) Option {
	return func(kit *StatKit) {
		kit.rng = rand.New(src)
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(kit *StatKit) {
		if logger != nil {
			kit.logger = logger
		}
	}
}

// WithManagementHTTP enables the management HTTP server on addr.
func WithManagementHTTP(addr string, opts ...ManagementHTTPOption) Option {
	return func(kit *StatKit) {
		kit.mgmtAddr = addr
		kit.mgmtOpts = opts
	}
}
