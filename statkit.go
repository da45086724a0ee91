// Package statkit loads a numeric dataset and describes its distribution:
// mean, mode, median, variance and standard deviation, plus a bootstrap
// simulation of the Central Limit Theorem.
//
// A StatKit owns the current Dataset, a statistics Engine and a bootstrap
// Sampler. Loading a dataset recomputes both; changing the bootstrap
// parameters recomputes the sampler. Each component publishes immutable
// snapshots, and only the most recently started computation is ever observed.
package statkit

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/hyp3rd/ewrap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyp3rd/statkit/internal/libs/serializer"
	"github.com/hyp3rd/statkit/internal/sentinel"
	"github.com/hyp3rd/statkit/pkg/bootstrap"
	"github.com/hyp3rd/statkit/pkg/histogram"
)

// SnapshotKind names a published snapshot for export.
type SnapshotKind string

const (
	// SnapshotStatistics is the descriptive statistics of the dataset.
	SnapshotStatistics SnapshotKind = "statistics"
	// SnapshotDistribution is the bootstrap sample-means distribution.
	SnapshotDistribution SnapshotKind = "distribution"
	// SnapshotMeans is the descriptive statistics of the sample means.
	SnapshotMeans SnapshotKind = "means"
)

// StatKit ties a dataset to its statistics engine and bootstrap sampler.
type StatKit struct {
	logger  *zap.Logger
	workers int
	params  bootstrap.Params
	rng     *rand.Rand

	mgmtAddr string
	mgmtOpts []ManagementHTTPOption
	mgmtHTTP *ManagementHTTPServer

	pool     *WorkerPool
	engine   *Engine
	sampler  *Sampler
	registry *serializer.Registry

	mu      sync.Mutex // assigns dataset versions
	version uint64
	dataset Dataset

	stopOnce sync.Once
}

// New creates a StatKit configured by cfg. A nil cfg uses NewConfig.
func New(ctx context.Context, cfg *Config) (*StatKit, error) {
	if cfg == nil {
		cfg = NewConfig()
	}

	kit := &StatKit{
		logger:  zap.NewNop(),
		workers: 1,
		params:  bootstrap.Params{N: DefaultResamples, K: DefaultSampleSize},
	}

	ApplyOptions(kit, cfg.Options...)

	err := kit.params.CheckLimits()
	if err != nil {
		return nil, err
	}

	pool, err := NewWorkerPool(kit.workers)
	if err != nil {
		return nil, err
	}

	kit.pool = pool
	kit.engine = newEngine("statistics", kit.logger)
	kit.sampler = NewSampler(pool, kit.params, kit.rng, kit.logger)
	kit.registry = serializer.NewSerializerRegistry()
	kit.dataset = NewDataset(nil, 0)

	if kit.mgmtAddr != "" {
		kit.mgmtHTTP = NewManagementHTTPServer(kit.mgmtAddr, kit.mgmtOpts...)

		err = kit.mgmtHTTP.Start(ctx, kit)
		if err != nil {
			pool.Shutdown()

			return nil, err
		}
	}

	kit.logger.Debug("statkit started",
		zap.Int("workers", kit.workers), zap.Int("n", kit.params.N), zap.Int("k", kit.params.K))

	return kit, nil
}

// NewWithDefaults creates a StatKit with the default configuration.
func NewWithDefaults(ctx context.Context) (*StatKit, error) {
	return New(ctx, NewConfig())
}

// Load replaces the dataset with a copy of values and recomputes the
// statistics and the bootstrap distribution in parallel.
func (kit *StatKit) Load(ctx context.Context, values []float64) error {
	kit.mu.Lock()
	kit.version++
	ds := NewDataset(values, kit.version)
	kit.dataset = ds
	kit.mu.Unlock()

	kit.logger.Debug("dataset loaded", zap.Uint64("version", ds.Version()), zap.Int("len", ds.Len()))

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		_, _, err := kit.engine.Replace(gctx, ds)

		return err
	})
	group.Go(func() error {
		_, _, err := kit.sampler.Replace(gctx, ds)

		return err
	})

	return group.Wait()
}

// Dataset returns the most recently loaded dataset.
func (kit *StatKit) Dataset() Dataset {
	kit.mu.Lock()
	defer kit.mu.Unlock()

	return kit.dataset
}

// Statistics returns the current descriptive statistics.
func (kit *StatKit) Statistics() Statistics {
	return kit.engine.Current()
}

// Distribution returns the current bootstrap distribution.
func (kit *StatKit) Distribution() Distribution {
	return kit.sampler.Current()
}

// MeansStatistics returns the descriptive statistics of the current sample means.
func (kit *StatKit) MeansStatistics() Statistics {
	return kit.sampler.MeansStatistics()
}

// Parameters returns the bootstrap parameters.
func (kit *StatKit) Parameters() bootstrap.Params {
	return kit.sampler.Parameters()
}

// UpdateParameters sets the bootstrap parameters and recomputes the distribution.
// The flag reports whether this call's result was published.
func (kit *StatKit) UpdateParameters(ctx context.Context, n, k int) (Distribution, bool, error) {
	return kit.sampler.UpdateParameters(ctx, n, k)
}

// Recompute reruns the bootstrap simulation with fresh draws.
func (kit *StatKit) Recompute(ctx context.Context) (Distribution, bool, error) {
	return kit.sampler.Run(ctx)
}

// Histogram buckets the dataset of the current statistics snapshot.
func (kit *StatKit) Histogram(_ context.Context, cfg histogram.Config) ([]histogram.Bin, error) {
	stats, ds := kit.engine.Published()

	return histogram.Compute(ds.view(), cfg, stats.Snapshot.Mean, stats.Snapshot.StandardDeviation)
}

// MeansHistogram buckets the current sample means.
func (kit *StatKit) MeansHistogram(_ context.Context, cfg histogram.Config) ([]histogram.Bin, error) {
	stats, ds := kit.sampler.Means().Published()

	return histogram.Compute(ds.view(), cfg, stats.Snapshot.Mean, stats.Snapshot.StandardDeviation)
}

// HistogramDefaults returns a bin configuration spanning the data of kind,
// which is SnapshotStatistics or SnapshotMeans.
func (kit *StatKit) HistogramDefaults(kind SnapshotKind) histogram.Config {
	if kind == SnapshotMeans {
		_, ds := kit.sampler.Means().Published()

		return histogram.DefaultConfig(ds.view())
	}

	_, ds := kit.engine.Published()

	return histogram.DefaultConfig(ds.view())
}

// OnStatistics registers fn to observe every published statistics snapshot.
func (kit *StatKit) OnStatistics(fn func(Statistics)) (unsubscribe func()) {
	return kit.engine.Subscribe(fn)
}

// OnDistribution registers fn to observe every published distribution.
func (kit *StatKit) OnDistribution(fn func(Distribution)) (unsubscribe func()) {
	return kit.sampler.Subscribe(fn)
}

// Export serializes the current snapshot of kind. It returns the encoded
// bytes and their content type.
func (kit *StatKit) Export(kind SnapshotKind, format string) ([]byte, string, error) {
	codec, err := kit.registry.New(format)
	if err != nil {
		return nil, "", err
	}

	var value any

	switch kind {
	case SnapshotStatistics:
		value = kit.Statistics()
	case SnapshotDistribution:
		value = kit.Distribution()
	case SnapshotMeans:
		value = kit.MeansStatistics()
	default:
		return nil, "", ewrap.Wrap(sentinel.ErrUnknownSnapshot, string(kind))
	}

	data, err := codec.Marshal(value)
	if err != nil {
		return nil, "", ewrap.Wrapf(err, "export %s", kind)
	}

	return data, codec.ContentType(), nil
}

// ResizeWorkers changes the number of resampling workers.
func (kit *StatKit) ResizeWorkers(workers int) error {
	return kit.pool.Resize(workers)
}

// ManagementHTTPAddress returns the bound management address, or "" when disabled.
func (kit *StatKit) ManagementHTTPAddress() string {
	if kit.mgmtHTTP == nil {
		return ""
	}

	return kit.mgmtHTTP.Address()
}

// Stop shuts down the management server and the worker pool.
func (kit *StatKit) Stop(ctx context.Context) error {
	var err error

	kit.stopOnce.Do(func() {
		if kit.mgmtHTTP != nil {
			err = kit.mgmtHTTP.Shutdown(ctx)
		}

		kit.pool.Shutdown()
		kit.logger.Debug("statkit stopped")
	})

	return err
}
