package statkit

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/hyp3rd/ewrap"
	"go.uber.org/zap"

	"github.com/hyp3rd/statkit/pkg/bootstrap"
)

// Distribution is a published sample-means distribution together with the
// parameters and dataset version it was computed from.
type Distribution struct {
	Result      bootstrap.Distribution `json:"result"`
	Params      bootstrap.Params       `json:"params"`
	Version     uint64                 `json:"version"`
	Fingerprint uint64                 `json:"fingerprint"`
	Generation  uint64                 `json:"generation"`
}

// Sampler runs the bootstrap simulation of the Central Limit Theorem.
// Each run resamples the dataset N times in parallel on a worker pool and
// aggregates the N sample means. Only the most recently started run publishes.
type Sampler struct {
	logger *zap.Logger
	pool   *WorkerPool

	mu       sync.Mutex // guards everything below
	rng      *rand.Rand
	params   bootstrap.Params
	dataset  Dataset
	inflight inflight

	pub   *publisher[Distribution]
	means *Engine
}

type inflight struct {
	gen    uint64
	cancel context.CancelFunc
}

// NewSampler returns a sampler that schedules its resamples on pool and
// derives their random generators from rng.
func NewSampler(pool *WorkerPool, params bootstrap.Params, rng *rand.Rand, logger *zap.Logger) *Sampler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	empty := NewDataset(nil, 0)

	s := &Sampler{
		logger:  logger.Named("bootstrap"),
		pool:    pool,
		rng:     rng,
		params:  params,
		dataset: empty,
		pub: newPublisher(Distribution{
			Result:      bootstrap.Empty(),
			Params:      params,
			Fingerprint: empty.Fingerprint(),
		}),
		means: newEngine("means", logger),
	}

	// subscribers run in publication order, so the means engine follows the published distribution
	s.pub.subscribe(func(d Distribution) {
		_, _, err := s.means.Replace(context.Background(), NewDataset(d.Result.SampleMeans, d.Generation))
		if err != nil {
			s.logger.Warn("means statistics failed", zap.Error(err))
		}
	})

	return s
}

// Run recomputes the distribution with the current dataset and parameters.
func (s *Sampler) Run(ctx context.Context) (Distribution, bool, error) {
	return s.run(ctx, nil)
}

// UpdateParameters sets N and K and recomputes. Parameters beyond
// bootstrap.MaxResamples or bootstrap.MaxSampleSize are rejected and leave the
// current ones in place.
func (s *Sampler) UpdateParameters(ctx context.Context, n, k int) (Distribution, bool, error) {
	params := bootstrap.Params{N: n, K: k}

	err := params.CheckLimits()
	if err != nil {
		return Distribution{}, false, err
	}

	return s.run(ctx, func() bool {
		s.params = params

		return true
	})
}

// Replace swaps in ds and recomputes. A dataset older than the current one is ignored.
func (s *Sampler) Replace(ctx context.Context, ds Dataset) (Distribution, bool, error) {
	return s.run(ctx, func() bool {
		if ds.Version() < s.dataset.Version() {
			return false
		}

		s.dataset = ds

		return true
	})
}

// Parameters returns the configured parameters.
func (s *Sampler) Parameters() bootstrap.Params {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.params
}

// Current returns the most recently published distribution.
func (s *Sampler) Current() Distribution {
	return s.pub.load()
}

// Subscribe registers fn to observe every publication.
// fn runs synchronously after the swap, in publication order.
func (s *Sampler) Subscribe(fn func(Distribution)) (unsubscribe func()) {
	return s.pub.subscribe(fn)
}

// Means returns the engine describing the published sample means.
func (s *Sampler) Means() *Engine {
	return s.means
}

// generation is the input of one run.
type generation struct {
	gen    uint64
	params bootstrap.Params
	ds     Dataset
	seeds  [][2]uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// begin captures the inputs of a new generation under the lock.
// mutate, when set, updates the inputs first; returning false drops the run.
func (s *Sampler) begin(ctx context.Context, mutate func() bool) (generation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mutate != nil && !mutate() {
		return generation{}, false, nil
	}

	err := s.params.CheckLimits()
	if err != nil {
		return generation{}, false, err
	}

	next := generation{gen: s.pub.begin(), params: s.params, ds: s.dataset}

	// cooperative cancellation of the run this one supersedes
	if s.inflight.cancel != nil {
		s.inflight.cancel()
	}

	next.ctx, next.cancel = context.WithCancel(ctx)
	s.inflight = inflight{gen: next.gen, cancel: next.cancel}

	if !next.ds.IsEmpty() && next.params.Valid() {
		next.seeds = bootstrap.Seeds(s.rng, next.params.N)
	}

	return next, true, nil
}

// run computes and publishes a new generation.
func (s *Sampler) run(ctx context.Context, mutate func() bool) (Distribution, bool, error) {
	next, ok, err := s.begin(ctx, mutate)
	if err != nil {
		return Distribution{}, false, err
	}

	if !ok {
		s.logger.Debug("dataset outranked on arrival")

		return Distribution{}, false, nil
	}

	gen, params, ds := next.gen, next.params, next.ds

	defer s.finish(gen, next.cancel)

	result, err := s.compute(next.ctx, ds, params, next.seeds)
	if err != nil {
		if s.pub.latest() != gen {
			s.logger.Debug("bootstrap run superseded", zap.Uint64("generation", gen))

			return Distribution{}, false, nil
		}

		return Distribution{}, false, ewrap.Wrap(err, "bootstrap")
	}

	dist := Distribution{
		Result:      result,
		Params:      params,
		Version:     ds.Version(),
		Fingerprint: ds.Fingerprint(),
		Generation:  gen,
	}

	if !s.pub.publish(gen, dist) {
		s.logger.Debug("bootstrap result superseded", zap.Uint64("generation", gen))

		return dist, false, nil
	}

	s.logger.Debug("bootstrap distribution published",
		zap.Uint64("generation", gen),
		zap.Int("n", params.N),
		zap.Int("k", params.K),
		zap.Float64("standard_error", result.StandardError))

	return dist, true, nil
}

// compute fans one job per seed out on the pool and aggregates after all returned.
func (s *Sampler) compute(ctx context.Context, ds Dataset, params bootstrap.Params, seeds [][2]uint64) (bootstrap.Distribution, error) {
	if len(seeds) == 0 {
		return bootstrap.Empty(), nil
	}

	data := ds.view()
	means := make([]float64, len(seeds))

	group := s.pool.Group(ctx)
	for i, seed := range seeds {
		// each job owns means[i] only
		group.Go(func() error {
			means[i] = bootstrap.SampleMean(bootstrap.NewRand(seed), data, params.K)

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return bootstrap.Distribution{}, err
	}

	return bootstrap.Aggregate(means, params.K), nil
}

func (s *Sampler) finish(gen uint64, cancel context.CancelFunc) {
	s.mu.Lock()
	if s.inflight.gen == gen {
		s.inflight = inflight{}
	}
	s.mu.Unlock()

	cancel()
}

// MeansStatistics returns the descriptive statistics of the published sample means.
func (s *Sampler) MeansStatistics() Statistics {
	return s.means.Current()
}
