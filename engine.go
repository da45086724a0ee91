package statkit

import (
	"context"
	"sync"

	"github.com/hyp3rd/ewrap"
	"go.uber.org/zap"

	"github.com/hyp3rd/statkit/pkg/descriptive"
)

// Statistics is a published descriptive-statistics snapshot together with the
// identity of the dataset version it was computed from.
type Statistics struct {
	Snapshot    descriptive.Snapshot `json:"snapshot"`
	Version     uint64               `json:"version"`
	Fingerprint uint64               `json:"fingerprint"`
	Generation  uint64               `json:"generation"`
}

// engineState pairs a snapshot with its dataset so both are read in one load.
type engineState struct {
	stats   Statistics
	dataset Dataset
}

// Engine recomputes descriptive statistics whenever its dataset is replaced
// and publishes them as one atomic snapshot.
type Engine struct {
	name   string
	logger *zap.Logger

	mu      sync.Mutex // orders dataset replacement with generation start
	dataset Dataset

	pub *publisher[engineState]
}

// NewEngine returns an engine holding the empty dataset and the neutral snapshot.
func NewEngine(logger *zap.Logger) *Engine {
	return newEngine("statistics", logger)
}

func newEngine(name string, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	empty := NewDataset(nil, 0)

	return &Engine{
		name:    name,
		logger:  logger.Named(name),
		dataset: empty,
		pub: newPublisher(engineState{
			stats:   Statistics{Snapshot: descriptive.Neutral(), Fingerprint: empty.Fingerprint()},
			dataset: empty,
		}),
	}
}

// Replace swaps in ds and recomputes. A dataset older than the engine's
// current one is ignored. The returned flag reports whether the computed
// snapshot was published; it is false when a newer Replace started meanwhile.
func (e *Engine) Replace(ctx context.Context, ds Dataset) (Statistics, bool, error) {
	e.mu.Lock()

	if ds.Version() < e.dataset.Version() {
		e.mu.Unlock()
		e.logger.Debug("dataset outranked on arrival",
			zap.Uint64("version", ds.Version()), zap.Uint64("current", e.dataset.Version()))

		return Statistics{}, false, nil
	}

	e.dataset = ds
	gen := e.pub.begin()
	e.mu.Unlock()

	snap, err := descriptive.Compute(ctx, ds.view())
	if err != nil {
		return Statistics{}, false, ewrap.Wrap(err, e.name)
	}

	stats := Statistics{
		Snapshot:    snap,
		Version:     ds.Version(),
		Fingerprint: ds.Fingerprint(),
		Generation:  gen,
	}

	published := e.pub.publish(gen, engineState{stats: stats, dataset: ds})
	if !published {
		e.logger.Debug("statistics superseded", zap.Uint64("generation", gen))

		return stats, false, nil
	}

	e.logger.Debug("statistics published",
		zap.Uint64("generation", gen), zap.Uint64("version", ds.Version()), zap.Int("len", ds.Len()))

	return stats, true, nil
}

// Current returns the most recently published snapshot.
func (e *Engine) Current() Statistics {
	return e.pub.load().stats
}

// Published returns the current snapshot and the dataset it describes.
func (e *Engine) Published() (Statistics, Dataset) {
	state := e.pub.load()

	return state.stats, state.dataset
}

// Subscribe registers fn to observe every publication.
// fn runs synchronously after the swap, in publication order.
func (e *Engine) Subscribe(fn func(Statistics)) (unsubscribe func()) {
	return e.pub.subscribe(func(state engineState) { fn(state.stats) })
}
