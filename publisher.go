package statkit

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"
)

// publisher holds the current value of a component and hands out generations.
// Only the most recently begun generation may publish; the value is swapped
// as a single pointer so readers never see a partial update.
type publisher[T any] struct {
	current atomic.Pointer[T]
	started atomic.Uint64

	mu     sync.Mutex // guards subs and orders publications
	subs   map[uint64]func(T)
	nextID uint64

	// notifyMu keeps subscribers called in publication order.
	notifyMu sync.Mutex
}

func newPublisher[T any](initial T) *publisher[T] {
	p := &publisher[T]{subs: make(map[uint64]func(T))}
	p.current.Store(&initial)

	return p
}

// begin starts a new generation, outranking every earlier one.
func (p *publisher[T]) begin() uint64 {
	return p.started.Add(1)
}

// latest returns the most recently begun generation.
func (p *publisher[T]) latest() uint64 {
	return p.started.Load()
}

// load returns the current value.
func (p *publisher[T]) load() T {
	return *p.current.Load()
}

// publish stores value if gen is still the latest generation and notifies
// subscribers after the swap. It reports whether value was published.
// Subscribers must not publish on the same publisher.
func (p *publisher[T]) publish(gen uint64, value T) bool {
	p.mu.Lock()

	if gen != p.started.Load() {
		p.mu.Unlock()

		return false
	}

	p.current.Store(&value)

	subs := slices.Collect(maps.Values(p.subs))

	p.notifyMu.Lock()
	p.mu.Unlock()

	defer p.notifyMu.Unlock()

	for _, fn := range subs {
		fn(value)
	}

	return true
}

// subscribe registers fn to be called after each publication.
func (p *publisher[T]) subscribe(fn func(T)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.subs[id] = fn

	var once sync.Once

	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}
