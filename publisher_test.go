package statkit

import (
	"sync"
	"testing"

	"github.com/longbridgeapp/assert"
)

func TestPublisher_OnlyLatestGenerationPublishes(t *testing.T) {
	pub := newPublisher("initial")

	first := pub.begin()
	second := pub.begin()

	assert.False(t, pub.publish(first, "stale"))
	assert.Equal(t, "initial", pub.load())

	assert.True(t, pub.publish(second, "fresh"))
	assert.Equal(t, "fresh", pub.load())
	assert.Equal(t, second, pub.latest())
}

func TestPublisher_SubscribersObserveInOrder(t *testing.T) {
	pub := newPublisher(0)

	var (
		mu   sync.Mutex
		seen []int
	)

	unsubscribe := pub.subscribe(func(v int) {
		mu.Lock()
		defer mu.Unlock()

		seen = append(seen, v)
	})

	for i := 1; i <= 5; i++ {
		assert.True(t, pub.publish(pub.begin(), i))
	}

	unsubscribe()
	unsubscribe()

	assert.True(t, pub.publish(pub.begin(), 6))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, seen)
	assert.Equal(t, 6, pub.load())
}
