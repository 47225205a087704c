package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLrukReplacer(t *testing.T) {
	t.Run("recording an access does not make a frame evictable", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		replacer.recordAccess(1)
		assert.Equal(t, 0, replacer.size())

		_, ok := replacer.evict()
		assert.False(t, ok)
	})

	t.Run("setEvictable toggles size and is idempotent", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		replacer.recordAccess(1)
		replacer.setEvictable(1, true)
		assert.Equal(t, 1, replacer.size())

		replacer.setEvictable(1, true)
		assert.Equal(t, 1, replacer.size())

		replacer.setEvictable(1, false)
		assert.Equal(t, 0, replacer.size())
	})

	t.Run("setEvictable out of range panics", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)
		assert.Panics(t, func() {
			replacer.setEvictable(5, true)
		})
	})

	t.Run("remove errors on a non-evictable frame, succeeds on an evictable one", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		replacer.recordAccess(1)
		err := replacer.remove(1)
		assert.Error(t, err)

		replacer.setEvictable(1, true)
		err = replacer.remove(1)
		assert.NoError(t, err)
		assert.Equal(t, 0, replacer.size())
	})

	t.Run("remove on an absent frame is a no-op", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)
		assert.NoError(t, replacer.remove(99))
	})
}

func TestEviction(t *testing.T) {
	t.Run("returns false when nothing is evictable", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 5)

		replacer.recordAccess(1)
		replacer.recordAccess(2)
		replacer.recordAccess(3)

		_, ok := replacer.evict()
		assert.False(t, ok)
	})

	t.Run("prefers to evict a frame with fewer than k accesses", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		replacer.recordAccess(1)
		replacer.recordAccess(2)
		replacer.recordAccess(3)

		// give 1 and 3 their k-th access; 2 stays below k
		replacer.recordAccess(1)
		replacer.recordAccess(3)

		replacer.setEvictable(1, true)
		replacer.setEvictable(2, true)
		replacer.setEvictable(3, true)

		frameId, ok := replacer.evict()
		assert.True(t, ok)
		assert.Equal(t, 2, frameId)
	})

	t.Run("among frames below k, evicts the oldest by first access (FIFO)", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		replacer.recordAccess(1)
		replacer.recordAccess(2)
		replacer.recordAccess(3)

		replacer.setEvictable(1, true)
		replacer.setEvictable(2, true)
		replacer.setEvictable(3, true)
		assert.Equal(t, 3, replacer.size())

		frameId, ok := replacer.evict()
		assert.True(t, ok)
		assert.Equal(t, 1, frameId)
	})

	t.Run("among frames with k accesses, evicts the one with the oldest last access", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		replacer.recordAccess(1)
		replacer.recordAccess(1)

		replacer.recordAccess(2)
		replacer.recordAccess(2)

		replacer.recordAccess(3)
		replacer.recordAccess(3)

		replacer.setEvictable(1, true)
		replacer.setEvictable(2, true)
		replacer.setEvictable(3, true)
		assert.Equal(t, 3, replacer.size())

		frameId, ok := replacer.evict()
		assert.True(t, ok)
		assert.Equal(t, 1, frameId)
	})

	t.Run("re-accessing a cached frame moves it to the back of the eviction order", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		replacer.recordAccess(1)
		replacer.recordAccess(1)
		replacer.recordAccess(2)
		replacer.recordAccess(2)

		replacer.setEvictable(1, true)
		replacer.setEvictable(2, true)

		// re-touch 1 so that 2 becomes the oldest cache entry
		replacer.recordAccess(1)

		frameId, ok := replacer.evict()
		assert.True(t, ok)
		assert.Equal(t, 2, frameId)
	})

	t.Run("eviction removes both the entry and any further tracking", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		replacer.recordAccess(1)
		replacer.setEvictable(1, true)

		_, ok := replacer.evict()
		assert.True(t, ok)
		assert.Equal(t, 0, replacer.size())

		_, stillTracked := replacer.nodeStore[1]
		assert.False(t, stillTracked)
	})
}
