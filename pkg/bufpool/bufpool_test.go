package bufpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferAllocation(t *testing.T) {
	t.Run("AllocatesSmallBuffer", func(t *testing.T) {
		buf := Get(40)
		defer Put(buf)

		assert.Equal(t, 40, len(buf))
		assert.Equal(t, SmallSize, cap(buf))
	})

	t.Run("AllocatesFrameBuffer", func(t *testing.T) {
		buf := Get(1064)
		defer Put(buf)

		assert.Equal(t, 1064, len(buf))
		assert.Equal(t, FrameSize, cap(buf))
	})

	t.Run("AllocatesOversizedBuffer", func(t *testing.T) {
		buf := Get(4 * FrameSize)
		defer Put(buf)

		assert.Equal(t, 4*FrameSize, len(buf))
		assert.Equal(t, len(buf), cap(buf))
	})

	t.Run("AllocatesZeroSizeBuffer", func(t *testing.T) {
		buf := Get(0)
		defer Put(buf)

		assert.NotNil(t, buf)
		assert.Equal(t, SmallSize, cap(buf))
	})

	t.Run("ClassBoundaries", func(t *testing.T) {
		small := Get(SmallSize)
		defer Put(small)
		assert.Equal(t, SmallSize, cap(small))

		frame := Get(SmallSize + 1)
		defer Put(frame)
		assert.Equal(t, FrameSize, cap(frame))
	})
}

func TestBufferPutAndReuse(t *testing.T) {
	t.Run("HandlesNilPut", func(t *testing.T) {
		require.NotPanics(t, func() {
			Put(nil)
		})
	})

	t.Run("HandlesForeignBufferPut", func(t *testing.T) {
		// A buffer whose capacity matches no class must not poison a
		// class with undersized slices.
		Put(make([]byte, 100))

		buf := Get(40)
		defer Put(buf)
		assert.Equal(t, SmallSize, cap(buf))
	})

	t.Run("GetAfterPutReturnsFullClass", func(t *testing.T) {
		p := NewPool()

		buf := p.Get(10)
		require.Equal(t, 10, len(buf))
		p.Put(buf)

		again := p.Get(SmallSize)
		assert.Equal(t, SmallSize, len(again))
		p.Put(again)
	})

	t.Run("DoesNotPoolOversizedBuffers", func(t *testing.T) {
		buf := Get(4 * FrameSize)
		Put(buf)

		buf2 := Get(4 * FrameSize)
		defer Put(buf2)

		assert.Equal(t, len(buf2), cap(buf2))
	})
}

func TestConcurrentAccess(t *testing.T) {
	const goroutines = 16
	const iterations = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				size := (seed*iterations + i) % FrameSize
				buf := Get(size)
				for j := range buf {
					buf[j] = byte(seed)
				}
				Put(buf)
			}
		}(g)
	}
	wg.Wait()
}
