package keypool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transcribee/transcribe-be/internal/transcriber/domain"
)

func TestNew(t *testing.T) {
	t.Run("empty key set fails fast", func(t *testing.T) {
		pool, err := New(nil)
		require.ErrorIs(t, err, domain.ErrNoAPIKeys)
		assert.Nil(t, pool)
	})

	t.Run("valid key set", func(t *testing.T) {
		pool, err := New([]string{"k1", "k2", "k3"})
		require.NoError(t, err)
		assert.Equal(t, 3, pool.Size())
	})
}

func TestAcquireFairness(t *testing.T) {
	pool, err := New([]string{"k1", "k2", "k3"})
	require.NoError(t, err)

	counts := map[string]int{}
	for i := 0; i < 10; i++ {
		counts[pool.Acquire()]++
	}

	// 10 acquisitions over 3 keys: no key may lead another by more than 1
	min, max := counts["k1"], counts["k1"]
	for _, c := range counts {
		if c < min {
			min = c
		}
		if c > max {
			max = c
		}
	}
	assert.LessOrEqual(t, max-min, 1)
}

func TestAcquireTieBreak(t *testing.T) {
	pool, err := New([]string{"k1", "k2", "k3"})
	require.NoError(t, err)

	// All counts are zero, so ties must resolve in construction order
	assert.Equal(t, "k1", pool.Acquire())
	assert.Equal(t, "k2", pool.Acquire())
	assert.Equal(t, "k3", pool.Acquire())
	assert.Equal(t, "k1", pool.Acquire())
}

func TestAcquireExcluding(t *testing.T) {
	t.Run("excluded key is skipped", func(t *testing.T) {
		pool, err := New([]string{"k1", "k2"})
		require.NoError(t, err)

		key, ok := pool.AcquireExcluding("k1")
		require.True(t, ok)
		assert.Equal(t, "k2", key)
	})

	t.Run("single-key pool has no alternative", func(t *testing.T) {
		pool, err := New([]string{"only"})
		require.NoError(t, err)

		key, ok := pool.AcquireExcluding("only")
		assert.False(t, ok)
		assert.Empty(t, key)
	})

	t.Run("least used wins within the restricted set", func(t *testing.T) {
		pool, err := New([]string{"k1", "k2", "k3"})
		require.NoError(t, err)

		// Push k2's count above k3's
		assert.Equal(t, "k1", pool.Acquire())
		assert.Equal(t, "k2", pool.Acquire())

		key, ok := pool.AcquireExcluding("k1")
		require.True(t, ok)
		assert.Equal(t, "k3", key)
	})
}

func TestAcquireConcurrent(t *testing.T) {
	keys := []string{"k1", "k2", "k3", "k4"}
	pool, err := New(keys)
	require.NoError(t, err)

	const callers = 8
	const perCaller = 25 // 200 total acquisitions over 4 keys

	results := make(chan string, callers*perCaller)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perCaller; j++ {
				results <- pool.Acquire()
			}
		}()
	}
	wg.Wait()
	close(results)

	counts := map[string]int{}
	for key := range results {
		counts[key]++
	}

	// Each key acquired exactly total/len(keys) times proves the
	// find-minimum-and-increment stayed atomic under contention
	for _, k := range keys {
		assert.Equal(t, callers*perCaller/len(keys), counts[k], "key %s", k)
	}
}
