package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_DenseMonotonic(t *testing.T) {
	base := Count()
	a := Next()
	b := Next()
	require.Equal(t, base, a, "identifiers should continue densely from Count")
	require.Equal(t, a+1, b, "identifiers should be monotonic")
	require.Equal(t, base+2, Count())
}

func TestRegistry_ConcurrentNext_NoDuplicates(t *testing.T) {
	const n = 256
	ids := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = Next()
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool, n)
	for _, id := range ids {
		require.False(t, seen[id], "identifier %d issued twice", id)
		seen[id] = true
	}
}
