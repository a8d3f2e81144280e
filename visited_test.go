package fastgrep

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisitedSetTryMarkFirstTimeSucceeds(t *testing.T) {
	vs := newVisitedSet()
	pair := DeviceInodePair{Dev: 1, Ino: 42}

	assert.True(t, vs.TryMark(pair))
	assert.False(t, vs.TryMark(pair))
	assert.Equal(t, 1, vs.Len())
}

func TestVisitedSetDistinctPairsDoNotCollide(t *testing.T) {
	vs := newVisitedSet()
	for i := 0; i < 500; i++ {
		assert.True(t, vs.TryMark(DeviceInodePair{Dev: 1, Ino: uint64(i)}))
	}
	assert.Equal(t, 500, vs.Len())
}

func TestVisitedSetConcurrentMarkIsExclusive(t *testing.T) {
	vs := newVisitedSet()
	pair := DeviceInodePair{Dev: 7, Ino: 7}

	const goroutines = 64
	var wg sync.WaitGroup
	successes := make([]bool, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			successes[idx] = vs.TryMark(pair)
		}(i)
	}
	wg.Wait()

	count := 0
	for _, ok := range successes {
		if ok {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, vs.Len())
}
