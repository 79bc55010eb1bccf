package observability

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpStats_RecordAndCount(t *testing.T) {
	stats := NewOpStats()

	stats.Record("Plant", OpCreate)
	stats.Record("Plant", OpCreate)
	stats.Record("Plant", OpRead)
	stats.Record("Cost", OpDelete)

	assert.Equal(t, int64(2), stats.Count("Plant", OpCreate))
	assert.Equal(t, int64(1), stats.Count("Plant", OpRead))
	assert.Equal(t, int64(0), stats.Count("Plant", OpDelete))
	assert.Equal(t, int64(1), stats.Count("Cost", OpDelete))
	assert.Equal(t, int64(0), stats.Count("Nope", OpCreate))
}

func TestOpStats_SnapshotSortedAndDetached(t *testing.T) {
	stats := NewOpStats()
	stats.Record("Plant", OpCreate)
	stats.Record("Cost", OpRead)

	snap := stats.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "Cost", snap[0].Collection)
	assert.Equal(t, "Plant", snap[1].Collection)

	// Mutating the snapshot does not leak back into the counters.
	snap[1].Ops[OpCreate] = 99
	assert.Equal(t, int64(1), stats.Count("Plant", OpCreate))
}

func TestOpStats_Reset(t *testing.T) {
	stats := NewOpStats()
	stats.Record("Plant", OpCreate)

	stats.Reset()
	assert.Empty(t, stats.Snapshot())
	assert.Equal(t, int64(0), stats.Count("Plant", OpCreate))
}

func TestOpStats_ConcurrentRecord(t *testing.T) {
	stats := NewOpStats()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				stats.Record("Plant", OpRead)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), stats.Count("Plant", OpRead))
}
