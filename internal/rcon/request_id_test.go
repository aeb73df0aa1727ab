package rcon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDsStartAtMinInt32(t *testing.T) {
	ids := NewRequestIDProvider()
	assert.Equal(t, int32(math.MinInt32+1), ids.Next())
	assert.Equal(t, int32(math.MinInt32+2), ids.Next())
}

func TestRequestIDsSkipInvalidPasswordSentinel(t *testing.T) {
	ids := &RequestIDProvider{counter: -3}
	assert.Equal(t, int32(-2), ids.Next())
	// -1 is reserved for the invalid-password signal.
	assert.Equal(t, int32(0), ids.Next())
	assert.Equal(t, int32(1), ids.Next())
}

func TestRequestIDsAreUniqueUnderConcurrency(t *testing.T) {
	ids := NewRequestIDProvider()
	const n = 1000

	results := make(chan int32, n)
	for i := 0; i < n; i++ {
		go func() { results <- ids.Next() }()
	}

	seen := make(map[int32]bool, n)
	for i := 0; i < n; i++ {
		id := <-results
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
}
