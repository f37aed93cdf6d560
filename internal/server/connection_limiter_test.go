package server

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionLimiter_AcquireRelease(t *testing.T) {
	l := NewConnectionLimiter(2)

	assert.True(t, l.Acquire())
	assert.True(t, l.Acquire())
	assert.False(t, l.Acquire(), "third acquire must fail at capacity 2")
	assert.Equal(t, int64(2), l.Current())

	l.Release()
	assert.True(t, l.Acquire())
	assert.Equal(t, int64(2), l.Current())
	assert.Equal(t, int64(2), l.Max())
}

func TestConnectionLimiter_ConcurrentAcquires(t *testing.T) {
	const capacity = 50
	l := NewConnectionLimiter(capacity)

	var wg sync.WaitGroup
	acquired := make(chan bool, 200)

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acquired <- l.Acquire()
		}()
	}
	wg.Wait()
	close(acquired)

	succeeded := 0
	for ok := range acquired {
		if ok {
			succeeded++
		}
	}
	assert.Equal(t, capacity, succeeded)
	assert.Equal(t, int64(capacity), l.Current())
}
