package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerialisesSameKey(t *testing.T) {
	k := newKeyedMutex()
	ctx := context.Background()

	var mu sync.Mutex
	inside, maxInside := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := k.Lock(ctx, "a")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			maxInside = max(maxInside, inside)
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxInside)
	assert.Empty(t, k.locks, "idle keys are dropped")
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	k := newKeyedMutex()
	ctx := context.Background()

	releaseA, err := k.Lock(ctx, "a")
	require.NoError(t, err)
	defer releaseA()

	done := make(chan struct{})
	go func() {
		releaseB, err := k.Lock(ctx, "b")
		if err == nil {
			releaseB()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on another key blocked")
	}
}

func TestKeyedMutex_ContextCancel(t *testing.T) {
	k := newKeyedMutex()
	release, err := k.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = k.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)

	release()
	assert.Empty(t, k.locks)
}
