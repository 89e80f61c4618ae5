package singleflight

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo(t *testing.T) {
	g := New[string]()

	val, err, shared := g.Do("key1", func() (string, error) {
		return "hello", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "hello", val)
	assert.False(t, shared)
	assert.Empty(t, g.m, "completed calls must not linger")
}

func TestDoError(t *testing.T) {
	g := New[string]()
	expectedErr := errors.New("test error")

	val, err, _ := g.Do("key1", func() (string, error) {
		return "", expectedErr
	})

	assert.ErrorIs(t, err, expectedErr)
	assert.Empty(t, val)
}

func waitForDups(t *testing.T, g *Group[string], key string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		g.mu.Lock()
		c, ok := g.m[key]
		dups := 0
		if ok {
			dups = c.dups
		}
		g.mu.Unlock()
		if dups >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d duplicate callers", n)
}

func TestDoDuplicateCalls(t *testing.T) {
	g := New[string]()

	var callCount atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	fn := func() (string, error) {
		callCount.Add(1)
		close(started)
		<-release
		return "result", nil
	}

	const numCalls = 10
	var wg sync.WaitGroup
	results := make([]string, numCalls)
	sharedFlags := make([]bool, numCalls)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _, sharedFlags[0] = g.Do("same-key", fn)
	}()
	<-started

	for i := 1; i < numCalls; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			results[index], _, sharedFlags[index] = g.Do("same-key", fn)
		}(i)
	}

	waitForDups(t, g, "same-key", numCalls-1)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), callCount.Load())
	for i := range results {
		assert.Equal(t, "result", results[i])
		assert.True(t, sharedFlags[i], "call %d should report a shared result", i)
	}
}

func TestDoDifferentKeys(t *testing.T) {
	g := New[int]()

	a, _, _ := g.Do("a", func() (int, error) { return 1, nil })
	b, _, _ := g.Do("b", func() (int, error) { return 2, nil })

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestForget(t *testing.T) {
	g := New[string]()
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_, _, _ = g.Do("key", func() (string, error) {
			close(started)
			<-release
			return "first", nil
		})
	}()
	<-started

	g.Forget("key")

	val, err, shared := g.Do("key", func() (string, error) {
		return "second", nil
	})
	close(release)

	require.NoError(t, err)
	assert.Equal(t, "second", val)
	assert.False(t, shared)
}
