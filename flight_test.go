package strata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlightGroupCoalesces(t *testing.T) {
	t.Parallel()

	g := newFlightGroup[string]()
	var calls atomic.Int64

	const n = 10
	results := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, ok, err := g.do(context.Background(), "k", func(context.Context) (string, bool, error) {
				calls.Add(1)
				time.Sleep(100 * time.Millisecond)
				return "value", true, nil
			})
			require.NoError(t, err)
			require.True(t, ok)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "value", r)
	}
	assert.Equal(t, 0, g.len())
}

func TestFlightGroupErrorSharedAndForgotten(t *testing.T) {
	t.Parallel()

	g := newFlightGroup[string]()
	boom := errors.New("boom")
	var calls atomic.Int64

	_, _, err := g.do(context.Background(), "k", func(context.Context) (string, bool, error) {
		calls.Add(1)
		return "", false, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, g.len())

	// The failed flight is gone; a new call starts a fresh fetch.
	v, ok, err := g.do(context.Background(), "k", func(context.Context) (string, bool, error) {
		calls.Add(1)
		return "second", true, nil
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", v)
	assert.Equal(t, int64(2), calls.Load())
}

func TestFlightGroupAwaiterCancelDoesNotStopFetch(t *testing.T) {
	t.Parallel()

	g := newFlightGroup[string]()
	fetchDone := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, _, err := g.do(ctx, "k", func(fctx context.Context) (string, bool, error) {
		defer close(fetchDone)
		select {
		case <-time.After(150 * time.Millisecond):
			return "late", true, nil
		case <-fctx.Done():
			return "", false, fctx.Err()
		}
	})
	require.ErrorIs(t, err, context.Canceled)

	// The shared fetch keeps running on its own context.
	select {
	case <-fetchDone:
	case <-time.After(time.Second):
		t.Fatal("fetch did not complete after awaiter cancelled")
	}
}

func TestFlightGroupCancelAll(t *testing.T) {
	t.Parallel()

	g := newFlightGroup[string]()

	errs := make(chan error, 2)
	for _, key := range []string{"a", "b"} {
		go func(key string) {
			_, _, err := g.do(context.Background(), key, func(fctx context.Context) (string, bool, error) {
				select {
				case <-time.After(500 * time.Millisecond):
					return "slow", true, nil
				case <-fctx.Done():
					return "", false, fctx.Err()
				}
			})
			errs <- err
		}(key)
	}

	require.Eventually(t, func() bool { return g.len() == 2 }, time.Second, 5*time.Millisecond)

	g.cancelAll()
	assert.Equal(t, 0, g.len())

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("awaiter did not observe cancellation")
		}
	}
}

func TestFlightGroupDistinctKeysIndependent(t *testing.T) {
	t.Parallel()

	g := newFlightGroup[int]()
	var calls atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, ok, err := g.do(context.Background(), string(rune('a'+i)), func(context.Context) (int, bool, error) {
				calls.Add(1)
				return i, true, nil
			})
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, i, v)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(4), calls.Load())
}
