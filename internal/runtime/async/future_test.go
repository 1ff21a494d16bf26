package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSucceededAndFailed(t *testing.T) {
	val, err := Succeeded(42).Result()
	require.NoError(t, err)
	assert.Equal(t, 42, val)

	boom := errors.New("boom")
	_, err = Failed[int](boom).Result()
	assert.ErrorIs(t, err, boom)
}

func TestGoCompletesWithResult(t *testing.T) {
	release := make(chan struct{})
	f := Go(func() (string, error) {
		<-release
		return "done", nil
	})

	select {
	case <-f.Done():
		t.Fatal("future completed before the operation finished")
	default:
	}

	close(release)
	val, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", val)
}

func TestAwaitHonoursContext(t *testing.T) {
	f := Go(func() (Void, error) {
		time.Sleep(time.Second)
		return Void{}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMap(t *testing.T) {
	doubled := Map(Succeeded(21), func(v int) int { return v * 2 })
	val, err := doubled.Result()
	require.NoError(t, err)
	assert.Equal(t, 42, val)

	var called atomic.Bool
	boom := errors.New("boom")
	failed := Map(Failed[int](boom), func(v int) int {
		called.Store(true)
		return v
	})
	assert.ErrorIs(t, failed.Err(), boom)
	assert.False(t, called.Load())
}

func TestMapEmpty(t *testing.T) {
	require.NoError(t, MapEmpty(Succeeded("ignored")).Err())

	boom := errors.New("boom")
	assert.ErrorIs(t, MapEmpty(Failed[string](boom)).Err(), boom)
}

func TestThenSequences(t *testing.T) {
	f := Then(Succeeded(2), func(v int) *Future[string] {
		if v != 2 {
			return Failed[string](errors.New("unexpected"))
		}
		return Succeeded("two")
	})
	val, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, "two", val)

	boom := errors.New("boom")
	var called atomic.Bool
	failed := Then(Failed[int](boom), func(int) *Future[string] {
		called.Store(true)
		return Succeeded("never")
	})
	assert.ErrorIs(t, failed.Err(), boom)
	assert.False(t, called.Load())
}

func TestAllWaitsForEveryFuture(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")

	var slowFinished atomic.Bool
	slow := Go(func() (int, error) {
		time.Sleep(20 * time.Millisecond)
		slowFinished.Store(true)
		return 3, nil
	})

	vals, err := All(Failed[int](first), Succeeded(2), slow, Failed[int](second)).Result()

	require.Error(t, err)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	assert.True(t, slowFinished.Load(), "All must not short-circuit on failure")
	assert.Equal(t, []int{0, 2, 3, 0}, vals)
}

func TestAllEmpty(t *testing.T) {
	vals, err := All[int]().Result()
	require.NoError(t, err)
	assert.Empty(t, vals)
}
