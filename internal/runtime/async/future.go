// Package async provides a minimal completion-based Future used to express
// the non-blocking contracts of the reply handler. A Future completes exactly
// once with a value or an error; combinators derive new futures without
// blocking the caller.
package async

import (
	"context"
	"errors"
	"sync"
)

// Void is the value type of futures that only signal completion.
type Void = struct{}

// Future holds the eventual result of an asynchronous operation.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(val T, err error) {
	f.once.Do(func() {
		f.val = val
		f.err = err
		close(f.done)
	})
}

// Go runs fn on a new goroutine and returns a Future for its result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		val, err := fn()
		f.complete(val, err)
	}()
	return f
}

// Succeeded returns an already completed Future holding val.
func Succeeded[T any](val T) *Future[T] {
	f := newFuture[T]()
	f.complete(val, nil)
	return f
}

// Failed returns an already completed Future holding err.
func Failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.complete(zero, err)
	return f
}

// Done is closed once the Future has completed.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result blocks until completion and returns the value and error.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.val, f.err
}

// Err blocks until completion and returns only the error.
func (f *Future[T]) Err() error {
	_, err := f.Result()
	return err
}

// Await waits for completion or for ctx to be done, whichever happens first.
// Giving up on a Future does not stop the operation behind it.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnComplete registers fn to run on its own goroutine after completion.
func (f *Future[T]) OnComplete(fn func(T, error)) {
	go func() {
		val, err := f.Result()
		fn(val, err)
	}()
}

// Map derives a Future whose value is fn applied to a successful result.
// Failures pass through unchanged and fn is not called.
func Map[T, U any](f *Future[T], fn func(T) U) *Future[U] {
	out := newFuture[U]()
	f.OnComplete(func(val T, err error) {
		if err != nil {
			var zero U
			out.complete(zero, err)
			return
		}
		out.complete(fn(val), nil)
	})
	return out
}

// MapEmpty discards the value of f and keeps only its outcome.
func MapEmpty[T any](f *Future[T]) *Future[Void] {
	return Map(f, func(T) Void { return Void{} })
}

// Then sequences fn after a successful f and completes with fn's Future.
func Then[T, U any](f *Future[T], fn func(T) *Future[U]) *Future[U] {
	out := newFuture[U]()
	f.OnComplete(func(val T, err error) {
		if err != nil {
			var zero U
			out.complete(zero, err)
			return
		}
		out.complete(fn(val).Result())
	})
	return out
}

// All waits for every future, including after failures, and completes with
// the values in order. The error is the join of every failure.
func All[T any](futures ...*Future[T]) *Future[[]T] {
	return Go(func() ([]T, error) {
		vals := make([]T, len(futures))
		var errs []error
		for i, f := range futures {
			val, err := f.Result()
			vals[i] = val
			if err != nil {
				errs = append(errs, err)
			}
		}
		return vals, errors.Join(errs...)
	})
}
