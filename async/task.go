/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package async runs repository operations on their own goroutine and hands
// back a Task to await. The blocking repository methods are Await over the
// same task, so both forms observe the same result.
package async

import (
	"context"
	"fmt"
)

// Task is the pending result of an operation.
type Task[T any] struct {
	done  chan struct{}
	value T
	err   error
	panic any
}

// Run starts fn on a new goroutine. A panic inside fn is re-raised by Await.
func Run[T any](ctx context.Context, fn func(context.Context) (T, error)) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				t.panic = r
			}
		}()
		t.value, t.err = fn(ctx)
	}()
	return t
}

// Completed returns a task that has already finished.
func Completed[T any](value T, err error) *Task[T] {
	t := &Task[T]{done: make(chan struct{}), value: value, err: err}
	close(t.done)
	return t
}

// Done is closed when the operation finishes.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Await blocks until the operation finishes and returns its result.
func (t *Task[T]) Await() (T, error) {
	<-t.done
	if t.panic != nil {
		panic(t.panic)
	}
	return t.value, t.err
}

// Wait is Await that gives up when ctx ends. The operation itself keeps
// running; its own context decides when it stops.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.Await()
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("async: stopped waiting: %w", ctx.Err())
	}
}

// Void is the result type of operations that only report an error.
type Void struct{}

// Go runs an operation without a result value.
func Go(ctx context.Context, fn func(context.Context) error) *Task[Void] {
	return Run(ctx, func(ctx context.Context) (Void, error) {
		return Void{}, fn(ctx)
	})
}
