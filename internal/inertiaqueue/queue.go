// Package inertiaqueue implements a FIFO task queue drained by a single
// worker, so that only one task touches shared state at a time.
package inertiaqueue

import (
	"context"
	"fmt"
	"sync"

	"go.inout.gg/foundations/debug"
)

//nolint:gochecknoglobals
var d = debug.Debuglog("inertiaclient/queue")

// Task is a unit of work run by the queue.
type Task func(context.Context) error

type entry struct {
	ctx  context.Context //nolint:containedctx
	fn   Task
	done chan error
}

// Queue runs tasks strictly in the order they were added, one at a time.
//
// The worker goroutine is started on demand and exits once the queue is
// drained. A failing or panicking task does not affect the tasks after it.
type Queue struct {
	name    string
	items   []entry
	mu      sync.Mutex
	running bool
}

// New creates an empty queue. The name is used only for debug logging.
func New(name string) *Queue {
	return &Queue{name: name} //nolint:exhaustruct
}

// Add appends fn to the queue. The returned channel receives the task's
// result once it has run and is then closed.
//
// The task receives ctx when it runs. A cancelled ctx does not remove the
// task from the queue; the task observes the cancellation itself.
func (q *Queue) Add(ctx context.Context, fn Task) <-chan error {
	debug.Assert(fn != nil, "task must be non-nil")

	done := make(chan error, 1)

	q.mu.Lock()
	q.items = append(q.items, entry{ctx: ctx, fn: fn, done: done})
	start := !q.running
	q.running = true
	q.mu.Unlock()

	if start {
		go q.drain()
	}

	return done
}

// Do adds fn and waits for its result.
//
// If ctx is cancelled while waiting, Do returns the context error. The task
// stays queued and still runs in its turn.
func (q *Queue) Do(ctx context.Context, fn Task) error {
	done := q.Add(ctx, fn)

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck
	}
}

// Wait blocks until every task added before the call has finished.
func (q *Queue) Wait(ctx context.Context) error {
	done := q.Add(ctx, func(context.Context) error { return nil })

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck
	}
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.running = false
			q.mu.Unlock()

			return
		}

		next := q.items[0]
		q.items[0] = entry{} //nolint:exhaustruct
		q.items = q.items[1:]
		q.mu.Unlock()

		err := run(next)
		if err != nil {
			d("[%s] task failed, continuing: %v", q.name, err)
		}

		next.done <- err
		close(next.done)
	}
}

func run(e entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("inertiaqueue: task panicked: %v", r)
		}
	}()

	return e.fn(e.ctx)
}
