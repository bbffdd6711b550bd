// Package eventloop runs asynchronous host completions on the guest's thread.
//
// A guest module is single-threaded: its memory and exports must only be
// touched by one goroutine at a time. Host work that takes time (a clipboard
// read behind a permission prompt, a helper process) runs in its own goroutine
// via Go, and the continuation it returns is queued. Run or RunUntilIdle then
// executes queued tasks strictly one at a time on the calling goroutine.
package eventloop

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-clipboard/errors"
)

// Task is a continuation executed on the loop goroutine.
type Task func(ctx context.Context)

// Loop is a serial task queue with in-flight work tracking.
type Loop struct {
	logger  *zap.Logger
	wake    chan struct{}
	queue   []Task
	pending int
	mu      sync.Mutex
	closed  bool
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the loop logger.
func WithLogger(l *zap.Logger) Option {
	return func(lp *Loop) {
		if l != nil {
			lp.logger = l
		}
	}
}

// New creates an empty loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		logger: zap.NewNop(),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Go runs work in a new goroutine and queues the task it returns.
// A nil task only completes the in-flight entry. A panic in work is recovered
// and logged; nothing is queued for it.
//
// Go never blocks. There is no way to cancel work once started.
func (l *Loop) Go(ctx context.Context, work func(context.Context) Task) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.logger.Debug("work submitted after close dropped",
			zap.Error(errors.Closed(errors.PhaseRuntime, "event loop")))
		return
	}
	l.pending++
	l.mu.Unlock()

	go func() {
		var task Task
		var pc panics.Catcher
		pc.Try(func() { task = work(ctx) })
		if r := pc.Recovered(); r != nil {
			l.logger.Error("async work panicked",
				zap.Error(errors.Recovered(errors.PhaseRuntime, "", r.AsError())))
			task = nil
		}
		l.complete(task)
	}()
}

// Post queues a task without in-flight tracking.
func (l *Loop) Post(task Task) {
	if task == nil {
		return
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.logger.Debug("task posted after close dropped",
			zap.Error(errors.Closed(errors.PhaseRuntime, "event loop")))
		return
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) complete(task Task) {
	l.mu.Lock()
	l.pending--
	if l.closed {
		l.mu.Unlock()
		if task != nil {
			l.logger.Debug("completion after close dropped")
		}
		l.signal()
		return
	}
	if task != nil {
		l.queue = append(l.queue, task)
	}
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of Go calls whose task has not yet been queued,
// plus the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending + len(l.queue)
}

func (l *Loop) next() (Task, bool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) > 0 {
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		return task, true, false
	}
	idle := l.pending == 0
	return nil, false, idle || l.closed
}

func (l *Loop) runTask(ctx context.Context, task Task) {
	var pc panics.Catcher
	pc.Try(func() { task(ctx) })
	if r := pc.Recovered(); r != nil {
		l.logger.Error("task panicked",
			zap.Error(errors.Recovered(errors.PhaseRuntime, "", r.AsError())))
	}
}

// RunUntilIdle executes tasks until nothing is queued or in flight.
// It returns ctx.Err() if ctx ends first; queued work stays queued.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	for {
		task, ok, idle := l.next()
		if ok {
			l.runTask(ctx, task)
			continue
		}
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// RunReady executes queued tasks until the queue is empty and returns without
// waiting for work still in flight. It returns the number of tasks run, and
// ctx.Err() if ctx ends between tasks.
func (l *Loop) RunReady(ctx context.Context) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		task, ok, _ := l.next()
		if !ok {
			return n, nil
		}
		l.runTask(ctx, task)
		n++
	}
}

// Run executes tasks until ctx ends or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	for {
		task, ok, _ := l.next()
		if ok {
			l.runTask(ctx, task)
			continue
		}
		if l.isClosed() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Close stops the loop from accepting work and discards queued tasks.
// In-flight work still finishes but its task is dropped.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.queue = nil
	l.mu.Unlock()
	l.signal()
}
