// Package loop provides the single-threaded cooperative scheduler a session runs on.
//
// Every piece of session state (the live anchor set, the hit-test target table,
// the pending anchor request) is only touched by functions running on the
// loop. Input dispatchers and frame drivers Post work onto it, blocking
// collaborator calls run through Await and resume on it, and timers created
// with After fire on it. Because exactly one goroutine drains the queue at a
// time, none of that state needs a lock.
//
// Production code drives the loop with Run. Tests drive it synchronously with
// Settle, which runs queued continuations and waits for in-flight Await work
// until nothing is left.
package loop

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// Loop is a FIFO queue of continuations executed one at a time
type Loop struct {
	clock clock.WithDelayedExecution

	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	inflight sync.WaitGroup
}

// Option configures a Loop
type Option func(*Loop)

// WithClock sets the clock used by After
func WithClock(c clock.WithDelayedExecution) Option {
	return func(l *Loop) {
		l.clock = c
	}
}

// New creates an idle loop
func New(opts ...Option) *Loop {
	l := &Loop{
		clock: clock.RealClock{},
		wake:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Clock returns the clock the loop schedules timers with
func (l *Loop) Clock() clock.WithDelayedExecution {
	return l.clock
}

// Post enqueues fn to run on the loop. It never blocks and is safe to call from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of queued continuations
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// RunPending runs every continuation queued at the time of the call, plus any
// they enqueue, until the queue is empty. It returns the number executed.
func (l *Loop) RunPending() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return n
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.run(fn)
		n++
	}
}

// Run drains the loop until ctx is cancelled
func (l *Loop) Run(ctx context.Context) error {
	slog.Debug("Session loop started")
	defer slog.Debug("Session loop stopped")

	for {
		l.RunPending()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Settle runs queued continuations and waits for in-flight Await work until
// the loop is idle. Pending timers are not waited for. Settle must not be
// called while Run is active.
func (l *Loop) Settle() {
	for {
		l.RunPending()
		l.inflight.Wait()
		if l.Len() == 0 {
			return
		}
	}
}

// After runs fn on the loop once d has elapsed. The returned function cancels
// the timer and reports whether it was stopped before firing.
func (l *Loop) After(d time.Duration, fn func()) (cancel func() bool) {
	if d <= 0 {
		l.Post(fn)
		return func() bool { return false }
	}
	timer := l.clock.AfterFunc(d, func() {
		l.Post(fn)
	})
	return timer.Stop
}

// run executes fn, recovering from panics so one bad continuation cannot stop the loop
func (*Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered panic in session loop continuation",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Await runs work on its own goroutine and resumes with its result on the loop.
// resume always runs on the loop, never on the worker goroutine.
func Await[T any](l *Loop, ctx context.Context, work func(context.Context) (T, error), resume func(T, error)) {
	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()

		var (
			v   T
			err error
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{Value: r}
				}
			}()
			v, err = work(ctx)
		}()

		l.Post(func() { resume(v, err) })
	}()
}
