package experience

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"mapquester/utils/errors"
)

// Task is a scheduled callback owned by the component that created it.
type Task interface {
	Cancel()
}

// Dispatcher moves work on and off the single logical thread.
//
// Go runs work off the loop; the function it returns (if any) is run back on
// the loop. Post queues fn on the loop. AfterFunc runs fn on the loop after d
// unless the task was cancelled first.
type Dispatcher interface {
	Go(work func(ctx context.Context) func())
	Post(fn func())
	AfterFunc(d time.Duration, fn func()) Task
}

// ErrLoopStopped is returned by Do once the loop has exited.
var ErrLoopStopped = errors.New("event loop stopped")

// Loop is the production Dispatcher: a buffered inbox drained by Run.
type Loop struct {
	inbox   chan func()
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// NewLoop creates a loop whose inbox holds up to buffer queued callbacks.
func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		inbox:  make(chan func(), buffer),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Run executes queued callbacks one at a time until ctx is cancelled. Work
// started with Go sees its context cancelled when Run returns.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.inbox:
			fn()
		}
	}
}

func (l *Loop) stop() {
	l.stopped.Do(func() {
		l.cancel()
		close(l.done)
	})
}

// Wait blocks until every Go worker has returned.
func (l *Loop) Wait() {
	l.wg.Wait()
}

// Post queues fn. Callbacks posted after the loop stopped are dropped.
func (l *Loop) Post(fn func()) {
	select {
	case l.inbox <- fn:
	case <-l.done:
	}
}

// Go runs work on its own goroutine and posts the completion back.
func (l *Loop) Go(work func(ctx context.Context) func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if complete := work(l.ctx); complete != nil {
			l.Post(complete)
		}
	}()
}

// AfterFunc schedules fn on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Task {
	t := &loopTask{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if !t.cancelled.Load() {
				fn()
			}
		})
	})
	return t
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}
	select {
	case l.inbox <- wrapped:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

type loopTask struct {
	timer     *time.Timer
	cancelled atomic.Bool
}

// Cancel stops the timer; a callback already queued on the loop is skipped.
func (t *loopTask) Cancel() {
	t.cancelled.Store(true)
	t.timer.Stop()
}
