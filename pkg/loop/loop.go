// Package loop runs the per-view render loop.
//
// A [Loop] owns one goroutine. It runs a frame callback on every tick of a
// [Scheduler] and, between frames, the closures posted with [Loop.Post].
// Input events and scene swaps enter the view through Post, so the camera,
// the interaction machine and the overlay are only ever touched by the loop
// goroutine. The loop stops between frames: a frame that has started always
// completes.
package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depotview/pkg/errors"
)

// FrameFunc renders frame n.
type FrameFunc func(ctx context.Context, n uint64, now time.Time)

// Loop is a cooperative single-goroutine frame loop.
type Loop struct {
	sched  Scheduler
	frame  FrameFunc
	posts  chan func()
	stop   chan struct{}
	done   chan struct{}
	logger *log.Logger

	stopOnce sync.Once
	started  atomic.Bool
	frames   atomic.Uint64
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(lp *Loop) {
		if l != nil {
			lp.logger = l
		}
	}
}

// WithQueueSize sets how many posted closures may wait between frames
// before Post blocks. The default is 256.
func WithQueueSize(n int) Option {
	return func(lp *Loop) {
		if n > 0 {
			lp.posts = make(chan func(), n)
		}
	}
}

// New returns a loop driven by sched. A nil frame callback only drains
// posted closures.
func New(sched Scheduler, frame FrameFunc, opts ...Option) *Loop {
	if frame == nil {
		frame = func(context.Context, uint64, time.Time) {}
	}
	l := &Loop{
		sched:  sched,
		frame:  frame,
		posts:  make(chan func(), 256),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes the loop until ctx ends or Stop is called. It returns
// ctx.Err() when the context ended and nil after Stop. Run may be called
// only once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return errors.New(errors.ErrCodeInternal, "render loop already running")
	}
	defer close(l.done)
	defer l.sched.Stop()

	ticks := l.sched.Ticks()
	l.logger.Debug("render loop started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("render loop stopped", "frames", l.frames.Load(), "reason", ctx.Err())
			return ctx.Err()
		case <-l.stop:
			l.logger.Debug("render loop stopped", "frames", l.frames.Load())
			return nil
		case fn := <-l.posts:
			fn()
		case now, ok := <-ticks:
			if !ok {
				return nil
			}
			l.frame(ctx, l.frames.Add(1), now)
		}
	}
}

// Post queues fn to run on the loop goroutine between frames. It reports
// false when the loop has already finished.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return true
	}
	select {
	case <-l.done:
		return false
	case <-l.stop:
		return false
	default:
	}
	select {
	case <-l.done:
		return false
	case <-l.stop:
		return false
	case l.posts <- fn:
		return true
	}
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return errors.New(errors.ErrCodeInternal, "render loop stopped")
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return errors.New(errors.ErrCodeInternal, "render loop stopped")
		}
	case <-ctx.Done():
		return errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "waiting for render loop")
	}
}

// Stop ends the loop after the current frame or closure.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Frames returns the number of frames rendered so far.
func (l *Loop) Frames() uint64 { return l.frames.Load() }
