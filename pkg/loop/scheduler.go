package loop

import (
	"sync"
	"time"

	"github.com/matzehuels/depotview/pkg/errors"
)

// Scheduler produces frame ticks.
type Scheduler interface {
	// Ticks returns the channel the loop receives frame times from.
	Ticks() <-chan time.Time
	// Stop releases the scheduler. The loop calls it when Run returns.
	Stop()
}

// Ticker schedules frames at a fixed rate.
type Ticker struct {
	t *time.Ticker
}

// MaxFPS bounds the frame rate accepted by NewTicker.
const MaxFPS = 240

// NewTicker returns a scheduler ticking fps times per second.
func NewTicker(fps int) (*Ticker, error) {
	if fps <= 0 || fps > MaxFPS {
		return nil, errors.Config("fps must be in [1, %d], got %d", MaxFPS, fps)
	}
	return &Ticker{t: time.NewTicker(time.Second / time.Duration(fps))}, nil
}

// Ticks implements Scheduler.
func (t *Ticker) Ticks() <-chan time.Time { return t.t.C }

// Stop implements Scheduler.
func (t *Ticker) Stop() { t.t.Stop() }

// Manual ticks only when asked to. The terminal viewer uses it to render
// on input, and tests use it to step frames deterministically.
type Manual struct {
	ch   chan time.Time
	stop chan struct{}
	once sync.Once
}

// NewManual returns a manual scheduler.
func NewManual() *Manual {
	return &Manual{ch: make(chan time.Time), stop: make(chan struct{})}
}

// Ticks implements Scheduler.
func (m *Manual) Ticks() <-chan time.Time { return m.ch }

// Tick hands one frame to the loop and blocks until the loop has taken it.
// It reports false if the scheduler was stopped.
func (m *Manual) Tick() bool {
	select {
	case m.ch <- time.Now():
		return true
	case <-m.stop:
		return false
	}
}

// Stop implements Scheduler.
func (m *Manual) Stop() {
	m.once.Do(func() { close(m.stop) })
}
