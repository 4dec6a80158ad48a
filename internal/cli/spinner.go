package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const spinnerInterval = 80 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a status line on stderr while a depot is fetched or
// imported. It clears itself when ctx ends.
type Spinner struct {
	out  io.Writer
	ctx  context.Context
	stop context.CancelFunc

	once     sync.Once
	finished chan struct{}

	mu    sync.Mutex
	msg   string
	width int // widest line drawn so far
}

func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	return newSpinnerTo(ctx, os.Stderr, message)
}

func newSpinnerTo(ctx context.Context, w io.Writer, message string) *Spinner {
	sctx, stop := context.WithCancel(ctx)
	return &Spinner{out: w, ctx: sctx, stop: stop, msg: message, finished: make(chan struct{})}
}

// Start draws frames until Stop is called or the context ends.
func (s *Spinner) Start() {
	go func() {
		defer close(s.finished)
		t := time.NewTicker(spinnerInterval)
		defer t.Stop()
		for frame := 0; ; frame++ {
			select {
			case <-s.ctx.Done():
				s.clear()
				return
			case <-t.C:
				s.draw(spinnerFrames[frame%len(spinnerFrames)])
			}
		}
	}()
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := styleIconSpinner.Render(frame) + " " + StyleDim.Render(s.msg)
	if n := len(s.msg) + 2; n > s.width {
		s.width = n
	}
	fmt.Fprint(s.out, "\r"+line)
}

func (s *Spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprint(s.out, "\r"+strings.Repeat(" ", s.width)+"\r")
	}
}

// Stop ends the animation and clears the line. It waits for the drawing
// goroutine and may be called more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.stop()
		select {
		case <-s.finished:
		case <-time.After(time.Second):
		}
	})
}

// SetMessage replaces the text after the spinner.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.msg = message
	s.mu.Unlock()
	s.clear()
}

// StopWithSuccess stops the spinner and prints message as a success line.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and prints message as an error line.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the spinner has ended, by Stop or by its
// parent context.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}
