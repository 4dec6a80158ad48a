package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer shared with the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDrawsMessage(t *testing.T) {
	var out syncBuffer
	s := newSpinnerTo(context.Background(), &out, "Fetching depot 7...")
	s.Start()
	time.Sleep(3 * spinnerInterval)
	s.SetMessage("Building scene...")
	time.Sleep(3 * spinnerInterval)
	s.Stop()

	got := out.String()
	for _, want := range []string{"Fetching depot 7...", "Building scene..."} {
		if !strings.Contains(got, want) {
			t.Errorf("spinner output missing %q", want)
		}
	}
	if !strings.HasSuffix(got, "\r") {
		t.Error("Stop() should leave the line cleared")
	}
}

func TestSpinnerCancelled(t *testing.T) {
	tests := []struct {
		name string
		end  func(context.CancelFunc, *Spinner)
	}{
		{"parent cancelled", func(cancel context.CancelFunc, _ *Spinner) { cancel() }},
		{"stopped", func(_ context.CancelFunc, s *Spinner) { s.Stop() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			s := newSpinnerTo(ctx, &syncBuffer{}, "Reading layout...")
			s.Start()
			tt.end(cancel, s)
			s.Stop()
			if !s.Cancelled() {
				t.Error("Cancelled() = false, want true")
			}
		})
	}
}

func TestSpinnerStopTwice(t *testing.T) {
	s := newSpinnerTo(context.Background(), &syncBuffer{}, "Importing...")
	s.Start()
	s.Stop()
	s.Stop()
}
