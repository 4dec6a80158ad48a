package httputil

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("connection reset")

func TestRetryable(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) != nil")
	}
	err := Retryable(errTransient)
	if !IsRetryable(err) {
		t.Error("IsRetryable(Retryable(err)) = false, want true")
	}
	if !errors.Is(err, errTransient) {
		t.Error("Retryable(err) should unwrap to err")
	}
	if err.Error() != errTransient.Error() {
		t.Errorf("Error() = %q, want %q", err.Error(), errTransient.Error())
	}
	if IsRetryable(errTransient) {
		t.Error("IsRetryable(plain) = true, want false")
	}
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		attempts  int
		failures  int   // calls that fail before success
		fail      error // error returned by failing calls
		wantCalls int
		wantErr   error
	}{
		{"first try", 3, 0, nil, 1, nil},
		{"not retryable", 3, 5, errTransient, 1, errTransient},
		{"recovers", 3, 2, Retryable(errTransient), 3, nil},
		{"exhausted", 2, 5, Retryable(errTransient), 2, errTransient},
		{"zero attempts runs once", 0, 5, Retryable(errTransient), 1, errTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), tt.attempts, time.Millisecond, func() error {
				calls++
				if calls <= tt.failures {
					return tt.fail
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Retry() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, 3, time.Hour, func() error {
		calls++
		return Retryable(errTransient)
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
