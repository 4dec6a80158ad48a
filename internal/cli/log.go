package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns the command logger. Timestamps read "15:04:05.00".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times one step of a command, such as fetching and building a
// depot, and logs it when the step finishes.
type progress struct {
	logger *log.Logger
	start  time.Time
	kv     []any
}

func newProgress(l *log.Logger, keyvals ...any) *progress {
	return &progress{logger: l, start: time.Now(), kv: keyvals}
}

// done logs msg with the elapsed time, rounded to milliseconds, and the
// fields given to newProgress.
func (p *progress) done(msg string) time.Duration {
	elapsed := time.Since(p.start).Round(time.Millisecond)
	p.logger.Info(msg, append(p.kv, "took", elapsed)...)
	return elapsed
}

type ctxKey struct{}

// withLogger attaches l to ctx for the subcommands.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// loggerFromContext falls back to log.Default when no logger is attached.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
