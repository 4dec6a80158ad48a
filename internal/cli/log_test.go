package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name  string
		level log.Level
		emit  func(*log.Logger)
		want  bool
	}{
		{"info at info", log.InfoLevel, func(l *log.Logger) { l.Info("fetch") }, true},
		{"debug at info", log.InfoLevel, func(l *log.Logger) { l.Debug("fetch") }, false},
		{"debug at debug", log.DebugLevel, func(l *log.Logger) { l.Debug("fetch") }, true},
		{"info at warn", log.WarnLevel, func(l *log.Logger) { l.Info("fetch") }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.emit(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.want {
				t.Errorf("wrote output = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(newLogger(&buf, log.InfoLevel), "depot", "7")

	if elapsed := p.done("Built depot"); elapsed < 0 {
		t.Errorf("done() = %v, want >= 0", elapsed)
	}
	out := buf.String()
	for _, want := range []string{"Built depot", "depot=7", "took="} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("loggerFromContext() without logger should return log.Default()")
	}

	var buf bytes.Buffer
	l := newLogger(&buf, log.InfoLevel)
	ctx := withLogger(context.Background(), l)
	if got := loggerFromContext(ctx); got != l {
		t.Errorf("loggerFromContext() = %p, want %p", got, l)
	}
}
