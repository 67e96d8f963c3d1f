package lsplog

import (
	"bytes"
	"log"
	"testing"
)

func newTestLogger(level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Logger{out: log.New(&buf, "", 0), level: level}, &buf
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newTestLogger(LevelInfo)

	l.Debug("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("Debug at LevelInfo wrote %q, want nothing", buf.String())
	}

	l.Info("visible %d", 1)
	if got := buf.String(); got == "" {
		t.Fatal("Info at LevelInfo should have written a line")
	}
}

func TestSetLevel(t *testing.T) {
	l, buf := newTestLogger(LevelError)
	l.Debug("still hidden")
	if buf.Len() != 0 {
		t.Fatalf("got %q, want nothing at LevelError", buf.String())
	}

	l.SetLevel(LevelDebug)
	l.Debug("now visible")
	if buf.Len() == 0 {
		t.Fatal("Debug should be visible after raising the level")
	}
}

func TestFuncLogsAtInfo(t *testing.T) {
	l, buf := newTestLogger(LevelInfo)
	fn := l.Func()
	fn("hello %s", "world")
	if buf.Len() == 0 {
		t.Fatal("Func()'s returned logging func should have written a line")
	}
}
