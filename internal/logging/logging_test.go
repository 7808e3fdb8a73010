package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		mode    Mode
		verbose bool
		want    zapcore.Level
	}{
		{CLI, false, zapcore.WarnLevel},
		{Daemon, false, zapcore.InfoLevel},
		{CLI, true, zapcore.DebugLevel},
		{Daemon, true, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		if got := Level(tt.mode, tt.verbose); got != tt.want {
			t.Errorf("Level(%d, %v) = %s, want %s", tt.mode, tt.verbose, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	log, err := New(Daemon, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !log.Core().Enabled(zapcore.InfoLevel) || log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("daemon logger should enable info but not debug")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
}
