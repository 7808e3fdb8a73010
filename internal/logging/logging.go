// Package logging builds the zap loggers used by the CLI and the daemon.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Mode picks the baseline level.
type Mode int

const (
	// CLI logs warnings and above; user-facing output goes to stdout.
	CLI Mode = iota
	// Daemon logs info and above.
	Daemon
)

// New returns a JSON production logger writing to stderr. verbose lowers
// the level to debug regardless of mode.
func New(mode Mode, verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(Level(mode, verbose))
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = !verbose

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return log.Named("dealdates"), nil
}

// Level returns the level New would use.
func Level(mode Mode, verbose bool) zapcore.Level {
	switch {
	case verbose:
		return zapcore.DebugLevel
	case mode == Daemon:
		return zapcore.InfoLevel
	default:
		return zapcore.WarnLevel
	}
}

// OrNop returns log, or a no-op logger when log is nil.
func OrNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
