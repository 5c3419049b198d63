// Package logging builds the zap logger shared by the commands.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing to stderr. The default logger is the
// production JSON logger at warn level so diagnostics do not interleave
// with the console report; verbose switches to the human-readable
// development encoder at debug level.
func New(verbose bool) (*zap.Logger, error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}

// MustNew is New for callers that cannot handle an error. It falls back to
// a no-op logger.
func MustNew(verbose bool) *zap.Logger {
	logger, err := New(verbose)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
