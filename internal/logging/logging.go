// Package logging builds the overlay's zap loggers. Every record is mirrored
// to the console; WithTelemetry additionally forwards records to the host
// as chroma-log messages.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewConsole returns a human-readable stderr logger at the given level
// ("debug", "info", "warn", "error"). Unknown levels fall back to info.
func NewConsole(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		lvl,
	)
	return zap.New(core)
}

// WithTelemetry tees logger into a BridgeCore so its records also reach the
// host. The console side keeps working while the bridge is down; the bridge
// side relies on the sender's own queue to hold records until it connects.
func WithTelemetry(logger *zap.Logger, sender Sender, source string) *zap.Logger {
	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, NewBridgeCore(sender, source, c))
	}))
}
