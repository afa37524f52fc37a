package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines structured logging interface
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
	With(args ...any) Logger
}

// ZapLogger implements Logger on top of a sugared zap logger
type ZapLogger struct {
	logger *zap.SugaredLogger
}

// New creates a production (JSON) logger with the specified level
func New(level string) Logger {
	return build(zap.NewProductionConfig(), level)
}

// NewDevelopment creates a human-readable console logger
func NewDevelopment(level string) Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return build(cfg, level)
}

// ForEnvironment picks the production or development encoder.
func ForEnvironment(env, level string) Logger {
	if env == "production" {
		return New(level)
	}
	return NewDevelopment(level)
}

func build(cfg zap.Config, level string) Logger {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level.SetLevel(lvl)

	z, err := cfg.Build()
	if err != nil {
		z = zap.NewNop()
	}
	return &ZapLogger{logger: z.Sugar()}
}

// Wrap adapts an existing zap logger.
func Wrap(z *zap.Logger) Logger {
	return &ZapLogger{logger: z.Sugar()}
}

// Nop returns a logger that discards everything
func Nop() Logger {
	return &ZapLogger{logger: zap.NewNop().Sugar()}
}

// Info logs an informational message
func (l *ZapLogger) Info(msg string, args ...any) {
	l.logger.Infow(msg, args...)
}

// Error logs an error message
func (l *ZapLogger) Error(msg string, args ...any) {
	l.logger.Errorw(msg, args...)
}

// Warn logs a warning message
func (l *ZapLogger) Warn(msg string, args ...any) {
	l.logger.Warnw(msg, args...)
}

// Debug logs a debug message
func (l *ZapLogger) Debug(msg string, args ...any) {
	l.logger.Debugw(msg, args...)
}

// With returns a new logger with the specified attributes
func (l *ZapLogger) With(args ...any) Logger {
	return &ZapLogger{logger: l.logger.With(args...)}
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

// Default returns a default logger instance
func Default() Logger {
	return New("info")
}
