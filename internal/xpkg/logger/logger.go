package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger passed through every layer. Actions name the
// event being logged and end up in the "action" field.
type Logger interface {
	Action(action string) Logger
	With(args ...any) Logger
	WithGroup(name string) Logger

	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, err error, args ...any)

	// SetLevel changes the level of this logger and every logger derived from it.
	SetLevel(level string) error
	Sync() error
}

type zapLogger struct {
	s   *zap.SugaredLogger
	lvl *zap.AtomicLevel
}

// New builds a JSON logger for service at the given level (debug, info, warn, error).
func New(service, level string) (Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	hostname, _ := os.Hostname()

	atom := zap.NewAtomicLevelAt(lvl)
	cfg := zap.NewProductionConfig()
	cfg.Level = atom
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.DisableStacktrace = lvl > zapcore.DebugLevel
	cfg.InitialFields = map[string]any{
		"service":  service,
		"hostname": hostname,
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &zapLogger{s: l.Sugar(), lvl: &atom}, nil
}

// FromZap wraps an existing zap logger, e.g. zaptest.NewLogger in tests.
func FromZap(l *zap.Logger) Logger {
	return &zapLogger{s: l.Sugar()}
}

func (l *zapLogger) Action(action string) Logger {
	return &zapLogger{s: l.s.With("action", action), lvl: l.lvl}
}

func (l *zapLogger) With(args ...any) Logger {
	return &zapLogger{s: l.s.With(args...), lvl: l.lvl}
}

func (l *zapLogger) WithGroup(name string) Logger {
	return &zapLogger{s: l.s.Desugar().With(zap.Namespace(name)).Sugar(), lvl: l.lvl}
}

// SetLevel is a no-op for loggers wrapped with FromZap.
func (l *zapLogger) SetLevel(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}
	if l.lvl != nil {
		l.lvl.SetLevel(lvl)
	}
	return nil
}

func (l *zapLogger) Debug(msg string, args ...any) {
	l.s.Debugw(msg, args...)
}

func (l *zapLogger) Info(msg string, args ...any) {
	l.s.Infow(msg, args...)
}

func (l *zapLogger) Warn(msg string, args ...any) {
	l.s.Warnw(msg, args...)
}

func (l *zapLogger) Error(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, zap.Error(err))
	}
	l.s.Errorw(msg, args...)
}

func (l *zapLogger) Sync() error {
	return l.s.Sync()
}
