package logger

import (
	"go.uber.org/zap"
)

// Logger is the structured logger used across the module. Fields are passed
// as alternating keys and values.
type Logger interface {
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	Debug(msg string, fields ...any)
	With(fields ...any) Logger
	Sync() error
}

type zapLogger struct {
	logger *zap.SugaredLogger
}

// New returns a JSON production logger when jsonOutput is set and a
// human-readable development logger otherwise.
func New(jsonOutput bool) (Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if jsonOutput {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	return &zapLogger{logger: l.Sugar()}, nil
}

func Nop() Logger {
	return &zapLogger{logger: zap.NewNop().Sugar()}
}

func (l *zapLogger) Info(msg string, fields ...any) {
	l.logger.Infow(msg, fields...)
}

func (l *zapLogger) Warn(msg string, fields ...any) {
	l.logger.Warnw(msg, fields...)
}

func (l *zapLogger) Error(msg string, fields ...any) {
	l.logger.Errorw(msg, fields...)
}

func (l *zapLogger) Debug(msg string, fields ...any) {
	l.logger.Debugw(msg, fields...)
}

func (l *zapLogger) With(fields ...any) Logger {
	return &zapLogger{logger: l.logger.With(fields...)}
}

func (l *zapLogger) Sync() error {
	return l.logger.Sync()
}
