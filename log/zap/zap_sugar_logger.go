// Package zap provides an adapter to the go-kit log.Logger interface.
package zap

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapSugarLogger struct {
	sugar *zap.SugaredLogger
	level zapcore.Level
}

// NewZapSugarLogger returns a Go kit log.Logger that sends
// log events to a zap.Logger. Records levelled with
// github.com/go-kit/log/level are written at the matching zap level,
// the others at the given level.
func NewZapSugarLogger(logger *zap.Logger, level zapcore.Level) log.Logger {
	return &zapSugarLogger{
		sugar: logger.WithOptions(zap.AddCallerSkip(2)).Sugar(),
		level: level,
	}
}

func (l *zapSugarLogger) Log(kv ...interface{}) error {
	lvl := l.level
	fields := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) && kv[i] == level.Key() {
			if v, ok := kv[i+1].(level.Value); ok {
				lvl = toZap(v, lvl)
				continue
			}
		}
		fields = append(fields, kv[i:min(i+2, len(kv))]...)
	}

	switch lvl {
	case zapcore.DebugLevel:
		l.sugar.Debugw("", fields...)
	case zapcore.WarnLevel:
		l.sugar.Warnw("", fields...)
	case zapcore.ErrorLevel:
		l.sugar.Errorw("", fields...)
	case zapcore.DPanicLevel:
		l.sugar.DPanicw("", fields...)
	case zapcore.PanicLevel:
		l.sugar.Panicw("", fields...)
	case zapcore.FatalLevel:
		l.sugar.Fatalw("", fields...)
	default:
		l.sugar.Infow("", fields...)
	}
	return nil
}

func toZap(v level.Value, fallback zapcore.Level) zapcore.Level {
	switch v.String() {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return fallback
}
