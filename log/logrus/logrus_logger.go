// Package logrus provides an adapter to the
// go-kit log.Logger interface.
package logrus

import (
	"errors"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/sirupsen/logrus"
)

var errMissingValue = errors.New("(MISSING)")

type Logger struct {
	field logrus.FieldLogger
	level logrus.Level
}

type Option func(*Logger)

// WithLevel sets the level used for records that carry no go-kit level.
// Defaults to info.
func WithLevel(level logrus.Level) Option {
	return func(c *Logger) {
		c.level = level
	}
}

// NewLogger returns a Go kit log.Logger that sends log events to a logrus.Logger.
// Records levelled with github.com/go-kit/log/level are logged at the
// matching logrus level.
func NewLogger(logger logrus.FieldLogger, options ...Option) log.Logger {
	l := &Logger{
		field: logger,
		level: logrus.InfoLevel,
	}

	for _, optFunc := range options {
		optFunc(l)
	}

	return l
}

func (l Logger) Log(keyvals ...interface{}) error {
	lvl := l.level
	fields := logrus.Fields{}
	for i := 0; i < len(keyvals); i += 2 {
		if i+1 >= len(keyvals) {
			fields[fmt.Sprint(keyvals[i])] = errMissingValue
			continue
		}
		if v, ok := keyvals[i+1].(level.Value); ok && keyvals[i] == level.Key() {
			lvl = toLogrus(v, lvl)
			continue
		}
		fields[fmt.Sprint(keyvals[i])] = keyvals[i+1]
	}

	entry := l.field.WithFields(fields)
	switch lvl {
	case logrus.DebugLevel, logrus.TraceLevel:
		entry.Debug()
	case logrus.WarnLevel:
		entry.Warn()
	case logrus.ErrorLevel:
		entry.Error()
	case logrus.FatalLevel, logrus.PanicLevel:
		entry.Error()
	default:
		entry.Info()
	}
	return nil
}

func toLogrus(v level.Value, fallback logrus.Level) logrus.Level {
	switch v.String() {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	}
	return fallback
}
