package logger

import (
	"fmt"
	"strings"
)

type Level int

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	OffLevel

	_minLevel = TraceLevel
	_maxLevel = OffLevel
)

func (l Level) String() string {
	switch l {
	case TraceLevel:
		return "trace"
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case OffLevel:
		return "off"
	default:
		return "unknown"
	}
}

// ParseLevel resolves a level by its name, case-insensitively.
func ParseLevel(name string) (Level, error) {
	for lvl := _minLevel; lvl <= _maxLevel; lvl++ {
		if strings.EqualFold(name, lvl.String()) {
			return lvl, nil
		}
	}
	return OffLevel, fmt.Errorf("unknown log level: %s", name)
}

type Sink interface {
	Log(lvl Level, f func() string)
	Level() Level
}

// Logger formats messages only when its sink accepts their level.
type Logger struct {
	Sink
}

// Named returns a logger that prefixes every message with the component name.
func (l Logger) Named(component string) Logger {
	if len(component) == 0 {
		return l
	}
	return Logger{Sink: &namedSink{sink: l.Sink, prefix: "[" + component + "] "}}
}

// Enabled reports whether messages of lvl reach the sink. Callers use it to skip gathering the
// arguments of per-row messages.
func (l Logger) Enabled(lvl Level) bool {
	return lvl < OffLevel && lvl >= l.Level()
}

func (l Logger) logf(lvl Level, format string, values []interface{}) {
	l.Log(lvl, func() string {
		return fmt.Sprintf(format, values...)
	})
}

func (l Logger) Tracef(format string, values ...interface{}) {
	l.logf(TraceLevel, format, values)
}

func (l Logger) Debugf(format string, values ...interface{}) {
	l.logf(DebugLevel, format, values)
}

func (l Logger) Infof(format string, values ...interface{}) {
	l.logf(InfoLevel, format, values)
}

func (l Logger) Warnf(format string, values ...interface{}) {
	l.logf(WarnLevel, format, values)
}

func (l Logger) Errorf(format string, values ...interface{}) {
	l.Log(ErrorLevel, func() string {
		return fmt.Errorf(format, values...).Error()
	})
}

type namedSink struct {
	sink   Sink
	prefix string
}

func (s *namedSink) Log(lvl Level, f func() string) {
	s.sink.Log(lvl, func() string {
		return s.prefix + f()
	})
}

func (s *namedSink) Level() Level {
	return s.sink.Level()
}
