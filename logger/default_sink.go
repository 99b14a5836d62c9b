package logger

import (
	"errors"
	"io"
	"log"
	"strings"
)

type defaultSink struct {
	l       *log.Logger
	sinkLvl Level
}

// NewSink wraps l, which defaults to the standard logger when nil.
func NewSink(l *log.Logger, lvl Level) (Sink, error) {
	if lvl < _minLevel || lvl > _maxLevel {
		return nil, errors.New("invalid level")
	}
	if l == nil {
		l = log.Default()
	}
	return &defaultSink{l, lvl}, nil
}

// NewWriterSink logs to w with the given prefix and the standard date and time flags.
func NewWriterSink(w io.Writer, prefix string, lvl Level) (Sink, error) {
	return NewSink(log.New(w, prefix, log.LstdFlags), lvl)
}

func (sink *defaultSink) Log(lvl Level, f func() string) {
	if lvl < sink.sinkLvl || lvl >= OffLevel {
		return
	}
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(lvl.String()))
	for i := sb.Len(); i < 6; i++ {
		sb.WriteByte(' ')
	}
	sb.WriteString(f())
	_ = sink.l.Output(2, sb.String())
}

func (sink *defaultSink) Level() Level {
	return sink.sinkLvl
}

type noopSink struct{}

// NewNoopSink returns a sink that drops every message without evaluating it.
func NewNoopSink() Sink {
	return noopSink{}
}

func (noopSink) Log(Level, func() string) {}

func (noopSink) Level() Level {
	return OffLevel
}
