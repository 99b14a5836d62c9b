/*
Package logger provides leveled logging for the rowbinary codec.

Levels, from the finest:
  - TraceLevel : per-row events, such as every decoded row and every flush.
  - DebugLevel : one-time events, such as compiled setters and read headers.
  - InfoLevel  : informational messages.
  - WarnLevel  : recoverable problems, such as a metrics factory refusing a counter.
  - ErrorLevel : errors.
  - OffLevel   : nothing is logged.

A sink produces no output for messages below its level. Messages are passed as functions, so a
filtered message is never formatted; [Logger.Enabled] lets per-row call sites skip even the
gathering of arguments. [Logger.Named] prefixes messages with a component name ("mapping",
"reader", "writer").

Custom sinks implement

	type Sink interface {
		Log(lvl Level, f func() string)
		Level() Level
	}

or wrap a log.Logger with [NewSink] or an io.Writer with [NewWriterSink].
*/
package logger
