package log

import (
	"io"
	"os"
	"strings"

	l "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/theplant/clienttrace/kerrs"
)

// Logger is a go-kit logger with level helpers.
type Logger struct {
	l.Logger
}

func (logger Logger) With(keysvals ...interface{}) Logger {
	return Logger{l.With(logger.Logger, keysvals...)}
}

func (logger Logger) Debug() l.Logger {
	return level.Debug(logger.Logger)
}

func (logger Logger) Info() l.Logger {
	return level.Info(logger.Logger)
}

func (logger Logger) Warn() l.Logger {
	return level.Warn(logger.Logger)
}

func (logger Logger) Error() l.Logger {
	return level.Error(logger.Logger)
}

// Crit is above error; go-kit has no such level so it is logged as a
// plain "level=crit" pair and is never filtered.
func (logger Logger) Crit() l.Logger {
	return l.WithPrefix(logger.Logger, level.Key(), "crit")
}

// WithError returns an error-level logger carrying the key/values,
// message and stacktrace extracted from err.
func (logger Logger) WithError(err error) l.Logger {
	kvs, msg, stacktrace := kerrs.Extract(err)
	kvs = append(kvs, "msg", msg)
	if stacktrace != "" {
		kvs = append(kvs, "stacktrace", stacktrace)
	}
	return l.With(logger.Error(), kvs...)
}

// Default logs logfmt to stdout, or coloured lines when LOG_FORMAT is
// "human". LOG_LEVEL (debug, info, warn, error) filters the output when
// set.
func Default() Logger {
	if os.Getenv("LOG_FORMAT") == "human" {
		return Logger{filter(Human().Logger, os.Getenv("LOG_LEVEL"))}
	}
	return New(os.Stdout, os.Getenv("LOG_LEVEL"))
}

// New builds a logfmt Logger writing to w, filtered to lvl. An empty or
// unknown lvl allows everything.
func New(w io.Writer, lvl string) Logger {
	logger := l.NewLogfmtLogger(l.NewSyncWriter(w))
	logger = filter(logger, lvl)
	logger = l.With(logger, "ts", l.DefaultTimestampUTC, "caller", l.DefaultCaller)
	return Logger{logger}
}

// Nop discards everything.
func Nop() Logger {
	return Logger{l.NewNopLogger()}
}

func filter(logger l.Logger, lvl string) l.Logger {
	switch strings.ToLower(lvl) {
	case "debug":
		return level.NewFilter(logger, level.AllowDebug())
	case "info":
		return level.NewFilter(logger, level.AllowInfo())
	case "warn":
		return level.NewFilter(logger, level.AllowWarn())
	case "error":
		return level.NewFilter(logger, level.AllowError())
	}
	return logger
}

type logWriter struct {
	l.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	err := w.Log("msg", strings.TrimRight(string(p), "\n"))
	return len(p), err
}

// LogWriter adapts logger to an io.Writer, one message per Write.
func LogWriter(logger l.Logger) io.Writer {
	return &logWriter{logger}
}
