package log

import (
	"fmt"
	"io"
	"os"
	"time"

	slog "log"

	l "github.com/go-kit/kit/log"
)

/*
Human creates a Logger that prints colourised, human friendly lines to
stdout and routes the standard library logger through it.
*/
func Human() Logger {
	lg := HumanWriter(os.Stdout)
	slog.SetOutput(l.NewStdlibAdapter(lg))
	return lg
}

// HumanWriter is Human writing to w.
func HumanWriter(w io.Writer) Logger {
	sw := l.NewSyncWriter(w)
	lg := Logger{
		l.LoggerFunc(func(values ...interface{}) (err error) {
			_, err = fmt.Fprint(sw, PrettyFormat(values...))
			return
		}),
	}
	var timer l.Valuer = func() interface{} { return time.Now().Format("15:04:05.99") }
	return lg.With("ts", timer)
}

/*
PrettyFormat renders log key/values on one line: timestamp, coloured
message, then short pairs. Long values go on their own lines and a
stacktrace is appended last.
*/
func PrettyFormat(values ...interface{}) string {
	var ts, msg, lvl, stacktrace interface{}
	var shorts, longs []interface{}

	for i := 1; i < len(values); i += 2 {
		key, val := values[i-1], values[i]
		switch fmt.Sprint(key) {
		case "ts":
			ts = val
			continue
		case "msg":
			msg = val
			continue
		case "level":
			lvl = val
			continue
		case "stacktrace":
			stacktrace = val
			continue
		}

		pair := fmt.Sprintf("\033[34m%+v\033[39m=%+v", key, val)
		if len(fmt.Sprintf("%+v", val)) > 50 {
			longs = append(longs, pair)
			continue
		}
		shorts = append(shorts, pair)
	}

	pvals := []interface{}{}
	if ts != nil {
		pvals = append(pvals, fmt.Sprintf("\033[36m%s\033[0m", ts))
	}

	if msg != nil {
		pvals = append(pvals, fmt.Sprintf("\033[%sm%v", levelColour(lvl), msg))
	}

	pvals = append(pvals, shorts...)
	if len(longs) > 0 {
		pvals = append(pvals, "\n")
		for _, long := range longs {
			pvals = append(pvals, "          ", long, "\n")
		}
	}

	if stacktrace != nil {
		pvals = append(pvals, fmt.Sprintf("\n%s", stacktrace), "\n")
	}

	return fmt.Sprintln(pvals...)
}

func levelColour(lvl interface{}) string {
	switch fmt.Sprint(lvl) {
	case "crit":
		return "35"
	case "error":
		return "31"
	case "warn":
		return "33"
	case "info":
		return "32"
	case "debug":
		return "90"
	}
	return "39"
}
