/*
Package kerrs wraps errors with key/value context and a stacktrace so they
can be logged as structured fields, and aggregates independent errors into
one.
*/
package kerrs

import (
	"fmt"
	"strings"

	merr "github.com/hashicorp/go-multierror"
	jerrs "github.com/jjeffery/errors"
	perrs "github.com/pkg/errors"
)

const missingValue = "<value-missing>"

/*
Wrapv wraps err with message, a stacktrace and the given key/value pairs.
An odd trailing key gets the value "<value-missing>".
*/
func Wrapv(err error, message string, keyvals ...interface{}) error {
	if len(keyvals)%2 == 1 {
		keyvals = append(keyvals, missingValue)
	}
	return perrs.WithStack(jerrs.With(keyvals...).Wrap(err, message))
}

/*
Append collects errs into err. It returns nil when nothing non-nil was
collected, so callers can validate a list of things and return the result
directly.
*/
func Append(err error, errs ...error) error {
	return merr.Append(err, errs...).ErrorOrNil()
}

// Errors flattens an error produced by Append back into its parts.
func Errors(err error) []error {
	if err == nil {
		return nil
	}
	if m, ok := err.(*merr.Error); ok {
		return m.Errors
	}
	return []error{err}
}

type causer interface {
	Cause() error
}

type keyvaluer interface {
	Keyvals() []interface{}
}

/*
Extract walks the cause chain of err and returns the collected key/values,
the joined message of every level and the stacktraces of every wrapping
level, ready to be passed to a logger.
*/
func Extract(err error) (kvs []interface{}, msg string, stacktrace string) {
	if err == nil {
		return
	}

	var (
		msgs        []string
		stacktraces []string
		last        interface{}
	)

	for err != nil {
		last = err.Error()

		c, isCauser := err.(causer)
		if _, isKV := err.(keyvaluer); !isKV && isCauser {
			stacktraces = append(stacktraces, fmt.Sprintf("%+v", err))
		}
		if !isCauser {
			break
		}

		err = c.Cause()
		kver, ok := err.(keyvaluer)
		if !ok {
			continue
		}

		pairs := kver.Keyvals()
		for i := 1; i < len(pairs); i += 2 {
			switch key, val := pairs[i-1], pairs[i]; key {
			case "msg":
				msgs = append(msgs, fmt.Sprintf("%+v", val))
			case "cause":
				last = val
			default:
				kvs = append(kvs, key, val)
			}
		}
	}

	msgs = append(msgs, fmt.Sprintf("%+v", last))
	msg = strings.Join(msgs, ": ")
	stacktrace = strings.Join(stacktraces, "\n\n")
	return
}
