// Command prettylog reads logfmt lines on stdin and prints them in the
// coloured human format. Lines that aren't logfmt pass through.
//
//	clienttrace get http://localhost:9801 2>&1 | prettylog
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/kr/logfmt"
	"github.com/theplant/clienttrace/log"
)

type kvs []interface{}

func (k *kvs) HandleLogfmt(key, val []byte) error {
	*k = append(*k, string(key), string(val))
	return nil
}

func main() {
	if err := prettify(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func prettify(r io.Reader, w io.Writer) error {
	buf := bufio.NewReader(r)

	for {
		line, err := buf.ReadBytes('\n')

		if len(line) > 0 {
			if out, ok := format(line); ok {
				fmt.Fprint(w, out)
			} else {
				fmt.Fprint(w, string(line))
			}
		}

		// break after, to not miss the last line before EOF
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
	}
}

func format(line []byte) (string, bool) {
	var data kvs
	if err := logfmt.Unmarshal(line, &data); err != nil {
		return "", false
	}

	valLen := 0
	for i := 1; i < len(data); i += 2 {
		valLen += len(data[i].(string))
	}
	if valLen == 0 {
		return "", false
	}
	return log.PrettyFormat(data...), true
}
