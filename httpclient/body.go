package httpclient

import (
	"io"
)

// observedBody turns reads of a response body into exchange events: data
// for every non-empty read, end on io.EOF or Close, error otherwise.
type observedBody struct {
	io.ReadCloser
	ex *Exchange
}

func (b *observedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 {
		b.ex.Data(p[:n])
	}

	switch {
	case err == io.EOF:
		b.ex.End()
	case err != nil:
		b.ex.Error(err)
	}
	return n, err
}

func (b *observedBody) Close() error {
	err := b.ReadCloser.Close()
	b.ex.End()
	return err
}
