package httpclient

import (
	"bytes"
	"net/http"
	"strings"
	"unicode/utf8"
)

// BufferAccumulator holds the bytes of one response body. It always
// counts the bytes seen; it keeps them only when recording, and then at
// most limit bytes (limit <= 0 keeps everything).
type BufferAccumulator struct {
	record bool
	limit  int

	size      int64
	chunks    [][]byte
	retained  int
	truncated bool
}

func NewBufferAccumulator(record bool, limit int) *BufferAccumulator {
	return &BufferAccumulator{record: record, limit: limit}
}

// Append counts chunk and, when recording, keeps a copy of it.
func (b *BufferAccumulator) Append(chunk []byte) {
	b.size += int64(len(chunk))
	if !b.record || len(chunk) == 0 {
		return
	}

	if b.limit > 0 {
		room := b.limit - b.retained
		if b.truncated || room <= 0 {
			b.truncated = true
			return
		}
		if len(chunk) > room {
			chunk = chunk[:runeBoundary(chunk, room)]
			b.truncated = true
			if len(chunk) == 0 {
				return
			}
		}
	}

	c := make([]byte, len(chunk))
	copy(c, chunk)
	b.chunks = append(b.chunks, c)
	b.retained += len(c)
}

// runeBoundary moves a cut at n back to the start of the rune it splits.
// Bytes that do not look like UTF-8 are cut at n.
func runeBoundary(p []byte, n int) int {
	cut := n
	for i := 1; i < utf8.UTFMax && cut > 0 && !utf8.RuneStart(p[cut]); i++ {
		cut--
	}
	if !utf8.RuneStart(p[cut]) {
		return n
	}
	return cut
}

func (b *BufferAccumulator) TotalSize() int64 {
	return b.size
}

// Snapshot concatenates the kept chunks in arrival order.
func (b *BufferAccumulator) Snapshot() []byte {
	return bytes.Join(b.chunks, nil)
}

// Truncated reports whether bytes were dropped because of the limit.
func (b *BufferAccumulator) Truncated() bool {
	return b.truncated
}

// Clear drops everything. It is safe on a nil accumulator.
func (b *BufferAccumulator) Clear() {
	if b == nil {
		return
	}
	b.chunks = nil
	b.size = 0
	b.retained = 0
	b.truncated = false
}

// BufferTransformer turns a recorded response body into the value logged
// on the span under "response".
type BufferTransformer func(body []byte, resp *http.Response) (interface{}, error)

// DefaultBufferTransformer decodes the body as UTF-8 text. Each invalid
// byte becomes U+FFFD; it never fails.
func DefaultBufferTransformer(body []byte, _ *http.Response) (interface{}, error) {
	if utf8.Valid(body) {
		return string(body), nil
	}

	var sb strings.Builder
	sb.Grow(len(body))
	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		sb.WriteRune(r)
		body = body[size:]
	}
	return sb.String(), nil
}
