package httpclient

import (
	"strings"
	"testing"
)

func TestBufferAccumulator(t *testing.T) {
	b := NewBufferAccumulator(true, 0)

	chunk := []byte("He")
	b.Append(chunk)
	chunk[0] = 'X'
	b.Append([]byte("llo"))

	if got := string(b.Snapshot()); got != "Hello" {
		t.Fatalf("chunks should be copied and joined in order, got %q", got)
	}
	if b.TotalSize() != 5 || b.Truncated() {
		t.Fatalf("unexpected size %d truncated %v", b.TotalSize(), b.Truncated())
	}

	b.Clear()
	if b.TotalSize() != 0 || len(b.Snapshot()) != 0 {
		t.Fatalf("clear should drop everything")
	}

	var nilBuf *BufferAccumulator
	nilBuf.Clear()
}

func TestBufferAccumulator_Limit(t *testing.T) {
	b := NewBufferAccumulator(true, 4)
	b.Append([]byte("abc"))
	b.Append([]byte("def"))
	b.Append([]byte("g"))

	if got := string(b.Snapshot()); got != "abcd" {
		t.Fatalf("expected abcd, got %q", got)
	}
	if b.TotalSize() != 7 || !b.Truncated() {
		t.Fatalf("unexpected size %d truncated %v", b.TotalSize(), b.Truncated())
	}
}

func TestBufferAccumulator_LimitKeepsRunes(t *testing.T) {
	b := NewBufferAccumulator(true, 5)
	b.Append([]byte(strings.Repeat("é", 10)))
	b.Append([]byte("é"))

	if got := string(b.Snapshot()); got != "éé" {
		t.Fatalf("cut should fall on a rune boundary, got %q", got)
	}
	if b.TotalSize() != 22 || !b.Truncated() {
		t.Fatalf("unexpected size %d truncated %v", b.TotalSize(), b.Truncated())
	}

	bin := NewBufferAccumulator(true, 2)
	bin.Append([]byte{0x80, 0x80, 0x80, 0x80})
	if got := bin.Snapshot(); len(got) != 2 {
		t.Fatalf("non UTF-8 bytes should be cut at the limit, got %v", got)
	}
}

func TestBufferAccumulator_NotRecording(t *testing.T) {
	b := NewBufferAccumulator(false, 0)
	b.Append([]byte("Hello"))

	if b.TotalSize() != 5 || len(b.Snapshot()) != 0 {
		t.Fatalf("only the size should be kept, got %d %q", b.TotalSize(), b.Snapshot())
	}
}

func TestDefaultBufferTransformer(t *testing.T) {
	cases := []struct {
		body     string
		expected string
	}{
		{"héllo", "héllo"},
		{"", ""},
		{"caf\xe9 ok", "caf\uFFFD ok"},
		{"\xff\xfe", "\uFFFD\uFFFD"},
		{"ab\xc3", "ab\uFFFD"},
	}

	for _, c := range cases {
		v, err := DefaultBufferTransformer([]byte(c.body), nil)
		if err != nil || v != c.expected {
			t.Errorf("%q: expected %q, got %q %v", c.body, c.expected, v, err)
		}
	}
}
