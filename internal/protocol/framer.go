package protocol

import (
	"bytes"
	"strings"
)

// MaxLineLength bounds the partial line kept between chunks. A peer that
// streams this many bytes without a newline has its pending data dropped.
const MaxLineLength = 64 * 1024

// Framer accumulates received bytes and yields complete lines. It is not
// safe for concurrent use; the link's read loop is its only caller.
type Framer struct {
	buf       []byte
	overflows int
}

// Feed appends chunk to the buffer and returns every complete line it now
// holds, trimmed of surrounding whitespace. Empty lines are dropped and a
// trailing partial line stays buffered for the next call. Invalid UTF-8 is
// removed per line, so a multi-byte rune split across chunks survives.
func (f *Framer) Feed(chunk []byte) []string {
	f.buf = append(f.buf, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSpace(strings.ToValidUTF8(string(f.buf[:i]), ""))
		f.buf = f.buf[i+1:]
		if line != "" {
			lines = append(lines, line)
		}
	}

	if len(f.buf) > MaxLineLength {
		f.buf = nil
		f.overflows++
	}

	return lines
}

// Pending returns the number of buffered bytes not yet terminated by a newline.
func (f *Framer) Pending() int {
	return len(f.buf)
}

// Overflows returns how many times an over-long partial line was dropped.
func (f *Framer) Overflows() int {
	return f.overflows
}

// Reset discards any partial line, e.g. when a new connection starts.
func (f *Framer) Reset() {
	f.buf = nil
}
