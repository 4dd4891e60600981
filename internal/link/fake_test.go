package link_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"codeberg.org/mutker/weldctl/internal/link"
)

// fakeConn delivers scripted chunks. Without pending data a Read times out
// after a short pause, like a socket with a read deadline.
type fakeConn struct {
	chunks chan []byte

	mu       sync.Mutex
	written  bytes.Buffer
	writeErr error
	closed   bool
	eof      bool
	done     chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{chunks: make(chan []byte, 16), done: make(chan struct{})}
}

func (c *fakeConn) push(s string) { c.chunks <- []byte(s) }

// hangUp makes the next Read report EOF.
func (c *fakeConn) hangUp() {
	c.mu.Lock()
	c.eof = true
	c.mu.Unlock()
}

func (c *fakeConn) Read(p []byte) (int, error) {
	select {
	case b := <-c.chunks:
		return copy(p, b), nil
	case <-c.done:
		return 0, net.ErrClosed
	case <-time.After(2 * time.Millisecond):
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eof {
		return 0, io.EOF
	}
	return 0, os.ErrDeadlineExceeded
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	return c.written.Write(p)
}

func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) writes() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written.String()
}

// fakeDialer hands out the queued conns in order, then fails.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials int
}

func (d *fakeDialer) Dial(context.Context, string) (link.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.conns) == 0 {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: os.ErrNotExist}
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *lineRecorder) HandleLine(line string) {
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()
}

func (r *lineRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

type stateRecorder struct {
	mu     sync.Mutex
	states []link.State
}

func (r *stateRecorder) LinkStateChanged(s link.State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *stateRecorder) all() []link.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]link.State(nil), r.states...)
}

// blockingObserver holds the supervisor inside its first Disconnected
// callback until release is closed.
type blockingObserver struct {
	stateRecorder
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newBlockingObserver() *blockingObserver {
	return &blockingObserver{entered: make(chan struct{}), release: make(chan struct{})}
}

func (o *blockingObserver) LinkStateChanged(s link.State) {
	o.stateRecorder.LinkStateChanged(s)
	if s != link.Disconnected {
		return
	}
	o.once.Do(func() { close(o.entered) })
	<-o.release
}
