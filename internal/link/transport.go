package link

import (
	"context"
	"net"
	"os"
	"sync"
	"time"

	"codeberg.org/mutker/weldctl/internal/errors"
)

const keepAlive = 15 * time.Second

// Conn is the subset of net.Conn the link uses.
type Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Dialer opens a connection to the welder.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Conn, error)
}

// TCPDialer dials plain TCP.
type TCPDialer struct {
	Timeout time.Duration
}

func (d TCPDialer) Dial(ctx context.Context, addr string) (Conn, error) {
	nd := net.Dialer{Timeout: d.Timeout, KeepAlive: keepAlive}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// transport owns one connection. Close is safe to call from the read loop,
// a failed Send and Stop at the same time.
type transport struct {
	conn Conn

	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

func newTransport(conn Conn) *transport {
	return &transport{conn: conn}
}

func (t *transport) write(p []byte, timeout time.Duration) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	_, err := t.conn.Write(p)
	return err
}

func (t *transport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
