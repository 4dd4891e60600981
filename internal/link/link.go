package link

import (
	"context"
	"io"
	"sync"
	"time"

	"codeberg.org/mutker/weldctl/internal/errors"
	"codeberg.org/mutker/weldctl/internal/logger"
	"codeberg.org/mutker/weldctl/internal/protocol"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// LineSink receives every complete inbound line, in order, on the link's
// read goroutine.
type LineSink interface {
	HandleLine(line string)
}

// LineSinkFunc adapts a function to LineSink.
type LineSinkFunc func(line string)

func (f LineSinkFunc) HandleLine(line string) { f(line) }

// StateObserver is told about every state change, on the link's goroutine
// and after the new state is visible to State and Send.
type StateObserver interface {
	LinkStateChanged(State)
}

type Option func(*Link)

func WithDialer(d Dialer) Option {
	return func(l *Link) { l.dialer = d }
}

// WithClock replaces the clock used for the silence watchdog.
func WithClock(now func() time.Time) Option {
	return func(l *Link) { l.now = now }
}

func WithStateObserver(o StateObserver) Option {
	return func(l *Link) { l.observer = o }
}

// Link keeps one TCP connection to the welder alive, reconnecting after
// errors and after prolonged silence.
type Link struct {
	cfg      Config
	dialer   Dialer
	sink     LineSink
	observer StateObserver
	logger   logger.Logger
	now      func() time.Time

	// owned by the supervising goroutine
	framer protocol.Framer

	mu           sync.RWMutex
	state        State
	lastActivity time.Time
	conn         *transport

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config, sink LineSink, log logger.Logger, opts ...Option) (*Link, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Link{
		cfg:    cfg,
		dialer: TCPDialer{Timeout: cfg.ConnectTimeout},
		sink:   sink,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Start launches the supervising goroutine. It returns false when the link
// is already running.
func (l *Link) Start(ctx context.Context) bool {
	l.runMu.Lock()
	defer l.runMu.Unlock()

	if l.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})

	go l.run(ctx, l.done)

	l.logger.Info().Str("addr", l.cfg.Addr).Msg("Link started")

	return true
}

// Stop closes the connection and waits for the supervising goroutine to exit.
// A concurrent Start blocks until the old supervisor is gone. Must not be
// called from a LineSink or StateObserver.
func (l *Link) Stop() {
	l.runMu.Lock()
	defer l.runMu.Unlock()

	if l.cancel == nil {
		return
	}

	l.cancel()
	<-l.done
	l.cancel, l.done = nil, nil

	l.logger.Info().Msg("Link stopped")
}

// Send writes one command line. It fails with ErrNotConnected without
// touching the network unless the link is connected. A failed write closes
// the connection so the supervisor reconnects.
func (l *Link) Send(cmd string) error {
	errFactory := errors.New()

	l.mu.RLock()
	state, t := l.state, l.conn
	l.mu.RUnlock()

	if state != Connected || t == nil {
		return errFactory.New(ErrNotConnected).WithData(cmd)
	}

	if err := t.write(protocol.Frame(cmd), l.cfg.ConnectTimeout); err != nil {
		l.logger.Warn().Err(err).Str("cmd", cmd).Msg("Write failed, dropping connection")
		t.Close()
		return errFactory.Wrap(ErrWrite, err).WithData(cmd)
	}

	l.logger.Debug().Str("cmd", cmd).Msg("Sent")

	return nil
}

func (l *Link) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *Link) Connected() bool {
	return l.State() == Connected
}

// LastActivity returns when the last byte was received.
func (l *Link) LastActivity() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastActivity
}

func (l *Link) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		err := l.session(ctx)

		if ctx.Err() != nil {
			return
		}

		l.logger.Warn().
			Err(err).
			Dur("retry_in", l.cfg.RetryCooldown).
			Msg("Link down")

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.cfg.RetryCooldown):
		}
	}
}

// session dials once and serves the connection until it fails.
func (l *Link) session(ctx context.Context) error {
	errFactory := errors.New()

	l.setState(Connecting, nil)

	dialCtx, cancel := context.WithTimeout(ctx, l.cfg.ConnectTimeout)
	conn, err := l.dialer.Dial(dialCtx, l.cfg.Addr)
	cancel()
	if err != nil {
		l.setState(Disconnected, nil)
		return errFactory.Wrap(ErrDial, err).WithData(l.cfg.Addr)
	}

	t := newTransport(conn)
	stop := context.AfterFunc(ctx, func() { t.Close() })
	defer func() {
		stop()
		t.Close()
		l.setState(Disconnected, nil)
	}()

	l.framer.Reset()
	l.setState(Connected, t)
	l.logger.Info().Str("addr", l.cfg.Addr).Msg("Connected")

	return l.serve(t)
}

func (l *Link) serve(t *transport) error {
	errFactory := errors.New()
	buf := make([]byte, readBufferSize)

	for {
		if err := t.conn.SetReadDeadline(time.Now().Add(l.cfg.ReadTimeout)); err != nil {
			return errFactory.Wrap(ErrRead, err)
		}

		n, err := t.conn.Read(buf)
		if n > 0 {
			l.touch()
			for _, line := range l.framer.Feed(buf[:n]) {
				l.sink.HandleLine(line)
			}
		}

		switch {
		case err == nil:
		case isTimeout(err):
		case errors.Is(err, io.EOF):
			return errFactory.WithMessage(ErrRead, "Connection closed by peer")
		default:
			return errFactory.Wrap(ErrRead, err)
		}

		if n == 0 {
			if idle := l.now().Sub(l.LastActivity()); idle > l.cfg.SilenceTimeout {
				return errFactory.WithData(ErrSilence, idle.String())
			}
		}
	}
}

func (l *Link) touch() {
	l.mu.Lock()
	l.lastActivity = l.now()
	l.mu.Unlock()
}

// setState publishes the new state and the transport that goes with it,
// then notifies the observer outside the lock.
func (l *Link) setState(state State, t *transport) {
	l.mu.Lock()
	changed := l.state != state
	l.state = state
	l.conn = t
	if state == Connected {
		l.lastActivity = l.now()
	}
	l.mu.Unlock()

	if changed && l.observer != nil {
		l.observer.LinkStateChanged(state)
	}
}
