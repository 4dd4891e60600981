package link

import (
	"time"

	"codeberg.org/mutker/weldctl/internal/errors"
)

const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultReadTimeout    = time.Second
	DefaultSilenceTimeout = 30 * time.Second
	DefaultRetryCooldown  = 3 * time.Second

	readBufferSize = 4096
)

type Config struct {
	Addr           string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	// SilenceTimeout force-closes a connection that delivered no bytes for
	// this long, even though the socket still looks open.
	SilenceTimeout time.Duration
	RetryCooldown  time.Duration
}

func DefaultConfig(addr string) Config {
	return Config{
		Addr:           addr,
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    DefaultReadTimeout,
		SilenceTimeout: DefaultSilenceTimeout,
		RetryCooldown:  DefaultRetryCooldown,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch {
	case c.Addr == "":
		return errFactory.WithData(ErrInvalidConfig, "empty address")
	case c.ConnectTimeout <= 0, c.ReadTimeout <= 0, c.SilenceTimeout <= 0, c.RetryCooldown <= 0:
		return errFactory.WithData(ErrInvalidConfig, "timeouts must be positive")
	case c.ReadTimeout >= c.SilenceTimeout:
		return errFactory.WithData(ErrInvalidConfig, "read timeout must be shorter than silence timeout")
	}
	return nil
}
