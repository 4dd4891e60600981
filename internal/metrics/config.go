package metrics

import (
	"net"

	"codeberg.org/mutker/weldctl/internal/errors"
)

const (
	defaultAddr = ":9110"
	namespace   = "weldctl"
)

type Config struct {
	Enabled bool
	Addr    string
}

func DefaultConfig() Config {
	return Config{
		Addr:    defaultAddr,
		Enabled: false, // Disabled by default
	}
}

func (c Config) Validate() error {
	// Only validate the address if metrics is enabled
	if !c.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return errors.New().Wrap(ErrInvalidAddr, err).WithData(c.Addr)
	}
	return nil
}
