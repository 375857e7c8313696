package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/danmuck/spi2wb/internal/protocol"
)

var ErrInvalidConfig = errors.New("session: invalid config")

// Config is read once when a session is built and never changes afterwards.
type Config struct {
	Mode protocol.AddressMode
	// FrameSpacing is waited between the address phase and the data phase.
	FrameSpacing time.Duration
	// ByteTimeout bounds a single byte exchange. Zero disables it.
	ByteTimeout time.Duration
	Clock       clock.Clock
}

// DefaultConfig waits 100ns between address and data and gives each byte
// one second before the link is declared dead.
func DefaultConfig(mode protocol.AddressMode) Config {
	return Config{
		Mode:         mode,
		FrameSpacing: 100 * time.Nanosecond,
		ByteTimeout:  time.Second,
		Clock:        clock.New(),
	}
}

func (c Config) Validate() error {
	if err := c.Mode.Validate(); err != nil {
		return err
	}
	if c.FrameSpacing < 0 {
		return fmt.Errorf("%w: negative frame spacing %s", ErrInvalidConfig, c.FrameSpacing)
	}
	if c.ByteTimeout < 0 {
		return fmt.Errorf("%w: negative byte timeout %s", ErrInvalidConfig, c.ByteTimeout)
	}
	return nil
}
