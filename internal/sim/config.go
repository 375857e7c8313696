package sim

import (
	"fmt"
	"time"

	"github.com/danmuck/spi2wb/internal/protocol"
)

type Config struct {
	Mode protocol.AddressMode
	// Period is the bus clock period used to turn Delay durations into cycles.
	Period time.Duration
	// SettleCycles are clocked by Settle before a log snapshot.
	SettleCycles int
	// ReadAhead fetches the next burst word as soon as the current one has
	// been shifted out, like the RTL does. A burst read of N words then
	// shows N+1 bus reads.
	ReadAhead bool
}

func DefaultConfig(mode protocol.AddressMode) Config {
	return Config{
		Mode:         mode,
		Period:       time.Nanosecond,
		SettleCycles: 10,
	}
}

func (c Config) Validate() error {
	if err := c.Mode.Validate(); err != nil {
		return err
	}
	if c.Period <= 0 {
		return fmt.Errorf("sim: bus clock period must be positive, got %s", c.Period)
	}
	if c.SettleCycles < 1 {
		return fmt.Errorf("sim: settle cycles must be at least 1, got %d", c.SettleCycles)
	}
	return nil
}
