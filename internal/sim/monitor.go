package sim

import (
	"context"
	"sync/atomic"

	"github.com/danmuck/spi2wb/internal/bus"
	"github.com/danmuck/spi2wb/internal/observability"
	"github.com/rs/zerolog"
)

// Monitor watches bus samples and appends one transaction per completed
// handshake. It is the only writer of its log.
type Monitor struct {
	samples <-chan Signals
	log     bus.Recorder
	logger  zerolog.Logger
	seen    atomic.Uint64
}

func NewMonitor(samples <-chan Signals, log bus.Recorder) *Monitor {
	return &Monitor{
		samples: samples,
		log:     log,
		logger:  observability.Component("sim.monitor"),
	}
}

// Run consumes samples until the stream is closed or ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-m.samples:
			if !ok {
				m.logger.Debug().Uint64("samples", m.seen.Load()).Msg("sim.Monitor stream closed")
				return nil
			}
			m.seen.Add(1)
			if !s.Handshake() {
				continue
			}
			tx := bus.Transaction{Address: uint32(s.Adr), Write: s.We, Data: s.DatRd}
			if s.We {
				tx.Data = s.DatWr
			}
			m.log.Append(tx)
		}
	}
}

// Seen is the number of samples consumed so far.
func (m *Monitor) Seen() uint64 {
	return m.seen.Load()
}
