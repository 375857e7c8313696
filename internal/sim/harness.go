package sim

import (
	"context"
	"errors"

	"github.com/danmuck/spi2wb/internal/bus"
	"golang.org/x/sync/errgroup"
)

// Harness is a bridge whose bus clock feeds a monitor goroutine.
type Harness struct {
	Bridge  *Bridge
	Log     *bus.Log
	Monitor *Monitor

	cancel context.CancelFunc
	group  *errgroup.Group
}

// Start builds a bridge and runs its monitor until Close.
func Start(ctx context.Context, cfg Config) (*Harness, error) {
	b, err := NewBridge(cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)

	b.samples = make(chan Signals)
	b.stopped = gctx.Done()
	log := bus.NewLog()
	mon := NewMonitor(b.samples, log)
	group.Go(func() error {
		return mon.Run(gctx)
	})

	return &Harness{
		Bridge:  b,
		Log:     log,
		Monitor: mon,
		cancel:  cancel,
		group:   group,
	}, nil
}

func (h *Harness) Settle(ctx context.Context) error {
	return h.Bridge.Settle(ctx)
}

// Close ends the sample stream and waits for the monitor.
func (h *Harness) Close() error {
	_ = h.Bridge.Close()
	err := h.group.Wait()
	h.cancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
