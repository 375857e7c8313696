// Package loopback provides a byte transport whose device side mirrors
// every byte it receives, as MISO tied to MOSI would.
package loopback

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotSelected = errors.New("loopback: exchange without chip-select")

// Transport mirrors bytes back and keeps a record of the link activity.
type Transport struct {
	mu       sync.Mutex
	selected bool
	sent     []byte
	frames   [][]byte
	delays   []time.Duration
}

func New() *Transport {
	return &Transport{}
}

func (t *Transport) Select(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selected = true
	t.sent = nil
	return ctx.Err()
}

func (t *Transport) Deselect(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.selected {
		t.frames = append(t.frames, t.sent)
	}
	t.selected = false
	t.sent = nil
	return nil
}

func (t *Transport) ExchangeByte(ctx context.Context, out byte) (byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.selected {
		return 0, ErrNotSelected
	}
	t.sent = append(t.sent, out)
	return out, nil
}

func (t *Transport) Delay(ctx context.Context, d time.Duration) error {
	t.mu.Lock()
	t.delays = append(t.delays, d)
	t.mu.Unlock()
	return ctx.Err()
}

// Frames returns the bytes of every completed chip-select window.
func (t *Transport) Frames() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.frames))
	for i, f := range t.frames {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

func (t *Transport) Delays() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.delays...)
}
