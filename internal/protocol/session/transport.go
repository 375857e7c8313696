package session

import (
	"context"
	"fmt"
	"time"
)

// Transport is the physical side of the SPI link. Every call blocks until
// its logical step is complete.
type Transport interface {
	// Select asserts chip-select.
	Select(ctx context.Context) error
	// Deselect releases chip-select.
	Deselect(ctx context.Context) error
	// ExchangeByte shifts out one byte and returns the byte shifted in.
	ExchangeByte(ctx context.Context, out byte) (byte, error)
	// Delay holds the link idle for d.
	Delay(ctx context.Context, d time.Duration) error
}

const (
	OpSelect   = "select"
	OpExchange = "exchange"
	OpDelay    = "delay"
	OpDeselect = "deselect"
)

// TransportError is a link-level failure reported by the transport.
type TransportError struct {
	Op string
	// Index is the byte position within the frame, -1 when not tied to a byte.
	Index int
	Err   error
}

func (e *TransportError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("session: transport %s byte %d: %v", e.Op, e.Index, e.Err)
	}
	return fmt.Sprintf("session: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
