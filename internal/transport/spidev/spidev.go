// Package spidev drives the bridge through a Linux spidev port. Chip-select
// is a GPIO held low for the whole frame; the kernel chip-select would
// toggle between the single-byte transfers a session issues.
package spidev

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/danmuck/spi2wb/internal/observability"
)

// Mode is CPOL=0, CPHA=1 with chip-select driven by hand.
const Mode = spi.Mode1 | spi.NoCS

var (
	ErrNoChipSelect = errors.New("spidev: chip-select pin required")
	ErrPinNotFound  = errors.New("spidev: gpio pin not found")
	ErrClosed       = errors.New("spidev: transport closed")
)

type Config struct {
	// Port is a spireg name such as "/dev/spidev0.0" or "SPI0.0".
	Port       string
	ChipSelect string
	Speed      physic.Frequency
	Clock      clock.Clock
}

func DefaultConfig() Config {
	return Config{Port: "/dev/spidev0.0", Speed: physic.MegaHertz, Clock: clock.New()}
}

// Transport implements session.Transport over a periph.io SPI connection.
type Transport struct {
	mu     sync.Mutex
	port   spi.PortCloser
	conn   spi.Conn
	cs     gpio.PinOut
	clock  clock.Clock
	closed bool
	logger zerolog.Logger
}

var initOnce sync.Once
var initErr error

// Open initializes the host drivers and opens the configured port and pin.
func Open(cfg Config) (*Transport, error) {
	if strings.TrimSpace(cfg.ChipSelect) == "" {
		return nil, ErrNoChipSelect
	}
	initOnce.Do(func() {
		_, initErr = host.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("spidev: host init: %w", initErr)
	}
	pin := gpioreg.ByName(cfg.ChipSelect)
	if pin == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, cfg.ChipSelect)
	}
	port, err := spireg.Open(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("spidev: open %s: %w", cfg.Port, err)
	}
	t, err := New(port, pin, cfg)
	if err != nil {
		return nil, multierr.Append(err, port.Close())
	}
	return t, nil
}

// New connects port in bridge mode and parks cs high. The transport owns
// port and closes it on Close.
func New(port spi.PortCloser, cs gpio.PinOut, cfg Config) (*Transport, error) {
	if cs == nil {
		return nil, ErrNoChipSelect
	}
	if cfg.Speed <= 0 {
		cfg.Speed = physic.MegaHertz
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	conn, err := port.Connect(cfg.Speed, Mode, 8)
	if err != nil {
		return nil, fmt.Errorf("spidev: connect %s: %w", cfg.Speed, err)
	}
	if err := cs.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("spidev: park chip-select: %w", err)
	}
	return &Transport{
		port:   port,
		conn:   conn,
		cs:     cs,
		clock:  cfg.Clock,
		logger: observability.Component("spidev").With().Str("port", port.String()).Str("cs", cs.Name()).Logger(),
	}, nil
}

func (t *Transport) Select(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	return t.cs.Out(gpio.Low)
}

func (t *Transport) Deselect(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	return t.cs.Out(gpio.High)
}

func (t *Transport) ExchangeByte(ctx context.Context, out byte) (byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, ErrClosed
	}
	rx := make([]byte, 1)
	if err := t.conn.Tx([]byte{out}, rx); err != nil {
		return 0, err
	}
	return rx[0], nil
}

func (t *Transport) Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := t.clock.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close releases chip-select and the port.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	err := multierr.Combine(t.cs.Out(gpio.High), t.port.Close())
	if err != nil {
		t.logger.Warn().Err(err).Msg("close")
	}
	return err
}
