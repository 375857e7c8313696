package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/spi2wb/internal/observability"
	"github.com/danmuck/spi2wb/internal/protocol"
	"github.com/rs/zerolog"
)

var (
	ErrLinkFault   = errors.New("sim: injected link fault")
	ErrNotSelected = errors.New("sim: exchange without chip-select")
	ErrClosed      = errors.New("sim: bridge closed")
)

// Bridge models the SPI slave and Wishbone master of the bridge together
// with the register file behind it.
type Bridge struct {
	mu      sync.Mutex
	cfg     Config
	mem     []protocol.Word
	samples chan Signals
	stopped <-chan struct{}
	closed  bool
	cycle   uint64
	logger  zerolog.Logger

	// frame state, cleared on every chip-select edge
	selected bool
	header   []byte
	cmd      protocol.Command
	decoded  bool
	addr     uint16
	word     []byte
	shift    []byte
	done     int

	faultArmed bool
	faultAfter int
	writeXor   protocol.Word
}

// NewBridge returns a bridge whose bus clock is not observed. Use Start to
// get one wired to a monitor.
func NewBridge(cfg Config) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Bridge{
		cfg:    cfg,
		mem:    make([]protocol.Word, int(cfg.Mode.AddressMask())+1),
		logger: observability.Component("sim"),
	}, nil
}

func (b *Bridge) Mode() protocol.AddressMode {
	return b.cfg.Mode
}

// Cycle is the number of bus clock cycles elapsed.
func (b *Bridge) Cycle() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cycle
}

func (b *Bridge) Select(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.resetFrame()
	b.selected = true
	return ctx.Err()
}

// Deselect ends the frame. A partially shifted word is dropped, as the RTL
// does on a chip-select release.
func (b *Bridge) Deselect(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.resetFrame()
	return nil
}

func (b *Bridge) ExchangeByte(ctx context.Context, out byte) (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrClosed
	}
	if !b.selected {
		return 0, ErrNotSelected
	}
	if b.faultArmed {
		if b.faultAfter == 0 {
			b.faultArmed = false
			return 0, ErrLinkFault
		}
		b.faultAfter--
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if !b.decoded {
		b.header = append(b.header, out)
		if len(b.header) < b.cfg.Mode.AddressBytes() {
			return 0, nil
		}
		cmd, err := protocol.ParseAddress(b.cfg.Mode, b.header)
		if err != nil {
			return 0, err
		}
		b.cmd, b.decoded, b.addr = cmd, true, cmd.Address
		if !cmd.Write && b.cfg.ReadAhead {
			return 0, b.fetch(ctx)
		}
		return 0, nil
	}
	if b.cmd.Write {
		return 0, b.writeByte(ctx, out)
	}
	return b.readByte(ctx)
}

// Delay clocks the bus idle for d, rounded up to whole cycles.
func (b *Bridge) Delay(ctx context.Context, d time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cycles := int((d + b.cfg.Period - 1) / b.cfg.Period)
	return b.idle(ctx, cycles)
}

// Settle clocks SettleCycles idle cycles. Samples travel over an unbuffered
// channel to a monitor that handles them one at a time, so once the last
// idle sample is accepted every earlier handshake has been logged.
func (b *Bridge) Settle(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.idle(ctx, b.cfg.SettleCycles)
}

// Peek reads the register file without a bus access.
func (b *Bridge) Peek(addr uint16) (protocol.Word, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int(addr) >= len(b.mem) {
		return 0, fmt.Errorf("%w: peek 0x%X", protocol.ErrAddressOutOfRange, addr)
	}
	return b.mem[addr], nil
}

// Poke writes the register file without a bus access.
func (b *Bridge) Poke(addr uint16, v protocol.Word) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int(addr) >= len(b.mem) {
		return fmt.Errorf("%w: poke 0x%X", protocol.ErrAddressOutOfRange, addr)
	}
	b.mem[addr] = v & b.cfg.Mode.MaxWord()
	return nil
}

// Reset clears the register file and any frame in flight.
func (b *Bridge) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.mem)
	b.resetFrame()
}

// FailAfter lets n more byte exchanges succeed and fails the next one.
func (b *Bridge) FailAfter(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faultArmed, b.faultAfter = true, n
}

// CorruptWrites XORs every subsequent bus write with mask. Zero disables it.
func (b *Bridge) CorruptWrites(mask protocol.Word) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeXor = mask
}

// Close stops the bus clock; the monitor sees the sample stream end.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.samples != nil {
		close(b.samples)
	}
	return nil
}

func (b *Bridge) resetFrame() {
	b.selected = false
	b.header = b.header[:0]
	b.cmd = protocol.Command{}
	b.decoded = false
	b.word = b.word[:0]
	b.shift = nil
	b.done = 0
}

func (b *Bridge) writeByte(ctx context.Context, in byte) error {
	if b.done > 0 && !b.cmd.Burst {
		return nil
	}
	b.word = append(b.word, in)
	if len(b.word) < b.cfg.Mode.WordBytes() {
		return nil
	}
	var v protocol.Word
	for _, x := range b.word {
		v = v<<8 | protocol.Word(x)
	}
	b.word = b.word[:0]
	v = (v ^ b.writeXor) & b.cfg.Mode.MaxWord()
	b.mem[b.addr] = v
	if err := b.access(ctx, true, b.addr, v); err != nil {
		return err
	}
	b.done++
	b.advance()
	return nil
}

func (b *Bridge) readByte(ctx context.Context) (byte, error) {
	if len(b.shift) == 0 {
		if b.done > 0 && !b.cmd.Burst {
			return 0, nil
		}
		if err := b.fetch(ctx); err != nil {
			return 0, err
		}
	}
	out := b.shift[0]
	b.shift = b.shift[1:]
	if len(b.shift) == 0 {
		b.done++
		if b.cmd.Burst && b.cfg.ReadAhead {
			return out, b.fetch(ctx)
		}
	}
	return out, nil
}

// fetch reads the current address over the bus into the shift register.
func (b *Bridge) fetch(ctx context.Context) error {
	v := b.mem[b.addr]
	if err := b.access(ctx, false, b.addr, v); err != nil {
		return err
	}
	if b.cfg.Mode.WordBytes() == 2 {
		b.shift = []byte{byte(v >> 8), byte(v)}
	} else {
		b.shift = []byte{byte(v)}
	}
	b.advance()
	return nil
}

// advance moves to the next burst address, wrapping inside the address
// space like the hardware counter.
func (b *Bridge) advance() {
	if b.cmd.Burst {
		b.addr = (b.addr + 1) & b.cfg.Mode.AddressMask()
	}
}

func (b *Bridge) access(ctx context.Context, write bool, addr uint16, v protocol.Word) error {
	sig := Signals{Cyc: true, Stb: true, We: write, Adr: addr}
	if write {
		sig.DatWr = v
	}
	if err := b.tick(ctx, sig); err != nil {
		return err
	}
	sig.Ack = true
	if !write {
		sig.DatRd = v
	}
	if err := b.tick(ctx, sig); err != nil {
		return err
	}
	b.logger.Trace().Bool("we", write).Uint16("adr", addr).Uint16("dat", uint16(v)).Uint64("cycle", b.cycle).Msg("sim.access")
	return b.tick(ctx, Signals{})
}

func (b *Bridge) idle(ctx context.Context, cycles int) error {
	if b.closed {
		return ErrClosed
	}
	for i := 0; i < cycles; i++ {
		if err := b.tick(ctx, Signals{}); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bridge) tick(ctx context.Context, sig Signals) error {
	b.cycle++
	sig.Cycle = b.cycle
	if b.samples == nil {
		return nil
	}
	select {
	case b.samples <- sig:
		return nil
	case <-b.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
