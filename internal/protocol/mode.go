package protocol

import "fmt"

const (
	// WriteFlag is ORed into a simple-mode address byte for writes.
	WriteFlag byte = 0x80
	// BurstFlag is ORed into a simple-mode address byte for bursts.
	BurstFlag byte = 0x40
	// ExtWriteFlag is the write flag of a big-endian extended address.
	ExtWriteFlag uint16 = 0x8000
	// ExtBurstFlag is the burst flag of a big-endian extended address.
	ExtBurstFlag uint16 = 0x4000
)

// Word is one bus data word. 8-bit modes use the low byte only.
type Word uint16

// AddressMode fixes the frame layout for the lifetime of a session.
// The zero value is invalid; build one with NewAddressMode.
type AddressMode struct {
	width    int
	extended bool
	burst    bool
}

// NewAddressMode validates and returns an address mode.
func NewAddressMode(wordWidth int, extended, burst bool) (AddressMode, error) {
	m := AddressMode{width: wordWidth, extended: extended, burst: burst}
	if err := m.Validate(); err != nil {
		return AddressMode{}, err
	}
	return m, nil
}

// MustAddressMode is NewAddressMode for constant configurations.
func MustAddressMode(wordWidth int, extended, burst bool) AddressMode {
	m, err := NewAddressMode(wordWidth, extended, burst)
	if err != nil {
		panic(err)
	}
	return m
}

func (m AddressMode) Validate() error {
	switch m.width {
	case 8, 16:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedWidth, m.width)
	}
}

func (m AddressMode) WordWidth() int { return m.width }
func (m AddressMode) Extended() bool { return m.extended }
func (m AddressMode) BurstCapable() bool { return m.burst }
func (m AddressMode) WordBytes() int { return m.width / 8 }
func (m AddressMode) MaxWord() Word { return Word(1<<m.width - 1) }

// AddressBytes is the length of the address phase.
func (m AddressMode) AddressBytes() int {
	if m.extended {
		return 2
	}
	return 1
}

// AddressMask covers the address bits left after reserving the write flag
// and, for burst capable modes, the burst flag.
func (m AddressMode) AddressMask() uint16 {
	bits := 8*m.AddressBytes() - 1
	if m.burst {
		bits--
	}
	return uint16(1)<<bits - 1
}

func (m AddressMode) String() string {
	addr := "simple"
	if m.extended {
		addr = "extended"
	}
	return fmt.Sprintf("width=%d address=%s burst=%t", m.width, addr, m.burst)
}
