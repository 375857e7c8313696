package protocol

import (
	"fmt"
	"strings"
)

// Frame is one logical transfer between chip-select assert and deassert.
type Frame struct {
	Address uint16
	Write   bool
	Burst   bool
	Values  []Word
}

// NewWriteFrame builds a write of values starting at addr. Burst is set when
// the mode is burst capable and more than one value is carried; otherwise a
// multi-value frame is left for Encode to reject.
func NewWriteFrame(mode AddressMode, addr uint16, values ...Word) Frame {
	vals := make([]Word, len(values))
	copy(vals, values)
	return Frame{
		Address: addr,
		Write:   true,
		Burst:   mode.BurstCapable() && len(vals) > 1,
		Values:  vals,
	}
}

// NewReadFrame builds a read of n words starting at addr. The values are
// zero placeholders; only their count reaches the device.
func NewReadFrame(mode AddressMode, addr uint16, n int) Frame {
	if n < 0 {
		n = 0
	}
	return Frame{
		Address: addr,
		Burst:   mode.BurstCapable() && n > 1,
		Values:  make([]Word, n),
	}
}

// Len is the number of bus words the frame moves.
func (f Frame) Len() int {
	return len(f.Values)
}

func (f Frame) String() string {
	op := "read"
	if f.Write {
		op = "write"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s@0x%X", op, f.Address)
	if f.Burst {
		b.WriteString(" burst")
	}
	if f.Write {
		b.WriteString(" [")
		for i, v := range f.Values {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "0x%X", uint16(v))
		}
		b.WriteByte(']')
	} else {
		fmt.Fprintf(&b, " n=%d", len(f.Values))
	}
	return b.String()
}

// Command is the decoded address phase of a frame.
type Command struct {
	Address uint16
	Write   bool
	Burst   bool
}

// AddressWord packs the address phase of f, flags included, right aligned.
func AddressWord(mode AddressMode, f Frame) uint16 {
	w := f.Address & mode.AddressMask()
	writeFlag, burstFlag := uint16(WriteFlag), uint16(BurstFlag)
	if mode.Extended() {
		writeFlag, burstFlag = ExtWriteFlag, ExtBurstFlag
	}
	if f.Write {
		w |= writeFlag
	}
	if f.Burst {
		w |= burstFlag
	}
	return w
}

// ParseAddress decodes the address phase at the head of b.
func ParseAddress(mode AddressMode, b []byte) (Command, error) {
	n := mode.AddressBytes()
	if len(b) < n {
		return Command{}, fmt.Errorf("%w: address phase needs %d bytes, got %d", ErrMalformedResponse, n, len(b))
	}
	var w uint16
	writeFlag, burstFlag := uint16(WriteFlag), uint16(BurstFlag)
	if mode.Extended() {
		w = uint16(b[0])<<8 | uint16(b[1])
		writeFlag, burstFlag = ExtWriteFlag, ExtBurstFlag
	} else {
		w = uint16(b[0])
	}
	cmd := Command{
		Address: w & mode.AddressMask(),
		Write:   w&writeFlag != 0,
	}
	if mode.BurstCapable() {
		cmd.Burst = w&burstFlag != 0
	}
	return cmd, nil
}
