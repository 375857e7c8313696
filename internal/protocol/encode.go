package protocol

import (
	"encoding/binary"
	"fmt"
)

// Encode lays f out as the SPI byte stream for mode. Nothing is returned
// when f violates the mode, so a rejected frame never reaches the wire.
func Encode(mode AddressMode, f Frame) ([]byte, error) {
	if err := Check(mode, f); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, ExpectedLen(mode, f))
	buf = appendAddress(buf, mode, AddressWord(mode, f))
	for _, v := range f.Values {
		buf = appendWord(buf, mode, v)
	}
	return buf, nil
}

// Check reports whether f can be encoded for mode.
func Check(mode AddressMode, f Frame) error {
	if err := mode.Validate(); err != nil {
		return err
	}
	if len(f.Values) == 0 {
		return ErrEmptyFrame
	}
	if !mode.BurstCapable() && (f.Burst || len(f.Values) > 1) {
		return fmt.Errorf("%w: %d values at 0x%X", ErrBurstNotSupported, len(f.Values), f.Address)
	}
	if len(f.Values) > 1 && !f.Burst {
		return fmt.Errorf("%w: %d values at 0x%X", ErrMissingBurstFlag, len(f.Values), f.Address)
	}
	if f.Address > mode.AddressMask() {
		return fmt.Errorf("%w: 0x%X exceeds 0x%X", ErrAddressOutOfRange, f.Address, mode.AddressMask())
	}
	for i, v := range f.Values {
		if v > mode.MaxWord() {
			return fmt.Errorf("%w: values[%d]=0x%X width=%d", ErrValueOutOfRange, i, uint16(v), mode.WordWidth())
		}
	}
	return nil
}

// ExpectedLen is the encoded length of f without encoding it.
func ExpectedLen(mode AddressMode, f Frame) int {
	return mode.AddressBytes() + len(f.Values)*mode.WordBytes()
}

func appendAddress(buf []byte, mode AddressMode, w uint16) []byte {
	if mode.Extended() {
		return binary.BigEndian.AppendUint16(buf, w)
	}
	return append(buf, byte(w))
}

func appendWord(buf []byte, mode AddressMode, v Word) []byte {
	if mode.WordBytes() == 2 {
		return binary.BigEndian.AppendUint16(buf, uint16(v))
	}
	return append(buf, byte(v))
}
