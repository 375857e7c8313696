package protocol

import (
	"encoding/binary"
	"fmt"
)

// DecodeResponse drops the address phase of raw and regroups the rest into
// words, most significant byte first.
func DecodeResponse(mode AddressMode, raw []byte) ([]Word, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}
	n := mode.AddressBytes()
	if len(raw) < n {
		return nil, fmt.Errorf("%w: %d bytes, address phase is %d", ErrMalformedResponse, len(raw), n)
	}
	data := raw[n:]
	size := mode.WordBytes()
	if len(data)%size != 0 {
		return nil, fmt.Errorf("%w: %d data bytes for %d-bit words", ErrMalformedResponse, len(data), mode.WordWidth())
	}
	words := make([]Word, 0, len(data)/size)
	for off := 0; off < len(data); off += size {
		if size == 2 {
			words = append(words, Word(binary.BigEndian.Uint16(data[off:off+2])))
			continue
		}
		words = append(words, Word(data[off]))
	}
	return words, nil
}
