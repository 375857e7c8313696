// Package verify checks observed bus transactions against the frames that
// were meant to produce them. Findings are returned as data so a caller can
// report every divergence of a run instead of stopping at the first.
package verify

import (
	"fmt"

	"github.com/danmuck/spi2wb/internal/bus"
	"github.com/danmuck/spi2wb/internal/protocol"
)

type Kind string

const (
	CountMismatch     Kind = "count"
	AddressMismatch   Kind = "address"
	DirectionMismatch Kind = "direction"
	DataMismatch      Kind = "data"
	ReadbackMismatch  Kind = "readback"
)

// Mismatch is one divergence. For CountMismatch, Expected and Actual are
// transaction counts and Index is the first position without a partner.
// For DirectionMismatch they are 1 for write and 0 for read.
type Mismatch struct {
	Kind     Kind   `json:"kind" toml:"kind"`
	Index    int    `json:"index" toml:"index"`
	Expected uint32 `json:"expected" toml:"expected"`
	Actual   uint32 `json:"actual" toml:"actual"`
}

func (m Mismatch) String() string {
	switch m.Kind {
	case CountMismatch:
		return fmt.Sprintf("count mismatch: expected %d transactions, observed %d", m.Expected, m.Actual)
	case DirectionMismatch:
		return fmt.Sprintf("direction mismatch at %d: expected we=%d, observed we=%d", m.Index, m.Expected, m.Actual)
	default:
		return fmt.Sprintf("%s mismatch at %d: expected 0x%X, observed 0x%X", m.Kind, m.Index, m.Expected, m.Actual)
	}
}

// Expand flattens frames into the per-word transactions they should cause:
// base address plus running offset, without wrapping at the address mask.
func Expand(mode protocol.AddressMode, frames []protocol.Frame) []bus.Transaction {
	var n int
	for _, f := range frames {
		n += len(f.Values)
	}
	out := make([]bus.Transaction, 0, n)
	for _, f := range frames {
		for i, v := range f.Values {
			tx := bus.Transaction{
				Address: uint32(f.Address) + uint32(i),
				Write:   f.Write,
			}
			if f.Write {
				tx.Data = v
			}
			out = append(out, tx)
		}
	}
	return out
}

// Verify pairs the expected transactions of frames with observed. A length
// divergence yields a single CountMismatch and nothing else. Read data is
// only checked when the frame carries expected read values, see
// ExpectReads.
func Verify(frames []protocol.Frame, observed []bus.Transaction, mode protocol.AddressMode) []Mismatch {
	return compare(mode, Expand(mode, frames), observed, nil)
}

// ExpectReads is Verify where reads are checked against the values in
// reads, keyed by frame index. Frames without an entry are not
// data-checked.
func ExpectReads(frames []protocol.Frame, reads map[int][]protocol.Word, observed []bus.Transaction, mode protocol.AddressMode) []Mismatch {
	expected := Expand(mode, frames)
	checked := make([]bool, len(expected))
	pos := 0
	for fi, f := range frames {
		want, ok := reads[fi]
		for i := range f.Values {
			if !f.Write && ok && i < len(want) {
				expected[pos].Data = want[i]
				checked[pos] = true
			}
			pos++
		}
	}
	return compare(mode, expected, observed, checked)
}

func compare(mode protocol.AddressMode, expected, observed []bus.Transaction, readChecked []bool) []Mismatch {
	if len(expected) != len(observed) {
		return []Mismatch{{
			Kind:     CountMismatch,
			Index:    min(len(expected), len(observed)),
			Expected: uint32(len(expected)),
			Actual:   uint32(len(observed)),
		}}
	}
	limit := uint32(mode.AddressMask())
	var out []Mismatch
	for i := range expected {
		want, got := expected[i], observed[i]
		if want.Address != got.Address || want.Address > limit {
			out = append(out, Mismatch{Kind: AddressMismatch, Index: i, Expected: want.Address, Actual: got.Address})
		}
		if want.Write != got.Write {
			out = append(out, Mismatch{Kind: DirectionMismatch, Index: i, Expected: boolBit(want.Write), Actual: boolBit(got.Write)})
			continue
		}
		if !want.Write && (readChecked == nil || !readChecked[i]) {
			continue
		}
		if want.Data != got.Data {
			out = append(out, Mismatch{Kind: DataMismatch, Index: i, Expected: uint32(want.Data), Actual: uint32(got.Data)})
		}
	}
	return out
}

// VerifyReadback compares words returned by a read frame with the values
// the caller expected. Index is the word position within the frame.
func VerifyReadback(want, got []protocol.Word) []Mismatch {
	if len(want) != len(got) {
		return []Mismatch{{Kind: CountMismatch, Index: min(len(want), len(got)), Expected: uint32(len(want)), Actual: uint32(len(got))}}
	}
	var out []Mismatch
	for i := range want {
		if want[i] != got[i] {
			out = append(out, Mismatch{Kind: ReadbackMismatch, Index: i, Expected: uint32(want[i]), Actual: uint32(got[i])})
		}
	}
	return out
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
