package sim

import (
	"fmt"

	"github.com/danmuck/spi2wb/internal/protocol"
)

// Signals is the Wishbone master side sampled on one bus clock edge.
type Signals struct {
	Cycle uint64
	Cyc   bool
	Stb   bool
	Ack   bool
	We    bool
	Adr   uint16
	DatWr protocol.Word
	DatRd protocol.Word
}

// Handshake reports whether the sample completes a bus access.
func (s Signals) Handshake() bool {
	return s.Cyc && s.Stb && s.Ack
}

func (s Signals) String() string {
	return fmt.Sprintf("#%d cyc=%t stb=%t ack=%t we=%t adr=0x%X datwr=0x%X datrd=0x%X",
		s.Cycle, s.Cyc, s.Stb, s.Ack, s.We, s.Adr, uint16(s.DatWr), uint16(s.DatRd))
}
