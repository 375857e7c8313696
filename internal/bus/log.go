// Package bus records the Wishbone transactions observed behind the bridge.
//
// Ownership boundary:
// - Transaction value type
// - Log with a single-writer append path (the signal driver) and a
//   snapshot/reset view for verification
package bus

import (
	"fmt"
	"sync"

	"github.com/danmuck/spi2wb/internal/protocol"
)

// Transaction is one completed strobe+acknowledge handshake. Data holds
// datwr for writes and datrd for reads.
type Transaction struct {
	Address uint32        `json:"address" toml:"address"`
	Write   bool          `json:"write" toml:"write"`
	Data    protocol.Word `json:"data" toml:"data"`
}

func (tx Transaction) String() string {
	if tx.Write {
		return fmt.Sprintf("{adr:0x%02X datwr:0x%02X we:1}", tx.Address, uint16(tx.Data))
	}
	return fmt.Sprintf("{adr:0x%02X datrd:0x%02X we:0}", tx.Address, uint16(tx.Data))
}

// Reader is the view verification code gets of a log.
type Reader interface {
	Snapshot() []Transaction
	Reset()
}

// Recorder is the append path owned by the signal driver.
type Recorder interface {
	Append(tx Transaction)
}

// Log stores transactions in handshake order.
type Log struct {
	mu    sync.RWMutex
	items []Transaction
}

var (
	_ Reader   = (*Log)(nil)
	_ Recorder = (*Log)(nil)
)

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Append(tx Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, tx)
}

// Snapshot returns a copy of everything recorded since the last Reset.
func (l *Log) Snapshot() []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Transaction, len(l.items))
	copy(out, l.items)
	return out
}

func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}
