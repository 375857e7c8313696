package spidev

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/danmuck/spi2wb/internal/protocol"
	"github.com/danmuck/spi2wb/internal/protocol/session"
	"github.com/danmuck/spi2wb/internal/testutil/testlog"
)

// mirrorPort answers every byte with the previous one, as a shift register
// between MOSI and MISO does.
type mirrorPort struct {
	mu     sync.Mutex
	mode   spi.Mode
	speed  physic.Frequency
	bits   int
	last   byte
	sent   []byte
	failOn int
	closed bool
}

func (p *mirrorPort) String() string { return "mirror" }
func (p *mirrorPort) LimitSpeed(f physic.Frequency) error { return nil }
func (p *mirrorPort) Duplex() conn.Duplex { return conn.Full }
func (p *mirrorPort) TxPackets(pkts []spi.Packet) error { return errors.New("unsupported") }
func (p *mirrorPort) Close() error {
	p.closed = true
	return nil
}

func (p *mirrorPort) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	p.speed, p.mode, p.bits = f, mode, bits
	return p, nil
}

func (p *mirrorPort) Tx(w, r []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn > 0 && len(p.sent)+1 == p.failOn {
		return errors.New("bus fault")
	}
	for i, b := range w {
		r[i] = p.last
		p.last = b
		p.sent = append(p.sent, b)
	}
	return nil
}

type fakePin struct {
	level gpio.Level
	edges []gpio.Level
}

func (p *fakePin) String() string { return "CS" }
func (p *fakePin) Name() string { return "CS" }
func (p *fakePin) Number() int { return 8 }
func (p *fakePin) Function() string { return "Out" }
func (p *fakePin) Halt() error { return nil }
func (p *fakePin) PWM(gpio.Duty, physic.Frequency) error { return errors.New("unsupported") }

func (p *fakePin) Out(l gpio.Level) error {
	p.level = l
	p.edges = append(p.edges, l)
	return nil
}

func TestNewConnectsInBridgeMode(t *testing.T) {
	testlog.Start(t)
	port := &mirrorPort{}
	cs := &fakePin{level: gpio.Low}
	tr, err := New(port, cs, Config{Speed: 2 * physic.MegaHertz})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if port.mode != spi.Mode1|spi.NoCS || port.bits != 8 || port.speed != 2*physic.MegaHertz {
		t.Fatalf("connect got mode=%v bits=%d speed=%s", port.mode, port.bits, port.speed)
	}
	if cs.level != gpio.High {
		t.Fatalf("chip-select should park high")
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !port.closed {
		t.Fatalf("port not closed")
	}
	if _, err := tr.ExchangeByte(context.Background(), 0x00); !errors.Is(err, ErrClosed) {
		t.Fatalf("exchange after close got=%v", err)
	}
}

func TestNewRequiresChipSelect(t *testing.T) {
	testlog.Start(t)
	if _, err := New(&mirrorPort{}, nil, Config{}); !errors.Is(err, ErrNoChipSelect) {
		t.Fatalf("expected ErrNoChipSelect, got=%v", err)
	}
	if _, err := Open(Config{Port: "/dev/spidev0.0"}); !errors.Is(err, ErrNoChipSelect) {
		t.Fatalf("expected ErrNoChipSelect from Open, got=%v", err)
	}
}

func TestSessionFramesChipSelect(t *testing.T) {
	testlog.Start(t)
	port := &mirrorPort{}
	cs := &fakePin{}
	tr, err := New(port, cs, Config{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	cfg := session.DefaultConfig(protocol.MustAddressMode(16, false, false))
	cfg.FrameSpacing = 0
	s, err := session.New(cfg, tr)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if err := s.Write(context.Background(), 0x02, 0xCAFE); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got, want := port.sent, []byte{0x82, 0xCA, 0xFE}; string(got) != string(want) {
		t.Fatalf("wire got=% X want=% X", got, want)
	}
	wantEdges := []gpio.Level{gpio.High, gpio.Low, gpio.High}
	if len(cs.edges) != len(wantEdges) {
		t.Fatalf("cs edges got=%v want=%v", cs.edges, wantEdges)
	}
	for i := range wantEdges {
		if cs.edges[i] != wantEdges[i] {
			t.Fatalf("cs edges got=%v want=%v", cs.edges, wantEdges)
		}
	}
}

func TestExchangeFailureDeselects(t *testing.T) {
	testlog.Start(t)
	port := &mirrorPort{failOn: 2}
	cs := &fakePin{}
	tr, err := New(port, cs, Config{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	cfg := session.DefaultConfig(protocol.MustAddressMode(8, false, false))
	cfg.FrameSpacing = 0
	s, err := session.New(cfg, tr)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	err = s.Write(context.Background(), 0x02, 0xCA)
	var te *session.TransportError
	if !errors.As(err, &te) || te.Index != 1 {
		t.Fatalf("expected transport error at byte 1, got=%v", err)
	}
	if cs.level != gpio.High {
		t.Fatalf("chip-select left low after failure")
	}
}

func TestDelayUsesClock(t *testing.T) {
	testlog.Start(t)
	mock := clock.NewMock()
	tr, err := New(&mirrorPort{}, &fakePin{}, Config{Clock: mock})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	done := make(chan error, 1)
	go func() {
		done <- tr.Delay(context.Background(), time.Microsecond)
	}()
	deadline := time.After(2 * time.Second)
	for {
		mock.Add(time.Microsecond)
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("delay: %v", err)
			}
			return
		case <-deadline:
			t.Fatalf("delay never returned")
		case <-time.After(time.Millisecond):
		}
	}
}
