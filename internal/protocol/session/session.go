package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/danmuck/spi2wb/internal/observability"
	"github.com/danmuck/spi2wb/internal/protocol"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// Stats counts what a session put on the wire.
type Stats struct {
	Frames   uint64
	Bytes    uint64
	Failures uint64
}

// Session serializes frames over one transport.
type Session struct {
	mu        sync.Mutex
	cfg       Config
	transport Transport
	logger    zerolog.Logger
	stats     Stats
}

// New validates cfg and binds it to transport. A nil Clock is replaced by
// the wall clock.
func New(cfg Config, transport Transport) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidConfig)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Session{
		cfg:       cfg,
		transport: transport,
		logger:    observability.Component("session"),
	}, nil
}

func (s *Session) Mode() protocol.AddressMode {
	return s.cfg.Mode
}

func (s *Session) Config() Config {
	return s.cfg
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Write transfers values to consecutive addresses starting at addr.
func (s *Session) Write(ctx context.Context, addr uint16, values ...protocol.Word) error {
	_, err := s.Transfer(ctx, protocol.NewWriteFrame(s.cfg.Mode, addr, values...))
	return err
}

// Read returns n words starting at addr.
func (s *Session) Read(ctx context.Context, addr uint16, n int) ([]protocol.Word, error) {
	return s.Transfer(ctx, protocol.NewReadFrame(s.cfg.Mode, addr, n))
}

// Transfer sends f between one chip-select assert/deassert pair and returns
// the words shifted back during the data phase. Encoding errors are reported
// before chip-select is touched.
func (s *Session) Transfer(ctx context.Context, f protocol.Frame) (words []protocol.Word, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !f.Write {
		f.Values = make([]protocol.Word, len(f.Values))
	}
	op := "read"
	if f.Write {
		op = "write"
	}
	start := s.cfg.Clock.Now()
	var rx []byte
	defer func() {
		s.stats.Bytes += uint64(len(rx))
		if err != nil {
			s.stats.Failures++
		} else {
			s.stats.Frames++
		}
		observability.RecordTransfer(op, len(rx), s.cfg.Clock.Since(start), err == nil)
	}()

	tx, err := protocol.Encode(s.cfg.Mode, f)
	if err != nil {
		s.logger.Warn().Stringer("frame", f).Err(err).Msg("session.Transfer rejected")
		return nil, err
	}

	rx, err = s.exchange(ctx, tx)
	if err != nil {
		s.logger.Error().Stringer("frame", f).Int("sent", len(rx)).Err(err).Msg("session.Transfer failed")
		return nil, err
	}

	words, err = protocol.DecodeResponse(s.cfg.Mode, rx)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().
		Stringer("frame", f).
		Hex("tx", tx).
		Hex("rx", rx).
		Msg("session.Transfer")
	return words, nil
}

func (s *Session) exchange(ctx context.Context, tx []byte) (rx []byte, err error) {
	if err := s.transport.Select(ctx); err != nil {
		return nil, &TransportError{Op: OpSelect, Index: -1, Err: err}
	}
	defer func() {
		// chip-select must drop even when ctx is already done
		if derr := s.transport.Deselect(context.WithoutCancel(ctx)); derr != nil {
			err = multierr.Append(err, &TransportError{Op: OpDeselect, Index: -1, Err: derr})
		}
	}()

	rx = make([]byte, 0, len(tx))
	addrLen := s.cfg.Mode.AddressBytes()
	for i, b := range tx {
		if i == addrLen && s.cfg.FrameSpacing > 0 {
			if err := s.transport.Delay(ctx, s.cfg.FrameSpacing); err != nil {
				return rx, &TransportError{Op: OpDelay, Index: i, Err: err}
			}
		}
		in, err := s.exchangeByte(ctx, b)
		if err != nil {
			return rx, &TransportError{Op: OpExchange, Index: i, Err: err}
		}
		rx = append(rx, in)
	}
	return rx, nil
}

func (s *Session) exchangeByte(ctx context.Context, b byte) (byte, error) {
	if s.cfg.ByteTimeout <= 0 {
		return s.transport.ExchangeByte(ctx, b)
	}
	bctx, cancel := s.cfg.Clock.WithTimeout(ctx, s.cfg.ByteTimeout)
	defer cancel()
	return s.transport.ExchangeByte(bctx, b)
}
