// Package bench drives one scenario through a session and checks what
// reached the bus.
//
// A run is: reset the log, transfer every step in order, check read-back
// values, settle, snapshot, verify. Transport and encoding errors abort the
// run; mismatches are collected into the Report.
package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/spi2wb/internal/bus"
	"github.com/danmuck/spi2wb/internal/config"
	"github.com/danmuck/spi2wb/internal/observability"
	"github.com/danmuck/spi2wb/internal/protocol"
	"github.com/danmuck/spi2wb/internal/protocol/session"
	"github.com/danmuck/spi2wb/internal/verify"
)

var ErrNoSession = errors.New("bench: nil session")

// Settler waits until every bus handshake of the transfers so far is in the
// log.
type Settler interface {
	Settle(ctx context.Context) error
}

// Bench binds a session to the optional bus-side view of the same bridge.
// Without Log only read-back values are checked.
type Bench struct {
	Session *session.Session
	Log     bus.Reader
	Settler Settler
}

const (
	ResultPass  = "pass"
	ResultFail  = "fail"
	ResultError = "error"
)

func (b *Bench) Run(ctx context.Context, sc config.Scenario) (Report, error) {
	if b.Session == nil {
		return Report{}, ErrNoSession
	}
	mode := b.Session.Mode()
	rep := Report{
		Scenario: sc.Name,
		Mode:     mode.String(),
		Started:  time.Now().UTC(),
	}
	logger := observability.Component("bench").With().Str("scenario", sc.Name).Str("mode", mode.String()).Logger()
	before := b.Session.Stats()

	finish := func(err error) (Report, error) {
		after := b.Session.Stats()
		rep.Frames = after.Frames - before.Frames
		rep.Bytes = after.Bytes - before.Bytes
		rep.Elapsed = time.Since(rep.Started).String()
		result := ResultPass
		switch {
		case err != nil:
			rep.Err = err.Error()
			result = ResultError
		case !rep.Passed():
			result = ResultFail
		}
		rep.Result = result
		observability.RecordScenario(sc.Name, result)
		for _, m := range rep.Mismatches {
			observability.RecordMismatch(string(m.Kind))
		}
		for _, f := range rep.Readback {
			observability.RecordMismatch(string(f.Kind))
		}
		ev := logger.Info()
		if result != ResultPass {
			ev = logger.Warn()
		}
		ev.Str("result", result).
			Uint64("frames", rep.Frames).
			Int("mismatches", len(rep.Mismatches)+len(rep.Readback)).
			Err(err).
			Msg("bench.Run")
		return rep, err
	}

	frames := make([]protocol.Frame, len(sc.Steps))
	reads := make(map[int][]protocol.Word)
	for i, st := range sc.Steps {
		frames[i] = st.Frame(mode)
		if err := protocol.Check(mode, frames[i]); err != nil {
			return finish(fmt.Errorf("bench: %s step %d: %w", sc.Name, i, err))
		}
		if want := st.ExpectWords(); want != nil {
			reads[i] = want
		}
	}

	if b.Log != nil {
		b.Log.Reset()
	}
	for i, f := range frames {
		got, err := b.Session.Transfer(ctx, f)
		if err != nil {
			return finish(fmt.Errorf("bench: %s step %d: %w", sc.Name, i, err))
		}
		if want, ok := reads[i]; ok {
			for _, m := range verify.VerifyReadback(want, got) {
				rep.Readback = append(rep.Readback, StepMismatch{Step: i, Mismatch: m})
			}
		}
		if !f.Write {
			rep.Reads = append(rep.Reads, StepRead{Step: i, Address: f.Address, Values: got})
		}
	}

	if b.Log == nil {
		return finish(nil)
	}
	if b.Settler != nil {
		if err := b.Settler.Settle(ctx); err != nil {
			return finish(fmt.Errorf("bench: %s settle: %w", sc.Name, err))
		}
	}
	rep.Observed = b.Log.Snapshot()
	rep.Verified = true
	rep.Mismatches = verify.ExpectReads(frames, reads, rep.Observed, mode)
	return finish(nil)
}
