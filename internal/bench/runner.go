package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/danmuck/spi2wb/internal/config"
	"github.com/danmuck/spi2wb/internal/protocol/session"
	"github.com/danmuck/spi2wb/internal/sim"
	"go.uber.org/multierr"
)

var ErrUnknownScenario = errors.New("bench: unknown scenario")

// Factory builds a bench for one scenario's settings. The closer releases
// whatever the bench holds and is called after the run.
type Factory func(ctx context.Context, settings config.Settings) (*Bench, io.Closer, error)

// Runner runs scenarios of a suite one at a time, each on a fresh bench.
type Runner struct {
	mu      sync.Mutex
	suite   config.Suite
	factory Factory
}

func NewRunner(suite config.Suite, factory Factory) (*Runner, error) {
	if err := config.ValidateSuite(suite); err != nil {
		return nil, err
	}
	if factory == nil {
		factory = SimFactory
	}
	return &Runner{suite: suite, factory: factory}, nil
}

func (r *Runner) Suite() config.Suite {
	return r.suite
}

// Run executes the named scenario. Concurrent callers wait their turn.
func (r *Runner) Run(ctx context.Context, name string) (Report, error) {
	sc, ok := r.suite.Find(name)
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrUnknownScenario, name)
	}
	settings, err := r.suite.Settings(sc)
	if err != nil {
		return Report{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	b, closer, err := r.factory(ctx, settings)
	if err != nil {
		return Report{}, fmt.Errorf("bench: %s setup: %w", name, err)
	}
	rep, err := b.Run(ctx, sc)
	if cerr := closer.Close(); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("bench: %s teardown: %w", name, cerr))
	}
	return rep, err
}

// RunAll runs names in order, or the whole suite when names is empty. An
// aborted scenario does not stop the rest; its error is combined into the
// returned one.
func (r *Runner) RunAll(ctx context.Context, names []string) ([]Report, error) {
	if len(names) == 0 {
		names = r.suite.Names()
	}
	reports := make([]Report, 0, len(names))
	var errs error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return reports, multierr.Append(errs, err)
		}
		rep, err := r.Run(ctx, name)
		if errors.Is(err, ErrUnknownScenario) {
			errs = multierr.Append(errs, err)
			continue
		}
		reports = append(reports, rep)
		errs = multierr.Append(errs, err)
	}
	return reports, errs
}

// SimFactory runs scenarios against the behavioral bridge model.
func SimFactory(ctx context.Context, settings config.Settings) (*Bench, io.Closer, error) {
	h, err := sim.Start(ctx, sim.Config{
		Mode:         settings.Mode,
		Period:       settings.Period,
		SettleCycles: settings.SettleCycles,
		ReadAhead:    settings.ReadAhead,
	})
	if err != nil {
		return nil, nil, err
	}
	s, err := session.New(SessionConfig(settings), h.Bridge)
	if err != nil {
		return nil, nil, multierr.Append(err, h.Close())
	}
	return &Bench{Session: s, Log: h.Log, Settler: h}, h, nil
}

// SessionConfig maps suite settings onto a session configuration.
func SessionConfig(settings config.Settings) session.Config {
	cfg := session.DefaultConfig(settings.Mode)
	cfg.FrameSpacing = settings.FrameSpacing
	cfg.ByteTimeout = settings.ByteTimeout
	return cfg
}
