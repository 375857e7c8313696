package main

import (
	"context"
	"io"

	"github.com/danmuck/spi2wb/internal/bench"
	"github.com/danmuck/spi2wb/internal/config"
	"github.com/danmuck/spi2wb/internal/protocol/session"
	"github.com/danmuck/spi2wb/internal/transport/spidev"
	"go.uber.org/multierr"
)

func factoryFor(s settings) bench.Factory {
	if s.Transport == transportSpidev {
		return spidevFactory(s.SPI)
	}
	return bench.SimFactory
}

// spidevFactory opens the port per scenario. Hardware has no bus monitor
// here, so only read-back values are checked.
func spidevFactory(cfg spidev.Config) bench.Factory {
	return func(ctx context.Context, st config.Settings) (*bench.Bench, io.Closer, error) {
		tr, err := spidev.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		scfg := bench.SessionConfig(st)
		scfg.Clock = cfg.Clock
		s, err := session.New(scfg, tr)
		if err != nil {
			return nil, nil, multierr.Append(err, tr.Close())
		}
		return &bench.Bench{Session: s}, tr, nil
	}
}

func loadSuite(s settings) (config.Suite, error) {
	if s.Suite == "" {
		return config.Builtin(), nil
	}
	return config.LoadSuite(s.Suite)
}
