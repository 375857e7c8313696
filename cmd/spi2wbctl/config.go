package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/spi2wb/internal/transport/spidev"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/physic"
)

const (
	transportSim    = "sim"
	transportSpidev = "spidev"
)

type settings struct {
	LogLevel    string
	Transport   string
	Suite       string
	Report      string
	SPI         spidev.Config
	ServerAddr  string
	CORSOrigins []string
	Token       string
}

type fileConfig struct {
	LogLevel  string `toml:"log_level"`
	Transport string `toml:"transport"`
	Suite     string `toml:"suite"`
	Report    string `toml:"report"`
	SPI       struct {
		Port       string `toml:"port"`
		ChipSelect string `toml:"chip_select"`
		SpeedHz    int64  `toml:"speed_hz"`
	} `toml:"spi"`
	Server struct {
		Addr        string   `toml:"addr"`
		CORSOrigins []string `toml:"cors_origins"`
		Token       string   `toml:"token"`
	} `toml:"server"`
}

func defaultSettings() settings {
	return settings{
		LogLevel:   "info",
		Transport:  transportSim,
		SPI:        spidev.DefaultConfig(),
		ServerAddr: ":9300",
	}
}

func loadSettings(path string) (settings, error) {
	cfg := defaultSettings()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return settings{}, fmt.Errorf("load settings: %w", err)
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("transport") {
		cfg.Transport = strings.ToLower(strings.TrimSpace(raw.Transport))
	}
	if meta.IsDefined("suite") {
		cfg.Suite = strings.TrimSpace(raw.Suite)
	}
	if meta.IsDefined("report") {
		cfg.Report = strings.TrimSpace(raw.Report)
	}
	if meta.IsDefined("spi", "port") {
		cfg.SPI.Port = strings.TrimSpace(raw.SPI.Port)
	}
	if meta.IsDefined("spi", "chip_select") {
		cfg.SPI.ChipSelect = strings.TrimSpace(raw.SPI.ChipSelect)
	}
	if meta.IsDefined("spi", "speed_hz") {
		if raw.SPI.SpeedHz <= 0 {
			return settings{}, fmt.Errorf("spi.speed_hz must be positive, got %d", raw.SPI.SpeedHz)
		}
		cfg.SPI.Speed = physic.Frequency(raw.SPI.SpeedHz) * physic.Hertz
	}
	if meta.IsDefined("server", "addr") {
		cfg.ServerAddr = strings.TrimSpace(raw.Server.Addr)
	}
	if meta.IsDefined("server", "cors_origins") {
		cfg.CORSOrigins = raw.Server.CORSOrigins
	}
	if meta.IsDefined("server", "token") {
		cfg.Token = strings.TrimSpace(raw.Server.Token)
	}

	if err := cfg.validate(); err != nil {
		return settings{}, err
	}
	return cfg, nil
}

func (s settings) validate() error {
	switch s.Transport {
	case transportSim, transportSpidev:
	default:
		return fmt.Errorf("unknown transport %q (want sim or spidev)", s.Transport)
	}
	return nil
}

// resolveSettings layers defaults, the settings file and persistent flags.
func resolveSettings(cmd *cobra.Command) (settings, error) {
	cfg := defaultSettings()
	if path := getString(cmd, "config"); path != "" {
		loaded, err := loadSettings(path)
		if err != nil {
			return settings{}, err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = getString(cmd, "log-level")
	}
	if cmd.Flags().Changed("suite") {
		cfg.Suite = getString(cmd, "suite")
	}
	if cmd.Flags().Changed("transport") {
		cfg.Transport = strings.ToLower(getString(cmd, "transport"))
	}
	if f := cmd.Flags().Lookup("report"); f != nil && f.Changed {
		cfg.Report = f.Value.String()
	}
	if f := cmd.Flags().Lookup("addr"); f != nil && f.Changed {
		cfg.ServerAddr = f.Value.String()
	}
	return cfg, cfg.validate()
}

func getString(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(err)
	}
	return v
}

func getInt(cmd *cobra.Command, name string) int {
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(err)
	}
	return v
}

func getBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(err)
	}
	return v
}
