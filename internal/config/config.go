package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/spi2wb/internal/protocol"
	"github.com/pelletier/go-toml/v2"
)

const (
	OpWrite = "write"
	OpRead  = "read"
)

var ErrInvalidSuite = errors.New("config: invalid suite")

// Suite is a scenario file: a default mode and timing plus scenarios that
// may override the mode.
type Suite struct {
	Mode      ModeConfig   `toml:"mode"`
	Timing    TimingConfig `toml:"timing"`
	Sim       SimConfig    `toml:"sim"`
	Scenarios []Scenario   `toml:"scenario"`
}

type ModeConfig struct {
	WordWidth       int  `toml:"word_width"`
	ExtendedAddress bool `toml:"extended_address"`
	Burst           bool `toml:"burst"`
}

type TimingConfig struct {
	FrameSpacing string `toml:"frame_spacing"`
	ByteTimeout  string `toml:"byte_timeout"`
}

type SimConfig struct {
	Period       string `toml:"period"`
	SettleCycles int    `toml:"settle_cycles"`
	ReadAhead    bool   `toml:"read_ahead"`
}

type Scenario struct {
	Name        string      `toml:"name"`
	Description string      `toml:"description,omitempty"`
	Mode        *ModeConfig `toml:"mode,omitempty"`
	Steps       []Step      `toml:"step"`
}

// Step is one frame. Writes carry values; reads carry a word count and,
// optionally, the values the read must return.
type Step struct {
	Op      string   `toml:"op"`
	Address uint16   `toml:"address"`
	Values  []uint16 `toml:"values,omitempty"`
	Count   int      `toml:"count,omitempty"`
	Expect  []uint16 `toml:"expect,omitempty"`
}

// Settings is the resolved, typed form of a suite for one scenario.
type Settings struct {
	Mode         protocol.AddressMode
	FrameSpacing time.Duration
	ByteTimeout  time.Duration
	Period       time.Duration
	SettleCycles int
	ReadAhead    bool
}

func DefaultTiming() TimingConfig {
	return TimingConfig{FrameSpacing: "100ns", ByteTimeout: "1s"}
}

func DefaultSim() SimConfig {
	return SimConfig{Period: "1ns", SettleCycles: 10}
}

func LoadSuite(path string) (Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Suite{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	suite, err := ParseSuite(data)
	if err != nil {
		return Suite{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return suite, nil
}

func ParseSuite(data []byte) (Suite, error) {
	var suite Suite
	if err := toml.Unmarshal(data, &suite); err != nil {
		return Suite{}, err
	}
	applyDefaults(&suite)
	if err := ValidateSuite(suite); err != nil {
		return Suite{}, err
	}
	return suite, nil
}

func applyDefaults(s *Suite) {
	if s.Mode.WordWidth == 0 {
		s.Mode.WordWidth = 8
	}
	def := DefaultTiming()
	if strings.TrimSpace(s.Timing.FrameSpacing) == "" {
		s.Timing.FrameSpacing = def.FrameSpacing
	}
	if strings.TrimSpace(s.Timing.ByteTimeout) == "" {
		s.Timing.ByteTimeout = def.ByteTimeout
	}
	sim := DefaultSim()
	if strings.TrimSpace(s.Sim.Period) == "" {
		s.Sim.Period = sim.Period
	}
	if s.Sim.SettleCycles == 0 {
		s.Sim.SettleCycles = sim.SettleCycles
	}
}

func ValidateSuite(s Suite) error {
	if _, err := s.Mode.AddressMode(); err != nil {
		return fmt.Errorf("%w: mode: %w", ErrInvalidSuite, err)
	}
	if _, err := s.settings(s.Mode); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(s.Scenarios))
	for i, sc := range s.Scenarios {
		name := strings.TrimSpace(sc.Name)
		if name == "" {
			return fmt.Errorf("%w: scenario[%d] missing name", ErrInvalidSuite, i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate scenario %q", ErrInvalidSuite, name)
		}
		seen[name] = struct{}{}
		if err := ValidateScenario(s, sc); err != nil {
			return err
		}
	}
	return nil
}

func ValidateScenario(s Suite, sc Scenario) error {
	settings, err := s.Settings(sc)
	if err != nil {
		return err
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("%w: scenario %q has no steps", ErrInvalidSuite, sc.Name)
	}
	for i, st := range sc.Steps {
		if err := validateStep(st); err != nil {
			return fmt.Errorf("%w: scenario %q step[%d]: %w", ErrInvalidSuite, sc.Name, i, err)
		}
		if err := protocol.Check(settings.Mode, st.Frame(settings.Mode)); err != nil {
			return fmt.Errorf("%w: scenario %q step[%d]: %w", ErrInvalidSuite, sc.Name, i, err)
		}
	}
	return nil
}

func validateStep(st Step) error {
	switch strings.ToLower(strings.TrimSpace(st.Op)) {
	case OpWrite:
		if len(st.Values) == 0 {
			return fmt.Errorf("write without values")
		}
		if len(st.Expect) > 0 {
			return fmt.Errorf("write cannot carry expect")
		}
	case OpRead:
		if st.Count < 1 {
			return fmt.Errorf("read count must be at least 1, got %d", st.Count)
		}
		if len(st.Expect) > 0 && len(st.Expect) != st.Count {
			return fmt.Errorf("expect has %d values for count %d", len(st.Expect), st.Count)
		}
	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
	return nil
}

// AddressMode converts the file form into a validated mode.
func (m ModeConfig) AddressMode() (protocol.AddressMode, error) {
	return protocol.NewAddressMode(m.WordWidth, m.ExtendedAddress, m.Burst)
}

// Settings resolves the mode and durations that apply to sc.
func (s Suite) Settings(sc Scenario) (Settings, error) {
	mode := s.Mode
	if sc.Mode != nil {
		mode = *sc.Mode
	}
	return s.settings(mode)
}

func (s Suite) settings(m ModeConfig) (Settings, error) {
	mode, err := m.AddressMode()
	if err != nil {
		return Settings{}, fmt.Errorf("%w: mode: %w", ErrInvalidSuite, err)
	}
	out := Settings{Mode: mode, SettleCycles: s.Sim.SettleCycles, ReadAhead: s.Sim.ReadAhead}
	if out.FrameSpacing, err = parseDuration("frame_spacing", s.Timing.FrameSpacing); err != nil {
		return Settings{}, err
	}
	if out.ByteTimeout, err = parseDuration("byte_timeout", s.Timing.ByteTimeout); err != nil {
		return Settings{}, err
	}
	if out.Period, err = parseDuration("period", s.Sim.Period); err != nil {
		return Settings{}, err
	}
	if out.Period <= 0 {
		return Settings{}, fmt.Errorf("%w: period must be positive", ErrInvalidSuite)
	}
	if out.SettleCycles < 1 {
		return Settings{}, fmt.Errorf("%w: settle_cycles must be at least 1", ErrInvalidSuite)
	}
	return out, nil
}

func parseDuration(field, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: parse %s: %w", ErrInvalidSuite, field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", ErrInvalidSuite, field)
	}
	return d, nil
}

// Find returns the scenario called name.
func (s Suite) Find(name string) (Scenario, bool) {
	for _, sc := range s.Scenarios {
		if sc.Name == name {
			return sc, true
		}
	}
	return Scenario{}, false
}

// Names lists scenario names in file order.
func (s Suite) Names() []string {
	out := make([]string, 0, len(s.Scenarios))
	for _, sc := range s.Scenarios {
		out = append(out, sc.Name)
	}
	return out
}

// IsRead reports whether st reads from the bus.
func (st Step) IsRead() bool {
	return strings.EqualFold(strings.TrimSpace(st.Op), OpRead)
}

// Frame builds the protocol frame for st.
func (st Step) Frame(mode protocol.AddressMode) protocol.Frame {
	if st.IsRead() {
		return protocol.NewReadFrame(mode, st.Address, st.Count)
	}
	return protocol.NewWriteFrame(mode, st.Address, Words(st.Values)...)
}

// ExpectWords returns the expected read values, nil when unchecked.
func (st Step) ExpectWords() []protocol.Word {
	if len(st.Expect) == 0 {
		return nil
	}
	return Words(st.Expect)
}

func Words(vals []uint16) []protocol.Word {
	out := make([]protocol.Word, len(vals))
	for i, v := range vals {
		out[i] = protocol.Word(v)
	}
	return out
}

// MarshalSuite renders s back into the file format.
func MarshalSuite(s Suite) ([]byte, error) {
	return toml.Marshal(s)
}
