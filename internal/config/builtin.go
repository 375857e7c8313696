package config

import (
	"fmt"
	"math/rand"

	"github.com/danmuck/spi2wb/internal/protocol"
)

var (
	simple8   = ModeConfig{WordWidth: 8}
	simple16  = ModeConfig{WordWidth: 16}
	extBurst8 = ModeConfig{WordWidth: 8, ExtendedAddress: true, Burst: true}
	extBurst  = ModeConfig{WordWidth: 16, ExtendedAddress: true, Burst: true}
)

// Builtin returns the suite compiled into the binary. It is used when no
// suite file is given.
func Builtin() Suite {
	return Suite{
		Mode:   simple8,
		Timing: DefaultTiming(),
		Sim:    DefaultSim(),
		Scenarios: []Scenario{
			ScenarioA(),
			ScenarioB(),
			ScenarioC(),
			BusPirate8(),
			BusPirate16(),
			BurstReadback(),
			Sweep(),
		},
	}
}

func ScenarioA() Scenario {
	return Scenario{
		Name:        "scenario-a",
		Description: "8-bit simple address writes",
		Mode:        modePtr(simple8),
		Steps: []Step{
			write(0x02, 0xCA),
			write(0x10, 0xFE),
		},
	}
}

func ScenarioB() Scenario {
	return Scenario{
		Name:        "scenario-b",
		Description: "16-bit extended address burst write",
		Mode:        modePtr(extBurst),
		Steps: []Step{
			write(0x10, 0xAA10, 0xAA11, 0xAA12, 0xAA13, 0xAA14, 0xAA15),
		},
	}
}

func ScenarioC() Scenario {
	return Scenario{
		Name:        "scenario-c",
		Description: "write then read back the same address",
		Mode:        modePtr(simple8),
		Steps: []Step{
			write(0x02, 0xCA),
			read(0x02, 0xCA),
			write(0x10, 0xFE),
			read(0x10, 0xFE),
		},
	}
}

// BusPirate8 replays the 8-bit hardware bench vectors: all writes first,
// then every address read back.
func BusPirate8() Scenario {
	return writeThenRead("buspirate-8", "8-bit hardware bench vectors", simple8, []vector{
		{0x02, 0xCA}, {0x10, 0xFE}, {0x00, 0x55}, {0x7F, 0x12},
	})
}

func BusPirate16() Scenario {
	return writeThenRead("buspirate-16", "16-bit hardware bench vectors", simple16, []vector{
		{0x02, 0xCAFE}, {0x01, 0x5958}, {0x00, 0x5599}, {0x10, 0xBAAF}, {0x12, 0x1234},
	})
}

func BurstReadback() Scenario {
	return Scenario{
		Name:        "burst-readback",
		Description: "8-bit extended burst write and burst read",
		Mode:        modePtr(extBurst8),
		Steps: []Step{
			write(0x0100, 0x11, 0x22, 0x33, 0x44),
			read(0x0100, 0x11, 0x22, 0x33, 0x44),
		},
	}
}

// Sweep writes (v<<8)+v to every 16-bit simple address and reads each back.
func Sweep() Scenario {
	vectors := make([]vector, 0, 128)
	for v := uint16(0); v < 128; v++ {
		vectors = append(vectors, vector{addr: v, value: v<<8 + v})
	}
	return writeThenRead("sweep", "every simple address with (v<<8)+v", simple16, vectors)
}

// Vectors builds n reproducible random write/readback pairs for mode. The
// same seed always yields the same scenario.
func Vectors(mode ModeConfig, seed int64, n int) (Scenario, error) {
	am, err := mode.AddressMode()
	if err != nil {
		return Scenario{}, err
	}
	if n < 1 {
		return Scenario{}, fmt.Errorf("%w: vector count must be at least 1, got %d", ErrInvalidSuite, n)
	}
	rng := rand.New(rand.NewSource(seed))
	// last write wins, so reads expect the final value per address
	final := make(map[uint16]uint16, n)
	vectors := make([]vector, 0, n)
	for i := 0; i < n; i++ {
		v := vector{
			addr:  uint16(rng.Intn(int(am.AddressMask()) + 1)),
			value: uint16(rng.Intn(int(am.MaxWord()) + 1)),
		}
		final[v.addr] = v.value
		vectors = append(vectors, v)
	}
	sc := Scenario{
		Name:        fmt.Sprintf("vectors-%d", seed),
		Description: fmt.Sprintf("%d seeded vectors (%s)", n, am),
		Mode:        modePtr(mode),
	}
	for _, v := range vectors {
		sc.Steps = append(sc.Steps, write(v.addr, v.value))
	}
	for _, v := range vectors {
		sc.Steps = append(sc.Steps, read(v.addr, final[v.addr]))
	}
	return sc, nil
}

type vector struct {
	addr  uint16
	value uint16
}

func writeThenRead(name, desc string, mode ModeConfig, vectors []vector) Scenario {
	sc := Scenario{Name: name, Description: desc, Mode: modePtr(mode)}
	for _, v := range vectors {
		sc.Steps = append(sc.Steps, write(v.addr, v.value))
	}
	for _, v := range vectors {
		sc.Steps = append(sc.Steps, read(v.addr, v.value))
	}
	return sc
}

func write(addr uint16, values ...uint16) Step {
	return Step{Op: OpWrite, Address: addr, Values: values}
}

func read(addr uint16, expect ...uint16) Step {
	return Step{Op: OpRead, Address: addr, Count: len(expect), Expect: expect}
}

func modePtr(m ModeConfig) *ModeConfig {
	return &m
}

// ModeOf converts a protocol mode back into its file form.
func ModeOf(m protocol.AddressMode) ModeConfig {
	return ModeConfig{WordWidth: m.WordWidth(), ExtendedAddress: m.Extended(), Burst: m.BurstCapable()}
}
