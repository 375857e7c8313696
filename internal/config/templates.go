package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	KindSuite    = "suite"
	KindSettings = "settings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindSuite:
		return suiteTemplate, nil
	case KindSettings:
		return settingsTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const suiteTemplate = `[mode]
word_width = 8
extended_address = false
burst = false

[timing]
frame_spacing = "100ns"
byte_timeout = "1s"

[sim]
period = "1ns"
settle_cycles = 10
read_ahead = false

[[scenario]]
name = "two-writes"
description = "single writes to two registers"

  [[scenario.step]]
  op = "write"
  address = 0x02
  values = [0xCA]

  [[scenario.step]]
  op = "write"
  address = 0x10
  values = [0xFE]

[[scenario]]
name = "burst-readback"
description = "16-bit burst write then burst read"

  [scenario.mode]
  word_width = 16
  extended_address = true
  burst = true

  [[scenario.step]]
  op = "write"
  address = 0x10
  values = [0xAA10, 0xBB20, 0xCC30, 0xDD40, 0xEE50, 0xFF60]

  [[scenario.step]]
  op = "read"
  address = 0x10
  count = 6
  expect = [0xAA10, 0xBB20, 0xCC30, 0xDD40, 0xEE50, 0xFF60]
`

const settingsTemplate = `log_level = "info"
transport = "sim"
suite = "suite.toml"
report = ""

[spi]
port = "/dev/spidev0.0"
chip_select = ""
speed_hz = 1000000

[server]
addr = ":9300"
cors_origins = ["http://localhost:3000"]
token = ""
`
