package main

import (
	"fmt"
	"os"

	"github.com/danmuck/spi2wb/internal/config"
)

func writeBuiltin(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	raw, err := config.MarshalSuite(config.Builtin())
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}
