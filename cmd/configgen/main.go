package main

import (
	"flag"

	"github.com/danmuck/spi2wb/internal/config"
	"github.com/danmuck/spi2wb/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime()

	kind := flag.String("kind", config.KindSuite, "config kind: suite|settings")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing suite file")
	input := flag.String("input", "", "suite path for validation (defaults to cmd/spi2wbctl/suite.toml)")
	force := flag.Bool("force", false, "overwrite existing config file")
	builtin := flag.Bool("builtin", false, "write the built-in scenarios as a suite file")
	flag.Parse()

	if *validate {
		if *kind != config.KindSuite {
			log.Fatal().Str("kind", *kind).Msg("only suite files are validated here; settings load through spi2wbctl --config")
		}
		path := *input
		if path == "" {
			path = "cmd/spi2wbctl/suite.toml"
		}
		suite, err := config.LoadSuite(path)
		if err != nil {
			log.Fatal().Err(err).Msg("validate")
		}
		log.Info().Str("path", path).Int("scenarios", len(suite.Scenarios)).Msg("validated suite")
		return
	}

	target := *output
	if target == "" {
		switch *kind {
		case config.KindSuite:
			target = "cmd/spi2wbctl/suite.toml"
		case config.KindSettings:
			target = "cmd/spi2wbctl/config.toml"
		default:
			log.Fatal().Str("kind", *kind).Msg("unknown kind")
		}
	}

	if *builtin {
		if err := writeBuiltin(target, *force); err != nil {
			log.Fatal().Err(err).Msg("write builtin suite")
		}
		log.Info().Str("path", target).Msg("wrote built-in suite")
		return
	}

	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal().Err(err).Msg("write template")
	}
	log.Info().Str("kind", *kind).Str("path", target).Msg("wrote config template")
}
