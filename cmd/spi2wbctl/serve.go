package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/spi2wb/internal/bench"
	"github.com/danmuck/spi2wb/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scenario runner over HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := resolveSettings(cmd)
		if err != nil {
			return err
		}
		suite, err := loadSuite(s)
		if err != nil {
			return err
		}
		runner, err := bench.NewRunner(suite, factoryFor(s))
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.New("spi2wbctl", s.ServerAddr, runner, server.Options{
			CORSOrigins: s.CORSOrigins,
			Token:       s.Token,
		}).Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":9300", "listen address")
}
