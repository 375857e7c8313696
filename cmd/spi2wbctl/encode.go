package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/spi2wb/internal/protocol"
	"github.com/spf13/cobra"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Print the SPI bytes of one frame.",
	Long:  "Encodes a single write (--values) or read (--count) frame and prints the bytes sent on MOSI.",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := protocol.NewAddressMode(getInt(cmd, "width"), getBool(cmd, "extended"), getBool(cmd, "burst"))
		if err != nil {
			return err
		}
		addr, err := parseWord(getString(cmd, "addr"))
		if err != nil {
			return fmt.Errorf("parse --addr: %w", err)
		}
		var f protocol.Frame
		if raw := getString(cmd, "values"); raw != "" {
			values, err := parseWords(raw)
			if err != nil {
				return fmt.Errorf("parse --values: %w", err)
			}
			f = protocol.NewWriteFrame(mode, addr, values...)
		} else {
			f = protocol.NewReadFrame(mode, addr, getInt(cmd, "count"))
		}
		b, err := protocol.Encode(mode, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "% X\n", b)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.Flags().Int("width", 8, "word width in bits (8 or 16)")
	encodeCmd.Flags().Bool("extended", false, "two address bytes")
	encodeCmd.Flags().Bool("burst", false, "burst capable mode")
	encodeCmd.Flags().String("addr", "0", "base address")
	encodeCmd.Flags().String("values", "", "comma separated write values; empty for a read")
	encodeCmd.Flags().Int("count", 1, "words to read")
}

func parseWords(raw string) ([]protocol.Word, error) {
	parts := strings.Split(raw, ",")
	out := make([]protocol.Word, 0, len(parts))
	for _, p := range parts {
		v, err := parseWord(p)
		if err != nil {
			return nil, err
		}
		out = append(out, protocol.Word(v))
	}
	return out, nil
}

func parseWord(raw string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 0, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
