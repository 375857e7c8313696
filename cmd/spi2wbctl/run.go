package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/spi2wb/internal/bench"
	"github.com/danmuck/spi2wb/internal/config"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [scenario...]",
	Short: "Run scenarios and verify the resulting bus transactions.",
	Long:  "Runs the named scenarios, or the whole suite when none are given, and exits non-zero when any scenario fails or aborts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := resolveSettings(cmd)
		if err != nil {
			return err
		}
		suite, err := loadSuite(s)
		if err != nil {
			return err
		}
		names := args
		if n := getInt(cmd, "random"); n > 0 {
			sc, err := config.Vectors(suite.Mode, int64(getInt(cmd, "seed")), n)
			if err != nil {
				return err
			}
			suite.Scenarios = append(suite.Scenarios, sc)
			if len(args) > 0 {
				names = append(names, sc.Name)
			}
		}
		if getBool(cmd, "read-ahead") {
			suite.Sim.ReadAhead = true
		}

		runner, err := bench.NewRunner(suite, factoryFor(s))
		if err != nil {
			return err
		}
		reports, runErr := runner.RunAll(cmd.Context(), names)
		summary := bench.Summarize(reports)
		for _, rep := range reports {
			printReport(cmd, rep)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d passed, %d failed\n", summary.Passed, summary.Failed)

		if s.Report != "" {
			if err := writeSummary(s.Report, summary); err != nil {
				return err
			}
		}
		if runErr != nil {
			return runErr
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d scenario(s) failed", summary.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("report", "r", "", "write a report file (.json or .toml)")
	runCmd.Flags().Int("random", 0, "append a scenario of n seeded random vectors in the suite mode")
	runCmd.Flags().Int("seed", 1, "seed for --random")
	runCmd.Flags().Bool("read-ahead", false, "model the bridge prefetching the next burst read word")
}

func printReport(cmd *cobra.Command, rep bench.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-5s %-16s %s frames=%d bytes=%d", strings.ToUpper(rep.Result), rep.Scenario, rep.Mode, rep.Frames, rep.Bytes)
	if !rep.Verified {
		fmt.Fprint(out, " (read-back only)")
	}
	fmt.Fprintln(out)
	if rep.Err != "" {
		fmt.Fprintf(out, "      error: %s\n", rep.Err)
	}
	for _, m := range rep.Readback {
		fmt.Fprintf(out, "      step %d: %s\n", m.Step, m.Mismatch)
	}
	for _, m := range rep.Mismatches {
		fmt.Fprintf(out, "      %s\n", m)
	}
}

func writeSummary(path string, summary bench.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = summary.WriteJSON(f)
	} else {
		err = summary.WriteTOML(f)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
