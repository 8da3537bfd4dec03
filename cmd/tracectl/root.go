package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/tracekit/internal/logging"
)

var (
	// Global flags
	logLevel string
	logFile  string
	quiet    bool
)

var rootCmd = &cobra.Command{
	Use:   "tracectl",
	Short: "Extract program-execution traces from mounted Windows disk images",
	Long: `tracectl reads a mounted Windows disk image offline and reports program
execution activity: which executables ran, when, from where, what auto-starts
them, what sockets they opened, and what the OS caches (Prefetch, Amcache,
event logs) record about them. The image is never written to.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logLevel
		if quiet {
			level = "error"
		}
		return logging.SetUp(level, logFile, logging.DefaultRotateArgs)
	},
}

func init() {
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().
		StringVar(&logFile, "log-file", "", "Write logs to this file (rotated) instead of stderr")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// printInfo prints a message unless quiet mode is on.
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}
