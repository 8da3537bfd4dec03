package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/tracekit/internal/format"
	"github.com/joshuapare/tracekit/prefetch"
)

func newPrefetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prefetch <file.pf>",
		Short: "Parse and dump a single Prefetch file",
		Long: `The prefetch command decodes one SCCA (.pf) file and prints its
execution metadata: run count, recorded launch times, volumes and file
metrics.

Example:
  tracectl prefetch /mnt/image/Windows/Prefetch/CALC.EXE-12345678.pf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrefetch(args[0])
		},
	}
}

func init() {
	rootCmd.AddCommand(newPrefetchCmd())
}

func runPrefetch(path string) error {
	rec, err := prefetch.Parse(path)
	if err != nil {
		return err
	}

	fmt.Printf("Executable:     %s\n", rec.ExecutableName)
	fmt.Printf("Prefetch hash:  0x%08X\n", rec.PrefetchHash)
	fmt.Printf("Format version: %d\n", rec.FormatVersion)
	fmt.Printf("Run count:      %d\n", rec.RunCount)
	if !rec.LastRunTime.IsZero() {
		fmt.Printf("Last run:       %s\n", format.FormatTimestamp(rec.LastRunTime))
	}
	for i, t := range rec.RunTimes {
		fmt.Printf("Run time %d:     %s\n", i, format.FormatTimestamp(t))
	}
	for _, v := range rec.Volumes {
		fmt.Printf("Volume:         %s (serial 0x%08X)\n", v.DevicePath, v.SerialNumber)
	}
	fmt.Printf("File metrics:   %d\n", len(rec.Metrics))
	for _, m := range rec.Metrics {
		fmt.Printf("  %s (MFT 0x%X)\n", m.Filename, m.FileReference)
	}
	return nil
}
