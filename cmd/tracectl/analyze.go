package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/tracekit/analysis"
	"github.com/joshuapare/tracekit/config"
)

var analyzeConfigPath string

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <image-root> <output.csv>",
		Short: "Analyze a mounted Windows image and write the execution report",
		Long: `The analyze command runs the full pipeline against a mounted Windows disk
image: OS detection from the SOFTWARE hive, then autorun, Amcache, Prefetch
and event-log analysis, merged per executable into a CSV report.

A successful run always writes a CSV, possibly with zero data rows. The only
pipeline-fatal condition is OS detection failing.

Example:
  tracectl analyze /mnt/image report.csv
  tracectl analyze /mnt/image report.csv --config custom.ini`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(args[0], args[1])
		},
	}
	cmd.Flags().StringVar(&analyzeConfigPath, "config", "tracekit.ini", "Analysis configuration file")
	return cmd
}

func init() {
	rootCmd.AddCommand(newAnalyzeCmd())
}

func runAnalyze(imageRoot, outputPath string) error {
	cfg, err := config.Load(analyzeConfigPath)
	if err != nil {
		return err
	}

	res, osInfo, err := analysis.New(imageRoot, cfg).Run()
	if err != nil {
		return err
	}
	if err := res.WriteCSV(outputPath); err != nil {
		return err
	}

	printInfo("Detected OS: %s (%s)\n", osInfo.FullName, osInfo.Classification)
	printInfo("Report: %s (%d processes, %d autorun entries, %d connections)\n",
		outputPath, len(res.Processes), len(res.Autoruns), len(res.Network))
	return nil
}
