package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/tracekit/config"
	"github.com/joshuapare/tracekit/osdetect"
)

var osinfoConfigPath string

func newOsinfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "osinfo <image-root>",
		Short: "Detect the Windows version of a mounted image",
		Long: `The osinfo command runs OS detection alone: it samples the image's
SOFTWARE hive and prints the classification.

Example:
  tracectl osinfo /mnt/image`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOsinfo(args[0])
		},
	}
	cmd.Flags().StringVar(&osinfoConfigPath, "config", "tracekit.ini", "Analysis configuration file")
	return cmd
}

func init() {
	rootCmd.AddCommand(newOsinfoCmd())
}

func runOsinfo(imageRoot string) error {
	cfg, err := config.Load(osinfoConfigPath)
	if err != nil {
		return err
	}
	info, err := osdetect.New(cfg).Detect(imageRoot)
	if err != nil {
		return err
	}

	fmt.Printf("Product name:    %s\n", info.ProductName)
	fmt.Printf("Canonical name:  %s\n", info.CanonicalName)
	fmt.Printf("Full name:       %s\n", info.FullName)
	fmt.Printf("Build:           %s\n", info.CurrentBuild)
	fmt.Printf("Version:         %s\n", info.CurrentVersion)
	fmt.Printf("Edition:         %s\n", info.EditionID)
	fmt.Printf("Classification:  %s\n", info.Classification)
	return nil
}
