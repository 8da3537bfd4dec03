package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/tracekit/hive"
)

func newHiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hive <hive-file> [key-path]",
		Short: "List subkeys and values of a registry hive key",
		Long: `The hive command opens a registry hive file and lists the subkeys and
decoded values under the given key path (the hive root when omitted). Paths
accept forward or backward slashes and fold case.

Example:
  tracectl hive SOFTWARE "Microsoft/Windows NT/CurrentVersion"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyPath := ""
			if len(args) == 2 {
				keyPath = args[1]
			}
			return runHive(args[0], keyPath)
		},
	}
}

func init() {
	rootCmd.AddCommand(newHiveCmd())
}

func runHive(hivePath, keyPath string) error {
	h, err := hive.Open(hivePath)
	if err != nil {
		return err
	}
	defer h.Close()

	subkeys, err := h.Subkeys(keyPath)
	if err != nil {
		return err
	}
	for _, name := range subkeys {
		fmt.Printf("[%s]\n", name)
	}

	values, err := h.ValuesIn(keyPath)
	if err != nil {
		return err
	}
	for _, v := range values {
		name := v.Name
		if name == "" {
			name = "(default)"
		}
		fmt.Printf("%-30s %-22s %s\n", name, v.Type, v.DataString())
	}
	return nil
}
