package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/tracekit/eventlog"
	"github.com/joshuapare/tracekit/internal/format"
)

var eventlogFilterID uint32

func newEventlogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eventlog <file.evt|file.evtx>",
		Short: "Parse a Windows event log",
		Long: `The eventlog command decodes a legacy (.evt) or modern (.evtx) event
log and prints its records. With --id, only matching records are shown.

Example:
  tracectl eventlog Security.evtx --id 4688`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventlog(args[0])
		},
	}
	cmd.Flags().Uint32Var(&eventlogFilterID, "id", 0, "Only show records with this event id")
	return cmd
}

func init() {
	rootCmd.AddCommand(newEventlogCmd())
}

func runEventlog(path string) error {
	parser, ok := eventlog.Open(path)
	if !ok {
		return fmt.Errorf("unknown event log extension: %s", path)
	}

	var records []eventlog.Record
	var err error
	if eventlogFilterID != 0 {
		records, err = parser.FilterByID(path, eventlogFilterID)
	} else {
		records, err = parser.ParseAll(path)
	}
	if err != nil {
		return err
	}

	for _, r := range records {
		ts := "N/A"
		if !r.Timestamp.IsZero() {
			ts = format.FormatTimestamp(r.Timestamp)
		}
		fmt.Printf("[%s] id=%d level=%s provider=%q computer=%q\n",
			ts, r.EventID, r.Level, r.Provider, r.Computer)
		for _, f := range r.Data {
			fmt.Printf("    %s = %s\n", f.Name, f.Value)
		}
	}
	printInfo("%d records\n", len(records))
	return nil
}
