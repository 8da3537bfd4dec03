package analysis

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// reportColumns is the CSV header, in contract order.
var reportColumns = []string{
	"executable_path", "hash", "run_times", "autorun", "version", "network",
	"command_line", "creation_time", "modification_time", "run_count",
}

// WriteCSV emits the merged report. Every field is double-quote-wrapped
// with embedded quotes doubled; a run with zero processes still produces
// the header.
func (r *Result) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create report %s", path)
	}
	defer f.Close()

	var sb strings.Builder
	writeRow(&sb, reportColumns)
	for _, info := range r.Processes {
		writeRow(&sb, []string{
			info.ExecutablePath,
			orNA(info.Hash),
			strings.Join(info.RunTimes, ";"),
			autorunColumn(info),
			info.Version,
			networkColumn(info.Network),
			info.CommandLine,
			orNA(info.CreationTime),
			orNA(info.ModificationTime),
			fmt.Sprintf("%d", info.RunCount),
		})
	}
	if _, err := f.WriteString(sb.String()); err != nil {
		return errors.Wrapf(err, "write report %s", path)
	}
	return f.Sync()
}

// writeRow quotes every field unconditionally, doubling embedded quotes.
func writeRow(sb *strings.Builder, fields []string) {
	for i, field := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(field, `"`, `""`))
		sb.WriteByte('"')
	}
	sb.WriteByte('\n')
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// autorunColumn renders "No" or "Yes(<location>)".
func autorunColumn(info *ProcessInfo) string {
	if info.AutorunLocation == "" {
		return "No"
	}
	return "Yes(" + info.AutorunLocation + ")"
}

// networkColumn renders the semicolon-terminated connection sequence:
// protocol:local->remote:port;
func networkColumn(conns []NetworkConnection) string {
	var sb strings.Builder
	for _, c := range conns {
		fmt.Fprintf(&sb, "%s:%s->%s:%d;", c.Protocol, c.LocalAddress, c.RemoteAddress, c.Port)
	}
	return sb.String()
}
