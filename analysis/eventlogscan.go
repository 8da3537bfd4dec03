package analysis

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/joshuapare/tracekit/config"
	"github.com/joshuapare/tracekit/eventlog"
	"github.com/joshuapare/tracekit/internal/format"
)

// EventLogAnalyzer extracts process-start and network events from the
// configured event logs of one Windows version.
type EventLogAnalyzer struct {
	logPaths   []string
	processIDs []uint32
	networkIDs []uint32
	version    string
}

// NewEventLogAnalyzer reads the per-version event-log configuration.
// Unparseable event ids are logged and dropped.
func NewEventLogAnalyzer(cfg *config.Config, version string) *EventLogAnalyzer {
	a := &EventLogAnalyzer{version: version}
	a.logPaths = cfg.List(version, "EventLogs")
	a.processIDs = parseEventIDs(cfg.List(version, "ProcessEventIDs"))
	a.networkIDs = parseEventIDs(cfg.List(version, "NetworkEventIDs"))
	return a
}

func parseEventIDs(raw []string) []uint32 {
	out := make([]uint32, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			logrus.Debugf("eventlog: ignoring malformed event id %q", s)
			continue
		}
		out = append(out, uint32(id))
	}
	return out
}

// Collect walks the configured log files and directories. Process events
// upsert rows in the table keyed by NewProcessName; network events append
// connections. Per-file failures are logged and the walk continues.
func (a *EventLogAnalyzer) Collect(imageRoot string, table *processTable) []NetworkConnection {
	var network []NetworkConnection
	for _, logPath := range a.logPaths {
		full := filepath.Join(imageRoot, filepath.FromSlash(strings.ReplaceAll(logPath, `\`, "/")))
		st, err := os.Stat(full)
		if err != nil {
			logrus.Infof("eventlog: path not present on image: %s", full)
			continue
		}

		var files []string
		if st.IsDir() {
			entries, err := os.ReadDir(full)
			if err != nil {
				logrus.Warnf("eventlog: cannot list %s: %v", full, err)
				continue
			}
			for _, e := range entries {
				if e.Type().IsRegular() {
					files = append(files, filepath.Join(full, e.Name()))
				}
			}
		} else {
			files = []string{full}
		}

		for _, file := range files {
			network = append(network, a.collectFile(file, table)...)
		}
	}
	return network
}

func (a *EventLogAnalyzer) collectFile(file string, table *processTable) []NetworkConnection {
	parser, ok := eventlog.Open(file)
	if !ok {
		logrus.Debugf("eventlog: unknown log format: %s", file)
		return nil
	}

	for _, id := range a.processIDs {
		records, err := parser.FilterByID(file, id)
		if err != nil {
			logrus.Warnf("eventlog: process events (%s, id %d): %v", file, id, err)
			continue
		}
		for _, rec := range records {
			name, ok := rec.Data.Get("NewProcessName")
			if !ok || name == "" {
				continue
			}
			info := table.upsert(name)
			info.RunCount++
			if !rec.Timestamp.IsZero() {
				info.RunTimes = append(info.RunTimes, format.FormatTimestamp(rec.Timestamp))
			}
			if info.CommandLine == "" {
				if cmd, ok := rec.Data.Get("CommandLine"); ok {
					info.CommandLine = cmd
				}
			}
		}
	}

	var network []NetworkConnection
	for _, id := range a.networkIDs {
		records, err := parser.FilterByID(file, id)
		if err != nil {
			logrus.Warnf("eventlog: network events (%s, id %d): %v", file, id, err)
			continue
		}
		for _, rec := range records {
			conn, ok := networkConnectionFromRecord(rec)
			if !ok {
				continue
			}
			network = append(network, conn)
		}
	}
	return network
}

// networkConnectionFromRecord builds a connection from the exactly-named
// EventData fields. Records without a ProcessName are silently skipped.
func networkConnectionFromRecord(rec eventlog.Record) (NetworkConnection, bool) {
	var conn NetworkConnection
	name, ok := rec.Data.Get("ProcessName")
	if !ok {
		return conn, false
	}
	conn.ProcessName = name
	conn.LocalAddress, _ = rec.Data.Get("LocalAddress")
	conn.RemoteAddress, _ = rec.Data.Get("RemoteAddress")
	conn.Protocol, _ = rec.Data.Get("Protocol")
	if portStr, ok := rec.Data.Get("Port"); ok {
		if port, err := strconv.ParseUint(portStr, 10, 16); err == nil {
			conn.Port = uint16(port)
		}
	}
	return conn, true
}
