// Package analysis wires the artifact parsers into the execution-trace
// pipeline: autorun locations, Amcache inventory, Prefetch history and
// event-log process/network events, merged per executable and emitted as a
// CSV report.
package analysis

import (
	"path"
	"strings"

	"github.com/joshuapare/tracekit/prefetch"
)

// AutorunEntry is one program registered to start automatically, found in a
// registry run key or an autostart folder.
type AutorunEntry struct {
	Name     string
	Path     string // executable path extracted from the command
	Command  string // full command line as configured
	Location string // "Registry: <key>" or "Filesystem: <path>"
}

// AmcacheEntry is one InventoryApplication* record from the Amcache hive.
type AmcacheEntry struct {
	FilePath      string
	Name          string
	FileHash      string
	Version       string
	Publisher     string
	Description   string
	AlternatePath string
	FileSize      uint64
}

// NetworkConnection is one socket event attributed to a process.
type NetworkConnection struct {
	ProcessName   string
	LocalAddress  string
	RemoteAddress string
	Port          uint16
	Protocol      string
}

// ProcessInfo is the merged per-executable evidence row.
type ProcessInfo struct {
	ExecutablePath   string
	Hash             string
	Version          string
	Publisher        string
	Description      string
	CommandLine      string
	AutorunLocation  string // empty when not auto-started
	RunTimes         []string
	RunCount         uint32
	CreationTime     string // formatted, empty renders as N/A
	ModificationTime string
	Volumes          []prefetch.Volume
	Metrics          []prefetch.FileMetric
	Network          []NetworkConnection
}

// Result is everything one analysis run produced.
type Result struct {
	Version   string // matched per-version configuration section
	Autoruns  []AutorunEntry
	Amcache   []AmcacheEntry
	Processes []*ProcessInfo
	Network   []NetworkConnection
}

// processTable merges evidence by executable identity while preserving
// discovery order. Event logs record full paths where Prefetch stores only
// the short executable name, so the join key is the case-folded basename of
// the slash-normalised path; the longest path seen wins for display.
type processTable struct {
	order []*ProcessInfo
	index map[string]*ProcessInfo
}

func newProcessTable() *processTable {
	return &processTable{index: map[string]*ProcessInfo{}}
}

// processKey derives the merge key for an executable path.
func processKey(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return strings.ToLower(path.Base(p))
}

// upsert returns the row for the executable at p, creating it on first
// sight and upgrading the displayed path when a fuller one arrives.
func (t *processTable) upsert(p string) *ProcessInfo {
	key := processKey(p)
	if info, ok := t.index[key]; ok {
		if len(p) > len(info.ExecutablePath) {
			info.ExecutablePath = p
		}
		return info
	}
	info := &ProcessInfo{ExecutablePath: p}
	t.index[key] = info
	t.order = append(t.order, info)
	return info
}

// lookup finds an existing row without creating one.
func (t *processTable) lookup(p string) (*ProcessInfo, bool) {
	info, ok := t.index[processKey(p)]
	return info, ok
}
