package analysis

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/joshuapare/tracekit/config"
	"github.com/joshuapare/tracekit/internal/format"
	"github.com/joshuapare/tracekit/osdetect"
)

// Analyzer is the one-shot orchestrator: detect the Windows version, run
// the four analysers with its configuration slice, merge by executable
// identity.
type Analyzer struct {
	imageRoot string
	cfg       *config.Config
}

// New builds an analyzer over an image root and a loaded configuration.
func New(imageRoot string, cfg *config.Config) *Analyzer {
	return &Analyzer{imageRoot: imageRoot, cfg: cfg}
}

// Run executes the pipeline. OS detection failure is the only fatal error;
// an analyser failing entirely is logged and the remaining analysers still
// contribute to a partial result.
func (a *Analyzer) Run() (*Result, *osdetect.Info, error) {
	osInfo, err := osdetect.New(a.cfg).Detect(a.imageRoot)
	if err != nil {
		return nil, nil, err
	}

	version, ok := osInfo.MatchVersion(a.cfg.List("General", "Versions"))
	if !ok {
		logrus.Warnf("analysis: no configured version matches %q; analysers run unconfigured", osInfo.FullName)
	}
	res := &Result{Version: version}

	autoruns, err := NewAutorunAnalyzer(a.cfg, version).Collect(a.imageRoot)
	if err != nil {
		logrus.Errorf("analysis: autorun analyser failed: %v", err)
	}
	res.Autoruns = autoruns

	amcache, err := NewAmcacheAnalyzer(a.cfg, version).Collect(a.imageRoot)
	if err != nil {
		logrus.Errorf("analysis: amcache analyser failed: %v", err)
	}
	res.Amcache = amcache

	prefetchInfos, err := NewPrefetchAnalyzer(a.cfg, version).Collect(a.imageRoot)
	if err != nil {
		logrus.Errorf("analysis: prefetch analyser failed: %v", err)
	}

	table := newProcessTable()
	mergeAutoruns(table, res.Autoruns)
	mergeAmcache(table, res.Amcache)
	mergePrefetch(table, prefetchInfos)
	res.Network = NewEventLogAnalyzer(a.cfg, version).Collect(a.imageRoot, table)
	attachNetwork(table, res.Network)
	a.fillFileTimes(table)

	res.Processes = table.order
	return res, osInfo, nil
}

// mergeAutoruns seeds the table: an autorun hit contributes its location
// and command line.
func mergeAutoruns(table *processTable, entries []AutorunEntry) {
	for _, e := range entries {
		info := table.upsert(e.Path)
		if info.AutorunLocation == "" {
			info.AutorunLocation = e.Location
		}
		if info.CommandLine == "" {
			info.CommandLine = e.Command
		}
	}
}

// mergeAmcache contributes hash, version, publisher and description.
func mergeAmcache(table *processTable, entries []AmcacheEntry) {
	for _, e := range entries {
		if e.FilePath == "" && e.Name == "" {
			continue
		}
		p := e.FilePath
		if p == "" {
			p = e.Name
		}
		info := table.upsert(p)
		if info.Hash == "" {
			info.Hash = e.FileHash
		}
		if info.Version == "" {
			info.Version = e.Version
		}
		if info.Publisher == "" {
			info.Publisher = e.Publisher
		}
		if info.Description == "" {
			info.Description = e.Description
		}
	}
}

// mergePrefetch contributes the authoritative run count plus volume and
// metric context, and its recorded run times.
func mergePrefetch(table *processTable, infos []*ProcessInfo) {
	for _, pf := range infos {
		info := table.upsert(pf.ExecutablePath)
		info.RunCount = pf.RunCount
		info.RunTimes = append(info.RunTimes, pf.RunTimes...)
		info.Volumes = pf.Volumes
		info.Metrics = pf.Metrics
	}
}

// attachNetwork hangs each connection off its process row when one exists.
// Connections for processes with no other evidence still reach the result's
// Network list.
func attachNetwork(table *processTable, conns []NetworkConnection) {
	for _, c := range conns {
		if info, ok := table.lookup(c.ProcessName); ok {
			info.Network = append(info.Network, c)
		}
	}
}

// fillFileTimes enriches rows whose executable still exists on the mounted
// image with the filesystem modification time. Creation time is not
// portably available offline and stays absent.
func (a *Analyzer) fillFileTimes(table *processTable) {
	for _, info := range table.order {
		rel, ok := imageRelativePath(info.ExecutablePath)
		if !ok {
			continue
		}
		st, err := os.Stat(filepath.Join(a.imageRoot, filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		info.ModificationTime = format.FormatTimestamp(st.ModTime())
	}
}

// imageRelativePath rewrites a recorded executable path into an image-root
// relative one: drive-letter prefixes are stripped, NT device paths are
// mapped through their volume component.
func imageRelativePath(p string) (string, bool) {
	p = strings.ReplaceAll(p, `\`, "/")
	if len(p) >= 3 && p[1] == ':' && p[2] == '/' {
		return p[3:], true
	}
	upper := strings.ToUpper(p)
	if strings.HasPrefix(upper, "/DEVICE/") {
		rest := p[len("/DEVICE/"):]
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			return rest[slash+1:], true
		}
	}
	return "", false
}
