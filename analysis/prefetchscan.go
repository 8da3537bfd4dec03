package analysis

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/joshuapare/tracekit/config"
	"github.com/joshuapare/tracekit/internal/format"
	"github.com/joshuapare/tracekit/prefetch"
)

const defaultPrefetchPath = "/Windows/Prefetch"

// PrefetchAnalyzer parses every .pf file in the version-specific prefetch
// directory.
type PrefetchAnalyzer struct {
	prefetchPath string
	version      string
}

// NewPrefetchAnalyzer reads the per-version prefetch configuration.
func NewPrefetchAnalyzer(cfg *config.Config, version string) *PrefetchAnalyzer {
	p := strings.ReplaceAll(cfg.String(version, "PrefetchPath", ""), `\`, "/")
	if strings.TrimSpace(p) == "" {
		p = defaultPrefetchPath
	}
	return &PrefetchAnalyzer{prefetchPath: p, version: version}
}

// Collect parses each prefetch file, tolerating per-file failures, and
// returns one ProcessInfo per decoded record.
func (a *PrefetchAnalyzer) Collect(imageRoot string) ([]*ProcessInfo, error) {
	dir := filepath.Join(imageRoot, filepath.FromSlash(a.prefetchPath))
	entries, err := os.ReadDir(dir)
	if err != nil {
		logrus.Infof("prefetch: directory not present on image: %s", dir)
		return nil, nil
	}

	var out []*ProcessInfo
	parsed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pf") {
			continue
		}
		rec, err := prefetch.Parse(filepath.Join(dir, e.Name()))
		if err != nil {
			logrus.Warnf("prefetch: skipping %s: %v", e.Name(), err)
			continue
		}
		parsed++

		info := &ProcessInfo{
			ExecutablePath: rec.ExecutableName,
			RunCount:       rec.RunCount,
			Volumes:        rec.Volumes,
			Metrics:        rec.Metrics,
		}
		for _, t := range rec.RunTimes {
			info.RunTimes = append(info.RunTimes, format.FormatTimestamp(t))
		}
		out = append(out, info)
	}
	logrus.Infof("prefetch: parsed %d files, %d processes", parsed, len(out))
	return out, nil
}
