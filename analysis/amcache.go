package analysis

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/joshuapare/tracekit/config"
	"github.com/joshuapare/tracekit/hive"
)

// AmcacheAnalyzer reads the application-compatibility inventory
// (InventoryApplication* keys) out of the version-specific Amcache hive.
type AmcacheAnalyzer struct {
	amcachePath string
	amcacheKeys []string
	version     string
}

// NewAmcacheAnalyzer reads the per-version Amcache configuration.
func NewAmcacheAnalyzer(cfg *config.Config, version string) *AmcacheAnalyzer {
	return &AmcacheAnalyzer{
		amcachePath: strings.ReplaceAll(cfg.String(version, "AmcachePath", ""), `\`, "/"),
		amcacheKeys: cfg.List(version, "AmcacheKeys"),
		version:     version,
	}
}

// Collect lists every sub-key of each configured inventory root and maps its
// well-known values into an AmcacheEntry. Any single missing field is
// non-fatal.
func (a *AmcacheAnalyzer) Collect(imageRoot string) ([]AmcacheEntry, error) {
	if a.amcachePath == "" || len(a.amcacheKeys) == 0 {
		logrus.Debugf("amcache: not configured for %q, skipped", a.version)
		return nil, nil
	}
	hivePath := filepath.Join(imageRoot, filepath.FromSlash(a.amcachePath))
	if _, err := os.Stat(hivePath); err != nil {
		logrus.Infof("amcache: hive not present on image: %s", hivePath)
		return nil, nil
	}

	h, err := hive.Open(hivePath)
	if err != nil {
		return nil, errors.Wrapf(err, "open amcache hive %s", hivePath)
	}
	defer h.Close()

	var out []AmcacheEntry
	for _, root := range a.amcacheKeys {
		subkeys, err := h.Subkeys(root)
		if err != nil {
			logrus.Warnf("amcache: cannot list %s: %v", root, err)
			continue
		}
		for _, sub := range subkeys {
			values, err := h.ValuesIn(root + "/" + sub)
			if err != nil {
				logrus.Warnf("amcache: skipping entry %s/%s: %v", root, sub, err)
				continue
			}
			if strings.Contains(root, "InventoryApplication") {
				out = append(out, decodeInventoryApplication(values))
			}
		}
	}
	logrus.Infof("amcache: extracted %d entries", len(out))
	return out, nil
}

// decodeInventoryApplication maps the well-known value names of one
// inventory record.
func decodeInventoryApplication(values []hive.Value) AmcacheEntry {
	var e AmcacheEntry
	for _, v := range values {
		switch v.Name {
		case "LowerCaseLongPath":
			if s, err := v.AsString(); err == nil {
				e.FilePath = strings.ReplaceAll(s, `\`, "/")
				if e.Name == "" {
					e.Name = path.Base(e.FilePath)
				}
			}
		case "Name":
			if s, err := v.AsString(); err == nil {
				e.Name = s
			}
		case "FileId":
			if s, err := v.AsString(); err == nil {
				e.FileHash = s
			}
		case "Version":
			if s, err := v.AsString(); err == nil {
				e.Version = s
			}
		case "Publisher":
			if s, err := v.AsString(); err == nil {
				e.Publisher = s
			}
		case "Description":
			if s, err := v.AsString(); err == nil {
				e.Description = s
			}
		case "Size":
			// QWORD preferred, DWORD accepted.
			if q, err := v.AsQword(); err == nil {
				e.FileSize = q
			} else if d, err := v.AsDword(); err == nil {
				e.FileSize = uint64(d)
			}
		case "AlternatePath":
			if s, err := v.AsString(); err == nil {
				e.AlternatePath = s
			}
		}
	}
	return e
}
