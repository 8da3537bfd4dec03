package analysis

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/joshuapare/tracekit/config"
	"github.com/joshuapare/tracekit/hive"
)

// AutorunAnalyzer walks the configured registry run keys and autostart
// folders of one Windows version.
type AutorunAnalyzer struct {
	registryPath string   // hive file, relative to the image root
	registryKeys []string // key paths within that hive
	fsPaths      []string // filesystem paths, single trailing-* wildcard allowed
	version      string
}

// NewAutorunAnalyzer reads the per-version autorun configuration.
func NewAutorunAnalyzer(cfg *config.Config, version string) *AutorunAnalyzer {
	a := &AutorunAnalyzer{version: version}
	a.registryPath = strings.ReplaceAll(cfg.String(version, "RegistryPath", ""), `\`, "/")
	for _, key := range cfg.List(version, "RegistryKeys") {
		a.registryKeys = append(a.registryKeys, strings.ReplaceAll(key, `\`, "/"))
	}
	a.fsPaths = cfg.List(version, "FilesystemPaths")
	return a
}

// Collect gathers autorun entries from the image. Missing locations are
// logged and contribute nothing; only a broken hive aborts the registry
// half.
func (a *AutorunAnalyzer) Collect(imageRoot string) ([]AutorunEntry, error) {
	var out []AutorunEntry

	regEntries, err := a.collectRegistry(imageRoot)
	if err != nil {
		return nil, err
	}
	out = append(out, regEntries...)
	out = append(out, a.collectFilesystem(imageRoot)...)

	logrus.Infof("autorun: found %d entries", len(out))
	return out, nil
}

func (a *AutorunAnalyzer) collectRegistry(imageRoot string) ([]AutorunEntry, error) {
	if a.registryPath == "" || len(a.registryKeys) == 0 {
		logrus.Debugf("autorun: no registry locations configured for %q", a.version)
		return nil, nil
	}
	hivePath := filepath.Join(imageRoot, filepath.FromSlash(a.registryPath))
	if _, err := os.Stat(hivePath); err != nil {
		logrus.Infof("autorun: hive not present on image: %s", hivePath)
		return nil, nil
	}

	h, err := hive.Open(hivePath)
	if err != nil {
		return nil, errors.Wrapf(err, "open autorun hive %s", hivePath)
	}
	defer h.Close()

	var out []AutorunEntry
	for _, keyPath := range a.registryKeys {
		values, err := h.ValuesIn(keyPath)
		if err != nil {
			logrus.Warnf("autorun: skipping key %s: %v", keyPath, err)
			continue
		}
		for _, v := range values {
			entry := AutorunEntry{
				Name:     strings.TrimSpace(v.Name),
				Command:  strings.TrimSpace(v.DataString()),
				Location: "Registry: " + keyPath,
			}
			entry.Path = parsePathFromCommand(entry.Command)
			if entry.Path == "" {
				continue
			}
			out = append(out, entry)
		}
	}
	return out, nil
}

func (a *AutorunAnalyzer) collectFilesystem(imageRoot string) []AutorunEntry {
	var out []AutorunEntry
	for _, p := range a.fsPaths {
		if strings.Contains(p, "*") {
			out = append(out, a.expandWildcard(imageRoot, p)...)
			continue
		}
		full := filepath.Join(imageRoot, filepath.FromSlash(strings.ReplaceAll(p, `\`, "/")))
		if _, err := os.Stat(full); err != nil {
			logrus.Infof("autorun: path not present on image: %s", full)
			continue
		}
		out = append(out, filesystemEntry(full, p))
	}
	return out
}

// expandWildcard lists the directory left of the single trailing *.
func (a *AutorunAnalyzer) expandWildcard(imageRoot, pattern string) []AutorunEntry {
	starPos := strings.Index(pattern, "*")
	base := pattern[:starPos]
	dir := filepath.Join(imageRoot, filepath.FromSlash(strings.ReplaceAll(base, `\`, "/")))

	entries, err := os.ReadDir(dir)
	if err != nil {
		logrus.Infof("autorun: wildcard base not present on image: %s", dir)
		return nil
	}
	var out []AutorunEntry
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		out = append(out, filesystemEntry(filepath.Join(dir, e.Name()), pattern))
	}
	return out
}

func filesystemEntry(fullPath, location string) AutorunEntry {
	return AutorunEntry{
		Name:     filepath.Base(fullPath),
		Path:     strings.ReplaceAll(fullPath, `\`, "/"),
		Location: "Filesystem: " + location,
	}
}

// parsePathFromCommand extracts the first quoted-or-bare token of an autorun
// command: the executable path without its arguments.
func parsePathFromCommand(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return ""
	}
	if cmd[0] == '"' {
		rest := cmd[1:]
		if end := strings.IndexByte(rest, '"'); end >= 0 {
			return rest[:end]
		}
		return strings.TrimSpace(rest)
	}
	if sp := strings.IndexAny(cmd, " \t"); sp >= 0 {
		return cmd[:sp]
	}
	return cmd
}
