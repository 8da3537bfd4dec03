// Package osdetect classifies the Windows installation on a mounted disk
// image by sampling the SOFTWARE hive. Detection profiles, build-number
// mappings and server keywords all come from the analysis configuration, so
// new Windows releases are a config change, not a code change.
package osdetect

import (
	"errors"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/joshuapare/tracekit/config"
	"github.com/joshuapare/tracekit/hive"
)

// ErrDetectionFailed is the orchestrator-fatal failure: no detection profile
// produced a usable classification.
var ErrDetectionFailed = errors.New("osdetect: OS detection failed")

// Classification splits installations into client and server systems.
type Classification int

const (
	Client Classification = iota
	Server
)

func (c Classification) String() string {
	if c == Server {
		return "Server"
	}
	return "Client"
}

// Info is the detected operating-system identity.
type Info struct {
	ProductName    string
	EditionID      string
	ReleaseID      string
	DisplayVersion string
	CurrentBuild   string
	CurrentVersion string
	Classification Classification
	// CanonicalName is the build-map name (e.g. "Windows 10 (22H2)");
	// falls back to ProductName when the build is unmapped.
	CanonicalName string
	// FullName joins canonical name, edition, display version, release id
	// and build with single spaces, skipping empty components.
	FullName string
}

// Config section and key names the detector consumes.
const (
	sectionHive         = "OSInfoHive"
	sectionProfiles     = "OSInfoRegistryPaths"
	sectionKeys         = "OSInfoKeys"
	sectionBuildsClient = "BuildMappingsClient"
	sectionBuildsServer = "BuildMappingsServer"
	sectionKeywords     = "OSKeywords"
	keySoftwarePath     = "SoftwarePath"
	keyValueNames       = "ValueNames"
	keyServerKeywords   = "DefaultServerKeywords"
	defaultSoftwarePath = "Windows/System32/config/SOFTWARE"
)

// defaultServerKeywords backs the config list when absent.
var defaultServerKeywords = []string{
	"Server", "Datacenter", "Enterprise", "Storage", "Cluster", "Foundation",
	"Essentials", "Small Business", "MultiPoint", "Hyper-V", "Azure", "Cloud",
	"Nano", "Web",
}

// Detector reads the SOFTWARE hive under an image root.
type Detector struct {
	cfg *config.Config
}

// New builds a detector over the shared configuration.
func New(cfg *config.Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect opens the image's SOFTWARE hive and tries each configured profile
// in order. A profile wins when it yields ProductName plus at least one of
// CurrentVersion / CurrentBuild. No winner means ErrDetectionFailed.
func (d *Detector) Detect(imageRoot string) (*Info, error) {
	hivePath := filepath.Join(imageRoot,
		filepath.FromSlash(strings.ReplaceAll(d.cfg.String(sectionHive, keySoftwarePath, defaultSoftwarePath), `\`, "/")))

	h, err := hive.Open(hivePath)
	if err != nil {
		logrus.Errorf("osdetect: cannot open SOFTWARE hive %s: %v", hivePath, err)
		return nil, ErrDetectionFailed
	}
	defer h.Close()

	profiles := d.profileKeyPaths()
	for _, keyPath := range profiles {
		info, ok := d.sampleProfile(h, keyPath)
		if !ok {
			continue
		}
		d.classify(info)
		logrus.Infof("osdetect: detected %s (build %s, %s)", info.FullName, info.CurrentBuild, info.Classification)
		return info, nil
	}
	return nil, ErrDetectionFailed
}

// profileKeyPaths returns the configured hive-relative key paths, in
// document order, with the stock CurrentVersion path as fallback.
func (d *Detector) profileKeyPaths() []string {
	keys := d.cfg.KeysIn(sectionProfiles)
	if len(keys) == 0 {
		return []string{"Microsoft/Windows NT/CurrentVersion"}
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if p := d.cfg.String(sectionProfiles, k, ""); p != "" {
			out = append(out, strings.ReplaceAll(p, `\`, "/"))
		}
	}
	return out
}

// sampleProfile reads the configured value names under keyPath.
func (d *Detector) sampleProfile(h *hive.Hive, keyPath string) (*Info, bool) {
	values, err := h.ValuesIn(keyPath)
	if err != nil {
		logrus.Debugf("osdetect: profile %s unreadable: %v", keyPath, err)
		return nil, false
	}
	byName := map[string]string{}
	wanted := d.cfg.List(sectionKeys, keyValueNames)
	if len(wanted) == 0 {
		wanted = []string{
			"ProductName", "CurrentVersion", "CurrentBuild", "CurrentBuildNumber",
			"EditionID", "ReleaseId", "DisplayVersion", "CSDVersion",
		}
	}
	for _, v := range values {
		for _, name := range wanted {
			if strings.EqualFold(v.Name, name) {
				if s, err := v.AsString(); err == nil {
					byName[name] = s
				}
			}
		}
	}

	info := &Info{
		ProductName:    byName["ProductName"],
		CurrentVersion: byName["CurrentVersion"],
		CurrentBuild:   byName["CurrentBuild"],
		EditionID:      byName["EditionID"],
		ReleaseID:      byName["ReleaseId"],
		DisplayVersion: byName["DisplayVersion"],
	}
	if info.CurrentBuild == "" {
		info.CurrentBuild = byName["CurrentBuildNumber"]
	}
	// Old releases carry the service pack where newer ones carry a release id.
	if info.ReleaseID == "" {
		info.ReleaseID = byName["CSDVersion"]
	}

	if info.ProductName == "" || (info.CurrentVersion == "" && info.CurrentBuild == "") {
		return nil, false
	}
	return info, true
}

// classify fills Classification, CanonicalName and FullName.
func (d *Detector) classify(info *Info) {
	keywords := d.cfg.List(sectionKeywords, keyServerKeywords)
	if len(keywords) == 0 {
		keywords = defaultServerKeywords
	}
	if containsAnyKeyword(info.ProductName, keywords) || containsAnyKeyword(info.EditionID, keywords) {
		info.Classification = Server
	}

	section := sectionBuildsClient
	if info.Classification == Server {
		section = sectionBuildsServer
	}
	info.CanonicalName = info.ProductName
	if build, err := strconv.Atoi(strings.TrimSpace(info.CurrentBuild)); err == nil {
		if name, ok := d.lookupBuild(section, build); ok {
			info.CanonicalName = name
		}
	}

	parts := []string{info.CanonicalName, info.EditionID, info.DisplayVersion, info.ReleaseID, info.CurrentBuild}
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	info.FullName = strings.Join(kept, " ")
}

// lookupBuild resolves a build number through the configured map: exact
// match first, otherwise the greatest mapped build at or below it.
func (d *Detector) lookupBuild(section string, build int) (string, bool) {
	keys := d.cfg.KeysIn(section)
	if len(keys) == 0 {
		return "", false
	}
	builds := make([]int, 0, len(keys))
	names := map[int]string{}
	for _, k := range keys {
		n, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			logrus.Warnf("osdetect: ignoring non-numeric build key %q in [%s]", k, section)
			continue
		}
		builds = append(builds, n)
		names[n] = d.cfg.String(section, k, "")
	}
	if len(builds) == 0 {
		return "", false
	}
	sort.Ints(builds)
	idx := sort.SearchInts(builds, build)
	if idx < len(builds) && builds[idx] == build {
		return names[build], true
	}
	if idx == 0 {
		return "", false // every known build is newer
	}
	return names[builds[idx-1]], true
}

func containsAnyKeyword(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// MatchVersion picks the per-version configuration section for this
// installation: the longest configured version string contained
// (case-folded) in the full name, canonical name or product name.
func (i *Info) MatchVersion(versions []string) (string, bool) {
	haystacks := []string{
		strings.ToLower(i.FullName),
		strings.ToLower(i.CanonicalName),
		strings.ToLower(i.ProductName),
	}
	best := ""
	for _, v := range versions {
		needle := strings.ToLower(strings.TrimSpace(v))
		if needle == "" {
			continue
		}
		for _, hay := range haystacks {
			if strings.Contains(hay, needle) && len(v) > len(best) {
				best = v
				break
			}
		}
	}
	return best, best != ""
}
