package analysis

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/tracekit/config"
	"github.com/joshuapare/tracekit/eventlog"
	"github.com/joshuapare/tracekit/internal/hivetest"
)

const analysisINI = `
[General]
Versions = Windows 10, Windows XP

[OSInfoHive]
SoftwarePath = Windows/System32/config/SOFTWARE

[OSInfoRegistryPaths]
CurrentVersion = Microsoft/Windows NT/CurrentVersion

[OSKeywords]
DefaultServerKeywords = Server, Datacenter

[BuildMappingsClient]
10240 = Windows 10 (1507)
19045 = Windows 10 (22H2)

[BuildMappingsServer]
17763 = Windows Server 2019

[Windows 10]
RegistryPath = Windows/System32/config/SOFTWARE
RegistryKeys = Microsoft/Windows/CurrentVersion/Run
FilesystemPaths = ProgramData/Microsoft/Windows/Start Menu/Programs/StartUp/*
AmcachePath = Windows/appcompat/Programs/Amcache.hve
AmcacheKeys = Root/InventoryApplicationFile
PrefetchPath = Windows/Prefetch
EventLogs = Windows/System32/winevt/Logs
ProcessEventIDs = 4688
NetworkEventIDs = 5156
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c, err := config.LoadBytes([]byte(analysisINI))
	require.NoError(t, err)
	return c
}

// writeSoftwareHive drops a SOFTWARE hive with CurrentVersion identity
// values and one Run-key autorun entry.
func writeSoftwareHive(t *testing.T, imageRoot string) {
	t.Helper()
	var b hivetest.Builder

	cvValues := b.ValueList(
		b.SZ("ProductName", "Windows 10 Pro"),
		b.SZ("CurrentVersion", "6.3"),
		b.SZ("CurrentBuild", "19045"),
		b.SZ("EditionID", "Professional"),
		b.SZ("DisplayVersion", "22H2"),
	)
	currentVersion := b.NK("CurrentVersion", 0, hivetest.InvalidOffset, 5, cvValues)
	windowsNT := b.NK("Windows NT", 1, b.LF(currentVersion), 0, hivetest.InvalidOffset)

	runValues := b.ValueList(
		b.SZ("Updater", `"C:\Program Files\Updater\updater.exe" /background`),
	)
	run := b.NK("Run", 0, hivetest.InvalidOffset, 1, runValues)
	currentVersionW := b.NK("CurrentVersion", 1, b.LF(run), 0, hivetest.InvalidOffset)
	windows := b.NK("Windows", 1, b.LF(currentVersionW), 0, hivetest.InvalidOffset)

	microsoft := b.NK("Microsoft", 2, b.LF(windows, windowsNT), 0, hivetest.InvalidOffset)
	root := b.NK("ROOT", 1, b.LF(microsoft), 0, hivetest.InvalidOffset)

	dir := filepath.Join(imageRooted(imageRoot, "Windows/System32/config"))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SOFTWARE"), b.Build(root), 0o644))
}

// writeAmcacheHive drops an Amcache hive with one inventory record.
func writeAmcacheHive(t *testing.T, imageRoot string) {
	t.Helper()
	var b hivetest.Builder

	entryValues := b.ValueList(
		b.SZ("LowerCaseLongPath", `c:\program files\updater\updater.exe`),
		b.SZ("FileId", "0000abcdef0123456789"),
		b.SZ("Publisher", "Example Corp"),
		b.SZ("Version", "2.4.1"),
		b.SZ("Description", "Background updater"),
		b.VKInline("Size", 4, []byte{0x00, 0x10, 0x00, 0x00}),
	)
	entry := b.NK("0000aa", 0, hivetest.InvalidOffset, 6, entryValues)
	inventory := b.NK("InventoryApplicationFile", 1, b.LF(entry), 0, hivetest.InvalidOffset)
	rootKey := b.NK("Root", 1, b.LF(inventory), 0, hivetest.InvalidOffset)
	root := b.NK("ROOT", 1, b.LF(rootKey), 0, hivetest.InvalidOffset)

	dir := imageRooted(imageRoot, "Windows/appcompat/Programs")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Amcache.hve"), b.Build(root), 0o644))
}

// writePrefetchFile drops a minimal version-17 prefetch record with one run
// time and no volume/metric arrays.
func writePrefetchFile(t *testing.T, imageRoot, name string, runCount uint32, runTime uint64) {
	t.Helper()
	buf := make([]byte, 0x100)
	binary.LittleEndian.PutUint32(buf, 17)
	copy(buf[0x04:], "SCCA")
	nameU16 := hivetest.UTF16Z(name)
	copy(buf[0x10:], nameU16)
	binary.LittleEndian.PutUint32(buf[0x4C:], 0x1234)
	binary.LittleEndian.PutUint64(buf[0x78:], runTime)
	binary.LittleEndian.PutUint32(buf[0x90:], runCount)
	binary.LittleEndian.PutUint32(buf[0x0C:], uint32(len(buf)))

	dir := imageRooted(imageRoot, "Windows/Prefetch")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+"-1B2C3D4E.pf"), buf, 0o644))
}

func imageRooted(imageRoot, rel string) string {
	return filepath.Join(imageRoot, filepath.FromSlash(rel))
}

const ftMarch2019 = 0x01D4D3F0B9C10000 // 2019-03-06 07:46:36 UTC

func buildImage(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeSoftwareHive(t, root)
	writeAmcacheHive(t, root)
	writePrefetchFile(t, root, "UPDATER.EXE", 7, ftMarch2019)

	// A junk prefetch file with an unknown version must not stop the scan.
	junk := make([]byte, 0x100)
	binary.LittleEndian.PutUint32(junk, 42)
	copy(junk[0x04:], "SCCA")
	copy(junk[0x10:], hivetest.UTF16Z("JUNK.EXE"))
	require.NoError(t, os.WriteFile(
		filepath.Join(imageRooted(root, "Windows/Prefetch"), "JUNK.EXE-00000000.pf"), junk, 0o644))

	// Startup folder with one entry.
	startup := imageRooted(root, "ProgramData/Microsoft/Windows/Start Menu/Programs/StartUp")
	require.NoError(t, os.MkdirAll(startup, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(startup, "notes.lnk"), []byte("lnk"), 0o644))

	// Empty log directory: benign absence of events.
	require.NoError(t, os.MkdirAll(imageRooted(root, "Windows/System32/winevt/Logs"), 0o755))
	return root
}

func TestRunMergesAllSources(t *testing.T) {
	root := buildImage(t)
	res, osInfo, err := New(root, testConfig(t)).Run()
	require.NoError(t, err)

	assert.Equal(t, "Windows 10", res.Version)
	assert.Equal(t, "Windows 10 (22H2)", osInfo.CanonicalName)

	// One autorun from the registry, one from the startup folder.
	require.Len(t, res.Autoruns, 2)
	assert.Equal(t, `C:\Program Files\Updater\updater.exe`, res.Autoruns[0].Path)
	assert.Equal(t, "Registry: Microsoft/Windows/CurrentVersion/Run", res.Autoruns[0].Location)
	assert.Contains(t, res.Autoruns[1].Location, "Filesystem:")

	require.Len(t, res.Amcache, 1)
	assert.Equal(t, "0000abcdef0123456789", res.Amcache[0].FileHash)

	// updater.exe merges across autorun + amcache + prefetch by basename:
	// the prefetch run count is authoritative, amcache supplies the hash,
	// autorun the location and command.
	var updater *ProcessInfo
	for _, p := range res.Processes {
		if processKey(p.ExecutablePath) == "updater.exe" {
			updater = p
		}
	}
	require.NotNil(t, updater)
	assert.Equal(t, uint32(7), updater.RunCount)
	assert.Equal(t, "0000abcdef0123456789", updater.Hash)
	assert.Equal(t, "2.4.1", updater.Version)
	assert.Equal(t, "Registry: Microsoft/Windows/CurrentVersion/Run", updater.AutorunLocation)
	require.Len(t, updater.RunTimes, 1)
	assert.Equal(t, "2019-03-06 07:46:36", updater.RunTimes[0])
	// The full path from autorun/amcache beats prefetch's short name.
	assert.True(t, strings.Contains(strings.ToLower(updater.ExecutablePath), "program files"))
}

func TestRunFailsWithoutSoftwareHive(t *testing.T) {
	_, _, err := New(t.TempDir(), testConfig(t)).Run()
	require.Error(t, err)
}

func TestProcessTableJoinsByBasename(t *testing.T) {
	table := newProcessTable()
	a := table.upsert("CALC.EXE")
	b := table.upsert(`C:\Windows\System32\calc.exe`)
	assert.Same(t, a, b)
	assert.Equal(t, `C:\Windows\System32\calc.exe`, a.ExecutablePath)
	assert.Len(t, table.order, 1)

	_, ok := table.lookup(`/Device/HarddiskVolume2/Windows/System32/CALC.EXE`)
	assert.True(t, ok)
}

func TestParsePathFromCommand(t *testing.T) {
	assert.Equal(t, `C:\Program Files\App\app.exe`,
		parsePathFromCommand(`"C:\Program Files\App\app.exe" --flag`))
	assert.Equal(t, `C:\Windows\system32\ctfmon.exe`,
		parsePathFromCommand(`C:\Windows\system32\ctfmon.exe`))
	assert.Equal(t, `C:\tool.exe`, parsePathFromCommand(`C:\tool.exe /q /s`))
	assert.Equal(t, "", parsePathFromCommand("   "))
}

func TestNetworkConnectionFromRecord(t *testing.T) {
	rec := eventlog.Record{Data: eventlog.EventData{
		{Name: "ProcessName", Value: `C:\svc.exe`},
		{Name: "LocalAddress", Value: "10.0.0.5"},
		{Name: "RemoteAddress", Value: "93.184.216.34"},
		{Name: "Port", Value: "443"},
		{Name: "Protocol", Value: "TCP"},
	}}
	conn, ok := networkConnectionFromRecord(rec)
	require.True(t, ok)
	assert.Equal(t, uint16(443), conn.Port)
	assert.Equal(t, "TCP", conn.Protocol)

	_, ok = networkConnectionFromRecord(eventlog.Record{Data: eventlog.EventData{
		{Name: "LocalAddress", Value: "10.0.0.5"},
	}})
	assert.False(t, ok)
}

func TestAutorunIdempotence(t *testing.T) {
	root := buildImage(t)
	a := NewAutorunAnalyzer(testConfig(t), "Windows 10")
	first, err := a.Collect(root)
	require.NoError(t, err)
	second, err := a.Collect(root)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestImageRelativePath(t *testing.T) {
	rel, ok := imageRelativePath(`C:\Windows\System32\calc.exe`)
	require.True(t, ok)
	assert.Equal(t, "Windows/System32/calc.exe", rel)

	rel, ok = imageRelativePath(`\Device\HarddiskVolume2\Windows\notepad.exe`)
	require.True(t, ok)
	assert.Equal(t, "Windows/notepad.exe", rel)

	_, ok = imageRelativePath("UPDATER.EXE")
	assert.False(t, ok)
}
