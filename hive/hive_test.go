package hive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/tracekit/internal/hivetest"
)

// buildCurrentVersionHive constructs a SOFTWARE-like hive:
//
//	<root>/Microsoft/Windows NT/CurrentVersion
//	  ProductName    REG_SZ       "Windows 10 Pro"
//	  CurrentBuild   REG_SZ       "19045"
//	  InstallDate    REG_DWORD    0x5F000000
//	  InstallTime    REG_QWORD    0x01D4D3F0B9C10000
//	  Fonts          REG_MULTI_SZ ["t","a","b"]
//	  Blob           REG_BINARY   {DE AD BE EF}
//	  Mystery        type 0x42 (skipped)
func buildCurrentVersionHive(t *testing.T) []byte {
	t.Helper()
	var b hivetest.Builder

	qword := b.Data([]byte{0x00, 0x00, 0xC1, 0xB9, 0xF0, 0xD3, 0xD4, 0x01})
	multi := b.Data([]byte{0x74, 0, 0, 0, 0x61, 0, 0, 0, 0x62, 0, 0, 0, 0, 0})
	blob := b.Data([]byte{0xDE, 0xAD, 0xBE, 0xEF})

	vks := b.ValueList(
		b.SZ("ProductName", "Windows 10 Pro"),
		b.SZ("CurrentBuild", "19045"),
		b.VKInline("InstallDate", uint32(TypeDword), []byte{0x00, 0x00, 0x00, 0x5F}),
		b.VK("InstallTime", uint32(TypeQword), 8, qword),
		b.VK("Fonts", uint32(TypeMultiSZ), 14, multi),
		b.VK("Blob", uint32(TypeBinary), 4, blob),
		b.VKInline("Mystery", 0x42, []byte{0x01}),
	)

	currentVersion := b.NK("CurrentVersion", 0, hivetest.InvalidOffset, 7, vks)
	windowsNT := b.NK("Windows NT", 1, b.LF(currentVersion), 0, hivetest.InvalidOffset)
	microsoft := b.NK("Microsoft", 1, b.LF(windowsNT), 0, hivetest.InvalidOffset)
	root := b.NK("ROOT", 1, b.LF(microsoft), 0, hivetest.InvalidOffset)
	return b.Build(root)
}

func TestOpenBytesRejectsGarbage(t *testing.T) {
	_, err := OpenBytes(make([]byte, 8192))
	assert.ErrorIs(t, err, ErrNotHive)
}

func TestSubkeys(t *testing.T) {
	h, err := OpenBytes(buildCurrentVersionHive(t))
	require.NoError(t, err)
	defer h.Close()

	names, err := h.Subkeys("")
	require.NoError(t, err)
	assert.Equal(t, []string{"Microsoft"}, names)

	names, err = h.Subkeys("Microsoft/Windows NT")
	require.NoError(t, err)
	assert.Equal(t, []string{"CurrentVersion"}, names)

	names, err = h.Subkeys("Microsoft/Windows NT/CurrentVersion")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestValuesInCaseFolding(t *testing.T) {
	h, err := OpenBytes(buildCurrentVersionHive(t))
	require.NoError(t, err)
	defer h.Close()

	upper, err := h.ValuesIn("Microsoft/Windows NT/CurrentVersion")
	require.NoError(t, err)
	lower, err := h.ValuesIn("microsoft/WINDOWS nt/currentVersion")
	require.NoError(t, err)
	assert.Equal(t, upper, lower)
	// The unsupported-type value is skipped; six remain.
	assert.Len(t, upper, 6)
}

func TestValueDecoding(t *testing.T) {
	h, err := OpenBytes(buildCurrentVersionHive(t))
	require.NoError(t, err)
	defer h.Close()
	const key = `Microsoft\Windows NT\CurrentVersion`

	v, err := h.ValueAt(key, "ProductName")
	require.NoError(t, err)
	s, err := v.AsString()
	require.NoError(t, err)
	assert.Equal(t, "Windows 10 Pro", s)

	v, err = h.ValueAt(key, "InstallDate")
	require.NoError(t, err)
	d, err := v.AsDword()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x5F000000), d)

	v, err = h.ValueAt(key, "InstallTime")
	require.NoError(t, err)
	q, err := v.AsQword()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x01D4D3F0B9C10000), q)

	v, err = h.ValueAt(key, "Fonts")
	require.NoError(t, err)
	ms, err := v.AsStrings()
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "a", "b"}, ms)

	v, err = h.ValueAt(key, "Blob")
	require.NoError(t, err)
	raw, err := v.AsBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, raw)
}

func TestValueAccessMismatch(t *testing.T) {
	h, err := OpenBytes(buildCurrentVersionHive(t))
	require.NoError(t, err)
	defer h.Close()

	v, err := h.ValueAt("Microsoft/Windows NT/CurrentVersion", "ProductName")
	require.NoError(t, err)
	_, err = v.AsDword()
	var access *InvalidValueAccessError
	require.ErrorAs(t, err, &access)
	assert.Equal(t, TypeSZ, access.Actual)
}

func TestKeyNotFoundReportsSegment(t *testing.T) {
	h, err := OpenBytes(buildCurrentVersionHive(t))
	require.NoError(t, err)
	defer h.Close()

	_, err = h.ValuesIn("Microsoft/Nope/CurrentVersion")
	var notFound *KeyNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Microsoft/Nope", notFound.Path)
}

func TestValueNotFound(t *testing.T) {
	h, err := OpenBytes(buildCurrentVersionHive(t))
	require.NoError(t, err)
	defer h.Close()

	_, err = h.ValueAt("Microsoft/Windows NT/CurrentVersion", "Missing")
	var notFound *ValueNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Missing", notFound.Name)
}

func TestClosedHive(t *testing.T) {
	h, err := OpenBytes(buildCurrentVersionHive(t))
	require.NoError(t, err)
	require.NoError(t, h.Close())
	require.NoError(t, h.Close()) // double close is a no-op

	_, err = h.ValuesIn("")
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestEmptyStringValue(t *testing.T) {
	var b hivetest.Builder
	empty := b.Data(nil)
	vks := b.ValueList(b.VK("Empty", uint32(TypeSZ), 0, empty))
	root := b.NK("ROOT", 0, hivetest.InvalidOffset, 1, vks)
	h, err := OpenBytes(b.Build(root))
	require.NoError(t, err)
	defer h.Close()

	v, err := h.ValueAt("", "Empty")
	require.NoError(t, err)
	assert.Equal(t, TypeSZ, v.Type)
	s, err := v.AsString()
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestStringRoundTripTruncatesAtNUL(t *testing.T) {
	// Buffer with text after the first NUL: decoded string stops at the NUL,
	// and re-encoding yields a prefix of the original buffer.
	var b hivetest.Builder
	raw := append(hivetest.UTF16Z("abc"), 'x', 0, 'y', 0)
	data := b.Data(raw)
	vks := b.ValueList(b.VK("Trail", uint32(TypeSZ), uint32(len(raw)), data))
	root := b.NK("ROOT", 0, hivetest.InvalidOffset, 1, vks)
	h, err := OpenBytes(b.Build(root))
	require.NoError(t, err)
	defer h.Close()

	v, err := h.ValueAt("", "Trail")
	require.NoError(t, err)
	s, err := v.AsString()
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
	assert.Equal(t, raw[:8], hivetest.UTF16Z(s)) // prefix up to and including the NUL
}
