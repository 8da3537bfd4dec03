package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[General]
Versions = Windows 10, Windows 7,, Windows XP

[Windows 10]
PrefetchPath = /Windows/Prefetch
MaxFiles = 1024
Ratio = 0.75
Enabled = Yes
Disabled = off

[Flags]
Bad = maybe
`

func load(t *testing.T) *Config {
	t.Helper()
	c, err := LoadBytes([]byte(sample))
	require.NoError(t, err)
	return c
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	var fe *FileError
	assert.ErrorAs(t, err, &fe)
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.ini")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	c, err := Load(path)
	require.NoError(t, err)
	assert.True(t, c.HasSection("General"))
}

func TestStringAndDefaults(t *testing.T) {
	c := load(t)
	assert.Equal(t, "/Windows/Prefetch", c.String("Windows 10", "PrefetchPath", ""))
	assert.Equal(t, "fallback", c.String("Windows 10", "Nope", "fallback"))
	assert.Equal(t, "fallback", c.String("NoSection", "Nope", "fallback"))
}

func TestIntDouble(t *testing.T) {
	c := load(t)
	n, err := c.Int("Windows 10", "MaxFiles", 0)
	require.NoError(t, err)
	assert.Equal(t, 1024, n)

	n, err = c.Int("Windows 10", "Absent", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = c.Int("Windows 10", "PrefetchPath", 0)
	var ve *ValueError
	assert.ErrorAs(t, err, &ve)

	f, err := c.Double("Windows 10", "Ratio", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.75, f)
}

func TestBoolLiterals(t *testing.T) {
	c := load(t)
	b, err := c.Bool("Windows 10", "Enabled", false)
	require.NoError(t, err)
	assert.True(t, b)

	b, err = c.Bool("Windows 10", "Disabled", true)
	require.NoError(t, err)
	assert.False(t, b)

	b, err = c.Bool("Windows 10", "Absent", true)
	require.NoError(t, err)
	assert.True(t, b)

	_, err = c.Bool("Flags", "Bad", false)
	var ve *ValueError
	assert.ErrorAs(t, err, &ve)
}

func TestListSplitsTrimsDropsEmpties(t *testing.T) {
	c := load(t)
	assert.Equal(t, []string{"Windows 10", "Windows 7", "Windows XP"},
		c.List("General", "Versions"))
	assert.Nil(t, c.List("General", "Absent"))
}

func TestKeysInAndPresence(t *testing.T) {
	c := load(t)
	keys := c.KeysIn("Windows 10")
	assert.Equal(t, []string{"PrefetchPath", "MaxFiles", "Ratio", "Enabled", "Disabled"}, keys)
	assert.Nil(t, c.KeysIn("NoSuchSection"))

	assert.True(t, c.HasKey("Windows 10", "Ratio"))
	assert.False(t, c.HasKey("Windows 10", "Nope"))
	assert.False(t, c.HasSection("Nope"))
}
