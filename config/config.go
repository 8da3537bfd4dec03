// Package config provides typed access to the tracekit analysis
// configuration, a single INI document describing per-Windows-version
// artifact locations, OS-detection profiles and build mappings. INI
// tokenisation is delegated to gopkg.in/ini.v1; this package owns only the
// lookup-and-convert contract.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// FileError is the fatal failure to read or tokenise the document.
type FileError struct {
	Path   string
	Reason string
}

func (e *FileError) Error() string {
	return fmt.Sprintf("config: cannot load %s: %s", e.Path, e.Reason)
}

// ValueError reports a present-but-unconvertible value.
type ValueError struct {
	Section string
	Key     string
	Reason  string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("config: [%s] %s: %s", e.Section, e.Key, e.Reason)
}

// Config is an immutable view over a loaded INI document. It is shared by
// reference across analysers and never mutated after Load.
type Config struct {
	file *ini.File
}

// Load reads and tokenises the document at path.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, &FileError{Path: path, Reason: err.Error()}
	}
	return &Config{file: f}, nil
}

// LoadBytes parses an in-memory document; used by tests and embedded defaults.
func LoadBytes(data []byte) (*Config, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, &FileError{Path: "<bytes>", Reason: err.Error()}
	}
	return &Config{file: f}, nil
}

// String returns the value at [section] key, or def when absent.
func (c *Config) String(section, key, def string) string {
	if !c.HasKey(section, key) {
		return def
	}
	return c.file.Section(section).Key(key).String()
}

// Int converts the value to an integer; absent keys yield def.
func (c *Config) Int(section, key string, def int) (int, error) {
	if !c.HasKey(section, key) {
		return def, nil
	}
	raw := c.file.Section(section).Key(key).String()
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &ValueError{Section: section, Key: key, Reason: "not an integer: " + raw}
	}
	return n, nil
}

// Double converts the value to a float; absent keys yield def.
func (c *Config) Double(section, key string, def float64) (float64, error) {
	if !c.HasKey(section, key) {
		return def, nil
	}
	raw := c.file.Section(section).Key(key).String()
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &ValueError{Section: section, Key: key, Reason: "not a number: " + raw}
	}
	return f, nil
}

// Bool converts the value using the accepted literal set (case-insensitive):
// true/false, yes/no, on/off, 1/0. Anything else is a ValueError.
func (c *Config) Bool(section, key string, def bool) (bool, error) {
	if !c.HasKey(section, key) {
		return def, nil
	}
	raw := strings.ToLower(strings.TrimSpace(c.file.Section(section).Key(key).String()))
	switch raw {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, &ValueError{Section: section, Key: key, Reason: "not a boolean: " + raw}
}

// List splits the value on commas, trims each element and drops empties.
// Absent keys yield nil.
func (c *Config) List(section, key string) []string {
	raw := c.String(section, key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// KeysIn returns the key names of a section in document order; nil when the
// section is absent.
func (c *Config) KeysIn(section string) []string {
	if !c.HasSection(section) {
		return nil
	}
	return c.file.Section(section).KeyStrings()
}

// HasSection reports whether the named section exists.
func (c *Config) HasSection(section string) bool {
	s, err := c.file.GetSection(section)
	return err == nil && s != nil
}

// HasKey reports whether [section] key exists.
func (c *Config) HasKey(section, key string) bool {
	if !c.HasSection(section) {
		return false
	}
	return c.file.Section(section).HasKey(key)
}
