package hive

import (
	"errors"
	"fmt"
)

var (
	// ErrNotHive indicates the file lacks a valid regf base block.
	ErrNotHive = errors.New("hive: not a registry hive (bad regf header)")
	// ErrCorrupt indicates structural corruption inside the hive.
	ErrCorrupt = errors.New("hive: corrupt structure")
	// ErrClosed indicates an operation on a closed hive.
	ErrClosed = errors.New("hive: reader is closed")
)

// KeyNotFoundError reports a missing key. Path is the requested path up to
// and including the first segment that failed to resolve; segments after it
// are not included.
type KeyNotFoundError struct {
	Path string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("hive: key not found: %s", e.Path)
}

// ValueNotFoundError reports a missing value under an existing key.
type ValueNotFoundError struct {
	Key  string
	Name string
}

func (e *ValueNotFoundError) Error() string {
	return fmt.Sprintf("hive: value %q not found under %s", e.Name, e.Key)
}

// UnsupportedTypeError reports a registry value whose type tag is outside
// the decoded set. The value is skipped; enumeration continues.
type UnsupportedTypeError struct {
	Tag uint32
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("hive: unsupported value type 0x%X", e.Tag)
}

// InvalidValueAccessError reports a typed accessor called against a value of
// a different type. The type tag and payload always agree; this error means
// the caller asked for the wrong variant.
type InvalidValueAccessError struct {
	Name      string
	Requested Type
	Actual    Type
}

func (e *InvalidValueAccessError) Error() string {
	return fmt.Sprintf("hive: value %q is %s, not %s", e.Name, e.Actual, e.Requested)
}
