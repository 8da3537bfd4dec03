package prefetch

import (
	"errors"
	"fmt"
)

// ErrInvalidExecutableName rejects prefetch files whose embedded executable
// name is empty or contains path-illegal characters.
var ErrInvalidExecutableName = errors.New("prefetch: invalid executable name")

// DataReadError is a fatal failure while reading the fixed basic-info
// section. Context names the field being read.
type DataReadError struct {
	Context string
}

func (e *DataReadError) Error() string {
	return fmt.Sprintf("prefetch: data read failed: %s", e.Context)
}

// UnsupportedFormatError rejects files with a format version outside the
// supported set, and MAM-compressed files.
type UnsupportedFormatError struct {
	Version    uint32
	Compressed bool
}

func (e *UnsupportedFormatError) Error() string {
	if e.Compressed {
		return "prefetch: MAM-compressed file is not supported"
	}
	return fmt.Sprintf("prefetch: unsupported format version %d", e.Version)
}
