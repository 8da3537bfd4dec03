//go:build unix

package mmfile

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// Map maps the artifact file at path read-only and returns its bytes plus a
// release function. Registry hives on real images run into the hundreds of
// megabytes; mapping avoids holding a second copy while cells are resolved.
func Map(path string) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close() // the mapping keeps pages alive without the descriptor

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	size := info.Size()
	if size == 0 {
		return []byte{}, func() error { return nil }, nil
	}
	if size > int64(^uint(0)>>1) {
		return nil, nil, fmt.Errorf("mmfile: file too large to map (%d bytes)", size)
	}
	data, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	release := func() error {
		err := syscall.Munmap(data)
		if errors.Is(err, syscall.EINVAL) {
			return nil // double release is a no-op
		}
		return err
	}
	return data, release, nil
}
