package hive

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/joshuapare/tracekit/internal/format"
	"github.com/joshuapare/tracekit/internal/regf"
)

// keyName converts the NK name encoding into UTF-8. Compressed names use
// Windows-1252; the rest are UTF-16LE.
func keyName(nk regf.NKRecord) (string, error) {
	return decodeName(nk.NameRaw, nk.NameIsCompressed())
}

// valueName converts the VK name into UTF-8 under the same rules. An empty
// name denotes the key's default value.
func valueName(vk regf.VKRecord) (string, error) {
	return decodeName(vk.NameRaw, vk.NameIsASCII())
}

func decodeName(data []byte, compressed bool) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if compressed {
		if isASCII(data) {
			return string(data), nil
		}
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("hive: decode Windows-1252 name: %w", err)
		}
		return string(decoded), nil
	}
	if len(data)%2 != 0 {
		return "", fmt.Errorf("hive: name has odd length: %w", ErrCorrupt)
	}
	return format.DecodeUTF16LE(data), nil
}

// isASCII reports whether every byte is below 0x80; ASCII bytes encode
// identically in Windows-1252 and UTF-8.
func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}
