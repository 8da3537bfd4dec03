package eventlog

import (
	"fmt"
	"strings"

	"github.com/joshuapare/tracekit/internal/format"
)

// decodeSID renders a binary Windows security identifier in its standard
// S-R-I-S... textual form. Returns "" for buffers too short to be a SID.
func decodeSID(b []byte) string {
	if len(b) < 8 {
		return ""
	}
	revision := b[0]
	subCount := int(b[1])
	// Identifier authority is 48-bit big-endian.
	var authority uint64
	for _, by := range b[2:8] {
		authority = authority<<8 | uint64(by)
	}
	if !format.Has(b, 8, subCount*4) {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "S-%d-%d", revision, authority)
	for i := 0; i < subCount; i++ {
		fmt.Fprintf(&sb, "-%d", format.U32(b[8+i*4:]))
	}
	return sb.String()
}
