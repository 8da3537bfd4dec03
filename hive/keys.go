package hive

import (
	"strings"

	"github.com/joshuapare/tracekit/internal/regf"
)

// splitKeyPath splits a key path on forward and backward slashes, dropping
// empty segments. The empty path denotes the hive root.
func splitKeyPath(path string) []string {
	path = strings.ReplaceAll(path, `\`, "/")
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// find resolves a key path to its NK offset. Name comparison folds case. A
// failed lookup reports the path up to and including the offending segment.
func (h *Hive) find(keyPath string) (uint32, error) {
	if err := h.ensureOpen(); err != nil {
		return 0, err
	}
	current := h.head.RootCellOffset
	segments := splitKeyPath(keyPath)
	for i, seg := range segments {
		child, ok, err := h.lookupChild(current, seg)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, &KeyNotFoundError{Path: strings.Join(segments[:i+1], "/")}
		}
		current = child
	}
	return current, nil
}

// lookupChild scans the direct children of the key at offset for a
// case-folded name match.
func (h *Hive) lookupChild(offset uint32, name string) (uint32, bool, error) {
	nk, err := h.nk(offset)
	if err != nil {
		return 0, false, err
	}
	if nk.SubkeyCount == 0 || nk.SubkeyListOffset == regf.InvalidOffset {
		return 0, false, nil
	}
	children, err := h.subkeyList(nk.SubkeyListOffset, nk.SubkeyCount)
	if err != nil {
		return 0, false, err
	}
	for _, child := range children {
		childNK, err := h.nk(child)
		if err != nil {
			continue // unreadable child: keep scanning siblings
		}
		childName, err := keyName(childNK)
		if err != nil {
			continue
		}
		if strings.EqualFold(childName, name) {
			return child, true, nil
		}
	}
	return 0, false, nil
}

// Subkeys returns the names of the direct children of keyPath, in list
// order.
func (h *Hive) Subkeys(keyPath string) ([]string, error) {
	offset, err := h.find(keyPath)
	if err != nil {
		return nil, err
	}
	nk, err := h.nk(offset)
	if err != nil {
		return nil, err
	}
	if nk.SubkeyCount == 0 || nk.SubkeyListOffset == regf.InvalidOffset {
		return nil, nil
	}
	children, err := h.subkeyList(nk.SubkeyListOffset, nk.SubkeyCount)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(children))
	for _, child := range children {
		childNK, err := h.nk(child)
		if err != nil {
			continue
		}
		name, err := keyName(childNK)
		if err != nil {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}
