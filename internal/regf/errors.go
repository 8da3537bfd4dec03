package regf

import "errors"

var (
	// ErrSignatureMismatch indicates a structure had an unexpected magic.
	ErrSignatureMismatch = errors.New("regf: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("regf: truncated buffer")
	// ErrUnsupported indicates a recognized but unsupported structure variant.
	ErrUnsupported = errors.New("regf: unsupported structure")
	// ErrSanityLimit indicates a parsed count or length exceeded sanity limits,
	// guarding allocations against corrupt hives.
	ErrSanityLimit = errors.New("regf: value exceeds sanity limit")
)
