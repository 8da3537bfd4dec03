// Package mmfile loads artifact files, memory-mapped where the platform
// supports it and read-whole otherwise. Callers treat the returned bytes as
// immutable and call the release function when done.
package mmfile
