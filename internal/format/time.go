package format

import (
	"fmt"
	"time"
)

const (
	// FiletimeEpochDiff is the gap between the FILETIME epoch (1601-01-01)
	// and the Unix epoch (1970-01-01) in 100ns units.
	FiletimeEpochDiff = 116444736000000000

	// FiletimeMaxValid caps accepted timestamps at year 2500. Anything past
	// it is corrupt data, not a real launch time.
	FiletimeMaxValid = 2650467744000000000

	filetimeUnit = 100 // FILETIME ticks are 100ns
)

// InvalidTimestampError reports a FILETIME outside the accepted window.
// Records carrying one proceed without the field.
type InvalidTimestampError struct {
	Value   uint64
	Context string
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("invalid timestamp 0x%016X (%s)", e.Value, e.Context)
}

// FiletimeValid reports whether v lies within [Unix epoch, year 2500].
func FiletimeValid(v uint64) bool {
	return v >= FiletimeEpochDiff && v <= FiletimeMaxValid
}

// FiletimeToTime converts a FILETIME within the valid window to UTC time.
// Out-of-window values return an InvalidTimestampError; zero is the common
// "unused slot" marker and callers should test for it before converting.
func FiletimeToTime(v uint64, context string) (time.Time, error) {
	if !FiletimeValid(v) {
		return time.Time{}, &InvalidTimestampError{Value: v, Context: context}
	}
	ns := int64((v - FiletimeEpochDiff) * filetimeUnit)
	return time.Unix(ns/int64(time.Second), ns%int64(time.Second)).UTC(), nil
}

// FiletimeToTimeLenient converts v, mapping anything at or below the epoch
// offset to the Unix epoch. Used for metadata fields (hive last-write) where
// a zero is expected and harmless.
func FiletimeToTimeLenient(v uint64) time.Time {
	if v <= FiletimeEpochDiff {
		return time.Unix(0, 0).UTC()
	}
	ns := int64((v - FiletimeEpochDiff) * filetimeUnit)
	return time.Unix(ns/int64(time.Second), ns%int64(time.Second)).UTC()
}

// UnixSecondsToFiletime converts "seconds since 1970" (the EVT record time
// basis) into FILETIME ticks.
func UnixSecondsToFiletime(seconds uint64) uint64 {
	return seconds*10000000 + FiletimeEpochDiff
}

// TimestampLayout is the rendering used everywhere a timestamp reaches the
// report. Times are always rendered in UTC.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatTimestamp renders t for the report, in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
