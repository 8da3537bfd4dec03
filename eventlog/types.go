// Package eventlog parses Windows event logs, both the legacy EVT format
// (XP/2003) and the modern EVTX format, into a common record model. Parsers
// are selected by file extension and share one capability surface: parse
// everything, or filter by event identifier.
package eventlog

import "time"

// Level is the normalised severity of an event record. Values align with
// the EVTX level ordinals.
type Level uint8

const (
	LevelLogAlways Level = 0
	LevelCritical  Level = 1
	LevelError     Level = 2
	LevelWarning   Level = 3
	LevelInfo      Level = 4
	LevelVerbose   Level = 5
)

func (l Level) String() string {
	switch l {
	case LevelLogAlways:
		return "LogAlways"
	case LevelCritical:
		return "Critical"
	case LevelError:
		return "Error"
	case LevelWarning:
		return "Warning"
	case LevelInfo:
		return "Info"
	case LevelVerbose:
		return "Verbose"
	default:
		return "Unknown"
	}
}

// DataField is one Name/value pair extracted from a record's EventData.
type DataField struct {
	Name  string
	Value string
}

// EventData is the ordered set of EventData fields of one record.
type EventData []DataField

// Get returns the value of the named field and whether it is present.
func (d EventData) Get(name string) (string, bool) {
	for _, f := range d {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Record is one decoded event-log record.
type Record struct {
	EventID      uint32
	TimestampRaw uint64    // written time as FILETIME; zero when absent
	Timestamp    time.Time // zero when TimestampRaw is absent or out of window
	Level        Level
	Provider     string
	Computer     string
	Channel      string
	Description  string
	UserSID      string
	XML          string // original XML rendering; EVTX only
	BinaryData   []byte
	Data         EventData
}

// Parser is the capability shared by the EVT and EVTX implementations.
type Parser interface {
	// ParseAll decodes every record in the log at path, in file order.
	ParseAll(path string) ([]Record, error)
	// FilterByID decodes only records whose EventID matches id, preserving
	// file order.
	FilterByID(path string, id uint32) ([]Record, error)
}
