package prefetch

import (
	"bytes"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/joshuapare/tracekit/internal/format"
)

// illegalNameChars may not appear in an executable name; a prefetch file
// carrying one is corrupt or hostile.
const illegalNameChars = `\/:*?"<>|`

const maxExecutableNameBytes = 255

// Parse reads and decodes the prefetch file at path.
func Parse(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DataReadError{Context: "open " + path + ": " + err.Error()}
	}
	return ParseBytes(data)
}

// ParseBytes decodes a prefetch file held in memory. Basic-info failures are
// fatal; volume and metric subrecords degrade to warnings and the parse
// continues.
func ParseBytes(data []byte) (*Record, error) {
	if len(data) >= len(mamSignature) && bytes.Equal(data[:len(mamSignature)], mamSignature) {
		return nil, &UnsupportedFormatError{Compressed: true}
	}
	if !format.Has(data, 0, infoVolumesSize+4) {
		return nil, &DataReadError{Context: "header"}
	}
	if !bytes.Equal(data[sccaSignatureOff:sccaSignatureOff+4], sccaSignature) {
		return nil, &DataReadError{Context: "SCCA signature"}
	}

	rec := &Record{}

	// Basic info, fixed order: name, hash, version, run count (the run-count
	// offset depends on the version). Any failure here aborts the parse.
	name := format.DecodeUTF16String(data[sccaNameOffset : sccaNameOffset+sccaNameSize])
	if err := validateExecutableName(name); err != nil {
		return nil, err
	}
	rec.ExecutableName = name
	rec.PrefetchHash = format.U32(data[sccaHashOffset:])
	rec.FormatVersion = format.U32(data[sccaVersionOffset:])

	lay, ok := layouts[rec.FormatVersion]
	if !ok {
		return nil, &UnsupportedFormatError{Version: rec.FormatVersion}
	}
	if !format.Has(data, lay.runCountOffset, 4) {
		return nil, &DataReadError{Context: "run count"}
	}
	rec.RunCount = format.U32(data[lay.runCountOffset:])

	parseRunTimes(rec, data, lay)
	parseVolumes(rec, data, lay)
	parseMetrics(rec, data, lay)
	return rec, nil
}

func validateExecutableName(name string) error {
	if name == "" || len(name) > maxExecutableNameBytes {
		return ErrInvalidExecutableName
	}
	if strings.ContainsAny(name, illegalNameChars) {
		return ErrInvalidExecutableName
	}
	return nil
}

// parseRunTimes walks the launch-time slots. Zero slots are unused and
// skipped; out-of-window values are logged and skipped. LastRunTime is the
// maximum valid time — the stored sequence is not assumed monotonic.
func parseRunTimes(rec *Record, data []byte, lay layout) {
	slots := lay.runTimeSlots
	if slots > maxRunTimeSlots {
		slots = maxRunTimeSlots
	}
	var lastRaw uint64
	for i := 0; i < slots; i++ {
		raw, ok := format.Slice(data, lay.runTimesOffset+8*i, 8)
		if !ok {
			logrus.Warnf("prefetch %s: run time slot %d truncated", rec.ExecutableName, i)
			return
		}
		ft := format.U64(raw)
		if ft == 0 {
			continue
		}
		t, err := format.FiletimeToTime(ft, "prefetch run time")
		if err != nil {
			logrus.Warnf("prefetch %s: %v", rec.ExecutableName, err)
			continue
		}
		rec.RunTimes = append(rec.RunTimes, t)
		if ft > lastRaw {
			lastRaw = ft
			rec.LastRunTime = t
		}
	}
}

// parseVolumes decodes the volume-information array. Partial entries are
// logged and skipped; suspicious-but-plausible fields (zero serial, zero
// creation time, zero size) are logged once and kept to maximise recovered
// evidence.
func parseVolumes(rec *Record, data []byte, lay layout) {
	base := int(format.U32(data[infoVolumesOffset:]))
	count := int(format.U32(data[infoVolumesCount:]))
	if count == 0 {
		return
	}
	section, ok := format.Slice(data, base, len(data)-base)
	if !ok {
		logrus.Warnf("prefetch %s: volume section out of bounds", rec.ExecutableName)
		return
	}

	warned := map[string]bool{}
	warnOnce := func(what string) {
		if !warned[what] {
			warned[what] = true
			logrus.Warnf("prefetch %s: %s", rec.ExecutableName, what)
		}
	}

	for i := 0; i < count; i++ {
		entry, ok := format.Slice(section, i*lay.volumeEntrySize, lay.volumeEntrySize)
		if !ok {
			logrus.Warnf("prefetch %s: volume %d truncated", rec.ExecutableName, i)
			return
		}
		pathOff := int(format.U32(entry[volDevPathOffset:]))
		pathChars := int(format.U32(entry[volDevPathChars:]))
		raw, ok := format.Slice(section, pathOff, pathChars*2)
		if !ok || pathChars == 0 {
			logrus.Warnf("prefetch %s: volume %d has no device path, skipped", rec.ExecutableName, i)
			continue
		}
		vol := Volume{
			DevicePath:   normalizePath(format.DecodeUTF16LE(raw)),
			SerialNumber: format.U32(entry[volSerialOffset:]),
			CreationTime: format.U64(entry[volCreationOffset:]),
			Type:         VolumeFixed,
		}
		if vol.SerialNumber == 0 {
			warnOnce("volume with zero serial number")
		}
		if vol.CreationTime == 0 {
			warnOnce("volume with zero creation time")
		}
		if vol.Size == 0 {
			warnOnce("volume size not recorded")
		}
		rec.Volumes = append(rec.Volumes, vol)
	}
}

// parseMetrics decodes the file-metrics array, resolving each entry's name
// out of the filename-strings section.
func parseMetrics(rec *Record, data []byte, lay layout) {
	base := int(format.U32(data[infoMetricsOffset:]))
	count := int(format.U32(data[infoMetricsCount:]))
	if count == 0 {
		return
	}
	namesBase := int(format.U32(data[infoFilenamesOffset:]))
	namesSize := int(format.U32(data[infoFilenamesSize:]))
	names, namesOK := format.Slice(data, namesBase, namesSize)

	warned := map[string]bool{}
	warnOnce := func(what string) {
		if !warned[what] {
			warned[what] = true
			logrus.Warnf("prefetch %s: %s", rec.ExecutableName, what)
		}
	}

	for i := 0; i < count; i++ {
		entry, ok := format.Slice(data, base+i*lay.metricEntrySize, lay.metricEntrySize)
		if !ok {
			logrus.Warnf("prefetch %s: metric %d truncated", rec.ExecutableName, i)
			return
		}
		nameOff := int(format.U32(entry[lay.metricNameOffset:]))
		nameChars := int(format.U32(entry[lay.metricNameChars:]))
		if !namesOK {
			logrus.Warnf("prefetch %s: metric %d has no filename section, skipped", rec.ExecutableName, i)
			continue
		}
		raw, ok := format.Slice(names, nameOff, nameChars*2)
		if !ok || nameChars == 0 {
			logrus.Warnf("prefetch %s: metric %d filename unreadable, skipped", rec.ExecutableName, i)
			continue
		}
		m := FileMetric{Filename: normalizePath(format.DecodeUTF16LE(raw))}
		if lay.metricFileRefOff >= 0 {
			m.FileReference = format.U64(entry[lay.metricFileRefOff:])
		}
		if m.FileReference == 0 {
			warnOnce("metric with zero MFT reference")
		}
		if m.AccessFlags == 0 {
			warnOnce("metric with empty access flags")
		}
		rec.Metrics = append(rec.Metrics, m)
	}
}

// normalizePath rewrites backslashes to forward slashes; every path the
// parser emits uses the forward-slash form.
func normalizePath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
