// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package prefetch

// MetricsEntry is one record of the metrics array, describing a single file
// referenced during the traced run. It is retained only when Options asks
// for it; it plays no role in the rest of decoding otherwise.
type MetricsEntry struct {
	StartTimeMs          uint32
	DurationMs           uint32
	AverageDurationMs    uint32
	FilenameStringOffset uint32
	FilenameChars        uint32
	Flags                uint32
	FileReference        FileRef
}

// decodeMetrics reads the number_of_metrics_entries stride-sized records
// starting at info.metricsArrayOffset. The stride and trailing
// file_reference field depend on version (spec §4.4). The section's true
// byte extent is count*stride, which information.validate could not check
// because it lacks the version, so the bounds check happens here instead.
func decodeMetrics(data []byte, version Version, info information, declaredFileSize, actualSize uint32, retain bool) ([]MetricsEntry, error) {
	if info.metricsArrayOffset == 0 || info.numberOfMetricsEntries == 0 {
		return nil, nil
	}

	stride := version.MetricsStride()
	size64 := uint64(info.numberOfMetricsEntries) * uint64(stride)
	if size64 > 0xFFFFFFFF {
		return nil, newError(ErrOutOfBounds, "metrics array size overflows", info.metricsArrayOffset)
	}
	size := uint32(size64)
	if err := validateSection(info.metricsArrayOffset, size, headerSize, declaredFileSize, actualSize); err != nil {
		return nil, wrapError(ErrOutOfBounds, "metrics array out of bounds", err)
	}

	raw, err := readBytes(data, info.metricsArrayOffset, size)
	if err != nil {
		return nil, wrapError(ErrShortRead, "read metrics array", err)
	}

	if !retain {
		return nil, nil
	}

	entries := make([]MetricsEntry, info.numberOfMetricsEntries)
	for i := range entries {
		base := uint32(i) * stride
		var e MetricsEntry

		e.StartTimeMs, err = readUint32(raw, base+0)
		if err != nil {
			return nil, err
		}
		e.DurationMs, err = readUint32(raw, base+4)
		if err != nil {
			return nil, err
		}

		fieldOffset := base + 8
		if version.HasFileReference() {
			e.AverageDurationMs, err = readUint32(raw, fieldOffset)
			if err != nil {
				return nil, err
			}
			fieldOffset += 4
		}

		e.FilenameStringOffset, err = readUint32(raw, fieldOffset)
		if err != nil {
			return nil, err
		}
		e.FilenameChars, err = readUint32(raw, fieldOffset+4)
		if err != nil {
			return nil, err
		}
		e.Flags, err = readUint32(raw, fieldOffset+8)
		if err != nil {
			return nil, err
		}

		if version.HasFileReference() {
			rawRef, err := readUint64(raw, fieldOffset+12)
			if err != nil {
				return nil, err
			}
			e.FileReference = decodeFileRef(rawRef)
		}

		entries[i] = e
	}

	return entries, nil
}
