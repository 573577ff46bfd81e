// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package prefetch

// Version identifies one of the three supported Prefetch wire-format
// variants. Every version-dependent layout decision in the decoder is routed
// through a Version method instead of a scattered if format_version == ...
// check.
type Version uint32

const (
	// VersionWindowsXP2003 is format_version 17, used by Windows XP and
	// Windows Server 2003.
	VersionWindowsXP2003 Version = 17

	// VersionWindowsVista7 is format_version 23, used by Windows Vista and
	// Windows 7.
	VersionWindowsVista7 Version = 23

	// VersionWindows8 is format_version 26, used by Windows 8 and later
	// uncompressed Prefetch files.
	VersionWindows8 Version = 26
)

// IsSupported reports whether v is one of the three recognized format
// versions.
func (v Version) IsSupported() bool {
	switch v {
	case VersionWindowsXP2003, VersionWindowsVista7, VersionWindows8:
		return true
	default:
		return false
	}
}

// MetricsStride returns the byte size of one metrics-array entry for this
// version: 20 bytes for v17, 32 bytes for v23/v26 (the wider v23/v26 entry
// adds average_duration_ms and a trailing file_reference).
func (v Version) MetricsStride() uint32 {
	if v == VersionWindowsXP2003 {
		return 20
	}
	return 32
}

// VolumeHeaderStride returns the byte size of one per-volume header for this
// version: 40 bytes for v17, 96 bytes for v23/v26 (the wider header appends
// four blocks of unknown/unused fields, preserved but not interpreted).
func (v Version) VolumeHeaderStride() uint32 {
	if v == VersionWindowsXP2003 {
		return 40
	}
	return 96
}

// InfoBlockSize returns the total byte size of the version-dependent
// "file information" block that immediately follows the fixed 84-byte
// header: 152 bytes for v17, 156 for v23, 224 for v26.
func (v Version) InfoBlockSize() uint32 {
	switch v {
	case VersionWindowsXP2003:
		return 152
	case VersionWindowsVista7:
		return 156
	case VersionWindows8:
		return 224
	default:
		return 0
	}
}

// HasFileReference reports whether a metrics-array entry for this version
// carries a trailing NTFS file_reference field (true for v23/v26, false for
// v17).
func (v Version) HasFileReference() bool {
	return v != VersionWindowsXP2003
}

func (v Version) String() string {
	switch v {
	case VersionWindowsXP2003:
		return "v17 (Windows XP/2003)"
	case VersionWindowsVista7:
		return "v23 (Windows Vista/7)"
	case VersionWindows8:
		return "v26 (Windows 8+)"
	default:
		return "unknown"
	}
}
