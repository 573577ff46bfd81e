// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package prefetch

import (
	"encoding/binary"
	"time"

	"golang.org/x/text/encoding/unicode"
)

// filetimeEpoch is the FILETIME value of the Unix epoch (1970-01-01 UTC),
// expressed in 100-nanosecond intervals since 1601-01-01 UTC.
const filetimeEpoch = 116444736000000000

// readUint16 reads a little-endian uint16 at offset from data, bounds-checked
// against len(data).
func readUint16(data []byte, offset uint32) (uint16, error) {
	if offset+2 > uint32(len(data)) {
		return 0, newError(ErrShortRead, "read uint16", offset)
	}
	return binary.LittleEndian.Uint16(data[offset:]), nil
}

// readUint32 reads a little-endian uint32 at offset from data.
func readUint32(data []byte, offset uint32) (uint32, error) {
	if offset+4 > uint32(len(data)) {
		return 0, newError(ErrShortRead, "read uint32", offset)
	}
	return binary.LittleEndian.Uint32(data[offset:]), nil
}

// readUint64 reads a little-endian uint64 at offset from data.
func readUint64(data []byte, offset uint32) (uint64, error) {
	if offset+8 > uint32(len(data)) {
		return 0, newError(ErrShortRead, "read uint64", offset)
	}
	return binary.LittleEndian.Uint64(data[offset:]), nil
}

// readBytes returns the size bytes starting at offset, bounds-checked.
func readBytes(data []byte, offset, size uint32) ([]byte, error) {
	// Integer overflow guard, mirroring the teacher's structUnpack check.
	total := offset + size
	if (total > offset) != (size > 0) {
		return nil, newError(ErrOutOfBounds, "read bytes", offset)
	}
	if total > uint32(len(data)) {
		return nil, newError(ErrOutOfBounds, "read bytes", offset)
	}
	return data[offset:total], nil
}

// validateSection checks that a declared (offset, size) pair, read out of a
// header or information block, stays within both the declared file size and
// the actual byte-source size, and does not start before minOffset (used to
// keep sections from overlapping the fixed header). A zero offset is always
// valid and denotes "section absent"; callers check that separately.
func validateSection(offset, size, minOffset, declaredFileSize, actualSize uint32) error {
	if offset == 0 {
		return nil
	}
	if offset < minOffset {
		return newError(ErrOutOfBounds, "section offset precedes header", offset)
	}
	end := offset + size
	if end < offset {
		return newError(ErrOutOfBounds, "section size overflows", offset)
	}
	if end > declaredFileSize {
		return newError(ErrOutOfBounds, "section extends past declared file size", offset)
	}
	if end > actualSize {
		return newError(ErrOutOfBounds, "section extends past source size", offset)
	}
	return nil
}

// decodeFiletime converts a raw Windows FILETIME (100ns intervals since
// 1601-01-01 UTC) into a time.Time. A zero FILETIME decodes to the zero Time.
func decodeFiletime(raw uint64) time.Time {
	if raw == 0 {
		return time.Time{}
	}
	unixNano := (int64(raw) - filetimeEpoch) * 100
	return time.Unix(0, unixNano).UTC()
}

// decodeUTF16String decodes a single NUL-terminated UTF-16LE run into a Go
// string. b must include the terminating two-byte NUL.
func decodeUTF16String(b []byte) (string, error) {
	n := len(b)
	for pos := 0; pos+2 <= len(b); pos += 2 {
		if b[pos] == 0 && b[pos+1] == 0 {
			n = pos
			break
		}
	}
	if n == 0 {
		return "", nil
	}
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	s, err := decoder.Bytes(b[:n])
	if err != nil {
		return "", err
	}
	return string(s), nil
}

// utf16ByteLen returns the number of bytes (excluding the terminating NUL)
// spanned by a run of UTF-16LE code units, i.e. 2 * codeUnitCount.
func utf16ByteLen(codeUnitCount uint32) uint32 {
	return codeUnitCount * 2
}

// utf8SizeOfUTF16 returns the number of bytes the given UTF-16LE run (without
// its terminating NUL) would occupy once transcoded to UTF-8, including a
// trailing NUL byte — matching the "size includes the terminating NUL code
// unit" contract of spec section 4.7.
func utf8SizeOfUTF16(raw []byte) (uint32, error) {
	s, err := decodeUTF16String(append(append([]byte{}, raw...), 0, 0))
	if err != nil {
		return 0, err
	}
	return uint32(len(s)) + 1, nil
}
