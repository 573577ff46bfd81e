// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package prefetch

// headerSize is the fixed byte size of the Prefetch file header.
const headerSize = 84

// signature is the 4-byte magic every Prefetch file header must begin its
// signature field with: "SCCA".
var signature = [4]byte{'S', 'C', 'C', 'A'}

// executableNameFieldSize is the byte size of the NUL-padded UTF-16LE
// executable filename field inside the header (up to 29 code units + NUL).
const executableNameFieldSize = 60

// maxExecutableNameChars is the natural capacity of the executable name
// field in UTF-16 code units, excluding the terminating NUL.
const maxExecutableNameChars = executableNameFieldSize/2 - 1

// header holds the fields of the fixed 84-byte Prefetch file header that
// later decoding stages need.
type header struct {
	formatVersion     Version
	declaredFileSize  uint32
	executableNameRaw [executableNameFieldSize]byte
	prefetchHash      uint32
}

// decodeHeader parses the fixed 84-byte file header starting at offset 0 of
// data. It validates the "SCCA" signature and the format version before
// returning, matching ParseDOSHeader's "reject first, extract second" shape.
// maxNameChars bounds the executable name's decoded length in
// UTF-16 code units; 0 falls back to the field's natural capacity
// (maxExecutableNameChars const), matching Options.MaxExecutableNameLength's
// zero-value default.
func decodeHeader(data []byte, maxNameChars uint32) (header, error) {
	var h header

	raw, err := readBytes(data, 0, headerSize)
	if err != nil {
		return h, wrapError(ErrShortRead, "read file header", err)
	}

	rawVersion, err := readUint32(raw, 0)
	if err != nil {
		return h, err
	}

	if raw[4] != signature[0] || raw[5] != signature[1] ||
		raw[6] != signature[2] || raw[7] != signature[3] {
		return h, newError(ErrInvalidSignature, "\"SCCA\" signature not found", 4)
	}

	h.formatVersion = Version(rawVersion)
	if !h.formatVersion.IsSupported() {
		return h, newError(ErrUnsupportedVersion, "unrecognized format_version", 0)
	}

	h.declaredFileSize, err = readUint32(raw, 12)
	if err != nil {
		return h, err
	}

	copy(h.executableNameRaw[:], raw[16:16+executableNameFieldSize])

	h.prefetchHash, err = readUint32(raw, 76)
	if err != nil {
		return h, err
	}

	if maxNameChars == 0 {
		maxNameChars = maxExecutableNameChars
	}
	if n := executableNameCodeUnits(h.executableNameRaw[:]); n > maxNameChars {
		return h, newError(ErrInvalidArgument, "executable name exceeds configured maximum length", 16)
	}

	return h, nil
}

// executableNameCodeUnits counts the UTF-16 code units in b preceding the
// first NUL terminator (or the whole field, if unterminated).
func executableNameCodeUnits(b []byte) uint32 {
	var n uint32
	for pos := 0; pos+2 <= len(b); pos += 2 {
		if b[pos] == 0 && b[pos+1] == 0 {
			break
		}
		n++
	}
	return n
}

// executableName decodes the NUL-padded UTF-16LE executable filename field,
// stopping at the first NUL terminator.
func (h header) executableName() (string, error) {
	return decodeUTF16String(h.executableNameRaw[:])
}
