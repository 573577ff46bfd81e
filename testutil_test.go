// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package prefetch

import "encoding/binary"

// putUint32 writes v little-endian at offset into buf, growing buf if
// necessary.
func putUint32(buf []byte, offset uint32, v uint32) []byte {
	end := offset + 4
	if uint32(len(buf)) < end {
		grown := make([]byte, end)
		copy(grown, buf)
		buf = grown
	}
	binary.LittleEndian.PutUint32(buf[offset:end], v)
	return buf
}

// putUint64 writes v little-endian at offset into buf, growing buf if
// necessary.
func putUint64(buf []byte, offset uint32, v uint64) []byte {
	end := offset + 8
	if uint32(len(buf)) < end {
		grown := make([]byte, end)
		copy(grown, buf)
		buf = grown
	}
	binary.LittleEndian.PutUint64(buf[offset:end], v)
	return buf
}

// putBytes writes raw at offset into buf, growing buf if necessary.
func putBytes(buf []byte, offset uint32, raw []byte) []byte {
	end := offset + uint32(len(raw))
	if uint32(len(buf)) < end {
		grown := make([]byte, end)
		copy(grown, buf)
		buf = grown
	}
	copy(buf[offset:end], raw)
	return buf
}

// encodeUTF16LE encodes s as NUL-terminated UTF-16LE bytes (ASCII-only
// helper, sufficient for synthetic fixtures).
func encodeUTF16LE(s string) []byte {
	out := make([]byte, 0, 2*(len(s)+1))
	for _, r := range s {
		out = append(out, byte(r), 0)
	}
	out = append(out, 0, 0)
	return out
}

// fixtureHeader builds the fixed 84-byte header.
func fixtureHeader(version Version, fileSize uint32, executableName string, prefetchHash uint32) []byte {
	buf := make([]byte, headerSize)
	buf = putUint32(buf, 0, uint32(version))
	buf[4], buf[5], buf[6], buf[7] = 'S', 'C', 'C', 'A'
	buf = putUint32(buf, 12, fileSize)
	nameBytes := encodeUTF16LE(executableName)
	copy(buf[16:16+executableNameFieldSize], nameBytes)
	buf = putUint32(buf, 76, prefetchHash)
	return buf
}

// fixtureInfo fields, in the shared v17/v23/v26 order documented in spec §4.2.
type fixtureInfo struct {
	metricsArrayOffset        uint32
	numberOfMetricsEntries    uint32
	traceChainArrayOffset     uint32
	numberOfTraceChainEntries uint32
	filenameStringsOffset     uint32
	filenameStringsSize       uint32
	volumesInformationOffset  uint32
	numberOfVolumes           uint32
	volumesInformationSize    uint32
}

// fixtureInformationBlock builds a zero-padded information block of the
// version's exact declared size, with the nine leading fields populated.
func fixtureInformationBlock(version Version, info fixtureInfo) []byte {
	buf := make([]byte, version.InfoBlockSize())
	buf = putUint32(buf, 0, info.metricsArrayOffset)
	buf = putUint32(buf, 4, info.numberOfMetricsEntries)
	buf = putUint32(buf, 8, info.traceChainArrayOffset)
	buf = putUint32(buf, 12, info.numberOfTraceChainEntries)
	buf = putUint32(buf, 16, info.filenameStringsOffset)
	buf = putUint32(buf, 20, info.filenameStringsSize)
	buf = putUint32(buf, 24, info.volumesInformationOffset)
	buf = putUint32(buf, 28, info.numberOfVolumes)
	buf = putUint32(buf, 32, info.volumesInformationSize)
	return buf
}

// newFixtureFile assembles a full synthetic Prefetch file: header +
// information block, sized to totalSize and zero-padded. Callers then use
// putBytes/putUint32 to place section payloads at whatever offsets they
// declared inside info.
func newFixtureFile(version Version, executableName string, prefetchHash, totalSize uint32, info fixtureInfo) []byte {
	buf := make([]byte, totalSize)
	buf = putBytes(buf, 0, fixtureHeader(version, totalSize, executableName, prefetchHash))
	buf = putBytes(buf, headerSize, fixtureInformationBlock(version, info))
	return buf
}
