// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package prefetch

// traceChainStride is the fixed byte size of one trace-chain entry across
// all three supported versions.
const traceChainStride = 12

// endOfChain is the next_table_index sentinel marking the final entry of a
// trace chain.
const endOfChain = 0xFFFFFFFF

// TraceChainEntry is one record of the trace-chain array, describing a
// single group of code/data blocks loaded during the traced run. Retained
// only when Options asks for it.
type TraceChainEntry struct {
	NextTableIndex uint32
	BlockLoadCount uint32
	Unknown1       uint8
	Unknown2       uint8
	Unknown3       uint16
}

// decodeTraceChain reads the number_of_trace_chain_entries 12-byte records
// starting at info.traceChainArrayOffset (spec §4.5). Like decodeMetrics,
// it performs the section's bounds check itself since information.validate
// only has access to the declared count, not the (fixed here) stride.
func decodeTraceChain(data []byte, info information, declaredFileSize, actualSize uint32, retain bool) ([]TraceChainEntry, error) {
	if info.traceChainArrayOffset == 0 || info.numberOfTraceChainEntries == 0 {
		return nil, nil
	}

	size64 := uint64(info.numberOfTraceChainEntries) * traceChainStride
	if size64 > 0xFFFFFFFF {
		return nil, newError(ErrOutOfBounds, "trace chain array size overflows", info.traceChainArrayOffset)
	}
	size := uint32(size64)
	if err := validateSection(info.traceChainArrayOffset, size, headerSize, declaredFileSize, actualSize); err != nil {
		return nil, wrapError(ErrOutOfBounds, "trace chain array out of bounds", err)
	}

	raw, err := readBytes(data, info.traceChainArrayOffset, size)
	if err != nil {
		return nil, wrapError(ErrShortRead, "read trace chain array", err)
	}

	if !retain {
		return nil, nil
	}

	entries := make([]TraceChainEntry, info.numberOfTraceChainEntries)
	for i := range entries {
		base := uint32(i) * traceChainStride

		nextIndex, err := readUint32(raw, base+0)
		if err != nil {
			return nil, err
		}
		loadCount, err := readUint32(raw, base+4)
		if err != nil {
			return nil, err
		}
		unknown3, err := readUint16(raw, base+10)
		if err != nil {
			return nil, err
		}

		entries[i] = TraceChainEntry{
			NextTableIndex: nextIndex,
			BlockLoadCount: loadCount,
			Unknown1:       raw[base+8],
			Unknown2:       raw[base+9],
			Unknown3:       unknown3,
		}
	}

	return entries, nil
}

// isEndOfChain reports whether a next_table_index value marks the final
// entry of a trace chain.
func isEndOfChain(nextTableIndex uint32) bool {
	return nextTableIndex == endOfChain
}
