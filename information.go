// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package prefetch

// informationOffset is where the version-dependent "file information" block
// begins, immediately after the fixed header.
const informationOffset = headerSize

// information holds the nine cross-section offsets/sizes/counts the later
// decoding stages need. The first nine 4-byte fields of the information
// block have the same layout across v17/v23/v26; only the trailing
// last_run_time/run_count fields (which this parser does not need) differ by
// version, so decoding itself is not version-dispatched — only the total
// block size used to validate it fits inside the file is (Version.InfoBlockSize).
type information struct {
	metricsArrayOffset         uint32
	numberOfMetricsEntries     uint32
	traceChainArrayOffset      uint32
	numberOfTraceChainEntries  uint32
	filenameStringsOffset      uint32
	filenameStringsSize        uint32
	volumesInformationOffset   uint32
	numberOfVolumes            uint32
	volumesInformationSize     uint32
}

// decodeInformation parses the information block at informationOffset,
// dispatched on version only for its total size. declaredFileSize and
// actualSize bound every offset/size pair found inside, per the bounds
// invariants of the data model.
func decodeInformation(data []byte, version Version, declaredFileSize, actualSize uint32) (information, error) {
	var info information

	blockSize := version.InfoBlockSize()
	if err := validateSection(informationOffset, blockSize, headerSize, declaredFileSize, actualSize); err != nil {
		return info, wrapError(ErrOutOfBounds, "information block does not fit in file", err)
	}

	raw, err := readBytes(data, informationOffset, blockSize)
	if err != nil {
		return info, wrapError(ErrShortRead, "read information block", err)
	}

	fields := []*uint32{
		&info.metricsArrayOffset,
		&info.numberOfMetricsEntries,
		&info.traceChainArrayOffset,
		&info.numberOfTraceChainEntries,
		&info.filenameStringsOffset,
		&info.filenameStringsSize,
		&info.volumesInformationOffset,
		&info.numberOfVolumes,
		&info.volumesInformationSize,
	}
	for i, field := range fields {
		v, err := readUint32(raw, uint32(i*4))
		if err != nil {
			return info, err
		}
		*field = v
	}

	if err := info.validate(declaredFileSize, actualSize); err != nil {
		return info, err
	}

	return info, nil
}

// validate checks the two sections whose byte size is declared directly in
// the information block (filename strings, volumes information) against the
// bounds invariants of the data model, and checks that every section's zero
// offset always carries a zero count (a section is either fully present or
// fully absent, never partially declared). The metrics array and trace chain
// array declare only an entry count, not a byte size — their byte extent
// depends on the per-version stride, so decodeMetrics/decodeTraceChain
// validate those two sections themselves once they know the stride.
func (info information) validate(declaredFileSize, actualSize uint32) error {
	if info.metricsArrayOffset == 0 && info.numberOfMetricsEntries != 0 {
		return newError(ErrOutOfBounds, "metrics array has zero offset but non-zero count", 0)
	}
	if info.traceChainArrayOffset == 0 && info.numberOfTraceChainEntries != 0 {
		return newError(ErrOutOfBounds, "trace chain array has zero offset but non-zero count", 0)
	}

	type section struct {
		name         string
		offset, size uint32
		count        uint32
	}

	sections := []section{
		{"filename strings", info.filenameStringsOffset, info.filenameStringsSize, 0},
		{"volumes information", info.volumesInformationOffset, info.volumesInformationSize, info.numberOfVolumes},
	}

	for _, s := range sections {
		if s.offset == 0 {
			if s.count != 0 || s.size != 0 {
				return newError(ErrOutOfBounds, s.name+" has zero offset but non-zero count or size", 0)
			}
			continue
		}
		if err := validateSection(s.offset, s.size, headerSize, declaredFileSize, actualSize); err != nil {
			return wrapError(ErrOutOfBounds, s.name+" out of bounds", err)
		}
	}

	return nil
}
