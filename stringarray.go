// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package prefetch

// stringSpan is one entry's (byte_offset, byte_length) pair within a
// stringArray's backing buffer. length excludes the terminating NUL.
type stringSpan struct {
	offset uint32
	length uint32
}

// stringArray is a contiguous UTF-16LE buffer together with the index of
// NUL-terminated runs found inside it, shared by the filename table and
// every volume's directory-strings sub-block.
type stringArray struct {
	data  []byte
	spans []stringSpan
}

// count reports the number of strings found in the array.
func (a stringArray) count() int {
	return len(a.spans)
}

// at decodes the ith string. i must be in [0, a.count()).
func (a stringArray) at(i int) (string, error) {
	s := a.spans[i]
	return decodeUTF16String(a.data[s.offset : s.offset+s.length+2])
}

// raw returns the ith string's backing bytes, excluding the terminating NUL.
func (a stringArray) raw(i int) []byte {
	s := a.spans[i]
	return a.data[s.offset : s.offset+s.length]
}

// decodeStringArray walks data two bytes at a time, splitting it into an
// ordered sequence of NUL-terminated UTF-16LE runs. It stops scanning once
// limit strings have been found when limit is non-negative, otherwise it
// consumes the entire buffer. A trailing odd byte or an unterminated final
// run is reported as ErrMalformedStringArray.
func decodeStringArray(data []byte, limit int) (stringArray, error) {
	if len(data)%2 != 0 {
		return stringArray{}, newError(ErrMalformedStringArray, "string array has an odd trailing byte", uint32(len(data)))
	}

	arr := stringArray{data: append([]byte(nil), data...)}
	start := uint32(0)
	for pos := uint32(0); pos+2 <= uint32(len(data)); pos += 2 {
		if data[pos] == 0 && data[pos+1] == 0 {
			arr.spans = append(arr.spans, stringSpan{offset: start, length: pos - start})
			start = pos + 2
			if limit >= 0 && len(arr.spans) == limit {
				return arr, nil
			}
			continue
		}
	}

	if start != uint32(len(data)) {
		return stringArray{}, newError(ErrMalformedStringArray, "string array run is missing its NUL terminator", start)
	}

	return arr, nil
}
