// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package prefetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStringArrayTwoEntries(t *testing.T) {
	buf := append(encodeUTF16LE("A.DLL"), encodeUTF16LE("B.DLL")...)

	arr, err := decodeStringArray(buf, -1)
	require.NoError(t, err)
	require.Equal(t, 2, arr.count())

	s0, err := arr.at(0)
	require.NoError(t, err)
	assert.Equal(t, "A.DLL", s0)

	s1, err := arr.at(1)
	require.NoError(t, err)
	assert.Equal(t, "B.DLL", s1)
}

func TestDecodeStringArrayEmpty(t *testing.T) {
	arr, err := decodeStringArray(nil, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, arr.count())
}

func TestDecodeStringArrayOddTrailingByte(t *testing.T) {
	buf := append(encodeUTF16LE("A"), 0x41)

	_, err := decodeStringArray(buf, -1)
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrMalformedStringArray, perr.Kind)
}

func TestDecodeStringArrayMissingTerminator(t *testing.T) {
	buf := encodeUTF16LE("A")
	buf = buf[:len(buf)-2]
	buf = append(buf, 'B', 0)

	_, err := decodeStringArray(buf, -1)
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrMalformedStringArray, perr.Kind)
}

func TestDecodeStringArrayLimit(t *testing.T) {
	buf := append(encodeUTF16LE("A"), encodeUTF16LE("B")...)
	buf = append(buf, encodeUTF16LE("C")...)

	arr, err := decodeStringArray(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, arr.count())
}

func TestFilenameRoundTrip(t *testing.T) {
	raw := "SVCHOST.EXE"
	buf := encodeUTF16LE(raw)

	arr, err := decodeStringArray(buf, -1)
	require.NoError(t, err)
	require.Equal(t, 1, arr.count())

	decoded, err := arr.at(0)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)

	reencoded := encodeUTF16LE(decoded)
	assert.Equal(t, buf, reencoded)
}
