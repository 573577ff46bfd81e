// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package prefetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDecodeVolumesSingleV23 builds the "S3 — One volume (v23)" scenario
// from spec.md §8.
func TestDecodeVolumesSingleV23(t *testing.T) {
	devicePath := `\DEVICE\HARDDISKVOLUME1`
	devicePathBytes := []byte{}
	for _, r := range devicePath {
		devicePathBytes = append(devicePathBytes, byte(r), 0)
	}

	volumeHeader := make([]byte, VersionWindowsVista7.VolumeHeaderStride())
	const devicePathOffset = 96
	volumeHeader = putUint32(volumeHeader, 0, devicePathOffset)
	volumeHeader = putUint32(volumeHeader, 4, uint32(len(devicePath)))
	volumeHeader = putUint64(volumeHeader, 8, 0x01D4A1B2C3D4E5F6)
	volumeHeader = putUint32(volumeHeader, 16, 0x12345678)

	blobSize := devicePathOffset + uint32(len(devicePathBytes))
	blob := make([]byte, blobSize)
	copy(blob, volumeHeader)
	blob = putBytes(blob, devicePathOffset, devicePathBytes)

	info := information{volumesInformationOffset: 1000, numberOfVolumes: 1, volumesInformationSize: blobSize}
	full := make([]byte, info.volumesInformationOffset+blobSize)
	full = putBytes(full, info.volumesInformationOffset, blob)

	volumes, err := decodeVolumes(full, VersionWindowsVista7, info, uint32(len(full)), uint32(len(full)))
	require.NoError(t, err)
	require.Len(t, volumes, 1)
	assert.Equal(t, uint32(0x12345678), volumes[0].SerialNumber)
	assert.Equal(t, devicePath, volumes[0].DevicePath)
}

// TestDecodeFileReferencesSkipsEntryZero builds the "S4 — File references"
// scenario from spec.md §8.
func TestDecodeFileReferencesSkipsEntryZero(t *testing.T) {
	const offset = 0
	const count = 3
	raw := make([]byte, fileReferencesHeaderSize+count*fileReferenceEntrySize)
	raw = putUint32(raw, 4, count)
	raw = putUint64(raw, fileReferencesHeaderSize+0, 0x0000_0000_0000_0000)
	raw = putUint64(raw, fileReferencesHeaderSize+8, 0x0001_0000_0000_002A)
	raw = putUint64(raw, fileReferencesHeaderSize+16, 0x0002_0000_0000_00FF)

	refs, err := decodeFileReferences(raw, offset, uint32(len(raw)), uint32(len(raw)))
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, FileRef{MftEntry: 42, Sequence: 1}, refs[0])
	assert.Equal(t, FileRef{MftEntry: 255, Sequence: 2}, refs[1])
}

func TestDecodeFileRefSplit(t *testing.T) {
	ref := decodeFileRef(0x0001_0000_0000_002A)
	assert.Equal(t, uint64(42), ref.MftEntry)
	assert.Equal(t, uint16(1), ref.Sequence)
}

func TestDecodeDirectoryStringsTail(t *testing.T) {
	strs := append(encodeUTF16LE("Users"), encodeUTF16LE("Windows")...)
	blob := make([]byte, 10+len(strs))
	blob = putBytes(blob, 10, strs)

	got, err := decodeDirectoryStrings(blob, 10, 2, uint32(len(blob)))
	require.NoError(t, err)
	require.Equal(t, 2, got.count())
	s0, err := got.at(0)
	require.NoError(t, err)
	s1, err := got.at(1)
	require.NoError(t, err)
	assert.Equal(t, "Users", s0)
	assert.Equal(t, "Windows", s1)
}

func TestDecodeDirectoryStringsTruncated(t *testing.T) {
	strs := encodeUTF16LE("Users")
	blob := putBytes(make([]byte, 0), 0, strs)

	_, err := decodeDirectoryStrings(blob, 0, 2, uint32(len(blob)))
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrTruncatedDirectoryStrings, perr.Kind)
}

func TestDecodeVolumesAbsent(t *testing.T) {
	volumes, err := decodeVolumes(nil, VersionWindowsXP2003, information{}, 0, 0)
	require.NoError(t, err)
	assert.Nil(t, volumes)
}

func TestVolumeCreationTimeAsTime(t *testing.T) {
	v := Volume{CreationTime: 0x01D4A1B2C3D4E5F6}
	got := v.CreationTimeAsTime()
	assert.Equal(t, decodeFiletime(0x01D4A1B2C3D4E5F6), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestVolumeCreationTimeAsTimeZero(t *testing.T) {
	v := Volume{}
	assert.True(t, v.CreationTimeAsTime().IsZero())
}
