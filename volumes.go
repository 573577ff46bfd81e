// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package prefetch

import "time"

// volumeHeaderSharedSize is the byte size of the fields shared by the v17
// and v23/v26 per-volume header layouts (spec §4.6); the v23/v26 stride
// appends 56 bytes of unknown/unused fields after this prefix.
const volumeHeaderSharedSize = 40

// fileReferencesHeaderSize is the size of the file-references sub-block's
// own header: version (u32), count (u32), reserved (u64).
const fileReferencesHeaderSize = 16

// fileReferenceEntrySize is the byte size of one NTFS file reference.
const fileReferenceEntrySize = 8

// FileRef is an NTFS file reference: a Master File Table entry number and
// its reuse sequence number, packed into a single 64-bit value on disk.
type FileRef struct {
	MftEntry uint64
	Sequence uint16
}

// decodeFileRef splits a raw 64-bit NTFS file reference into its MFT entry
// (low 48 bits) and sequence number (high 16 bits), per spec §8 property 6.
func decodeFileRef(raw uint64) FileRef {
	return FileRef{
		MftEntry: raw & 0x0000FFFFFFFFFFFF,
		Sequence: uint16(raw >> 48),
	}
}

// Volume is one entry of the volumes information section: the device this
// traced run touched, together with its directory strings and the files it
// referenced on that volume.
type Volume struct {
	DevicePath       string
	DevicePathChars  uint32
	CreationTime     uint64
	SerialNumber     uint32
	FileReferences   []FileRef
	DirectoryStrings []string

	directoryStrings stringArray
}

// CreationTimeAsTime decodes the volume's raw Windows FILETIME creation_time
// into a time.Time.
func (v Volume) CreationTimeAsTime() time.Time {
	return decodeFiletime(v.CreationTime)
}

// decodeVolumes reads the volumes_information blob and decodes each of
// info.numberOfVolumes per-volume records in turn (spec §4.6).
func decodeVolumes(data []byte, version Version, info information, declaredFileSize, actualSize uint32) ([]Volume, error) {
	if info.volumesInformationOffset == 0 || info.numberOfVolumes == 0 {
		return nil, nil
	}

	blob, err := readBytes(data, info.volumesInformationOffset, info.volumesInformationSize)
	if err != nil {
		return nil, wrapError(ErrShortRead, "read volumes information blob", err)
	}

	stride := version.VolumeHeaderStride()
	volumes := make([]Volume, info.numberOfVolumes)
	for i := range volumes {
		base := uint32(i) * stride
		header, err := readBytes(blob, base, volumeHeaderSharedSize)
		if err != nil {
			return nil, wrapError(ErrShortRead, "read volume header", err)
		}

		v, err := decodeVolume(blob, header, uint32(len(blob)))
		if err != nil {
			return nil, err
		}
		volumes[i] = v
	}

	return volumes, nil
}

// decodeVolume decodes the shared-prefix fields of a single volume header
// and its three sub-blocks (device path, file references, directory
// strings), each addressed by an offset relative to blob.
func decodeVolume(blob, header []byte, blobSize uint32) (Volume, error) {
	var v Volume

	devicePathOffset, err := readUint32(header, 0)
	if err != nil {
		return v, err
	}
	devicePathChars, err := readUint32(header, 4)
	if err != nil {
		return v, err
	}
	v.CreationTime, err = readUint64(header, 8)
	if err != nil {
		return v, err
	}
	v.SerialNumber, err = readUint32(header, 16)
	if err != nil {
		return v, err
	}
	fileReferencesOffset, err := readUint32(header, 20)
	if err != nil {
		return v, err
	}
	fileReferencesSize, err := readUint32(header, 24)
	if err != nil {
		return v, err
	}
	directoryStringsOffset, err := readUint32(header, 28)
	if err != nil {
		return v, err
	}
	numberOfDirectoryStrings, err := readUint32(header, 32)
	if err != nil {
		return v, err
	}

	v.DevicePathChars = devicePathChars
	if devicePathOffset != 0 && devicePathChars != 0 {
		size := utf16ByteLen(devicePathChars)
		if err := validateSection(devicePathOffset, size, 0, blobSize, blobSize); err != nil {
			return v, wrapError(ErrOutOfBounds, "device path out of bounds", err)
		}
		raw, err := readBytes(blob, devicePathOffset, size)
		if err != nil {
			return v, wrapError(ErrShortRead, "read device path", err)
		}
		v.DevicePath, err = decodeUTF16String(append(append([]byte{}, raw...), 0, 0))
		if err != nil {
			return v, wrapError(ErrMalformedStringArray, "decode device path", err)
		}
	}

	if fileReferencesOffset != 0 {
		refs, err := decodeFileReferences(blob, fileReferencesOffset, fileReferencesSize, blobSize)
		if err != nil {
			return v, err
		}
		v.FileReferences = refs
	}

	if directoryStringsOffset != 0 {
		arr, err := decodeDirectoryStrings(blob, directoryStringsOffset, numberOfDirectoryStrings, blobSize)
		if err != nil {
			return v, err
		}
		v.directoryStrings = arr
		v.DirectoryStrings = make([]string, arr.count())
		for i := range v.DirectoryStrings {
			s, err := arr.at(i)
			if err != nil {
				return v, err
			}
			v.DirectoryStrings[i] = s
		}
	}

	return v, nil
}

// decodeFileReferences reads the file-references sub-block: a 16-byte
// header (version, count, reserved) followed by count 8-byte NTFS file
// references. Entry 0 is reserved and skipped (spec §4.6).
func decodeFileReferences(blob []byte, offset, size, blobSize uint32) ([]FileRef, error) {
	if err := validateSection(offset, size, 0, blobSize, blobSize); err != nil {
		return nil, wrapError(ErrOutOfBounds, "file references out of bounds", err)
	}

	raw, err := readBytes(blob, offset, size)
	if err != nil {
		return nil, wrapError(ErrShortRead, "read file references", err)
	}
	if uint32(len(raw)) < fileReferencesHeaderSize {
		return nil, newError(ErrShortRead, "file references header truncated", offset)
	}

	count, err := readUint32(raw, 4)
	if err != nil {
		return nil, err
	}

	entriesSize := count * fileReferenceEntrySize
	entries, err := readBytes(raw, fileReferencesHeaderSize, entriesSize)
	if err != nil {
		return nil, wrapError(ErrShortRead, "read file reference entries", err)
	}

	if count == 0 {
		return nil, nil
	}

	refs := make([]FileRef, 0, count-1)
	for i := uint32(1); i < count; i++ {
		raw, err := readUint64(entries, i*fileReferenceEntrySize)
		if err != nil {
			return nil, err
		}
		refs = append(refs, decodeFileRef(raw))
	}

	return refs, nil
}

// decodeDirectoryStrings reads the directory-strings sub-block as a nested
// UTF-16LE string array. Per the carried-forward assumption documented in
// DESIGN.md (spec §9, open question 1), this sub-block is always the last
// one inside the volumes blob, so its size is simply the remainder of the
// blob from offset onward; if a later sub-section is ever found to follow
// it in some v26 files, this will over-read.
func decodeDirectoryStrings(blob []byte, offset, declaredCount, blobSize uint32) (stringArray, error) {
	if offset > blobSize {
		return stringArray{}, newError(ErrOutOfBounds, "directory strings offset out of bounds", offset)
	}

	raw, err := readBytes(blob, offset, blobSize-offset)
	if err != nil {
		return stringArray{}, wrapError(ErrShortRead, "read directory strings", err)
	}

	arr, err := decodeStringArray(raw, -1)
	if err != nil {
		return stringArray{}, err
	}

	if uint32(arr.count()) < declaredCount {
		return stringArray{}, newError(ErrTruncatedDirectoryStrings, "fewer directory strings than declared", offset)
	}

	arr.spans = arr.spans[:declaredCount]
	return arr, nil
}
