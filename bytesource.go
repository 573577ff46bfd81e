// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package prefetch

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// ByteSource is the random-access read capability the parser is built on
// top of: a byte range by offset, plus the source's total length. It is the
// only collaborator the decoder depends on; everything it reads comes
// through ReadAt.
type ByteSource interface {
	// ReadAt returns the n bytes starting at offset. It returns ErrShortRead
	// (wrapped as *Error) if fewer than n bytes are available.
	ReadAt(offset, n uint32) ([]byte, error)

	// Size reports the exact length of the source in bytes.
	Size() uint32
}

// MappedByteSource is a ByteSource backed by a memory-mapped file, the
// production adapter used by OpenPath.
type MappedByteSource struct {
	f    *os.File
	data mmap.MMap
}

// newMappedByteSource opens name and memory-maps it read-only.
func newMappedByteSource(name string) (*MappedByteSource, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, wrapError(ErrIO, "open file", err)
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, wrapError(ErrIO, "memory-map file", err)
	}

	return &MappedByteSource{f: f, data: data}, nil
}

// ReadAt implements ByteSource.
func (s *MappedByteSource) ReadAt(offset, n uint32) ([]byte, error) {
	b, err := readBytes(s.data, offset, n)
	if err != nil {
		return nil, wrapError(ErrShortRead, "read mapped source", err)
	}
	return b, nil
}

// Size implements ByteSource.
func (s *MappedByteSource) Size() uint32 {
	return uint32(len(s.data))
}

// Close releases the memory mapping and the underlying file descriptor.
func (s *MappedByteSource) Close() error {
	var unmapErr error
	if s.data != nil {
		unmapErr = s.data.Unmap()
		s.data = nil
	}
	if s.f != nil {
		closeErr := s.f.Close()
		s.f = nil
		if unmapErr != nil {
			return unmapErr
		}
		return closeErr
	}
	return unmapErr
}

// MemoryByteSource is a ByteSource backed directly by an in-memory buffer,
// used by OpenBytes and by tests synthesizing fixtures.
type MemoryByteSource struct {
	data []byte
}

// newMemoryByteSource wraps data as a ByteSource without copying it.
func newMemoryByteSource(data []byte) *MemoryByteSource {
	return &MemoryByteSource{data: data}
}

// ReadAt implements ByteSource.
func (s *MemoryByteSource) ReadAt(offset, n uint32) ([]byte, error) {
	b, err := readBytes(s.data, offset, n)
	if err != nil {
		return nil, wrapError(ErrShortRead, "read memory source", err)
	}
	return b, nil
}

// Size implements ByteSource.
func (s *MemoryByteSource) Size() uint32 {
	return uint32(len(s.data))
}

// Close is a no-op; MemoryByteSource owns no external resource.
func (s *MemoryByteSource) Close() error {
	return nil
}
