// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package prefetch

import (
	"os"
	"sync/atomic"

	"github.com/go-kratos/kratos/v2/log"
)

// PrefetchFile is an open, fully-decoded Windows Prefetch file. It owns all
// of its nested buffers; no reference into the originating ByteSource
// outlives a successful Open.
type PrefetchFile struct {
	FormatVersion    Version
	PrefetchHash     uint32
	ExecutableName   string
	DeclaredFileSize uint32
	Filenames        stringArray
	Volumes          []Volume
	Metrics          []MetricsEntry
	TraceChain       []TraceChainEntry
	Warnings         []Warning

	source ByteSource
	opts   *Options
	opened bool
	abort  *AbortSignal
	logger *log.Helper
}

// AbortSignal is a cooperative cancellation flag that can be created before
// a call to OpenPath/OpenBytes (to test or exercise "abort before open") and
// passed in via Options.Abort, or signaled through an already-open
// PrefetchFile's SignalAbort method. It
// is checked at section boundaries only (spec §5); a read already in flight
// is never interrupted.
type AbortSignal struct {
	flag atomic.Bool
}

// Signal requests that the parse using this signal stop at the next section
// boundary and fail with ErrAborted.
func (s *AbortSignal) Signal() {
	s.flag.Store(true)
}

func (s *AbortSignal) signaled() bool {
	return s != nil && s.flag.Load()
}

// Options controls optional retention and logging for OpenPath/OpenBytes.
type Options struct {
	// MaxExecutableNameLength bounds the decoded executable name's length in
	// UTF-16 code units; Open fails with ErrInvalidArgument if the header's
	// name exceeds it. Zero falls back to the field's natural on-disk
	// capacity (29 code units).
	MaxExecutableNameLength uint32

	// RetainMetrics keeps the decoded metrics array entries on the returned
	// PrefetchFile. By default metrics are only bounds-checked, not kept.
	RetainMetrics bool

	// RetainTraceChain keeps the decoded trace-chain entries on the
	// returned PrefetchFile. By default the trace chain is only
	// bounds-checked, not kept.
	RetainTraceChain bool

	// Logger is a custom logger. If nil, a stderr logger filtered to error
	// level is used.
	Logger log.Logger

	// Abort, when supplied, lets a caller signal cancellation before Open
	// even begins (or concurrently with it, from another goroutine), by
	// calling Abort.Signal() on a value passed in here. If nil, Open
	// allocates its own, reachable afterwards via PrefetchFile.SignalAbort.
	Abort *AbortSignal
}

func newHelper(opts *Options) *log.Helper {
	if opts.Logger != nil {
		return log.NewHelper(opts.Logger)
	}
	logger := log.NewStdLogger(os.Stderr)
	return log.NewHelper(log.NewFilter(logger, log.FilterLevel(log.LevelError)))
}

// OpenPath memory-maps the file at name and parses it as a Windows Prefetch
// file.
func OpenPath(name string, opts *Options) (*PrefetchFile, error) {
	if name == "" {
		return nil, newError(ErrInvalidArgument, "name must not be empty", 0)
	}

	source, err := newMappedByteSource(name)
	if err != nil {
		return nil, err
	}

	pf, err := openSource(source, opts)
	if err != nil {
		source.Close()
		return nil, err
	}
	return pf, nil
}

// OpenBytes parses data, already held in memory, as a Windows Prefetch file.
func OpenBytes(data []byte, opts *Options) (*PrefetchFile, error) {
	if data == nil {
		return nil, newError(ErrInvalidArgument, "data must not be nil", 0)
	}
	return openSource(newMemoryByteSource(data), opts)
}

// openSource runs the fixed decoding pipeline (spec §5: header -> information
// -> metrics -> trace chain -> filenames -> volumes), discarding all partial
// state on any failure.
func openSource(source ByteSource, opts *Options) (*PrefetchFile, error) {
	if opts == nil {
		opts = &Options{}
	}

	abort := opts.Abort
	if abort == nil {
		abort = &AbortSignal{}
	}

	pf := &PrefetchFile{
		source: source,
		opts:   opts,
		abort:  abort,
		logger: newHelper(opts),
	}

	if pf.checkAbort() {
		return nil, newError(ErrAborted, "abort signaled before open", 0)
	}

	actualSize := source.Size()
	data, err := source.ReadAt(0, actualSize)
	if err != nil {
		return nil, wrapError(ErrIO, "read source", err)
	}

	h, err := decodeHeader(data, opts.MaxExecutableNameLength)
	if err != nil {
		return nil, err
	}

	declaredFileSize := h.declaredFileSize
	if declaredFileSize != actualSize {
		pf.Warnings = append(pf.Warnings, Warning{Message: WarnSizeMismatch})
		pf.logger.Warnf("declared file size %d differs from source size %d", declaredFileSize, actualSize)
		if declaredFileSize > actualSize {
			declaredFileSize = actualSize
		}
	}

	if pf.checkAbort() {
		return nil, newError(ErrAborted, "abort signaled before information block", 0)
	}

	info, err := decodeInformation(data, h.formatVersion, declaredFileSize, actualSize)
	if err != nil {
		return nil, err
	}

	if pf.checkAbort() {
		return nil, newError(ErrAborted, "abort signaled before metrics", 0)
	}

	metrics, err := decodeMetrics(data, h.formatVersion, info, declaredFileSize, actualSize, opts.RetainMetrics)
	if err != nil {
		return nil, err
	}

	if pf.checkAbort() {
		return nil, newError(ErrAborted, "abort signaled before trace chain", 0)
	}

	traceChain, err := decodeTraceChain(data, info, declaredFileSize, actualSize, opts.RetainTraceChain)
	if err != nil {
		return nil, err
	}

	if pf.checkAbort() {
		return nil, newError(ErrAborted, "abort signaled before filenames", 0)
	}

	var filenames stringArray
	if info.filenameStringsOffset != 0 {
		raw, err := readBytes(data, info.filenameStringsOffset, info.filenameStringsSize)
		if err != nil {
			return nil, wrapError(ErrShortRead, "read filename strings", err)
		}
		filenames, err = decodeStringArray(raw, -1)
		if err != nil {
			return nil, err
		}
	}

	if pf.checkAbort() {
		return nil, newError(ErrAborted, "abort signaled before volumes", 0)
	}

	volumes, err := decodeVolumes(data, h.formatVersion, info, declaredFileSize, actualSize)
	if err != nil {
		return nil, err
	}

	executableName, err := h.executableName()
	if err != nil {
		return nil, wrapError(ErrMalformedStringArray, "decode executable name", err)
	}

	pf.FormatVersion = h.formatVersion
	pf.PrefetchHash = h.prefetchHash
	pf.ExecutableName = executableName
	pf.DeclaredFileSize = h.declaredFileSize
	pf.Filenames = filenames
	pf.Volumes = volumes
	pf.Metrics = metrics
	pf.TraceChain = traceChain
	pf.opened = true

	return pf, nil
}

func (pf *PrefetchFile) checkAbort() bool {
	return pf.abort.signaled()
}

// SignalAbort sets pf's abort flag (the AbortSignal supplied in
// Options.Abort, if any). pf is returned only after parsing has finished, so
// this does not affect pf's own parse; an Open in progress is cancelled
// through the AbortSignal passed in Options.Abort.
func (pf *PrefetchFile) SignalAbort() {
	pf.abort.Signal()
}

// Close releases the underlying ByteSource. It is idempotent.
func (pf *PrefetchFile) Close() error {
	if !pf.opened {
		return nil
	}
	pf.opened = false
	if closer, ok := pf.source.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// NumFilenames returns the number of entries in the filename table.
func (pf *PrefetchFile) NumFilenames() (int, error) {
	if !pf.opened {
		return 0, newError(ErrNotOpen, "file is not open", 0)
	}
	return pf.Filenames.count(), nil
}

// Filename decodes the ith filename table entry.
func (pf *PrefetchFile) Filename(i int) (string, error) {
	if !pf.opened {
		return "", newError(ErrNotOpen, "file is not open", 0)
	}
	if i < 0 || i >= pf.Filenames.count() {
		return "", newError(ErrInvalidArgument, "filename index out of range", 0)
	}
	return pf.Filenames.at(i)
}

// FilenameUTF8Size returns the size, in bytes, the ith filename would occupy
// once transcoded to UTF-8, including its terminating NUL byte.
func (pf *PrefetchFile) FilenameUTF8Size(i int) (uint32, error) {
	if !pf.opened {
		return 0, newError(ErrNotOpen, "file is not open", 0)
	}
	if i < 0 || i >= pf.Filenames.count() {
		return 0, newError(ErrInvalidArgument, "filename index out of range", 0)
	}
	return utf8SizeOfUTF16(pf.Filenames.raw(i))
}

// FilenameUTF16Size returns the size, in bytes, of the ith filename's raw
// UTF-16LE encoding, including its terminating two-byte NUL.
func (pf *PrefetchFile) FilenameUTF16Size(i int) (uint32, error) {
	if !pf.opened {
		return 0, newError(ErrNotOpen, "file is not open", 0)
	}
	if i < 0 || i >= pf.Filenames.count() {
		return 0, newError(ErrInvalidArgument, "filename index out of range", 0)
	}
	return uint32(len(pf.Filenames.raw(i))) + 2, nil
}

// CopyFilename copies the ith filename's UTF-8 transcoding, including its
// terminating NUL byte, into buf. It returns ErrInvalidArgument if buf is
// too small.
func (pf *PrefetchFile) CopyFilename(i int, buf []byte) (int, error) {
	if !pf.opened {
		return 0, newError(ErrNotOpen, "file is not open", 0)
	}
	s, err := pf.Filename(i)
	if err != nil {
		return 0, err
	}
	if len(buf) < len(s)+1 {
		return 0, newError(ErrInvalidArgument, "destination buffer too small", 0)
	}
	n := copy(buf, s)
	buf[n] = 0
	return n + 1, nil
}

// NumVolumes returns the number of entries in the volumes information
// section.
func (pf *PrefetchFile) NumVolumes() (int, error) {
	if !pf.opened {
		return 0, newError(ErrNotOpen, "file is not open", 0)
	}
	return len(pf.Volumes), nil
}

// Volume returns a pointer to the ith decoded Volume. The returned pointer's
// validity is tied to pf's lifetime.
func (pf *PrefetchFile) Volume(i int) (*Volume, error) {
	if !pf.opened {
		return nil, newError(ErrNotOpen, "file is not open", 0)
	}
	if i < 0 || i >= len(pf.Volumes) {
		return nil, newError(ErrInvalidArgument, "volume index out of range", 0)
	}
	return &pf.Volumes[i], nil
}

// directoryStringRaw returns the raw UTF-16LE bytes (excluding NUL) of the
// jth directory string of the ith volume, after bounds-checking both
// indices.
func (pf *PrefetchFile) directoryStringRaw(volume, j int) ([]byte, error) {
	if !pf.opened {
		return nil, newError(ErrNotOpen, "file is not open", 0)
	}
	if volume < 0 || volume >= len(pf.Volumes) {
		return nil, newError(ErrInvalidArgument, "volume index out of range", 0)
	}
	strs := pf.Volumes[volume].directoryStrings
	if j < 0 || j >= strs.count() {
		return nil, newError(ErrInvalidArgument, "directory string index out of range", 0)
	}
	return strs.raw(j), nil
}

// NumDirectoryStrings returns the number of directory strings recovered for
// the ith volume.
func (pf *PrefetchFile) NumDirectoryStrings(volume int) (int, error) {
	if !pf.opened {
		return 0, newError(ErrNotOpen, "file is not open", 0)
	}
	if volume < 0 || volume >= len(pf.Volumes) {
		return 0, newError(ErrInvalidArgument, "volume index out of range", 0)
	}
	return pf.Volumes[volume].directoryStrings.count(), nil
}

// DirectoryString decodes the jth directory string of the ith volume.
func (pf *PrefetchFile) DirectoryString(volume, j int) (string, error) {
	raw, err := pf.directoryStringRaw(volume, j)
	if err != nil {
		return "", err
	}
	return decodeUTF16String(append(append([]byte{}, raw...), 0, 0))
}

// DirectoryStringUTF8Size returns the size, in bytes, the jth directory
// string of the ith volume would occupy once transcoded to UTF-8, including
// its terminating NUL byte.
func (pf *PrefetchFile) DirectoryStringUTF8Size(volume, j int) (uint32, error) {
	raw, err := pf.directoryStringRaw(volume, j)
	if err != nil {
		return 0, err
	}
	return utf8SizeOfUTF16(raw)
}

// DirectoryStringUTF16Size returns the size, in bytes, of the jth directory
// string's raw UTF-16LE encoding for the ith volume, including its
// terminating two-byte NUL.
func (pf *PrefetchFile) DirectoryStringUTF16Size(volume, j int) (uint32, error) {
	raw, err := pf.directoryStringRaw(volume, j)
	if err != nil {
		return 0, err
	}
	return uint32(len(raw)) + 2, nil
}

// CopyDirectoryString copies the UTF-8 transcoding of the jth directory
// string of the ith volume, including its terminating NUL byte, into buf. It
// returns ErrInvalidArgument if buf is too small.
func (pf *PrefetchFile) CopyDirectoryString(volume, j int, buf []byte) (int, error) {
	s, err := pf.DirectoryString(volume, j)
	if err != nil {
		return 0, err
	}
	if len(buf) < len(s)+1 {
		return 0, newError(ErrInvalidArgument, "destination buffer too small", 0)
	}
	n := copy(buf, s)
	buf[n] = 0
	return n + 1, nil
}
