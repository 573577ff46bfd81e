// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package prefetch

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Inspect writes a tabular, human-readable dump of pf to w. It performs no
// I/O of its own beyond writing to w — separate from parsing, per the
// read-only visitor design used throughout this package.
func Inspect(pf *PrefetchFile, w io.Writer) error {
	if pf == nil || !pf.opened {
		return newError(ErrNotOpen, "file is not open", 0)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "format version:\t%s\n", pf.FormatVersion)
	fmt.Fprintf(tw, "prefetch hash:\t0x%08X\n", pf.PrefetchHash)
	fmt.Fprintf(tw, "executable name:\t%s\n", pf.ExecutableName)
	fmt.Fprintf(tw, "declared file size:\t%d\n", pf.DeclaredFileSize)
	fmt.Fprintf(tw, "filenames:\t%d\n", pf.Filenames.count())
	fmt.Fprintf(tw, "volumes:\t%d\n", len(pf.Volumes))
	if len(pf.Metrics) > 0 {
		fmt.Fprintf(tw, "metrics entries (retained):\t%d\n", len(pf.Metrics))
	}
	if len(pf.TraceChain) > 0 {
		fmt.Fprintf(tw, "trace chain entries (retained):\t%d\n", len(pf.TraceChain))
	}
	for _, warning := range pf.Warnings {
		fmt.Fprintf(tw, "warning:\t%s\n", warning)
	}
	if err := tw.Flush(); err != nil {
		return wrapError(ErrIO, "flush inspection output", err)
	}

	for i := 0; i < pf.Filenames.count(); i++ {
		name, err := pf.Filenames.at(i)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  filename[%d]: %s\n", i, name)
	}

	for i, v := range pf.Volumes {
		vw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(vw, "volume[%d] device path:\t%s\n", i, v.DevicePath)
		fmt.Fprintf(vw, "volume[%d] serial number:\t0x%08X\n", i, v.SerialNumber)
		fmt.Fprintf(vw, "volume[%d] creation time (filetime):\t%d\n", i, v.CreationTime)
		fmt.Fprintf(vw, "volume[%d] file references:\t%d\n", i, len(v.FileReferences))
		fmt.Fprintf(vw, "volume[%d] directory strings:\t%d\n", i, len(v.DirectoryStrings))
		if err := vw.Flush(); err != nil {
			return wrapError(ErrIO, "flush inspection output", err)
		}
	}

	return nil
}
