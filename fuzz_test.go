// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package prefetch

import "testing"

// FuzzOpen feeds arbitrary byte slices to OpenBytes. The decoder must never
// panic; a returned error is an expected, ordinary outcome for the vast
// majority of fuzzer-generated inputs.
func FuzzOpen(f *testing.F) {
	total := headerSize + VersionWindowsXP2003.InfoBlockSize()
	f.Add(newFixtureFile(VersionWindowsXP2003, "CMD.EXE", 0xDEADBEEF, total, fixtureInfo{}))

	payload := append(encodeUTF16LE("A.DLL"), encodeUTF16LE("B.DLL")...)
	withFilenames := newFixtureFile(VersionWindowsXP2003, "CMD.EXE", 0, 0x100+uint32(len(payload)), fixtureInfo{
		filenameStringsOffset: 0x100,
		filenameStringsSize:   uint32(len(payload)),
	})
	withFilenames = putBytes(withFilenames, 0x100, payload)
	f.Add(withFilenames)

	f.Add([]byte("XCCA"))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		pf, err := OpenBytes(data, nil)
		if err != nil {
			return
		}
		defer pf.Close()

		n, _ := pf.NumFilenames()
		for i := 0; i < n; i++ {
			if _, err := pf.Filename(i); err != nil {
				t.Fatalf("filename %d: %v", i, err)
			}
		}

		nv, _ := pf.NumVolumes()
		for i := 0; i < nv; i++ {
			if _, err := pf.Volume(i); err != nil {
				t.Fatalf("volume %d: %v", i, err)
			}
		}
	})
}
