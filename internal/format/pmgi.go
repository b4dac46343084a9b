// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package format

import "github.com/chmgo/chm/internal/wire"

// PMGIHeader is the 8-byte header of a directory internal (index) page.
type PMGIHeader struct {
	FreeSpace uint32
}

// ParsePMGIHeader decodes the fixed header at the start of an internal page.
func ParsePMGIHeader(buf []byte, blockLen uint32) (hdr PMGIHeader, err error) {
	defer errRecover(&err)

	if len(buf) < PMGILen {
		return PMGIHeader{}, ErrCorrupt
	}
	d := wire.NewDecoder(buf)

	var sig [4]byte
	copy(sig[:], d.Bytes(4))
	if sig != pmgiMarker {
		return PMGIHeader{}, ErrCorrupt
	}
	hdr.FreeSpace = d.Uint32()

	if err = d.Err(); err != nil {
		return PMGIHeader{}, err
	}
	if blockLen != 0 && hdr.FreeSpace > blockLen-PMGILen {
		return PMGIHeader{}, ErrCorrupt
	}
	return hdr, nil
}

// FindPMGI scans an internal page and returns the child page a lookup for
// path should descend into: the page following the last key not greater
// than path. ok is false if every key in the page exceeds path (no such
// child exists on this page).
func FindPMGI(buf []byte, blockLen uint32, path string) (child int32, ok bool, err error) {
	defer errRecover(&err)

	hdr, err := ParsePMGIHeader(buf, blockLen)
	if err != nil {
		return 0, false, err
	}
	end := len(buf)
	if blockLen != 0 {
		end = int(blockLen) - int(hdr.FreeSpace)
	}
	if end > len(buf) {
		end = len(buf)
	}

	d := wire.NewDecoder(buf[:end])
	d.Skip(PMGILen)
	child = -1
	for d.Len() > 0 {
		nameLen := d.Cword()
		if nameLen > MaxPathLen {
			return 0, false, ErrCorrupt
		}
		nameBytes := d.Bytes(int(nameLen))
		if err = d.Err(); err != nil {
			return 0, false, err
		}
		if CompareFold(string(nameBytes), path) > 0 {
			break
		}
		child = int32(d.Cword())
		ok = true
		if err = d.Err(); err != nil {
			return 0, false, err
		}
	}
	return child, ok, nil
}
