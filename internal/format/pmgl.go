// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package format

import "github.com/chmgo/chm/internal/wire"

// MaxPathLen is the largest entry path this package will accept.
const MaxPathLen = 512

var pmglMarker = [4]byte{'P', 'M', 'G', 'L'}
var pmgiMarker = [4]byte{'P', 'M', 'G', 'I'}

// PMGLHeader is the 20-byte header of a directory leaf page.
type PMGLHeader struct {
	FreeSpace  uint32
	BlockPrev  int32
	BlockNext  int32
}

// DirEntry is one (path, section, start, length) record read out of a PMGL
// leaf page.
type DirEntry struct {
	Path    string
	Section int32
	Start   int64
	Length  int64
}

// ParsePMGLHeader decodes the fixed header at the start of a leaf page.
// blockLen is the page size negotiated by the ITSP header, used to sanity
// check FreeSpace.
func ParsePMGLHeader(buf []byte, blockLen uint32) (hdr PMGLHeader, err error) {
	defer errRecover(&err)

	if len(buf) < PMGLLen {
		return PMGLHeader{}, ErrCorrupt
	}
	d := wire.NewDecoder(buf)

	var sig [4]byte
	copy(sig[:], d.Bytes(4))
	if sig != pmglMarker {
		return PMGLHeader{}, ErrCorrupt
	}
	hdr.FreeSpace = d.Uint32()
	d.Skip(4) // unknown_0008
	hdr.BlockPrev = d.Int32()
	hdr.BlockNext = d.Int32()

	if err = d.Err(); err != nil {
		return PMGLHeader{}, err
	}
	if blockLen != 0 && hdr.FreeSpace > blockLen-PMGLLen {
		return PMGLHeader{}, ErrCorrupt
	}
	return hdr, nil
}

// WalkPMGL decodes the entry records of a leaf page and calls fn for each,
// in on-disk order. Walking stops early, without error, if fn returns false.
func WalkPMGL(buf []byte, blockLen uint32, fn func(DirEntry) bool) (err error) {
	defer errRecover(&err)

	hdr, err := ParsePMGLHeader(buf, blockLen)
	if err != nil {
		return err
	}
	end := len(buf)
	if blockLen != 0 {
		end = int(blockLen) - int(hdr.FreeSpace)
	}
	if end > len(buf) {
		end = len(buf)
	}

	d := wire.NewDecoder(buf[:end])
	d.Skip(PMGLLen)
	for d.Len() > 0 {
		nameLen := d.Cword()
		if nameLen > MaxPathLen {
			return ErrCorrupt
		}
		nameBytes := d.Bytes(int(nameLen))
		if err = d.Err(); err != nil {
			return err
		}
		e := DirEntry{
			Path:    string(nameBytes),
			Section: int32(d.Cword()),
			Start:   int64(d.Cword()),
			Length:  int64(d.Cword()),
		}
		if err = d.Err(); err != nil {
			return err
		}
		if !fn(e) {
			return nil
		}
	}
	return nil
}

// FindPMGL scans a leaf page for an exact, case-insensitive path match.
func FindPMGL(buf []byte, blockLen uint32, path string) (e DirEntry, ok bool, err error) {
	err = WalkPMGL(buf, blockLen, func(cand DirEntry) bool {
		if EqualFold(cand.Path, path) {
			e, ok = cand, true
			return false
		}
		return true
	})
	return e, ok, err
}

// EqualFold reports whether a and b are equal under ASCII case folding.
// Path comparisons in the directory index were produced by tools that treat
// paths as raw bytes; Unicode case folding would diverge from that ordering.
func EqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if asciiLower(a[i]) != asciiLower(b[i]) {
			return false
		}
	}
	return true
}

// CompareFold performs an ASCII case-folded lexicographic comparison,
// returning <0, 0, or >0 as a < b, a == b, or a > b.
func CompareFold(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ca, cb := asciiLower(a[i]), asciiLower(b[i])
		if ca != cb {
			return int(ca) - int(cb)
		}
	}
	return len(a) - len(b)
}

func asciiLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
