// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package chm

import "math/bits"

// Retrieve copies up to len(dst) bytes of e's content, starting at byte
// offset addr within the entry, into dst. It returns the number of bytes
// copied, which is clipped to e.Length-addr and so may be less than
// len(dst) at the end of the entry. Retrieve returns (0, nil) for a
// compressed entry if the archive's LZX control parameters did not
// validate at Open (see Archive.compressionEnabled).
func (a *Archive) Retrieve(e Entry, dst []byte, addr int64) (int, error) {
	if a.closed {
		return 0, ErrClosed
	}
	if addr < 0 || addr > e.Length {
		return 0, ErrCorrupt
	}
	want := int64(len(dst))
	if remain := e.Length - addr; want > remain {
		want = remain
	}
	if want <= 0 {
		return 0, nil
	}
	dst = dst[:want]

	switch e.Section {
	case SectionUncompressed:
		n, err := a.src.ReadAt(dst, a.itsf.DataOffset+e.Start+addr)
		return n, err
	case SectionCompressed:
		return a.retrieveCompressed(e, dst, addr)
	default:
		return 0, ErrCorrupt
	}
}

func (a *Archive) retrieveCompressed(e Entry, dst []byte, addr int64) (int, error) {
	if !a.compressionEnabled {
		return 0, nil
	}
	if a.decoder == nil {
		windowBits, err := windowBitsFromSize(a.control.WindowSize)
		if err != nil {
			return 0, err
		}
		dec, err := newLZXDecoder(windowBits)
		if err != nil {
			return 0, err
		}
		a.decoder = dec
	}

	pos := e.Start + addr
	n := 0
	for n < len(dst) {
		blockIdx := int(pos / a.resetTable.BlockLen)
		blockOff := pos % a.resetTable.BlockLen
		block, err := a.decompressedBlock(blockIdx)
		if err != nil {
			return n, err
		}
		if blockOff >= int64(len(block)) {
			break
		}
		c := copy(dst[n:], block[blockOff:])
		n += c
		pos += int64(c)
	}
	return n, nil
}

func windowBitsFromSize(n uint32) (uint, error) {
	if n == 0 || n&(n-1) != 0 {
		return 0, ErrCorrupt
	}
	bitsLen := uint(bits.Len32(n)) - 1
	if bitsLen < 15 || bitsLen > 21 {
		return 0, ErrCorrupt
	}
	return bitsLen, nil
}
