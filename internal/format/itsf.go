// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package format

import "github.com/chmgo/chm/internal/wire"

// ITSFHeader is the outer, file-level header of a CHM archive.
type ITSFHeader struct {
	Version    int32
	HeaderLen  int32
	LastMod    uint32
	LangID     uint32
	DirUUID    [16]byte
	StreamUUID [16]byte
	DirOffset  int64
	DirLen     int64
	DataOffset int64 // Absent before version 3; derived as DirOffset+DirLen.
}

var itsfMarker = [4]byte{'I', 'T', 'S', 'F'}

// ParseITSFHeader decodes and validates the ITSF header located at the start
// of the archive. buf must hold at least ITSFLenV2 bytes.
func ParseITSFHeader(buf []byte) (hdr ITSFHeader, err error) {
	defer errRecover(&err)

	if len(buf) < ITSFLenV2 {
		return ITSFHeader{}, ErrCorrupt
	}
	d := wire.NewDecoder(buf)

	var sig [4]byte
	copy(sig[:], d.Bytes(4))
	if sig != itsfMarker {
		return ITSFHeader{}, ErrCorrupt
	}

	hdr.Version = d.Int32()
	if hdr.Version != 2 && hdr.Version != 3 {
		return ITSFHeader{}, ErrCorrupt
	}
	hdr.HeaderLen = d.Int32()
	minLen := int32(ITSFLenV2)
	if hdr.Version == 3 {
		minLen = ITSFLenV3
	}
	if hdr.HeaderLen < minLen {
		return ITSFHeader{}, ErrCorrupt
	}
	d.Skip(4) // unknown_000c
	hdr.LastMod = d.Uint32()
	hdr.LangID = d.Uint32()
	copy(hdr.DirUUID[:], d.Bytes(16))
	copy(hdr.StreamUUID[:], d.Bytes(16))
	d.Skip(8) // unknown_offset
	d.Skip(8) // unknown_len
	hdr.DirOffset = d.Int64()
	hdr.DirLen = d.Int64()
	if hdr.DirOffset < 0 || hdr.DirLen < 0 {
		return ITSFHeader{}, ErrCorrupt
	}
	if hdr.DirOffset > 1<<32-1 || hdr.DirLen > 1<<32-1 {
		return ITSFHeader{}, ErrCorrupt
	}

	if hdr.Version == 3 && len(buf) >= ITSFLenV3 {
		hdr.DataOffset = d.Int64()
	} else {
		hdr.DataOffset = hdr.DirOffset + hdr.DirLen
	}
	if err = d.Err(); err != nil {
		return ITSFHeader{}, err
	}
	return hdr, nil
}
