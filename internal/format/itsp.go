// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package format

import "github.com/chmgo/chm/internal/wire"

// ITSPHeader describes the directory chunking and the PMGI/PMGL tree shape.
type ITSPHeader struct {
	Version        int32
	HeaderLen      int32
	BlockLen       uint32
	BlockIdxIntvl  int32
	IndexDepth     int32
	IndexRoot      int32
	IndexHead      int32
	NumBlocks      uint32
	LangID         uint32
	SystemUUID     [16]byte
}

var itspMarker = [4]byte{'I', 'T', 'S', 'P'}

// ParseITSPHeader decodes and validates the ITSP header located at the
// archive's directory offset. buf must hold at least ITSPLen bytes.
func ParseITSPHeader(buf []byte) (hdr ITSPHeader, err error) {
	defer errRecover(&err)

	if len(buf) < ITSPLen {
		return ITSPHeader{}, ErrCorrupt
	}
	d := wire.NewDecoder(buf)

	var sig [4]byte
	copy(sig[:], d.Bytes(4))
	if sig != itspMarker {
		return ITSPHeader{}, ErrCorrupt
	}

	hdr.Version = d.Int32()
	if hdr.Version != 1 {
		return ITSPHeader{}, ErrCorrupt
	}
	hdr.HeaderLen = d.Int32()
	if hdr.HeaderLen != ITSPLen {
		return ITSPHeader{}, ErrCorrupt
	}
	d.Skip(4) // unknown_000c
	hdr.BlockLen = d.Uint32()
	if hdr.BlockLen == 0 {
		return ITSPHeader{}, ErrCorrupt
	}
	hdr.BlockIdxIntvl = d.Int32()
	hdr.IndexDepth = d.Int32()
	hdr.IndexRoot = d.Int32()
	hdr.IndexHead = d.Int32()
	d.Skip(4) // unknown_0024
	hdr.NumBlocks = d.Uint32()
	d.Skip(4) // unknown_002c
	hdr.LangID = d.Uint32()
	copy(hdr.SystemUUID[:], d.Bytes(16))
	d.Skip(16) // unknown_0044

	if err = d.Err(); err != nil {
		return ITSPHeader{}, err
	}
	return hdr, nil
}

// RootPage returns the page to begin a directory walk from: the PMGI root,
// falling back to the PMGL head when the tree has no internal level.
func (h ITSPHeader) RootPage() int32 {
	if h.IndexRoot < 0 {
		return h.IndexHead
	}
	return h.IndexRoot
}
