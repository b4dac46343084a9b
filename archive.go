// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package chm

import (
	"io"

	"github.com/chmgo/chm/internal/format"
	"github.com/chmgo/chm/internal/lzx"
)

// Source is the byte-addressable storage an Archive reads from. Any
// *os.File, *bytes.Reader, or *io.SectionReader already satisfies it.
type Source = io.ReaderAt

// DefaultCacheSize is the block-cache capacity a freshly opened Archive
// starts with, matching the reference library's default.
const DefaultCacheSize = 5

// MaxCacheSize is the largest cache capacity SetCacheSize accepts.
const MaxCacheSize = 128

// OpenOptions configures Open. The zero value selects the defaults.
type OpenOptions struct {
	// CacheSize sets the initial block-cache capacity (see SetCacheSize).
	// Zero selects DefaultCacheSize.
	CacheSize int
}

// Archive is an open handle to a CHM file. It is not safe for concurrent
// use by multiple goroutines: every operation reads and may mutate the
// decompressor state and block cache.
type Archive struct {
	src Source

	itsf format.ITSFHeader
	itsp format.ITSPHeader

	rtUnit Entry // ::...ResetTable meta-unit location.
	cdUnit Entry // ::...ControlData meta-unit location.
	cnUnit Entry // ::...Content meta-unit location.

	resetTable   format.ResetTable
	resetOffsets []int64
	control      format.ControlData

	compressionEnabled bool
	resetBlockCount    uint32

	decoder   *lzx.Decoder
	lastBlock int64 // -1 when no block has been decoded yet.

	cache *blockCache

	entriesCached []Entry
	closed        bool
}

const (
	resetTablePath   = "::DataSpace/Storage/MSCompressed/Transform/{7FC28940-9D31-11D0-9B27-00A0C91E9C7C}/InstanceData/ResetTable"
	controlDataPath  = "::DataSpace/Storage/MSCompressed/ControlData"
	contentPath      = "::DataSpace/Storage/MSCompressed/Content"
)

// Open parses the ITSF/ITSP header chain and prepares an Archive for
// lookups and reads. If the LZX control parameters cannot be validated,
// Open still succeeds but compressed-entry reads will return zero bytes
// (see Retrieve); this matches the reference library's fail-open behavior
// for the uncompressed section.
func Open(src Source, opts OpenOptions) (a *Archive, err error) {
	defer errRecover(&err)

	cacheSize := opts.CacheSize
	if cacheSize == 0 {
		cacheSize = DefaultCacheSize
	}

	a = &Archive{src: src, lastBlock: -1, cache: newBlockCache(cacheSize)}

	hdr := make([]byte, format.ITSFLenV3)
	n, rerr := src.ReadAt(hdr, 0)
	if rerr != nil && rerr != io.EOF {
		return nil, rerr
	}
	itsf, perr := format.ParseITSFHeader(hdr[:n])
	if perr != nil {
		return nil, ErrCorrupt
	}
	a.itsf = itsf

	itspBuf := make([]byte, format.ITSPLen)
	if _, rerr := src.ReadAt(itspBuf, itsf.DirOffset); rerr != nil {
		return nil, rerr
	}
	itsp, perr := format.ParseITSPHeader(itspBuf)
	if perr != nil {
		return nil, ErrCorrupt
	}
	a.itsp = itsp

	dbgprintf("opened archive: dirOffset=%d dataOffset=%d blockLen=%d", itsf.DirOffset, itsf.DataOffset, itsp.BlockLen)

	a.resolveMetaUnits()
	return a, nil
}

// resolveMetaUnits looks up the three well-known meta-units and, if all
// three resolve to uncompressed entries and their contents validate,
// enables compressed-section reads.
func (a *Archive) resolveMetaUnits() {
	rt, ok1 := a.Resolve(resetTablePath)
	cd, ok2 := a.Resolve(controlDataPath)
	cn, ok3 := a.Resolve(contentPath)
	if !ok1 || !ok2 || !ok3 {
		dbgprintf("compression disabled: a meta-unit did not resolve")
		return
	}
	if rt.Section != SectionUncompressed || cd.Section != SectionUncompressed || cn.Section != SectionUncompressed {
		dbgprintf("compression disabled: a meta-unit is itself compressed")
		return
	}
	a.rtUnit, a.cdUnit, a.cnUnit = rt, cd, cn

	cdBuf := make([]byte, a.cdUnit.Length)
	if _, err := a.src.ReadAt(cdBuf, a.itsf.DataOffset+a.cdUnit.Start); err != nil {
		dbgprintf("compression disabled: reading control data: %v", err)
		return
	}
	control, err := format.ParseControlData(cdBuf)
	if err != nil {
		dbgprintf("compression disabled: parsing control data: %v", err)
		return
	}

	rtBuf := make([]byte, a.rtUnit.Length)
	if _, err := a.src.ReadAt(rtBuf, a.itsf.DataOffset+a.rtUnit.Start); err != nil {
		dbgprintf("compression disabled: reading reset table: %v", err)
		return
	}
	resetTable, err := format.ParseResetTable(rtBuf[:format.ResetTableLen])
	if err != nil {
		dbgprintf("compression disabled: parsing reset table: %v", err)
		return
	}
	offsets, err := format.ParseResetTableOffsets(rtBuf, resetTable)
	if err != nil {
		dbgprintf("compression disabled: parsing reset table offsets: %v", err)
		return
	}

	a.control = control
	a.resetTable = resetTable
	a.resetOffsets = offsets
	a.resetBlockCount = control.ResetBlockCount()
	a.compressionEnabled = true
}

// Close releases resources held by the Archive. A Source given to Open is
// never closed by this package; the caller retains ownership.
func (a *Archive) Close() error {
	a.closed = true
	a.decoder = nil
	a.cache = nil
	return nil
}

// SetCacheSize changes the decompressed-block cache capacity. Capacities
// above MaxCacheSize are clamped.
func (a *Archive) SetCacheSize(n int) {
	if n > MaxCacheSize {
		n = MaxCacheSize
	}
	if n < 1 {
		n = 1
	}
	a.cache.resize(n)
}

// Entries parses the entire directory up front and returns it, memoizing
// the result: repeat calls return the same slice, matching the reference
// library's parse-all-entries mode.
func (a *Archive) Entries() ([]Entry, error) {
	if a.entriesCached != nil {
		return a.entriesCached, nil
	}
	var out []Entry
	err := a.Enumerate(EnumerateAll, func(e Entry) EnumResult {
		out = append(out, e)
		return EnumContinue
	})
	if err != nil {
		return nil, err
	}
	a.entriesCached = out
	return out, nil
}

func (a *Archive) readPage(page int32) ([]byte, error) {
	buf := make([]byte, a.itsp.BlockLen)
	off := a.itsf.DirOffset + int64(a.itsp.HeaderLen) + int64(page)*int64(a.itsp.BlockLen)
	if _, err := a.src.ReadAt(buf, off); err != nil {
		return nil, err
	}
	return buf, nil
}
