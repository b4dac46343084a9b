// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package format

import "github.com/chmgo/chm/internal/wire"

// ResetTable describes the compressed-block boundaries of the MSCompressed
// content section.
type ResetTable struct {
	BlockCount       uint32
	TableOffset      uint32
	UncompressedLen  int64
	CompressedLen    int64
	BlockLen         int64 // Uncompressed bytes per block.
}

const maxUint32 = 1<<32 - 1

// ParseResetTable decodes and validates an LZXC reset table.
func ParseResetTable(buf []byte) (rt ResetTable, err error) {
	defer errRecover(&err)

	if len(buf) != ResetTableLen {
		return ResetTable{}, ErrCorrupt
	}
	d := wire.NewDecoder(buf)

	version := d.Uint32()
	if version != 2 {
		return ResetTable{}, ErrCorrupt
	}
	rt.BlockCount = d.Uint32()
	d.Skip(4) // unknown
	rt.TableOffset = d.Uint32()
	rt.UncompressedLen = d.Int64()
	rt.CompressedLen = d.Int64()
	rt.BlockLen = d.Int64()

	if err = d.Err(); err != nil {
		return ResetTable{}, err
	}
	if rt.UncompressedLen < 0 || rt.UncompressedLen > maxUint32 {
		return ResetTable{}, ErrCorrupt
	}
	if rt.CompressedLen < 0 || rt.CompressedLen > maxUint32 {
		return ResetTable{}, ErrCorrupt
	}
	if rt.BlockLen <= 0 || rt.BlockLen > maxUint32 {
		return ResetTable{}, ErrCorrupt
	}
	return rt, nil
}

// ParseResetTableOffsets decodes the BlockCount 64-bit cumulative
// compressed-byte start offsets that follow the fixed reset-table header,
// given the full reset-table meta-unit content (header plus offset array).
// Block i's end offset is offsets[i+1] for all but the last block, which
// ends at rt.CompressedLen instead — the table stores one start per block,
// not a start/end pair.
func ParseResetTableOffsets(buf []byte, rt ResetTable) (offsets []int64, err error) {
	defer errRecover(&err)

	if int(rt.TableOffset) > len(buf) {
		return nil, ErrCorrupt
	}
	d := wire.NewDecoder(buf[rt.TableOffset:])
	offsets = make([]int64, rt.BlockCount)
	for i := range offsets {
		offsets[i] = d.Int64()
	}
	if err = d.Err(); err != nil {
		return nil, err
	}
	for _, off := range offsets {
		if off < 0 {
			return nil, ErrCorrupt
		}
	}
	return offsets, nil
}

// BlockBounds returns the [start, end) compressed-byte range of block i
// within the content section, given the decoded offset table and the
// section's total compressed length.
func BlockBounds(offsets []int64, compressedLen int64, i int) (start, end int64, ok bool) {
	if i < 0 || i >= len(offsets) {
		return 0, 0, false
	}
	start = offsets[i]
	if i == len(offsets)-1 {
		end = compressedLen
	} else {
		end = offsets[i+1]
	}
	return start, end, end >= start
}
