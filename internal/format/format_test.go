// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package format

import (
	"encoding/binary"
	"testing"

	"github.com/chmgo/chm/internal/wire"
)

func putU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func putI64(buf []byte, v int64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	return append(buf, b[:]...)
}

func buildITSFv3(dirOffset, dirLen, dataOffset int64) []byte {
	var b []byte
	b = append(b, 'I', 'T', 'S', 'F')
	b = putU32(b, 3)          // version
	b = putU32(b, ITSFLenV3)  // header_len
	b = putU32(b, 0)          // unknown_000c
	b = putU32(b, 0)          // last_modified
	b = putU32(b, 0x409)      // lang_id
	b = append(b, make([]byte, 32)...) // dir_uuid + stream_uuid
	b = putI64(b, 0)          // unknown_offset
	b = putI64(b, 0)          // unknown_len
	b = putI64(b, dirOffset)
	b = putI64(b, dirLen)
	b = putI64(b, dataOffset)
	return b
}

func TestParseITSFHeader(t *testing.T) {
	buf := buildITSFv3(0x60, 0x1000, 0x1060)
	hdr, err := ParseITSFHeader(buf)
	if err != nil {
		t.Fatalf("ParseITSFHeader: %v", err)
	}
	if hdr.DirOffset != 0x60 || hdr.DirLen != 0x1000 || hdr.DataOffset != 0x1060 {
		t.Fatalf("unexpected header: %+v", hdr)
	}
}

func TestParseITSFHeaderBadSignature(t *testing.T) {
	buf := buildITSFv3(0x60, 0x1000, 0x1060)
	buf[0] = 'X'
	if _, err := ParseITSFHeader(buf); err == nil {
		t.Fatalf("expected error for bad signature")
	}
}

func TestParseITSFHeaderTruncated(t *testing.T) {
	buf := buildITSFv3(0x60, 0x1000, 0x1060)
	if _, err := ParseITSFHeader(buf[:0x50]); err == nil {
		t.Fatalf("expected error for truncated header")
	}
}

func buildITSP(blockLen uint32, indexRoot, indexHead int32, numBlocks uint32) []byte {
	var b []byte
	b = append(b, 'I', 'T', 'S', 'P')
	b = putU32(b, 1)         // version
	b = putU32(b, ITSPLen)   // header_len
	b = putU32(b, 0)         // unknown_000c
	b = putU32(b, blockLen)
	b = putU32(b, 2)                  // blockidx_intvl
	b = putU32(b, 1)                  // index_depth
	b = putU32(b, uint32(indexRoot))
	b = putU32(b, uint32(indexHead))
	b = putU32(b, 0) // unknown_0024
	b = putU32(b, numBlocks)
	b = putU32(b, 0)    // unknown_002c
	b = putU32(b, 0x409) // lang_id
	b = append(b, make([]byte, 32)...) // system_uuid + unknown_0044
	return b
}

func TestParseITSPHeader(t *testing.T) {
	buf := buildITSP(4096, -1, 0, 1)
	hdr, err := ParseITSPHeader(buf)
	if err != nil {
		t.Fatalf("ParseITSPHeader: %v", err)
	}
	if hdr.BlockLen != 4096 || hdr.RootPage() != 0 {
		t.Fatalf("unexpected header: %+v", hdr)
	}
}

// buildPMGLEntry appends one directory entry record in cword-encoded form.
func buildPMGLEntry(buf []byte, path string, section int, start, length int64) []byte {
	buf = wire.PutCword(buf, uint64(len(path)))
	buf = append(buf, path...)
	buf = wire.PutCword(buf, uint64(section))
	buf = wire.PutCword(buf, uint64(start))
	buf = wire.PutCword(buf, uint64(length))
	return buf
}

func buildPMGLPage(blockLen uint32, prev, next int32, entries func([]byte) []byte) []byte {
	body := entries(nil)
	page := make([]byte, blockLen)
	free := int(blockLen) - PMGLLen - len(body)
	hdr := []byte{'P', 'M', 'G', 'L'}
	hdr = putU32(hdr, uint32(free))
	hdr = append(hdr, byteOf(0)...) // unknown_0008
	hdr = append(hdr, byteOf(prev)...)
	hdr = append(hdr, byteOf(next)...)
	copy(page, hdr)
	copy(page[PMGLLen:], body)
	return page
}

func byteOf(v int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

func TestWalkAndFindPMGL(t *testing.T) {
	const blockLen = 256
	page := buildPMGLPage(blockLen, -1, -1, func(b []byte) []byte {
		b = buildPMGLEntry(b, "/", 0, 0, 0)
		b = buildPMGLEntry(b, "/index.html", 1, 0, 1234)
		b = buildPMGLEntry(b, "/#SYSTEM", 0, 100, 50)
		return b
	})

	var got []DirEntry
	if err := WalkPMGL(page, blockLen, func(e DirEntry) bool {
		got = append(got, e)
		return true
	}); err != nil {
		t.Fatalf("WalkPMGL: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3: %+v", len(got), got)
	}

	e, ok, err := FindPMGL(page, blockLen, "/INDEX.HTML")
	if err != nil || !ok {
		t.Fatalf("FindPMGL case-insensitive match failed: ok=%v err=%v", ok, err)
	}
	if e.Length != 1234 || e.Section != 1 {
		t.Fatalf("unexpected match: %+v", e)
	}

	if _, ok, err := FindPMGL(page, blockLen, "/nope"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}

func TestParseResetTableAndOffsets(t *testing.T) {
	var rtBuf []byte
	rtBuf = putU32(rtBuf, 2)            // version
	rtBuf = putU32(rtBuf, 3)            // block_count
	rtBuf = putU32(rtBuf, 0)            // unknown
	rtBuf = putU32(rtBuf, ResetTableLen) // table_offset
	rtBuf = putI64(rtBuf, 3*32768)       // uncompressed_len
	rtBuf = putI64(rtBuf, 9000)          // compressed_len
	rtBuf = putI64(rtBuf, 32768)         // block_len

	rt, err := ParseResetTable(rtBuf)
	if err != nil {
		t.Fatalf("ParseResetTable: %v", err)
	}
	if rt.BlockCount != 3 {
		t.Fatalf("unexpected block count: %d", rt.BlockCount)
	}

	full := append(append([]byte{}, rtBuf...), mkOffsets(0, 3000, 6000)...)
	offsets, err := ParseResetTableOffsets(full, rt)
	if err != nil {
		t.Fatalf("ParseResetTableOffsets: %v", err)
	}
	if len(offsets) != 3 {
		t.Fatalf("got %d offsets, want 3", len(offsets))
	}

	start, end, ok := BlockBounds(offsets, rt.CompressedLen, 1)
	if !ok || start != 3000 || end != 6000 {
		t.Fatalf("unexpected bounds for block 1: start=%d end=%d ok=%v", start, end, ok)
	}
	start, end, ok = BlockBounds(offsets, rt.CompressedLen, 2)
	if !ok || start != 6000 || end != 9000 {
		t.Fatalf("unexpected bounds for final block: start=%d end=%d ok=%v", start, end, ok)
	}
}

func mkOffsets(vs ...int64) []byte {
	var b []byte
	for _, v := range vs {
		b = putI64(b, v)
	}
	return b
}

func TestParseControlDataVersion2Scaling(t *testing.T) {
	var b []byte
	b = putU32(b, ControlDataV2Len) // size
	b = append(b, 'L', 'Z', 'X', 'C')
	b = putU32(b, 2) // version
	b = putU32(b, 2) // resetInterval (pre-scale)
	b = putU32(b, 2) // windowSize (pre-scale)
	b = putU32(b, 1) // windowsPerReset
	b = putU32(b, 0) // unknown_18

	cd, err := ParseControlData(b)
	if err != nil {
		t.Fatalf("ParseControlData: %v", err)
	}
	if cd.WindowSize != 2*0x8000 || cd.ResetInterval != 2*0x8000 {
		t.Fatalf("version-2 scaling not applied: %+v", cd)
	}
	if got := cd.ResetBlockCount(); got != 2 {
		t.Fatalf("ResetBlockCount = %d, want 2", got)
	}
}

func TestParseControlDataRejectsBadResetInterval(t *testing.T) {
	var b []byte
	b = putU32(b, ControlDataMinLen)
	b = append(b, 'L', 'Z', 'X', 'C')
	b = putU32(b, 1)     // version (no scaling)
	b = putU32(b, 3)     // resetInterval not a multiple of windowSize/2
	b = putU32(b, 0x8000)
	b = putU32(b, 1)

	if _, err := ParseControlData(b); err == nil {
		t.Fatalf("expected error for non-multiple resetInterval")
	}
}

func TestCwordRoundTrip(t *testing.T) {
	vals := []uint64{0, 1, 127, 128, 16383, 16384, 1 << 30, 1<<40 + 7}
	for _, v := range vals {
		enc := wire.PutCword(nil, v)
		d := wire.NewDecoder(enc)
		got := d.Cword()
		if d.Err() != nil {
			t.Fatalf("decode error for %d: %v", v, d.Err())
		}
		if got != v {
			t.Fatalf("round trip mismatch: got %d, want %d", got, v)
		}
		if len(enc) != wire.CwordSize(v) {
			t.Fatalf("CwordSize(%d) = %d, actual encoding %d bytes", v, wire.CwordSize(v), len(enc))
		}
	}
}

func TestEqualFoldIsASCIIOnly(t *testing.T) {
	if !EqualFold("/Index.HTML", "/INDEX.html") {
		t.Fatalf("expected ASCII-fold match")
	}
	if EqualFold("/index.html", "/index.htm") {
		t.Fatalf("unexpected match of different lengths")
	}
	if EqualFold("/é", "/É") {
		t.Fatalf("unexpected match under non-ASCII case folding")
	}
}

func TestPMGIFind(t *testing.T) {
	const blockLen = 128
	var body []byte
	body = wire.PutCword(body, uint64(len("/a")))
	body = append(body, "/a"...)
	body = wire.PutCword(body, 1) // child page 1
	body = wire.PutCword(body, uint64(len("/m")))
	body = append(body, "/m"...)
	body = wire.PutCword(body, 2) // child page 2

	page := make([]byte, blockLen)
	hdr := []byte{'P', 'M', 'G', 'I'}
	hdr = putU32(hdr, uint32(int(blockLen)-PMGILen-len(body)))
	copy(page, hdr)
	copy(page[PMGILen:], body)

	child, ok, err := FindPMGI(page, blockLen, "/b")
	if err != nil || !ok || child != 1 {
		t.Fatalf("FindPMGI(/b) = %d, %v, %v; want 1, true, nil", child, ok, err)
	}
	child, ok, err = FindPMGI(page, blockLen, "/z")
	if err != nil || !ok || child != 2 {
		t.Fatalf("FindPMGI(/z) = %d, %v, %v; want 2, true, nil", child, ok, err)
	}
	_, ok, err = FindPMGI(page, blockLen, "/0")
	if err != nil || ok {
		t.Fatalf("FindPMGI(/0) should miss: ok=%v err=%v", ok, err)
	}
}
