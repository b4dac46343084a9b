// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package chm

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/chmgo/chm/internal/format"
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

// buildArchive assembles a minimal, entirely uncompressed CHM-shaped buffer:
// an ITSF v3 header, a single-page ITSP directory holding the given
// entries, and their content laid out back to back in the data section.
func buildArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	const blockLen = 512
	var names []string
	for name := range entries {
		names = append(names, name)
	}
	// Directory order must be case-fold sorted for PMGI/PMGL lookups to
	// behave like a real archive; this fixture only ever holds a single
	// leaf page, so insertion order does not otherwise matter.
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if format.CompareFold(names[j], names[i]) < 0 {
				names[i], names[j] = names[j], names[i]
			}
		}
	}

	var content []byte
	offsets := make(map[string]int64)
	for _, name := range names {
		offsets[name] = int64(len(content))
		content = append(content, entries[name]...)
	}

	var body []byte
	for _, name := range names {
		body = wire.PutCword(body, uint64(len(name)))
		body = append(body, name...)
		body = wire.PutCword(body, 0) // SectionUncompressed
		body = wire.PutCword(body, uint64(offsets[name]))
		body = wire.PutCword(body, uint64(len(entries[name])))
	}
	if len(body)+format.PMGLLen > blockLen {
		t.Fatalf("fixture entries too large for one page")
	}
	page := make([]byte, blockLen)
	hdr := []byte{'P', 'M', 'G', 'L'}
	hdr = putU32(hdr, uint32(blockLen-format.PMGLLen-len(body)))
	hdr = putU32(hdr, 0)                  // unknown_0008
	hdr = putU32(hdr, uint32(0xFFFFFFFF)) // block_prev = -1
	hdr = putU32(hdr, uint32(0xFFFFFFFF)) // block_next = -1
	copy(page, hdr)
	copy(page[format.PMGLLen:], body)

	var itsp []byte
	itsp = append(itsp, 'I', 'T', 'S', 'P')
	itsp = putU32(itsp, 1)                     // version
	itsp = putU32(itsp, uint32(format.ITSPLen)) // header_len
	itsp = putU32(itsp, 0)                      // unknown
	itsp = putU32(itsp, blockLen)
	itsp = putU32(itsp, 2)          // blockidx_intvl
	itsp = putU32(itsp, 1)          // index_depth: leaves only
	itsp = putU32(itsp, 0xFFFFFFFF) // index_root = -1
	itsp = putU32(itsp, 0)          // index_head = page 0
	itsp = putU32(itsp, 0)          // unknown
	itsp = putU32(itsp, 1)          // num_blocks
	itsp = putU32(itsp, 0)          // unknown
	itsp = putU32(itsp, 0x409)      // lang_id
	itsp = append(itsp, make([]byte, 32)...)

	dirOffset := int64(format.ITSFLenV3)
	dirLen := int64(len(itsp) + len(page))
	dataOffset := dirOffset + dirLen

	var itsf []byte
	itsf = append(itsf, 'I', 'T', 'S', 'F')
	itsf = putU32(itsf, 3)                     // version
	itsf = putU32(itsf, uint32(format.ITSFLenV3))
	itsf = putU32(itsf, 0) // unknown
	itsf = putU32(itsf, 0) // last_modified
	itsf = putU32(itsf, 0x409)
	itsf = append(itsf, make([]byte, 32)...) // dir_uuid + stream_uuid
	itsf = putI64(itsf, 0)
	itsf = putI64(itsf, 0)
	itsf = putI64(itsf, dirOffset)
	itsf = putI64(itsf, dirLen)
	itsf = putI64(itsf, dataOffset)

	var out []byte
	out = append(out, itsf...)
	out = append(out, itsp...)
	out = append(out, page...)
	out = append(out, content...)
	return out
}

func TestOpenResolveEnumerateRetrieve(t *testing.T) {
	entries := map[string]string{
		"/index.html": "<html>hello</html>",
		"/about.html": "<html>about us</html>",
		"/#SYSTEM":    "\x00\x01",
	}
	buf := buildArchive(t, entries)

	a, err := Open(bytes.NewReader(buf), OpenOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	e, ok := a.Resolve("/INDEX.HTML")
	if !ok {
		t.Fatalf("Resolve: case-insensitive lookup failed")
	}
	got := make([]byte, e.Length)
	n, err := a.Retrieve(e, got, 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if string(got[:n]) != entries["/index.html"] {
		t.Fatalf("Retrieve content = %q, want %q", got[:n], entries["/index.html"])
	}

	if _, ok := a.Resolve("/missing.html"); ok {
		t.Fatalf("Resolve matched a nonexistent path")
	}

	var seen []string
	if err := a.Enumerate(EnumerateAll, func(e Entry) EnumResult {
		seen = append(seen, e.Path)
		return EnumContinue
	}); err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(seen) != len(entries) {
		t.Fatalf("Enumerate visited %d entries, want %d: %v", len(seen), len(entries), seen)
	}

	all, err := a.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(all) != len(entries) {
		t.Fatalf("Entries returned %d, want %d", len(all), len(entries))
	}
	// Entries is memoized: a second call must return the same count without
	// re-walking the directory.
	all2, err := a.Entries()
	if err != nil {
		t.Fatalf("Entries (second call): %v", err)
	}
	if len(all2) != len(all) {
		t.Fatalf("Entries not stable across calls")
	}
}

func TestRetrievePartialRead(t *testing.T) {
	entries := map[string]string{"/index.html": "0123456789"}
	buf := buildArchive(t, entries)

	a, err := Open(bytes.NewReader(buf), OpenOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	e, ok := a.Resolve("/index.html")
	if !ok {
		t.Fatalf("Resolve failed")
	}

	small := make([]byte, 4)
	n, err := a.Retrieve(e, small, 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if string(small[:n]) != "3456" {
		t.Fatalf("Retrieve(addr=3) = %q, want %q", small[:n], "3456")
	}

	tail := make([]byte, 10)
	n, err = a.Retrieve(e, tail, 8)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if string(tail[:n]) != "89" {
		t.Fatalf("Retrieve(addr=8) = %q, want %q", tail[:n], "89")
	}
}

func TestFlagsFromPath(t *testing.T) {
	cases := []struct {
		path string
		want Flag
	}{
		{"/index.html", FlagNormal | FlagFile},
		{"/docs/", FlagNormal | FlagDir},
		{"/#SYSTEM", FlagSpecial | FlagFile},
		{"/$WWKeywordLinks/", FlagSpecial | FlagDir},
		{"::DataSpace/NameList", FlagMeta | FlagFile},
	}
	for _, c := range cases {
		if got := flagsFromPath(c.path); got != c.want {
			t.Errorf("flagsFromPath(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}
