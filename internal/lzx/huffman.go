// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package lzx

// huffTable is a canonical-Huffman decode table built from a per-symbol
// code-length array. Lookups are done by priming the bit reader with
// maxLen bits and indexing a flat table of all 2^maxLen possible prefixes;
// shorter codes are replicated across every suffix that extends them.
type huffTable struct {
	maxLen int
	// Each entry packs (symbol<<5 | length); an entry with length 0 means
	// "no code of this prefix" (only possible for a partially-filled,
	// otherwise-empty tree, which is itself a corrupt stream for any
	// alphabet this package decodes).
	table []uint32
}

func buildHuffTable(lens []byte, maxLen int) (*huffTable, error) {
	const maxSupportedLen = 16
	if maxLen <= 0 || maxLen > maxSupportedLen {
		return nil, ErrCorrupt
	}

	var countPerLen [maxSupportedLen + 1]int
	for _, l := range lens {
		if int(l) > maxLen {
			return nil, ErrCorrupt
		}
		countPerLen[l]++
	}
	countPerLen[0] = 0

	var firstCode [maxSupportedLen + 2]uint32
	var code uint32
	for l := 1; l <= maxLen; l++ {
		firstCode[l] = code
		code = (code + uint32(countPerLen[l])) << 1
	}

	h := &huffTable{maxLen: maxLen, table: make([]uint32, 1<<uint(maxLen))}
	next := firstCode
	for sym, l := range lens {
		if l == 0 {
			continue
		}
		c := next[l]
		next[l]++
		entry := uint32(sym)<<5 | uint32(l)
		shift := uint(maxLen) - uint(l)
		base := c << shift
		for suffix := uint32(0); suffix < 1<<shift; suffix++ {
			h.table[base+suffix] = entry
		}
	}
	return h, nil
}

// decode reads the next symbol from r using h.
func (h *huffTable) decode(r *bitReader) uint32 {
	v := r.peekBits(uint(h.maxLen))
	entry := h.table[v]
	l := entry & 0x1f
	if l == 0 {
		panic(ErrCorrupt)
	}
	r.discard(uint(l))
	return entry >> 5
}

// mod17 applies the LZX pretree's length-delta convention: the new code
// length is (previous - delta) taken modulo 17, since lengths are bounded
// to [0,16] and 17 values are needed to represent every signed delta.
func mod17(v int) byte {
	v %= 17
	if v < 0 {
		v += 17
	}
	return byte(v)
}

// readLengths decodes n code lengths using the pretree-coded delta scheme
// shared by LZX's main and length trees (the aligned-offset tree's lengths
// are plain 3-bit fields, read in readTrees): a 20-symbol
// pretree Huffman-codes each per-symbol delta, with three escape symbols
// (17, 18, 19) for runs of zeros and short repeats of the previous length.
func readLengths(r *bitReader, pre *huffTable, lens []byte, n int) error {
	x := 0
	for x < n {
		sym := pre.decode(r)
		switch sym {
		case 17:
			run := int(r.readBits(4)) + 4
			for i := 0; i < run && x < n; i++ {
				lens[x] = 0
				x++
			}
		case 18:
			run := int(r.readBits(5)) + 20
			for i := 0; i < run && x < n; i++ {
				lens[x] = 0
				x++
			}
		case 19:
			run := int(r.readBits(1)) + 4
			delta := pre.decode(r)
			v := mod17(int(lens[x]) - int(delta))
			for i := 0; i < run && x < n; i++ {
				lens[x] = v
				x++
			}
		default:
			if sym > 16 {
				return ErrCorrupt
			}
			lens[x] = mod17(int(lens[x]) - int(sym))
			x++
		}
	}
	return nil
}

// readPretree decodes the 20 four-bit pretree code lengths and builds the
// pretree's own decode table.
func readPretree(r *bitReader) (*huffTable, error) {
	var lens [numPretreeSyms]byte
	for i := range lens {
		lens[i] = byte(r.readBits(4))
	}
	return buildHuffTable(lens[:], preTreeMaxLen)
}
