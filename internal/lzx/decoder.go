// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package lzx

// Decoder holds the persistent state of one LZX stream: the sliding window,
// the three most-recently-used match offsets, and the current main/length/
// aligned Huffman tables. Block boundaries in the compressed stream do not
// need to line up with the block boundaries the caller (the CHM block
// cache) decodes at; DecompressBlock carries a partially consumed LZX block
// across calls exactly as the reference decoder does.
type Decoder struct {
	windowBits uint
	numSlots   int
	window     *slidingWindow

	r0, r1, r2 uint32

	mainLens []byte // len == mainTreeSize(numSlots)
	lenLens  [numLenSyms]byte

	mainTable, lenTable, alignedTable *huffTable

	br bitReader

	// State of a partially-decoded LZX block carried across DecompressBlock
	// calls.
	haveBlock   bool
	blockType   int
	blockRemain int64 // Uncompressed bytes still owed by the current block.
	rawBlock    bool  // Current block is type blockUncompressed.

	// A match whose length ran past the end of the caller's dst on the call
	// that decoded it; its bytes are already in the window, just not yet
	// delivered to the caller.
	pendingFrom int64
	pendingLen  int64

	// Intel E8 call translation, signalled once per reset interval by the
	// first block's header.
	e8Enabled    bool
	e8HeaderRead bool
	e8Size       uint32
	streamPos    int64 // Uncompressed byte position since the last Reset, for E8.
}

// NewDecoder allocates a decoder for the given window order (log2 of the
// window size in bytes, 15..21).
func NewDecoder(windowBits uint) (*Decoder, error) {
	numSlots, err := numPositionSlots(windowBits)
	if err != nil {
		return nil, err
	}
	d := &Decoder{
		windowBits: windowBits,
		numSlots:   numSlots,
		window:     newSlidingWindow(windowBits),
		mainLens:   make([]byte, mainTreeSize(numSlots)),
	}
	d.Reset()
	return d, nil
}

// Reset reinitializes the entropy-coding state for a new reset interval:
// the LRU offset cache and all Huffman code lengths return to their initial
// values. The sliding window's content is preserved — LZX resets only the
// entropy coder, not the dictionary, so matches may still reach back across
// a reset boundary into previously decoded blocks.
func (d *Decoder) Reset() {
	d.r0, d.r1, d.r2 = 1, 1, 1
	for i := range d.mainLens {
		d.mainLens[i] = 0
	}
	for i := range d.lenLens {
		d.lenLens[i] = 0
	}
	d.mainTable, d.lenTable, d.alignedTable = nil, nil, nil
	d.haveBlock = false
	d.pendingLen = 0
	d.e8HeaderRead = false
	d.streamPos = 0
}

// DecompressBlock decodes exactly len(dst) bytes of uncompressed output from
// src, a slice holding exactly one reset-table block's worth of compressed
// bytes (see format.BlockBounds).
func (d *Decoder) DecompressBlock(dst, src []byte) (err error) {
	defer errRecover(&err)

	d.br.init(src)

	// The Intel E8 translation flag (and, if set, the translation size) is
	// signalled exactly once per reset interval, before the first block
	// header — not once per block. A reset-table block that happens to
	// start a fresh reset interval always begins at this bit.
	if !d.e8HeaderRead {
		d.e8HeaderRead = true
		if d.br.readBits(1) != 0 {
			d.e8Enabled = true
			hi := d.br.readBits(16)
			lo := d.br.readBits(16)
			d.e8Size = uint32(hi)<<16 | uint32(lo)
		} else {
			d.e8Enabled = false
			d.e8Size = e8FileSize
		}
	}

	start := d.streamPos
	var n int

	if d.pendingLen > 0 {
		take := d.pendingLen
		if take > int64(len(dst)) {
			take = int64(len(dst))
		}
		d.window.readAt(d.pendingFrom, dst[:take])
		d.pendingFrom += take
		d.pendingLen -= take
		n += int(take)
	}

	for n < len(dst) {
		if !d.haveBlock {
			d.readBlockHeader()
		}
		if d.rawBlock {
			n += d.copyRaw(dst[n:])
		} else {
			n += d.decodeSymbols(dst[n:])
		}
	}
	d.streamPos = start + int64(n)
	if d.e8Enabled {
		applyE8Filter(dst, start, d.e8Size)
	}
	return nil
}

func (d *Decoder) readBlockHeader() {
	d.blockType = int(d.br.readBits(3))
	sizeHi := d.br.readBits(16)
	sizeLo := d.br.readBits(8)
	size := int64(sizeHi)<<8 | int64(sizeLo)
	if size <= 0 {
		panic(ErrCorrupt)
	}
	d.blockRemain = size
	d.haveBlock = true

	switch d.blockType {
	case blockUncompressed:
		d.rawBlock = true
		d.br.align()
		// R0, R1, R2 are reloaded verbatim (not bit-coded) from the
		// byte-aligned stream immediately following the header.
		pos := d.br.bytePos()
		d.r0 = leUint32(src(d.br.buf, pos))
		d.r1 = leUint32(src(d.br.buf, pos+4))
		d.r2 = leUint32(src(d.br.buf, pos+8))
		d.br.skipBytes(12)
	case blockVerbatim, blockAlignedOffset:
		d.rawBlock = false
		d.readTrees(d.blockType == blockAlignedOffset)
	default:
		panic(ErrCorrupt)
	}
}

func src(buf []byte, pos int) []byte {
	if pos < 0 || pos+4 > len(buf) {
		panic(ErrCorrupt)
	}
	return buf[pos : pos+4]
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func (d *Decoder) copyRaw(dst []byte) int {
	n := int64(len(dst))
	if n > d.blockRemain {
		n = d.blockRemain
	}
	pos := d.br.pos
	if pos+int(n) > len(d.br.buf) {
		panic(ErrCorrupt)
	}
	for i := int64(0); i < n; i++ {
		b := d.br.buf[pos+int(i)]
		dst[i] = b
		d.window.putByte(b)
	}
	d.br.pos = pos + int(n)
	d.blockRemain -= n
	if d.blockRemain == 0 {
		d.haveBlock = false
	}
	return int(n)
}

func (d *Decoder) readTrees(aligned bool) {
	if aligned {
		var lens [numAlignedSyms]byte
		for i := range lens {
			lens[i] = byte(d.br.readBits(3))
		}
		t, err := buildHuffTable(lens[:], alignedTreeMaxLen)
		if err != nil {
			panic(err)
		}
		d.alignedTable = t
	} else {
		d.alignedTable = nil
	}

	// Main tree: pretree-coded in two groups, literals then match symbols.
	pre1, err := readPretree(&d.br)
	if err != nil {
		panic(err)
	}
	if err := readLengths(&d.br, pre1, d.mainLens[:numChars], numChars); err != nil {
		panic(err)
	}
	pre2, err := readPretree(&d.br)
	if err != nil {
		panic(err)
	}
	matchSyms := len(d.mainLens) - numChars
	if err := readLengths(&d.br, pre2, d.mainLens[numChars:], matchSyms); err != nil {
		panic(err)
	}
	mainTable, err := buildHuffTable(d.mainLens, mainTreeMaxLen)
	if err != nil {
		panic(err)
	}
	d.mainTable = mainTable

	pre3, err := readPretree(&d.br)
	if err != nil {
		panic(err)
	}
	if err := readLengths(&d.br, pre3, d.lenLens[:], numLenSyms); err != nil {
		panic(err)
	}
	lenTable, err := buildHuffTable(d.lenLens[:], lenTreeMaxLen)
	if err != nil {
		panic(err)
	}
	d.lenTable = lenTable
}

// decodeSymbols decodes main-tree symbols (literals and matches) until dst
// is full or the current LZX block is exhausted, whichever comes first.
func (d *Decoder) decodeSymbols(dst []byte) int {
	n := 0
	for n < len(dst) && d.blockRemain > 0 {
		sym := d.mainTable.decode(&d.br)
		if sym < numChars {
			b := byte(sym)
			d.window.putByte(b)
			dst[n] = b
			n++
			d.blockRemain--
			continue
		}

		matchSym := sym - numChars
		slot := int(matchSym) / (numPrimaryLens + 1)
		lenHeader := int(matchSym) % (numPrimaryLens + 1)

		var length int64
		if lenHeader < numPrimaryLens {
			length = int64(lenHeader) + minMatch
		} else {
			length = int64(d.lenTable.decode(&d.br)) + minMatch + numPrimaryLens
		}

		offset := d.decodeOffset(slot)

		if length > d.blockRemain {
			// A correctly encoded block never decodes a match longer than
			// the uncompressed byte count it declared.
			panic(ErrCorrupt)
		}
		room := int64(len(dst) - n)
		emit := length
		if emit > room {
			emit = room
		}
		windowPos := d.window.pos
		if err := d.window.copyMatch(int64(offset), length, dst[n:n+int(emit)]); err != nil {
			panic(err)
		}
		n += int(emit)
		d.blockRemain -= length
		if emit < length {
			// dst ran out mid-match: the remainder is already in the
			// window: remember where, and hand it to the caller on the
			// next DecompressBlock call before decoding anything new.
			d.pendingFrom = windowPos + emit
			d.pendingLen = length - emit
			if d.blockRemain == 0 {
				d.haveBlock = false
			}
			return n
		}
	}
	if d.blockRemain == 0 {
		d.haveBlock = false
	}
	return n
}

func (d *Decoder) decodeOffset(slot int) uint32 {
	switch slot {
	case 0:
		return d.r0
	case 1:
		d.r1, d.r0 = d.r0, d.r1
		return d.r0
	case 2:
		d.r2, d.r0 = d.r0, d.r2
		return d.r0
	}

	extra := footerBits[slot]
	base := positionBase[slot]

	var footer uint32
	if d.alignedTable != nil && extra >= 3 {
		verbatim := d.br.readBits(uint(extra) - 3)
		aligned := d.alignedTable.decode(&d.br)
		footer = verbatim<<3 | aligned
	} else if extra > 0 {
		footer = d.br.readBits(uint(extra))
	}
	// base+footer is the formatted offset, which is the real match
	// distance plus 2 (formatted offsets 0..2 are the repeat slots above),
	// so 2 is subtracted to get the distance.
	offset := base + footer - 2

	d.r2, d.r1, d.r0 = d.r1, d.r0, offset
	return offset
}
