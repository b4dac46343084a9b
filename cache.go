// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package chm

import (
	"github.com/chmgo/chm/internal/format"
	"github.com/chmgo/chm/internal/lzx"
)

func newLZXDecoder(windowBits uint) (*lzx.Decoder, error) {
	return lzx.NewDecoder(windowBits)
}

// cacheSlot is one direct-mapped cache line.
type cacheSlot struct {
	valid bool
	index int
	data  []byte
}

// blockCache is a fixed-capacity, direct-mapped cache of decompressed LZX
// blocks, keyed by block index modulo the slot count. It holds no LRU
// ordering: storing a block evicts whatever block occupied its slot.
type blockCache struct {
	slots []cacheSlot
}

func newBlockCache(n int) *blockCache {
	if n < 1 {
		n = 1
	}
	return &blockCache{slots: make([]cacheSlot, n)}
}

// resize changes the cache's slot count, re-hashing every currently valid
// entry into the new modulus rather than discarding the cache outright. A
// collision under the new modulus discards the newcomer and keeps the block
// already placed in that slot.
func (c *blockCache) resize(n int) {
	if n < 1 {
		n = 1
	}
	old := c.slots
	c.slots = make([]cacheSlot, n)
	for _, s := range old {
		if !s.valid {
			continue
		}
		if t := &c.slots[s.index%n]; !t.valid {
			*t = s
		}
	}
}

func (c *blockCache) get(index int) ([]byte, bool) {
	s := &c.slots[index%len(c.slots)]
	if s.valid && s.index == index {
		return s.data, true
	}
	return nil, false
}

// put stores data for index, evicting any different block that occupied
// the slot.
func (c *blockCache) put(index int, data []byte) {
	s := &c.slots[index%len(c.slots)]
	s.valid = true
	s.index = index
	s.data = data
}

// decompressedBlock returns the fully decompressed bytes of reset-table
// block i, decoding it (and, if necessary, replaying every block since the
// start of its reset interval to rebuild the decoder's entropy-coding
// state) on a cache miss.
func (a *Archive) decompressedBlock(i int) ([]byte, error) {
	if data, ok := a.cache.get(i); ok {
		return data, nil
	}

	resetBlocks := a.resetBlockSpan()
	resetStart := i - i%resetBlocks

	start := resetStart
	if a.lastBlock >= int64(resetStart) && a.lastBlock < int64(i) {
		start = int(a.lastBlock) + 1
	}

	var data []byte
	for b := start; b <= i; b++ {
		buf, err := a.decodeBlock(b)
		if err != nil {
			return nil, err
		}
		a.cache.put(b, buf)
		a.lastBlock = int64(b)
		data = buf
	}
	return data, nil
}

// resetBlockSpan is the number of reset-table blocks per LZX reset
// interval, never less than 1.
func (a *Archive) resetBlockSpan() int {
	n := int(a.resetBlockCount)
	if n < 1 {
		n = 1
	}
	return n
}

// decodeBlock reads block i's compressed bytes from the content meta-unit
// and runs them through the LZX decoder, without consulting or updating
// the cache. The decoder's entropy-coding state is reset whenever i opens a
// new reset interval, whether or not the caller has replayed forward from
// the interval's first block.
func (a *Archive) decodeBlock(i int) ([]byte, error) {
	if i%a.resetBlockSpan() == 0 {
		a.decoder.Reset()
	}

	cstart, cend, ok := format.BlockBounds(a.resetOffsets, a.resetTable.CompressedLen, i)
	if !ok {
		return nil, ErrCorrupt
	}

	uLen := a.resetTable.BlockLen
	if remain := a.resetTable.UncompressedLen - int64(i)*a.resetTable.BlockLen; remain < uLen {
		uLen = remain
	}
	if uLen <= 0 {
		return nil, ErrCorrupt
	}

	src := make([]byte, cend-cstart)
	if _, err := a.src.ReadAt(src, a.itsf.DataOffset+a.cnUnit.Start+cstart); err != nil {
		return nil, err
	}

	dst := make([]byte, uLen)
	if err := a.decoder.DecompressBlock(dst, src); err != nil {
		return nil, ErrCorrupt
	}
	return dst, nil
}
