// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package lzx

// Position slots encode a match offset as (slot, footer bits): the slot
// selects a base offset and a count of literal "footer" bits that follow in
// the bitstream and are added to the base. The table is universal across
// window sizes; only the number of slots actually reachable depends on the
// negotiated window (numPositionSlots below).
const maxPositionSlots = 51

var footerBits [maxPositionSlots]byte
var positionBase [maxPositionSlots]uint32

func init() {
	for i := range footerBits {
		switch {
		case i < 4:
			footerBits[i] = 0
		default:
			fb := i/2 - 1
			if fb > 17 {
				fb = 17
			}
			footerBits[i] = byte(fb)
		}
	}
	var base uint32
	for i := range positionBase {
		positionBase[i] = base
		base += 1 << footerBits[i]
	}
}

// numPositionSlots reports how many position slots are valid for a window of
// the given order (log2 of the window size in bytes), per the LZX format's
// fixed per-window-size table.
func numPositionSlots(windowBits uint) (int, error) {
	switch windowBits {
	case 15:
		return 30, nil
	case 16:
		return 32, nil
	case 17:
		return 34, nil
	case 18:
		return 36, nil
	case 19:
		return 38, nil
	case 20:
		return 42, nil
	case 21:
		return 50, nil
	default:
		return 0, ErrWindow
	}
}

// mainTreeSize reports the number of symbols in the main Huffman tree: 256
// literal bytes plus 8 match-length/position-slot combinations per slot.
func mainTreeSize(numSlots int) int {
	return numChars + numSlots*(numPrimaryLens+1)
}
