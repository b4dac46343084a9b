// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package format

import "github.com/chmgo/chm/internal/wire"

// ControlData is the LZX parameter block stored in the
// ::DataSpace/Storage/MSCompressed/ControlData meta-unit.
type ControlData struct {
	Version         uint32
	ResetInterval   uint32
	WindowSize      uint32
	WindowsPerReset uint32
}

var lzxcMarker = [4]byte{'L', 'Z', 'X', 'C'}

// ParseControlData decodes and validates an LZXC control-data record.
func ParseControlData(buf []byte) (cd ControlData, err error) {
	defer errRecover(&err)

	if len(buf) < ControlDataMinLen {
		return ControlData{}, ErrCorrupt
	}
	d := wire.NewDecoder(buf)

	d.Skip(4) // size
	var sig [4]byte
	copy(sig[:], d.Bytes(4))
	if sig != lzxcMarker {
		return ControlData{}, ErrCorrupt
	}
	cd.Version = d.Uint32()
	cd.ResetInterval = d.Uint32()
	cd.WindowSize = d.Uint32()
	cd.WindowsPerReset = d.Uint32()
	if err = d.Err(); err != nil {
		return ControlData{}, err
	}

	// The trailing unknown_18 field is never read, so a record of only
	// ControlDataMinLen bytes is accepted.

	if cd.Version == 2 {
		cd.ResetInterval *= 0x8000
		cd.WindowSize *= 0x8000
	}
	if cd.WindowSize == 0 || cd.WindowSize == 1 || cd.ResetInterval == 0 {
		return ControlData{}, ErrCorrupt
	}
	if cd.ResetInterval%(cd.WindowSize/2) != 0 {
		return ControlData{}, ErrCorrupt
	}
	return cd, nil
}

// ResetBlockCount computes the number of LZX blocks that share one decoder
// reset epoch.
func (cd ControlData) ResetBlockCount() uint32 {
	return cd.ResetInterval / (cd.WindowSize / 2) * cd.WindowsPerReset
}
