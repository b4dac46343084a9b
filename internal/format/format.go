// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package format decodes the ITSF/ITSP header chain and the directory index
// pages (PMGL/PMGI) of a CHM archive, along with the LZX reset table and
// control-data records that describe the compressed content section.
package format

import "runtime"

// Error is the wrapper type for errors specific to this package.
type Error string

func (e Error) Error() string { return "chm/format: " + string(e) }

// ErrCorrupt reports that a header failed a structural validation check.
var ErrCorrupt = Error("archive header is corrupt")

// errRecover is installed via defer in every exported parse function so that
// a panic carrying an error value turns into an ordinary error return. A
// wire.Decoder running past the end of its buffer does not panic: it records
// wire.ErrUnexpectedEOF, which the parsers check through Err.
func errRecover(err *error) {
	switch ex := recover().(type) {
	case nil:
		// Do nothing.
	case runtime.Error:
		panic(ex)
	case error:
		*err = ex
	default:
		panic(ex)
	}
}

const (
	// ITSFLenV2 is the header length of an ITSF version 2 header.
	ITSFLenV2 = 0x58
	// ITSFLenV3 is the header length of an ITSF version 3 header.
	ITSFLenV3 = 0x60

	// ITSPLen is the fixed length of an ITSP header.
	ITSPLen = 0x54

	// PMGLLen is the fixed length of a PMGL page header.
	PMGLLen = 0x14
	// PMGILen is the fixed length of a PMGI page header.
	PMGILen = 0x08

	// ResetTableLen is the fixed length of an LZXC reset table.
	ResetTableLen = 0x28

	// ControlDataMinLen is the minimum length of an LZXC control-data record.
	ControlDataMinLen = 0x18
	// ControlDataV2Len is the length of a version-2 LZXC control-data record.
	ControlDataV2Len = 0x1c
)
