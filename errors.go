// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package chm

import "runtime"

// Error is the wrapper type for errors specific to this library.
type Error string

func (e Error) Error() string { return "chm: " + string(e) }

var (
	// ErrCorrupt reports that the archive's header chain, directory index or
	// compressed data failed structural validation, or that an Enumerate
	// callback returned EnumFailure.
	ErrCorrupt = Error("archive is corrupt or truncated")
	// ErrClosed reports use of an Archive after Close.
	ErrClosed = Error("archive is closed")
)

// errRecover converts a panic carrying an error value (ours or an internal
// package's) into an ordinary return, the same pattern used throughout this
// library's internal codecs. A runtime.Error still propagates as a genuine
// panic — it indicates a bug, not a corrupt archive.
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
