// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package chm

import (
	"github.com/chmgo/chm/internal/format"
)

// EnumResult tells Enumerate whether to keep walking after a callback.
type EnumResult int

const (
	// EnumContinue keeps the walk going.
	EnumContinue EnumResult = iota
	// EnumSuccess stops the walk and reports success to the caller.
	EnumSuccess
	// EnumFailure stops the walk and reports failure to the caller.
	EnumFailure
)

// Resolve looks up a single entry by its exact path. Comparison is
// ASCII-only case-insensitive, matching the directory index's own
// ordering (see internal/format's CompareFold).
func (a *Archive) Resolve(path string) (Entry, bool) {
	if a.closed || len(path) > MaxPathLen {
		return Entry{}, false
	}

	page := a.itsp.RootPage()
	for depth := a.itsp.IndexDepth; depth > 1 && page >= 0; depth-- {
		buf, err := a.readPage(page)
		if err != nil {
			return Entry{}, false
		}
		child, ok, err := format.FindPMGI(buf, a.itsp.BlockLen, path)
		if err != nil || !ok {
			return Entry{}, false
		}
		page = child
	}
	if page < 0 {
		return Entry{}, false
	}

	buf, err := a.readPage(page)
	if err != nil {
		return Entry{}, false
	}
	de, ok, err := format.FindPMGL(buf, a.itsp.BlockLen, path)
	if err != nil || !ok {
		return Entry{}, false
	}
	return toEntry(de), true
}

// Enumerate walks every directory entry whose Flags intersect mask, in
// directory order, invoking fn for each one. The walk stops as soon as fn
// returns EnumSuccess or EnumFailure; any other value continues the walk.
func (a *Archive) Enumerate(mask Flag, fn func(Entry) EnumResult) error {
	if a.closed {
		return ErrClosed
	}
	page := a.itsp.IndexHead
	for page >= 0 {
		buf, err := a.readPage(page)
		if err != nil {
			return err
		}
		hdr, err := format.ParsePMGLHeader(buf, a.itsp.BlockLen)
		if err != nil {
			return ErrCorrupt
		}

		var stop bool
		var result EnumResult
		walkErr := format.WalkPMGL(buf, a.itsp.BlockLen, func(de format.DirEntry) bool {
			e := toEntry(de)
			if e.Flags&mask == 0 {
				return true
			}
			result = fn(e)
			if result == EnumSuccess || result == EnumFailure {
				stop = true
				return false
			}
			return true
		})
		if walkErr != nil {
			return ErrCorrupt
		}
		if stop {
			if result == EnumFailure {
				return ErrCorrupt
			}
			return nil
		}
		page = hdr.BlockNext
	}
	return nil
}

func toEntry(de format.DirEntry) Entry {
	sec := SectionUncompressed
	if de.Section == 1 {
		sec = SectionCompressed
	}
	return Entry{
		Path:    de.Path,
		Section: sec,
		Start:   de.Start,
		Length:  de.Length,
		Flags:   flagsFromPath(de.Path),
	}
}
