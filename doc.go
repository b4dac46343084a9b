// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package chm reads Microsoft Compiled HTML Help (CHM) archives: containers
// built on the ITSS format that store a flat namespace of named entries,
// some stored verbatim and some packed together as LZX-compressed blocks.
//
// A typical session opens an archive from anything satisfying io.ReaderAt,
// resolves or enumerates entries, and reads ranges of bytes out of them:
//
//	a, err := chm.Open(r, chm.OpenOptions{})
//	if err != nil {
//		// handle error
//	}
//	defer a.Close()
//
//	e, ok := a.Resolve("/index.html")
//	if !ok {
//		// entry not present
//	}
//	buf := make([]byte, e.Length)
//	n, err := a.Retrieve(e, buf, 0)
//
// An Archive is safe for use from exactly one goroutine at a time: every
// read may mutate its shared LZX decoder state and block cache.
package chm
