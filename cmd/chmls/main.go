// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Command chmls lists, or extracts, entries from a CHM archive.
//
//	chmls file.chm              # list every entry
//	chmls file.chm /index.html  # print one entry's content to stdout
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/chmgo/chm"
)

func main() {
	log.SetFlags(0)
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: chmls FILE.chm [PATH]")
		os.Exit(2)
	}

	f, err := os.Open(args[0])
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	a, err := chm.Open(f, chm.OpenOptions{})
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer a.Close()

	if len(args) < 2 {
		if err := list(a); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err := extract(a, args[1]); err != nil {
		log.Fatal(err)
	}
}

func list(a *chm.Archive) error {
	return a.Enumerate(chm.EnumerateAll, func(e chm.Entry) chm.EnumResult {
		fmt.Printf("%10d  %s\n", e.Length, e.Path)
		return chm.EnumContinue
	})
}

func extract(a *chm.Archive, path string) error {
	e, ok := a.Resolve(path)
	if !ok {
		return fmt.Errorf("no such entry: %s", path)
	}
	buf := make([]byte, 32*1024)
	var addr int64
	for addr < e.Length {
		n, err := a.Retrieve(e, buf, addr)
		if n > 0 {
			if _, werr := os.Stdout.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		addr += int64(n)
		if err != nil && err != io.EOF {
			return err
		}
		if n == 0 {
			break
		}
	}
	return nil
}
