// Copyright 2014 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package raster holds decoded bitmap planes and merges a page's
// layers into its final composite.
package raster

import "fmt"

// A Bitmap is one decoded raster plane: Width×Height color codes in
// row-major order. Bitmaps are never mutated after construction.
type Bitmap struct {
	Width  int
	Height int
	Pix    []byte
}

// New returns a bitmap with every pixel set to fill.
func New(width, height int, fill byte) *Bitmap {
	pix := make([]byte, width*height)
	for i := range pix {
		pix[i] = fill
	}
	return &Bitmap{Width: width, Height: height, Pix: pix}
}

// At returns the color code at (x, y).
func (b *Bitmap) At(x, y int) byte {
	return b.Pix[y*b.Width+x]
}

// Composite merges layers bottom to top into one width×height raster.
// A pixel holding the transparent code is a no-op, preserving whatever
// a lower layer placed there; any other code overwrites. With no
// layers the result is filled with the transparent code, which renders
// as the page background.
//
// Composite is a pure function: identical inputs produce byte-identical
// rasters.
func Composite(width, height int, transparent byte, layers []*Bitmap) (*Bitmap, error) {
	out := New(width, height, transparent)
	for i, l := range layers {
		if l.Width != width || l.Height != height {
			return nil, fmt.Errorf("layer %d is %dx%d, page is %dx%d", i, l.Width, l.Height, width, height)
		}
		for j, v := range l.Pix {
			if v != transparent {
				out.Pix[j] = v
			}
		}
	}
	return out, nil
}
