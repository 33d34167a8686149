// Copyright 2014 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rle decompresses the run-length encoded bitmap payloads of
// .note layers.
//
// A payload is a sequence of (color code, run length) tokens. The run
// length wire layout differs between firmware generations; the Scheme
// passed in selects it. Decoding is a single forward pass and either
// fills the declared raster exactly or fails for that layer.
package rle

import (
	"fmt"

	"github.com/njupg/supernote/internal/format"
)

// Decode decompresses data into a raster of exactly width×height color
// codes. It fails when the stream ends before the raster is full, when
// a run would overflow it, or when depth is not the scheme's.
func Decode(s format.Scheme, data []byte, width, height, depth int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	if depth != s.Depth {
		return nil, fmt.Errorf("unsupported bit depth %d", depth)
	}
	n := width * height
	switch s.RLE {
	case format.RLEPlain:
		return decodePlain(data, n)
	case format.RLERatta:
		return decodeRatta(data, n)
	}
	return nil, fmt.Errorf("unknown RLE scheme %d", s.RLE)
}

// emit fills out[*pos:*pos+run] with color, reporting overflow of the
// declared pixel count.
func emit(out []byte, pos *int, run int, color byte) error {
	if run > len(out)-*pos {
		return fmt.Errorf("run of %d pixels overflows raster at pixel %d of %d", run, *pos, len(out))
	}
	seg := out[*pos : *pos+run]
	for i := range seg {
		seg[i] = color
	}
	*pos += run
	return nil
}

func decodePlain(data []byte, n int) ([]byte, error) {
	out := make([]byte, n)
	pos := 0
	for i := 0; i < len(data); {
		color := data[i]
		i++
		if i >= len(data) {
			return nil, fmt.Errorf("stream truncated after color code 0x%02x", color)
		}
		b := data[i]
		i++
		run := int(b)
		if b&0x80 != 0 {
			// Continuation: accumulate 7 bits per byte, MSB first,
			// until a byte without the high bit closes the count.
			run = int(b & 0x7f)
			for {
				if i >= len(data) {
					return nil, fmt.Errorf("stream truncated inside run length")
				}
				c := data[i]
				i++
				run = run<<7 | int(c&0x7f)
				if run > n {
					return nil, fmt.Errorf("run of %d pixels overflows raster at pixel %d of %d", run, pos, n)
				}
				if c&0x80 == 0 {
					break
				}
			}
		}
		if err := emit(out, &pos, run, color); err != nil {
			return nil, err
		}
	}
	if pos != n {
		return nil, fmt.Errorf("stream ends at pixel %d of %d", pos, n)
	}
	return out, nil
}

func decodeRatta(data []byte, n int) ([]byte, error) {
	out := make([]byte, n)
	pos := 0
	var heldColor byte
	heldHi := 0 // (length&0x7f)+1 of a held token; 0 when none held
	for i := 0; i < len(data); {
		if i+1 >= len(data) {
			return nil, fmt.Errorf("stream truncated after color code 0x%02x", data[i])
		}
		color, l := data[i], data[i+1]
		i += 2
		if heldHi != 0 {
			hi := heldHi
			heldHi = 0
			if color == heldColor {
				// Fused pair: both tokens describe one long run.
				if err := emit(out, &pos, hi<<7+int(l)+1, color); err != nil {
					return nil, err
				}
				continue
			}
			if err := emit(out, &pos, hi<<7, heldColor); err != nil {
				return nil, err
			}
		}
		switch {
		case l == 0xFF:
			if err := emit(out, &pos, format.RattaLongRun, color); err != nil {
				return nil, err
			}
		case l&0x80 != 0:
			heldColor, heldHi = color, int(l&0x7f)+1
		default:
			if err := emit(out, &pos, int(l)+1, color); err != nil {
				return nil, err
			}
		}
	}
	if heldHi != 0 {
		if err := emit(out, &pos, heldHi<<7, heldColor); err != nil {
			return nil, err
		}
	}
	if pos != n {
		return nil, fmt.Errorf("stream ends at pixel %d of %d", pos, n)
	}
	return out, nil
}
