package rle

import "github.com/njupg/supernote/internal/format"

// Encode compresses a raster of color codes into the scheme's wire
// layout. It is the exact inverse of Decode for every valid raster and
// backs synthetic test fixtures.
func Encode(s format.Scheme, raster []byte) []byte {
	var out []byte
	for i := 0; i < len(raster); {
		color := raster[i]
		run := 1
		for i+run < len(raster) && raster[i+run] == color {
			run++
		}
		i += run
		switch s.RLE {
		case format.RLEPlain:
			out = appendPlain(out, color, run)
		case format.RLERatta:
			out = appendRatta(out, color, run)
		}
	}
	return out
}

func appendPlain(out []byte, color byte, run int) []byte {
	if run <= 0x7f {
		return append(out, color, byte(run))
	}
	// MSB-first base-128 groups; every byte but the last carries the
	// continuation bit.
	var groups []byte
	for run > 0 {
		groups = append(groups, byte(run&0x7f))
		run >>= 7
	}
	out = append(out, color)
	for j := len(groups) - 1; j > 0; j-- {
		out = append(out, groups[j]|0x80)
	}
	return append(out, groups[0])
}

func appendRatta(out []byte, color byte, run int) []byte {
	for run >= format.RattaLongRun {
		out = append(out, color, 0xFF)
		run -= format.RattaLongRun
	}
	switch {
	case run == 0:
	case run <= 128:
		out = append(out, color, byte(run-1))
	default:
		// Fused pair: run = (hi+1)<<7 + lo + 1.
		hi := (run - 129) / 128
		lo := run - 129 - 128*hi
		out = append(out, color, 0x80|byte(hi), color, byte(lo))
	}
	return out
}
