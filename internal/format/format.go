// Package format holds the versioned binary-layout constants of the
// Supernote .note container.
//
// The on-disk layout is not fixed across firmware generations: the
// signature's trailing version date selects which footer geometry, RLE
// run-length continuation scheme and palette apply. Everything
// version-dependent lives here as data so that readers and decoders
// never hardcode one generation's scheme.
package format

import (
	"bytes"
	"fmt"
)

// SignaturePrefix starts every .note file, followed by an 8-digit
// ASCII version date.
const SignaturePrefix = "noteSN_FILE_VER_"

// SignatureLen is the total signature length in bytes.
const SignatureLen = len(SignaturePrefix) + 8

// RLEScheme identifies a run-length continuation layout.
type RLEScheme int

const (
	// RLEPlain is the pre-X-series layout: a length byte below 0x80 is
	// the run count; a byte with the high bit set opens an MSB-first
	// base-128 accumulator extended until a byte without the high bit.
	RLEPlain RLEScheme = iota

	// RLERatta is the X-series layout: length 0xFF is a fixed long run,
	// a length with the high bit set is held and fused with the next
	// token when colors match.
	RLERatta
)

// Color codes appearing in RLE streams. Codes outside this set decode
// to themselves as literal gray values.
const (
	ColorBlack          = 0x61
	ColorBackground     = 0x62
	ColorDarkGray       = 0x63
	ColorGray           = 0x64
	ColorWhite          = 0x65
	ColorMarkerBlack    = 0x66
	ColorMarkerDarkGray = 0x67
	ColorMarkerGray     = 0x68
)

// RattaLongRun is the run length of the 0xFF length byte in RLERatta.
const RattaLongRun = 0x4000

// A Scheme is the complete layout selection for one firmware
// generation.
type Scheme struct {
	Version    string // 8-digit version date from the signature
	FooterSize int    // bytes of footer pointer at end of file
	RLE        RLEScheme
	Depth      int // supported bits per pixel
}

// The two known firmware families. The cutover date comes from the
// earliest X-series sample files.
var (
	schemeOriginal = Scheme{FooterSize: 4, RLE: RLEPlain, Depth: 8}
	schemeXSeries  = Scheme{FooterSize: 4, RLE: RLERatta, Depth: 8}
)

const xSeriesCutover = "20200001"

// ParseSignature validates the fixed signature at the start of buf and
// returns the layout Scheme its version selects.
func ParseSignature(buf []byte) (Scheme, error) {
	if len(buf) < SignatureLen || !bytes.HasPrefix(buf, []byte(SignaturePrefix)) {
		return Scheme{}, fmt.Errorf("invalid signature")
	}
	ver := string(buf[len(SignaturePrefix):SignatureLen])
	for i := 0; i < len(ver); i++ {
		if ver[i] < '0' || ver[i] > '9' {
			return Scheme{}, fmt.Errorf("invalid signature version %q", ver)
		}
	}
	s := schemeOriginal
	if ver >= xSeriesCutover {
		s = schemeXSeries
	}
	s.Version = ver
	return s, nil
}

// Grayscale maps a color code to its rendered 8-bit gray value.
// ColorBackground renders as paper white; unrecognized codes are
// literal gray values on X-series firmware and pass through unchanged.
func (s Scheme) Grayscale(code byte) byte {
	switch code {
	case ColorBlack, ColorMarkerBlack:
		return 0x00
	case ColorDarkGray, ColorMarkerDarkGray:
		return 0x9D
	case ColorGray, ColorMarkerGray:
		return 0xC9
	case ColorWhite:
		return 0xFE
	case ColorBackground:
		return 0xFF
	}
	return code
}
