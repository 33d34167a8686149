// Copyright 2014 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package encoding decodes the textual metadata values of a .note
// container. Device firmware writes UTF-8, except for a few fields
// (titles, keywords) that older models stored as big-endian UTF-16
// with a BOM.
package encoding

import (
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

func IsUTF16(s string) bool {
	return len(s) >= 2 && s[0] == 0xfe && s[1] == 0xff && len(s)%2 == 0
}

func UTF16Decode(s string) string {
	var u []uint16
	for i := 0; i < len(s); i += 2 {
		u = append(u, uint16(s[i])<<8|uint16(s[i+1]))
	}

	return string(utf16.Decode(u))
}

// Text decodes a metadata value to NFC-normalized UTF-8.
func Text(b []byte) string {
	s := string(b)
	if IsUTF16(s) {
		s = UTF16Decode(s[2:])
	}
	return norm.NFC.String(s)
}
