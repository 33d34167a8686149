// Copyright 2014 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package supernote

import (
	"fmt"

	"github.com/njupg/supernote/internal/encoding"
)

// A Record is a parsed object block: an ordered sequence of
// length-prefixed key/value fields. Fields with keys this package does
// not recognize are preserved as opaque bytes and skipped, never
// rejected, so files written by newer firmware still open.
//
// The accessors return a zero value when a key is absent or its value
// has the wrong shape. That makes record traversal quick to write;
// callers that care validate the results afterwards.
type Record struct {
	fields []field
}

type field struct {
	key string
	val []byte
}

// parseRecord parses an object block. The block is self-delimiting:
// fields repeat until the block is exhausted.
func parseRecord(data []byte) (Record, error) {
	w := walker{data: data, end: int64(len(data))}
	var fields []field
	for w.pos < w.end {
		key := string(w.bytes(int(w.u16())))
		val := w.bytes(int(w.u32()))
		if w.err != nil {
			return Record{}, fmt.Errorf("malformed record: %w", w.err)
		}
		fields = append(fields, field{key: key, val: val})
	}
	return Record{fields: fields}, nil
}

// Keys returns the record's field keys in file order, including keys
// this package does not interpret.
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.key
	}
	return keys
}

// Has reports whether the record contains the key.
func (r Record) Has(key string) bool {
	return r.Bytes(key) != nil
}

// Bytes returns the raw value bytes for key, or nil when absent.
func (r Record) Bytes(key string) []byte {
	for _, f := range r.fields {
		if f.key == key {
			return f.val
		}
	}
	return nil
}

// Text returns the value for key decoded as metadata text, or the
// empty string when absent.
func (r Record) Text(key string) string {
	b := r.Bytes(key)
	if b == nil {
		return ""
	}
	return encoding.Text(b)
}

// Uint32 returns the value for key as a little-endian uint32, or 0
// when the key is absent or the value is not 4 bytes.
func (r Record) Uint32(key string) uint32 {
	b := r.Bytes(key)
	if len(b) != 4 {
		return 0
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Uint8 returns the value for key as a single byte, or 0 when the key
// is absent or the value is not 1 byte.
func (r Record) Uint8(key string) uint8 {
	b := r.Bytes(key)
	if len(b) != 1 {
		return 0
	}
	return b[0]
}
