// Copyright 2014 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package supernote implements reading of Supernote .note files.
//
// # Overview
//
// A .note file is a binary container written by Supernote e-ink
// tablets, holding one or more handwritten pages. The container is a
// simple structure: a fixed ASCII signature at the start, a footer
// pointer at the end of the file, and between them a tree of
// length-prefixed directory tables mapping keys to byte ranges. Page
// directories hold an INFO record plus one record per ink layer, each
// pointing at a run-length compressed bitmap payload.
//
// A Reader exposes that structure directly: Object returns the raw
// bytes of a directory entry, Page interprets a page directory into
// its typed record. Both are read-only views over the single byte
// buffer read up front; a Reader is safe for concurrent use.
//
// Decoding and compositing the pixel layers of a page is the job of
// Document, which adds bounded parallelism across pages and a
// per-page result cache on top of the Reader.
package supernote

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strconv"

	"github.com/njupg/supernote/internal/format"
)

// An address is one resolved directory entry: a byte range of the
// underlying buffer.
type address struct {
	off  int64
	size int64
}

// A Reader is a single .note file open for reading.
type Reader struct {
	data    []byte
	scheme  format.Scheme
	objects map[string]address
	pages   []pageDir
}

// A pageDir is one PAGE<n> subdirectory found in the root table. A
// walk error is recorded here rather than failing the whole file, so
// one damaged page leaves its siblings readable.
type pageDir struct {
	key string
	num int
	err error
}

// Open reads the named file into memory and returns a Reader for it.
func Open(file string) (*Reader, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return NewReader(data)
}

var pageKeyRE = regexp.MustCompile(`^PAGE([0-9]+)$`)

// NewReader opens the .note container in data. The buffer must not be
// modified while the Reader or anything resolved from it is in use.
func NewReader(data []byte) (*Reader, error) {
	scheme, err := format.ParseSignature(data)
	if err != nil {
		return nil, &FormatError{Reason: err.Error()}
	}
	if len(data) < format.SignatureLen+scheme.FooterSize {
		return nil, &FormatError{Reason: "truncated footer"}
	}
	root := leUint(data[len(data)-scheme.FooterSize:])
	if root < int64(format.SignatureLen) || root >= int64(len(data)-scheme.FooterSize) {
		return nil, &FormatError{Reason: fmt.Sprintf("footer points at %d, outside file of %d bytes", root, len(data))}
	}

	r := &Reader{
		data:    data,
		scheme:  scheme,
		objects: make(map[string]address),
	}
	if err := r.walkRoot(root); err != nil {
		return nil, err
	}
	sort.Slice(r.pages, func(i, j int) bool { return r.pages[i].num < r.pages[j].num })
	return r, nil
}

// Version returns the 8-digit firmware version date from the file
// signature.
func (r *Reader) Version() string {
	return r.scheme.Version
}

// NumPage returns the number of pages in the file, including pages
// whose directories failed to resolve.
func (r *Reader) NumPage() int {
	return len(r.pages)
}

// Object returns the raw bytes of the directory entry with the given
// key. Keys of nested entries join their path with "/", as in
// "PAGE1/INFO". The returned slice aliases the Reader's buffer and
// must not be modified.
func (r *Reader) Object(key string) ([]byte, error) {
	a, ok := r.objects[key]
	if !ok {
		return nil, fmt.Errorf("no object %q", key)
	}
	return r.data[a.off : a.off+a.size : a.off+a.size], nil
}

// Header returns the file's HEADER metadata record.
func (r *Reader) Header() (Record, error) {
	b, err := r.Object("HEADER")
	if err != nil {
		return Record{}, err
	}
	return parseRecord(b)
}

// walkRoot parses the root directory table and every subdirectory
// under it into the flat key→range index. Structural damage at the
// root is fatal; damage inside a PAGE subdirectory is recorded on that
// page only.
func (r *Reader) walkRoot(off int64) error {
	entries, err := r.readTable("", off, int64(len(r.data)))
	if err != nil {
		if _, ok := err.(*IndexError); ok {
			return err
		}
		return &FormatError{Reason: err.Error()}
	}
	for _, e := range entries {
		switch {
		case e.kind == kindDirectory && pageKeyRE.MatchString(e.key):
			num, _ := strconv.Atoi(pageKeyRE.FindStringSubmatch(e.key)[1])
			walkErr := r.walkDir(e.key, e.addr)
			r.pages = append(r.pages, pageDir{key: e.key, num: num, err: walkErr})
		case e.kind == kindDirectory:
			if err := r.walkDir(e.key, e.addr); err != nil {
				return err
			}
		default:
			if e.kind != kindObject {
				// Unknown entry kinds are preserved opaquely, like
				// unknown record keys.
				slog.Debug("directory entry of unknown kind", slog.Int("kind", int(e.kind)), slog.String("key", e.key))
			}
			r.objects[e.key] = e.addr
		}
	}
	return nil
}

func (r *Reader) walkDir(prefix string, a address) error {
	entries, err := r.readTable(prefix, a.off, a.off+a.size)
	if err != nil {
		return fmt.Errorf("directory %s: %w", prefix, err)
	}
	for _, e := range entries {
		key := prefix + "/" + e.key
		switch e.kind {
		case kindDirectory:
			if err := r.walkDir(key, e.addr); err != nil {
				return err
			}
		default:
			if e.kind != kindObject {
				slog.Debug("directory entry of unknown kind", slog.Int("kind", int(e.kind)), slog.String("key", key))
			}
			r.objects[key] = e.addr
		}
	}
	return nil
}

// Directory entry kinds.
const (
	kindObject    = 0
	kindDirectory = 1
)

type dirEntry struct {
	kind byte
	key  string
	addr address
}

// readTable parses one directory table in [off, end): a uint32 entry
// count followed by entries of kind byte, length-prefixed key, offset
// and size. Every address is checked against file bounds here, so a
// later Object call can never read outside the buffer.
func (r *Reader) readTable(prefix string, off, end int64) ([]dirEntry, error) {
	w := walker{data: r.data, pos: off, end: end}
	count := w.u32()
	if w.err != nil {
		return nil, w.err
	}
	if int64(count) > end-off {
		return nil, fmt.Errorf("directory claims %d entries in %d bytes", count, end-off)
	}
	entries := make([]dirEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		kind := w.u8()
		key := string(w.bytes(int(w.u16())))
		a := address{off: int64(w.u32()), size: int64(w.u32())}
		if w.err != nil {
			return nil, w.err
		}
		if a.off+a.size > int64(len(r.data)) {
			full := key
			if prefix != "" {
				full = prefix + "/" + key
			}
			return nil, &IndexError{Key: full, Offset: a.off, Size: a.size, End: int64(len(r.data))}
		}
		entries = append(entries, dirEntry{kind: kind, key: key, addr: a})
	}
	return entries, nil
}

// A walker reads little-endian fields from a bounded window of the
// buffer, latching the first error the way a scanner does.
type walker struct {
	data []byte
	pos  int64
	end  int64
	err  error
}

func (w *walker) bytes(n int) []byte {
	if w.err != nil {
		return nil
	}
	if int64(n) > w.end-w.pos {
		w.err = fmt.Errorf("truncated at byte %d", w.pos)
		return nil
	}
	b := w.data[w.pos : w.pos+int64(n)]
	w.pos += int64(n)
	return b
}

func (w *walker) u8() byte {
	b := w.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (w *walker) u16() uint16 {
	b := w.bytes(2)
	if b == nil {
		return 0
	}
	return uint16(b[0]) | uint16(b[1])<<8
}

func (w *walker) u32() uint32 {
	b := w.bytes(4)
	if b == nil {
		return 0
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// leUint decodes a little-endian unsigned integer of len(b) bytes.
// The footer pointer width is scheme-dependent, so it cannot assume
// one fixed size the way the table fields do.
func leUint(b []byte) int64 {
	var x int64
	for i := len(b) - 1; i >= 0; i-- {
		x = x<<8 | int64(b[i])
	}
	return x
}
