// Copyright 2014 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package supernote

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/njupg/supernote/internal/rle"
	"github.com/njupg/supernote/raster"
)

// A LayerKind identifies one of the raster planes a page may carry.
// The set is closed: the format defines exactly these five.
type LayerKind int

const (
	KindBackground LayerKind = iota
	KindMain
	KindLayer1
	KindLayer2
	KindLayer3
)

var layerKindNames = map[string]LayerKind{
	"BACKGROUND": KindBackground,
	"MAIN":       KindMain,
	"LAYER1":     KindLayer1,
	"LAYER2":     KindLayer2,
	"LAYER3":     KindLayer3,
}

func (k LayerKind) String() string {
	for name, kind := range layerKindNames {
		if kind == k {
			return name
		}
	}
	return fmt.Sprintf("LayerKind(%d)", int(k))
}

// A Layer is one raster plane of a page, pointing at its compressed
// bitmap payload inside the file.
type Layer struct {
	Key     string
	Kind    LayerKind
	Visible bool
	Depth   int

	payload []byte
	err     error
}

// A Page is the typed view of one PAGE directory: dimensions,
// background identifier and the ordered layer list, bottom to top.
type Page struct {
	Index      int
	Width      int
	Height     int
	Background string
	Layers     []Layer

	r *Reader
}

// Page returns the page with the given number, indexed starting at 1
// like the device UI. It fails when the page's directory or INFO
// record is damaged; such a failure is scoped to this page and leaves
// the Reader and its other pages usable.
func (r *Reader) Page(num int) (Page, error) {
	if num < 1 || num > len(r.pages) {
		return Page{}, fmt.Errorf("no page %d in file of %d pages", num, len(r.pages))
	}
	pd := r.pages[num-1]
	if pd.err != nil {
		return Page{}, pd.err
	}

	b, err := r.Object(pd.key + "/INFO")
	if err != nil {
		return Page{}, fmt.Errorf("page %s: %w", pd.key, err)
	}
	info, err := parseRecord(b)
	if err != nil {
		return Page{}, fmt.Errorf("page %s: %w", pd.key, err)
	}
	p := Page{
		Index:      num,
		Width:      int(info.Uint32("WIDTH")),
		Height:     int(info.Uint32("HEIGHT")),
		Background: info.Text("BGID"),
		r:          r,
	}
	if p.Width <= 0 || p.Height <= 0 {
		return Page{}, fmt.Errorf("page %s: invalid dimensions %dx%d", pd.key, p.Width, p.Height)
	}

	for _, name := range strings.Split(info.Text("LAYERSEQ"), ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		l, ok := r.resolveLayer(pd.key, name)
		if !ok {
			continue
		}
		p.Layers = append(p.Layers, l)
	}
	return p, nil
}

// resolveLayer interprets one layer record. Layers naming an unknown
// kind are skipped the way unknown record keys are; a bitmap pointer
// outside file bounds is kept as a per-layer failure so the page's
// other layers still decode.
func (r *Reader) resolveLayer(pageKey, name string) (Layer, bool) {
	key := pageKey + "/" + name
	b, err := r.Object(key)
	if err != nil {
		slog.Debug("layer sequence names a missing layer", slog.String("key", key))
		return Layer{}, false
	}
	rec, err := parseRecord(b)
	if err != nil {
		return Layer{Key: key, err: fmt.Errorf("layer %s: %w", key, err)}, true
	}

	kind, ok := layerKindNames[rec.Text("KIND")]
	if !ok {
		slog.Debug("skipping layer of unknown kind", slog.String("key", key), slog.String("kind", rec.Text("KIND")))
		return Layer{}, false
	}
	l := Layer{
		Key:     key,
		Kind:    kind,
		Visible: rec.Uint8("VISIBLE") != 0,
		Depth:   int(rec.Uint8("DEPTH")),
	}
	if l.Depth == 0 {
		l.Depth = r.scheme.Depth
	}

	ptr := rec.Bytes("BITMAP")
	if len(ptr) != 8 {
		l.err = fmt.Errorf("layer %s: missing bitmap pointer", key)
		return l, true
	}
	off, size := leUint(ptr[:4]), leUint(ptr[4:])
	if off+size > int64(len(r.data)) {
		l.err = &IndexError{Key: key, Offset: off, Size: size, End: int64(len(r.data))}
		return l, true
	}
	l.payload = r.data[off : off+size : off+size]
	return l, true
}

// DecodeLayer decompresses the i'th layer of the page into its pixel
// raster. A failure is scoped to that layer.
func (p Page) DecodeLayer(i int) (*raster.Bitmap, error) {
	l := p.Layers[i]
	if l.err != nil {
		return nil, l.err
	}
	pix, err := rle.Decode(p.r.scheme, l.payload, p.Width, p.Height, l.Depth)
	if err != nil {
		return nil, &DecodeError{Layer: l.Key, Err: err}
	}
	return &raster.Bitmap{Width: p.Width, Height: p.Height, Pix: pix}, nil
}
