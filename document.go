// Copyright 2014 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package supernote

import (
	"context"
	"image"
	"log/slog"
	"runtime"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/njupg/supernote/internal/format"
	"github.com/njupg/supernote/raster"
)

// A Document decodes and composites the pages of one open file.
//
// Layer decoding is CPU-bound and each layer reads only its own slice
// of the Reader's immutable buffer, so pages render on a bounded pool
// of parallel workers with no shared mutable state. Finished composites
// are cached per page; concurrent requests for the same page collapse
// into a single decode. A cache entry is always a complete result,
// never a partial one.
type Document struct {
	r *Reader

	mu    sync.Mutex
	cache map[int]*PageResult
	group singleflight.Group
}

// NewDocument returns a Document rendering pages of r.
func NewDocument(r *Reader) *Document {
	return &Document{r: r, cache: make(map[int]*PageResult)}
}

// Reader returns the underlying container reader.
func (d *Document) Reader() *Reader {
	return d.r
}

// A LayerFailure records one layer that could not be decoded and why.
type LayerFailure struct {
	Key string
	Err error
}

// A PageResult is the outcome of rendering one page. Err is set when
// the page itself could not be resolved; otherwise Raster holds the
// composite and Failed lists any layers that were dropped, each with
// its cause. A page whose layers all failed still yields a background
// raster.
type PageResult struct {
	Index  int
	Raster *raster.Bitmap
	Failed []LayerFailure
	Err    error
}

// RenderPage resolves, decodes and composites one page. Results are
// cached; concurrent calls for the same page share one decode.
func (d *Document) RenderPage(ctx context.Context, num int) PageResult {
	d.mu.Lock()
	cached := d.cache[num]
	d.mu.Unlock()
	if cached != nil {
		return *cached
	}

	v, _, _ := d.group.Do(strconv.Itoa(num), func() (interface{}, error) {
		// Re-check under the flight: a caller that raced past the
		// first check must still see the completed result rather
		// than decode again.
		d.mu.Lock()
		cached := d.cache[num]
		d.mu.Unlock()
		if cached != nil {
			return *cached, nil
		}
		res := d.renderPage(ctx, num)
		if res.Err == nil {
			d.mu.Lock()
			d.cache[num] = &res
			d.mu.Unlock()
		}
		return res, nil
	})
	return v.(PageResult)
}

func (d *Document) renderPage(ctx context.Context, num int) PageResult {
	res := PageResult{Index: num}
	p, err := d.r.Page(num)
	if err != nil {
		res.Err = err
		return res
	}

	var layers []*raster.Bitmap
	for i, l := range p.Layers {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		if !l.Visible {
			slog.Debug("skipping hidden layer", slog.String("key", l.Key))
			continue
		}
		bm, err := p.DecodeLayer(i)
		if err != nil {
			res.Failed = append(res.Failed, LayerFailure{Key: l.Key, Err: err})
			continue
		}
		layers = append(layers, bm)
	}

	res.Raster, res.Err = raster.Composite(p.Width, p.Height, format.ColorBackground, layers)
	return res
}

// Render renders the given pages, or every page when none are named,
// across a worker pool sized to the available cores. Per-page failures
// are reported in the results and never abort the other pages;
// canceling ctx stops outstanding work early.
func (d *Document) Render(ctx context.Context, pages ...int) ([]PageResult, error) {
	if len(pages) == 0 {
		for n := 1; n <= d.r.NumPage(); n++ {
			pages = append(pages, n)
		}
	}

	results := make([]PageResult, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, num := range pages {
		i, num := i, num
		g.Go(func() error {
			results[i] = d.RenderPage(gctx, num)
			return nil
		})
	}
	g.Wait()
	return results, ctx.Err()
}

// Image renders one page and converts its composite to a grayscale
// image using the file's palette.
func (d *Document) Image(ctx context.Context, num int) (*image.Gray, error) {
	res := d.RenderPage(ctx, num)
	if res.Err != nil {
		return nil, res.Err
	}
	return raster.Image(res.Raster, d.r.scheme.Grayscale)
}
