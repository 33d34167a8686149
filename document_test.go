package supernote

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/njupg/supernote/internal/format"
)

func Test_Document_RenderPage_Transparency(t *testing.T) {
	// Layer A is entirely background, layer B has one ink pixel at
	// (10,10): the composite must equal layer B exactly.
	inked := fill(format.ColorBackground, 32*32)
	inked[10*32+10] = format.ColorBlack

	data := buildNote(verRatta, pageSpec{
		width: 32, height: 32,
		layers: []layerSpec{
			{name: "BGLAYER", kind: "BACKGROUND", raster: fill(format.ColorBackground, 32*32)},
			{name: "MAINLAYER", kind: "MAIN", raster: inked},
		},
	})
	r, err := NewReader(data)
	if err != nil {
		t.Fatal("NewReader:", err)
	}

	res := NewDocument(r).RenderPage(context.Background(), 1)
	if res.Err != nil {
		t.Fatal("RenderPage:", res.Err)
	}
	if len(res.Failed) != 0 {
		t.Fatalf("Failed = %+v, want none", res.Failed)
	}
	if !bytes.Equal(res.Raster.Pix, inked) {
		t.Error("composite does not equal the ink layer")
	}
}

func Test_Document_RenderPage_DegradedLayer(t *testing.T) {
	inked := fill(format.ColorBackground, 16)
	inked[3] = format.ColorBlack

	data := buildNote(verRatta, pageSpec{
		width: 4, height: 4,
		layers: []layerSpec{
			{name: "BGLAYER", kind: "BACKGROUND", payload: []byte{format.ColorWhite}}, // truncated mid-token
			{name: "MAINLAYER", kind: "MAIN", raster: inked},
		},
	})
	r, err := NewReader(data)
	if err != nil {
		t.Fatal("NewReader:", err)
	}

	res := NewDocument(r).RenderPage(context.Background(), 1)
	if res.Err != nil {
		t.Fatal("RenderPage:", res.Err)
	}
	if len(res.Failed) != 1 || res.Failed[0].Key != "PAGE1/BGLAYER" {
		t.Fatalf("Failed = %+v, want the background layer", res.Failed)
	}
	var de *DecodeError
	if !errors.As(res.Failed[0].Err, &de) {
		t.Errorf("layer failure = %v, want DecodeError", res.Failed[0].Err)
	}
	if !bytes.Equal(res.Raster.Pix, inked) {
		t.Error("surviving layer missing from composite")
	}
}

func Test_Document_RenderPage_NoUsableLayers(t *testing.T) {
	data := buildNote(verRatta, pageSpec{width: 4, height: 4, layerseq: "GHOST"})
	r, err := NewReader(data)
	if err != nil {
		t.Fatal("NewReader:", err)
	}

	res := NewDocument(r).RenderPage(context.Background(), 1)
	if res.Err != nil {
		t.Fatal("RenderPage:", res.Err)
	}
	if !bytes.Equal(res.Raster.Pix, fill(format.ColorBackground, 16)) {
		t.Error("zero-layer page is not a background-filled raster")
	}
}

func Test_Document_Render(t *testing.T) {
	pages := []pageSpec{
		{width: 4, height: 4, layers: []layerSpec{{name: "MAINLAYER", kind: "MAIN", raster: fill(format.ColorBlack, 16)}}},
		{width: 4, height: 4, layers: []layerSpec{{name: "MAINLAYER", kind: "MAIN", raster: fill(format.ColorGray, 16)}}},
		{width: 4, height: 4, layers: []layerSpec{{name: "MAINLAYER", kind: "MAIN", raster: fill(format.ColorWhite, 16)}}},
	}
	r, err := NewReader(buildNote(verRatta, pages...))
	if err != nil {
		t.Fatal("NewReader:", err)
	}

	results, err := NewDocument(r).Render(context.Background())
	if err != nil {
		t.Fatal("Render:", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	want := []byte{format.ColorBlack, format.ColorGray, format.ColorWhite}
	for i, res := range results {
		if res.Err != nil {
			t.Fatalf("page %d: %v", res.Index, res.Err)
		}
		if res.Raster.Pix[0] != want[i] {
			t.Errorf("page %d first pixel = %#x, want %#x", res.Index, res.Raster.Pix[0], want[i])
		}
	}
}

func Test_Document_Render_DamagedPageDoesNotAbortRun(t *testing.T) {
	s := scheme(verRatta)
	b := newFile(verRatta)
	badPage := b.add(table(ent{kind: kindObject, key: "INFO", off: 1 << 24, size: 32}))
	goodPage := b.addPage(pageSpec{width: 2, height: 2, layers: []layerSpec{
		{name: "MAINLAYER", kind: "MAIN", raster: fill(format.ColorBlack, 4)},
	}}, s)
	root := b.add(table(
		ent{kind: kindDirectory, key: "PAGE1", off: badPage.off, size: badPage.size},
		ent{kind: kindDirectory, key: "PAGE2", off: goodPage.off, size: goodPage.size},
	))
	r, err := NewReader(b.finish(root))
	if err != nil {
		t.Fatal("NewReader:", err)
	}

	results, err := NewDocument(r).Render(context.Background())
	if err != nil {
		t.Fatal("Render:", err)
	}

	var ie *IndexError
	if !errors.As(results[0].Err, &ie) {
		t.Errorf("page 1 error = %v, want IndexError", results[0].Err)
	}
	if results[1].Err != nil {
		t.Errorf("page 2 error = %v, want render to proceed", results[1].Err)
	}
}

func Test_Document_RenderPage_Cached(t *testing.T) {
	data := buildNote(verRatta, pageSpec{width: 4, height: 4, layers: []layerSpec{
		{name: "MAINLAYER", kind: "MAIN", raster: fill(format.ColorBlack, 16)},
	}})
	r, err := NewReader(data)
	if err != nil {
		t.Fatal("NewReader:", err)
	}
	d := NewDocument(r)

	// Concurrent and repeated requests must share one decode: every
	// result aliases the same cached raster.
	const callers = 8
	results := make([]PageResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = d.RenderPage(context.Background(), 1)
		}()
	}
	wg.Wait()

	again := d.RenderPage(context.Background(), 1)
	for i, res := range results {
		if res.Err != nil {
			t.Fatalf("caller %d: %v", i, res.Err)
		}
		if res.Raster != again.Raster {
			t.Fatalf("caller %d received a different raster instance", i)
		}
	}
}

func Test_Document_Render_Canceled(t *testing.T) {
	data := buildNote(verRatta, pageSpec{width: 4, height: 4, layers: []layerSpec{
		{name: "MAINLAYER", kind: "MAIN", raster: fill(format.ColorBlack, 16)},
	}})
	r, err := NewReader(data)
	if err != nil {
		t.Fatal("NewReader:", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewDocument(r).Render(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Render error = %v, want context.Canceled", err)
	}
}

func Test_Document_Image(t *testing.T) {
	inked := fill(format.ColorBackground, 16)
	inked[0] = format.ColorBlack
	inked[1] = format.ColorGray

	data := buildNote(verRatta, pageSpec{width: 4, height: 4, layers: []layerSpec{
		{name: "MAINLAYER", kind: "MAIN", raster: inked},
	}})
	r, err := NewReader(data)
	if err != nil {
		t.Fatal("NewReader:", err)
	}

	img, err := NewDocument(r).Image(context.Background(), 1)
	if err != nil {
		t.Fatal("Image:", err)
	}
	if got := img.Pix[0]; got != 0x00 {
		t.Errorf("ink pixel = %#x, want black", got)
	}
	if got := img.Pix[1]; got != 0xC9 {
		t.Errorf("gray pixel = %#x, want 0xc9", got)
	}
	if got := img.Pix[2]; got != 0xFF {
		t.Errorf("background pixel = %#x, want paper white", got)
	}
}
