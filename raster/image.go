package raster

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Image converts a composite bitmap into a standard grayscale image
// using the palette's gray mapping. Downstream consumers (page export,
// model upload) work with the image; the bitmap itself stays untouched.
func Image(b *Bitmap, gray func(byte) byte) (*image.Gray, error) {
	if b.Width <= 0 || b.Height <= 0 {
		return nil, fmt.Errorf("bitmap has zero dimensions")
	}
	if len(b.Pix) != b.Width*b.Height {
		return nil, fmt.Errorf("bitmap has %d pixels, want %d", len(b.Pix), b.Width*b.Height)
	}
	img := image.NewGray(image.Rect(0, 0, b.Width, b.Height))
	for i, v := range b.Pix {
		img.Pix[i] = gray(v)
	}
	return img, nil
}

// Scale resizes img so that neither dimension exceeds maxDim,
// preserving aspect ratio. Images already within bounds are returned
// unchanged.
func Scale(img image.Image, maxDim int) image.Image {
	r := img.Bounds()
	w, h := r.Dx(), r.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}
	if w >= h {
		h = h * maxDim / w
		w = maxDim
	} else {
		w = w * maxDim / h
		h = maxDim
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, r, draw.Src, nil)
	return dst
}
