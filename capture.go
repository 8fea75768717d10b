// Copyright 2025 The gogpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package framegraph

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// ErrNotReadable reports that an image offers no CPU readback path.
var ErrNotReadable = errors.New("framegraph: image is not readable")

// ImageReader is implemented by images that can read their contents back
// to the CPU. Readback is a debugging aid; render targets normally stay on
// the GPU for their whole lifetime.
type ImageReader interface {
	// ReadPixels returns the image contents as RGBA. It blocks until any
	// pending GPU work writing the image has finished.
	ReadPixels() (*image.RGBA, error)
}

// Capture reads an image back to the CPU. The image must implement
// [ImageReader], otherwise Capture returns [ErrNotReadable].
func Capture(img Image) (*image.RGBA, error) {
	reader, ok := img.(ImageReader)
	if !ok {
		return nil, fmt.Errorf("%w: %dx%d", ErrNotReadable, img.Width(), img.Height())
	}
	return reader.ReadPixels()
}

// CaptureThumbnail captures an image and scales it down so its longest side
// is at most maxDim pixels, preserving aspect ratio. Images already within
// the bound are returned unscaled.
func CaptureThumbnail(img Image, maxDim int) (*image.RGBA, error) {
	if maxDim <= 0 {
		return nil, fmt.Errorf("framegraph: invalid thumbnail dimension %d", maxDim)
	}
	full, err := Capture(img)
	if err != nil {
		return nil, err
	}
	return Thumbnail(full, maxDim), nil
}

// Thumbnail scales src down so its longest side is at most maxDim pixels.
// Sources already within the bound are returned as-is.
func Thumbnail(src *image.RGBA, maxDim int) *image.RGBA {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}

	var tw, th int
	if w >= h {
		tw = maxDim
		th = h * maxDim / w
	} else {
		th = maxDim
		tw = w * maxDim / h
	}
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	return dst
}
