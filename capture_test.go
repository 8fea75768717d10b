package framegraph

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/gputypes"
)

// readableImage is a fakeImage with a CPU readback path.
type readableImage struct {
	fakeImage
	pixels *image.RGBA
}

func (r *readableImage) ReadPixels() (*image.RGBA, error) {
	return r.pixels, nil
}

func TestCaptureThumbnail(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 640, 480))
	img := &readableImage{
		fakeImage: fakeImage{width: 640, height: 480, format: gputypes.TextureFormatRGBA8Unorm},
		pixels:    src,
	}

	thumb, err := CaptureThumbnail(img, 160)
	if err != nil {
		t.Fatalf("CaptureThumbnail: %v", err)
	}
	if thumb.Bounds().Dx() != 160 || thumb.Bounds().Dy() != 120 {
		t.Errorf("thumbnail = %v, want 160x120", thumb.Bounds())
	}

	// Portrait images bound the height instead.
	tall := Thumbnail(image.NewRGBA(image.Rect(0, 0, 100, 400)), 100)
	if tall.Bounds().Dx() != 25 || tall.Bounds().Dy() != 100 {
		t.Errorf("portrait thumbnail = %v, want 25x100", tall.Bounds())
	}

	// Already small images pass through untouched.
	small := image.NewRGBA(image.Rect(0, 0, 16, 16))
	if got := Thumbnail(small, 64); got != small {
		t.Error("small image was rescaled")
	}
}

func TestCaptureNotReadable(t *testing.T) {
	img := &fakeImage{width: 8, height: 8}
	if _, err := Capture(img); !errors.Is(err, ErrNotReadable) {
		t.Fatalf("Capture error = %v, want ErrNotReadable", err)
	}
	readable := &readableImage{pixels: image.NewRGBA(image.Rect(0, 0, 4, 4))}
	if _, err := CaptureThumbnail(readable, 0); err == nil {
		t.Error("zero dimension accepted")
	}
}
