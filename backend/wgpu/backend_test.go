package wgpu

import (
	"errors"
	"testing"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
)

func TestLogicalDeviceAllocation(t *testing.T) {
	device := NewLogicalDevice(64)

	img, err := device.CreateImage(framegraph.ImageDesc{
		Label:  "gbuffer_colour",
		Width:  1280,
		Height: 800,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	if img.Width() != 1280 || img.Height() != 800 {
		t.Errorf("image = %dx%d, want 1280x800", img.Width(), img.Height())
	}
	if img.Format() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("format = %v", img.Format())
	}

	stats := device.Memory()
	wantBytes := uint64(1280 * 800 * 4)
	if stats.UsedBytes != wantBytes || stats.ResourceCount != 1 {
		t.Errorf("stats = %v, want %d bytes / 1 resource", stats, wantBytes)
	}

	// Destroy returns the bytes; double destroy is a no-op.
	img.Destroy()
	img.Destroy()
	stats = device.Memory()
	if stats.UsedBytes != 0 || stats.ResourceCount != 0 {
		t.Errorf("stats after destroy = %v", stats)
	}
}

func TestLogicalDeviceBuffer(t *testing.T) {
	device := NewLogicalDevice(64)

	buf, err := device.CreateBuffer(framegraph.BufferDesc{
		Label: "indirect_args",
		Size:  4096,
		Usage: gputypes.BufferUsageStorage,
	})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if buf.Size() != 4096 {
		t.Errorf("size = %d, want 4096", buf.Size())
	}

	if _, err := device.CreateBuffer(framegraph.BufferDesc{}); !errors.Is(err, ErrZeroSize) {
		t.Errorf("zero-size buffer error = %v, want ErrZeroSize", err)
	}

	buf.Destroy()
	if stats := device.Memory(); stats.UsedBytes != 0 {
		t.Errorf("bytes leaked after destroy: %v", stats)
	}
}

func TestMemoryBudgetEnforced(t *testing.T) {
	device := NewLogicalDevice(16) // 16 MB budget

	// A 4096x4096 RGBA image is 64 MB and must be refused.
	_, err := device.CreateImage(framegraph.ImageDesc{
		Width:  4096,
		Height: 4096,
		Format: gputypes.TextureFormatRGBA8Unorm,
	})
	if !errors.Is(err, ErrMemoryBudgetExceeded) {
		t.Fatalf("CreateImage error = %v, want ErrMemoryBudgetExceeded", err)
	}
	if stats := device.Memory(); stats.UsedBytes != 0 {
		t.Errorf("failed allocation left %d bytes accounted", stats.UsedBytes)
	}
}

func TestCreateImageValidation(t *testing.T) {
	device := NewLogicalDevice(0)
	if _, err := device.CreateImage(framegraph.ImageDesc{Width: 0, Height: 4}); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("zero-width error = %v, want ErrInvalidDimensions", err)
	}
}

func TestBytesPerPixel(t *testing.T) {
	tests := []struct {
		format gputypes.TextureFormat
		want   uint64
	}{
		{gputypes.TextureFormatRGBA8Unorm, 4},
		{gputypes.TextureFormatBGRA8Unorm, 4},
		{gputypes.TextureFormatR8Unorm, 1},
		{gputypes.TextureFormatDepth16Unorm, 2},
		{gputypes.TextureFormatDepth32Float, 4},
	}
	for _, tt := range tests {
		if got := bytesPerPixel(tt.format); got != tt.want {
			t.Errorf("bytesPerPixel(%v) = %d, want %d", tt.format, got, tt.want)
		}
	}
}

func TestUninitializedBackend(t *testing.T) {
	backend := NewBackend(Config{})
	if backend.IsInitialized() {
		t.Fatal("fresh backend reports initialized")
	}
	if _, err := backend.CreateImage(framegraph.ImageDesc{Width: 4, Height: 4}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("CreateImage error = %v, want ErrNotInitialized", err)
	}
	if _, err := backend.CreateBuffer(framegraph.BufferDesc{Size: 16}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("CreateBuffer error = %v, want ErrNotInitialized", err)
	}
	// Close before Init is a no-op.
	backend.Close()
}

func TestGraphCompilesAgainstLogicalDevice(t *testing.T) {
	b := framegraph.NewBuilder()
	b.CreateNode(framegraph.NodeDesc{
		Name:    "scene",
		Enabled: true,
		Outputs: []framegraph.OutputDesc{{
			Type: framegraph.ResourceAttachment,
			Name: "scene_colour",
			Info: framegraph.NewAttachmentInfo(640, 360, gputypes.TextureFormatRGBA8Unorm),
		}},
	})
	g := b.Build(nil)

	device := NewLogicalDevice(64)
	if err := g.Compile(device); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if stats := device.Memory(); stats.ResourceCount != 1 {
		t.Errorf("resources = %d, want 1", stats.ResourceCount)
	}
}
