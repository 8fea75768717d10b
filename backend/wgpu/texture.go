package wgpu

import (
	"errors"
	"sync/atomic"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"
)

// Resource errors.
var (
	// ErrInvalidDimensions is returned for zero-extent images.
	ErrInvalidDimensions = errors.New("wgpu: image dimensions must be positive")

	// ErrZeroSize is returned for zero-size buffers.
	ErrZeroSize = errors.New("wgpu: buffer size must be positive")
)

// bytesPerPixel returns the per-pixel byte cost used for memory accounting.
func bytesPerPixel(f gputypes.TextureFormat) uint64 {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatDepth16Unorm:
		return 2
	default:
		// 32-bit color and depth formats.
		return 4
	}
}

// Texture is a GPU image owned by the graph.
//
// Texture is safe for concurrent read access; Destroy must be externally
// synchronized with any in-flight frame, which is what frame.Reclaimer is
// for.
type Texture struct {
	// GPU resource IDs, zero while wgpu texture creation is logical-only.
	textureID core.TextureID
	viewID    core.TextureViewID

	width  uint32
	height uint32
	depth  uint32
	format gputypes.TextureFormat
	usage  gputypes.TextureUsage

	sizeBytes uint64
	tracker   *MemoryTracker
	label     string

	released atomic.Bool
}

// Width returns the image width in pixels.
func (t *Texture) Width() uint32 { return t.width }

// Height returns the image height in pixels.
func (t *Texture) Height() uint32 { return t.height }

// Format returns the image pixel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Destroy releases the texture's GPU memory. Destroy is idempotent.
func (t *Texture) Destroy() {
	if t.released.Swap(true) {
		return
	}
	if t.tracker != nil {
		t.tracker.release(t.sizeBytes)
	}
	// TODO: core.TextureDrop(t.textureID) once wgpu exposes texture drop.
	framegraph.Logger().Debug("texture destroyed", "label", t.label, "bytes", t.sizeBytes)
}

// createTexture allocates a texture for the descriptor. Texture creation
// is currently logical: extent, format, and memory accounting are real,
// the native handle stays zero until wgpu texture creation lands.
func createTexture(tracker *MemoryTracker, desc framegraph.ImageDesc) (*Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, ErrInvalidDimensions
	}
	depth := desc.Depth
	if depth == 0 {
		depth = 1
	}

	sizeBytes := uint64(desc.Width) * uint64(desc.Height) * uint64(depth) * bytesPerPixel(desc.Format)
	if tracker != nil {
		if err := tracker.allocate(sizeBytes); err != nil {
			return nil, err
		}
	}

	// desc := &gputypes.TextureDescriptor{
	//     Label: desc.Label,
	//     Size: gputypes.Extent3D{
	//         Width:              desc.Width,
	//         Height:             desc.Height,
	//         DepthOrArrayLayers: depth,
	//     },
	//     MipLevelCount: 1,
	//     SampleCount:   1,
	//     Dimension:     gputypes.TextureDimension2D,
	//     Format:        desc.Format,
	//     Usage:         desc.Usage,
	// }
	// textureID, err := core.CreateTexture(backend.DeviceID(), desc)

	return &Texture{
		width:     desc.Width,
		height:    desc.Height,
		depth:     depth,
		format:    desc.Format,
		usage:     desc.Usage,
		sizeBytes: sizeBytes,
		tracker:   tracker,
		label:     desc.Label,
	}, nil
}

// GPUBuffer is a GPU buffer owned by the graph.
type GPUBuffer struct {
	bufferID core.BufferID

	size  uint64
	usage gputypes.BufferUsage

	tracker *MemoryTracker
	label   string

	released atomic.Bool
}

// Size returns the buffer size in bytes.
func (b *GPUBuffer) Size() uint64 { return b.size }

// Usage returns the buffer usage flags.
func (b *GPUBuffer) Usage() gputypes.BufferUsage { return b.usage }

// Destroy releases the buffer's GPU memory. Destroy is idempotent.
func (b *GPUBuffer) Destroy() {
	if b.released.Swap(true) {
		return
	}
	if b.tracker != nil {
		b.tracker.release(b.size)
	}
	framegraph.Logger().Debug("buffer destroyed", "label", b.label, "bytes", b.size)
}

// createBuffer allocates a buffer for the descriptor.
func createBuffer(tracker *MemoryTracker, desc framegraph.BufferDesc) (*GPUBuffer, error) {
	if desc.Size == 0 {
		return nil, ErrZeroSize
	}
	if tracker != nil {
		if err := tracker.allocate(desc.Size); err != nil {
			return nil, err
		}
	}
	return &GPUBuffer{
		size:    desc.Size,
		usage:   desc.Usage,
		tracker: tracker,
		label:   desc.Label,
	}, nil
}
