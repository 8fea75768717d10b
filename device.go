// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
//
// This is the integration point between framegraph and GPU frameworks like
// gogpu. The host application implements DeviceHandle and passes it to the
// wgpu backend, allowing framegraph to use the shared GPU device instead of
// creating its own.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, providing a
// framegraph-specific name for the interface while maintaining full
// compatibility with the gpucontext ecosystem.
type DeviceHandle = gpucontext.DeviceProvider

// Image represents a GPU-backed image resource.
//
// The graph compiler allocates images for attachment outputs and stores
// them back into the resource records; external holders (a material that
// samples the image bindlessly, a presentation blit) may share the same
// Image. Destruction must therefore be deferred: call Destroy only through
// a frame.Reclaimer, never while an in-flight frame may reference the image.
type Image interface {
	// Width returns the image width in pixels.
	Width() uint32

	// Height returns the image height in pixels.
	Height() uint32

	// Format returns the image pixel format.
	Format() gputypes.TextureFormat

	// Destroy releases GPU resources associated with this image.
	Destroy()
}

// Pipeline is an opaque handle to an externally owned graphics or compute
// pipeline. Pipeline and descriptor-set construction belong to the host;
// the recording surface only forwards bind requests.
type Pipeline any

// Buffer represents a GPU-backed buffer resource.
type Buffer interface {
	// Size returns the buffer size in bytes.
	Size() uint64

	// Usage returns the buffer usage flags.
	Usage() gputypes.BufferUsage

	// Destroy releases GPU resources associated with this buffer.
	Destroy()
}

// ImageDesc describes parameters for creating an image.
type ImageDesc struct {
	// Label is an optional debug label for the image.
	Label string

	// Width is the image width in pixels.
	Width uint32

	// Height is the image height in pixels.
	Height uint32

	// Depth is the image depth for 3D images, or array layer count.
	// Use 1 for regular 2D images.
	Depth uint32

	// Format is the image pixel format.
	Format gputypes.TextureFormat

	// Usage specifies how the image will be used.
	Usage gputypes.TextureUsage
}

// BufferDesc describes parameters for creating a buffer.
type BufferDesc struct {
	// Label is an optional debug label for the buffer.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage specifies how the buffer will be used.
	Usage gputypes.BufferUsage
}

// Device is the allocator collaborator the graph compiler calls into.
//
// The compiler and executor use only this interface and [CommandRecorder];
// they never touch native API objects directly. backend/wgpu provides the
// production implementation; tests use in-memory fakes.
type Device interface {
	// CreateImage allocates a GPU image per the descriptor.
	CreateImage(desc ImageDesc) (Image, error)

	// CreateBuffer allocates a GPU buffer per the descriptor.
	CreateBuffer(desc BufferDesc) (Buffer, error)
}
