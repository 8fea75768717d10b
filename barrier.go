package framegraph

import (
	"fmt"
	"strings"
)

// ResourceState describes the GPU access state of an image or buffer.
// States are bitflags so composite states (shader resource visible to both
// fragment and non-fragment stages) can be expressed as unions.
type ResourceState uint32

const (
	// ResourceStateUndefined means contents are undefined and may be discarded.
	ResourceStateUndefined ResourceState = 0

	// ResourceStateVertexAndUniformBuffer is a buffer read as vertex input or uniforms.
	ResourceStateVertexAndUniformBuffer ResourceState = 1 << iota

	// ResourceStateIndexBuffer is a buffer read as index input.
	ResourceStateIndexBuffer

	// ResourceStateRenderTarget is an image written as a color attachment.
	ResourceStateRenderTarget

	// ResourceStateUnorderedAccess is a storage image or buffer.
	ResourceStateUnorderedAccess

	// ResourceStateDepthWrite is an image written as a depth attachment.
	ResourceStateDepthWrite

	// ResourceStateDepthRead is an image read as a depth attachment.
	ResourceStateDepthRead

	// ResourceStateNonFragmentShaderResource is sampled outside fragment stages.
	ResourceStateNonFragmentShaderResource

	// ResourceStateFragmentShaderResource is sampled in fragment stages.
	ResourceStateFragmentShaderResource

	// ResourceStateIndirectArgument is a buffer read for indirect draws.
	ResourceStateIndirectArgument

	// ResourceStateCopyDst is a copy destination.
	ResourceStateCopyDst

	// ResourceStateCopySrc is a copy source.
	ResourceStateCopySrc

	// ResourceStatePresent is a swapchain image ready for presentation.
	ResourceStatePresent
)

// ResourceStateShaderResource is an image sampled from any shader stage.
const ResourceStateShaderResource = ResourceStateNonFragmentShaderResource |
	ResourceStateFragmentShaderResource

var resourceStateNames = []struct {
	state ResourceState
	name  string
}{
	{ResourceStateVertexAndUniformBuffer, "VertexAndUniformBuffer"},
	{ResourceStateIndexBuffer, "IndexBuffer"},
	{ResourceStateRenderTarget, "RenderTarget"},
	{ResourceStateUnorderedAccess, "UnorderedAccess"},
	{ResourceStateDepthWrite, "DepthWrite"},
	{ResourceStateDepthRead, "DepthRead"},
	{ResourceStateNonFragmentShaderResource, "NonFragmentShaderResource"},
	{ResourceStateFragmentShaderResource, "FragmentShaderResource"},
	{ResourceStateIndirectArgument, "IndirectArgument"},
	{ResourceStateCopyDst, "CopyDst"},
	{ResourceStateCopySrc, "CopySrc"},
	{ResourceStatePresent, "Present"},
}

// String returns a human-readable name for the state, joining set flags
// with "|". The zero state reads "Undefined".
func (s ResourceState) String() string {
	if s == ResourceStateUndefined {
		return "Undefined"
	}
	if s&ResourceStateShaderResource == ResourceStateShaderResource {
		rest := s &^ ResourceStateShaderResource
		if rest == 0 {
			return "ShaderResource"
		}
	}
	var parts []string
	for _, e := range resourceStateNames {
		if s&e.state != 0 {
			parts = append(parts, e.name)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Unknown(0x%x)", uint32(s))
	}
	return strings.Join(parts, "|")
}

// ImageBarrier is one image state transition within a barrier batch.
type ImageBarrier struct {
	// Image is the image being transitioned.
	Image Image

	// From is the state the image is assumed to be in.
	From ResourceState

	// To is the state the image transitions to.
	To ResourceState
}

// BarrierBatch accumulates image transitions to be issued as a single
// pipeline barrier. Entries are kept in insertion order; the executor
// relies on input transitions preceding output transitions.
//
// The zero value is an empty batch ready for use.
type BarrierBatch struct {
	images []ImageBarrier
}

// AddImage appends an image transition to the batch and returns the batch
// for chaining.
func (b *BarrierBatch) AddImage(img Image, from, to ResourceState) *BarrierBatch {
	b.images = append(b.images, ImageBarrier{Image: img, From: from, To: to})
	return b
}

// ImageBarriers returns the accumulated image transitions in insertion order.
func (b *BarrierBatch) ImageBarriers() []ImageBarrier {
	return b.images
}

// Len returns the number of transitions in the batch.
func (b *BarrierBatch) Len() int { return len(b.images) }
