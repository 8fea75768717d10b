package framegraph

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
)

// Resource errors.
var (
	// ErrNotImage is returned when an image accessor is called on a
	// resource without image metadata.
	ErrNotImage = errors.New("framegraph: resource is not an image")

	// ErrImageNotAllocated is returned when a resource's GPU image is
	// requested before compilation has allocated it.
	ErrImageNotAllocated = errors.New("framegraph: resource has no allocated GPU image")
)

// ResourceType classifies a graph resource.
type ResourceType uint8

const (
	// ResourceBuffer is a GPU buffer resource.
	ResourceBuffer ResourceType = iota

	// ResourceTexture is an image sampled by a consuming pass.
	ResourceTexture

	// ResourceAttachment is an image rendered to by its producer.
	ResourceAttachment

	// ResourceReference is a name-only alias that owns no storage.
	ResourceReference
)

// String returns the string representation of the resource type.
func (t ResourceType) String() string {
	switch t {
	case ResourceBuffer:
		return "Buffer"
	case ResourceTexture:
		return "Texture"
	case ResourceAttachment:
		return "Attachment"
	case ResourceReference:
		return "Reference"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// MarshalJSON encodes the resource type as its lowercase name.
func (t ResourceType) MarshalJSON() ([]byte, error) {
	switch t {
	case ResourceBuffer:
		return json.Marshal("buffer")
	case ResourceTexture:
		return json.Marshal("texture")
	case ResourceAttachment:
		return json.Marshal("attachment")
	case ResourceReference:
		return json.Marshal("reference")
	default:
		return nil, fmt.Errorf("framegraph: unknown resource type %d", uint8(t))
	}
}

// UnmarshalJSON decodes a resource type from its lowercase name.
func (t *ResourceType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "buffer":
		*t = ResourceBuffer
	case "texture":
		*t = ResourceTexture
	case "attachment":
		*t = ResourceAttachment
	case "reference":
		*t = ResourceReference
	default:
		return fmt.Errorf("framegraph: unknown resource type %q", s)
	}
	return nil
}

// BufferInfo is the buffer metadata of a resource.
type BufferInfo struct {
	// Buffer is the GPU buffer, nil until bound.
	Buffer Buffer

	// Size is the buffer size in bytes.
	Size uint64

	// Usage specifies how the buffer is used.
	Usage gputypes.BufferUsage
}

// ImageInfo is the image metadata of a resource. For graph-allocated
// attachments the compiler fills Image during Compile; external resources
// carry their Image from the start.
type ImageInfo struct {
	// Image is the GPU image, nil until allocated or supplied externally.
	Image Image

	// Width, Height, Depth are the image extent.
	Width  uint32
	Height uint32
	Depth  uint32

	// Format is the image pixel format.
	Format gputypes.TextureFormat

	// Usage specifies how the image is used.
	Usage gputypes.TextureUsage

	// LoadOp is the attachment load policy for color outputs.
	LoadOp LoadOp
}

// ResourceInfo is the union-like payload of a resource: buffer metadata,
// image metadata, or neither (references).
type ResourceInfo struct {
	// Buffer is set for buffer resources.
	Buffer *BufferInfo

	// Image is set for texture and attachment resources.
	Image *ImageInfo

	// External marks resources whose backing objects are supplied by the
	// caller; the compiler never allocates or reclaims them.
	External bool
}

// NewAttachmentInfo builds the ResourceInfo for a graph-allocated 2D
// attachment of the given extent and format. The usage flag is derived
// from the format: depth formats get a depth attachment usage, color
// formats a render attachment usage.
func NewAttachmentInfo(width, height uint32, format gputypes.TextureFormat) ResourceInfo {
	usage := gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding
	return ResourceInfo{
		Image: &ImageInfo{
			Width:  width,
			Height: height,
			Depth:  1,
			Format: format,
			Usage:  usage,
			LoadOp: LoadOpClear,
		},
	}
}

// Resource is one record in the builder's resource pool.
//
// Every input resource has Output pointing at the record of the output with
// the same name; inputs never own Info directly, they copy it from their
// output during compilation.
type Resource struct {
	// Type classifies the resource.
	Type ResourceType

	// Info is the resource payload.
	Info ResourceInfo

	// Producer is the node that outputs this resource, or invalid for inputs
	// before compilation resolves them.
	Producer NodeRef

	// Output is the canonical output resource this record resolves to.
	// Outputs point at themselves; inputs are resolved during compilation.
	Output ResourceRef

	// RefCount is the number of consuming inputs still pending during the
	// compiler's allocation walk. It must never go negative.
	RefCount int32

	// Name is the unique key tying outputs to the inputs that consume them.
	Name string
}

// GPUImage returns the resource's allocated GPU image.
func (r *Resource) GPUImage() (Image, error) {
	if r.Info.Image == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotImage, r.Name)
	}
	if r.Info.Image.Image == nil {
		return nil, fmt.Errorf("%w: %q", ErrImageNotAllocated, r.Name)
	}
	return r.Info.Image.Image, nil
}
