// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"encoding/json"
	"fmt"

	"github.com/gogpu/gputypes"
)

// LoadOp specifies what happens to an attachment's contents when a
// rendering scope begins.
type LoadOp uint8

const (
	// LoadOpDontCare leaves the previous contents undefined.
	LoadOpDontCare LoadOp = iota

	// LoadOpLoad preserves the previous contents.
	LoadOpLoad

	// LoadOpClear clears the attachment to its clear value.
	LoadOpClear
)

// String returns the string representation of the load operation.
func (op LoadOp) String() string {
	switch op {
	case LoadOpDontCare:
		return "DontCare"
	case LoadOpLoad:
		return "Load"
	case LoadOpClear:
		return "Clear"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(op))
	}
}

// MarshalJSON encodes the load operation as its lowercase name.
func (op LoadOp) MarshalJSON() ([]byte, error) {
	switch op {
	case LoadOpDontCare:
		return json.Marshal("dont_care")
	case LoadOpLoad:
		return json.Marshal("load")
	case LoadOpClear:
		return json.Marshal("clear")
	default:
		return nil, fmt.Errorf("framegraph: unknown load op %d", uint8(op))
	}
}

// UnmarshalJSON decodes a load operation from its lowercase name.
func (op *LoadOp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "dont_care":
		*op = LoadOpDontCare
	case "load":
		*op = LoadOpLoad
	case "clear":
		*op = LoadOpClear
	default:
		return fmt.Errorf("framegraph: unknown load op %q", s)
	}
	return nil
}

// ColorAttachment describes one color attachment of a rendering scope.
type ColorAttachment struct {
	// Image is the attachment image.
	Image Image

	// Format is the attachment pixel format.
	Format gputypes.TextureFormat

	// LoadOp is applied to the attachment contents when rendering begins.
	LoadOp LoadOp

	// ClearValue is the RGBA clear color used when LoadOp is LoadOpClear.
	ClearValue [4]float32
}

// DepthStencilAttachment describes the depth attachment of a rendering scope.
type DepthStencilAttachment struct {
	// Image is the attachment image.
	Image Image

	// Format is the attachment pixel format.
	Format gputypes.TextureFormat

	// DepthLoadOp is applied to the depth aspect when rendering begins.
	DepthLoadOp LoadOp

	// StencilLoadOp is applied to the stencil aspect when rendering begins.
	StencilLoadOp LoadOp

	// ClearDepth is the depth clear value used when DepthLoadOp is LoadOpClear.
	ClearDepth float32

	// ClearStencil is the stencil clear value.
	ClearStencil uint32
}

// RenderingState is the precomputed attachment/extent descriptor a node
// renders with. The compiler synthesizes one per enabled node from its
// attachment outputs; [CommandRecorder.BeginRendering] consumes it.
type RenderingState struct {
	// ColorAttachments are the color attachments in output declaration order.
	ColorAttachments []ColorAttachment

	// DepthAttachment is the depth attachment, or nil if the node has none.
	DepthAttachment *DepthStencilAttachment

	// Width and Height are the shared extent of all attachments.
	Width  uint32
	Height uint32
}

// FormatHasDepth reports whether the format carries a depth aspect.
// Depth-format attachment outputs become depth attachments and transition
// to DepthWrite instead of RenderTarget.
func FormatHasDepth(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatDepth16Unorm,
		gputypes.TextureFormatDepth24Plus,
		gputypes.TextureFormatDepth24PlusStencil8,
		gputypes.TextureFormatDepth32Float:
		return true
	default:
		return false
	}
}
