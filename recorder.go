// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

// CommandRecorder is the sequential command recording surface the executor
// and render passes draw through. It wraps one underlying native command
// list per (frame slot, thread) cell; frame.RecorderPool hands recorders
// out and recycles them with the frame slot.
//
// Lifecycle per node: Begin, PipelineBarrier, BeginRendering, pass draws,
// EndRendering, End. Recorders are not safe for concurrent use.
type CommandRecorder interface {
	// Begin starts recording. Beginning an already-recording recorder is a
	// no-op with a warning, matching one-time-submit command list semantics.
	Begin() error

	// End finishes recording. The recorded commands stay valid until the
	// owning frame slot's pool is reset.
	End() error

	// PipelineBarrier issues the batch's image transitions. Transitions are
	// applied in batch insertion order.
	PipelineBarrier(batch *BarrierBatch)

	// BeginRendering opens a dynamic-rendering scope with the given
	// precomputed attachment state.
	BeginRendering(state *RenderingState)

	// EndRendering closes the current dynamic-rendering scope.
	EndRendering()

	// BindPipeline binds an externally owned pipeline for subsequent draws
	// or dispatches. The graph core forwards the handle without inspecting
	// it; pipeline and descriptor-set construction live with the host.
	BindPipeline(pipeline Pipeline)

	// BindVertexBuffer binds a vertex buffer to the given binding slot.
	BindVertexBuffer(buf Buffer, binding uint32, offset uint64)

	// BindIndexBuffer binds the index buffer for subsequent indexed draws.
	BindIndexBuffer(buf Buffer, offset uint64)

	// Draw records a non-indexed draw.
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)

	// DrawIndexed records an indexed draw.
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)

	// Dispatch records a compute dispatch.
	Dispatch(groupCountX, groupCountY, groupCountZ uint32)

	// CopyBuffer records a buffer-to-buffer copy.
	CopyBuffer(src, dst Buffer, srcOffset, dstOffset, size uint64)
}

// RenderPass is the external pass collaborator invoked by [Graph.Render].
// Implementations own the actual draw-call emission; the executor only
// brackets them with barriers and the rendering scope.
type RenderPass interface {
	// PreRender runs before the node's rendering scope begins, outside
	// BeginRendering/EndRendering. Use it for copies and uploads.
	PreRender(rec CommandRecorder) error

	// Render emits the pass's draw calls inside the rendering scope.
	Render(rec CommandRecorder) error

	// Name returns the pass name, matched against node names at
	// registration time.
	Name() string
}
