// Package framegraph provides a render-graph compiler and executor for
// real-time rendering on top of the GoGPU stack.
//
// # Overview
//
// A frame graph describes one frame of rendering as a set of named passes
// ("nodes"), each declaring typed input and output resources. Dependencies
// between passes are derived purely from resource names: a pass that reads
// "gbuffer_colour" depends on whichever pass writes "gbuffer_colour".
//
// The [Builder] accumulates nodes and resources, [Graph.Compile] derives the
// dependency edges, sorts the passes topologically, allocates GPU images for
// graph-owned attachments, and precomputes per-pass rendering state.
// [Graph.Render] then replays the compiled order every frame, inserting the
// required resource-state transition barriers before each pass.
//
// # Quick Start
//
//	builder := framegraph.NewBuilder()
//	builder.CreateNode(framegraph.NodeDesc{
//	    Name:    "gbuffer_pass",
//	    Enabled: true,
//	    Outputs: []framegraph.OutputDesc{{
//	        Type: framegraph.ResourceAttachment,
//	        Name: "gbuffer_colour",
//	        Info: framegraph.NewAttachmentInfo(1280, 800, gputypes.TextureFormatRGBA8Unorm),
//	    }},
//	})
//
//	graph := builder.Build(nil)
//	if err := graph.Compile(device); err != nil { ... }
//
//	// Once per frame, inside a frame.Pacer Begin/End scope:
//	graph.Render(recorder)
//
// # Architecture
//
// The library is organized into:
//   - Root package: Builder, Graph, resource and barrier types
//   - frame/: frame pacing, command-recorder pooling, deferred reclamation
//   - backend/wgpu: device collaborator over gogpu/wgpu
//
// The core never touches a native API directly. GPU access goes through the
// narrow [Device] and [CommandRecorder] interfaces, so the graph can be
// compiled and exercised against fakes in tests and against wgpu in
// production.
//
// # Concurrency
//
// A single goroutine drives compilation and per-frame recording. The
// command-recorder pool is laid out per (frame slot, thread) so multiple
// recording goroutines can be added later, but the graph itself is not safe
// for concurrent mutation.
package framegraph

// Version information
const (
	// Version is the current version of the library
	Version = "0.2.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 2

	// VersionPatch is the patch version
	VersionPatch = 0
)
