package framegraph

import (
	"errors"
	"fmt"
)

// Compilation errors.
var (
	// ErrGraphCycle is returned when the enabled node subset cannot be
	// topologically ordered.
	ErrGraphCycle = errors.New("framegraph: graph contains a cycle")

	// ErrAttachmentExtentMismatch is returned when a node's attachments
	// disagree on width or height.
	ErrAttachmentExtentMismatch = errors.New("framegraph: attachment extents differ within a node")
)

// dfs visit states.
const (
	unvisited uint8 = iota
	onStack
	finished
)

// freeImage is a retired attachment image available for aliasing reuse.
type freeImage struct {
	image  Image
	format imageKey
}

// imageKey identifies aliasing-compatible images.
type imageKey struct {
	width, height, depth uint32
	format               uint32
}

// Graph pairs the builder's pools with an execution order. Before Compile
// the order is whatever the caller passed to [Builder.Build]; afterwards it
// is the compiler's topological order over the enabled nodes.
type Graph struct {
	builder *Builder
	nodes   []NodeRef
}

// Builder returns the owned builder, for direct pool access.
func (g *Graph) Builder() *Builder { return g.builder }

// Nodes returns the current execution order.
func (g *Graph) Nodes() []NodeRef { return g.nodes }

// RegisterRenderPass binds a render pass callback to the node of the same
// name. The pass is invoked by [Graph.Render] for every frame the node is
// enabled.
func (g *Graph) RegisterRenderPass(name string, pass RenderPass) error {
	node, err := g.builder.NodeByName(name)
	if err != nil {
		return err
	}
	node.Pass = pass
	return nil
}

// EnableRenderPass enables the named node.
func (g *Graph) EnableRenderPass(name string) error {
	node, err := g.builder.NodeByName(name)
	if err != nil {
		return err
	}
	node.Enabled = true
	return nil
}

// DisableRenderPass disables the named node. Disabled nodes are excluded
// from edge computation, sorting, allocation, and execution, but remain
// resolvable by name.
func (g *Graph) DisableRenderPass(name string) error {
	node, err := g.builder.NodeByName(name)
	if err != nil {
		return err
	}
	node.Enabled = false
	return nil
}

// Compile derives dependency edges from resource names, topologically sorts
// the enabled nodes, allocates GPU images for graph-owned attachment
// outputs, and synthesizes per-node rendering state.
//
// Compile is idempotent: edges and the execution order are cleared and
// rebuilt on every call, and outputs that already carry an image are not
// reallocated, so an unmodified graph compiles to the same order and the
// same image bindings. Any error leaves the previous execution order in
// place.
func (g *Graph) Compile(device Device) error {
	b := g.builder

	// Clear derived node state so recompilation starts from builder state only.
	for i := range b.nodes {
		b.nodes[i].Edges = b.nodes[i].Edges[:0]
		b.nodes[i].RenderingState = nil
	}

	if err := g.computeEdges(); err != nil {
		return err
	}

	sorted, err := g.sortNodes()
	if err != nil {
		return err
	}

	if err := g.countReferences(); err != nil {
		return err
	}

	if err := g.allocateResources(device, sorted); err != nil {
		return err
	}

	if err := g.createRenderingStates(sorted); err != nil {
		return err
	}

	g.nodes = sorted
	Logger().Debug("graph compiled", "nodes", len(sorted))
	return nil
}

// computeEdges resolves every enabled node's inputs against the same-named
// outputs and appends forward edges to the producing nodes. Names are the
// graph's edge language; after this pass the hot paths never compare
// strings again.
func (g *Graph) computeEdges() error {
	b := g.builder
	for i := range b.nodes {
		node := &b.nodes[i]
		if !node.Enabled {
			continue
		}
		for _, inRef := range node.Inputs {
			in, err := b.Resource(inRef)
			if err != nil {
				return err
			}
			out, err := b.ResourceByName(in.Name)
			if err != nil {
				return fmt.Errorf("node %q input %q: %w", node.Name, in.Name, err)
			}

			in.Producer = out.Producer
			in.Info = out.Info
			in.Output = out.Output

			if producer, err := b.Node(out.Producer); err == nil {
				producer.Edges = append(producer.Edges, NodeRef(i))
			}
		}
	}
	return nil
}

// sortNodes topologically orders the enabled node subset, producers before
// consumers, via an iterative three-state DFS. The visited array is sized
// from the live node pool. A back edge, or a sorted count that disagrees
// with the enabled count, reports ErrGraphCycle.
func (g *Graph) sortNodes() ([]NodeRef, error) {
	b := g.builder

	visited := make([]uint8, len(b.nodes))
	sorted := make([]NodeRef, 0, len(b.nodes))
	var stack []NodeRef

	enabled := 0
	for i := range b.nodes {
		if !b.nodes[i].Enabled {
			continue
		}
		enabled++
		if visited[i] != unvisited {
			continue
		}

		stack = append(stack, NodeRef(i))
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			switch visited[current] {
			case finished:
				stack = stack[:len(stack)-1]
			case onStack:
				visited[current] = finished
				stack = stack[:len(stack)-1]
				sorted = append(sorted, current)
			default:
				visited[current] = onStack
				for _, edge := range b.nodes[current].Edges {
					switch visited[edge] {
					case unvisited:
						stack = append(stack, edge)
					case onStack:
						return nil, fmt.Errorf("%w: %q depends on itself through %q",
							ErrGraphCycle, b.nodes[current].Name, b.nodes[edge].Name)
					}
				}
			}
		}
	}

	if len(sorted) != enabled {
		return nil, fmt.Errorf("%w: sorted %d of %d enabled nodes",
			ErrGraphCycle, len(sorted), enabled)
	}

	// DFS finishes consumers first; reverse for execution order.
	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}
	return sorted, nil
}

// countReferences precomputes, for every output resource, the number of
// enabled inputs that consume it. The allocation walk releases these
// references to drive the aliasing free list.
func (g *Graph) countReferences() error {
	b := g.builder
	for i := range b.nodes {
		node := &b.nodes[i]
		if !node.Enabled {
			continue
		}
		for _, inRef := range node.Inputs {
			in, err := b.Resource(inRef)
			if err != nil {
				return err
			}
			out, err := b.Resource(in.Output)
			if err != nil {
				return err
			}
			out.RefCount++
		}
	}
	return nil
}

// allocateResources walks the sorted order, allocating a GPU image for
// every graph-owned attachment output that lacks one, and releasing input
// references as each node consumes them. An output whose reference count
// reaches zero donates its image to the free list, and a later allocation
// of compatible format and extent reuses it instead of allocating fresh.
func (g *Graph) allocateResources(device Device, sorted []NodeRef) error {
	b := g.builder
	var freeList []freeImage

	for _, nodeRef := range sorted {
		node := &b.nodes[nodeRef]

		for _, outRef := range node.Outputs {
			out, err := b.Resource(outRef)
			if err != nil {
				return err
			}
			if out.Info.External || out.Type != ResourceAttachment {
				continue
			}
			info := out.Info.Image
			if info == nil || info.Image != nil {
				continue
			}

			key := imageKey{info.Width, info.Height, info.Depth, uint32(info.Format)}
			if img, ok := takeFreeImage(&freeList, key); ok {
				Logger().Debug("aliasing retired image for node output",
					"node", node.Name, "resource", out.Name)
				info.Image = img
				continue
			}

			Logger().Debug("creating GPU image for node output",
				"node", node.Name, "resource", out.Name,
				"width", info.Width, "height", info.Height, "format", info.Format)
			img, err := device.CreateImage(ImageDesc{
				Label:  out.Name,
				Width:  info.Width,
				Height: info.Height,
				Depth:  info.Depth,
				Format: info.Format,
				Usage:  info.Usage,
			})
			if err != nil {
				return fmt.Errorf("node %q output %q: %w", node.Name, out.Name, err)
			}
			info.Image = img
		}

		for _, inRef := range node.Inputs {
			in, err := b.Resource(inRef)
			if err != nil {
				return err
			}
			origin, err := b.Resource(in.Output)
			if err != nil {
				return err
			}

			origin.RefCount--
			if origin.RefCount < 0 {
				panic(fmt.Sprintf("framegraph: ref count underflow on resource %q", origin.Name))
			}

			if origin.RefCount == 0 && !origin.Info.External &&
				(origin.Type == ResourceAttachment || origin.Type == ResourceTexture) {
				if info := origin.Info.Image; info != nil && info.Image != nil {
					freeList = append(freeList, freeImage{
						image:  info.Image,
						format: imageKey{info.Width, info.Height, info.Depth, uint32(info.Format)},
					})
				}
			}
		}
	}
	return nil
}

// takeFreeImage removes and returns the first free-list entry matching key.
func takeFreeImage(list *[]freeImage, key imageKey) (Image, bool) {
	for i, entry := range *list {
		if entry.format == key {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return entry.image, true
		}
	}
	return nil, false
}

// createRenderingStates synthesizes the attachment/extent descriptor for
// every sorted node that lacks one.
func (g *Graph) createRenderingStates(sorted []NodeRef) error {
	b := g.builder
	for _, nodeRef := range sorted {
		node := &b.nodes[nodeRef]
		if node.RenderingState != nil {
			continue
		}
		state, err := g.renderingStateFor(node)
		if err != nil {
			return err
		}
		node.RenderingState = state
	}
	return nil
}

// renderingStateFor scans a node's attachment outputs: depth-format outputs
// become the depth attachment cleared to depth 1.0 / stencil 0, color
// outputs become color attachments cleared to white with the output's
// configured load policy. All attachments of one node must share an extent.
func (g *Graph) renderingStateFor(node *Node) (*RenderingState, error) {
	state := &RenderingState{}
	var width, height uint32

	for _, outRef := range node.Outputs {
		out, err := g.builder.Resource(outRef)
		if err != nil {
			return nil, err
		}
		if out.Type != ResourceAttachment {
			continue
		}
		info := out.Info.Image
		img, err := out.GPUImage()
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", node.Name, err)
		}

		if FormatHasDepth(info.Format) {
			state.DepthAttachment = &DepthStencilAttachment{
				Image:        img,
				Format:       info.Format,
				DepthLoadOp:  LoadOpClear,
				ClearDepth:   1.0,
				ClearStencil: 0,
			}
		} else {
			state.ColorAttachments = append(state.ColorAttachments, ColorAttachment{
				Image:      img,
				Format:     info.Format,
				LoadOp:     info.LoadOp,
				ClearValue: [4]float32{1, 1, 1, 1},
			})
		}

		if width != 0 && info.Width != width {
			return nil, fmt.Errorf("%w: node %q output %q is %dx%d, want width %d",
				ErrAttachmentExtentMismatch, node.Name, out.Name, info.Width, info.Height, width)
		}
		if height != 0 && info.Height != height {
			return nil, fmt.Errorf("%w: node %q output %q is %dx%d, want height %d",
				ErrAttachmentExtentMismatch, node.Name, out.Name, info.Width, info.Height, height)
		}
		width, height = info.Width, info.Height
	}

	state.Width, state.Height = width, height
	return state, nil
}

// Render walks the compiled node order, issuing each node's resource-state
// transition barriers and invoking its render pass callback.
//
// Barriers are recomputed every frame from the static Undefined assumption
// for attachments: every attachment is produced fresh each frame, so no
// cross-frame state tracking is needed. Texture inputs transition from
// RenderTarget to ShaderResource, attachment outputs from Undefined to
// DepthWrite or RenderTarget.
func (g *Graph) Render(rec CommandRecorder) error {
	b := g.builder
	for _, nodeRef := range g.nodes {
		node, err := b.Node(nodeRef)
		if err != nil {
			return err
		}
		if !node.Enabled {
			continue
		}

		var batch BarrierBatch

		for _, inRef := range node.Inputs {
			in, err := b.Resource(inRef)
			if err != nil {
				return err
			}
			if in.Type != ResourceTexture {
				continue
			}
			img, err := in.GPUImage()
			if err != nil {
				return fmt.Errorf("node %q input %q: %w", node.Name, in.Name, err)
			}
			batch.AddImage(img, ResourceStateRenderTarget, ResourceStateShaderResource)
		}

		for _, outRef := range node.Outputs {
			out, err := b.Resource(outRef)
			if err != nil {
				return err
			}
			if out.Type != ResourceAttachment {
				continue
			}
			img, err := out.GPUImage()
			if err != nil {
				return fmt.Errorf("node %q output %q: %w", node.Name, out.Name, err)
			}
			if FormatHasDepth(out.Info.Image.Format) {
				batch.AddImage(img, ResourceStateUndefined, ResourceStateDepthWrite)
			} else {
				batch.AddImage(img, ResourceStateUndefined, ResourceStateRenderTarget)
			}
		}

		if err := rec.Begin(); err != nil {
			return err
		}
		rec.PipelineBarrier(&batch)

		if node.Pass != nil {
			if err := node.Pass.PreRender(rec); err != nil {
				return fmt.Errorf("pass %q pre-render: %w", node.Name, err)
			}
			rec.BeginRendering(node.RenderingState)
			if err := node.Pass.Render(rec); err != nil {
				return fmt.Errorf("pass %q render: %w", node.Name, err)
			}
			rec.EndRendering()
		}

		if err := rec.End(); err != nil {
			return err
		}
	}
	return nil
}
