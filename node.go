package framegraph

// InputDesc declares one input slot of a node. Name refers to the output
// resource the input originates from; the dependency edge is derived from
// that name at compile time.
type InputDesc struct {
	// Type classifies the input.
	Type ResourceType

	// Name of the output resource this input originates from.
	Name string
}

// OutputDesc declares one output slot of a node.
type OutputDesc struct {
	// Type classifies the output.
	Type ResourceType

	// Name is the unique resource name consumers refer to.
	Name string

	// Info is the resource payload. For non-external attachments only the
	// extent/format/usage fields matter; the compiler allocates the image.
	Info ResourceInfo
}

// NodeDesc declares one render pass node.
type NodeDesc struct {
	// Name is the unique node name, also used to bind a RenderPass.
	Name string

	// Enabled toggles the node for conditional graph subsets.
	Enabled bool

	// Inputs are the node's input slots in declaration order.
	Inputs []InputDesc

	// Outputs are the node's output slots in declaration order.
	Outputs []OutputDesc
}

// Node is one render pass in the graph.
//
// Edges and RenderingState are recomputed on every [Graph.Compile] call
// (cleared then rebuilt), so the graph may be extended or modified between
// compiles. Node identity (pool index) is stable across compiles.
type Node struct {
	// Name is the unique node name.
	Name string

	// Inputs are references to the node's input resources.
	Inputs []ResourceRef

	// Outputs are references to the node's output resources.
	Outputs []ResourceRef

	// Edges are the successor nodes, populated by the compiler from
	// input-to-producer links.
	Edges []NodeRef

	// Enabled toggles the node; disabled nodes are skipped by compilation
	// and execution but stay resolvable by name.
	Enabled bool

	// RenderingState is the lazily computed attachment/extent descriptor.
	RenderingState *RenderingState

	// Pass is the render pass callback bound to this node, or nil.
	Pass RenderPass
}
