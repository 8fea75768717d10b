package framegraph

import (
	"errors"
	"fmt"
)

// Builder errors.
var (
	// ErrResourceNotFound is returned when a resource name or reference
	// does not resolve.
	ErrResourceNotFound = errors.New("framegraph: resource not found")

	// ErrNodeNotFound is returned when a node name or reference does not
	// resolve.
	ErrNodeNotFound = errors.New("framegraph: node not found")
)

// Builder is the mutable construction-time API of the graph: it owns the
// node and resource pools and the name maps over them. Call [Builder.Build]
// to pair the pools with an execution order and obtain a [Graph].
//
// Builder is not safe for concurrent use.
type Builder struct {
	resources      []Resource
	resourceByName map[string]ResourceRef

	nodes      []Node
	nodeByName map[string]NodeRef
}

// NewBuilder creates an empty graph builder.
func NewBuilder() *Builder {
	return &Builder{
		resourceByName: make(map[string]ResourceRef),
		nodeByName:     make(map[string]NodeRef),
	}
}

// CreateInput registers an unresolved input reference. Inputs do not occupy
// the name map; they are matched to the same-named output at compile time.
func (b *Builder) CreateInput(desc InputDesc) ResourceRef {
	ref := ResourceRef(len(b.resources))
	b.resources = append(b.resources, Resource{
		Type:     desc.Type,
		Name:     desc.Name,
		Producer: InvalidNode(),
		Output:   InvalidResource(),
	})
	return ref
}

// CreateOutput registers an output resource produced by the given node.
// Non-reference outputs claim their name in the resource map; a duplicate
// output name silently overwrites the mapped index, so later inputs resolve
// to the most recently created output of that name.
func (b *Builder) CreateOutput(desc OutputDesc, producer NodeRef) ResourceRef {
	ref := ResourceRef(len(b.resources))
	res := Resource{
		Type:     desc.Type,
		Name:     desc.Name,
		Producer: InvalidNode(),
		Output:   InvalidResource(),
	}

	if desc.Type != ResourceReference {
		res.Info = desc.Info
		res.Output = ref
		res.Producer = producer
		b.resourceByName[desc.Name] = ref
	}

	b.resources = append(b.resources, res)
	return ref
}

// CreateNode allocates a node, registers its name, and creates an output
// resource per OutputDesc (bound to the node as producer) and an input
// resource per InputDesc.
func (b *Builder) CreateNode(desc NodeDesc) NodeRef {
	ref := NodeRef(len(b.nodes))
	b.nodes = append(b.nodes, Node{
		Name:    desc.Name,
		Enabled: desc.Enabled,
	})
	b.nodeByName[desc.Name] = ref

	for _, out := range desc.Outputs {
		outRef := b.CreateOutput(out, ref)
		b.nodes[ref].Outputs = append(b.nodes[ref].Outputs, outRef)
	}
	for _, in := range desc.Inputs {
		inRef := b.CreateInput(in)
		b.nodes[ref].Inputs = append(b.nodes[ref].Inputs, inRef)
	}

	return ref
}

// Resource returns the resource record for the given reference.
func (b *Builder) Resource(ref ResourceRef) (*Resource, error) {
	if !ref.IsValid() || int(ref) >= len(b.resources) {
		return nil, fmt.Errorf("%w: ref %d", ErrResourceNotFound, ref)
	}
	return &b.resources[ref], nil
}

// ResourceByName returns the output resource registered under name.
func (b *Builder) ResourceByName(name string) (*Resource, error) {
	ref, ok := b.resourceByName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrResourceNotFound, name)
	}
	return b.Resource(ref)
}

// ResourceRefByName returns the pool reference registered under name.
func (b *Builder) ResourceRefByName(name string) (ResourceRef, error) {
	ref, ok := b.resourceByName[name]
	if !ok {
		return InvalidResource(), fmt.Errorf("%w: %q", ErrResourceNotFound, name)
	}
	return ref, nil
}

// Node returns the node record for the given reference.
func (b *Builder) Node(ref NodeRef) (*Node, error) {
	if !ref.IsValid() || int(ref) >= len(b.nodes) {
		return nil, fmt.Errorf("%w: ref %d", ErrNodeNotFound, ref)
	}
	return &b.nodes[ref], nil
}

// NodeByName returns the node registered under name.
func (b *Builder) NodeByName(name string) (*Node, error) {
	ref, ok := b.nodeByName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, name)
	}
	return b.Node(ref)
}

// NodeRefByName returns the pool reference registered under name.
func (b *Builder) NodeRefByName(name string) (NodeRef, error) {
	ref, ok := b.nodeByName[name]
	if !ok {
		return InvalidNode(), fmt.Errorf("%w: %q", ErrNodeNotFound, name)
	}
	return ref, nil
}

// NodeCount returns the number of nodes in the pool.
func (b *Builder) NodeCount() int { return len(b.nodes) }

// Build consumes the builder, pairing it with an explicit initial node
// execution list. Pass nil to execute nodes in creation order. The list is
// replaced by the compiler's topological order on the first Compile.
func (b *Builder) Build(order []NodeRef) *Graph {
	if order == nil {
		order = make([]NodeRef, len(b.nodes))
		for i := range order {
			order[i] = NodeRef(i)
		}
	}
	return &Graph{builder: b, nodes: order}
}
