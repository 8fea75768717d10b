package framegraph

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gogpu/gputypes"
)

// GraphDesc is the declarative JSON form of a frame graph: named passes
// with typed inputs and outputs. [ParseGraph] lowers it into Builder calls;
// the core consumes only the resulting Graph, never the JSON itself.
//
// Example:
//
//	{
//	  "name": "deferred",
//	  "passes": [
//	    {
//	      "name": "gbuffer_pass",
//	      "inputs": [],
//	      "outputs": [
//	        {"type": "attachment", "name": "gbuffer_colour",
//	         "image": {"format": "rgba8unorm", "resolution": [1280, 800], "load_op": "clear"}}
//	      ]
//	    }
//	  ]
//	}
type GraphDesc struct {
	// Name labels the graph for diagnostics.
	Name string `json:"name"`

	// Passes are the graph's nodes in declaration order.
	Passes []PassDesc `json:"passes"`
}

// PassDesc is one pass of a GraphDesc.
type PassDesc struct {
	Name    string           `json:"name"`
	Inputs  []PassInputDesc  `json:"inputs"`
	Outputs []PassOutputDesc `json:"outputs"`
}

// PassInputDesc is one declared input of a pass.
type PassInputDesc struct {
	Type ResourceType `json:"type"`
	Name string       `json:"name"`
}

// PassOutputDesc is one declared output of a pass.
type PassOutputDesc struct {
	Type  ResourceType   `json:"type"`
	Name  string         `json:"name"`
	Image *PassImageDesc `json:"image,omitempty"`
}

// PassImageDesc is the image metadata of a declared output.
type PassImageDesc struct {
	Format     string    `json:"format"`
	Resolution [2]uint32 `json:"resolution"`
	LoadOp     LoadOp    `json:"load_op"`
}

// textureFormats maps the JSON format names to gputypes formats.
var textureFormats = map[string]gputypes.TextureFormat{
	"rgba8unorm":           gputypes.TextureFormatRGBA8Unorm,
	"bgra8unorm":           gputypes.TextureFormatBGRA8Unorm,
	"r8unorm":              gputypes.TextureFormatR8Unorm,
	"depth16unorm":         gputypes.TextureFormatDepth16Unorm,
	"depth24plus":          gputypes.TextureFormatDepth24Plus,
	"depth24plus_stencil8": gputypes.TextureFormatDepth24PlusStencil8,
	"depth32float":         gputypes.TextureFormatDepth32Float,
}

// ParseTextureFormat resolves a JSON format name to a gputypes format.
func ParseTextureFormat(name string) (gputypes.TextureFormat, error) {
	f, ok := textureFormats[name]
	if !ok {
		return gputypes.TextureFormatUndefined, fmt.Errorf("framegraph: unknown texture format %q", name)
	}
	return f, nil
}

// resourceInfo lowers the image metadata into a ResourceInfo, deriving the
// usage flags from the format.
func (d *PassImageDesc) resourceInfo() (ResourceInfo, error) {
	format, err := ParseTextureFormat(d.Format)
	if err != nil {
		return ResourceInfo{}, err
	}
	info := NewAttachmentInfo(d.Resolution[0], d.Resolution[1], format)
	info.Image.LoadOp = d.LoadOp
	return info, nil
}

// BuildGraph lowers the description into a fresh Builder and returns the
// built Graph with nodes in pass declaration order. The graph still needs
// Compile before rendering.
func BuildGraph(desc *GraphDesc) (*Graph, error) {
	builder := NewBuilder()
	order := make([]NodeRef, 0, len(desc.Passes))

	for _, pass := range desc.Passes {
		nodeDesc := NodeDesc{
			Name:    pass.Name,
			Enabled: true,
		}
		for _, in := range pass.Inputs {
			nodeDesc.Inputs = append(nodeDesc.Inputs, InputDesc{
				Type: in.Type,
				Name: in.Name,
			})
		}
		for _, out := range pass.Outputs {
			outDesc := OutputDesc{
				Type: out.Type,
				Name: out.Name,
			}
			if out.Image != nil {
				info, err := out.Image.resourceInfo()
				if err != nil {
					return nil, fmt.Errorf("pass %q output %q: %w", pass.Name, out.Name, err)
				}
				outDesc.Info = info
			}
			nodeDesc.Outputs = append(nodeDesc.Outputs, outDesc)
		}
		order = append(order, builder.CreateNode(nodeDesc))
	}

	return builder.Build(order), nil
}

// ParseGraph decodes a JSON graph description and lowers it into a Graph.
func ParseGraph(data []byte) (*Graph, error) {
	var desc GraphDesc
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("framegraph: parsing graph description: %w", err)
	}
	return BuildGraph(&desc)
}

// ParseGraphFile reads and parses a JSON graph description file.
func ParseGraphFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("framegraph: reading graph description: %w", err)
	}
	return ParseGraph(data)
}
