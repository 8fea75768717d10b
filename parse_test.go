package framegraph

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gputypes"
)

const deferredJSON = `{
  "name": "deferred",
  "passes": [
    {
      "name": "gbuffer_pass",
      "inputs": [],
      "outputs": [
        {
          "type": "attachment",
          "name": "gbuffer_colour",
          "image": {
            "format": "rgba8unorm",
            "resolution": [1280, 800],
            "load_op": "clear"
          }
        },
        {
          "type": "attachment",
          "name": "gbuffer_depth",
          "image": {
            "format": "depth32float",
            "resolution": [1280, 800],
            "load_op": "clear"
          }
        }
      ]
    },
    {
      "name": "lighting_pass",
      "inputs": [
        {"type": "texture", "name": "gbuffer_colour"},
        {"type": "texture", "name": "gbuffer_depth"}
      ],
      "outputs": [
        {
          "type": "attachment",
          "name": "final",
          "image": {
            "format": "rgba8unorm",
            "resolution": [1280, 800],
            "load_op": "dont_care"
          }
        }
      ]
    }
  ]
}`

func TestParseGraph(t *testing.T) {
	g, err := ParseGraph([]byte(deferredJSON))
	if err != nil {
		t.Fatalf("ParseGraph: %v", err)
	}

	b := g.Builder()
	if b.NodeCount() != 2 {
		t.Fatalf("NodeCount = %d, want 2", b.NodeCount())
	}

	gbuffer, err := b.NodeByName("gbuffer_pass")
	if err != nil {
		t.Fatalf("NodeByName: %v", err)
	}
	if len(gbuffer.Outputs) != 2 || len(gbuffer.Inputs) != 0 {
		t.Fatalf("gbuffer slots = %d in / %d out, want 0/2", len(gbuffer.Inputs), len(gbuffer.Outputs))
	}

	colour, err := b.ResourceByName("gbuffer_colour")
	if err != nil {
		t.Fatalf("ResourceByName: %v", err)
	}
	if colour.Type != ResourceAttachment {
		t.Errorf("gbuffer_colour type = %v, want Attachment", colour.Type)
	}
	info := colour.Info.Image
	if info == nil {
		t.Fatal("gbuffer_colour has no image info")
	}
	if info.Width != 1280 || info.Height != 800 {
		t.Errorf("gbuffer_colour extent = %dx%d, want 1280x800", info.Width, info.Height)
	}
	if info.Format != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("gbuffer_colour format = %v, want RGBA8Unorm", info.Format)
	}
	if info.LoadOp != LoadOpClear {
		t.Errorf("gbuffer_colour load op = %v, want Clear", info.LoadOp)
	}

	depth, err := b.ResourceByName("gbuffer_depth")
	if err != nil {
		t.Fatalf("ResourceByName: %v", err)
	}
	if depth.Info.Image.Format != gputypes.TextureFormatDepth32Float {
		t.Errorf("gbuffer_depth format = %v, want Depth32Float", depth.Info.Image.Format)
	}

	final, err := b.ResourceByName("final")
	if err != nil {
		t.Fatalf("ResourceByName: %v", err)
	}
	if final.Info.Image.LoadOp != LoadOpDontCare {
		t.Errorf("final load op = %v, want DontCare", final.Info.Image.LoadOp)
	}

	// The parsed graph compiles end to end.
	if err := g.Compile(&fakeDevice{}); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got := nodeNames(g)
	if got[0] != "gbuffer_pass" || got[1] != "lighting_pass" {
		t.Errorf("execution order = %v", got)
	}
}

func TestParseGraphErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"passes": [`},
		{"unknown format", `{"passes": [{"name": "p", "outputs": [
			{"type": "attachment", "name": "o",
			 "image": {"format": "rgba128", "resolution": [1, 1], "load_op": "clear"}}]}]}`},
		{"unknown type", `{"passes": [{"name": "p", "outputs": [{"type": "blob", "name": "o"}]}]}`},
		{"unknown load op", `{"passes": [{"name": "p", "outputs": [
			{"type": "attachment", "name": "o",
			 "image": {"format": "rgba8unorm", "resolution": [1, 1], "load_op": "keep"}}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseGraph([]byte(tt.json)); err == nil {
				t.Error("ParseGraph succeeded, want error")
			}
		})
	}
}

func TestParseTextureFormat(t *testing.T) {
	f, err := ParseTextureFormat("depth24plus_stencil8")
	if err != nil {
		t.Fatalf("ParseTextureFormat: %v", err)
	}
	if f != gputypes.TextureFormatDepth24PlusStencil8 {
		t.Errorf("format = %v, want Depth24PlusStencil8", f)
	}
	if _, err := ParseTextureFormat("nope"); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestParseGraphFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	if err := os.WriteFile(path, []byte(deferredJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	g, err := ParseGraphFile(path)
	if err != nil {
		t.Fatalf("ParseGraphFile: %v", err)
	}
	if g.Builder().NodeCount() != 2 {
		t.Errorf("NodeCount = %d, want 2", g.Builder().NodeCount())
	}

	_, err = ParseGraphFile(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want ErrNotExist", err)
	}
}
