// Command fgcheck validates a frame graph description without a GPU.
//
// It parses a JSON graph description, compiles it against a logical
// device, and prints the execution order, the allocated attachments, and
// the per-pass barrier plan. Compilation errors (unresolved inputs,
// cycles, extent mismatches) are reported with a non-zero exit status.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend/wgpu"
)

func main() {
	var (
		memoryMB = flag.Int("memory", wgpu.DefaultMaxMemoryMB, "memory budget in MB")
		barriers = flag.Bool("barriers", true, "print the per-pass barrier plan")
		verbose  = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: fgcheck [flags] graph.json\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if *verbose {
		framegraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	graph, err := framegraph.ParseGraphFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("fgcheck: %v", err)
	}

	device := wgpu.NewLogicalDevice(*memoryMB)
	if err := graph.Compile(device); err != nil {
		log.Fatalf("fgcheck: compile failed: %v", err)
	}

	printOrder(graph)
	printAllocations(graph, device)
	if *barriers {
		if err := printBarrierPlan(graph); err != nil {
			log.Fatalf("fgcheck: %v", err)
		}
	}
}

func printOrder(g *framegraph.Graph) {
	fmt.Println("execution order:")
	for i, ref := range g.Nodes() {
		node, err := g.Builder().Node(ref)
		if err != nil {
			log.Fatalf("fgcheck: %v", err)
		}
		fmt.Printf("  %2d. %s\n", i+1, node.Name)
	}
}

func printAllocations(g *framegraph.Graph, device *wgpu.LogicalDevice) {
	fmt.Println("attachments:")
	seen := map[framegraph.Image]bool{}
	for _, ref := range g.Nodes() {
		node, _ := g.Builder().Node(ref)
		for _, outRef := range node.Outputs {
			out, err := g.Builder().Resource(outRef)
			if err != nil || out.Type != framegraph.ResourceAttachment {
				continue
			}
			img, err := out.GPUImage()
			if err != nil {
				continue
			}
			aliased := ""
			if seen[img] {
				aliased = "  (aliased)"
			}
			seen[img] = true
			fmt.Printf("  %-24s %4dx%-4d %v%s\n",
				out.Name, img.Width(), img.Height(), img.Format(), aliased)
		}
	}
	fmt.Printf("memory: %s\n", device.Memory())
}

func printBarrierPlan(g *framegraph.Graph) error {
	rec := framegraph.NewCommandLog()
	if err := g.Render(rec); err != nil {
		return err
	}

	var batches [][]framegraph.ImageBarrier
	for _, cmd := range rec.Commands() {
		if cmd.Kind == framegraph.CommandBarrier {
			batches = append(batches, cmd.Barriers)
		}
	}

	fmt.Println("barrier plan:")
	for _, ref := range g.Nodes() {
		node, err := g.Builder().Node(ref)
		if err != nil {
			return err
		}
		// Nodes without images emit no barrier batch.
		if !nodeHasImages(g, node) {
			continue
		}
		if len(batches) == 0 {
			break
		}
		fmt.Printf("  %s:\n", node.Name)
		for _, barrier := range batches[0] {
			fmt.Printf("    %dx%d %v -> %v\n",
				barrier.Image.Width(), barrier.Image.Height(), barrier.From, barrier.To)
		}
		batches = batches[1:]
	}
	return nil
}

func nodeHasImages(g *framegraph.Graph, node *framegraph.Node) bool {
	for _, inRef := range node.Inputs {
		if in, err := g.Builder().Resource(inRef); err == nil && in.Type == framegraph.ResourceTexture {
			return true
		}
	}
	for _, outRef := range node.Outputs {
		if out, err := g.Builder().Resource(outRef); err == nil && out.Type == framegraph.ResourceAttachment {
			return true
		}
	}
	return false
}
