package framegraph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gogpu/gputypes"
)

// fakeImage is an in-memory stand-in for a GPU image.
type fakeImage struct {
	label     string
	width     uint32
	height    uint32
	format    gputypes.TextureFormat
	destroyed bool
}

func (f *fakeImage) Width() uint32                  { return f.width }
func (f *fakeImage) Height() uint32                 { return f.height }
func (f *fakeImage) Format() gputypes.TextureFormat { return f.format }
func (f *fakeImage) Destroy()                       { f.destroyed = true }

// fakeBuffer is an in-memory stand-in for a GPU buffer.
type fakeBuffer struct {
	size      uint64
	usage     gputypes.BufferUsage
	destroyed bool
}

func (f *fakeBuffer) Size() uint64                { return f.size }
func (f *fakeBuffer) Usage() gputypes.BufferUsage { return f.usage }
func (f *fakeBuffer) Destroy()                    { f.destroyed = true }

// fakeDevice counts allocations and remembers every created image.
type fakeDevice struct {
	images  []*fakeImage
	buffers []*fakeBuffer
	fail    bool
}

func (d *fakeDevice) CreateImage(desc ImageDesc) (Image, error) {
	if d.fail {
		return nil, errors.New("device out of memory")
	}
	img := &fakeImage{
		label:  desc.Label,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
	}
	d.images = append(d.images, img)
	return img, nil
}

func (d *fakeDevice) CreateBuffer(desc BufferDesc) (Buffer, error) {
	if d.fail {
		return nil, errors.New("device out of memory")
	}
	buf := &fakeBuffer{size: desc.Size, usage: desc.Usage}
	d.buffers = append(d.buffers, buf)
	return buf, nil
}

// recordingPass records the order of its callbacks.
type recordingPass struct {
	name  string
	calls *[]string
	fail  error
}

func (p *recordingPass) Name() string { return p.name }

func (p *recordingPass) PreRender(rec CommandRecorder) error {
	*p.calls = append(*p.calls, p.name+".pre")
	return p.fail
}

func (p *recordingPass) Render(rec CommandRecorder) error {
	*p.calls = append(*p.calls, p.name+".render")
	rec.Draw(3, 1, 0, 0)
	return nil
}

// buildDeferred builds the two-pass graph used across tests: a gbuffer pass
// producing a color attachment, consumed as a texture by a lighting pass
// that produces the final attachment.
func buildDeferred() *Graph {
	b := NewBuilder()
	b.CreateNode(NodeDesc{
		Name:    "gbuffer_pass",
		Enabled: true,
		Outputs: []OutputDesc{{
			Type: ResourceAttachment,
			Name: "gbuffer_colour",
			Info: NewAttachmentInfo(1280, 800, gputypes.TextureFormatRGBA8Unorm),
		}},
	})
	b.CreateNode(NodeDesc{
		Name:    "lighting_pass",
		Enabled: true,
		Inputs: []InputDesc{{
			Type: ResourceTexture,
			Name: "gbuffer_colour",
		}},
		Outputs: []OutputDesc{{
			Type: ResourceAttachment,
			Name: "final",
			Info: NewAttachmentInfo(1280, 800, gputypes.TextureFormatRGBA8Unorm),
		}},
	})
	return b.Build(nil)
}

func nodeNames(g *Graph) []string {
	names := make([]string, 0, len(g.Nodes()))
	for _, ref := range g.Nodes() {
		node, err := g.Builder().Node(ref)
		if err != nil {
			panic(err)
		}
		names = append(names, node.Name)
	}
	return names
}

func TestCompileLinearGraph(t *testing.T) {
	g := buildDeferred()
	device := &fakeDevice{}

	if err := g.Compile(device); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	got := nodeNames(g)
	want := []string{"gbuffer_pass", "lighting_pass"}
	if len(got) != len(want) {
		t.Fatalf("execution order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("execution order = %v, want %v", got, want)
		}
	}

	if len(device.images) != 2 {
		t.Fatalf("created %d images, want 2", len(device.images))
	}

	res, err := g.Builder().ResourceByName("gbuffer_colour")
	if err != nil {
		t.Fatalf("ResourceByName: %v", err)
	}
	img, err := res.GPUImage()
	if err != nil {
		t.Fatalf("GPUImage: %v", err)
	}
	if img.Width() != 1280 || img.Height() != 800 {
		t.Errorf("gbuffer_colour is %dx%d, want 1280x800", img.Width(), img.Height())
	}
	if img.Format() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("gbuffer_colour format = %v, want RGBA8Unorm", img.Format())
	}

	// The lighting pass input resolves to the gbuffer output and sees
	// the allocated image through it.
	lighting, err := g.Builder().NodeByName("lighting_pass")
	if err != nil {
		t.Fatalf("NodeByName: %v", err)
	}
	in, err := g.Builder().Resource(lighting.Inputs[0])
	if err != nil {
		t.Fatalf("Resource: %v", err)
	}
	if !in.Producer.IsValid() {
		t.Error("lighting input producer not resolved")
	}
	inImg, err := in.GPUImage()
	if err != nil {
		t.Fatalf("input GPUImage: %v", err)
	}
	if inImg != img {
		t.Error("lighting input does not share the gbuffer image")
	}

	// Rendering state: one color attachment, full extent, cleared.
	state := lighting.RenderingState
	if state == nil {
		t.Fatal("lighting has no rendering state")
	}
	if len(state.ColorAttachments) != 1 || state.DepthAttachment != nil {
		t.Fatalf("lighting attachments = %d color, depth=%v",
			len(state.ColorAttachments), state.DepthAttachment != nil)
	}
	if state.Width != 1280 || state.Height != 800 {
		t.Errorf("rendering extent = %dx%d, want 1280x800", state.Width, state.Height)
	}
	if state.ColorAttachments[0].LoadOp != LoadOpClear {
		t.Errorf("load op = %v, want Clear", state.ColorAttachments[0].LoadOp)
	}
}

func TestCompileTopologicalOrder(t *testing.T) {
	// Diamond declared deliberately out of order: the compiler must place
	// producers before consumers regardless of creation order.
	b := NewBuilder()
	attach := func(name string) OutputDesc {
		return OutputDesc{
			Type: ResourceAttachment,
			Name: name,
			Info: NewAttachmentInfo(64, 64, gputypes.TextureFormatRGBA8Unorm),
		}
	}
	tex := func(name string) InputDesc {
		return InputDesc{Type: ResourceTexture, Name: name}
	}

	b.CreateNode(NodeDesc{Name: "compose", Enabled: true,
		Inputs:  []InputDesc{tex("left"), tex("right")},
		Outputs: []OutputDesc{attach("final")},
	})
	b.CreateNode(NodeDesc{Name: "right_pass", Enabled: true,
		Inputs:  []InputDesc{tex("scene")},
		Outputs: []OutputDesc{attach("right")},
	})
	b.CreateNode(NodeDesc{Name: "scene_pass", Enabled: true,
		Outputs: []OutputDesc{attach("scene")},
	})
	b.CreateNode(NodeDesc{Name: "left_pass", Enabled: true,
		Inputs:  []InputDesc{tex("scene")},
		Outputs: []OutputDesc{attach("left")},
	})
	g := b.Build(nil)

	if err := g.Compile(&fakeDevice{}); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	pos := make(map[string]int)
	for i, name := range nodeNames(g) {
		pos[name] = i
	}
	deps := [][2]string{
		{"scene_pass", "left_pass"},
		{"scene_pass", "right_pass"},
		{"left_pass", "compose"},
		{"right_pass", "compose"},
	}
	for _, d := range deps {
		if pos[d[0]] >= pos[d[1]] {
			t.Errorf("%s at %d does not precede %s at %d", d[0], pos[d[0]], d[1], pos[d[1]])
		}
	}
}

func TestCompileCycle(t *testing.T) {
	b := NewBuilder()
	b.CreateNode(NodeDesc{Name: "a", Enabled: true,
		Inputs: []InputDesc{{Type: ResourceTexture, Name: "out_b"}},
		Outputs: []OutputDesc{{
			Type: ResourceAttachment, Name: "out_a",
			Info: NewAttachmentInfo(16, 16, gputypes.TextureFormatRGBA8Unorm),
		}},
	})
	b.CreateNode(NodeDesc{Name: "b", Enabled: true,
		Inputs: []InputDesc{{Type: ResourceTexture, Name: "out_a"}},
		Outputs: []OutputDesc{{
			Type: ResourceAttachment, Name: "out_b",
			Info: NewAttachmentInfo(16, 16, gputypes.TextureFormatRGBA8Unorm),
		}},
	})
	g := b.Build(nil)

	err := g.Compile(&fakeDevice{})
	if !errors.Is(err, ErrGraphCycle) {
		t.Fatalf("Compile error = %v, want ErrGraphCycle", err)
	}
}

func TestCompileMissingInput(t *testing.T) {
	b := NewBuilder()
	b.CreateNode(NodeDesc{Name: "lonely", Enabled: true,
		Inputs: []InputDesc{{Type: ResourceTexture, Name: "nowhere"}},
	})
	g := b.Build(nil)

	err := g.Compile(&fakeDevice{})
	if !errors.Is(err, ErrResourceNotFound) {
		t.Fatalf("Compile error = %v, want ErrResourceNotFound", err)
	}
}

func TestCompileIdempotent(t *testing.T) {
	g := buildDeferred()
	device := &fakeDevice{}

	if err := g.Compile(device); err != nil {
		t.Fatalf("first Compile: %v", err)
	}
	first := nodeNames(g)
	created := len(device.images)

	if err := g.Compile(device); err != nil {
		t.Fatalf("second Compile: %v", err)
	}
	second := nodeNames(g)

	if len(device.images) != created {
		t.Errorf("second compile allocated %d new images", len(device.images)-created)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("order changed across compiles: %v then %v", first, second)
		}
	}
}

func TestCompileRefCountsConserved(t *testing.T) {
	g := buildDeferred()
	if err := g.Compile(&fakeDevice{}); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	// Every counted reference is released during the allocation walk.
	b := g.Builder()
	for name := range map[string]bool{"gbuffer_colour": true, "final": true} {
		res, err := b.ResourceByName(name)
		if err != nil {
			t.Fatalf("ResourceByName(%q): %v", name, err)
		}
		if res.RefCount != 0 {
			t.Errorf("resource %q ref count = %d after compile, want 0", name, res.RefCount)
		}
	}
}

func TestDisabledNodeExcluded(t *testing.T) {
	b := NewBuilder()
	b.CreateNode(NodeDesc{Name: "main", Enabled: true,
		Outputs: []OutputDesc{{
			Type: ResourceAttachment, Name: "scene",
			Info: NewAttachmentInfo(32, 32, gputypes.TextureFormatRGBA8Unorm),
		}},
	})
	b.CreateNode(NodeDesc{Name: "debug_overlay", Enabled: true,
		Outputs: []OutputDesc{{
			Type: ResourceAttachment, Name: "overlay",
			Info: NewAttachmentInfo(32, 32, gputypes.TextureFormatRGBA8Unorm),
		}},
	})
	g := b.Build(nil)

	if err := g.DisableRenderPass("debug_overlay"); err != nil {
		t.Fatalf("DisableRenderPass: %v", err)
	}

	device := &fakeDevice{}
	if err := g.Compile(device); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	for _, name := range nodeNames(g) {
		if name == "debug_overlay" {
			t.Error("disabled node present in execution order")
		}
	}
	if len(device.images) != 1 {
		t.Errorf("created %d images, want 1 (disabled output must not allocate)", len(device.images))
	}

	// The node stays resolvable and can be re-enabled.
	if _, err := g.Builder().NodeByName("debug_overlay"); err != nil {
		t.Errorf("NodeByName after disable: %v", err)
	}
	if err := g.EnableRenderPass("debug_overlay"); err != nil {
		t.Fatalf("EnableRenderPass: %v", err)
	}
	if err := g.Compile(device); err != nil {
		t.Fatalf("recompile: %v", err)
	}
	found := false
	for _, name := range nodeNames(g) {
		if name == "debug_overlay" {
			found = true
		}
	}
	if !found {
		t.Error("re-enabled node missing from execution order")
	}
	if len(device.images) != 2 {
		t.Errorf("created %d images after re-enable, want 2", len(device.images))
	}
}

func TestCompileAliasesRetiredImages(t *testing.T) {
	// Chain a -> b -> c of same-extent attachments. By the time c's output
	// is allocated, a's image has been released and must be reused.
	b := NewBuilder()
	names := []string{"a", "b", "c"}
	for i, name := range names {
		desc := NodeDesc{Name: name + "_pass", Enabled: true,
			Outputs: []OutputDesc{{
				Type: ResourceAttachment, Name: name,
				Info: NewAttachmentInfo(128, 128, gputypes.TextureFormatRGBA8Unorm),
			}},
		}
		if i > 0 {
			desc.Inputs = []InputDesc{{Type: ResourceTexture, Name: names[i-1]}}
		}
		b.CreateNode(desc)
	}
	g := b.Build(nil)

	device := &fakeDevice{}
	if err := g.Compile(device); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if len(device.images) != 2 {
		t.Fatalf("created %d images, want 2 (c must alias a's retired image)", len(device.images))
	}

	resA, _ := g.Builder().ResourceByName("a")
	resC, _ := g.Builder().ResourceByName("c")
	imgA, _ := resA.GPUImage()
	imgC, _ := resC.GPUImage()
	if imgA != imgC {
		t.Error("resource c does not alias a's image")
	}
}

func TestCompileNoAliasAcrossFormats(t *testing.T) {
	b := NewBuilder()
	b.CreateNode(NodeDesc{Name: "depth_pass", Enabled: true,
		Outputs: []OutputDesc{{
			Type: ResourceAttachment, Name: "depth",
			Info: NewAttachmentInfo(128, 128, gputypes.TextureFormatDepth32Float),
		}},
	})
	b.CreateNode(NodeDesc{Name: "shade_pass", Enabled: true,
		Inputs: []InputDesc{{Type: ResourceTexture, Name: "depth"}},
		Outputs: []OutputDesc{{
			Type: ResourceAttachment, Name: "shaded",
			Info: NewAttachmentInfo(128, 128, gputypes.TextureFormatRGBA8Unorm),
		}},
	})
	b.CreateNode(NodeDesc{Name: "post_pass", Enabled: true,
		Inputs: []InputDesc{{Type: ResourceTexture, Name: "shaded"}},
		Outputs: []OutputDesc{{
			Type: ResourceAttachment, Name: "post",
			Info: NewAttachmentInfo(128, 128, gputypes.TextureFormatRGBA8Unorm),
		}},
	})
	g := b.Build(nil)

	device := &fakeDevice{}
	if err := g.Compile(device); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	// post cannot reuse the retired depth image; formats differ.
	resDepth, _ := g.Builder().ResourceByName("depth")
	resPost, _ := g.Builder().ResourceByName("post")
	imgDepth, _ := resDepth.GPUImage()
	imgPost, _ := resPost.GPUImage()
	if imgDepth == imgPost {
		t.Error("post aliased a depth-format image")
	}
	if len(device.images) != 3 {
		t.Errorf("created %d images, want 3", len(device.images))
	}
}

func TestCompileDepthAttachmentState(t *testing.T) {
	b := NewBuilder()
	b.CreateNode(NodeDesc{Name: "gbuffer", Enabled: true,
		Outputs: []OutputDesc{
			{
				Type: ResourceAttachment, Name: "albedo",
				Info: NewAttachmentInfo(640, 480, gputypes.TextureFormatRGBA8Unorm),
			},
			{
				Type: ResourceAttachment, Name: "depth",
				Info: NewAttachmentInfo(640, 480, gputypes.TextureFormatDepth32Float),
			},
		},
	})
	g := b.Build(nil)

	if err := g.Compile(&fakeDevice{}); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	node, _ := g.Builder().NodeByName("gbuffer")
	state := node.RenderingState
	if state == nil {
		t.Fatal("no rendering state")
	}
	if len(state.ColorAttachments) != 1 {
		t.Fatalf("color attachments = %d, want 1", len(state.ColorAttachments))
	}
	if state.DepthAttachment == nil {
		t.Fatal("no depth attachment")
	}
	if state.DepthAttachment.ClearDepth != 1.0 || state.DepthAttachment.ClearStencil != 0 {
		t.Errorf("depth clear = %v/%v, want 1.0/0",
			state.DepthAttachment.ClearDepth, state.DepthAttachment.ClearStencil)
	}
	if state.DepthAttachment.DepthLoadOp != LoadOpClear {
		t.Errorf("depth load op = %v, want Clear", state.DepthAttachment.DepthLoadOp)
	}
}

func TestCompileExtentMismatch(t *testing.T) {
	b := NewBuilder()
	b.CreateNode(NodeDesc{Name: "bad", Enabled: true,
		Outputs: []OutputDesc{
			{
				Type: ResourceAttachment, Name: "wide",
				Info: NewAttachmentInfo(1280, 720, gputypes.TextureFormatRGBA8Unorm),
			},
			{
				Type: ResourceAttachment, Name: "narrow",
				Info: NewAttachmentInfo(640, 720, gputypes.TextureFormatRGBA8Unorm),
			},
		},
	})
	g := b.Build(nil)

	err := g.Compile(&fakeDevice{})
	if !errors.Is(err, ErrAttachmentExtentMismatch) {
		t.Fatalf("Compile error = %v, want ErrAttachmentExtentMismatch", err)
	}
}

func TestCompileDeviceFailure(t *testing.T) {
	g := buildDeferred()
	before := g.Nodes()

	err := g.Compile(&fakeDevice{fail: true})
	if err == nil {
		t.Fatal("Compile succeeded with failing device")
	}

	// A failed compile leaves the previous execution order untouched.
	after := g.Nodes()
	if len(after) != len(before) {
		t.Errorf("execution order changed after failed compile")
	}
}

func TestRenderBarrierOrder(t *testing.T) {
	g := buildDeferred()
	if err := g.Compile(&fakeDevice{}); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	gbuf, _ := g.Builder().ResourceByName("gbuffer_colour")
	final, _ := g.Builder().ResourceByName("final")
	gbufImg, _ := gbuf.GPUImage()
	finalImg, _ := final.GPUImage()

	// Barriers are recomputed identically every frame.
	for frame := 0; frame < 2; frame++ {
		log := NewCommandLog()
		if err := g.Render(log); err != nil {
			t.Fatalf("frame %d Render: %v", frame, err)
		}

		var batches [][]ImageBarrier
		for _, cmd := range log.Commands() {
			if cmd.Kind == CommandBarrier {
				batches = append(batches, cmd.Barriers)
			}
		}
		if len(batches) != 2 {
			t.Fatalf("frame %d: %d barrier batches, want 2", frame, len(batches))
		}

		// gbuffer pass: its attachment output comes in Undefined.
		want := []ImageBarrier{
			{Image: gbufImg, From: ResourceStateUndefined, To: ResourceStateRenderTarget},
		}
		checkBarriers(t, frame, "gbuffer", batches[0], want)

		// lighting pass: sampled input transitions before the output.
		want = []ImageBarrier{
			{Image: gbufImg, From: ResourceStateRenderTarget, To: ResourceStateShaderResource},
			{Image: finalImg, From: ResourceStateUndefined, To: ResourceStateRenderTarget},
		}
		checkBarriers(t, frame, "lighting", batches[1], want)
	}
}

func checkBarriers(t *testing.T, frame int, pass string, got, want []ImageBarrier) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("frame %d %s: %d barriers, want %d", frame, pass, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d %s barrier %d = {%v %v}, want {%v %v}",
				frame, pass, i, got[i].From, got[i].To, want[i].From, want[i].To)
		}
	}
}

func TestRenderDepthBarrier(t *testing.T) {
	b := NewBuilder()
	b.CreateNode(NodeDesc{Name: "depth_prepass", Enabled: true,
		Outputs: []OutputDesc{{
			Type: ResourceAttachment, Name: "depth",
			Info: NewAttachmentInfo(64, 64, gputypes.TextureFormatDepth24PlusStencil8),
		}},
	})
	g := b.Build(nil)
	if err := g.Compile(&fakeDevice{}); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	log := NewCommandLog()
	if err := g.Render(log); err != nil {
		t.Fatalf("Render: %v", err)
	}

	cmds := log.Commands()
	if len(cmds) == 0 || cmds[0].Kind != CommandBarrier {
		t.Fatal("first command is not a barrier")
	}
	barrier := cmds[0].Barriers[0]
	if barrier.From != ResourceStateUndefined || barrier.To != ResourceStateDepthWrite {
		t.Errorf("depth barrier = %v -> %v, want Undefined -> DepthWrite", barrier.From, barrier.To)
	}
}

func TestRenderInvokesPasses(t *testing.T) {
	g := buildDeferred()
	if err := g.Compile(&fakeDevice{}); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	var calls []string
	for _, name := range []string{"gbuffer_pass", "lighting_pass"} {
		if err := g.RegisterRenderPass(name, &recordingPass{name: name, calls: &calls}); err != nil {
			t.Fatalf("RegisterRenderPass(%q): %v", name, err)
		}
	}

	log := NewCommandLog()
	if err := g.Render(log); err != nil {
		t.Fatalf("Render: %v", err)
	}

	want := []string{"gbuffer_pass.pre", "gbuffer_pass.render", "lighting_pass.pre", "lighting_pass.render"}
	if fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Errorf("pass calls = %v, want %v", calls, want)
	}

	// Each pass renders inside a BeginRendering/EndRendering scope carrying
	// its synthesized state.
	var begins int
	for _, cmd := range log.Commands() {
		if cmd.Kind == CommandBeginRendering {
			begins++
			if cmd.Rendering == nil || cmd.Rendering.Width != 1280 {
				t.Errorf("BeginRendering state = %+v", cmd.Rendering)
			}
		}
	}
	if begins != 2 {
		t.Errorf("BeginRendering count = %d, want 2", begins)
	}
}

func TestRenderPassError(t *testing.T) {
	g := buildDeferred()
	if err := g.Compile(&fakeDevice{}); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	var calls []string
	failErr := errors.New("pipeline missing")
	if err := g.RegisterRenderPass("gbuffer_pass",
		&recordingPass{name: "gbuffer_pass", calls: &calls, fail: failErr}); err != nil {
		t.Fatalf("RegisterRenderPass: %v", err)
	}

	err := g.Render(NewCommandLog())
	if !errors.Is(err, failErr) {
		t.Fatalf("Render error = %v, want wrapped pass error", err)
	}
}

func TestRegisterRenderPassUnknown(t *testing.T) {
	g := buildDeferred()
	err := g.RegisterRenderPass("no_such", &recordingPass{name: "no_such"})
	if !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("RegisterRenderPass error = %v, want ErrNodeNotFound", err)
	}
}
