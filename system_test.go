package cgs

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/WilliamKappler/caelumGraphicsSystem/backend"
	"github.com/WilliamKappler/caelumGraphicsSystem/format"
	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
)

// newTestSystem creates a System on a fresh software device.
func newTestSystem(t *testing.T, opts ...Option) (*System, *backend.SoftwareDevice) {
	t.Helper()
	return newTestSystemOn(t, backend.NewSoftwareDevice(), opts...)
}

func newTestSystemOn(t *testing.T, dev *backend.SoftwareDevice, opts ...Option) (*System, *backend.SoftwareDevice) {
	t.Helper()
	s, err := New(append([]Option{WithDevice(dev)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(s.Close)
	return s, dev
}

// captureLog returns a buffer receiving every record of a System created
// with the returned option.
func captureLog() (*bytes.Buffer, Option) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return &buf, WithLogger(l)
}

// triangle returns a visible mesh with a 3-vertex position stream.
func triangle(t *testing.T, s *System) *Mesh {
	t.Helper()
	m, err := s.CreateMesh(gpucore.Triangles)
	if err != nil {
		t.Fatalf("CreateMesh() error = %v", err)
	}
	m.DeclareAttribute(AttribPosition, gpucore.TypeFloat, 3, false, false)
	if !m.GenerateStream(3) {
		t.Fatal("GenerateStream(3) = false")
	}
	m.Open(AttribPosition)
	for _, v := range []float32{-1, -1, 0, 1, -1, 0, 0, 1, 0} {
		m.WriteFloat32(v)
	}
	m.Close()
	return m
}

func TestNewDefaults(t *testing.T) {
	s, dev := newTestSystem(t, WithViewport(64, 32))

	if s.Device() != dev {
		t.Error("Device() is not the injected device")
	}
	if w, h := s.Viewport(); w != 64 || h != 32 {
		t.Errorf("Viewport() = %dx%d, want 64x32", w, h)
	}
	for _, stage := range []gpucore.ShaderStage{gpucore.StageVertex, gpucore.StageFragment} {
		sh := s.DefaultShader(stage)
		if !sh.Valid() {
			t.Fatalf("DefaultShader(%v) is not valid", stage)
		}
		if !strings.HasPrefix(sh.Source(), "builtin:") {
			t.Errorf("DefaultShader(%v).Source() = %q, want builtin", stage, sh.Source())
		}
	}
	if s.DefaultShader(gpucore.StageGeometry) != nil {
		t.Error("DefaultShader(geometry) should be nil")
	}
	if got := s.ShaderPaths(); len(got) != 1 || got[0] != DefaultShaderPath {
		t.Errorf("ShaderPaths() = %v, want [%s]", got, DefaultShaderPath)
	}
}

func TestNewByBackendName(t *testing.T) {
	s, err := New(WithBackend(backend.BackendSoftware))
	if err != nil {
		t.Fatalf("New(WithBackend) error = %v", err)
	}
	defer s.Close()
	if s.Device().Name() != backend.BackendSoftware {
		t.Errorf("Device().Name() = %q, want %q", s.Device().Name(), backend.BackendSoftware)
	}

	if _, err := New(WithBackend("missing")); !errors.Is(err, backend.ErrBackendNotAvailable) {
		t.Errorf("New(missing backend) error = %v, want ErrBackendNotAvailable", err)
	}
}

type noCompileDevice struct {
	*backend.SoftwareDevice
}

func (noCompileDevice) Capabilities() gpucore.Capabilities {
	return gpucore.Capabilities{}
}

func TestNewRequiresShaderCompilation(t *testing.T) {
	_, err := New(WithDevice(noCompileDevice{backend.NewSoftwareDevice()}))
	if !errors.Is(err, ErrNoShaderCompilation) {
		t.Errorf("New() error = %v, want ErrNoShaderCompilation", err)
	}
}

func TestNewFailsWithoutDefaultShaders(t *testing.T) {
	dev := backend.NewSoftwareDevice(backend.WithCompileCheck(func(stage gpucore.ShaderStage, _ string) error {
		if stage == gpucore.StageFragment {
			return errors.New("syntax error")
		}
		return nil
	}))
	_, err := New(WithDevice(dev))
	if !errors.Is(err, ErrDefaultShaders) {
		t.Errorf("New() error = %v, want ErrDefaultShaders", err)
	}
	if !errors.Is(err, gpucore.ErrCompile) {
		t.Errorf("New() error = %v, want wrapped gpucore.ErrCompile", err)
	}
}

func TestRenderDrawsStagesInOrder(t *testing.T) {
	s, dev := newTestSystem(t)

	a, b, c := triangle(t, s), triangle(t, s), triangle(t, s)
	a.SetLabel("a")
	b.SetLabel("b")
	c.SetLabel("c")
	s.Stage(1).Add(0, a, false)
	s.Stage(0).Add(5, b, false)
	s.Stage(0).Add(1, c, false)

	stats, err := s.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if stats.Frame != 1 || stats.Stages != 2 || stats.Draws != 3 || stats.Skipped != 0 {
		t.Errorf("Render() stats = %+v, want frame 1, 2 stages, 3 draws", stats)
	}

	var got []string
	for _, d := range dev.Draws() {
		got = append(got, d.Label)
	}
	if strings.Join(got, ",") != "c,b,a" {
		t.Errorf("draw order = %v, want [c b a]", got)
	}

	// Stages are drained after a frame.
	if n := s.Stage(0).Len(); n != 0 {
		t.Errorf("Stage(0).Len() after Render = %d, want 0", n)
	}
	stats, err = s.Render()
	if err != nil {
		t.Fatalf("second Render() error = %v", err)
	}
	if stats.Draws != 0 || stats.Frame != 2 {
		t.Errorf("second Render() stats = %+v, want frame 2 with 0 draws", stats)
	}
	if dev.Stats().Frames != 2 {
		t.Errorf("device frames = %d, want 2", dev.Stats().Frames)
	}
}

func TestRenderSkipsHiddenAndInvalidMeshes(t *testing.T) {
	buf, logOpt := captureLog()
	s, _ := newTestSystem(t, logOpt)

	hidden := triangle(t, s)
	hidden.SetVisible(false)
	empty, _ := s.CreateMesh(gpucore.Points)

	s.Stage(0).Add(0, hidden, false)
	s.Stage(0).Add(0, empty, false)
	s.Stage(0).Add(0, triangle(t, s), false)

	stats, err := s.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if stats.Draws != 1 || stats.Skipped != 2 {
		t.Errorf("Render() stats = %+v, want 1 draw and 2 skipped", stats)
	}
	if !strings.Contains(buf.String(), "vertex stream not generated") {
		t.Errorf("invalid stream not logged, log:\n%s", buf.String())
	}
}

func TestRenderBindsBackbuffer(t *testing.T) {
	s, dev := newTestSystem(t, WithViewport(4, 4), WithBackbufferUnit(5))

	plain := triangle(t, s)
	linked := triangle(t, s)
	tex, _ := s.CreateTexture(gputypes.TextureDimension2D, format.RGBA8Unorm, [3]int{2, 2, 1}, TextureOptions{})
	linked.Attach(5, tex)

	st := s.Stage(0)
	if st.BackbufferUnit() != 5 {
		t.Fatalf("BackbufferUnit() = %d, want 5", st.BackbufferUnit())
	}
	st.Add(0, plain, false)
	st.Add(1, linked, true)

	stats, err := s.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if stats.BackbufferCopies != 2 {
		t.Errorf("BackbufferCopies = %d, want 2", stats.BackbufferCopies)
	}
	draws := dev.Draws()
	if len(draws) != 2 {
		t.Fatalf("len(Draws()) = %d, want 2", len(draws))
	}
	bb := s.backbuffers[5]
	if tb := draws[0].Textures; len(tb) != 1 || tb[0].Unit != 5 || tb[0].Texture != bb {
		t.Errorf("plain mesh textures = %+v, want backbuffer on unit 5", tb)
	}
	if tb := draws[1].Textures; len(tb) != 1 || tb[0].Texture != tex.GPUTexture() {
		t.Errorf("linked mesh textures = %+v, want its own texture on unit 5", tb)
	}
}

func TestRenderClearColor(t *testing.T) {
	s, dev := newTestSystem(t, WithViewport(2, 2), WithClearColor(mgl32.Vec4{1, 0, 0, 1}))
	if _, err := s.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if px := dev.Pixels()[:4]; !bytes.Equal(px, []byte{255, 0, 0, 255}) {
		t.Errorf("pixel = %v, want red", px)
	}

	s.SetClearColor(0, 0, 1, 1)
	if _, err := s.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if px := dev.Pixels()[:4]; !bytes.Equal(px, []byte{0, 0, 255, 255}) {
		t.Errorf("pixel = %v, want blue", px)
	}
}

func TestClose(t *testing.T) {
	dev := backend.NewSoftwareDevice()
	s, err := New(WithDevice(dev))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	m := triangle(t, s)
	tex, _ := s.CreateTexture(gputypes.TextureDimension1D, format.R8Unorm, [3]int{8, 1, 1}, TextureOptions{})
	m.Attach(0, tex)
	if _, err := s.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	gpu := tex.GPUTexture()

	s.Close()
	s.Close()

	if !m.Destroyed() || !tex.Destroyed() {
		t.Error("Close() should destroy meshes and textures")
	}
	if dev.HasTexture(gpu) {
		t.Error("Close() left the device texture alive")
	}
	if _, err := s.Render(); !errors.Is(err, ErrClosed) {
		t.Errorf("Render() after Close error = %v, want ErrClosed", err)
	}
	if _, err := s.CreateMesh(gpucore.Points); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateMesh() after Close error = %v, want ErrClosed", err)
	}
	if _, err := s.CreateTexture(gputypes.TextureDimension1D, format.R8Unorm, [3]int{1, 1, 1}, TextureOptions{}); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateTexture() after Close error = %v, want ErrClosed", err)
	}
}

func TestMemoryStats(t *testing.T) {
	s, _ := newTestSystem(t)

	tex, _ := s.CreateTexture(gputypes.TextureDimension2D, format.RGBA8Unorm, [3]int{4, 4, 1}, TextureOptions{MipLevels: 2})
	m := triangle(t, s)

	st := s.MemoryStats()
	if st.Textures != 1 || st.Meshes != 1 {
		t.Errorf("MemoryStats() counts = %d textures, %d meshes, want 1, 1", st.Textures, st.Meshes)
	}
	wantCPU := uint64(len(tex.Bytes()) + len(m.Stream()))
	if st.CPUBytes != wantCPU {
		t.Errorf("CPUBytes = %d, want %d", st.CPUBytes, wantCPU)
	}
	if st.GPUBytes != 0 {
		t.Errorf("GPUBytes before upload = %d, want 0", st.GPUBytes)
	}

	if _, err := s.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	// 4x4 + 2x2 + 1x1 texels of 4 bytes, plus 36 bytes of vertices.
	if got, want := s.MemoryStats().GPUBytes, uint64((16+4+1)*4+36); got != want {
		t.Errorf("GPUBytes after upload = %d, want %d", got, want)
	}
}

func TestMemoryBudgetWarning(t *testing.T) {
	buf, logOpt := captureLog()
	s, _ := newTestSystem(t, logOpt, WithMemoryBudget(MinMemoryBudget))

	if s.MemoryStats().Budget != MinMemoryBudget {
		t.Fatalf("Budget = %d, want %d", s.MemoryStats().Budget, MinMemoryBudget)
	}
	// 2048 x 2048 RGBA8 is exactly 16 MB; one more row crosses the budget.
	if _, err := s.CreateTexture(gputypes.TextureDimension2D, format.RGBA8Unorm, [3]int{2048, 2049, 1}, TextureOptions{}); err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	if n := strings.Count(buf.String(), "memory budget exceeded"); n != 1 {
		t.Errorf("budget warnings = %d, want 1", n)
	}
	s.checkBudget()
	if n := strings.Count(buf.String(), "memory budget exceeded"); n != 1 {
		t.Errorf("budget warnings after recheck = %d, want 1", n)
	}
}

// walkCPUBytes sums the CPU bytes of every live resource.
func walkCPUBytes(s *System) uint64 {
	var n uint64
	for _, t := range s.textures {
		n += uint64(len(t.buf))
	}
	for _, m := range s.meshes {
		n += m.cpuBytes()
	}
	return n
}

func TestMemoryRunningTotal(t *testing.T) {
	s, _ := newTestSystem(t)
	tex, _ := s.CreateTexture(gputypes.TextureDimension2D, format.RGBA8Unorm, [3]int{4, 4, 1},
		TextureOptions{OverAllocate: true})
	m := triangle(t, s)
	other := triangle(t, s)

	steps := []struct {
		name string
		do   func()
	}{
		{"create", func() {}},
		{"resize texture", func() { _ = tex.Resize([3]int{9, 3, 1}, [3]int{}) }},
		{"resize in place", func() { _ = tex.Resize([3]int{2, 2, 1}, [3]int{}) }},
		{"create indices", func() { m.CreateIndices(8) }},
		{"write indices", func() {
			for i := range 5 {
				m.WriteIndex(uint32(i))
			}
		}},
		{"overwrite index", func() { m.MoveIndexCursor(1); m.WriteIndex(7) }},
		{"resize indices", func() { m.ResizeIndices(12) }},
		{"truncate indices", func() { m.ResizeIndices(2) }},
		{"clear indices", func() { m.ClearIndices() }},
		{"regenerate stream", func() { m.GenerateStream(10) }},
		{"delete attribute", func() { m.DeleteAttribute(AttribPosition) }},
		{"delete indices", func() { m.DeleteIndices() }},
		{"destroy mesh", func() { other.CreateIndices(0); other.WriteIndex(1); other.Destroy() }},
		{"destroy texture", func() { tex.Destroy() }},
	}
	for _, st := range steps {
		st.do()
		if got, want := s.MemoryStats().CPUBytes, walkCPUBytes(s); got != want {
			t.Errorf("after %s: CPUBytes = %d, want %d", st.name, got, want)
		}
	}
	if s.cpuBytes != walkCPUBytes(s) {
		t.Errorf("final total = %d, want %d", s.cpuBytes, walkCPUBytes(s))
	}
}

func TestMemoryBudgetRecovers(t *testing.T) {
	buf, logOpt := captureLog()
	s, _ := newTestSystem(t, logOpt, WithMemoryBudget(MinMemoryBudget))
	big, _ := s.CreateTexture(gputypes.TextureDimension2D, format.RGBA8Unorm, [3]int{2048, 2049, 1}, TextureOptions{})
	if !s.overBudget {
		t.Fatal("overBudget = false after crossing the budget")
	}
	big.Destroy()
	s.checkBudget()
	if s.overBudget {
		t.Error("overBudget = true after freeing the texture")
	}
	// A second crossing warns again.
	if _, err := s.CreateTexture(gputypes.TextureDimension2D, format.RGBA8Unorm, [3]int{2048, 2049, 1}, TextureOptions{}); err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	if n := strings.Count(buf.String(), "memory budget exceeded"); n != 2 {
		t.Errorf("budget warnings = %d, want 2", n)
	}
}

func TestMemoryBudgetBelowMinimum(t *testing.T) {
	s, _ := newTestSystem(t, WithMemoryBudget(1024))
	if got := s.MemoryStats().Budget; got != DefaultMemoryBudget {
		t.Errorf("Budget = %d, want default %d", got, DefaultMemoryBudget)
	}
}

func TestMemoryStatsString(t *testing.T) {
	st := MemoryStats{
		Budget:      256 * 1024 * 1024,
		CPUBytes:    64 * 1024 * 1024,
		GPUBytes:    32 * 1024 * 1024,
		Textures:    3,
		Meshes:      2,
		Utilization: 0.25,
	}
	want := "Memory[25.0% used, 64/256 MB cpu, 32 MB gpu, 3 textures, 2 meshes]"
	if got := st.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
