package backend

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/WilliamKappler/caelumGraphicsSystem/format"
	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
)

func TestSoftwareDeviceName(t *testing.T) {
	d := NewSoftwareDevice()
	if d.Name() != "software" {
		t.Errorf("Name() = %q, want %q", d.Name(), "software")
	}
}

func TestRegistry(t *testing.T) {
	if !IsRegistered(BackendSoftware) {
		t.Fatal("software backend should be registered on import")
	}

	Register("test-failing", func() (gpucore.Device, error) {
		return nil, errors.New("no context")
	})
	defer Unregister("test-failing")

	if _, err := Get("test-failing"); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Get(failing) error = %v, want ErrBackendNotAvailable", err)
	}
	if _, err := Get("missing"); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Get(missing) error = %v, want ErrBackendNotAvailable", err)
	}

	d, err := InitDefault()
	if err != nil {
		t.Fatalf("InitDefault() error = %v", err)
	}
	if d == nil {
		t.Fatal("InitDefault() returned nil device")
	}

	found := false
	for _, name := range Available() {
		if name == "test-failing" {
			found = true
		}
	}
	if !found {
		t.Error("Available() should list test-failing")
	}
}

func TestDefaultSkipsFailingBackends(t *testing.T) {
	Register(BackendGL, func() (gpucore.Device, error) {
		return nil, ErrNotInitialized
	})
	defer Unregister(BackendGL)

	d := Default()
	if d == nil {
		t.Fatal("Default() = nil, want fallback device")
	}
	if d.Name() == BackendGL {
		t.Error("Default() returned the failing backend")
	}
}

func TestSoftwareTextureRoundTrip(t *testing.T) {
	d := NewSoftwareDevice()
	id, err := d.CreateTexture("tex")
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	desc := &gpucore.TextureDescriptor{
		Dimension: gputypes.TextureDimension2D,
		Format:    format.RG8Unorm,
		Size:      [3]int{3, 2, 1},
		MipLevels: 2,
	}
	if err := d.AllocateTexture(id, desc); err != nil {
		t.Fatalf("AllocateTexture() error = %v", err)
	}

	// 3 texels × 2 bytes = 6, padded to 8 per row.
	data := []byte{
		1, 2, 3, 4, 5, 6, 0, 0,
		7, 8, 9, 10, 11, 12, 0, 0,
	}
	err = d.WriteTexture(id, &gpucore.TextureWrite{
		Size: [3]int{3, 2, 1}, RowSize: 8, SheetSize: 16, Data: data,
	})
	if err != nil {
		t.Fatalf("WriteTexture() error = %v", err)
	}
	got, _, ok := d.TextureData(id, 0)
	if !ok {
		t.Fatal("TextureData() not found")
	}
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if string(got) != string(want) {
		t.Errorf("TextureData() = %v, want %v", got, want)
	}

	if err := d.GenerateMipmaps(id); err != nil {
		t.Fatalf("GenerateMipmaps() error = %v", err)
	}
	mip, _, _ := d.TextureData(id, 1)
	if len(mip) != 2 || mip[0] != 1 || mip[1] != 2 {
		t.Errorf("mip level 1 = %v, want [1 2]", mip)
	}
}

func TestSoftwareWriteTextureErrors(t *testing.T) {
	d := NewSoftwareDevice()
	if err := d.WriteTexture(99, &gpucore.TextureWrite{}); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("WriteTexture(unknown) error = %v", err)
	}
	id, _ := d.CreateTexture("")
	if err := d.WriteTexture(id, &gpucore.TextureWrite{Size: [3]int{1, 1, 1}}); err == nil {
		t.Error("WriteTexture() without storage should fail")
	}
}

func TestSoftwareProgramLink(t *testing.T) {
	d := NewSoftwareDevice(WithoutGeometryShaders())
	vs, err := d.CompileShader(gpucore.StageVertex, "void main() {}", "vs")
	if err != nil {
		t.Fatalf("CompileShader(vertex) error = %v", err)
	}
	fs, err := d.CompileShader(gpucore.StageFragment, "void main() {}", "fs")
	if err != nil {
		t.Fatalf("CompileShader(fragment) error = %v", err)
	}
	if _, err := d.CompileShader(gpucore.StageGeometry, "void main() {}", "gs"); !errors.Is(err, gpucore.ErrUnsupported) {
		t.Errorf("CompileShader(geometry) error = %v, want ErrUnsupported", err)
	}
	if _, err := d.CompileShader(gpucore.StageVertex, "garbage", "bad"); !errors.Is(err, gpucore.ErrCompile) {
		t.Errorf("CompileShader(garbage) error = %v, want ErrCompile", err)
	}
	if _, err := d.LinkProgram(&gpucore.ProgramDescriptor{Vertex: fs, Fragment: vs}); !errors.Is(err, gpucore.ErrLink) {
		t.Errorf("LinkProgram(swapped) error = %v, want ErrLink", err)
	}

	p, err := d.LinkProgram(&gpucore.ProgramDescriptor{Vertex: vs, Fragment: fs})
	if err != nil {
		t.Fatalf("LinkProgram() error = %v", err)
	}
	d.SetUniformVec4(p, "range", mgl32.Vec4{0.5, 1, 1, 1})
	v, ok := d.Uniform(p, "range")
	if !ok || v.(mgl32.Vec4) != (mgl32.Vec4{0.5, 1, 1, 1}) {
		t.Errorf("Uniform(range) = %v, %v", v, ok)
	}
}

func TestSoftwareDraw(t *testing.T) {
	d := NewSoftwareDevice()
	d.SetViewport(2, 2)
	vs, _ := d.CompileShader(gpucore.StageVertex, "void main() {}", "vs")
	fs, _ := d.CompileShader(gpucore.StageFragment, "void main() {}", "fs")
	p, _ := d.LinkProgram(&gpucore.ProgramDescriptor{Vertex: vs, Fragment: fs})
	vb, _ := d.CreateBuffer(gpucore.VertexBuffer, "vb")
	_ = d.WriteBuffer(vb, make([]byte, 12*3))

	call := &gpucore.DrawCall{Program: p, Vertices: vb, Stride: 12, VertexCount: 3}
	if err := d.Draw(call); !errors.Is(err, gpucore.ErrFrame) {
		t.Errorf("Draw() outside frame error = %v, want ErrFrame", err)
	}
	if err := d.BeginFrame(mgl32.Vec4{1, 0, 0, 1}); err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	if err := d.Draw(call); err != nil {
		t.Errorf("Draw() error = %v", err)
	}
	call.VertexCount = 4
	if err := d.Draw(call); err == nil {
		t.Error("Draw() past end of buffer should fail")
	}

	ib, _ := d.CreateBuffer(gpucore.IndexBuffer, "ib")
	_ = d.WriteBuffer(ib, []byte{0, 0, 0, 0, 5, 0, 0, 0})
	if err := d.Draw(&gpucore.DrawCall{Program: p, Vertices: vb, Stride: 12, Indices: ib, IndexCount: 2}); err == nil {
		t.Error("Draw() with out-of-range index should fail")
	}

	bb, _ := d.CreateTexture("backbuffer")
	if err := d.CopyBackbuffer(bb); err != nil {
		t.Fatalf("CopyBackbuffer() error = %v", err)
	}
	px, desc, _ := d.TextureData(bb, 0)
	if desc.Size != [3]int{2, 2, 1} || px[0] != 255 || px[1] != 0 || px[3] != 255 {
		t.Errorf("backbuffer = %v (%v), want red 2x2", px[:4], desc.Size)
	}
	if err := d.EndFrame(); err != nil {
		t.Fatalf("EndFrame() error = %v", err)
	}
	if got := d.Stats().Draws; got != 1 {
		t.Errorf("Stats().Draws = %d, want 1", got)
	}
}

func TestSoftwarePreferredOrdering(t *testing.T) {
	d := NewSoftwareDevice(WithModifiedOrdering())
	if got := d.PreferredOrdering(format.RGBA8Unorm); got != format.OrderingModified {
		t.Errorf("PreferredOrdering(RGBA8Unorm) = %v, want BGRA", got)
	}
	if got := d.PreferredOrdering(format.RGBA16Unorm); got != format.OrderingStandard {
		t.Errorf("PreferredOrdering(RGBA16Unorm) = %v, want RGBA", got)
	}
}
