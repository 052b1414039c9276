package wgpu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/WilliamKappler/caelumGraphicsSystem/format"
	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
)

func TestStorageFormat(t *testing.T) {
	tests := []struct {
		f          format.Format
		wantStored format.Format
		wantGPU    gputypes.TextureFormat
	}{
		{format.RGBA8Unorm, format.RGBA8Unorm, gputypes.TextureFormatRGBA8Unorm},
		{format.RGB8Unorm, format.RGBA8Unorm, gputypes.TextureFormatRGBA8Unorm},
		{format.R32Float, format.R32Float, gputypes.TextureFormatR32Float},
		{format.RGB32Uint, format.RGBA32Uint, gputypes.TextureFormatRGBA32Uint},
	}
	for _, tt := range tests {
		stored, gf, err := storageFormat(tt.f)
		if err != nil || stored != tt.wantStored || gf != tt.wantGPU {
			t.Errorf("storageFormat(%v) = %v, %v, %v; want %v, %v",
				tt.f, stored, gf, err, tt.wantStored, tt.wantGPU)
		}
	}

	for _, f := range []format.Format{format.RGBA16Unorm, format.R16Snorm} {
		if _, _, err := storageFormat(f); !errors.Is(err, gpucore.ErrUnsupported) {
			t.Errorf("storageFormat(%v) error = %v, want ErrUnsupported", f, err)
		}
	}
}

func TestOpaque(t *testing.T) {
	tests := []struct {
		f    format.Format
		want []byte
	}{
		{format.RGB8Unorm, []byte{0xff}},
		{format.RGB16Snorm, []byte{0xff, 0x7f}},
		{format.RGB8Uint, []byte{1}},
		{format.RGB32Sint, []byte{1, 0, 0, 0}},
		{format.RGB16Float, []byte{0x00, 0x3c}},
	}
	for _, tt := range tests {
		if got := opaque(tt.f); !bytes.Equal(got, tt.want) {
			t.Errorf("opaque(%v) = %x, want %x", tt.f, got, tt.want)
		}
	}
	got := math.Float32frombits(binary.LittleEndian.Uint32(opaque(format.RGB32Float)))
	if got != 1 {
		t.Errorf("opaque(RGB32Float) = %v, want 1", got)
	}
}

func TestRepack(t *testing.T) {
	tests := []struct {
		name      string
		f         format.Format
		o         format.Ordering
		w         gpucore.TextureWrite
		want      []byte
		wantPitch int
	}{
		{
			name: "rgb gains alpha",
			f:    format.RGB8Unorm,
			o:    format.OrderingStandard,
			w: gpucore.TextureWrite{
				Size: [3]int{2, 1, 1}, RowSize: 8, SheetSize: 8,
				Data: []byte{1, 2, 3, 4, 5, 6, 0, 0},
			},
			want:      []byte{1, 2, 3, 0xff, 4, 5, 6, 0xff},
			wantPitch: 8,
		},
		{
			name: "modified order swapped",
			f:    format.RGBA8Unorm,
			o:    format.OrderingModified,
			w: gpucore.TextureWrite{
				Size: [3]int{1, 1, 1}, RowSize: 4, SheetSize: 4,
				Data: []byte{30, 20, 10, 40},
			},
			want:      []byte{10, 20, 30, 40},
			wantPitch: 4,
		},
		{
			name: "padding dropped",
			f:    format.R8Unorm,
			o:    format.OrderingStandard,
			w: gpucore.TextureWrite{
				Size: [3]int{3, 2, 1}, RowSize: 4, SheetSize: 8,
				Data: []byte{1, 2, 3, 9, 4, 5, 6, 9},
			},
			want:      []byte{1, 2, 3, 4, 5, 6},
			wantPitch: 3,
		},
		{
			name: "sheets",
			f:    format.RG8Uint,
			o:    format.OrderingStandard,
			w: gpucore.TextureWrite{
				Size: [3]int{1, 1, 2}, RowSize: 4, SheetSize: 4,
				Data: []byte{1, 2, 0, 0, 3, 4, 0, 0},
			},
			want:      []byte{1, 2, 3, 4},
			wantPitch: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := &gpucore.TextureDescriptor{Format: tt.f, Ordering: tt.o, Size: tt.w.Size}
			got, pitch := repack(desc, &tt.w)
			if !bytes.Equal(got, tt.want) || pitch != tt.wantPitch {
				t.Errorf("repack() = %v, %d; want %v, %d", got, pitch, tt.want, tt.wantPitch)
			}
		})
	}
}

func TestVertexFormat(t *testing.T) {
	tests := []struct {
		a       gpucore.VertexAttribute
		stride  int
		want    gputypes.VertexFormat
		wantErr bool
	}{
		{gpucore.VertexAttribute{Type: gpucore.TypeFloat, Count: 3}, 12, gputypes.VertexFormatFloat32x3, false},
		{gpucore.VertexAttribute{Type: gpucore.TypeFloat, Count: 1}, 4, gputypes.VertexFormatFloat32, false},
		{gpucore.VertexAttribute{Type: gpucore.TypeUnsignedByte, Count: 4, Normalize: true}, 4, gputypes.VertexFormatUnorm8x4, false},
		{gpucore.VertexAttribute{Type: gpucore.TypeUnsignedByte, Count: 3, Normalize: true}, 4, gputypes.VertexFormatUnorm8x4, false},
		{gpucore.VertexAttribute{Type: gpucore.TypeUnsignedByte, Count: 3, Normalize: true}, 3, 0, true},
		{gpucore.VertexAttribute{Type: gpucore.TypeShort, Count: 2, Integer: true}, 4, gputypes.VertexFormatSint16x2, false},
		{gpucore.VertexAttribute{Type: gpucore.TypeUnsignedShort, Count: 1, Integer: true}, 4, gputypes.VertexFormatUint16x2, false},
		{gpucore.VertexAttribute{Type: gpucore.TypeHalfFloat, Count: 4}, 8, gputypes.VertexFormatFloat16x4, false},
		{gpucore.VertexAttribute{Type: gpucore.TypeUnsignedInt, Count: 2, Integer: true}, 8, gputypes.VertexFormatUint32x2, false},
		{gpucore.VertexAttribute{Type: gpucore.TypeInt, Count: 4, Integer: true}, 16, gputypes.VertexFormatSint32x4, false},
		{gpucore.VertexAttribute{Type: gpucore.TypeByte, Count: 2}, 2, 0, true},
		{gpucore.VertexAttribute{Type: gpucore.TypeInt, Count: 1}, 4, 0, true},
		{gpucore.VertexAttribute{Type: gpucore.TypeDouble, Count: 2}, 16, 0, true},
		{gpucore.VertexAttribute{Type: gpucore.TypeFixed, Count: 2}, 8, 0, true},
	}
	for _, tt := range tests {
		got, err := vertexFormat(tt.a, tt.stride)
		if tt.wantErr {
			if !errors.Is(err, gpucore.ErrUnsupported) {
				t.Errorf("vertexFormat(%+v, %d) error = %v, want ErrUnsupported", tt.a, tt.stride, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("vertexFormat(%+v, %d) = %v, %v; want %v", tt.a, tt.stride, got, err, tt.want)
		}
	}
}

func TestVertexLayout(t *testing.T) {
	call := &gpucore.DrawCall{
		Stride: 28,
		Attributes: []gpucore.VertexAttribute{
			{Location: 0, Type: gpucore.TypeFloat, Count: 3},
			{Location: 2, Type: gpucore.TypeFloat, Count: 4, Offset: 12},
		},
	}
	layout, err := vertexLayout(call)
	if err != nil {
		t.Fatalf("vertexLayout() error = %v", err)
	}
	if layout.ArrayStride != 28 || len(layout.Attributes) != 2 {
		t.Fatalf("vertexLayout() = %+v", layout)
	}
	if a := layout.Attributes[1]; a.ShaderLocation != 2 || a.Offset != 12 || a.Format != gputypes.VertexFormatFloat32x4 {
		t.Errorf("vertexLayout().Attributes[1] = %+v", a)
	}
}

func TestTopology(t *testing.T) {
	tests := []struct {
		p    gpucore.Primitive
		want gputypes.PrimitiveTopology
	}{
		{gpucore.Points, gputypes.PrimitiveTopologyPointList},
		{gpucore.Lines, gputypes.PrimitiveTopologyLineList},
		{gpucore.LineLoop, gputypes.PrimitiveTopologyLineList},
		{gpucore.LineStrip, gputypes.PrimitiveTopologyLineStrip},
		{gpucore.Triangles, gputypes.PrimitiveTopologyTriangleList},
		{gpucore.TriangleStrip, gputypes.PrimitiveTopologyTriangleStrip},
		{gpucore.TriangleFan, gputypes.PrimitiveTopologyTriangleList},
	}
	for _, tt := range tests {
		if got := topology(tt.p); got != tt.want {
			t.Errorf("topology(%v) = %v, want %v", tt.p, got, tt.want)
		}
		if got, want := needsExpansion(tt.p), tt.p == gpucore.LineLoop || tt.p == gpucore.TriangleFan; got != want {
			t.Errorf("needsExpansion(%v) = %v, want %v", tt.p, got, want)
		}
	}
}

func TestExpandIndices(t *testing.T) {
	tests := []struct {
		name  string
		p     gpucore.Primitive
		src   []uint32
		count int
		want  []uint32
	}{
		{"loop", gpucore.LineLoop, nil, 3, []uint32{0, 1, 1, 2, 2, 0}},
		{"loop indexed", gpucore.LineLoop, []uint32{5, 7}, 2, []uint32{5, 7, 7, 5}},
		{"loop too short", gpucore.LineLoop, nil, 1, nil},
		{"fan", gpucore.TriangleFan, nil, 5, []uint32{0, 1, 2, 0, 2, 3, 0, 3, 4}},
		{"fan indexed", gpucore.TriangleFan, []uint32{9, 8, 7}, 3, []uint32{9, 8, 7}},
		{"fan too short", gpucore.TriangleFan, nil, 2, nil},
		{"list untouched", gpucore.Triangles, nil, 3, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandIndices(tt.p, tt.src, tt.count); !slices.Equal(got, tt.want) {
				t.Errorf("expandIndices() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUniformBlock(t *testing.T) {
	u := newUniformBlock([]string{"tint", "transform", "c1", "c2", "c3", "scale"}, nil)
	if len(u.data) != 6*16 {
		t.Fatalf("len(data) = %d, want %d", len(u.data), 6*16)
	}
	float := func(slot, comp int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(u.data[slot*16+comp*4:]))
	}

	if !u.setVec4("tint", mgl32.Vec4{1, 2, 3, 4}) {
		t.Fatal("setVec4(tint) = false")
	}
	if got := float(0, 3); got != 4 {
		t.Errorf("tint.w = %v, want 4", got)
	}

	m := mgl32.Translate3D(5, 6, 7)
	if !u.setMat4("transform", m) {
		t.Fatal("setMat4(transform) = false")
	}
	if got := float(4, 0); got != 5 {
		t.Errorf("transform column 3 x = %v, want 5", got)
	}

	if !u.setScalar("scale", 0.5) {
		t.Fatal("setScalar(scale) = false")
	}
	if got := float(5, 0); got != 0.5 {
		t.Errorf("scale = %v, want 0.5", got)
	}

	if u.setScalar("missing", 1) {
		t.Error("setScalar(missing) = true, want false")
	}
	// The last slot has no room for a full matrix.
	if !u.setMat4("scale", mgl32.Ident4()) {
		t.Error("setMat4(scale) = false, want true")
	}
	if got := float(5, 0); got != 1 {
		t.Errorf("scale after setMat4 = %v, want 1", got)
	}

	empty := newUniformBlock(nil, nil)
	if len(empty.data) != 16 {
		t.Errorf("empty block size = %d, want 16", len(empty.data))
	}
}

func TestUniformBlockRanges(t *testing.T) {
	slots := []textureSlot{
		{unit: 2, dim: gputypes.TextureViewDimension2D},
		{unit: 2, sampler: true},
		{unit: 0, dim: gputypes.TextureViewDimension1D},
	}
	u := newUniformBlock([]string{"tint", "textureUnitRange0"}, slots)
	want := []string{"tint", "textureUnitRange0", "textureUnitRange2"}
	if !slices.Equal(u.names, want) {
		t.Fatalf("names = %v, want %v", u.names, want)
	}
	if len(u.data) != 3*16 {
		t.Fatalf("len(data) = %d, want %d", len(u.data), 3*16)
	}
	// Appended ranges cover the whole texture; listed ones start at zero.
	for comp := range 4 {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(u.data[2*16+comp*4:])); got != 1 {
			t.Errorf("textureUnitRange2[%d] = %v, want 1", comp, got)
		}
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(u.data[16:])); got != 0 {
		t.Errorf("textureUnitRange0.x = %v, want 0", got)
	}
}

func TestViewDimension(t *testing.T) {
	tests := []struct {
		dim  gputypes.TextureDimension
		want gputypes.TextureViewDimension
	}{
		{gputypes.TextureDimension1D, gputypes.TextureViewDimension1D},
		{gputypes.TextureDimension2D, gputypes.TextureViewDimension2D},
		{gputypes.TextureDimension3D, gputypes.TextureViewDimension3D},
	}
	for _, tt := range tests {
		if got := viewDimension(tt.dim); got != tt.want {
			t.Errorf("viewDimension(%v) = %v, want %v", tt.dim, got, tt.want)
		}
	}
}
