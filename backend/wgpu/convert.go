package wgpu

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/WilliamKappler/caelumGraphicsSystem/format"
	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
	"github.com/WilliamKappler/caelumGraphicsSystem/internal/convert"
)

// storageFormat returns the catalog format a texture of format f is stored
// as on the GPU and its WebGPU equivalent. Three channel formats gain an
// alpha channel.
func storageFormat(f format.Format) (format.Format, gputypes.TextureFormat, error) {
	stored := f.ExpandFormat()
	gf := stored.GPUFormat()
	if gf == gputypes.TextureFormatUndefined {
		return format.Undefined, gf, errors.Wrapf(gpucore.ErrUnsupported, "wgpu: texture format %v", f)
	}
	return stored, gf, nil
}

// opaque returns the bytes of one channel holding the maximum (or 1 for
// integers and floats) in format f.
func opaque(f format.Format) []byte {
	b := make([]byte, f.ChannelSize())
	switch f.Encoding() {
	case format.Unorm:
		for i := range b {
			b[i] = 0xff
		}
	case format.Snorm:
		b[len(b)-1] = 0x7f
		for i := 0; i < len(b)-1; i++ {
			b[i] = 0xff
		}
	case format.Float:
		if len(b) == 2 {
			binary.LittleEndian.PutUint16(b, convert.Half(1))
		} else {
			binary.LittleEndian.PutUint32(b, math.Float32bits(1))
		}
	default:
		b[0] = 1
	}
	return b
}

// repack converts a texture upload from the mirror layout (padded rows,
// any ordering, three or four channels) to tight rows of the stored
// format in standard order. It returns the data and its row pitch.
func repack(desc *gpucore.TextureDescriptor, w *gpucore.TextureWrite) ([]byte, int) {
	src := desc.Format
	dst := src.ExpandFormat()
	cs := src.ChannelSize()
	srcCell, dstCell := src.CellSize(), dst.CellSize()
	offs := src.ChannelOffsets(desc.Ordering)
	alpha := opaque(src)

	width, height, depth := max(w.Size[0], 1), max(w.Size[1], 1), max(w.Size[2], 1)
	rowPitch := width * dstCell
	out := make([]byte, rowPitch*height*depth)

	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			srcRow := z*w.SheetSize + y*w.RowSize
			dstRow := (z*height + y) * rowPitch
			if srcRow+width*srcCell > len(w.Data) {
				return out, rowPitch
			}
			for x := 0; x < width; x++ {
				s := w.Data[srcRow+x*srcCell:]
				d := out[dstRow+x*dstCell:]
				for ch := 0; ch < src.Channels(); ch++ {
					copy(d[ch*cs:(ch+1)*cs], s[offs[ch]:offs[ch]+cs])
				}
				if dst.Channels() > src.Channels() {
					copy(d[3*cs:4*cs], alpha)
				}
			}
		}
	}
	return out, rowPitch
}

// vertexFormat maps an attribute to a WebGPU vertex format. WebGPU has no
// one or three component 8 and 16 bit formats; those are widened when the
// stride leaves room for the extra component.
func vertexFormat(a gpucore.VertexAttribute, stride int) (gputypes.VertexFormat, error) {
	unsupported := errors.Wrapf(gpucore.ErrUnsupported, "wgpu: vertex attribute %d: %d x %v", a.Location, a.Count, a.Type)
	count := a.Count
	size := a.Type.Size()
	if size == 1 || size == 2 {
		if count == 1 || count == 3 {
			count++
			if a.Offset+count*size > stride {
				return gputypes.VertexFormatUndefined, unsupported
			}
		}
	}
	idx := count/2 - 1 // x2 -> 0, x4 -> 1
	pick2 := func(x2, x4 gputypes.VertexFormat) gputypes.VertexFormat {
		if idx == 0 {
			return x2
		}
		return x4
	}
	pick4 := func(x1, x2, x3, x4 gputypes.VertexFormat) gputypes.VertexFormat {
		return [...]gputypes.VertexFormat{x1, x2, x3, x4}[count-1]
	}

	switch a.Type {
	case gpucore.TypeUnsignedByte:
		switch {
		case a.Integer:
			return pick2(gputypes.VertexFormatUint8x2, gputypes.VertexFormatUint8x4), nil
		case a.Normalize:
			return pick2(gputypes.VertexFormatUnorm8x2, gputypes.VertexFormatUnorm8x4), nil
		}
	case gpucore.TypeByte:
		switch {
		case a.Integer:
			return pick2(gputypes.VertexFormatSint8x2, gputypes.VertexFormatSint8x4), nil
		case a.Normalize:
			return pick2(gputypes.VertexFormatSnorm8x2, gputypes.VertexFormatSnorm8x4), nil
		}
	case gpucore.TypeUnsignedShort:
		switch {
		case a.Integer:
			return pick2(gputypes.VertexFormatUint16x2, gputypes.VertexFormatUint16x4), nil
		case a.Normalize:
			return pick2(gputypes.VertexFormatUnorm16x2, gputypes.VertexFormatUnorm16x4), nil
		}
	case gpucore.TypeShort:
		switch {
		case a.Integer:
			return pick2(gputypes.VertexFormatSint16x2, gputypes.VertexFormatSint16x4), nil
		case a.Normalize:
			return pick2(gputypes.VertexFormatSnorm16x2, gputypes.VertexFormatSnorm16x4), nil
		}
	case gpucore.TypeHalfFloat:
		return pick2(gputypes.VertexFormatFloat16x2, gputypes.VertexFormatFloat16x4), nil
	case gpucore.TypeFloat:
		return pick4(gputypes.VertexFormatFloat32, gputypes.VertexFormatFloat32x2,
			gputypes.VertexFormatFloat32x3, gputypes.VertexFormatFloat32x4), nil
	case gpucore.TypeUnsignedInt:
		if a.Integer {
			return pick4(gputypes.VertexFormatUint32, gputypes.VertexFormatUint32x2,
				gputypes.VertexFormatUint32x3, gputypes.VertexFormatUint32x4), nil
		}
	case gpucore.TypeInt:
		if a.Integer {
			return pick4(gputypes.VertexFormatSint32, gputypes.VertexFormatSint32x2,
				gputypes.VertexFormatSint32x3, gputypes.VertexFormatSint32x4), nil
		}
	}
	return gputypes.VertexFormatUndefined, unsupported
}

// vertexLayout builds the buffer layout of a draw call.
func vertexLayout(call *gpucore.DrawCall) (gputypes.VertexBufferLayout, error) {
	layout := gputypes.VertexBufferLayout{
		ArrayStride: uint64(call.Stride),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  make([]gputypes.VertexAttribute, 0, len(call.Attributes)),
	}
	for _, a := range call.Attributes {
		vf, err := vertexFormat(a, call.Stride)
		if err != nil {
			return layout, err
		}
		layout.Attributes = append(layout.Attributes, gputypes.VertexAttribute{
			Format:         vf,
			Offset:         uint64(a.Offset),
			ShaderLocation: a.Location,
		})
	}
	return layout, nil
}

// viewDimension returns the view dimension matching a texture dimension.
func viewDimension(dim gputypes.TextureDimension) gputypes.TextureViewDimension {
	switch dim {
	case gputypes.TextureDimension1D:
		return gputypes.TextureViewDimension1D
	case gputypes.TextureDimension3D:
		return gputypes.TextureViewDimension3D
	default:
		return gputypes.TextureViewDimension2D
	}
}

// topology maps a primitive to a WebGPU topology. Line loops and triangle
// fans have none and are drawn as lists through expandIndices.
func topology(p gpucore.Primitive) gputypes.PrimitiveTopology {
	switch p {
	case gpucore.Points:
		return gputypes.PrimitiveTopologyPointList
	case gpucore.Lines, gpucore.LineLoop:
		return gputypes.PrimitiveTopologyLineList
	case gpucore.LineStrip:
		return gputypes.PrimitiveTopologyLineStrip
	case gpucore.TriangleStrip:
		return gputypes.PrimitiveTopologyTriangleStrip
	default:
		return gputypes.PrimitiveTopologyTriangleList
	}
}

// needsExpansion reports whether p must be rewritten as a list.
func needsExpansion(p gpucore.Primitive) bool {
	return p == gpucore.LineLoop || p == gpucore.TriangleFan
}

// expandIndices rewrites a line loop or triangle fan as a list. src holds
// the indices to expand; nil means 0..count-1.
func expandIndices(p gpucore.Primitive, src []uint32, count int) []uint32 {
	at := func(i int) uint32 {
		if src == nil {
			return uint32(i)
		}
		return src[i]
	}
	var out []uint32
	switch p {
	case gpucore.LineLoop:
		if count < 2 {
			return nil
		}
		out = make([]uint32, 0, 2*count)
		for i := 0; i < count; i++ {
			out = append(out, at(i), at((i+1)%count))
		}
	case gpucore.TriangleFan:
		if count < 3 {
			return nil
		}
		out = make([]uint32, 0, 3*(count-2))
		for i := 1; i < count-1; i++ {
			out = append(out, at(0), at(i), at(i+1))
		}
	}
	return out
}

// uniformBlock holds the vec4 slots of a program's uniform buffer in
// declaration order.
type uniformBlock struct {
	names []string
	data  []byte
}

// newUniformBlock lays out the listed names, then the range uniform of every
// sampled unit in slots that the list leaves out. Those ranges start at
// (1, 1, 1, 1) so an unlinked unit samples its whole texture.
func newUniformBlock(names []string, slots []textureSlot) *uniformBlock {
	u := &uniformBlock{names: append([]string(nil), names...)}
	var ranges []string
	for _, s := range slots {
		if n := gpucore.RangeUniform(s.unit); !s.sampler && !slices.Contains(u.names, n) && !slices.Contains(ranges, n) {
			ranges = append(ranges, n)
		}
	}
	u.names = append(u.names, ranges...)
	u.data = make([]byte, 16*max(len(u.names), 1))
	for _, n := range ranges {
		u.setVec4(n, mgl32.Vec4{1, 1, 1, 1})
	}
	return u
}

func (u *uniformBlock) slot(name string) int {
	for i, n := range u.names {
		if n == name {
			return i
		}
	}
	return -1
}

func (u *uniformBlock) put(slot int, v ...float32) {
	for i, f := range v {
		off := slot*16 + i*4
		if off+4 > len(u.data) {
			return
		}
		binary.LittleEndian.PutUint32(u.data[off:], math.Float32bits(f))
	}
}

// setVec4 stores v in the slot of name. It reports whether name is a slot.
func (u *uniformBlock) setVec4(name string, v mgl32.Vec4) bool {
	s := u.slot(name)
	if s < 0 {
		return false
	}
	u.put(s, v[0], v[1], v[2], v[3])
	return true
}

// setScalar stores v in the x component of the slot of name.
func (u *uniformBlock) setScalar(name string, v float32) bool {
	s := u.slot(name)
	if s < 0 {
		return false
	}
	u.put(s, v)
	return true
}

// setMat4 stores the columns of m in the slot of name and the three after
// it. Columns past the end of the block are dropped.
func (u *uniformBlock) setMat4(name string, m mgl32.Mat4) bool {
	s := u.slot(name)
	if s < 0 {
		return false
	}
	for c := 0; c < 4; c++ {
		col := m.Col(c)
		u.put(s+c, col[0], col[1], col[2], col[3])
	}
	return true
}
