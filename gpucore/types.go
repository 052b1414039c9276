package gpucore

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/WilliamKappler/caelumGraphicsSystem/format"
)

// Resource IDs
//
// These opaque IDs represent GPU resources. Each device implementation
// maintains a mapping between IDs and actual backend resources.
// IDs are uint64 to accommodate various backend handle sizes.

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// ShaderID is an opaque handle to a compiled shader stage.
type ShaderID uint64

// ProgramID is an opaque handle to a linked program.
type ProgramID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// Device errors.
var (
	// ErrUnknownResource is returned when an ID does not name a live resource.
	ErrUnknownResource = errors.New("gpucore: unknown resource")

	// ErrUnsupported is returned when the device lacks a requested feature.
	ErrUnsupported = errors.New("gpucore: not supported by device")

	// ErrCompile is returned when a shader fails to compile.
	ErrCompile = errors.New("gpucore: shader compilation failed")

	// ErrLink is returned when a program fails to link.
	ErrLink = errors.New("gpucore: program link failed")

	// ErrFrame is returned when a draw is issued outside BeginFrame/EndFrame.
	ErrFrame = errors.New("gpucore: no frame in progress")
)

// Language is a shading language accepted by a device.
type Language uint8

// Shading languages.
const (
	GLSL Language = iota
	WGSL
)

// Extension returns the file extension used for shader sources.
func (l Language) Extension() string {
	if l == WGSL {
		return "wgsl"
	}
	return "glsl"
}

// String returns the language name.
func (l Language) String() string {
	if l == WGSL {
		return "WGSL"
	}
	return "GLSL"
}

// ShaderStage is the pipeline stage a shader runs in.
type ShaderStage uint8

// Shader stages.
const (
	StageVertex ShaderStage = iota
	StageFragment
	StageGeometry
)

// Suffix returns the stage part of a shader file name ("vert", "frag",
// "geom").
func (s ShaderStage) Suffix() string {
	switch s {
	case StageVertex:
		return "vert"
	case StageFragment:
		return "frag"
	case StageGeometry:
		return "geom"
	default:
		return fmt.Sprintf("stage%d", s)
	}
}

// String returns the stage name.
func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageGeometry:
		return "geometry"
	default:
		return fmt.Sprintf("ShaderStage(%d)", s)
	}
}

// ElementType is the scalar type of a vertex attribute component.
type ElementType uint8

// Vertex element types.
const (
	TypeByte ElementType = iota
	TypeUnsignedByte
	TypeShort
	TypeUnsignedShort
	TypeInt
	TypeUnsignedInt
	TypeHalfFloat
	TypeFloat
	TypeDouble
	TypeFixed
)

// Size returns the size of one element in bytes.
func (t ElementType) Size() int {
	switch t {
	case TypeByte, TypeUnsignedByte:
		return 1
	case TypeShort, TypeUnsignedShort, TypeHalfFloat:
		return 2
	case TypeInt, TypeUnsignedInt, TypeFloat, TypeFixed:
		return 4
	case TypeDouble:
		return 8
	default:
		return 0
	}
}

// String returns the element type name.
func (t ElementType) String() string {
	switch t {
	case TypeByte:
		return "byte"
	case TypeUnsignedByte:
		return "ubyte"
	case TypeShort:
		return "short"
	case TypeUnsignedShort:
		return "ushort"
	case TypeInt:
		return "int"
	case TypeUnsignedInt:
		return "uint"
	case TypeHalfFloat:
		return "half"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeFixed:
		return "fixed"
	default:
		return fmt.Sprintf("ElementType(%d)", t)
	}
}

// Primitive is the topology used to assemble vertices.
type Primitive uint8

// Primitive modes.
const (
	Points Primitive = iota
	Lines
	LineStrip
	LineLoop
	Triangles
	TriangleStrip
	TriangleFan
)

// String returns the primitive name.
func (p Primitive) String() string {
	switch p {
	case Points:
		return "points"
	case Lines:
		return "lines"
	case LineStrip:
		return "line-strip"
	case LineLoop:
		return "line-loop"
	case Triangles:
		return "triangles"
	case TriangleStrip:
		return "triangle-strip"
	case TriangleFan:
		return "triangle-fan"
	default:
		return fmt.Sprintf("Primitive(%d)", p)
	}
}

// BufferKind selects the binding target of a buffer.
type BufferKind uint8

// Buffer kinds.
const (
	VertexBuffer BufferKind = iota
	IndexBuffer
)

// Capabilities describes what a device can do.
type Capabilities struct {
	// Language is the shading language CompileShader accepts.
	Language Language

	// ShaderCompilation is false when the device cannot compile shaders at
	// all. Such a device cannot host a graphics system.
	ShaderCompilation bool

	// GeometryShaders reports support for StageGeometry.
	GeometryShaders bool

	// TextureInvalidation reports whether InvalidateTexture does anything.
	TextureInvalidation bool

	// MaxTextureUnits is the number of texture units a draw can bind.
	MaxTextureUnits int
}

// TextureDescriptor describes GPU storage for a texture.
type TextureDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Dimension is 1D, 2D or 3D.
	Dimension gputypes.TextureDimension

	// Format is the texel layout of the data that will be written.
	Format format.Format

	// Ordering is the channel order of the written data.
	Ordering format.Ordering

	// Size is the texel count per axis. Unused axes are 1.
	Size [3]int

	// MipLevels is the total number of levels, at least 1.
	MipLevels int
}

// TextureWrite is a full-region upload starting at the texture origin.
type TextureWrite struct {
	// Size is the texel count per axis of the written region.
	Size [3]int

	// RowSize is the byte distance between rows in Data. It is a multiple
	// of 4 and may include padding past the last texel.
	RowSize int

	// SheetSize is the byte distance between 2D slices in Data.
	SheetSize int

	// Data holds the texels in the layout of the texture's descriptor.
	Data []byte
}

// ProgramDescriptor describes a program to link.
type ProgramDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Vertex and Fragment are required.
	Vertex   ShaderID
	Fragment ShaderID

	// Geometry is optional (InvalidID for none).
	Geometry ShaderID

	// Uniforms lists the vec4 uniform names the program uses, in the order
	// they appear in its uniform block. Devices that look uniforms up by
	// name ignore it.
	Uniforms []string
}

// VertexAttribute describes one attribute column in an interleaved buffer.
type VertexAttribute struct {
	// Location is the shader binding point.
	Location uint32

	// Type and Count give the component type and count (1–4).
	Type  ElementType
	Count int

	// Integer passes components to the shader unconverted.
	Integer bool

	// Normalize maps integer components to [0, 1] or [-1, 1].
	Normalize bool

	// Offset is the byte offset of the attribute within a vertex.
	Offset int
}

// TextureBinding binds a texture to a texture unit for one draw.
type TextureBinding struct {
	Unit      int
	Texture   TextureID
	Dimension gputypes.TextureDimension
}

// SamplerUniform names the sampler uniform of a texture unit.
func SamplerUniform(unit int) string {
	return fmt.Sprintf("textureUnit%d", unit)
}

// RangeUniform names the vec4 uniform holding the used fraction of the
// texture bound to a unit.
func RangeUniform(unit int) string {
	return fmt.Sprintf("textureUnitRange%d", unit)
}

// DrawCall is one mesh draw.
type DrawCall struct {
	Label      string
	Program    ProgramID
	Primitive  Primitive
	Vertices   BufferID
	Stride     int
	Attributes []VertexAttribute

	// VertexCount is used when Indices is InvalidID.
	VertexCount int

	// Indices is an optional buffer of uint32 indices.
	Indices    BufferID
	IndexCount int

	Textures []TextureBinding
}
