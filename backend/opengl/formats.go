package opengl

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/gogpu/gputypes"

	"github.com/WilliamKappler/caelumGraphicsSystem/format"
	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
)

// internalFormats maps every catalog format to its sized GL internal format.
var internalFormats = map[format.Format]uint32{
	format.R8Unorm:     gl.R8,
	format.RG8Unorm:    gl.RG8,
	format.RGB8Unorm:   gl.RGB8,
	format.RGBA8Unorm:  gl.RGBA8,
	format.R16Unorm:    gl.R16,
	format.RG16Unorm:   gl.RG16,
	format.RGB16Unorm:  gl.RGB16,
	format.RGBA16Unorm: gl.RGBA16,

	format.R8Snorm:     gl.R8_SNORM,
	format.RG8Snorm:    gl.RG8_SNORM,
	format.RGB8Snorm:   gl.RGB8_SNORM,
	format.RGBA8Snorm:  gl.RGBA8_SNORM,
	format.R16Snorm:    gl.R16_SNORM,
	format.RG16Snorm:   gl.RG16_SNORM,
	format.RGB16Snorm:  gl.RGB16_SNORM,
	format.RGBA16Snorm: gl.RGBA16_SNORM,

	format.R16Float:    gl.R16F,
	format.RG16Float:   gl.RG16F,
	format.RGB16Float:  gl.RGB16F,
	format.RGBA16Float: gl.RGBA16F,
	format.R32Float:    gl.R32F,
	format.RG32Float:   gl.RG32F,
	format.RGB32Float:  gl.RGB32F,
	format.RGBA32Float: gl.RGBA32F,

	format.R8Uint:     gl.R8UI,
	format.RG8Uint:    gl.RG8UI,
	format.RGB8Uint:   gl.RGB8UI,
	format.RGBA8Uint:  gl.RGBA8UI,
	format.R16Uint:    gl.R16UI,
	format.RG16Uint:   gl.RG16UI,
	format.RGB16Uint:  gl.RGB16UI,
	format.RGBA16Uint: gl.RGBA16UI,
	format.R32Uint:    gl.R32UI,
	format.RG32Uint:   gl.RG32UI,
	format.RGB32Uint:  gl.RGB32UI,
	format.RGBA32Uint: gl.RGBA32UI,

	format.R8Sint:     gl.R8I,
	format.RG8Sint:    gl.RG8I,
	format.RGB8Sint:   gl.RGB8I,
	format.RGBA8Sint:  gl.RGBA8I,
	format.R16Sint:    gl.R16I,
	format.RG16Sint:   gl.RG16I,
	format.RGB16Sint:  gl.RGB16I,
	format.RGBA16Sint: gl.RGBA16I,
	format.R32Sint:    gl.R32I,
	format.RG32Sint:   gl.RG32I,
	format.RGB32Sint:  gl.RGB32I,
	format.RGBA32Sint: gl.RGBA32I,
}

// internalFormat returns the sized internal format of f, or 0.
func internalFormat(f format.Format) uint32 {
	return internalFormats[f]
}

// pixelFormat returns the client format and type used to upload data of
// format f stored in ordering o.
func pixelFormat(f format.Format, o format.Ordering) (pixFormat, pixType uint32) {
	modified := o == format.OrderingModified && f.Swizzleable()
	integer := f.IsInteger()
	switch f.Channels() {
	case 1:
		pixFormat = pick(integer, gl.RED_INTEGER, gl.RED)
	case 2:
		pixFormat = pick(integer, gl.RG_INTEGER, gl.RG)
	case 3:
		if modified {
			pixFormat = gl.BGR
		} else {
			pixFormat = pick(integer, gl.RGB_INTEGER, gl.RGB)
		}
	default:
		if modified {
			pixFormat = gl.BGRA
		} else {
			pixFormat = pick(integer, gl.RGBA_INTEGER, gl.RGBA)
		}
	}

	return pixFormat, transferType(f.Transfer())
}

// transferType maps a catalog transfer type to its GL component type.
func transferType(t format.Transfer) uint32 {
	switch t {
	case format.UnsignedByte:
		return gl.UNSIGNED_BYTE
	case format.Byte:
		return gl.BYTE
	case format.UnsignedShort:
		return gl.UNSIGNED_SHORT
	case format.Short:
		return gl.SHORT
	case format.HalfFloat:
		return gl.HALF_FLOAT
	case format.UnsignedInt:
		return gl.UNSIGNED_INT
	case format.Int:
		return gl.INT
	case format.Float32:
		return gl.FLOAT
	default:
		return 0
	}
}

func pick(cond bool, a, b uint32) uint32 {
	if cond {
		return a
	}
	return b
}

// textureTarget returns the bind target of a texture dimension.
func textureTarget(dim gputypes.TextureDimension) uint32 {
	switch dim {
	case gputypes.TextureDimension1D:
		return gl.TEXTURE_1D
	case gputypes.TextureDimension3D:
		return gl.TEXTURE_3D
	default:
		return gl.TEXTURE_2D
	}
}

// wrapAxes returns the wrap parameters that apply to a texture dimension.
func wrapAxes(dim gputypes.TextureDimension) []uint32 {
	switch dim {
	case gputypes.TextureDimension1D:
		return []uint32{gl.TEXTURE_WRAP_S}
	case gputypes.TextureDimension3D:
		return []uint32{gl.TEXTURE_WRAP_S, gl.TEXTURE_WRAP_T, gl.TEXTURE_WRAP_R}
	default:
		return []uint32{gl.TEXTURE_WRAP_S, gl.TEXTURE_WRAP_T}
	}
}

// elementType returns the GL type of a vertex component.
func elementType(t gpucore.ElementType) uint32 {
	switch t {
	case gpucore.TypeByte:
		return gl.BYTE
	case gpucore.TypeUnsignedByte:
		return gl.UNSIGNED_BYTE
	case gpucore.TypeShort:
		return gl.SHORT
	case gpucore.TypeUnsignedShort:
		return gl.UNSIGNED_SHORT
	case gpucore.TypeInt:
		return gl.INT
	case gpucore.TypeUnsignedInt:
		return gl.UNSIGNED_INT
	case gpucore.TypeHalfFloat:
		return gl.HALF_FLOAT
	case gpucore.TypeDouble:
		return gl.DOUBLE
	case gpucore.TypeFixed:
		return gl.FIXED
	default:
		return gl.FLOAT
	}
}

// primitiveMode returns the GL draw mode of a primitive.
func primitiveMode(p gpucore.Primitive) uint32 {
	switch p {
	case gpucore.Points:
		return gl.POINTS
	case gpucore.Lines:
		return gl.LINES
	case gpucore.LineStrip:
		return gl.LINE_STRIP
	case gpucore.LineLoop:
		return gl.LINE_LOOP
	case gpucore.TriangleStrip:
		return gl.TRIANGLE_STRIP
	case gpucore.TriangleFan:
		return gl.TRIANGLE_FAN
	default:
		return gl.TRIANGLES
	}
}

// shaderType returns the GL shader object type of a stage.
func shaderType(stage gpucore.ShaderStage) (uint32, error) {
	switch stage {
	case gpucore.StageVertex:
		return gl.VERTEX_SHADER, nil
	case gpucore.StageFragment:
		return gl.FRAGMENT_SHADER, nil
	case gpucore.StageGeometry:
		return gl.GEOMETRY_SHADER, nil
	default:
		return 0, fmt.Errorf("opengl: unknown shader stage %d", stage)
	}
}

// debugLevel maps a KHR_debug severity to a log level.
func debugLevel(severity uint32) slog.Level {
	switch severity {
	case gl.DEBUG_SEVERITY_HIGH:
		return slog.LevelError
	case gl.DEBUG_SEVERITY_MEDIUM:
		return slog.LevelWarn
	case gl.DEBUG_SEVERITY_LOW:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// unpackRowSize is the row pitch GL reads with UNPACK_ALIGNMENT 4 and no
// row length override.
func unpackRowSize(width, cellSize int) int {
	return (width*cellSize + 3) &^ 3
}
