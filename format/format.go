// Package format is the pixel format catalog shared by textures and GPU
// backends.
//
// A Format fixes three things about a texel: how many channels it has (1–4),
// how many bytes each channel occupies (1, 2 or 4), and how the bytes are
// encoded (normalized, float or integer). Everything else (cell size, transfer
// type, backend enums) is derived from those three.
//
// The catalog is static. Looking up a Format that is not in it is a
// programming error and panics.
package format

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
)

// Format identifies a texel layout.
type Format uint8

// Encoding is the numeric interpretation of a channel.
type Encoding uint8

// Channel encodings.
const (
	// Unorm maps [0, 1] onto the full unsigned integer range.
	Unorm Encoding = iota
	// Snorm maps [-1, 1] onto the signed integer range.
	Snorm
	// Float is an IEEE 754 float of the channel size (16 or 32 bit).
	Float
	// Uint is an unsigned integer read as-is by shaders.
	Uint
	// Sint is a signed integer read as-is by shaders.
	Sint
)

// String returns the encoding suffix used in format names.
func (e Encoding) String() string {
	switch e {
	case Unorm:
		return "Unorm"
	case Snorm:
		return "Snorm"
	case Float:
		return "Float"
	case Uint:
		return "Uint"
	case Sint:
		return "Sint"
	default:
		return fmt.Sprintf("Encoding(%d)", e)
	}
}

// Transfer is the component type used when moving texel data to the GPU.
type Transfer uint8

// Transfer types.
const (
	UnsignedByte Transfer = iota
	Byte
	UnsignedShort
	Short
	HalfFloat
	UnsignedInt
	Int
	Float32
)

// String returns the transfer type name.
func (t Transfer) String() string {
	switch t {
	case UnsignedByte:
		return "UnsignedByte"
	case Byte:
		return "Byte"
	case UnsignedShort:
		return "UnsignedShort"
	case Short:
		return "Short"
	case HalfFloat:
		return "HalfFloat"
	case UnsignedInt:
		return "UnsignedInt"
	case Int:
		return "Int"
	case Float32:
		return "Float"
	default:
		return fmt.Sprintf("Transfer(%d)", t)
	}
}

// Ordering is the channel order of a texel in memory.
type Ordering uint8

const (
	// OrderingStandard stores channels as R, G, B, A.
	OrderingStandard Ordering = iota
	// OrderingModified stores channels as B, G, R, A. Some platforms prefer
	// it for 8-bit three and four channel formats.
	OrderingModified
)

// String returns "RGBA" or "BGRA".
func (o Ordering) String() string {
	if o == OrderingModified {
		return "BGRA"
	}
	return "RGBA"
}

// Formats are grouped by encoding and channel size; each group holds the
// 1, 2, 3 and 4 channel variant in that order.
const (
	Undefined Format = iota

	R8Unorm
	RG8Unorm
	RGB8Unorm
	RGBA8Unorm

	R16Unorm
	RG16Unorm
	RGB16Unorm
	RGBA16Unorm

	R8Snorm
	RG8Snorm
	RGB8Snorm
	RGBA8Snorm

	R16Snorm
	RG16Snorm
	RGB16Snorm
	RGBA16Snorm

	R16Float
	RG16Float
	RGB16Float
	RGBA16Float

	R32Float
	RG32Float
	RGB32Float
	RGBA32Float

	R8Uint
	RG8Uint
	RGB8Uint
	RGBA8Uint

	R16Uint
	RG16Uint
	RGB16Uint
	RGBA16Uint

	R32Uint
	RG32Uint
	RGB32Uint
	RGBA32Uint

	R8Sint
	RG8Sint
	RGB8Sint
	RGBA8Sint

	R16Sint
	RG16Sint
	RGB16Sint
	RGBA16Sint

	R32Sint
	RG32Sint
	RGB32Sint
	RGBA32Sint

	formatEnd
)

// Count is the number of formats in the catalog.
const Count = int(formatEnd) - 1

type group struct {
	size     int
	encoding Encoding
	transfer Transfer
}

var groups = [...]group{
	{1, Unorm, UnsignedByte},
	{2, Unorm, UnsignedShort},
	{1, Snorm, Byte},
	{2, Snorm, Short},
	{2, Float, HalfFloat},
	{4, Float, Float32},
	{1, Uint, UnsignedByte},
	{2, Uint, UnsignedShort},
	{4, Uint, UnsignedInt},
	{1, Sint, Byte},
	{2, Sint, Short},
	{4, Sint, Int},
}

var channelPrefix = [...]string{"R", "RG", "RGB", "RGBA"}

func (f Format) group() group {
	if f == Undefined || f >= formatEnd {
		panic(fmt.Sprintf("format: %d is not in the catalog", uint8(f)))
	}
	return groups[(f-1)/4]
}

// Valid reports whether f is a catalog entry.
func (f Format) Valid() bool {
	return f > Undefined && f < formatEnd
}

// Channels returns the number of channels, 1 to 4.
func (f Format) Channels() int {
	f.group()
	return int((f-1)%4) + 1
}

// ChannelSize returns the size of one channel in bytes: 1, 2 or 4.
func (f Format) ChannelSize() int {
	return f.group().size
}

// CellSize returns the size of one texel in bytes.
func (f Format) CellSize() int {
	return f.Channels() * f.ChannelSize()
}

// Encoding returns how channel bytes are interpreted.
func (f Format) Encoding() Encoding {
	return f.group().encoding
}

// Transfer returns the component type used for uploads.
func (f Format) Transfer() Transfer {
	return f.group().transfer
}

// IsInteger reports whether shaders read the format as unnormalized integers.
func (f Format) IsInteger() bool {
	e := f.Encoding()
	return e == Uint || e == Sint
}

// Swizzleable reports whether a platform may store f in modified (BGR/BGRA)
// order. Only the 8-bit normalized three and four channel formats qualify.
func (f Format) Swizzleable() bool {
	switch f {
	case RGB8Unorm, RGBA8Unorm, RGB8Snorm, RGBA8Snorm:
		return true
	default:
		return false
	}
}

// WithChannels returns the format of the same group with n channels.
func (f Format) WithChannels(n int) Format {
	if n < 1 || n > 4 {
		panic(fmt.Sprintf("format: invalid channel count %d", n))
	}
	f.group()
	return f - Format((f-1)%4) + Format(n-1)
}

// String returns the catalog name, e.g. "RGBA8Unorm".
func (f Format) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
	g := f.group()
	return fmt.Sprintf("%s%d%s", channelPrefix[f.Channels()-1], g.size*8, g.encoding)
}

// Parse looks a format up by its catalog name. Matching is case-insensitive.
func Parse(name string) (Format, error) {
	for f := R8Unorm; f < formatEnd; f++ {
		if strings.EqualFold(f.String(), name) {
			return f, nil
		}
	}
	return Undefined, fmt.Errorf("format: unknown format %q", name)
}

// ForDepth returns the 8-bit normalized format for a decoded image with the
// given bits per pixel: 8, 24 or 32.
func ForDepth(bitsPerPixel int) (Format, error) {
	switch bitsPerPixel {
	case 8:
		return R8Unorm, nil
	case 24:
		return RGB8Unorm, nil
	case 32:
		return RGBA8Unorm, nil
	default:
		return Undefined, fmt.Errorf("format: unsupported bit depth %d", bitsPerPixel)
	}
}

// GPUFormat returns the WebGPU texture format for f, or
// gputypes.TextureFormatUndefined when WebGPU has no direct equivalent.
// Three channel formats have none; upload them through ExpandFormat.
func (f Format) GPUFormat() gputypes.TextureFormat {
	if gf, ok := gpuFormats[f]; ok {
		return gf
	}
	return gputypes.TextureFormatUndefined
}

// ExpandFormat returns the format backends use to store f. Three channel
// formats are stored as their four channel twin; all others as themselves.
func (f Format) ExpandFormat() Format {
	if f.Channels() == 3 {
		return f.WithChannels(4)
	}
	return f
}

var gpuFormats = map[Format]gputypes.TextureFormat{
	R8Unorm:     gputypes.TextureFormatR8Unorm,
	RG8Unorm:    gputypes.TextureFormatRG8Unorm,
	RGBA8Unorm:  gputypes.TextureFormatRGBA8Unorm,
	R8Snorm:     gputypes.TextureFormatR8Snorm,
	RG8Snorm:    gputypes.TextureFormatRG8Snorm,
	RGBA8Snorm:  gputypes.TextureFormatRGBA8Snorm,
	R16Float:    gputypes.TextureFormatR16Float,
	RG16Float:   gputypes.TextureFormatRG16Float,
	RGBA16Float: gputypes.TextureFormatRGBA16Float,
	R32Float:    gputypes.TextureFormatR32Float,
	RG32Float:   gputypes.TextureFormatRG32Float,
	RGBA32Float: gputypes.TextureFormatRGBA32Float,
	R8Uint:      gputypes.TextureFormatR8Uint,
	RG8Uint:     gputypes.TextureFormatRG8Uint,
	RGBA8Uint:   gputypes.TextureFormatRGBA8Uint,
	R16Uint:     gputypes.TextureFormatR16Uint,
	RG16Uint:    gputypes.TextureFormatRG16Uint,
	RGBA16Uint:  gputypes.TextureFormatRGBA16Uint,
	R32Uint:     gputypes.TextureFormatR32Uint,
	RG32Uint:    gputypes.TextureFormatRG32Uint,
	RGBA32Uint:  gputypes.TextureFormatRGBA32Uint,
	R8Sint:      gputypes.TextureFormatR8Sint,
	RG8Sint:     gputypes.TextureFormatRG8Sint,
	RGBA8Sint:   gputypes.TextureFormatRGBA8Sint,
	R16Sint:     gputypes.TextureFormatR16Sint,
	RG16Sint:    gputypes.TextureFormatRG16Sint,
	RGBA16Sint:  gputypes.TextureFormatRGBA16Sint,
	R32Sint:     gputypes.TextureFormatR32Sint,
	RG32Sint:    gputypes.TextureFormatRG32Sint,
	RGBA32Sint:  gputypes.TextureFormatRGBA32Sint,
}

// ChannelOffsets returns the byte offset of each channel from the start of a
// texel. Entries 0–3 are R, G, B and A; entries past the channel count point
// at the texel start. Entry 4 always points at the texel start.
//
// With OrderingModified and at least three channels, R and B trade places.
func (f Format) ChannelOffsets(o Ordering) [5]int {
	var offs [5]int
	cs := f.ChannelSize()
	n := f.Channels()
	if n >= 3 && o == OrderingModified {
		offs[0] = 2 * cs
		offs[1] = cs
		offs[2] = 0
		if n == 4 {
			offs[3] = 3 * cs
		}
		return offs
	}
	for i := 0; i < n; i++ {
		offs[i] = i * cs
	}
	return offs
}
