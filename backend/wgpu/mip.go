package wgpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/WilliamKappler/caelumGraphicsSystem/format"
	"github.com/WilliamKappler/caelumGraphicsSystem/internal/convert"
)

func readChannel(f format.Format, b []byte) float64 {
	switch f.Encoding() {
	case format.Unorm:
		if f.ChannelSize() == 1 {
			return convert.FromUnorm8(b[0])
		}
		return convert.FromUnorm16(binary.LittleEndian.Uint16(b))
	case format.Snorm:
		if f.ChannelSize() == 1 {
			return convert.FromSnorm8(int8(b[0]))
		}
		return convert.FromSnorm16(int16(binary.LittleEndian.Uint16(b)))
	case format.Float:
		if f.ChannelSize() == 2 {
			return float64(convert.FromHalf(binary.LittleEndian.Uint16(b)))
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	return 0
}

func writeChannel(f format.Format, b []byte, v float64) {
	switch f.Encoding() {
	case format.Unorm:
		if f.ChannelSize() == 1 {
			b[0] = convert.Unorm8(v)
		} else {
			binary.LittleEndian.PutUint16(b, convert.Unorm16(v))
		}
	case format.Snorm:
		if f.ChannelSize() == 1 {
			b[0] = byte(convert.Snorm8(v))
		} else {
			binary.LittleEndian.PutUint16(b, uint16(convert.Snorm16(v)))
		}
	case format.Float:
		if f.ChannelSize() == 2 {
			binary.LittleEndian.PutUint16(b, convert.Half(float32(v)))
		} else {
			binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
		}
	}
}

// mipSize returns the extent of the level below size.
func mipSize(dim gputypes.TextureDimension, size [3]int) [3]int {
	next := [3]int{max(size[0]/2, 1), 1, 1}
	if dim != gputypes.TextureDimension1D {
		next[1] = max(size[1]/2, 1)
	}
	if dim == gputypes.TextureDimension3D {
		next[2] = max(size[2]/2, 1)
	}
	return next
}

// downsample box-filters one tightly packed level of format f into the
// next. Integer formats are not filterable and yield nil.
func downsample(f format.Format, dim gputypes.TextureDimension, src []byte, size [3]int) ([]byte, [3]int) {
	if f.IsInteger() {
		return nil, size
	}
	next := mipSize(dim, size)
	cell, cs := f.CellSize(), f.ChannelSize()
	out := make([]byte, next[0]*next[1]*next[2]*cell)

	texel := func(x, y, z int) []byte {
		x, y, z = min(x, size[0]-1), min(y, size[1]-1), min(z, size[2]-1)
		return src[((z*size[1]+y)*size[0]+x)*cell:]
	}
	sx, sy, sz := min(size[0], 2), min(size[1], 2), min(size[2], 2)
	if dim == gputypes.TextureDimension1D {
		sy, sz = 1, 1
	} else if dim != gputypes.TextureDimension3D {
		sz = 1
	}
	n := float64(sx * sy * sz)

	for z := 0; z < next[2]; z++ {
		for y := 0; y < next[1]; y++ {
			for x := 0; x < next[0]; x++ {
				d := out[((z*next[1]+y)*next[0]+x)*cell:]
				for ch := 0; ch < f.Channels(); ch++ {
					var sum float64
					for dz := 0; dz < sz; dz++ {
						for dy := 0; dy < sy; dy++ {
							for dx := 0; dx < sx; dx++ {
								sum += readChannel(f, texel(2*x+dx, 2*y+dy, 2*z+dz)[ch*cs:])
							}
						}
					}
					writeChannel(f, d[ch*cs:], sum/n)
				}
			}
		}
	}
	return out, next
}
