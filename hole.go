package cgs

import (
	"encoding/binary"
	"math"

	"github.com/WilliamKappler/caelumGraphicsSystem/internal/convert"
)

// Hole is a typed cursor onto one channel of one texel.
//
// The accessor must match the texture's channel size: 8-bit accessors for
// 1-byte channels, 16-bit (including Float16) for 2-byte channels and 32-bit
// for 4-byte channels. A mismatch is reported, writes are dropped and reads
// return 0. Accessors do not check the encoding, so a UNORM8 channel can be
// read raw with Uint8.
//
// A Hole is valid until the texture is resized or destroyed.
type Hole struct {
	t    *Texture
	b    []byte
	sink bool
}

// Hole returns a cursor onto channel of texel (x, y, z). Channel 0–3 is
// R, G, B or A; ChannelBase is the first byte of the texel. Invalid requests
// are logged and return a Hole onto scratch memory.
func (t *Texture) Hole(x, y, z, channel int) Hole {
	b, ok := t.address(x, y, z, channel)
	return Hole{t: t, b: b, sink: !ok}
}

// Valid reports whether the Hole addresses texel memory.
func (h Hole) Valid() bool { return !h.sink }

// Bytes returns the addressed bytes.
func (h Hole) Bytes() []byte { return h.b }

func (h Hole) fits(size int, op string) bool {
	if h.t.channelSize != size {
		h.t.sys.logger().Warn("cgs: hole accessor does not match channel size",
			"texture", h.t.label, "accessor", op, "bytes", size, "channel_bytes", h.t.channelSize)
		return false
	}
	return true
}

func (h Hole) written() {
	if !h.sink {
		h.t.contentModified = true
	}
}

func (h Hole) put8(v uint8, op string) {
	if h.fits(1, op) {
		h.b[0] = v
		h.written()
	}
}

func (h Hole) put16(v uint16, op string) {
	if h.fits(2, op) {
		binary.LittleEndian.PutUint16(h.b, v)
		h.written()
	}
}

func (h Hole) put32(v uint32, op string) {
	if h.fits(4, op) {
		binary.LittleEndian.PutUint32(h.b, v)
		h.written()
	}
}

func (h Hole) get8(op string) uint8 {
	if !h.fits(1, op) {
		return 0
	}
	return h.b[0]
}

func (h Hole) get16(op string) uint16 {
	if !h.fits(2, op) {
		return 0
	}
	return binary.LittleEndian.Uint16(h.b)
}

func (h Hole) get32(op string) uint32 {
	if !h.fits(4, op) {
		return 0
	}
	return binary.LittleEndian.Uint32(h.b)
}

// SetUnorm8 stores d in [0, 1] as an 8-bit normalized value.
func (h Hole) SetUnorm8(d float64) { h.put8(convert.Unorm8(d), "Unorm8") }

// Unorm8 reads an 8-bit normalized value.
func (h Hole) Unorm8() float64 { return convert.FromUnorm8(h.get8("Unorm8")) }

// SetUnorm16 stores d in [0, 1] as a 16-bit normalized value.
func (h Hole) SetUnorm16(d float64) { h.put16(convert.Unorm16(d), "Unorm16") }

// Unorm16 reads a 16-bit normalized value.
func (h Hole) Unorm16() float64 { return convert.FromUnorm16(h.get16("Unorm16")) }

// SetSnorm8 stores d in [-1, 1] as an 8-bit signed normalized value.
func (h Hole) SetSnorm8(d float64) { h.put8(uint8(convert.Snorm8(d)), "Snorm8") }

// Snorm8 reads an 8-bit signed normalized value.
func (h Hole) Snorm8() float64 { return convert.FromSnorm8(int8(h.get8("Snorm8"))) }

// SetSnorm16 stores d in [-1, 1] as a 16-bit signed normalized value.
func (h Hole) SetSnorm16(d float64) { h.put16(uint16(convert.Snorm16(d)), "Snorm16") }

// Snorm16 reads a 16-bit signed normalized value.
func (h Hole) Snorm16() float64 { return convert.FromSnorm16(int16(h.get16("Snorm16"))) }

// SetUint8 stores v as an unsigned 8-bit integer.
func (h Hole) SetUint8(v uint8) { h.put8(v, "Uint8") }

// Uint8 reads an unsigned 8-bit integer.
func (h Hole) Uint8() uint8 { return h.get8("Uint8") }

// SetUint16 stores v as an unsigned 16-bit integer.
func (h Hole) SetUint16(v uint16) { h.put16(v, "Uint16") }

// Uint16 reads an unsigned 16-bit integer.
func (h Hole) Uint16() uint16 { return h.get16("Uint16") }

// SetUint32 stores v as an unsigned 32-bit integer.
func (h Hole) SetUint32(v uint32) { h.put32(v, "Uint32") }

// Uint32 reads an unsigned 32-bit integer.
func (h Hole) Uint32() uint32 { return h.get32("Uint32") }

// SetInt8 stores v as a signed 8-bit integer.
func (h Hole) SetInt8(v int8) { h.put8(uint8(v), "Int8") }

// Int8 reads a signed 8-bit integer.
func (h Hole) Int8() int8 { return int8(h.get8("Int8")) }

// SetInt16 stores v as a signed 16-bit integer.
func (h Hole) SetInt16(v int16) { h.put16(uint16(v), "Int16") }

// Int16 reads a signed 16-bit integer.
func (h Hole) Int16() int16 { return int16(h.get16("Int16")) }

// SetInt32 stores v as a signed 32-bit integer.
func (h Hole) SetInt32(v int32) { h.put32(uint32(v), "Int32") }

// Int32 reads a signed 32-bit integer.
func (h Hole) Int32() int32 { return int32(h.get32("Int32")) }

// SetFloat16 stores f as an IEEE 754 half float, rounding to nearest even.
func (h Hole) SetFloat16(f float32) { h.put16(convert.Half(f), "Float16") }

// Float16 reads an IEEE 754 half float.
func (h Hole) Float16() float32 { return convert.FromHalf(h.get16("Float16")) }

// SetFloat32 stores f as an IEEE 754 single float.
func (h Hole) SetFloat32(f float32) { h.put32(math.Float32bits(f), "Float32") }

// Float32 reads an IEEE 754 single float.
func (h Hole) Float32() float32 { return math.Float32frombits(h.get32("Float32")) }
