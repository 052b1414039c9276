// Package convert encodes and decodes normalized and half-precision channel
// values.
package convert

import (
	"math"

	"github.com/x448/float16"
)

// Unorm8 encodes d in [0, 1] as an 8-bit unsigned normalized value.
// Out-of-range input saturates.
func Unorm8(d float64) uint8 {
	return uint8(unorm(d, math.MaxUint8))
}

// FromUnorm8 decodes an 8-bit unsigned normalized value.
func FromUnorm8(v uint8) float64 {
	return float64(v) / math.MaxUint8
}

// Unorm16 encodes d in [0, 1] as a 16-bit unsigned normalized value.
func Unorm16(d float64) uint16 {
	return uint16(unorm(d, math.MaxUint16))
}

// FromUnorm16 decodes a 16-bit unsigned normalized value.
func FromUnorm16(v uint16) float64 {
	return float64(v) / math.MaxUint16
}

// Snorm8 encodes d in [-1, 1] as an 8-bit signed normalized value.
// Positive values scale by 127 and negative values by 128, so both ends of
// the range are reachable.
func Snorm8(d float64) int8 {
	return int8(snorm(d, math.MaxInt8, math.MinInt8))
}

// FromSnorm8 decodes an 8-bit signed normalized value.
func FromSnorm8(v int8) float64 {
	return fromSnorm(float64(v), math.MaxInt8, math.MinInt8)
}

// Snorm16 encodes d in [-1, 1] as a 16-bit signed normalized value.
func Snorm16(d float64) int16 {
	return int16(snorm(d, math.MaxInt16, math.MinInt16))
}

// FromSnorm16 decodes a 16-bit signed normalized value.
func FromSnorm16(v int16) float64 {
	return fromSnorm(float64(v), math.MaxInt16, math.MinInt16)
}

// Half encodes f as IEEE 754 binary16 bits, rounding to nearest even.
func Half(f float32) uint16 {
	return float16.Fromfloat32(f).Bits()
}

// FromHalf decodes IEEE 754 binary16 bits.
func FromHalf(bits uint16) float32 {
	return float16.Frombits(bits).Float32()
}

func unorm(d, maxV float64) float64 {
	if math.IsNaN(d) {
		return 0
	}
	return clamp(math.Floor(d*maxV+0.5), 0, maxV)
}

func snorm(d, maxV, minV float64) float64 {
	if math.IsNaN(d) {
		return 0
	}
	if d >= 0 {
		return clamp(math.Floor(d*maxV+0.5), 0, maxV)
	}
	return clamp(math.Ceil(-d*minV-0.5), minV, 0)
}

func fromSnorm(v, maxV, minV float64) float64 {
	if v >= 0 {
		return v / maxV
	}
	return v / -minV
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
