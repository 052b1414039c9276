package convert

import (
	"math"
	"testing"
)

func TestUnorm8(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{0, 0},
		{1, 255},
		{0.5, 128},
		{-0.2, 0},
		{1.7, 255},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := Unorm8(tt.in); got != tt.want {
			t.Errorf("Unorm8(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if got := FromUnorm8(255); got != 1 {
		t.Errorf("FromUnorm8(255) = %v, want 1", got)
	}
}

func TestUnorm16(t *testing.T) {
	if got := Unorm16(1); got != math.MaxUint16 {
		t.Errorf("Unorm16(1) = %d, want %d", got, math.MaxUint16)
	}
	if got := FromUnorm16(Unorm16(0.25)); math.Abs(got-0.25) > 1.0/math.MaxUint16 {
		t.Errorf("FromUnorm16(Unorm16(0.25)) = %v", got)
	}
}

func TestSnorm8(t *testing.T) {
	tests := []struct {
		in   float64
		want int8
	}{
		{0, 0},
		{1, 127},
		{-1, -128},
		{0.5, 64},
		{-0.5, -64},
		{2, 127},
		{-2, -128},
	}
	for _, tt := range tests {
		if got := Snorm8(tt.in); got != tt.want {
			t.Errorf("Snorm8(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if got := FromSnorm8(-128); got != -1 {
		t.Errorf("FromSnorm8(-128) = %v, want -1", got)
	}
	if got := FromSnorm8(127); got != 1 {
		t.Errorf("FromSnorm8(127) = %v, want 1", got)
	}
}

func TestSnorm16RoundTrip(t *testing.T) {
	for _, d := range []float64{-1, -0.75, -0.001, 0, 0.3, 1} {
		got := FromSnorm16(Snorm16(d))
		if math.Abs(got-d) > 1.0/math.MaxInt16 {
			t.Errorf("FromSnorm16(Snorm16(%v)) = %v", d, got)
		}
	}
}

func TestHalf(t *testing.T) {
	tests := []struct {
		in   float32
		bits uint16
	}{
		{0, 0x0000},
		{1, 0x3c00},
		{-2, 0xc000},
		{0.5, 0x3800},
		{65504, 0x7bff},
	}
	for _, tt := range tests {
		if got := Half(tt.in); got != tt.bits {
			t.Errorf("Half(%v) = %#04x, want %#04x", tt.in, got, tt.bits)
		}
		if got := FromHalf(tt.bits); got != tt.in {
			t.Errorf("FromHalf(%#04x) = %v, want %v", tt.bits, got, tt.in)
		}
	}
}
