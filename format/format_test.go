package format

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestCatalogSizes(t *testing.T) {
	if Count != 48 {
		t.Fatalf("Count = %d, want 48", Count)
	}
	for f := R8Unorm; f < formatEnd; f++ {
		cs := f.ChannelSize()
		if cs != 1 && cs != 2 && cs != 4 {
			t.Errorf("%v.ChannelSize() = %d, want 1, 2 or 4", f, cs)
		}
		if n := f.Channels(); n < 1 || n > 4 {
			t.Errorf("%v.Channels() = %d, want 1..4", f, n)
		}
		if got, want := f.CellSize(), f.Channels()*cs; got != want {
			t.Errorf("%v.CellSize() = %d, want %d", f, got, want)
		}
	}
}

func TestFormatProperties(t *testing.T) {
	tests := []struct {
		format   Format
		name     string
		channels int
		size     int
		encoding Encoding
		transfer Transfer
	}{
		{R8Unorm, "R8Unorm", 1, 1, Unorm, UnsignedByte},
		{RGBA8Unorm, "RGBA8Unorm", 4, 1, Unorm, UnsignedByte},
		{RGB16Unorm, "RGB16Unorm", 3, 2, Unorm, UnsignedShort},
		{RG8Snorm, "RG8Snorm", 2, 1, Snorm, Byte},
		{RGBA16Snorm, "RGBA16Snorm", 4, 2, Snorm, Short},
		{R16Float, "R16Float", 1, 2, Float, HalfFloat},
		{RGB32Float, "RGB32Float", 3, 4, Float, Float32},
		{RGBA8Uint, "RGBA8Uint", 4, 1, Uint, UnsignedByte},
		{R16Uint, "R16Uint", 1, 2, Uint, UnsignedShort},
		{RG32Uint, "RG32Uint", 2, 4, Uint, UnsignedInt},
		{R8Sint, "R8Sint", 1, 1, Sint, Byte},
		{RGB16Sint, "RGB16Sint", 3, 2, Sint, Short},
		{RGBA32Sint, "RGBA32Sint", 4, 4, Sint, Int},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if got := tt.format.Channels(); got != tt.channels {
				t.Errorf("Channels() = %d, want %d", got, tt.channels)
			}
			if got := tt.format.ChannelSize(); got != tt.size {
				t.Errorf("ChannelSize() = %d, want %d", got, tt.size)
			}
			if got := tt.format.Encoding(); got != tt.encoding {
				t.Errorf("Encoding() = %v, want %v", got, tt.encoding)
			}
			if got := tt.format.Transfer(); got != tt.transfer {
				t.Errorf("Transfer() = %v, want %v", got, tt.transfer)
			}
		})
	}
}

func TestUnknownFormatPanics(t *testing.T) {
	for _, f := range []Format{Undefined, formatEnd, Format(200)} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Channels() on %d did not panic", uint8(f))
				}
			}()
			_ = f.Channels()
		}()
	}
}

func TestParse(t *testing.T) {
	for f := R8Unorm; f < formatEnd; f++ {
		got, err := Parse(f.String())
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", f.String(), err)
		}
		if got != f {
			t.Errorf("Parse(%q) = %v, want %v", f.String(), got, f)
		}
	}
	if got, err := Parse("rgba8unorm"); err != nil || got != RGBA8Unorm {
		t.Errorf("Parse(lowercase) = %v, %v", got, err)
	}
	if _, err := Parse("RGBA64Unorm"); err == nil {
		t.Error("Parse(unknown) should fail")
	}
}

func TestForDepth(t *testing.T) {
	tests := []struct {
		bpp     int
		want    Format
		wantErr bool
	}{
		{8, R8Unorm, false},
		{24, RGB8Unorm, false},
		{32, RGBA8Unorm, false},
		{16, Undefined, true},
	}
	for _, tt := range tests {
		got, err := ForDepth(tt.bpp)
		if (err != nil) != tt.wantErr {
			t.Errorf("ForDepth(%d) error = %v, wantErr %v", tt.bpp, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ForDepth(%d) = %v, want %v", tt.bpp, got, tt.want)
		}
	}
}

func TestSwizzleable(t *testing.T) {
	want := map[Format]bool{RGB8Unorm: true, RGBA8Unorm: true, RGB8Snorm: true, RGBA8Snorm: true}
	for f := R8Unorm; f < formatEnd; f++ {
		if got := f.Swizzleable(); got != want[f] {
			t.Errorf("%v.Swizzleable() = %v, want %v", f, got, want[f])
		}
	}
}

func TestWithChannels(t *testing.T) {
	if got := RGB16Float.WithChannels(4); got != RGBA16Float {
		t.Errorf("WithChannels(4) = %v, want RGBA16Float", got)
	}
	if got := RGBA32Sint.WithChannels(1); got != R32Sint {
		t.Errorf("WithChannels(1) = %v, want R32Sint", got)
	}
	if got := RGB8Unorm.ExpandFormat(); got != RGBA8Unorm {
		t.Errorf("ExpandFormat() = %v, want RGBA8Unorm", got)
	}
	if got := RG8Unorm.ExpandFormat(); got != RG8Unorm {
		t.Errorf("ExpandFormat() = %v, want RG8Unorm", got)
	}
}

func TestGPUFormat(t *testing.T) {
	tests := []struct {
		format Format
		want   gputypes.TextureFormat
	}{
		{RGBA8Unorm, gputypes.TextureFormatRGBA8Unorm},
		{R8Unorm, gputypes.TextureFormatR8Unorm},
		{RG32Float, gputypes.TextureFormatRG32Float},
		{RGBA8Sint, gputypes.TextureFormatRGBA8Sint},
		{RGB8Unorm, gputypes.TextureFormatUndefined},
		{R16Unorm, gputypes.TextureFormatUndefined},
		{Undefined, gputypes.TextureFormatUndefined},
	}
	for _, tt := range tests {
		if got := tt.format.GPUFormat(); got != tt.want {
			t.Errorf("%v.GPUFormat() = %v, want %v", tt.format, got, tt.want)
		}
	}
}

func TestChannelOffsets(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		ordering Ordering
		want     [5]int
	}{
		{"RGBA8 standard", RGBA8Unorm, OrderingStandard, [5]int{0, 1, 2, 3, 0}},
		{"RGBA8 modified", RGBA8Unorm, OrderingModified, [5]int{2, 1, 0, 3, 0}},
		{"RGB8 modified", RGB8Unorm, OrderingModified, [5]int{2, 1, 0, 0, 0}},
		{"RG16 modified ignored", RG16Uint, OrderingModified, [5]int{0, 2, 0, 0, 0}},
		{"RGBA32 standard", RGBA32Float, OrderingStandard, [5]int{0, 4, 8, 12, 0}},
		{"R8", R8Unorm, OrderingStandard, [5]int{0, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.ChannelOffsets(tt.ordering); got != tt.want {
				t.Errorf("ChannelOffsets() = %v, want %v", got, tt.want)
			}
		})
	}
}
