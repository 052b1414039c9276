package cgs

import "github.com/gogpu/gputypes"

// ChannelBase addresses the first byte of a texel, whatever the channel
// ordering.
const ChannelBase = 4

// address returns the mirror bytes of one channel of a texel, or of the
// whole texel for ChannelBase. Invalid requests are logged and get the
// texture's sink, a scratch area outside the mirror, so unchecked writes
// cannot corrupt texel data. ok is false for the sink.
func (t *Texture) address(x, y, z, channel int) (b []byte, ok bool) {
	off, ok := t.offset(x, y, z, channel)
	if !ok {
		return t.sink[:], false
	}
	size := t.channelSize
	if channel == ChannelBase {
		size = t.cellSize
	}
	return t.buf[off : off+size : off+size], true
}

// offset computes offsets[channel] + cell*x + row*y + sheet*z, omitting the
// axes the texture does not have. With bounds checks disabled the
// coordinates are trusted.
func (t *Texture) offset(x, y, z, channel int) (int, bool) {
	if t.buf == nil {
		t.sys.logger().Error("cgs: texel access on texture without storage", "texture", t.label)
		return 0, false
	}
	n := axes(t.dim)
	if t.sys.opts.boundsChecks {
		if channel < 0 || channel > ChannelBase {
			t.sys.logger().Error("cgs: invalid channel", "texture", t.label, "channel", channel)
			return 0, false
		}
		if channel != ChannelBase && channel >= t.format.Channels() {
			t.sys.logger().Warn("cgs: channel not in format, using texel base",
				"texture", t.label, "channel", channel, "format", t.format.String())
		}
		if n < 2 && y != 0 {
			t.sys.logger().Warn("cgs: y coordinate ignored on 1D texture", "texture", t.label, "y", y)
		}
		if n < 3 && z != 0 {
			t.sys.logger().Warn("cgs: z coordinate ignored", "texture", t.label, "z", z)
		}
		coords := [3]int{x, y, z}
		for i := 0; i < n; i++ {
			if coords[i] < 0 || coords[i] >= t.used[i] {
				t.sys.logger().Error("cgs: texel out of range",
					"texture", t.label, "axis", axisNames[i], "coord", coords[i], "size", t.used[i])
				return 0, false
			}
		}
	}

	off := t.offsets[channel] + t.cellSize*x
	switch t.dim {
	case gputypes.TextureDimension2D:
		off += t.rowSize * y
	case gputypes.TextureDimension3D:
		off += t.rowSize*y + t.sheetSize*z
	}
	return off, true
}

// Offset returns the mirror byte offset of a channel of a texel, or -1 when
// the request is invalid.
func (t *Texture) Offset(x, y, z, channel int) int {
	off, ok := t.offset(x, y, z, channel)
	if !ok {
		return -1
	}
	return off
}
