package cgs

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/WilliamKappler/caelumGraphicsSystem/format"
)

// rowAlignment is the pixel transfer alignment rows are padded to.
const rowAlignment = 4

// allocation is the result of sizing a texture mirror.
type allocation struct {
	buf         []byte
	alloc       [3]int // 0 where the axis is not over-allocated
	channelSize int
	cellSize    int
	rowSize     int
	sheetSize   int
}

func alignRow(n int) int {
	return (n + rowAlignment - 1) &^ (rowAlignment - 1)
}

// allocate sizes a zeroed mirror for used texels. With overAlloc, an axis
// whose hint exceeds the used count is allocated to the hint; a hint of 0
// or equal to used leaves the axis unallocated. A nonzero hint below used is
// reported and ignored.
func allocate(log *slog.Logger, f format.Format, dim gputypes.TextureDimension, used [3]int, overAlloc bool, hint [3]int) allocation {
	a := allocation{
		channelSize: f.ChannelSize(),
		cellSize:    f.CellSize(),
	}
	n := axes(dim)
	ext := used
	for i := 0; i < n && overAlloc; i++ {
		switch h := hint[i]; {
		case h == 0 || h == used[i]:
		case h > used[i]:
			a.alloc[i] = h
			ext[i] = h
		default:
			log.Error("cgs: allocation hint below used size, allocating used size",
				"axis", axisNames[i], "hint", h, "used", used[i])
		}
	}
	a.rowSize = alignRow(a.cellSize * ext[0])
	a.sheetSize = a.rowSize * ext[1]
	a.buf = make([]byte, a.sheetSize*ext[2])
	return a
}

// Resize changes the used texel count. hint is the requested capacity per
// axis as in TextureOptions.Hint.
//
// With over-allocation on, when every axis fits in the current extent and
// no axis asks for a different capacity, the mirror is reused: it is zeroed
// and only a content upload follows. Otherwise a new zeroed mirror replaces
// it, GPU storage is released and Holes obtained earlier become stale.
func (t *Texture) Resize(size, hint [3]int) error {
	if t.destroyed {
		return ErrTextureDestroyed
	}
	if t.static {
		return fmt.Errorf("%w: %s", ErrStaticTexture, t.label)
	}
	used, err := t.sys.normalizeSize(t.dim, size)
	if err != nil {
		return err
	}
	n := axes(t.dim)
	for i := n; i < 3; i++ {
		hint[i] = 0
	}

	if t.canReuse(used, hint) {
		clear(t.buf)
		ext := t.Extent()
		for i := 0; i < 3; i++ {
			t.used[i] = used[i]
			if ext[i] != used[i] {
				t.alloc[i] = ext[i]
			} else {
				t.alloc[i] = 0
			}
		}
		t.contentModified = true
		t.sys.logger().Debug("cgs: texture resized in place", "texture", t.label, "size", used, "extent", ext)
		return nil
	}

	t.install(allocate(t.sys.logger(), t.format, t.dim, used, t.overAlloc, hint), used)
	t.sys.logger().Debug("cgs: texture reallocated", "texture", t.label, "size", used, "extent", t.Extent())
	t.sys.checkBudget()
	return nil
}

func (t *Texture) canReuse(used, hint [3]int) bool {
	if !t.overAlloc || t.buf == nil {
		return false
	}
	ext := t.Extent()
	for i := 0; i < 3; i++ {
		if used[i] > ext[i] {
			return false
		}
		if hint[i] != 0 && hint[i] != ext[i] {
			return false
		}
	}
	return true
}
