package cgs

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/WilliamKappler/caelumGraphicsSystem/format"
	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
)

// MaxTextureUnits is the number of texture units a mesh can link.
const MaxTextureUnits = 80

// Texture is a 1D, 2D or 3D texture with a CPU-side mirror.
//
// Texels are written into the mirror through Holes and uploaded lazily by
// Update, which Render calls for every texture. The mirror may be
// over-allocated: its rows and sheets are laid out for the allocated extent,
// so growing the used size within that extent needs no new memory.
//
// A Texture is owned by its System. Meshes reference it only through link
// records, so destroying it never leaves a mesh pointing at freed storage.
type Texture struct {
	sys   *System
	id    uint64
	label string
	path  string

	// gpu is InvalidID until storage first exists on the device.
	gpu     gpucore.TextureID
	gpuSize uint64

	format    format.Format
	dim       gputypes.TextureDimension
	ordering  format.Ordering
	static    bool
	overAlloc bool
	mips      int

	used  [3]int
	alloc [3]int // 0 means equal to used

	buf         []byte
	channelSize int
	cellSize    int
	rowSize     int
	sheetSize   int
	offsets     [5]int
	sink        [16]byte

	contentModified bool
	storageModified bool
	uploaded        bool

	deleteRequested bool
	destroyed       bool
}

var axisNames = [3]string{"x", "y", "z"}

// axes returns the number of axes a dimension uses. Any other value is a
// programming error.
func axes(dim gputypes.TextureDimension) int {
	switch dim {
	case gputypes.TextureDimension1D:
		return 1
	case gputypes.TextureDimension2D:
		return 2
	case gputypes.TextureDimension3D:
		return 3
	default:
		panic(fmt.Sprintf("cgs: invalid texture dimension %d", dim))
	}
}

// CreateTexture creates a zero-filled texture of the given dimension and
// format. Axes past the dimension are ignored. The texture is uploaded by
// the next Render or Update.
//
// An unknown format or dimension panics.
func (s *System) CreateTexture(dim gputypes.TextureDimension, f format.Format, size [3]int, opts TextureOptions) (*Texture, error) {
	if s.closed {
		return nil, ErrClosed
	}
	n := axes(dim)
	if !f.Valid() {
		panic(fmt.Sprintf("cgs: unknown texture format %d", f))
	}
	used, err := s.normalizeSize(dim, size)
	if err != nil {
		return nil, err
	}

	s.nextTexture++
	t := &Texture{
		sys:       s,
		id:        s.nextTexture,
		label:     opts.Label,
		format:    f,
		dim:       dim,
		ordering:  s.device.PreferredOrdering(f),
		static:    opts.Static,
		overAlloc: opts.OverAllocate,
		mips:      max(0, opts.MipLevels),
	}
	if t.ordering == format.OrderingModified && !f.Swizzleable() {
		t.ordering = format.OrderingStandard
	}
	if t.label == "" {
		t.label = fmt.Sprintf("texture-%d", t.id)
	}
	hint := opts.Hint
	for i := n; i < 3; i++ {
		hint[i] = 0
	}
	t.install(allocate(s.logger(), f, dim, used, t.overAlloc, hint), used)
	s.textures[t.id] = t

	s.logger().Debug("cgs: texture created",
		"texture", t.label, "dim", n, "format", f.String(), "size", used, "extent", t.Extent())
	s.checkBudget()
	return t, nil
}

// normalizeSize validates the used axes and sets the unused ones to 1.
func (s *System) normalizeSize(dim gputypes.TextureDimension, size [3]int) ([3]int, error) {
	n := axes(dim)
	for i := 0; i < 3; i++ {
		if i >= n {
			if size[i] > 1 {
				s.logger().Warn("cgs: texel count on unused axis ignored", "axis", axisNames[i], "count", size[i])
			}
			size[i] = 1
			continue
		}
		if size[i] < 1 {
			return size, fmt.Errorf("%w: %s = %d", ErrInvalidSize, axisNames[i], size[i])
		}
	}
	return size, nil
}

// install adopts a fresh allocation: new mirror, geometry and offset table.
// Existing GPU storage no longer matches and is released.
func (t *Texture) install(a allocation, used [3]int) {
	t.sys.cpuBytes = t.sys.cpuBytes + uint64(len(a.buf)) - uint64(len(t.buf))
	t.buf = a.buf
	t.used = used
	t.alloc = a.alloc
	t.channelSize = a.channelSize
	t.cellSize = a.cellSize
	t.rowSize = a.rowSize
	t.sheetSize = a.sheetSize
	t.offsets = t.format.ChannelOffsets(t.ordering)
	t.releaseGPU()
	t.storageModified = true
	t.contentModified = true
}

func (t *Texture) releaseGPU() {
	if t.gpu != gpucore.InvalidID {
		t.sys.device.DestroyTexture(t.gpu)
		t.gpu = gpucore.InvalidID
		t.gpuSize = 0
	}
}

// ID returns the texture's identity within its System.
func (t *Texture) ID() uint64 { return t.id }

// Label returns the debug label.
func (t *Texture) Label() string { return t.label }

// Path returns the file the texture was loaded from, or "".
func (t *Texture) Path() string { return t.path }

// Format returns the texel format.
func (t *Texture) Format() format.Format { return t.format }

// Dimension returns 1D, 2D or 3D.
func (t *Texture) Dimension() gputypes.TextureDimension { return t.dim }

// Ordering reports whether R and B are swapped in memory.
func (t *Texture) Ordering() format.Ordering { return t.ordering }

// Static reports whether the texture is read-only.
func (t *Texture) Static() bool { return t.static }

// OverAllocated reports whether over-allocation is enabled.
func (t *Texture) OverAllocated() bool { return t.overAlloc }

// MipLevels returns the number of levels beyond level 0.
func (t *Texture) MipLevels() int { return t.mips }

// Size returns the used texel count per axis. Unused axes are 1.
func (t *Texture) Size() [3]int { return t.used }

// Allocated returns the recorded capacity per axis; 0 means the axis is
// not over-allocated.
func (t *Texture) Allocated() [3]int { return t.alloc }

// Extent returns the physical texel count per axis, max(used, allocated).
func (t *Texture) Extent() [3]int {
	var e [3]int
	for i := range e {
		e[i] = max(t.used[i], t.alloc[i])
	}
	return e
}

// ChannelSize returns the bytes per channel.
func (t *Texture) ChannelSize() int { return t.channelSize }

// CellSize returns the bytes per texel.
func (t *Texture) CellSize() int { return t.cellSize }

// RowSize returns the bytes per row of the mirror, a multiple of 4.
func (t *Texture) RowSize() int { return t.rowSize }

// SheetSize returns the bytes per 2D slice of the mirror.
func (t *Texture) SheetSize() int { return t.sheetSize }

// Bytes returns the CPU mirror. The slice is invalidated by Resize. Call
// MarkModified after writing to it directly.
func (t *Texture) Bytes() []byte { return t.buf }

// MarkModified schedules a content upload.
func (t *Texture) MarkModified() {
	if !t.destroyed {
		t.contentModified = true
	}
}

// Modified reports whether the content awaits upload.
func (t *Texture) Modified() bool { return t.contentModified }

// StorageModified reports whether GPU storage must be recreated.
func (t *Texture) StorageModified() bool { return t.storageModified }

// GPUTexture returns the device texture, or InvalidID before the first
// upload.
func (t *Texture) GPUTexture() gpucore.TextureID { return t.gpu }

// Range returns the used fraction of the allocated extent per axis, with w
// set to 1. Axes without over-allocation report 1.
func (t *Texture) Range() mgl32.Vec4 {
	r := mgl32.Vec4{1, 1, 1, 1}
	if !t.overAlloc {
		return r
	}
	for i := 0; i < 3; i++ {
		if t.alloc[i] > t.used[i] {
			r[i] = float32(t.used[i]) / float32(t.alloc[i])
		}
	}
	return r
}

// Links returns the number of mesh units linked to the texture.
func (t *Texture) Links() int {
	return len(t.sys.links.byTexture[t.id])
}

// Destroyed reports whether the texture was destroyed.
func (t *Texture) Destroyed() bool { return t.destroyed }

// MarkForDeletion destroys the texture now if no mesh links it, otherwise
// as soon as the last link is broken.
func (t *Texture) MarkForDeletion() {
	if t.destroyed {
		return
	}
	if t.Links() == 0 {
		t.Destroy()
		return
	}
	t.deleteRequested = true
}

// Destroy releases the texture immediately. Links to it become invalid;
// the meshes holding them see this on their next query.
func (t *Texture) Destroy() {
	if t.destroyed {
		return
	}
	s := t.sys
	s.links.invalidateTexture(t.id)
	t.releaseGPU()
	delete(s.textures, t.id)
	if t.path != "" && s.files[t.path] == t {
		delete(s.files, t.path)
	}
	s.cpuBytes -= uint64(len(t.buf))
	t.buf = nil
	t.destroyed = true
	t.contentModified = false
	s.logger().Debug("cgs: texture destroyed", "texture", t.label)
}

func (t *Texture) gpuBytes() uint64 {
	return t.gpuSize
}
