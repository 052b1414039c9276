package backend

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/WilliamKappler/caelumGraphicsSystem/format"
	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
	"github.com/WilliamKappler/caelumGraphicsSystem/internal/convert"
)

// SoftwareDevice is a CPU implementation of gpucore.Device.
//
// It keeps texture levels, buffers and uniforms in memory, validates draw
// calls against them and records what was asked of it. It does not
// rasterize: draws leave the render target at its clear color. This makes it
// the headless fallback and the device the cgs tests run against.
type SoftwareDevice struct {
	nextID   uint64
	textures map[gpucore.TextureID]*softTexture
	buffers  map[gpucore.BufferID]*softBuffer
	shaders  map[gpucore.ShaderID]*softShader
	programs map[gpucore.ProgramID]*softProgram

	preferModified bool
	geometry       bool
	compileCheck   func(gpucore.ShaderStage, string) error

	width, height int
	target        []byte
	inFrame       bool
	draws         []gpucore.DrawCall

	stats SoftwareStats
}

// SoftwareStats counts device operations.
type SoftwareStats struct {
	TextureAllocations   int
	TextureInvalidations int
	TextureWrites        int
	MipmapGenerations    int
	BufferWrites         int
	Frames               int
	Draws                int
	BackbufferCopies     int
}

type softTexture struct {
	label  string
	desc   gpucore.TextureDescriptor
	levels [][]byte
}

type softBuffer struct {
	kind  gpucore.BufferKind
	label string
	data  []byte
}

type softShader struct {
	stage  gpucore.ShaderStage
	source string
}

type softProgram struct {
	desc     gpucore.ProgramDescriptor
	uniforms map[string]any
}

// SoftwareOption configures a SoftwareDevice.
type SoftwareOption func(*SoftwareDevice)

// WithModifiedOrdering makes the device prefer BGR(A) order for swizzleable
// formats, like GL drivers on some platforms.
func WithModifiedOrdering() SoftwareOption {
	return func(d *SoftwareDevice) {
		d.preferModified = true
	}
}

// WithoutGeometryShaders makes the device reject geometry stages.
func WithoutGeometryShaders() SoftwareOption {
	return func(d *SoftwareDevice) {
		d.geometry = false
	}
}

// WithCompileCheck installs a function that decides whether a shader
// compiles. The default accepts any source with a main entry point.
func WithCompileCheck(check func(stage gpucore.ShaderStage, source string) error) SoftwareOption {
	return func(d *SoftwareDevice) {
		d.compileCheck = check
	}
}

// init registers the software backend on package import.
func init() {
	Register(BackendSoftware, func() (gpucore.Device, error) {
		return NewSoftwareDevice(), nil
	})
}

// NewSoftwareDevice creates a CPU device with a 1×1 viewport.
func NewSoftwareDevice(opts ...SoftwareOption) *SoftwareDevice {
	d := &SoftwareDevice{
		textures:     make(map[gpucore.TextureID]*softTexture),
		buffers:      make(map[gpucore.BufferID]*softBuffer),
		shaders:      make(map[gpucore.ShaderID]*softShader),
		programs:     make(map[gpucore.ProgramID]*softProgram),
		geometry:     true,
		compileCheck: defaultCompileCheck,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.SetViewport(1, 1)
	return d
}

func defaultCompileCheck(_ gpucore.ShaderStage, source string) error {
	if !strings.Contains(source, "main") {
		return fmt.Errorf("no entry point")
	}
	return nil
}

func (d *SoftwareDevice) id() uint64 {
	d.nextID++
	return d.nextID
}

// Name returns the backend identifier.
func (d *SoftwareDevice) Name() string {
	return BackendSoftware
}

// Capabilities reports GLSL compilation and 80 texture units.
func (d *SoftwareDevice) Capabilities() gpucore.Capabilities {
	return gpucore.Capabilities{
		Language:            gpucore.GLSL,
		ShaderCompilation:   true,
		GeometryShaders:     d.geometry,
		TextureInvalidation: true,
		MaxTextureUnits:     80,
	}
}

// PreferredOrdering implements gpucore.Device.
func (d *SoftwareDevice) PreferredOrdering(f format.Format) format.Ordering {
	if d.preferModified && f.Swizzleable() {
		return format.OrderingModified
	}
	return format.OrderingStandard
}

// CreateTexture implements gpucore.Device.
func (d *SoftwareDevice) CreateTexture(label string) (gpucore.TextureID, error) {
	id := gpucore.TextureID(d.id())
	d.textures[id] = &softTexture{label: label}
	return id, nil
}

// AllocateTexture implements gpucore.Device.
func (d *SoftwareDevice) AllocateTexture(id gpucore.TextureID, desc *gpucore.TextureDescriptor) error {
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("%w: texture %d", gpucore.ErrUnknownResource, id)
	}
	if desc.MipLevels < 1 {
		return fmt.Errorf("software: texture %d: mip levels %d < 1", id, desc.MipLevels)
	}
	t.desc = *desc
	t.levels = make([][]byte, desc.MipLevels)
	for l := range t.levels {
		s := levelSize(desc.Dimension, desc.Size, l)
		t.levels[l] = make([]byte, s[0]*s[1]*s[2]*desc.Format.CellSize())
	}
	d.stats.TextureAllocations++
	return nil
}

// InvalidateTexture implements gpucore.Device.
func (d *SoftwareDevice) InvalidateTexture(id gpucore.TextureID) {
	if _, ok := d.textures[id]; ok {
		d.stats.TextureInvalidations++
	}
}

// WriteTexture implements gpucore.Device.
func (d *SoftwareDevice) WriteTexture(id gpucore.TextureID, w *gpucore.TextureWrite) error {
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("%w: texture %d", gpucore.ErrUnknownResource, id)
	}
	if t.levels == nil {
		return fmt.Errorf("software: texture %d has no storage", id)
	}
	for i := 0; i < 3; i++ {
		if w.Size[i] > t.desc.Size[i] {
			return fmt.Errorf("software: texture %d: write extent %v exceeds storage %v", id, w.Size, t.desc.Size)
		}
	}
	cell := t.desc.Format.CellSize()
	tightRow := t.desc.Size[0] * cell
	tightSheet := tightRow * t.desc.Size[1]
	n := w.Size[0] * cell
	for z := 0; z < w.Size[2]; z++ {
		for y := 0; y < w.Size[1]; y++ {
			src := z*w.SheetSize + y*w.RowSize
			if src+n > len(w.Data) {
				return fmt.Errorf("software: texture %d: data too short (%d bytes)", id, len(w.Data))
			}
			copy(t.levels[0][z*tightSheet+y*tightRow:], w.Data[src:src+n])
		}
	}
	d.stats.TextureWrites++
	return nil
}

// GenerateMipmaps builds each level by point-sampling the level above.
func (d *SoftwareDevice) GenerateMipmaps(id gpucore.TextureID) error {
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("%w: texture %d", gpucore.ErrUnknownResource, id)
	}
	cell := t.desc.Format.CellSize()
	for l := 1; l < len(t.levels); l++ {
		src := levelSize(t.desc.Dimension, t.desc.Size, l-1)
		dst := levelSize(t.desc.Dimension, t.desc.Size, l)
		for z := 0; z < dst[2]; z++ {
			for y := 0; y < dst[1]; y++ {
				for x := 0; x < dst[0]; x++ {
					sx, sy, sz := min(2*x, src[0]-1), min(2*y, src[1]-1), min(2*z, src[2]-1)
					so := ((sz*src[1]+sy)*src[0] + sx) * cell
					do := ((z*dst[1]+y)*dst[0] + x) * cell
					copy(t.levels[l][do:do+cell], t.levels[l-1][so:so+cell])
				}
			}
		}
	}
	d.stats.MipmapGenerations++
	return nil
}

// DestroyTexture implements gpucore.Device.
func (d *SoftwareDevice) DestroyTexture(id gpucore.TextureID) {
	delete(d.textures, id)
}

// TextureData returns a copy of a texture level in tightly packed rows, and
// the descriptor of its storage.
func (d *SoftwareDevice) TextureData(id gpucore.TextureID, level int) ([]byte, gpucore.TextureDescriptor, bool) {
	t, ok := d.textures[id]
	if !ok || level < 0 || level >= len(t.levels) {
		return nil, gpucore.TextureDescriptor{}, false
	}
	return append([]byte(nil), t.levels[level]...), t.desc, true
}

// HasTexture reports whether id names a live texture.
func (d *SoftwareDevice) HasTexture(id gpucore.TextureID) bool {
	_, ok := d.textures[id]
	return ok
}

func levelSize(dim gputypes.TextureDimension, base [3]int, level int) [3]int {
	s := [3]int{1, 1, 1}
	axes := 1
	switch dim {
	case gputypes.TextureDimension2D:
		axes = 2
	case gputypes.TextureDimension3D:
		axes = 3
	}
	for i := 0; i < axes; i++ {
		s[i] = max(1, base[i]>>level)
	}
	return s
}

// CreateBuffer implements gpucore.Device.
func (d *SoftwareDevice) CreateBuffer(kind gpucore.BufferKind, label string) (gpucore.BufferID, error) {
	id := gpucore.BufferID(d.id())
	d.buffers[id] = &softBuffer{kind: kind, label: label}
	return id, nil
}

// WriteBuffer implements gpucore.Device.
func (d *SoftwareDevice) WriteBuffer(id gpucore.BufferID, data []byte) error {
	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("%w: buffer %d", gpucore.ErrUnknownResource, id)
	}
	b.data = append(b.data[:0], data...)
	d.stats.BufferWrites++
	return nil
}

// DestroyBuffer implements gpucore.Device.
func (d *SoftwareDevice) DestroyBuffer(id gpucore.BufferID) {
	delete(d.buffers, id)
}

// BufferData returns a copy of a buffer's content.
func (d *SoftwareDevice) BufferData(id gpucore.BufferID) ([]byte, bool) {
	b, ok := d.buffers[id]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b.data...), true
}

// CompileShader implements gpucore.Device.
func (d *SoftwareDevice) CompileShader(stage gpucore.ShaderStage, source, label string) (gpucore.ShaderID, error) {
	if stage == gpucore.StageGeometry && !d.geometry {
		return gpucore.InvalidID, fmt.Errorf("%w: geometry shaders", gpucore.ErrUnsupported)
	}
	if err := d.compileCheck(stage, source); err != nil {
		return gpucore.InvalidID, fmt.Errorf("%w: %s %s: %v", gpucore.ErrCompile, stage, label, err)
	}
	id := gpucore.ShaderID(d.id())
	d.shaders[id] = &softShader{stage: stage, source: source}
	return id, nil
}

// DestroyShader implements gpucore.Device.
func (d *SoftwareDevice) DestroyShader(id gpucore.ShaderID) {
	delete(d.shaders, id)
}

// LinkProgram implements gpucore.Device.
func (d *SoftwareDevice) LinkProgram(desc *gpucore.ProgramDescriptor) (gpucore.ProgramID, error) {
	check := func(id gpucore.ShaderID, stage gpucore.ShaderStage) error {
		s, ok := d.shaders[id]
		if !ok {
			return fmt.Errorf("%w: %s shader %d missing", gpucore.ErrLink, stage, id)
		}
		if s.stage != stage {
			return fmt.Errorf("%w: shader %d is a %s shader, want %s", gpucore.ErrLink, id, s.stage, stage)
		}
		return nil
	}
	if err := check(desc.Vertex, gpucore.StageVertex); err != nil {
		return gpucore.InvalidID, err
	}
	if err := check(desc.Fragment, gpucore.StageFragment); err != nil {
		return gpucore.InvalidID, err
	}
	if desc.Geometry != gpucore.InvalidID {
		if err := check(desc.Geometry, gpucore.StageGeometry); err != nil {
			return gpucore.InvalidID, err
		}
	}
	id := gpucore.ProgramID(d.id())
	d.programs[id] = &softProgram{desc: *desc, uniforms: make(map[string]any)}
	return id, nil
}

// DestroyProgram implements gpucore.Device.
func (d *SoftwareDevice) DestroyProgram(id gpucore.ProgramID) {
	delete(d.programs, id)
}

func (d *SoftwareDevice) setUniform(program gpucore.ProgramID, name string, v any) {
	if p, ok := d.programs[program]; ok {
		p.uniforms[name] = v
	}
}

// SetUniformInt implements gpucore.Device.
func (d *SoftwareDevice) SetUniformInt(program gpucore.ProgramID, name string, v int32) {
	d.setUniform(program, name, v)
}

// SetUniformFloat implements gpucore.Device.
func (d *SoftwareDevice) SetUniformFloat(program gpucore.ProgramID, name string, v float32) {
	d.setUniform(program, name, v)
}

// SetUniformVec4 implements gpucore.Device.
func (d *SoftwareDevice) SetUniformVec4(program gpucore.ProgramID, name string, v mgl32.Vec4) {
	d.setUniform(program, name, v)
}

// SetUniformMat4 implements gpucore.Device.
func (d *SoftwareDevice) SetUniformMat4(program gpucore.ProgramID, name string, m mgl32.Mat4) {
	d.setUniform(program, name, m)
}

// Uniform returns the last value set for a program uniform.
func (d *SoftwareDevice) Uniform(program gpucore.ProgramID, name string) (any, bool) {
	p, ok := d.programs[program]
	if !ok {
		return nil, false
	}
	v, ok := p.uniforms[name]
	return v, ok
}

// HasProgram reports whether id names a live program.
func (d *SoftwareDevice) HasProgram(id gpucore.ProgramID) bool {
	_, ok := d.programs[id]
	return ok
}

// SetViewport implements gpucore.Device.
func (d *SoftwareDevice) SetViewport(width, height int) {
	d.width, d.height = max(1, width), max(1, height)
	d.target = make([]byte, d.width*d.height*4)
}

// Viewport implements gpucore.Device.
func (d *SoftwareDevice) Viewport() (int, int) {
	return d.width, d.height
}

// BeginFrame implements gpucore.Device.
func (d *SoftwareDevice) BeginFrame(clear mgl32.Vec4) error {
	if d.inFrame {
		return fmt.Errorf("software: frame already in progress")
	}
	px := [4]byte{
		convert.Unorm8(float64(clear[0])),
		convert.Unorm8(float64(clear[1])),
		convert.Unorm8(float64(clear[2])),
		convert.Unorm8(float64(clear[3])),
	}
	for i := 0; i < len(d.target); i += 4 {
		copy(d.target[i:i+4], px[:])
	}
	d.inFrame = true
	d.draws = d.draws[:0]
	return nil
}

// Draw validates the call against the device's resources and records it.
func (d *SoftwareDevice) Draw(call *gpucore.DrawCall) error {
	if !d.inFrame {
		return gpucore.ErrFrame
	}
	if _, ok := d.programs[call.Program]; !ok {
		return fmt.Errorf("%w: program %d", gpucore.ErrUnknownResource, call.Program)
	}
	vb, ok := d.buffers[call.Vertices]
	if !ok {
		return fmt.Errorf("%w: vertex buffer %d", gpucore.ErrUnknownResource, call.Vertices)
	}
	if call.Stride <= 0 {
		return fmt.Errorf("software: draw %q: stride %d", call.Label, call.Stride)
	}
	vertices := len(vb.data) / call.Stride
	if call.Indices != gpucore.InvalidID {
		ib, ok := d.buffers[call.Indices]
		if !ok {
			return fmt.Errorf("%w: index buffer %d", gpucore.ErrUnknownResource, call.Indices)
		}
		if call.IndexCount*4 > len(ib.data) {
			return fmt.Errorf("software: draw %q: %d indices exceed buffer", call.Label, call.IndexCount)
		}
		for i := 0; i < call.IndexCount; i++ {
			idx := int(uint32(ib.data[4*i]) | uint32(ib.data[4*i+1])<<8 | uint32(ib.data[4*i+2])<<16 | uint32(ib.data[4*i+3])<<24)
			if idx >= vertices {
				return fmt.Errorf("software: draw %q: index %d out of range (%d vertices)", call.Label, idx, vertices)
			}
		}
	} else if call.VertexCount > vertices {
		return fmt.Errorf("software: draw %q: %d vertices exceed buffer (%d)", call.Label, call.VertexCount, vertices)
	}
	for _, tb := range call.Textures {
		if _, ok := d.textures[tb.Texture]; !ok {
			return fmt.Errorf("%w: texture %d on unit %d", gpucore.ErrUnknownResource, tb.Texture, tb.Unit)
		}
	}
	c := *call
	c.Attributes = append([]gpucore.VertexAttribute(nil), call.Attributes...)
	c.Textures = append([]gpucore.TextureBinding(nil), call.Textures...)
	d.draws = append(d.draws, c)
	d.stats.Draws++
	return nil
}

// CopyBackbuffer implements gpucore.Device.
func (d *SoftwareDevice) CopyBackbuffer(dst gpucore.TextureID) error {
	t, ok := d.textures[dst]
	if !ok {
		return fmt.Errorf("%w: texture %d", gpucore.ErrUnknownResource, dst)
	}
	if t.desc.Format != format.RGBA8Unorm || t.desc.Size != [3]int{d.width, d.height, 1} || len(t.levels) == 0 {
		t.desc = gpucore.TextureDescriptor{
			Label:     t.label,
			Dimension: gputypes.TextureDimension2D,
			Format:    format.RGBA8Unorm,
			Size:      [3]int{d.width, d.height, 1},
			MipLevels: 1,
		}
		t.levels = [][]byte{make([]byte, len(d.target))}
	}
	copy(t.levels[0], d.target)
	d.stats.BackbufferCopies++
	return nil
}

// EndFrame implements gpucore.Device.
func (d *SoftwareDevice) EndFrame() error {
	if !d.inFrame {
		return gpucore.ErrFrame
	}
	d.inFrame = false
	d.stats.Frames++
	return nil
}

// Draws returns the calls recorded in the current or last frame.
func (d *SoftwareDevice) Draws() []gpucore.DrawCall {
	return d.draws
}

// Pixels returns the render target as tightly packed RGBA8.
func (d *SoftwareDevice) Pixels() []byte {
	return d.target
}

// Stats returns the operation counters.
func (d *SoftwareDevice) Stats() SoftwareStats {
	return d.stats
}

// Destroy implements gpucore.Device.
func (d *SoftwareDevice) Destroy() {
	clear(d.textures)
	clear(d.buffers)
	clear(d.shaders)
	clear(d.programs)
	d.draws = nil
}

var _ gpucore.Device = (*SoftwareDevice)(nil)
