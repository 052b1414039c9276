package opengl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/WilliamKappler/caelumGraphicsSystem/backend"
	"github.com/WilliamKappler/caelumGraphicsSystem/format"
	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
)

// maxTextureUnits caps the units reported to callers.
const maxTextureUnits = 80

// errNoContext is returned by New when no GL context is current.
var errNoContext = errors.Wrap(backend.ErrNotInitialized, "opengl: no current GL context")

func init() {
	backend.Register(backend.BackendGL, func() (gpucore.Device, error) {
		return New()
	})
}

// Device implements gpucore.Device on the current OpenGL context.
//
// Thread Safety: the mutex protects the resource maps only. GL itself must
// still be driven from the context thread.
type Device struct {
	mu     sync.Mutex
	nextID uint64

	textures map[gpucore.TextureID]*glTexture
	buffers  map[gpucore.BufferID]*glBuffer
	shaders  map[gpucore.ShaderID]uint32
	programs map[gpucore.ProgramID]*glProgram

	caps      gpucore.Capabilities
	orderings map[format.Format]format.Ordering

	vao uint32
	// enabled tracks the vertex attribute arrays left enabled by the last draw.
	enabled map[uint32]bool

	fbo, color    uint32
	width, height int
	inFrame       bool
}

type glTexture struct {
	name   uint32
	label  string
	desc   gpucore.TextureDescriptor
	target uint32
}

type glBuffer struct {
	name   uint32
	target uint32
}

type glProgram struct {
	name      uint32
	locations map[string]int32
}

// New creates a device on the GL context current on the calling thread.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, errors.Wrapf(backend.ErrNotInitialized, "opengl: loading GL functions: %v", err)
	}
	version := gl.GetString(gl.VERSION)
	if version == nil {
		return nil, errNoContext
	}

	d := &Device{
		textures:  make(map[gpucore.TextureID]*glTexture),
		buffers:   make(map[gpucore.BufferID]*glBuffer),
		shaders:   make(map[gpucore.ShaderID]uint32),
		programs:  make(map[gpucore.ProgramID]*glProgram),
		orderings: make(map[format.Format]format.Ordering),
		enabled:   make(map[uint32]bool),
	}

	var units int32
	gl.GetIntegerv(gl.MAX_COMBINED_TEXTURE_IMAGE_UNITS, &units)
	d.caps = gpucore.Capabilities{
		Language:            gpucore.GLSL,
		ShaderCompilation:   true,
		GeometryShaders:     true,
		TextureInvalidation: true,
		MaxTextureUnits:     min(int(units), maxTextureUnits),
	}

	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)
	gl.GenFramebuffers(1, &d.fbo)
	gl.GenTextures(1, &d.color)
	d.SetViewport(1, 1)

	gl.Enable(gl.DEBUG_OUTPUT)
	gl.DebugMessageCallback(debugCallback, nil)

	slogger().Info("opengl device created",
		"version", gl.GoStr(version),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)),
		"textureUnits", d.caps.MaxTextureUnits)
	return d, nil
}

func debugCallback(source, gltype, id, severity uint32, _ int32, message string, _ unsafe.Pointer) {
	slogger().Log(context.Background(), debugLevel(severity), "gl debug",
		"source", source, "type", gltype, "id", id, "message", message)
}

// SetLogger sets the package logger. Called when cgs.SetLogger propagates.
func (d *Device) SetLogger(l *slog.Logger) {
	setLogger(l)
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

// Name returns "gl".
func (d *Device) Name() string { return backend.BackendGL }

// Capabilities reports the context's limits.
func (d *Device) Capabilities() gpucore.Capabilities { return d.caps }

// PreferredOrdering asks the driver which client layout it stores f in
// natively.
func (d *Device) PreferredOrdering(f format.Format) format.Ordering {
	if !f.Swizzleable() {
		return format.OrderingStandard
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if o, ok := d.orderings[f]; ok {
		return o
	}
	var native int32
	gl.GetInternalformativ(gl.TEXTURE_2D, internalFormat(f), gl.TEXTURE_IMAGE_FORMAT, 1, &native)
	o := format.OrderingStandard
	if uint32(native) == gl.BGR || uint32(native) == gl.BGRA {
		o = format.OrderingModified
	}
	d.orderings[f] = o
	return o
}

// label attaches a debug label to a GL object.
func label(identifier, name uint32, text string) {
	if text == "" {
		return
	}
	gl.ObjectLabel(identifier, name, int32(len(text)), gl.Str(text+"\x00"))
}

// === Textures ===

// CreateTexture reserves an ID. The GL name is made on allocation.
func (d *Device) CreateTexture(label string) (gpucore.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpucore.TextureID(d.id())
	d.textures[id] = &glTexture{label: label}
	return id, nil
}

// AllocateTexture recreates the texture with immutable storage.
func (d *Device) AllocateTexture(id gpucore.TextureID, desc *gpucore.TextureDescriptor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok {
		return errors.Wrapf(gpucore.ErrUnknownResource, "texture %d", id)
	}
	internal := internalFormat(desc.Format)
	if internal == 0 {
		return errors.Wrapf(gpucore.ErrUnsupported, "texture %d: format %v", id, desc.Format)
	}

	// Immutable storage cannot be resized; a new name is needed.
	if t.name != 0 {
		gl.DeleteTextures(1, &t.name)
	}
	gl.GenTextures(1, &t.name)
	t.desc = *desc
	t.target = textureTarget(desc.Dimension)
	if desc.Label != "" {
		t.label = desc.Label
	}

	levels := int32(max(desc.MipLevels, 1))
	w, h, depth := int32(desc.Size[0]), int32(desc.Size[1]), int32(desc.Size[2])
	gl.BindTexture(t.target, t.name)
	switch desc.Dimension {
	case gputypes.TextureDimension1D:
		gl.TexStorage1D(t.target, levels, internal, w)
	case gputypes.TextureDimension3D:
		gl.TexStorage3D(t.target, levels, internal, w, h, depth)
	default:
		gl.TexStorage2D(t.target, levels, internal, w, h)
	}

	minFilter, magFilter := int32(gl.LINEAR), int32(gl.LINEAR)
	if desc.Format.IsInteger() {
		minFilter, magFilter = gl.NEAREST, gl.NEAREST
	} else if levels > 1 {
		minFilter = gl.LINEAR_MIPMAP_LINEAR
	}
	gl.TexParameteri(t.target, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TexParameteri(t.target, gl.TEXTURE_MAG_FILTER, magFilter)
	gl.TexParameteri(t.target, gl.TEXTURE_MAX_LEVEL, levels-1)
	for _, axis := range wrapAxes(desc.Dimension) {
		gl.TexParameteri(t.target, axis, gl.CLAMP_TO_EDGE)
	}
	label(gl.TEXTURE, t.name, t.label)

	slogger().Debug("texture allocated", "id", id, "label", t.label,
		"format", desc.Format, "size", desc.Size, "levels", levels)
	return checkError("allocate texture")
}

// InvalidateTexture discards the content of every level.
func (d *Device) InvalidateTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok || t.name == 0 {
		return
	}
	for level := range max(t.desc.MipLevels, 1) {
		gl.InvalidateTexImage(t.name, int32(level))
	}
}

// WriteTexture uploads level 0.
func (d *Device) WriteTexture(id gpucore.TextureID, w *gpucore.TextureWrite) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok || t.name == 0 {
		return errors.Wrapf(gpucore.ErrUnknownResource, "texture %d", id)
	}
	cell := t.desc.Format.CellSize()
	if want := unpackRowSize(w.Size[0], cell); w.RowSize != want {
		return errors.Newf("opengl: texture %d: row size %d, want %d", id, w.RowSize, want)
	}
	if len(w.Data) == 0 {
		return nil
	}

	pixFormat, pixType := pixelFormat(t.desc.Format, t.desc.Ordering)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
	gl.PixelStorei(gl.UNPACK_IMAGE_HEIGHT, int32(w.SheetSize/w.RowSize))
	gl.BindTexture(t.target, t.name)

	px := gl.Ptr(w.Data)
	sx, sy, sz := int32(w.Size[0]), int32(w.Size[1]), int32(w.Size[2])
	switch t.desc.Dimension {
	case gputypes.TextureDimension1D:
		gl.TexSubImage1D(t.target, 0, 0, sx, pixFormat, pixType, px)
	case gputypes.TextureDimension3D:
		gl.TexSubImage3D(t.target, 0, 0, 0, 0, sx, sy, sz, pixFormat, pixType, px)
	default:
		gl.TexSubImage2D(t.target, 0, 0, 0, sx, sy, pixFormat, pixType, px)
	}
	return checkError("write texture")
}

// GenerateMipmaps rebuilds the chain when the texture has one. Integer
// formats cannot be filtered and keep their single level.
func (d *Device) GenerateMipmaps(id gpucore.TextureID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok || t.name == 0 {
		return errors.Wrapf(gpucore.ErrUnknownResource, "texture %d", id)
	}
	if t.desc.MipLevels <= 1 || t.desc.Format.IsInteger() {
		return nil
	}
	gl.BindTexture(t.target, t.name)
	gl.GenerateMipmap(t.target)
	return checkError("generate mipmaps")
}

// DestroyTexture deletes the texture.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok {
		return
	}
	if t.name != 0 {
		gl.DeleteTextures(1, &t.name)
	}
	delete(d.textures, id)
}

// === Buffers ===

// CreateBuffer creates an empty buffer object.
func (d *Device) CreateBuffer(kind gpucore.BufferKind, text string) (gpucore.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := &glBuffer{target: gl.ARRAY_BUFFER}
	if kind == gpucore.IndexBuffer {
		b.target = gl.ELEMENT_ARRAY_BUFFER
	}
	gl.GenBuffers(1, &b.name)
	gl.BindBuffer(b.target, b.name)
	label(gl.BUFFER, b.name, text)
	id := gpucore.BufferID(d.id())
	d.buffers[id] = b
	return id, nil
}

// WriteBuffer replaces the buffer store.
func (d *Device) WriteBuffer(id gpucore.BufferID, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return errors.Wrapf(gpucore.ErrUnknownResource, "buffer %d", id)
	}
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	gl.BindBuffer(b.target, b.name)
	gl.BufferData(b.target, len(data), ptr, gl.DYNAMIC_DRAW)
	return checkError("write buffer")
}

// DestroyBuffer deletes the buffer.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buffers[id]; ok {
		gl.DeleteBuffers(1, &b.name)
		delete(d.buffers, id)
	}
}

// === Shaders & Programs ===

// CompileShader compiles GLSL source for one stage.
func (d *Device) CompileShader(stage gpucore.ShaderStage, source, text string) (gpucore.ShaderID, error) {
	typ, err := shaderType(stage)
	if err != nil {
		return gpucore.InvalidID, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	name := gl.CreateShader(typ)
	csrc, free := gl.Strs(source + "\x00")
	gl.ShaderSource(name, 1, csrc, nil)
	free()
	gl.CompileShader(name)

	var status int32
	gl.GetShaderiv(name, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		infoLog := shaderLog(name)
		gl.DeleteShader(name)
		return gpucore.InvalidID, errors.WithDetail(
			errors.Wrapf(gpucore.ErrCompile, "%s shader %q", stage, text), infoLog)
	}
	label(gl.SHADER, name, text)

	id := gpucore.ShaderID(d.id())
	d.shaders[id] = name
	return id, nil
}

func shaderLog(name uint32) string {
	var n int32
	gl.GetShaderiv(name, gl.INFO_LOG_LENGTH, &n)
	if n == 0 {
		return ""
	}
	buf := make([]byte, n+1)
	gl.GetShaderInfoLog(name, n, nil, &buf[0])
	return strings.TrimRight(string(buf), "\x00")
}

func programLog(name uint32) string {
	var n int32
	gl.GetProgramiv(name, gl.INFO_LOG_LENGTH, &n)
	if n == 0 {
		return ""
	}
	buf := make([]byte, n+1)
	gl.GetProgramInfoLog(name, n, nil, &buf[0])
	return strings.TrimRight(string(buf), "\x00")
}

// DestroyShader deletes a shader object.
func (d *Device) DestroyShader(id gpucore.ShaderID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if name, ok := d.shaders[id]; ok {
		gl.DeleteShader(name)
		delete(d.shaders, id)
	}
}

// LinkProgram links the given stages.
func (d *Device) LinkProgram(desc *gpucore.ProgramDescriptor) (gpucore.ProgramID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stages := []gpucore.ShaderID{desc.Vertex, desc.Fragment}
	if desc.Geometry != gpucore.InvalidID {
		stages = append(stages, desc.Geometry)
	}
	names := make([]uint32, 0, len(stages))
	for _, s := range stages {
		name, ok := d.shaders[s]
		if !ok {
			return gpucore.InvalidID, errors.Wrapf(gpucore.ErrUnknownResource, "shader %d", s)
		}
		names = append(names, name)
	}

	prog := gl.CreateProgram()
	for _, name := range names {
		gl.AttachShader(prog, name)
	}
	gl.LinkProgram(prog)
	for _, name := range names {
		gl.DetachShader(prog, name)
	}

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		infoLog := programLog(prog)
		gl.DeleteProgram(prog)
		return gpucore.InvalidID, errors.WithDetail(
			errors.Wrapf(gpucore.ErrLink, "program %q", desc.Label), infoLog)
	}
	label(gl.PROGRAM, prog, desc.Label)

	id := gpucore.ProgramID(d.id())
	d.programs[id] = &glProgram{name: prog, locations: make(map[string]int32)}
	return id, nil
}

// DestroyProgram deletes a program.
func (d *Device) DestroyProgram(id gpucore.ProgramID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.programs[id]; ok {
		gl.DeleteProgram(p.name)
		delete(d.programs, id)
	}
}

// location returns the cached uniform location, -1 when absent.
func (d *Device) location(program gpucore.ProgramID, uniform string) (uint32, int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.programs[program]
	if !ok {
		return 0, -1
	}
	loc, ok := p.locations[uniform]
	if !ok {
		loc = gl.GetUniformLocation(p.name, gl.Str(uniform+"\x00"))
		p.locations[uniform] = loc
	}
	return p.name, loc
}

// SetUniformInt sets an int or sampler uniform.
func (d *Device) SetUniformInt(program gpucore.ProgramID, uniform string, v int32) {
	if prog, loc := d.location(program, uniform); loc >= 0 {
		gl.ProgramUniform1i(prog, loc, v)
	}
}

// SetUniformFloat sets a float uniform.
func (d *Device) SetUniformFloat(program gpucore.ProgramID, uniform string, v float32) {
	if prog, loc := d.location(program, uniform); loc >= 0 {
		gl.ProgramUniform1f(prog, loc, v)
	}
}

// SetUniformVec4 sets a vec4 uniform.
func (d *Device) SetUniformVec4(program gpucore.ProgramID, uniform string, v mgl32.Vec4) {
	if prog, loc := d.location(program, uniform); loc >= 0 {
		gl.ProgramUniform4f(prog, loc, v[0], v[1], v[2], v[3])
	}
}

// SetUniformMat4 sets a mat4 uniform. mgl32 matrices are column-major like
// GL expects.
func (d *Device) SetUniformMat4(program gpucore.ProgramID, uniform string, m mgl32.Mat4) {
	if prog, loc := d.location(program, uniform); loc >= 0 {
		gl.ProgramUniformMatrix4fv(prog, loc, 1, false, &m[0])
	}
}

// === Frames ===

// SetViewport resizes the offscreen target.
func (d *Device) SetViewport(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	width, height = max(width, 1), max(height, 1)
	if width == d.width && height == d.height {
		return
	}
	d.width, d.height = width, height

	if d.color != 0 {
		gl.DeleteTextures(1, &d.color)
	}
	gl.GenTextures(1, &d.color)
	gl.BindTexture(gl.TEXTURE_2D, d.color)
	gl.TexStorage2D(gl.TEXTURE_2D, 1, gl.RGBA8, int32(width), int32(height))
	gl.BindFramebuffer(gl.FRAMEBUFFER, d.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, d.color, 0)
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		slogger().Error("offscreen framebuffer incomplete", "status", fmt.Sprintf("0x%x", status))
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// Viewport returns the offscreen target size.
func (d *Device) Viewport() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

// BeginFrame binds and clears the offscreen target.
func (d *Device) BeginFrame(clear mgl32.Vec4) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFrame {
		return errors.New("opengl: frame already in progress")
	}
	d.inFrame = true
	gl.BindFramebuffer(gl.FRAMEBUFFER, d.fbo)
	gl.Viewport(0, 0, int32(d.width), int32(d.height))
	gl.ClearColor(clear[0], clear[1], clear[2], clear[3])
	gl.Clear(gl.COLOR_BUFFER_BIT)
	return nil
}

// Draw issues one draw call.
func (d *Device) Draw(call *gpucore.DrawCall) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.inFrame {
		return gpucore.ErrFrame
	}
	p, ok := d.programs[call.Program]
	if !ok {
		return errors.Wrapf(gpucore.ErrUnknownResource, "draw %q: program %d", call.Label, call.Program)
	}
	vb, ok := d.buffers[call.Vertices]
	if !ok {
		return errors.Wrapf(gpucore.ErrUnknownResource, "draw %q: vertex buffer %d", call.Label, call.Vertices)
	}

	gl.UseProgram(p.name)
	gl.BindVertexArray(d.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vb.name)

	used := make(map[uint32]bool, len(call.Attributes))
	stride := int32(call.Stride)
	for _, a := range call.Attributes {
		typ, off := elementType(a.Type), gl.PtrOffset(a.Offset)
		switch {
		case a.Type == gpucore.TypeDouble:
			gl.VertexAttribLPointer(a.Location, int32(a.Count), typ, stride, off)
		case a.Integer:
			gl.VertexAttribIPointer(a.Location, int32(a.Count), typ, stride, off)
		default:
			gl.VertexAttribPointer(a.Location, int32(a.Count), typ, a.Normalize, stride, off)
		}
		gl.EnableVertexAttribArray(a.Location)
		used[a.Location] = true
	}
	for loc := range d.enabled {
		if !used[loc] {
			gl.DisableVertexAttribArray(loc)
		}
	}
	d.enabled = used

	for _, b := range call.Textures {
		if b.Unit < 0 || b.Unit >= d.caps.MaxTextureUnits {
			return errors.Wrapf(gpucore.ErrUnsupported, "draw %q: texture unit %d of %d", call.Label, b.Unit, d.caps.MaxTextureUnits)
		}
		t, ok := d.textures[b.Texture]
		if !ok || t.name == 0 {
			return errors.Wrapf(gpucore.ErrUnknownResource, "draw %q: texture %d on unit %d", call.Label, b.Texture, b.Unit)
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(b.Unit))
		gl.BindTexture(t.target, t.name)
	}

	mode := primitiveMode(call.Primitive)
	if call.Indices != gpucore.InvalidID {
		ib, ok := d.buffers[call.Indices]
		if !ok {
			return errors.Wrapf(gpucore.ErrUnknownResource, "draw %q: index buffer %d", call.Label, call.Indices)
		}
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ib.name)
		gl.DrawElements(mode, int32(call.IndexCount), gl.UNSIGNED_INT, nil)
	} else {
		gl.DrawArrays(mode, 0, int32(call.VertexCount))
	}
	return checkError("draw " + call.Label)
}

// CopyBackbuffer copies the offscreen target into dst.
func (d *Device) CopyBackbuffer(dst gpucore.TextureID) error {
	d.mu.Lock()
	t, ok := d.textures[dst]
	if !ok {
		d.mu.Unlock()
		return errors.Wrapf(gpucore.ErrUnknownResource, "texture %d", dst)
	}
	want := gpucore.TextureDescriptor{
		Label:     t.label,
		Dimension: gputypes.TextureDimension2D,
		Format:    format.RGBA8Unorm,
		Size:      [3]int{d.width, d.height, 1},
		MipLevels: 1,
	}
	realloc := t.name == 0 || t.desc != want
	d.mu.Unlock()

	if realloc {
		if err := d.AllocateTexture(dst, &want); err != nil {
			return err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, d.fbo)
	gl.BindTexture(gl.TEXTURE_2D, t.name)
	gl.CopyTexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, 0, 0, int32(d.width), int32(d.height))
	if d.inFrame {
		gl.BindFramebuffer(gl.FRAMEBUFFER, d.fbo)
	}
	return checkError("copy backbuffer")
}

// EndFrame blits the offscreen target to the default framebuffer.
func (d *Device) EndFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.inFrame {
		return gpucore.ErrFrame
	}
	d.inFrame = false
	w, h := int32(d.width), int32(d.height)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, d.fbo)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.BlitFramebuffer(0, 0, w, h, 0, 0, w, h, gl.COLOR_BUFFER_BIT, gl.NEAREST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return checkError("end frame")
}

// Destroy deletes every object the device created.
func (d *Device) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, t := range d.textures {
		if t.name != 0 {
			gl.DeleteTextures(1, &t.name)
		}
		delete(d.textures, id)
	}
	for id, b := range d.buffers {
		gl.DeleteBuffers(1, &b.name)
		delete(d.buffers, id)
	}
	for id, name := range d.shaders {
		gl.DeleteShader(name)
		delete(d.shaders, id)
	}
	for id, p := range d.programs {
		gl.DeleteProgram(p.name)
		delete(d.programs, id)
	}
	gl.DeleteFramebuffers(1, &d.fbo)
	gl.DeleteTextures(1, &d.color)
	gl.DeleteVertexArrays(1, &d.vao)
	d.fbo, d.color, d.vao = 0, 0, 0
}

// checkError drains the GL error queue and reports the first error.
func checkError(op string) error {
	var errs []uint32
	for e := gl.GetError(); e != gl.NO_ERROR; e = gl.GetError() {
		errs = append(errs, e)
	}
	return glError(op, errs)
}

// glError builds an error from GL error codes.
func glError(op string, codes []uint32) error {
	if len(codes) == 0 {
		return nil
	}
	var err error
	for _, c := range codes {
		err = errors.CombineErrors(err, errors.Newf("opengl: %s: %s", op, errorName(c)))
	}
	return err
}

func errorName(code uint32) string {
	switch code {
	case gl.INVALID_ENUM:
		return "GL_INVALID_ENUM"
	case gl.INVALID_VALUE:
		return "GL_INVALID_VALUE"
	case gl.INVALID_OPERATION:
		return "GL_INVALID_OPERATION"
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return "GL_INVALID_FRAMEBUFFER_OPERATION"
	case gl.OUT_OF_MEMORY:
		return "GL_OUT_OF_MEMORY"
	case gl.STACK_OVERFLOW:
		return "GL_STACK_OVERFLOW"
	case gl.STACK_UNDERFLOW:
		return "GL_STACK_UNDERFLOW"
	default:
		return fmt.Sprintf("GL error 0x%x", code)
	}
}
