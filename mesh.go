package cgs

import (
	"encoding/binary"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
)

// Mesh is drawable geometry: an interleaved vertex stream, an optional
// index list, shaders and texture links.
type Mesh struct {
	sys   *System
	id    uint64
	label string

	primitive gpucore.Primitive
	visible   bool

	attrs       []attribute
	stride      int
	length      int
	stream      []byte
	streamValid bool
	streamDirty bool
	cur         cursor

	useIndices   bool
	indices      []uint32
	indexPos     int
	indicesDirty bool

	vbo      gpucore.BufferID
	ibo      gpucore.BufferID
	gpuBytes uint64

	shaders      [3]*Shader
	program      gpucore.ProgramID
	programDirty bool
	layout       []string

	destroyed bool
}

// CreateMesh creates an empty, visible mesh drawn as primitive.
func (s *System) CreateMesh(primitive gpucore.Primitive) (*Mesh, error) {
	if s.closed {
		return nil, ErrClosed
	}
	s.nextMesh++
	m := &Mesh{
		sys:          s,
		id:           s.nextMesh,
		label:        fmt.Sprintf("mesh-%d", s.nextMesh),
		primitive:    primitive,
		visible:      true,
		programDirty: true,
	}
	s.meshes[m.id] = m
	return m, nil
}

// ID returns the mesh's identity within its System. IDs increase
// monotonically.
func (m *Mesh) ID() uint64 { return m.id }

// Label returns the debug label.
func (m *Mesh) Label() string { return m.label }

// SetLabel sets the debug label.
func (m *Mesh) SetLabel(label string) { m.label = label }

// Primitive returns the draw topology.
func (m *Mesh) Primitive() gpucore.Primitive { return m.primitive }

// SetPrimitive sets the draw topology.
func (m *Mesh) SetPrimitive(p gpucore.Primitive) { m.primitive = p }

// Visible reports whether the mesh is drawn and uploaded.
func (m *Mesh) Visible() bool { return m.visible }

// SetVisible shows or hides the mesh.
func (m *Mesh) SetVisible(v bool) { m.visible = v }

// SetShader replaces the shader for its stage. A nil vertex or fragment
// shader selects the system default; a nil geometry shader removes it.
// The program is relinked before the next draw.
func (m *Mesh) SetShader(stage gpucore.ShaderStage, sh *Shader) bool {
	if sh != nil && !sh.Valid() {
		m.sys.logger().Warn("cgs: shader did not compile", "mesh", m.label, "shader", sh.name)
		return false
	}
	if sh != nil && sh.stage != stage {
		m.sys.logger().Warn("cgs: shader attached to wrong stage", "mesh", m.label, "shader", sh.name, "stage", stage)
		return false
	}
	if int(stage) >= len(m.shaders) {
		return false
	}
	m.shaders[stage] = sh
	m.programDirty = true
	return true
}

// LoadShader loads a shader by name and attaches it.
func (m *Mesh) LoadShader(stage gpucore.ShaderStage, name string) error {
	sh, err := m.sys.LoadShader(stage, name)
	if err != nil {
		return err
	}
	m.SetShader(stage, sh)
	return nil
}

// Shader returns the shader attached for a stage; nil means the default
// for vertex and fragment.
func (m *Mesh) Shader(stage gpucore.ShaderStage) *Shader {
	if int(stage) >= len(m.shaders) {
		return nil
	}
	return m.shaders[stage]
}

// SetUniformLayout lists the vec4 uniform slots of the program's uniform
// block, for devices that address uniforms by position. A mat4 fills its
// slot and the three after it.
func (m *Mesh) SetUniformLayout(names ...string) {
	m.layout = append([]string(nil), names...)
	m.programDirty = true
}

// LinkProgram links the mesh's shaders into a program, replacing the
// previous one. Render links automatically.
func (m *Mesh) LinkProgram() error {
	s := m.sys
	vert, frag, geom := m.shaders[gpucore.StageVertex], m.shaders[gpucore.StageFragment], m.shaders[gpucore.StageGeometry]
	if vert == nil {
		vert = s.defaultVert
	}
	if frag == nil {
		frag = s.defaultFrag
	}
	desc := gpucore.ProgramDescriptor{
		Label:    m.label,
		Vertex:   vert.id,
		Fragment: frag.id,
		Uniforms: m.layout,
	}
	if geom != nil {
		desc.Geometry = geom.id
	}
	prog, err := s.device.LinkProgram(&desc)
	if err != nil {
		s.logger().Error("cgs: program link failed", "mesh", m.label, "err", err)
		return fmt.Errorf("cgs: mesh %s: %w", m.label, err)
	}
	if m.program != gpucore.InvalidID {
		s.device.DestroyProgram(m.program)
	}
	m.program = prog
	m.programDirty = false
	for _, l := range s.links.units(m.id) {
		if t := s.textures[l.texture]; l.texture != 0 && t != nil {
			m.pushUnit(l.unit, t)
		}
	}
	return nil
}

// Program returns the linked program, linking first if needed.
func (m *Mesh) Program() (gpucore.ProgramID, error) {
	if m.programDirty || m.program == gpucore.InvalidID {
		if err := m.LinkProgram(); err != nil {
			return gpucore.InvalidID, err
		}
	}
	return m.program, nil
}

// SetUniformInt sets an integer uniform on the mesh's program.
func (m *Mesh) SetUniformInt(name string, v int32) {
	if p, err := m.Program(); err == nil {
		m.sys.device.SetUniformInt(p, name, v)
	}
}

// SetUniformFloat sets a float uniform on the mesh's program.
func (m *Mesh) SetUniformFloat(name string, v float32) {
	if p, err := m.Program(); err == nil {
		m.sys.device.SetUniformFloat(p, name, v)
	}
}

// SetUniformVec4 sets a vec4 uniform on the mesh's program.
func (m *Mesh) SetUniformVec4(name string, v mgl32.Vec4) {
	if p, err := m.Program(); err == nil {
		m.sys.device.SetUniformVec4(p, name, v)
	}
}

// SetUniformMat4 sets a mat4 uniform on the mesh's program.
func (m *Mesh) SetUniformMat4(name string, v mgl32.Mat4) {
	if p, err := m.Program(); err == nil {
		m.sys.device.SetUniformMat4(p, name, v)
	}
}

// update links the program and uploads changed vertex and index data.
// Hidden meshes are skipped.
func (m *Mesh) update() error {
	if !m.visible || m.destroyed {
		return nil
	}
	if _, err := m.Program(); err != nil {
		return err
	}
	if !m.streamValid {
		return fmt.Errorf("%w: mesh %s", ErrInvalidStream, m.label)
	}
	dev := m.sys.device
	if m.streamDirty {
		if m.vbo == gpucore.InvalidID {
			id, err := dev.CreateBuffer(gpucore.VertexBuffer, m.label+"-vertices")
			if err != nil {
				return fmt.Errorf("cgs: mesh %s: %w", m.label, err)
			}
			m.vbo = id
		}
		if err := dev.WriteBuffer(m.vbo, m.stream); err != nil {
			return fmt.Errorf("cgs: mesh %s: %w", m.label, err)
		}
		m.streamDirty = false
	}
	if m.useIndices && m.indicesDirty {
		if m.ibo == gpucore.InvalidID {
			id, err := dev.CreateBuffer(gpucore.IndexBuffer, m.label+"-indices")
			if err != nil {
				return fmt.Errorf("cgs: mesh %s: %w", m.label, err)
			}
			m.ibo = id
		}
		data := make([]byte, 4*len(m.indices))
		for i, v := range m.indices {
			binary.LittleEndian.PutUint32(data[4*i:], v)
		}
		if err := dev.WriteBuffer(m.ibo, data); err != nil {
			return fmt.Errorf("cgs: mesh %s: %w", m.label, err)
		}
		m.indicesDirty = false
	}
	m.gpuBytes = uint64(len(m.stream))
	if m.useIndices {
		m.gpuBytes += uint64(4 * len(m.indices))
	}
	return nil
}

// draw issues the mesh's draw call. The backbuffer texture is bound on
// backbufferUnit unless the mesh links a texture there.
func (m *Mesh) draw(backbufferUnit int, backbuffer gpucore.TextureID) (bool, error) {
	if !m.visible || m.destroyed {
		return false, nil
	}
	if err := m.update(); err != nil {
		return false, err
	}
	call := gpucore.DrawCall{
		Label:       m.label,
		Program:     m.program,
		Primitive:   m.primitive,
		Vertices:    m.vbo,
		Stride:      m.stride,
		Attributes:  m.vertexAttributes(),
		VertexCount: m.length,
		Textures:    m.textureBindings(),
	}
	if m.useIndices {
		call.Indices = m.ibo
		call.IndexCount = len(m.indices)
	}
	if backbuffer != gpucore.InvalidID && !m.Adapter(backbufferUnit).Valid() {
		call.Textures = append(call.Textures, gpucore.TextureBinding{
			Unit:      backbufferUnit,
			Texture:   backbuffer,
			Dimension: gputypes.TextureDimension2D,
		})
	}
	if err := m.sys.device.Draw(&call); err != nil {
		return false, fmt.Errorf("cgs: mesh %s: %w", m.label, err)
	}
	return true, nil
}

// Destroy detaches every texture and releases the mesh's GPU resources.
func (m *Mesh) Destroy() {
	if m.destroyed {
		return
	}
	s := m.sys
	for _, l := range s.links.units(m.id) {
		m.breakLink(l)
	}
	for _, st := range s.stages {
		st.remove(m)
	}
	dev := s.device
	if m.vbo != gpucore.InvalidID {
		dev.DestroyBuffer(m.vbo)
	}
	if m.ibo != gpucore.InvalidID {
		dev.DestroyBuffer(m.ibo)
	}
	if m.program != gpucore.InvalidID {
		dev.DestroyProgram(m.program)
	}
	m.vbo, m.ibo, m.program = gpucore.InvalidID, gpucore.InvalidID, gpucore.InvalidID
	s.cpuBytes -= m.cpuBytes()
	m.stream, m.indices = nil, nil
	m.destroyed = true
	delete(s.meshes, m.id)
}

// cpuBytes is the size of the stream and index list.
func (m *Mesh) cpuBytes() uint64 { return uint64(len(m.stream) + 4*len(m.indices)) }

// resized moves the system total from a previous mesh size to the current one.
func (m *Mesh) resized(before uint64) {
	m.sys.cpuBytes = m.sys.cpuBytes + m.cpuBytes() - before
}

// Destroyed reports whether the mesh was destroyed.
func (m *Mesh) Destroyed() bool { return m.destroyed }
