package cgs

import (
	"encoding/binary"
	"math"

	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
	"github.com/WilliamKappler/caelumGraphicsSystem/internal/convert"
)

// Vertex attribute binding points used by the default shaders.
const (
	AttribPosition  uint32 = 0
	AttribUVW       uint32 = 1
	AttribColor     uint32 = 2
	AttribNormal    uint32 = 3
	AttribFirstUser uint32 = 4
)

// attribute is one declared column of the vertex stream.
type attribute struct {
	index     uint32
	typ       gpucore.ElementType
	count     int
	integer   bool
	normalize bool
	offset    int // within the stride, set by GenerateStream
}

func (a *attribute) size() int {
	return a.typ.Size() * a.count
}

// cursor is the open attribute write position, counted in elements.
type cursor struct {
	open    bool
	attr    int
	pos     int
	written int
}

// DeclareAttribute declares (or redeclares) the vertex attribute at a
// binding point. count is 1–4. integer passes components to the shader
// unconverted; normalize maps integer components to [0, 1] or [-1, 1].
//
// The stream becomes invalid until GenerateStream is called again.
func (m *Mesh) DeclareAttribute(index uint32, typ gpucore.ElementType, count int, integer, normalize bool) {
	log := m.sys.logger()
	if count < 1 || count > 4 {
		log.Warn("cgs: attribute element count must be 1-4", "mesh", m.label, "index", index, "count", count)
		return
	}
	if typ.Size() == 0 {
		log.Warn("cgs: unknown attribute type", "mesh", m.label, "index", index, "type", typ)
		return
	}
	if integer && (typ == gpucore.TypeFloat || typ == gpucore.TypeHalfFloat || typ == gpucore.TypeDouble || typ == gpucore.TypeFixed) {
		log.Warn("cgs: integer attribute of non-integer type, passing as float", "mesh", m.label, "index", index, "type", typ)
		integer = false
	}
	m.closeCursor()

	a := attribute{index: index, typ: typ, count: count, integer: integer, normalize: normalize}
	if i := m.findAttribute(index); i >= 0 {
		log.Warn("cgs: vertex attribute redeclared", "mesh", m.label, "index", index)
		m.attrs[i] = a
	} else {
		m.attrs = append(m.attrs, a)
	}
	m.invalidateStream()
}

// DeleteAttribute removes the attribute at a binding point. It reports
// whether one was declared. The stream becomes invalid.
func (m *Mesh) DeleteAttribute(index uint32) bool {
	i := m.findAttribute(index)
	if i < 0 {
		return false
	}
	m.closeCursor()
	m.attrs = append(m.attrs[:i], m.attrs[i+1:]...)
	m.invalidateStream()
	return true
}

func (m *Mesh) findAttribute(index uint32) int {
	for i := range m.attrs {
		if m.attrs[i].index == index {
			return i
		}
	}
	return -1
}

func (m *Mesh) invalidateStream() {
	defer m.resized(m.cpuBytes())
	m.streamValid = false
	m.stream = nil
	m.stride = 0
}

// GenerateStream lays out the declared attributes, in declaration order,
// interleaved in one buffer of length vertices. It reports whether the
// stream is usable; with no attributes declared it is not.
func (m *Mesh) GenerateStream(length int) bool {
	log := m.sys.logger()
	m.closeCursor()
	if length < 0 {
		log.Warn("cgs: negative stream length", "mesh", m.label, "length", length)
		return false
	}
	stride := 0
	for i := range m.attrs {
		m.attrs[i].offset = stride
		stride += m.attrs[i].size()
	}
	if stride == 0 {
		log.Warn("cgs: vertex stream has no attributes", "mesh", m.label)
		m.invalidateStream()
		return false
	}
	before := m.cpuBytes()
	m.stride = stride
	m.length = length
	m.stream = make([]byte, stride*length)
	m.resized(before)
	m.streamValid = true
	m.streamDirty = true
	m.sys.checkBudget()
	return true
}

// Stride returns the bytes per vertex, or 0 without a valid stream.
func (m *Mesh) Stride() int { return m.stride }

// Length returns the vertex count of the stream.
func (m *Mesh) Length() int { return m.length }

// StreamValid reports whether the stream was generated after the last
// attribute change.
func (m *Mesh) StreamValid() bool { return m.streamValid }

// Stream returns the interleaved vertex bytes.
func (m *Mesh) Stream() []byte { return m.stream }

// Open points the write cursor at the first element of an attribute. A
// cursor already open is closed first. It reports whether the attribute
// exists in a valid stream.
func (m *Mesh) Open(index uint32) bool {
	m.closeCursor()
	if !m.streamValid {
		m.sys.logger().Warn("cgs: open on mesh without a generated stream", "mesh", m.label, "index", index)
		return false
	}
	i := m.findAttribute(index)
	if i < 0 {
		m.sys.logger().Warn("cgs: open of undeclared attribute", "mesh", m.label, "index", index)
		return false
	}
	m.cur = cursor{open: true, attr: i}
	return true
}

// Close closes the write cursor. Writing fewer or more elements than
// length × count is reported.
func (m *Mesh) Close() {
	if !m.cur.open {
		m.sys.logger().Warn("cgs: close without an open attribute", "mesh", m.label)
		return
	}
	m.closeCursor()
}

func (m *Mesh) closeCursor() {
	if !m.cur.open {
		return
	}
	a := &m.attrs[m.cur.attr]
	if want := m.length * a.count; m.cur.written != want {
		m.sys.logger().Warn("cgs: attribute closed with wrong element count",
			"mesh", m.label, "index", a.index, "written", m.cur.written, "want", want)
	}
	m.cur = cursor{}
}

// Position returns the element index of the cursor, or -1 when closed.
func (m *Mesh) Position() int {
	if !m.cur.open {
		return -1
	}
	return m.cur.pos
}

// Seek moves the cursor to an element of the open attribute.
func (m *Mesh) Seek(element int) bool {
	if !m.cur.open {
		m.sys.logger().Warn("cgs: seek without an open attribute", "mesh", m.label)
		return false
	}
	a := &m.attrs[m.cur.attr]
	if element < 0 || element > m.length*a.count {
		m.sys.logger().Warn("cgs: seek out of range", "mesh", m.label, "index", a.index, "element", element)
		return false
	}
	m.cur.pos = element
	return true
}

// slot returns the bytes of the next element if the open attribute has one
// of the given types, and advances the cursor.
func (m *Mesh) slot(op string, types ...gpucore.ElementType) ([]byte, gpucore.ElementType, bool) {
	log := m.sys.logger()
	if !m.cur.open {
		log.Warn("cgs: write without an open attribute", "mesh", m.label, "write", op)
		return nil, 0, false
	}
	a := &m.attrs[m.cur.attr]
	match := false
	for _, t := range types {
		if a.typ == t {
			match = true
			break
		}
	}
	if !match {
		log.Warn("cgs: write type does not match attribute", "mesh", m.label, "index", a.index, "write", op, "type", a.typ)
		return nil, 0, false
	}
	if m.cur.pos >= m.length*a.count {
		log.Warn("cgs: write past end of attribute", "mesh", m.label, "index", a.index)
		return nil, 0, false
	}
	vertex, comp := m.cur.pos/a.count, m.cur.pos%a.count
	size := a.typ.Size()
	off := vertex*m.stride + a.offset + comp*size
	m.cur.pos++
	m.cur.written++
	m.streamDirty = true
	return m.stream[off : off+size], a.typ, true
}

// WriteFloat32 writes to a float or half-float attribute.
func (m *Mesh) WriteFloat32(v float32) bool {
	b, typ, ok := m.slot("float32", gpucore.TypeFloat, gpucore.TypeHalfFloat)
	if !ok {
		return false
	}
	if typ == gpucore.TypeHalfFloat {
		binary.LittleEndian.PutUint16(b, convert.Half(v))
	} else {
		binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	}
	return true
}

// WriteFloat64 writes to a double attribute.
func (m *Mesh) WriteFloat64(v float64) bool {
	b, _, ok := m.slot("float64", gpucore.TypeDouble)
	if ok {
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	}
	return ok
}

// WriteInt8 writes to a byte attribute.
func (m *Mesh) WriteInt8(v int8) bool {
	b, _, ok := m.slot("int8", gpucore.TypeByte)
	if ok {
		b[0] = uint8(v)
	}
	return ok
}

// WriteUint8 writes to an unsigned byte attribute.
func (m *Mesh) WriteUint8(v uint8) bool {
	b, _, ok := m.slot("uint8", gpucore.TypeUnsignedByte)
	if ok {
		b[0] = v
	}
	return ok
}

// WriteInt16 writes to a short attribute.
func (m *Mesh) WriteInt16(v int16) bool {
	b, _, ok := m.slot("int16", gpucore.TypeShort)
	if ok {
		binary.LittleEndian.PutUint16(b, uint16(v))
	}
	return ok
}

// WriteUint16 writes to an unsigned short attribute.
func (m *Mesh) WriteUint16(v uint16) bool {
	b, _, ok := m.slot("uint16", gpucore.TypeUnsignedShort)
	if ok {
		binary.LittleEndian.PutUint16(b, v)
	}
	return ok
}

// WriteInt32 writes to an int or 16.16 fixed attribute.
func (m *Mesh) WriteInt32(v int32) bool {
	b, _, ok := m.slot("int32", gpucore.TypeInt, gpucore.TypeFixed)
	if ok {
		binary.LittleEndian.PutUint32(b, uint32(v))
	}
	return ok
}

// WriteUint32 writes to an unsigned int attribute.
func (m *Mesh) WriteUint32(v uint32) bool {
	b, _, ok := m.slot("uint32", gpucore.TypeUnsignedInt)
	if ok {
		binary.LittleEndian.PutUint32(b, v)
	}
	return ok
}

// vertexAttributes describes the stream layout for a draw call.
func (m *Mesh) vertexAttributes() []gpucore.VertexAttribute {
	out := make([]gpucore.VertexAttribute, len(m.attrs))
	for i, a := range m.attrs {
		out[i] = gpucore.VertexAttribute{
			Location:  a.index,
			Type:      a.typ,
			Count:     a.count,
			Integer:   a.integer,
			Normalize: a.normalize,
			Offset:    a.offset,
		}
	}
	return out
}
