package cgs

// CreateIndices gives the mesh an index list, reserving room for prealloc
// entries. A mesh with an index list draws the vertices it names instead of
// the stream in order.
// Calling it again clears the list.
func (m *Mesh) CreateIndices(prealloc int) {
	defer m.resized(m.cpuBytes())
	if m.useIndices {
		m.sys.logger().Warn("cgs: index list already exists, clearing", "mesh", m.label)
		m.ClearIndices()
	}
	m.useIndices = true
	m.indices = make([]uint32, 0, max(0, prealloc))
	m.indexPos = 0
	m.indicesDirty = true
}

// HasIndices reports whether the mesh draws with an index list.
func (m *Mesh) HasIndices() bool { return m.useIndices }

// WriteIndexAt stores an index at position at, which must be below Len.
func (m *Mesh) WriteIndexAt(v uint32, at int) bool {
	if !m.useIndices {
		m.sys.logger().Warn("cgs: index write without an index list", "mesh", m.label)
		return false
	}
	if at < 0 || at >= len(m.indices) {
		m.sys.logger().Warn("cgs: index position out of range", "mesh", m.label, "at", at, "len", len(m.indices))
		return false
	}
	m.indices[at] = v
	m.indicesDirty = true
	return true
}

// WriteIndex stores an index at the cursor and advances it. Writing at the
// end of the list appends.
func (m *Mesh) WriteIndex(v uint32) bool {
	if !m.useIndices {
		m.sys.logger().Warn("cgs: index write without an index list", "mesh", m.label)
		return false
	}
	switch {
	case m.indexPos < len(m.indices):
		m.indices[m.indexPos] = v
	case m.indexPos == len(m.indices):
		m.indices = append(m.indices, v)
		m.sys.cpuBytes += 4
	default:
		m.sys.logger().Warn("cgs: index cursor past end", "mesh", m.label, "pos", m.indexPos, "len", len(m.indices))
		return false
	}
	m.indexPos++
	m.indicesDirty = true
	return true
}

// MoveIndexCursor moves the index cursor. pos may equal Len to append.
func (m *Mesh) MoveIndexCursor(pos int) bool {
	if pos < 0 || pos > len(m.indices) {
		m.sys.logger().Warn("cgs: index cursor out of range", "mesh", m.label, "pos", pos, "len", len(m.indices))
		return false
	}
	m.indexPos = pos
	return true
}

// ResizeIndices grows the list with zero entries or truncates it.
func (m *Mesh) ResizeIndices(n int) {
	defer m.resized(m.cpuBytes())
	if n < 0 {
		n = 0
	}
	if n <= len(m.indices) {
		m.indices = m.indices[:n]
	} else {
		m.indices = append(m.indices, make([]uint32, n-len(m.indices))...)
	}
	m.indexPos = min(m.indexPos, n)
	m.indicesDirty = true
}

// IndexCount returns the length of the index list.
func (m *Mesh) IndexCount() int { return len(m.indices) }

// Indices returns the index list.
func (m *Mesh) Indices() []uint32 { return m.indices }

// ClearIndices empties the list and rewinds the cursor.
func (m *Mesh) ClearIndices() {
	defer m.resized(m.cpuBytes())
	m.indices = m.indices[:0]
	m.indexPos = 0
	m.indicesDirty = true
}

// DeleteIndices removes the index list; the mesh draws its stream in order.
func (m *Mesh) DeleteIndices() {
	defer m.resized(m.cpuBytes())
	if m.ibo != 0 {
		m.sys.device.DestroyBuffer(m.ibo)
		m.ibo = 0
	}
	m.indices = nil
	m.indexPos = 0
	m.useIndices = false
	m.indicesDirty = false
}
