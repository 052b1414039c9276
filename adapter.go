package cgs

import (
	"sort"

	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
)

// link is one (mesh, unit, texture) binding. texture is 0 once the texture
// was destroyed; the record stays until the mesh unit is detached or
// relinked.
type link struct {
	mesh    uint64
	unit    int
	texture uint64
}

type linkKey struct {
	mesh uint64
	unit int
}

// linkRegistry indexes links by mesh unit and by texture. Neither side holds
// a pointer to the other; invalidation is a lookup and a clear.
type linkRegistry struct {
	byMesh    map[linkKey]*link
	byTexture map[uint64]map[*link]struct{}
}

func newLinkRegistry() *linkRegistry {
	return &linkRegistry{
		byMesh:    make(map[linkKey]*link),
		byTexture: make(map[uint64]map[*link]struct{}),
	}
}

func (r *linkRegistry) add(l *link) {
	r.byMesh[linkKey{l.mesh, l.unit}] = l
	set := r.byTexture[l.texture]
	if set == nil {
		set = make(map[*link]struct{})
		r.byTexture[l.texture] = set
	}
	set[l] = struct{}{}
}

// remove drops l and returns the texture it pointed at (0 if invalid) and
// how many links that texture has left.
func (r *linkRegistry) remove(l *link) (texture uint64, left int) {
	delete(r.byMesh, linkKey{l.mesh, l.unit})
	if l.texture == 0 {
		return 0, 0
	}
	set := r.byTexture[l.texture]
	delete(set, l)
	left = len(set)
	if left == 0 {
		delete(r.byTexture, l.texture)
	}
	return l.texture, left
}

// invalidateTexture clears the texture side of every link to it.
func (r *linkRegistry) invalidateTexture(texture uint64) {
	for l := range r.byTexture[texture] {
		l.texture = 0
	}
	delete(r.byTexture, texture)
}

// units returns a mesh's links sorted by unit.
func (r *linkRegistry) units(mesh uint64) []*link {
	var out []*link
	for k, l := range r.byMesh {
		if k.mesh == mesh {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].unit < out[j].unit })
	return out
}

// Adapter is a mesh's view of the link on one texture unit.
type Adapter struct {
	sys *System
	l   *link
}

// Valid reports whether the link still names a live texture.
func (a Adapter) Valid() bool {
	return a.l != nil && a.l.texture != 0 && a.sys.textures[a.l.texture] != nil
}

// Unit returns the texture unit, or -1 for an empty Adapter.
func (a Adapter) Unit() int {
	if a.l == nil {
		return -1
	}
	return a.l.unit
}

// Texture returns the linked texture, or nil once it is gone.
func (a Adapter) Texture() *Texture {
	if !a.Valid() {
		return nil
	}
	return a.sys.textures[a.l.texture]
}

// Attach links tex to a texture unit of the mesh, breaking any link the
// unit had. The texture's range and sampler uniforms are pushed to the
// mesh's program.
func (m *Mesh) Attach(unit int, tex *Texture) {
	s := m.sys
	if m.destroyed || tex == nil || tex.destroyed {
		s.logger().Warn("cgs: attach of destroyed mesh or texture", "mesh", m.label, "unit", unit)
		return
	}
	if unit < 0 || unit >= MaxTextureUnits {
		s.logger().Warn("cgs: texture unit out of range, not linked",
			"mesh", m.label, "unit", unit, "max", MaxTextureUnits)
		return
	}
	if old, ok := s.links.byMesh[linkKey{m.id, unit}]; ok {
		if old.texture == tex.id {
			s.logger().Warn("cgs: texture already attached to unit", "mesh", m.label, "unit", unit, "texture", tex.label)
			return
		}
		m.breakLink(old)
	}
	s.links.add(&link{mesh: m.id, unit: unit, texture: tex.id})
	s.logger().Debug("cgs: texture attached", "mesh", m.label, "unit", unit, "texture", tex.label)
	if m.program != gpucore.InvalidID {
		m.pushUnit(unit, tex)
	}
}

// Detach breaks the link on a texture unit. It reports whether a live
// texture was linked there.
func (m *Mesh) Detach(unit int) bool {
	l, ok := m.sys.links.byMesh[linkKey{m.id, unit}]
	if !ok {
		return false
	}
	valid := l.texture != 0
	m.breakLink(l)
	return valid
}

// AttachedTexture returns the texture linked to a unit, or nil.
func (m *Mesh) AttachedTexture(unit int) *Texture {
	return m.Adapter(unit).Texture()
}

// Adapter returns the link on a unit. The Adapter of an unlinked unit is
// not Valid.
func (m *Mesh) Adapter(unit int) Adapter {
	return Adapter{sys: m.sys, l: m.sys.links.byMesh[linkKey{m.id, unit}]}
}

// breakLink removes l and completes a pending deletion of its texture.
func (m *Mesh) breakLink(l *link) {
	s := m.sys
	id, left := s.links.remove(l)
	if id == 0 || left > 0 {
		return
	}
	if t := s.textures[id]; t != nil && t.deleteRequested {
		t.Destroy()
	}
}

// textureBindings returns the live textures the mesh samples, by unit.
func (m *Mesh) textureBindings() []gpucore.TextureBinding {
	var out []gpucore.TextureBinding
	for _, l := range m.sys.links.units(m.id) {
		t := m.sys.textures[l.texture]
		if l.texture == 0 || t == nil || t.gpu == gpucore.InvalidID {
			continue
		}
		out = append(out, gpucore.TextureBinding{Unit: l.unit, Texture: t.gpu, Dimension: t.dim})
	}
	return out
}

// SamplerUniform names the sampler uniform of a texture unit.
func SamplerUniform(unit int) string {
	return gpucore.SamplerUniform(unit)
}

// RangeUniform names the vec4 uniform holding a unit's texture range.
func RangeUniform(unit int) string {
	return gpucore.RangeUniform(unit)
}

func (m *Mesh) pushUnit(unit int, t *Texture) {
	dev := m.sys.device
	dev.SetUniformInt(m.program, SamplerUniform(unit), int32(unit))
	dev.SetUniformVec4(m.program, RangeUniform(unit), t.Range())
}

// pushTextureRange refreshes the range uniform of t on every linked mesh.
func (s *System) pushTextureRange(t *Texture) {
	for l := range s.links.byTexture[t.id] {
		m := s.meshes[l.mesh]
		if m == nil || m.program == gpucore.InvalidID {
			continue
		}
		s.device.SetUniformVec4(m.program, RangeUniform(l.unit), t.Range())
	}
}
