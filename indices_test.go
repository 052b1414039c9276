package cgs

import (
	"encoding/binary"
	"slices"
	"testing"

	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
)

func TestIndexWrites(t *testing.T) {
	s, _ := newTestSystem(t)
	m := triangle(t, s)

	if m.WriteIndex(0) {
		t.Error("WriteIndex() without an index list = true")
	}
	m.CreateIndices(8)
	if !m.HasIndices() || m.IndexCount() != 0 {
		t.Fatalf("after CreateIndices: HasIndices() = %v, IndexCount() = %d, want true, 0", m.HasIndices(), m.IndexCount())
	}
	for _, i := range []uint32{2, 1, 0} {
		if !m.WriteIndex(i) {
			t.Fatalf("WriteIndex(%d) = false", i)
		}
	}
	if !slices.Equal(m.Indices(), []uint32{2, 1, 0}) {
		t.Errorf("Indices() = %v, want [2 1 0]", m.Indices())
	}

	if !m.MoveIndexCursor(1) {
		t.Fatal("MoveIndexCursor(1) = false")
	}
	m.WriteIndex(5)
	if !slices.Equal(m.Indices(), []uint32{2, 5, 0}) {
		t.Errorf("Indices() after overwrite = %v, want [2 5 0]", m.Indices())
	}
	if m.MoveIndexCursor(4) {
		t.Error("MoveIndexCursor() past the end = true")
	}

	if !m.WriteIndexAt(7, 0) || m.WriteIndexAt(7, 3) {
		t.Error("WriteIndexAt() should accept 0 and reject 3")
	}

	m.ResizeIndices(5)
	if !slices.Equal(m.Indices(), []uint32{7, 5, 0, 0, 0}) {
		t.Errorf("Indices() after grow = %v", m.Indices())
	}
	m.ResizeIndices(1)
	if !slices.Equal(m.Indices(), []uint32{7}) {
		t.Errorf("Indices() after shrink = %v", m.Indices())
	}

	m.ClearIndices()
	if m.IndexCount() != 0 || !m.HasIndices() {
		t.Error("ClearIndices() should empty the list and keep it")
	}
}

func TestIndexedDraw(t *testing.T) {
	s, dev := newTestSystem(t)
	m := triangle(t, s)
	m.CreateIndices(6)
	for _, i := range []uint32{0, 1, 2, 2, 1, 0} {
		m.WriteIndex(i)
	}
	s.Stage(0).Add(0, m, false)

	if _, err := s.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	d := dev.Draws()[0]
	if d.Indices == gpucore.InvalidID || d.IndexCount != 6 {
		t.Fatalf("draw = %+v, want 6 indices", d)
	}
	data, _ := dev.BufferData(d.Indices)
	if got := binary.LittleEndian.Uint32(data[12:]); got != 2 {
		t.Errorf("index 3 = %d, want 2", got)
	}

	m.DeleteIndices()
	if m.HasIndices() {
		t.Error("HasIndices() after DeleteIndices = true")
	}
	if _, ok := dev.BufferData(d.Indices); ok {
		t.Error("index buffer still alive")
	}
	s.Stage(0).Add(0, m, false)
	if _, err := s.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if d := dev.Draws()[0]; d.Indices != gpucore.InvalidID || d.VertexCount != 3 {
		t.Errorf("draw without indices = %+v, want 3 vertices", d)
	}
}

func TestIndexedDrawOutOfRange(t *testing.T) {
	s, _ := newTestSystem(t)
	m := triangle(t, s)
	m.CreateIndices(1)
	m.WriteIndex(3)
	s.Stage(0).Add(0, m, false)

	stats, err := s.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if stats.Draws != 0 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want the draw rejected", stats)
	}
}
