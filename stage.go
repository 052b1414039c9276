package cgs

import (
	"slices"
	"sort"
)

// Stage is an ordering bucket of draw operations. Stages render in
// ascending index order; within a stage, operations render by ascending
// key, and operations with equal keys in the order they were added.
//
// A stage is drained after every Render.
type Stage struct {
	index          int
	backbufferUnit int
	ops            []stageOp
	seq            int
}

type stageOp struct {
	key  float64
	seq  int
	mesh *Mesh
	pull bool
}

// Stage returns the stage at index, creating it if needed.
func (s *System) Stage(index int) *Stage {
	st, ok := s.stages[index]
	if !ok {
		st = &Stage{index: index, backbufferUnit: s.opts.backbufferUnit}
		s.stages[index] = st
	}
	return st
}

// RemoveStage discards a stage and its pending operations. It reports
// whether the stage existed.
func (s *System) RemoveStage(index int) bool {
	if _, ok := s.stages[index]; !ok {
		return false
	}
	delete(s.stages, index)
	return true
}

// StageIndices returns the indices of existing stages in render order.
func (s *System) StageIndices() []int {
	out := make([]int, 0, len(s.stages))
	for i := range s.stages {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Index returns the stage's position in the render order.
func (st *Stage) Index() int { return st.index }

// BackbufferUnit returns the texture unit the backbuffer is copied into.
func (st *Stage) BackbufferUnit() int { return st.backbufferUnit }

// SetBackbufferUnit sets the texture unit the backbuffer is copied into.
func (st *Stage) SetBackbufferUnit(unit int) { st.backbufferUnit = unit }

// Add queues a draw of m for the next frame. With pullBackbuffer the
// backbuffer is copied again right before the draw, so m can sample what
// was drawn before it in the stage.
func (st *Stage) Add(key float64, m *Mesh, pullBackbuffer bool) {
	if m == nil || m.destroyed {
		return
	}
	st.seq++
	st.ops = append(st.ops, stageOp{key: key, seq: st.seq, mesh: m, pull: pullBackbuffer})
}

// Len returns the number of queued operations.
func (st *Stage) Len() int { return len(st.ops) }

// Clear drops the queued operations.
func (st *Stage) Clear() {
	st.ops = st.ops[:0]
	st.seq = 0
}

// Meshes returns the queued meshes in render order.
func (st *Stage) Meshes() []*Mesh {
	st.sort()
	out := make([]*Mesh, len(st.ops))
	for i, op := range st.ops {
		out[i] = op.mesh
	}
	return out
}

func (st *Stage) sort() {
	slices.SortStableFunc(st.ops, func(a, b stageOp) int {
		switch {
		case a.key < b.key:
			return -1
		case a.key > b.key:
			return 1
		default:
			return a.seq - b.seq
		}
	})
}

// remove drops every operation on m.
func (st *Stage) remove(m *Mesh) {
	st.ops = slices.DeleteFunc(st.ops, func(op stageOp) bool { return op.mesh == m })
}
