package cgs

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/loov/hrtime"

	"github.com/WilliamKappler/caelumGraphicsSystem/backend"
	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
)

// System owns a device and every texture, mesh, shader and stage created
// through it. All methods must be called from the goroutine that owns the
// device's GPU context.
type System struct {
	id     uuid.UUID
	opts   options
	device gpucore.Device
	caps   gpucore.Capabilities

	log     *slog.Logger
	logBase *slog.Logger

	nextTexture uint64
	nextMesh    uint64
	textures    map[uint64]*Texture
	meshes      map[uint64]*Mesh
	files       map[string]*Texture
	links       *linkRegistry
	stages      map[int]*Stage

	shaderPaths []string
	shaders     map[shaderKey]*Shader
	defaultVert *Shader
	defaultFrag *Shader

	// backbuffer textures, by unit
	backbuffers map[int]gpucore.TextureID

	frame      uint64
	overBudget bool
	closed     bool

	// cpuBytes is the running size of texture mirrors, vertex streams and
	// index lists.
	cpuBytes uint64
}

// RenderStats describes one Render call.
type RenderStats struct {
	// Frame is the 1-based frame number.
	Frame uint64

	// Stages is the number of stages rendered.
	Stages int

	// Draws is the number of meshes drawn.
	Draws int

	// Skipped counts queued meshes that were hidden or failed to draw.
	Skipped int

	// BackbufferCopies counts backbuffer pulls.
	BackbufferCopies int

	// Duration is the wall time of the call.
	Duration time.Duration
}

// New creates a System. The device is, in order of preference, the one
// given WithDevice, the backend named WithBackend, or the best registered
// backend that opens. New fails when the device cannot compile shaders or
// the default vertex and fragment shaders do not load.
func New(opts ...Option) (*System, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.budget < MinMemoryBudget {
		o.budget = DefaultMemoryBudget
	}

	dev := o.device
	if dev == nil {
		var err error
		if o.backend != "" {
			dev, err = backend.Get(o.backend)
		} else {
			dev, err = backend.InitDefault()
		}
		if err != nil {
			return nil, fmt.Errorf("cgs: %w", err)
		}
	}

	s := &System{
		id:          uuid.New(),
		opts:        o,
		device:      dev,
		caps:        dev.Capabilities(),
		textures:    make(map[uint64]*Texture),
		meshes:      make(map[uint64]*Mesh),
		files:       make(map[string]*Texture),
		links:       newLinkRegistry(),
		stages:      make(map[int]*Stage),
		shaderPaths: append([]string(nil), o.shaderPaths...),
		shaders:     make(map[shaderKey]*Shader),
		backbuffers: make(map[int]gpucore.TextureID),
	}
	if !s.caps.ShaderCompilation {
		dev.Destroy()
		return nil, fmt.Errorf("%w: %s", ErrNoShaderCompilation, dev.Name())
	}
	track(s)

	if o.width > 0 && o.height > 0 {
		dev.SetViewport(o.width, o.height)
	}

	var err error
	if s.defaultVert, err = s.LoadShader(gpucore.StageVertex, DefaultShaderName); err != nil {
		s.Close()
		return nil, errors.Join(ErrDefaultShaders, err)
	}
	if s.defaultFrag, err = s.LoadShader(gpucore.StageFragment, DefaultShaderName); err != nil {
		s.Close()
		return nil, errors.Join(ErrDefaultShaders, err)
	}

	w, h := dev.Viewport()
	s.logger().Info("cgs: system created", "backend", dev.Name(), "viewport", fmt.Sprintf("%dx%d", w, h))
	return s, nil
}

// ID returns the system's instance id.
func (s *System) ID() uuid.UUID { return s.id }

// Device returns the device the system draws with.
func (s *System) Device() gpucore.Device { return s.device }

// Capabilities returns the device capabilities.
func (s *System) Capabilities() gpucore.Capabilities { return s.caps }

// SetViewport resizes the render target.
func (s *System) SetViewport(width, height int) {
	s.device.SetViewport(width, height)
}

// Viewport returns the render target size.
func (s *System) Viewport() (width, height int) {
	return s.device.Viewport()
}

// SetClearColor sets the color the render target is cleared to.
func (s *System) SetClearColor(r, g, b, a float32) {
	s.opts.clear = mgl32.Vec4{r, g, b, a}
}

// Texture returns a live texture by id, or nil.
func (s *System) Texture(id uint64) *Texture { return s.textures[id] }

// Mesh returns a live mesh by id, or nil.
func (s *System) Mesh(id uint64) *Mesh { return s.meshes[id] }

// Frame returns the number of frames rendered.
func (s *System) Frame() uint64 { return s.frame }

// Render draws one frame: meshes and textures are uploaded, the target is
// cleared, each stage is drawn in index order and then drained.
//
// Per-mesh failures are logged and skipped; the returned error reports
// device failures that end the frame.
func (s *System) Render() (RenderStats, error) {
	if s.closed {
		return RenderStats{}, ErrClosed
	}
	start := hrtime.Now()
	log := s.logger()

	for _, m := range s.sortedMeshes() {
		if err := m.update(); err != nil {
			log.Warn("cgs: mesh update failed", "mesh", m.label, "err", err)
		}
	}
	for _, t := range s.sortedTextures() {
		if err := t.Update(); err != nil {
			log.Warn("cgs: texture update failed", "texture", t.label, "err", err)
		}
	}

	if err := s.device.BeginFrame(s.opts.clear); err != nil {
		return RenderStats{}, fmt.Errorf("cgs: begin frame: %w", err)
	}
	s.frame++
	stats := RenderStats{Frame: s.frame}

	for _, idx := range s.StageIndices() {
		st := s.stages[idx]
		st.sort()
		stats.Stages++
		bb, err := s.pullBackbuffer(st.backbufferUnit)
		if err != nil {
			log.Warn("cgs: backbuffer copy failed", "stage", idx, "err", err)
		} else {
			stats.BackbufferCopies++
		}
		for _, op := range st.ops {
			if op.pull {
				if bb, err = s.pullBackbuffer(st.backbufferUnit); err != nil {
					log.Warn("cgs: backbuffer copy failed", "stage", idx, "mesh", op.mesh.label, "err", err)
				} else {
					stats.BackbufferCopies++
				}
			}
			drawn, err := op.mesh.draw(st.backbufferUnit, bb)
			if err != nil {
				log.Warn("cgs: draw failed", "stage", idx, "mesh", op.mesh.label, "err", err)
			}
			if drawn {
				stats.Draws++
			} else {
				stats.Skipped++
			}
		}
		st.Clear()
	}

	if err := s.device.EndFrame(); err != nil {
		return stats, fmt.Errorf("cgs: end frame: %w", err)
	}
	stats.Duration = hrtime.Since(start)
	s.checkBudget()
	log.Debug("cgs: frame rendered", "frame", stats.Frame, "draws", stats.Draws, "duration", stats.Duration)
	return stats, nil
}

// pullBackbuffer copies the render target into the backbuffer texture of a
// unit.
func (s *System) pullBackbuffer(unit int) (gpucore.TextureID, error) {
	id, ok := s.backbuffers[unit]
	if !ok {
		var err error
		id, err = s.device.CreateTexture(fmt.Sprintf("backbuffer-%d", unit))
		if err != nil {
			return gpucore.InvalidID, err
		}
		s.backbuffers[unit] = id
	}
	if err := s.device.CopyBackbuffer(id); err != nil {
		return gpucore.InvalidID, err
	}
	return id, nil
}

func (s *System) sortedMeshes() []*Mesh {
	out := make([]*Mesh, 0, len(s.meshes))
	for _, m := range s.meshes {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (s *System) sortedTextures() []*Texture {
	out := make([]*Texture, 0, len(s.textures))
	for _, t := range s.textures {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Close destroys every mesh, texture and shader, then the device.
func (s *System) Close() {
	if s.closed {
		return
	}
	for _, m := range s.sortedMeshes() {
		m.Destroy()
	}
	for _, t := range s.sortedTextures() {
		t.Destroy()
	}
	for k, sh := range s.shaders {
		s.device.DestroyShader(sh.id)
		sh.id = gpucore.InvalidID
		delete(s.shaders, k)
	}
	for unit, id := range s.backbuffers {
		s.device.DestroyTexture(id)
		delete(s.backbuffers, unit)
	}
	clear(s.stages)
	s.device.Destroy()
	s.closed = true
	untrack(s)
	s.logger().Info("cgs: system closed", "frames", s.frame)
}
