package wgpu

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/WilliamKappler/caelumGraphicsSystem/backend"
	"github.com/WilliamKappler/caelumGraphicsSystem/format"
	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
)

// targetFormat is the format of the offscreen render target.
const targetFormat = gputypes.TextureFormatRGBA8Unorm

// textureUsage is given to every texture the device creates.
const textureUsage = gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst | gputypes.TextureUsageCopySrc

func init() {
	backend.Register(backend.BackendWGPU, func() (gpucore.Device, error) {
		return New()
	})
}

// Device implements gpucore.Device on a HAL device.
//
// Thread Safety: Device is safe for concurrent use. All methods hold the
// device mutex.
type Device struct {
	mu     sync.Mutex
	nextID uint64

	device   hal.Device
	queue    hal.Queue
	instance hal.Instance // nil when the device is borrowed
	external bool
	info     gputypes.AdapterInfo

	textures map[gpucore.TextureID]*wgTexture
	buffers  map[gpucore.BufferID]*wgBuffer
	shaders  map[gpucore.ShaderID]*wgShader
	programs map[gpucore.ProgramID]*wgProgram

	width, height int
	target        hal.Texture
	targetView    hal.TextureView

	// linear filters float textures, nearest serves integer ones.
	linear, nearest hal.Sampler

	inFrame bool
	cleared bool
	clear   gputypes.Color

	pending []submission
}

type wgTexture struct {
	label  string
	desc   gpucore.TextureDescriptor
	stored format.Format
	tex    hal.Texture
	view   hal.TextureView
	// level0 is the last upload in stored format, kept for mipmaps.
	level0 []byte
}

type wgBuffer struct {
	kind  gpucore.BufferKind
	label string
	buf   hal.Buffer
	cap   uint64
	size  int

	// indices shadows index buffers for primitive expansion.
	indices []uint32
}

type wgShader struct {
	stage  gpucore.ShaderStage
	module hal.ShaderModule
	entry  string
	slots  []textureSlot
}

type wgProgram struct {
	label    string
	vertex   *wgShader
	fragment *wgShader
	block    *uniformBlock
	dirty    bool
	slots    []programSlot

	uniformBuf  hal.Buffer
	groupLayout hal.BindGroupLayout
	bindGroup   hal.BindGroup // nil when textures are bound per draw
	layout      hal.PipelineLayout
	pipelines   map[string]hal.RenderPipeline
}

// programSlot is a texture slot of a linked program.
type programSlot struct {
	textureSlot
	visibility gputypes.ShaderStage
}

// transient holds per-draw objects freed with their submission.
type transient struct {
	buffers []hal.Buffer
	groups  []hal.BindGroup
}

func (t transient) free(device hal.Device) {
	for _, g := range t.groups {
		device.DestroyBindGroup(g)
	}
	for _, b := range t.buffers {
		device.DestroyBuffer(b)
	}
}

// submission is GPU work whose command buffer and transient objects are
// released once the queue reports it complete.
type submission struct {
	index uint64
	cmd   hal.CommandBuffer
	res   transient
}

// New opens the best registered HAL backend. The noop backend does not
// count; without a real backend New fails with backend.ErrNotInitialized.
func New() (*Device, error) {
	b, err := hal.SelectBestBackend()
	if err != nil || b.Variant() == gputypes.BackendEmpty {
		return nil, errors.Wrap(backend.ErrNotInitialized, "wgpu: no HAL backend registered")
	}
	return Open(b)
}

// Open creates an instance of the given HAL backend and opens its first
// adapter.
func Open(b hal.Backend) (*Device, error) {
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{
		Backends: gputypes.BackendsAll,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "wgpu: create %v instance", b.Variant())
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, errors.Wrapf(backend.ErrNotInitialized, "wgpu: %v has no adapters", b.Variant())
	}
	exposed := adapters[0]
	opened, err := exposed.Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, errors.Wrapf(err, "wgpu: open adapter %q", exposed.Info.Name)
	}

	d, err := newDevice(opened.Device, opened.Queue, false)
	if err != nil {
		opened.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	d.info = exposed.Info
	slogger().Info("wgpu device opened", "adapter", exposed.Info.Name, "backend", exposed.Info.Backend)
	return d, nil
}

// NewFromProvider shares the device of a gogpu application. The provider
// must also expose HalDevice() and HalQueue() returning hal.Device and
// hal.Queue. Destroy leaves the shared device alive.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, errors.New("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, errors.New("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, errors.New("wgpu: provider HalQueue is not hal.Queue")
	}
	d, err := newDevice(device, queue, true)
	if err != nil {
		return nil, err
	}
	info := provider.AdapterInfo()
	d.info = gputypes.AdapterInfo{Name: info.Name}
	slogger().Info("wgpu device shared", "adapter", info.Name, "type", info.Type)
	return d, nil
}

func newDevice(device hal.Device, queue hal.Queue, external bool) (*Device, error) {
	d := &Device{
		device:   device,
		queue:    queue,
		external: external,
		textures: make(map[gpucore.TextureID]*wgTexture),
		buffers:  make(map[gpucore.BufferID]*wgBuffer),
		shaders:  make(map[gpucore.ShaderID]*wgShader),
		programs: make(map[gpucore.ProgramID]*wgProgram),
	}
	if err := d.resizeTarget(1, 1); err != nil {
		return nil, err
	}
	return d, nil
}

// SetLogger sets the package and HAL logger. Called when cgs.SetLogger
// propagates.
func (d *Device) SetLogger(l *slog.Logger) {
	setLogger(l)
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

// Name returns "wgpu".
func (d *Device) Name() string { return backend.BackendWGPU }

// AdapterInfo describes the adapter the device runs on.
func (d *Device) AdapterInfo() gputypes.AdapterInfo { return d.info }

// Capabilities reports WGSL without geometry shaders.
func (d *Device) Capabilities() gpucore.Capabilities {
	return gpucore.Capabilities{
		Language:          gpucore.WGSL,
		ShaderCompilation: true,
		MaxTextureUnits:   int(gputypes.DefaultLimits().MaxSampledTexturesPerShaderStage),
	}
}

// PreferredOrdering is always standard; uploads are repacked anyway.
func (d *Device) PreferredOrdering(format.Format) format.Ordering {
	return format.OrderingStandard
}

// === Textures ===

// CreateTexture reserves an ID. GPU storage is made on allocation.
func (d *Device) CreateTexture(label string) (gpucore.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpucore.TextureID(d.id())
	d.textures[id] = &wgTexture{label: label}
	return id, nil
}

// AllocateTexture recreates the texture.
func (d *Device) AllocateTexture(id gpucore.TextureID, desc *gpucore.TextureDescriptor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocate(id, desc)
}

func (d *Device) allocate(id gpucore.TextureID, desc *gpucore.TextureDescriptor) error {
	t, ok := d.textures[id]
	if !ok {
		return errors.Wrapf(gpucore.ErrUnknownResource, "texture %d", id)
	}
	stored, gf, err := storageFormat(desc.Format)
	if err != nil {
		return err
	}
	if desc.Label != "" {
		t.label = desc.Label
	}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: t.label,
		Size: hal.Extent3D{
			Width:              uint32(max(desc.Size[0], 1)),
			Height:             uint32(max(desc.Size[1], 1)),
			DepthOrArrayLayers: uint32(max(desc.Size[2], 1)),
		},
		MipLevelCount: uint32(max(desc.MipLevels, 1)),
		SampleCount:   1,
		Dimension:     desc.Dimension,
		Format:        gf,
		Usage:         textureUsage,
	})
	if err != nil {
		return errors.Wrapf(err, "wgpu: create texture %q", t.label)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         t.label + "_view",
		Format:        gf,
		Dimension:     viewDimension(desc.Dimension),
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: uint32(max(desc.MipLevels, 1)),
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return errors.Wrapf(err, "wgpu: create texture view %q", t.label)
	}
	t.release(d.device)
	t.tex, t.view, t.desc, t.stored, t.level0 = tex, view, *desc, stored, nil
	slogger().Debug("texture allocated", "id", id, "label", t.label,
		"format", desc.Format, "stored", stored, "size", desc.Size)
	return nil
}

// InvalidateTexture drops the CPU copy used for mipmaps. WebGPU has no
// invalidation of its own.
func (d *Device) InvalidateTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.textures[id]; ok {
		t.level0 = nil
	}
}

// WriteTexture repacks and uploads level 0.
func (d *Device) WriteTexture(id gpucore.TextureID, w *gpucore.TextureWrite) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok || t.tex == nil {
		return errors.Wrapf(gpucore.ErrUnknownResource, "texture %d", id)
	}
	data, pitch := repack(&t.desc, w)
	height := max(w.Size[1], 1)
	err := d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, Aspect: gputypes.TextureAspectAll},
		data,
		&hal.ImageDataLayout{BytesPerRow: uint32(pitch), RowsPerImage: uint32(height)},
		&hal.Extent3D{
			Width:              uint32(max(w.Size[0], 1)),
			Height:             uint32(height),
			DepthOrArrayLayers: uint32(max(w.Size[2], 1)),
		},
	)
	if err != nil {
		return errors.Wrapf(err, "wgpu: write texture %q", t.label)
	}
	t.level0 = data
	return nil
}

// GenerateMipmaps box-filters levels 1 and up on the CPU from the last
// upload. Integer formats keep their base level only.
func (d *Device) GenerateMipmaps(id gpucore.TextureID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok || t.tex == nil {
		return errors.Wrapf(gpucore.ErrUnknownResource, "texture %d", id)
	}
	if t.desc.MipLevels <= 1 || t.level0 == nil || t.stored.IsInteger() {
		return nil
	}
	data, size := t.level0, t.desc.Size
	for level := 1; level < t.desc.MipLevels; level++ {
		data, size = downsample(t.stored, t.desc.Dimension, data, size)
		err := d.queue.WriteTexture(
			&hal.ImageCopyTexture{Texture: t.tex, MipLevel: uint32(level), Aspect: gputypes.TextureAspectAll},
			data,
			&hal.ImageDataLayout{
				BytesPerRow:  uint32(size[0] * t.stored.CellSize()),
				RowsPerImage: uint32(size[1]),
			},
			&hal.Extent3D{Width: uint32(size[0]), Height: uint32(size[1]), DepthOrArrayLayers: uint32(size[2])},
		)
		if err != nil {
			return errors.Wrapf(err, "wgpu: texture %q level %d", t.label, level)
		}
	}
	return nil
}

// DestroyTexture releases the texture.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.textures[id]; ok {
		t.release(d.device)
		delete(d.textures, id)
	}
}

func (t *wgTexture) release(device hal.Device) {
	if t.view != nil {
		device.DestroyTextureView(t.view)
	}
	if t.tex != nil {
		device.DestroyTexture(t.tex)
	}
	t.tex, t.view = nil, nil
}

// === Buffers ===

// CreateBuffer creates an empty buffer. GPU storage is made on first write.
func (d *Device) CreateBuffer(kind gpucore.BufferKind, label string) (gpucore.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpucore.BufferID(d.id())
	d.buffers[id] = &wgBuffer{kind: kind, label: label}
	return id, nil
}

// WriteBuffer replaces the buffer content, growing the GPU buffer as needed.
func (d *Device) WriteBuffer(id gpucore.BufferID, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return errors.Wrapf(gpucore.ErrUnknownResource, "buffer %d", id)
	}
	b.size = len(data)
	if b.kind == gpucore.IndexBuffer {
		b.indices = b.indices[:0]
		for i := 0; i+4 <= len(data); i += 4 {
			b.indices = append(b.indices, binary.LittleEndian.Uint32(data[i:]))
		}
	}
	if len(data) == 0 {
		return nil
	}

	padded := align4(len(data))
	if uint64(padded) > b.cap {
		usage := gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst
		if b.kind == gpucore.IndexBuffer {
			usage = gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst
		}
		buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{Label: b.label, Size: uint64(padded), Usage: usage})
		if err != nil {
			return errors.Wrapf(err, "wgpu: create buffer %q", b.label)
		}
		if b.buf != nil {
			d.device.DestroyBuffer(b.buf)
		}
		b.buf, b.cap = buf, uint64(padded)
	}
	if padded != len(data) {
		data = append(append([]byte(nil), data...), make([]byte, padded-len(data))...)
	}
	if err := d.queue.WriteBuffer(b.buf, 0, data); err != nil {
		return errors.Wrapf(err, "wgpu: write buffer %q", b.label)
	}
	return nil
}

func align4(n int) int { return (n + 3) &^ 3 }

// DestroyBuffer releases the buffer.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buffers[id]; ok {
		if b.buf != nil {
			d.device.DestroyBuffer(b.buf)
		}
		delete(d.buffers, id)
	}
}

// === Shaders & Programs ===

// CompileShader validates WGSL with naga and creates a shader module.
func (d *Device) CompileShader(stage gpucore.ShaderStage, source, label string) (gpucore.ShaderID, error) {
	compiled, err := compileWGSL(stage, source)
	if err != nil {
		return gpucore.InvalidID, errors.Wrapf(err, "shader %q", label)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{WGSL: source},
	})
	if err != nil {
		return gpucore.InvalidID, errors.WithDetail(errors.Wrapf(gpucore.ErrCompile, "shader %q", label), err.Error())
	}
	id := gpucore.ShaderID(d.id())
	d.shaders[id] = &wgShader{stage: stage, module: module, entry: compiled.entry, slots: compiled.slots}
	return id, nil
}

// DestroyShader releases a shader module.
func (d *Device) DestroyShader(id gpucore.ShaderID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.shaders[id]; ok {
		d.device.DestroyShaderModule(s.module)
		delete(d.shaders, id)
	}
}

// LinkProgram builds the uniform buffer and layouts of a program. Render
// pipelines are created per vertex layout on first draw.
func (d *Device) LinkProgram(desc *gpucore.ProgramDescriptor) (gpucore.ProgramID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if desc.Geometry != gpucore.InvalidID {
		return gpucore.InvalidID, errors.Wrapf(gpucore.ErrUnsupported, "program %q: geometry stage", desc.Label)
	}
	vs, ok := d.shaders[desc.Vertex]
	if !ok || vs.stage != gpucore.StageVertex {
		return gpucore.InvalidID, errors.Wrapf(gpucore.ErrLink, "program %q: no vertex shader %d", desc.Label, desc.Vertex)
	}
	fs, ok := d.shaders[desc.Fragment]
	if !ok || fs.stage != gpucore.StageFragment {
		return gpucore.InvalidID, errors.Wrapf(gpucore.ErrLink, "program %q: no fragment shader %d", desc.Label, desc.Fragment)
	}

	slots, err := d.programSlots(vs, fs)
	if err != nil {
		return gpucore.InvalidID, errors.Wrapf(err, "program %q", desc.Label)
	}
	textures := make([]textureSlot, len(slots))
	for i, s := range slots {
		textures[i] = s.textureSlot
	}

	p := &wgProgram{
		label:     desc.Label,
		vertex:    vs,
		fragment:  fs,
		block:     newUniformBlock(desc.Uniforms, textures),
		dirty:     true,
		slots:     slots,
		pipelines: make(map[string]hal.RenderPipeline),
	}
	if err := d.buildLayout(p, len(desc.Uniforms) > 0 || len(slots) > 0); err != nil {
		d.destroyProgram(p)
		return gpucore.InvalidID, errors.WithDetail(errors.Wrapf(gpucore.ErrLink, "program %q", desc.Label), err.Error())
	}
	id := gpucore.ProgramID(d.id())
	d.programs[id] = p
	return id, nil
}

// programSlots merges the texture slots of both stages. A binding both
// stages declare must agree.
func (d *Device) programSlots(shaders ...*wgShader) ([]programSlot, error) {
	units := d.Capabilities().MaxTextureUnits
	var out []programSlot
	for _, sh := range shaders {
		visibility := gputypes.ShaderStageVertex
		if sh.stage == gpucore.StageFragment {
			visibility = gputypes.ShaderStageFragment
		}
	next:
		for _, s := range sh.slots {
			if s.unit >= units {
				return nil, errors.Wrapf(gpucore.ErrUnsupported, "texture unit %d of %d", s.unit, units)
			}
			for i := range out {
				if out[i].binding() != s.binding() {
					continue
				}
				if out[i].textureSlot != s {
					return nil, errors.Wrapf(gpucore.ErrLink, "binding %d differs between stages", s.binding())
				}
				out[i].visibility |= visibility
				continue next
			}
			out = append(out, programSlot{textureSlot: s, visibility: visibility})
		}
	}
	slices.SortFunc(out, func(a, b programSlot) int { return cmp.Compare(a.binding(), b.binding()) })
	return out, nil
}

// sampleType returns the sample type of the texture on a unit, float when
// the program declares only a sampler there.
func (p *wgProgram) sampleType(unit int) gputypes.TextureSampleType {
	for _, s := range p.slots {
		if s.unit == unit && !s.sampler {
			return s.sample
		}
	}
	return gputypes.TextureSampleTypeFloat
}

func (d *Device) buildLayout(p *wgProgram, group bool) error {
	var groups []hal.BindGroupLayout
	if group {
		var err error
		p.uniformBuf, err = d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: p.label + "_uniforms",
			Size:  uint64(len(p.block.data)),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create uniform buffer: %w", err)
		}
		entries := []gputypes.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		}}
		for _, s := range p.slots {
			e := gputypes.BindGroupLayoutEntry{Binding: s.binding(), Visibility: s.visibility}
			if s.sampler {
				kind := gputypes.SamplerBindingTypeFiltering
				if p.sampleType(s.unit) != gputypes.TextureSampleTypeFloat {
					kind = gputypes.SamplerBindingTypeNonFiltering
				}
				e.Sampler = &gputypes.SamplerBindingLayout{Type: kind}
			} else {
				e.Texture = &gputypes.TextureBindingLayout{SampleType: s.sample, ViewDimension: s.dim}
			}
			entries = append(entries, e)
		}
		p.groupLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   p.label + "_uniform_layout",
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("create uniform layout: %w", err)
		}
		if len(p.slots) == 0 {
			p.bindGroup, err = d.device.CreateBindGroup(&hal.BindGroupDescriptor{
				Label:   p.label + "_uniforms",
				Layout:  p.groupLayout,
				Entries: []gputypes.BindGroupEntry{p.uniformEntry()},
			})
			if err != nil {
				return fmt.Errorf("create uniform bind group: %w", err)
			}
		}
		groups = append(groups, p.groupLayout)
	}
	layout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            p.label + "_layout",
		BindGroupLayouts: groups,
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	p.layout = layout
	return nil
}

func (p *wgProgram) uniformEntry() gputypes.BindGroupEntry {
	return gputypes.BindGroupEntry{
		Binding: 0,
		Resource: gputypes.BufferBinding{
			Buffer: p.uniformBuf.NativeHandle(),
			Size:   uint64(len(p.block.data)),
		},
	}
}

// textureGroup builds the bind group of one draw: the uniform block plus the
// texture and sampler of every unit the program declares. Every declared
// unit must be bound with a texture of the declared dimension.
func (d *Device) textureGroup(p *wgProgram, call *gpucore.DrawCall) (hal.BindGroup, error) {
	bound := make(map[int]*wgTexture, len(call.Textures))
	for _, b := range call.Textures {
		bound[b.Unit] = d.textures[b.Texture]
	}
	entries := []gputypes.BindGroupEntry{p.uniformEntry()}
	for _, s := range p.slots {
		t := bound[s.unit]
		if t == nil {
			return nil, errors.Wrapf(gpucore.ErrUnknownResource, "no texture on unit %d", s.unit)
		}
		if s.sampler {
			smp, err := d.sampler(p.sampleType(s.unit) == gputypes.TextureSampleTypeFloat)
			if err != nil {
				return nil, err
			}
			entries = append(entries, gputypes.BindGroupEntry{
				Binding:  s.binding(),
				Resource: gputypes.SamplerBinding{Sampler: smp.NativeHandle()},
			})
			continue
		}
		if got := viewDimension(t.desc.Dimension); got != s.dim {
			return nil, errors.Wrapf(gpucore.ErrUnsupported, "unit %d: %v texture, shader samples %v", s.unit, got, s.dim)
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  s.binding(),
			Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()},
		})
	}
	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   p.label + "_textures",
		Layout:  p.groupLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create texture bind group")
	}
	return group, nil
}

// sampler returns the shared clamp-to-edge sampler, linear or nearest.
func (d *Device) sampler(linear bool) (hal.Sampler, error) {
	smp, filter := &d.nearest, gputypes.FilterModeNearest
	if linear {
		smp, filter = &d.linear, gputypes.FilterModeLinear
	}
	if *smp != nil {
		return *smp, nil
	}
	created, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "cgs_sampler_" + filter.String(),
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: filter,
		LodMaxClamp:  32,
	})
	if err != nil {
		return nil, errors.Wrap(err, "wgpu: create sampler")
	}
	*smp = created
	return created, nil
}

// pipeline returns the render pipeline of p for a vertex layout and
// topology, creating it on first use.
func (d *Device) pipeline(p *wgProgram, layout gputypes.VertexBufferLayout, topo gputypes.PrimitiveTopology) (hal.RenderPipeline, error) {
	key := fmt.Sprint(topo, layout.ArrayStride, layout.Attributes)
	if rp, ok := p.pipelines[key]; ok {
		return rp, nil
	}
	blend := gputypes.BlendStatePremultiplied()
	rp, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  p.label,
		Layout: p.layout,
		Vertex: hal.VertexState{
			Module:     p.vertex.module,
			EntryPoint: p.vertex.entry,
			Buffers:    []gputypes.VertexBufferLayout{layout},
		},
		Fragment: &hal.FragmentState{
			Module:     p.fragment.module,
			EntryPoint: p.fragment.entry,
			Targets: []gputypes.ColorTargetState{{
				Format:    targetFormat,
				Blend:     &blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: topo,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "wgpu: program %q pipeline", p.label)
	}
	p.pipelines[key] = rp
	return rp, nil
}

// DestroyProgram releases a program and its pipelines.
func (d *Device) DestroyProgram(id gpucore.ProgramID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.programs[id]; ok {
		d.destroyProgram(p)
		delete(d.programs, id)
	}
}

func (d *Device) destroyProgram(p *wgProgram) {
	for key, rp := range p.pipelines {
		d.device.DestroyRenderPipeline(rp)
		delete(p.pipelines, key)
	}
	if p.layout != nil {
		d.device.DestroyPipelineLayout(p.layout)
	}
	if p.bindGroup != nil {
		d.device.DestroyBindGroup(p.bindGroup)
	}
	if p.groupLayout != nil {
		d.device.DestroyBindGroupLayout(p.groupLayout)
	}
	if p.uniformBuf != nil {
		d.device.DestroyBuffer(p.uniformBuf)
	}
}

func (d *Device) setUniform(program gpucore.ProgramID, set func(*uniformBlock) bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.programs[program]; ok && set(p.block) {
		p.dirty = true
	}
}

// SetUniformInt stores v as a float in the x component of its slot.
func (d *Device) SetUniformInt(program gpucore.ProgramID, name string, v int32) {
	d.setUniform(program, func(u *uniformBlock) bool { return u.setScalar(name, float32(v)) })
}

// SetUniformFloat stores v in the x component of its slot.
func (d *Device) SetUniformFloat(program gpucore.ProgramID, name string, v float32) {
	d.setUniform(program, func(u *uniformBlock) bool { return u.setScalar(name, v) })
}

// SetUniformVec4 stores v in its slot.
func (d *Device) SetUniformVec4(program gpucore.ProgramID, name string, v mgl32.Vec4) {
	d.setUniform(program, func(u *uniformBlock) bool { return u.setVec4(name, v) })
}

// SetUniformMat4 stores the columns of m from its slot on.
func (d *Device) SetUniformMat4(program gpucore.ProgramID, name string, m mgl32.Mat4) {
	d.setUniform(program, func(u *uniformBlock) bool { return u.setMat4(name, m) })
}

// === Frames ===

func (d *Device) resizeTarget(width, height int) error {
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "cgs_backbuffer",
		Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        targetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return errors.Wrap(err, "wgpu: create render target")
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           "cgs_backbuffer_view",
		Format:          targetFormat,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return errors.Wrap(err, "wgpu: create render target view")
	}
	d.destroyTarget()
	d.target, d.targetView = tex, view
	d.width, d.height = width, height
	return nil
}

func (d *Device) destroyTarget() {
	if d.targetView != nil {
		d.device.DestroyTextureView(d.targetView)
		d.targetView = nil
	}
	if d.target != nil {
		d.device.DestroyTexture(d.target)
		d.target = nil
	}
}

// SetViewport resizes the offscreen target.
func (d *Device) SetViewport(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	width, height = max(width, 1), max(height, 1)
	if width == d.width && height == d.height {
		return
	}
	if err := d.resizeTarget(width, height); err != nil {
		slogger().Error("wgpu: resize render target", "width", width, "height", height, "err", err)
	}
}

// Viewport returns the offscreen target size.
func (d *Device) Viewport() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

// RenderTarget returns the offscreen color target for presentation.
func (d *Device) RenderTarget() (hal.Texture, hal.TextureView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target, d.targetView
}

// BeginFrame starts a frame. The target is cleared by the first pass.
func (d *Device) BeginFrame(clear mgl32.Vec4) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFrame {
		return errors.New("wgpu: frame already in progress")
	}
	d.reclaim()
	d.inFrame, d.cleared = true, false
	d.clear = gputypes.Color{R: float64(clear[0]), G: float64(clear[1]), B: float64(clear[2]), A: float64(clear[3])}
	return nil
}

// Draw records and submits one render pass for the call.
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
	units := d.Capabilities().MaxTextureUnits
	for _, b := range call.Textures {
		if b.Unit < 0 || b.Unit >= units {
			return errors.Wrapf(gpucore.ErrUnsupported, "draw %q: texture unit %d of %d", call.Label, b.Unit, units)
		}
		if t, ok := d.textures[b.Texture]; !ok || t.tex == nil {
			return errors.Wrapf(gpucore.ErrUnknownResource, "draw %q: texture %d on unit %d", call.Label, b.Texture, b.Unit)
		}
	}
	if vb.buf == nil {
		return nil
	}

	var ib *wgBuffer
	if call.Indices != gpucore.InvalidID {
		if ib, ok = d.buffers[call.Indices]; !ok {
			return errors.Wrapf(gpucore.ErrUnknownResource, "draw %q: index buffer %d", call.Label, call.Indices)
		}
	}

	layout, err := vertexLayout(call)
	if err != nil {
		return errors.Wrapf(err, "draw %q", call.Label)
	}
	rpl, err := d.pipeline(p, layout, topology(call.Primitive))
	if err != nil {
		return err
	}

	indexBuf, count, indexed := hal.Buffer(nil), call.VertexCount, false
	var res transient
	switch {
	case needsExpansion(call.Primitive):
		var src []uint32
		if ib != nil {
			src, count = ib.indices[:min(call.IndexCount, len(ib.indices))], min(call.IndexCount, len(ib.indices))
		}
		expanded := expandIndices(call.Primitive, src, count)
		if len(expanded) == 0 {
			return nil
		}
		data := make([]byte, 4*len(expanded))
		for i, v := range expanded {
			binary.LittleEndian.PutUint32(data[4*i:], v)
		}
		tmp, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: call.Label + "_expanded",
			Size:  uint64(len(data)),
			Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return errors.Wrapf(err, "draw %q: expanded indices", call.Label)
		}
		if err := d.queue.WriteBuffer(tmp, 0, data); err != nil {
			d.device.DestroyBuffer(tmp)
			return errors.Wrapf(err, "draw %q: expanded indices", call.Label)
		}
		indexBuf, count, indexed = tmp, len(expanded), true
		res.buffers = append(res.buffers, tmp)
	case ib != nil:
		if ib.buf == nil {
			return nil
		}
		indexBuf, count, indexed = ib.buf, call.IndexCount, true
	}

	if p.dirty && p.uniformBuf != nil {
		if err := d.queue.WriteBuffer(p.uniformBuf, 0, p.block.data); err != nil {
			res.free(d.device)
			return errors.Wrapf(err, "draw %q: uniforms", call.Label)
		}
		p.dirty = false
	}

	group := p.bindGroup
	if len(p.slots) > 0 {
		if group, err = d.textureGroup(p, call); err != nil {
			res.free(d.device)
			return errors.Wrapf(err, "draw %q", call.Label)
		}
		res.groups = append(res.groups, group)
	}

	return d.renderPass(call.Label, func(rp hal.RenderPassEncoder) {
		rp.SetPipeline(rpl)
		if group != nil {
			rp.SetBindGroup(0, group, nil)
		}
		rp.SetViewport(0, 0, float32(d.width), float32(d.height), 0, 1)
		rp.SetVertexBuffer(0, vb.buf, 0)
		if indexed {
			rp.SetIndexBuffer(indexBuf, gputypes.IndexFormatUint32, 0)
			rp.DrawIndexed(uint32(count), 1, 0, 0, 0)
		} else {
			rp.Draw(uint32(count), 1, 0, 0)
		}
	}, res)
}

// renderPass encodes one pass over the target and submits it. The first
// pass of a frame clears.
func (d *Device) renderPass(label string, record func(hal.RenderPassEncoder), res transient) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		res.free(d.device)
		return errors.Wrap(err, "wgpu: create command encoder")
	}
	if err := encoder.BeginEncoding(label); err != nil {
		res.free(d.device)
		return errors.Wrap(err, "wgpu: begin encoding")
	}
	load := gputypes.LoadOpLoad
	if !d.cleared {
		load = gputypes.LoadOpClear
		d.cleared = true
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: label,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       d.targetView,
			LoadOp:     load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: d.clear,
		}},
	})
	if record != nil {
		record(rp)
	}
	rp.End()
	return d.submit(encoder, res)
}

func (d *Device) submit(encoder hal.CommandEncoder, res transient) error {
	cmd, err := encoder.EndEncoding()
	if err != nil {
		res.free(d.device)
		return errors.Wrap(err, "wgpu: end encoding")
	}
	index, err := d.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		d.device.FreeCommandBuffer(cmd)
		res.free(d.device)
		return errors.Wrap(err, "wgpu: submit")
	}
	d.pending = append(d.pending, submission{index: index, cmd: cmd, res: res})
	return nil
}

// reclaim frees completed submissions.
func (d *Device) reclaim() {
	done := d.queue.PollCompleted()
	kept := d.pending[:0]
	for _, s := range d.pending {
		if s.index > done {
			kept = append(kept, s)
			continue
		}
		d.device.FreeCommandBuffer(s.cmd)
		s.res.free(d.device)
	}
	clear(d.pending[len(kept):])
	d.pending = kept
}

// CopyBackbuffer copies the target into dst on the GPU.
func (d *Device) CopyBackbuffer(dst gpucore.TextureID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[dst]
	if !ok {
		return errors.Wrapf(gpucore.ErrUnknownResource, "texture %d", dst)
	}
	if d.inFrame && !d.cleared {
		if err := d.renderPass("cgs_clear", nil, transient{}); err != nil {
			return err
		}
	}
	want := gpucore.TextureDescriptor{
		Label:     t.label,
		Dimension: gputypes.TextureDimension2D,
		Format:    format.RGBA8Unorm,
		Size:      [3]int{d.width, d.height, 1},
		MipLevels: 1,
	}
	if t.tex == nil || t.desc != want {
		if err := d.allocate(dst, &want); err != nil {
			return err
		}
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "cgs_copy_backbuffer"})
	if err != nil {
		return errors.Wrap(err, "wgpu: create command encoder")
	}
	if err := encoder.BeginEncoding("cgs_copy_backbuffer"); err != nil {
		return errors.Wrap(err, "wgpu: begin encoding")
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: d.target,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToTexture(d.target, t.tex, []hal.TextureCopy{{
		SrcBase: hal.ImageCopyTexture{Texture: d.target, Aspect: gputypes.TextureAspectAll},
		DstBase: hal.ImageCopyTexture{Texture: t.tex, Aspect: gputypes.TextureAspectAll},
		Size:    hal.Extent3D{Width: uint32(d.width), Height: uint32(d.height), DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: d.target,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	t.level0 = nil
	return d.submit(encoder, transient{})
}

// EndFrame finishes the frame. A frame without draws still clears.
func (d *Device) EndFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.inFrame {
		return gpucore.ErrFrame
	}
	var err error
	if !d.cleared {
		err = d.renderPass("cgs_clear", nil, transient{})
	}
	d.inFrame = false
	d.reclaim()
	return err
}

// Destroy waits for the GPU and releases everything the device created.
// A device from NewFromProvider leaves the shared HAL device alive.
func (d *Device) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return
	}
	if err := d.device.WaitIdle(); err != nil {
		slogger().Warn("wgpu: wait idle", "err", err)
	}
	for _, s := range d.pending {
		d.device.FreeCommandBuffer(s.cmd)
		s.res.free(d.device)
	}
	d.pending = nil
	for id, p := range d.programs {
		d.destroyProgram(p)
		delete(d.programs, id)
	}
	for id, s := range d.shaders {
		d.device.DestroyShaderModule(s.module)
		delete(d.shaders, id)
	}
	for id, b := range d.buffers {
		if b.buf != nil {
			d.device.DestroyBuffer(b.buf)
		}
		delete(d.buffers, id)
	}
	for id, t := range d.textures {
		t.release(d.device)
		delete(d.textures, id)
	}
	for _, smp := range []hal.Sampler{d.linear, d.nearest} {
		if smp != nil {
			d.device.DestroySampler(smp)
		}
	}
	d.linear, d.nearest = nil, nil
	d.destroyTarget()
	if !d.external {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device, d.queue, d.instance = nil, nil, nil
}
