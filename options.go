package cgs

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
)

// Defaults used by New.
const (
	// DefaultShaderPath is searched for shader files unless WithShaderPaths
	// replaces it.
	DefaultShaderPath = "glsl/"

	// DefaultShaderName names the shaders meshes fall back to.
	DefaultShaderName = "default"

	// DefaultBackbufferUnit is the texture unit stages copy the backbuffer
	// into.
	DefaultBackbufferUnit = 7
)

// Option configures a System during creation.
//
// Example:
//
//	// Headless system on the CPU device
//	sys, err := cgs.New(cgs.WithBackend("software"))
//
//	// Explicit device (dependency injection)
//	sys, err := cgs.New(cgs.WithDevice(dev), cgs.WithViewport(1280, 720))
type Option func(*options)

// options holds optional configuration for System creation.
type options struct {
	device         gpucore.Device
	backend        string
	shaderPaths    []string
	backbufferUnit int
	width, height  int
	boundsChecks   bool
	budget         uint64
	logger         *slog.Logger
	clear          mgl32.Vec4
}

// defaultOptions returns the default system options.
func defaultOptions() options {
	return options{
		shaderPaths:    []string{DefaultShaderPath},
		backbufferUnit: DefaultBackbufferUnit,
		boundsChecks:   true,
		budget:         DefaultMemoryBudget,
		clear:          mgl32.Vec4{0, 0, 0, 1},
	}
}

// WithDevice uses d instead of a registered backend. The System takes
// ownership and destroys d on Close.
func WithDevice(d gpucore.Device) Option {
	return func(o *options) {
		o.device = d
	}
}

// WithBackend selects a registered backend by name, e.g. "gl".
func WithBackend(name string) Option {
	return func(o *options) {
		o.backend = name
	}
}

// WithShaderPaths replaces the shader search paths. Paths are searched in
// order; embedded shaders are tried last.
func WithShaderPaths(paths ...string) Option {
	return func(o *options) {
		o.shaderPaths = append([]string(nil), paths...)
	}
}

// WithBackbufferUnit sets the texture unit new stages copy the backbuffer
// into.
func WithBackbufferUnit(unit int) Option {
	return func(o *options) {
		o.backbufferUnit = unit
	}
}

// WithViewport sets the initial render target size.
func WithViewport(width, height int) Option {
	return func(o *options) {
		o.width, o.height = width, height
	}
}

// WithBoundsChecks toggles texel address checks. With checks off, out of
// range access is undefined: it may hit slack memory or panic.
func WithBoundsChecks(enabled bool) Option {
	return func(o *options) {
		o.boundsChecks = enabled
	}
}

// WithMemoryBudget sets the byte budget MemoryStats reports against.
func WithMemoryBudget(bytes uint64) Option {
	return func(o *options) {
		o.budget = bytes
	}
}

// WithLogger gives the System its own logger instead of the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClearColor sets the color the render target is cleared to each frame.
func WithClearColor(c mgl32.Vec4) Option {
	return func(o *options) {
		o.clear = c
	}
}

// TextureOptions configures CreateTexture.
type TextureOptions struct {
	// Static marks the texture read-only: Resize fails and writes after the
	// first upload are reported.
	Static bool

	// OverAllocate enables capacity beyond the used size.
	OverAllocate bool

	// Hint is the requested capacity per axis. 0 means no extra capacity.
	// Ignored unless OverAllocate is set.
	Hint [3]int

	// MipLevels is the number of levels beyond level 0.
	MipLevels int

	// Label is an optional debug label.
	Label string
}
