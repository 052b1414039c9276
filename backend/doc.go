// Package backend provides a pluggable GPU device abstraction.
//
// The backend package lets the cgs library run on several GPU APIs. Each
// backend package registers a device factory from its init() function and
// devices are selected at runtime.
//
// # Backend Registration
//
// The software backend is registered on import of this package. GPU
// backends register when imported:
//
//	import _ "github.com/WilliamKappler/caelumGraphicsSystem/backend/opengl"
//	import _ "github.com/WilliamKappler/caelumGraphicsSystem/backend/wgpu"
//
// # Backend Selection
//
// Use Default() to get a device from the best available backend, or Get()
// to request a specific backend by name:
//
//	// Get the default (best available) device
//	d := backend.Default()
//
//	// Or request a specific backend
//	d, err := backend.Get("wgpu")
//
// Default skips backends whose factory fails, so importing backend/opengl
// without a current GL context falls through to the next backend.
//
// # Available Backends
//
// - "gl": OpenGL 4.3 core via go-gl (needs a current context)
// - "wgpu": WebGPU HAL via gogpu/wgpu
// - "software": CPU device, no rasterization (always available)
package backend
