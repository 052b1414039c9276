// Package wgpu implements gpucore.Device on the WebGPU hardware abstraction
// layer of github.com/gogpu/wgpu.
//
// Shaders are WGSL. They are parsed and validated with naga before the HAL
// sees them, so compile errors carry naga's diagnostics. Geometry shaders do
// not exist in WebGPU and are reported as gpucore.ErrUnsupported.
//
// Uniforms live in one uniform buffer per program at @group(0) @binding(0).
// The buffer is a struct of vec4 slots in the order the program was linked
// with (gpucore.ProgramDescriptor.Uniforms). Float and int uniforms write
// the x component of their slot; a mat4 takes its slot and the three after
// it. Names that are not slots are ignored.
//
// Line loops and triangle fans are drawn as lists with indices built on the
// CPU. Three channel textures are stored with an opaque alpha channel.
//
// The device renders into an offscreen RGBA8 target. RenderTarget exposes
// it for presentation.
//
// Three ways to get a device:
//
//	d, err := wgpu.New()                 // best HAL backend registered
//	d, err := wgpu.Open(noop.API{})      // a specific HAL backend
//	d, err := wgpu.NewFromProvider(app)  // share a gogpu application's device
//
// New needs HAL backends to be registered, usually by importing
// github.com/gogpu/wgpu/hal/allbackends.
package wgpu
