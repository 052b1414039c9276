// Package gpucore is the seam between the cgs resource layer and a GPU API.
//
// It defines the [Device] interface, which abstracts over the backends in
// backend/: OpenGL through go-gl, WebGPU through gogpu/wgpu/hal, and a CPU
// software device used headless and in tests.
//
// # Architecture
//
//	               +-----------------+
//	               |       cgs       |
//	               | textures, meshes|
//	               +--------+--------+
//	                        |
//	               +--------v--------+
//	               |     gpucore     |
//	               |     Device      |
//	               +--------+--------+
//	                        |
//	     +------------------+------------------+
//	     |                  |                  |
//	+----v-----+     +------v------+     +-----v-----+
//	|  gl      |     |   wgpu      |     | software  |
//	| (go-gl)  |     | (hal.Device)|     |  (CPU)    |
//	+----------+     +-------------+     +-----------+
//
// # Resource Management
//
// GPU resources are referred to by opaque IDs ([TextureID], [BufferID],
// [ShaderID], [ProgramID]). Each device keeps the mapping between IDs and its
// own handles. [InvalidID] is never issued.
//
// Texture storage is explicit: a texture ID is created empty, storage is
// allocated with [Device.AllocateTexture], and content is written with
// [Device.WriteTexture]. A content-only rewrite can be preceded by
// [Device.InvalidateTexture] so the driver need not preserve old texels.
//
// # Threading
//
// Devices are used from the thread that owns the GPU context and are not
// safe for concurrent use.
package gpucore
