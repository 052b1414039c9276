package gpucore

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/WilliamKappler/caelumGraphicsSystem/format"
)

// Device abstracts over the GPU backend implementations.
//
// Resource lifecycle:
//   - Resources are created via Create*/Compile*/Link* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destroying an unknown or already destroyed ID is a no-op
//   - IDs become invalid after destruction and are not reused
type Device interface {
	// === Identity & Capabilities ===

	// Name returns the backend name, e.g. "gl" or "wgpu".
	Name() string

	// Capabilities reports what the device supports.
	Capabilities() Capabilities

	// PreferredOrdering returns the channel order the device prefers for
	// data of format f. Only swizzleable formats may report
	// format.OrderingModified.
	PreferredOrdering(f format.Format) format.Ordering

	// === Textures ===

	// CreateTexture reserves a texture ID without storage.
	CreateTexture(label string) (TextureID, error)

	// AllocateTexture (re)creates immutable storage for the texture. Prior
	// storage and content are discarded.
	AllocateTexture(id TextureID, desc *TextureDescriptor) error

	// InvalidateTexture tells the device the texture's content is about to
	// be fully rewritten. Every level is invalidated.
	InvalidateTexture(id TextureID)

	// WriteTexture uploads level 0 from the texture origin.
	WriteTexture(id TextureID, w *TextureWrite) error

	// GenerateMipmaps rebuilds levels 1 and up from level 0.
	GenerateMipmaps(id TextureID) error

	// DestroyTexture releases the texture.
	DestroyTexture(id TextureID)

	// === Buffers ===

	// CreateBuffer creates an empty buffer.
	CreateBuffer(kind BufferKind, label string) (BufferID, error)

	// WriteBuffer replaces the buffer content, resizing it as needed.
	WriteBuffer(id BufferID, data []byte) error

	// DestroyBuffer releases the buffer.
	DestroyBuffer(id BufferID)

	// === Shaders & Programs ===

	// CompileShader compiles source for one stage. On failure the error
	// wraps ErrCompile and carries the compiler log.
	CompileShader(stage ShaderStage, source, label string) (ShaderID, error)

	// DestroyShader releases a compiled stage.
	DestroyShader(id ShaderID)

	// LinkProgram links compiled stages. On failure the error wraps ErrLink.
	LinkProgram(desc *ProgramDescriptor) (ProgramID, error)

	// DestroyProgram releases a program.
	DestroyProgram(id ProgramID)

	// SetUniformInt sets an integer (or sampler) uniform. Unknown names are
	// ignored.
	SetUniformInt(program ProgramID, name string, v int32)

	// SetUniformFloat sets a float uniform.
	SetUniformFloat(program ProgramID, name string, v float32)

	// SetUniformVec4 sets a vec4 uniform.
	SetUniformVec4(program ProgramID, name string, v mgl32.Vec4)

	// SetUniformMat4 sets a mat4 uniform.
	SetUniformMat4(program ProgramID, name string, m mgl32.Mat4)

	// === Frames ===

	// SetViewport sets the size of the render target.
	SetViewport(width, height int)

	// Viewport returns the size of the render target.
	Viewport() (width, height int)

	// BeginFrame starts a frame and clears the target to clear.
	BeginFrame(clear mgl32.Vec4) error

	// Draw issues one draw call into the current frame.
	Draw(call *DrawCall) error

	// CopyBackbuffer copies the current render target into dst, (re)creating
	// dst storage at viewport size as RGBA8Unorm.
	CopyBackbuffer(dst TextureID) error

	// EndFrame finishes the frame and submits it.
	EndFrame() error

	// Destroy releases every resource the device owns.
	Destroy()
}
