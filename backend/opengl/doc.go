// Package opengl implements gpucore.Device on OpenGL 4.3 core through
// github.com/go-gl/gl.
//
// The device does not create a context. The application makes one current
// (for example with SDL2 or GLFW) and then either calls New directly or
// imports this package for its side effect and lets backend.Default pick it:
//
//	import _ "github.com/WilliamKappler/caelumGraphicsSystem/backend/opengl"
//
// Every method must be called on the thread that owns the context.
//
// Rendering goes to an offscreen framebuffer sized by SetViewport. EndFrame
// blits it to the default framebuffer; swapping is left to the window
// toolkit. The offscreen color texture is what CopyBackbuffer reads.
package opengl
