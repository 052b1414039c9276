// Package cgs is a thin resource layer over a GPU device for interactive
// renderers.
//
// # Overview
//
// A System owns a gpucore.Device and everything created through it:
//
//   - Textures (1D, 2D, 3D) with a CPU-side mirror. Texels are written
//     through typed Holes and uploaded lazily, before the next frame.
//   - Meshes with an interleaved vertex stream, written one attribute at a
//     time through a typed cursor, and an optional index list.
//   - Links between mesh texture units and textures, held in a registry so
//     neither side keeps a pointer to the other.
//   - Shaders, loaded by name from search paths or the built-in set.
//   - Stages, ordered buckets of draws drained every frame.
//
// # Quick Start
//
//	sys, err := cgs.New(cgs.WithViewport(640, 480))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sys.Close()
//
//	tex, _ := sys.CreateTexture(gputypes.TextureDimension2D, format.RGBA8Unorm,
//	    [3]int{4, 4, 1}, cgs.TextureOptions{})
//	tex.Hole(0, 0, 0, 0).SetUnorm8(1.0)
//
//	mesh, _ := sys.CreateMesh(gpucore.Triangles)
//	mesh.DeclareAttribute(cgs.AttribPosition, gpucore.TypeFloat, 3, false, false)
//	mesh.GenerateStream(3)
//	mesh.Open(cgs.AttribPosition)
//	for _, v := range []float32{-1, -1, 0, 1, -1, 0, 0, 1, 0} {
//	    mesh.WriteFloat32(v)
//	}
//	mesh.Close()
//	mesh.Attach(0, tex)
//
//	sys.Stage(0).Add(0, mesh, false)
//	sys.Render()
//
// # Over-allocation
//
// A texture created with TextureOptions.OverAllocate may reserve more texels
// per axis than it uses. Rows and sheets of the mirror are laid out for the
// reserved extent, so Resize within it keeps the memory and the GPU storage.
// Shaders scale their coordinates by the texture's range, pushed to every
// linked mesh as the vec4 uniform textureUnitRange<unit>.
//
// # Threading
//
// A System is not safe for concurrent use. Call it from the goroutine that
// owns the device's GPU context. SetLogger and Logger are the exception.
package cgs
