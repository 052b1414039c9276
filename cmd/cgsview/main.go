// Command cgsview shows a texture on a quad through the OpenGL backend.
//
// Without -texture a generated checkerboard is shown, written texel by texel
// through the CPU mirror.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/veandco/go-sdl2/sdl"

	cgs "github.com/WilliamKappler/caelumGraphicsSystem"
	"github.com/WilliamKappler/caelumGraphicsSystem/backend"
	_ "github.com/WilliamKappler/caelumGraphicsSystem/backend/opengl"
	"github.com/WilliamKappler/caelumGraphicsSystem/format"
	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
)

func init() {
	// SDL and GL calls must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	var (
		width   = flag.Int("width", 800, "window width")
		height  = flag.Int("height", 600, "window height")
		texture = flag.String("texture", "", "image file to show")
		mips    = flag.Int("mips", 4, "mip levels")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		cgs.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		log.Fatalf("sdl: %v", err)
	}
	defer sdl.Quit()

	_ = sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 4)
	_ = sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 3)
	_ = sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)
	_ = sdl.GLSetAttribute(sdl.GL_DOUBLEBUFFER, 1)

	window, err := sdl.CreateWindow("cgsview", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(*width), int32(*height), sdl.WINDOW_SHOWN|sdl.WINDOW_OPENGL|sdl.WINDOW_RESIZABLE)
	if err != nil {
		log.Fatalf("sdl: create window: %v", err)
	}
	defer window.Destroy()

	glctx, err := window.GLCreateContext()
	if err != nil {
		log.Fatalf("sdl: create GL context: %v", err)
	}
	defer sdl.GLDeleteContext(glctx)
	_ = sdl.GLSetSwapInterval(1)

	sys, err := cgs.New(
		cgs.WithBackend(backend.BackendGL),
		cgs.WithViewport(*width, *height),
		cgs.WithClearColor(mgl32.Vec4{0.1, 0.1, 0.15, 1}),
	)
	if err != nil {
		log.Fatalf("cgs: %v", err)
	}
	defer sys.Close()

	tex, err := loadTexture(sys, *texture, *mips)
	if err != nil {
		log.Fatalf("texture: %v", err)
	}
	quad, err := newQuad(sys, tex)
	if err != nil {
		log.Fatalf("mesh: %v", err)
	}

	log.Printf("cgsview: %s on %s, texture %v %v", sys.ID(), sys.Device().Name(), tex.Format(), tex.Size())

	for running := true; running; {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				running = false
			case *sdl.KeyboardEvent:
				if e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_ESCAPE {
					running = false
				}
			case *sdl.WindowEvent:
				if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
					sys.SetViewport(int(e.Data1), int(e.Data2))
				}
			}
		}

		sys.Stage(0).Add(0, quad, false)
		stats, err := sys.Render()
		if err != nil {
			log.Fatalf("render: %v", err)
		}
		window.GLSwap()
		if stats.Frame%600 == 0 {
			log.Printf("frame %d: %d draws in %v; %v", stats.Frame, stats.Draws, stats.Duration, sys.MemoryStats())
		}
	}
}

// loadTexture loads path, or generates a checkerboard when path is empty.
func loadTexture(sys *cgs.System, path string, mips int) (*cgs.Texture, error) {
	if path != "" {
		return sys.LoadTexture(path, mips)
	}
	const size = 64
	tex, err := sys.CreateTexture(gputypes.TextureDimension2D, format.RGBA8Unorm, [3]int{size, size, 1},
		cgs.TextureOptions{MipLevels: mips, Label: "checker"})
	if err != nil {
		return nil, err
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := 0.2
			if (x/8+y/8)%2 == 0 {
				v = 0.9
			}
			for ch := 0; ch < 3; ch++ {
				tex.Hole(x, y, 0, ch).SetUnorm8(v)
			}
			tex.Hole(x, y, 0, 3).SetUnorm8(1)
		}
	}
	return tex, nil
}

// newQuad builds a two triangle quad sampling tex on unit 0.
func newQuad(sys *cgs.System, tex *cgs.Texture) (*cgs.Mesh, error) {
	m, err := sys.CreateMesh(gpucore.TriangleFan)
	if err != nil {
		return nil, err
	}
	m.SetLabel("quad")
	m.DeclareAttribute(cgs.AttribPosition, gpucore.TypeFloat, 3, false, false)
	m.DeclareAttribute(cgs.AttribUVW, gpucore.TypeFloat, 3, false, false)
	m.DeclareAttribute(cgs.AttribColor, gpucore.TypeUnsignedByte, 4, false, true)
	m.GenerateStream(4)

	corners := [4][2]float32{{-0.8, -0.8}, {0.8, -0.8}, {0.8, 0.8}, {-0.8, 0.8}}
	m.Open(cgs.AttribPosition)
	for _, c := range corners {
		m.WriteFloat32(c[0])
		m.WriteFloat32(c[1])
		m.WriteFloat32(0)
	}
	m.Open(cgs.AttribUVW)
	for _, c := range corners {
		m.WriteFloat32((c[0] + 0.8) / 1.6)
		m.WriteFloat32((c[1] + 0.8) / 1.6)
		m.WriteFloat32(0)
	}
	m.Open(cgs.AttribColor)
	for range corners {
		for i := 0; i < 4; i++ {
			m.WriteUint8(255)
		}
	}
	m.Close()

	for _, stage := range []gpucore.ShaderStage{gpucore.StageVertex, gpucore.StageFragment} {
		if err := m.LoadShader(stage, "textured"); err != nil {
			return nil, err
		}
	}
	m.Attach(0, tex)
	return m, nil
}
