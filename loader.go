package cgs

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"runtime"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/WilliamKappler/caelumGraphicsSystem/format"
)

// LoadTexture loads an image file into a static 2D texture with mipLevels
// levels beyond level 0. Textures are cached by path: loading the same path
// again returns the texture loaded first.
//
// Gray images load as R8Unorm, opaque images as RGB8Unorm and the rest as
// RGBA8Unorm. Row 0 of the texture is the bottom row of the image.
func (s *System) LoadTexture(path string, mipLevels int) (*Texture, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if t, ok := s.files[path]; ok {
		return t, nil
	}
	img, err := decodeFile(path)
	if err != nil {
		s.logger().Error("cgs: image load failed", "path", path, "err", err)
		return nil, err
	}
	return s.adoptImage(path, img, mipLevels)
}

// LoadTextures loads several files, decoding them in parallel. Textures
// are created in the order of paths. On error no texture is created for
// any path that was not already cached.
func (s *System) LoadTextures(mipLevels int, paths ...string) ([]*Texture, error) {
	if s.closed {
		return nil, ErrClosed
	}
	imgs := make([]image.Image, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range paths {
		if _, ok := s.files[p]; ok {
			continue
		}
		g.Go(func() error {
			img, err := decodeFile(p)
			if err != nil {
				return err
			}
			imgs[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger().Error("cgs: image load failed", "err", err)
		return nil, err
	}

	return s.adoptImages(paths, imgs, mipLevels)
}

// adoptImages creates the textures of decoded images in path order. If one
// fails, the textures created before it are destroyed again.
func (s *System) adoptImages(paths []string, imgs []image.Image, mipLevels int) ([]*Texture, error) {
	out := make([]*Texture, len(paths))
	var created []*Texture
	for i, p := range paths {
		if t, ok := s.files[p]; ok {
			out[i] = t
			continue
		}
		t, err := s.adoptImage(p, imgs[i], mipLevels)
		if err != nil {
			for _, c := range created {
				c.Destroy()
			}
			s.logger().Error("cgs: image load failed", "path", p, "err", err)
			return nil, err
		}
		created = append(created, t)
		out[i] = t
	}
	return out, nil
}

// TextureFromImage copies img into a new static 2D texture.
func (s *System) TextureFromImage(img image.Image, label string, mipLevels int) (*Texture, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return s.createFromImage(img, label, mipLevels)
}

func (s *System) adoptImage(path string, img image.Image, mipLevels int) (*Texture, error) {
	t, err := s.createFromImage(img, path, mipLevels)
	if err != nil {
		return nil, fmt.Errorf("cgs: %s: %w", path, err)
	}
	t.path = path
	s.files[path] = t
	s.logger().Debug("cgs: image loaded", "path", path, "format", t.format.String(), "size", t.used)
	return t, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cgs: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("cgs: %s: %w", path, err)
	}
	return img, nil
}

// imageDepth returns the bits per pixel an image loads with.
func imageDepth(img image.Image) int {
	switch m := img.(type) {
	case *image.Gray, *image.Gray16:
		return 8
	case *image.YCbCr, *image.CMYK:
		return 24
	case interface{ Opaque() bool }:
		if m.Opaque() {
			return 24
		}
	}
	return 32
}

// createFromImage copies img into a static 2D texture: rows flipped so the
// last image row is texture row 0, channels placed through the texture's
// offset table so BGR(A) ordering is honored.
func (s *System) createFromImage(img image.Image, label string, mipLevels int) (*Texture, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}
	f, err := format.ForDepth(imageDepth(img))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedImage, err)
	}
	t, err := s.CreateTexture(gputypes.TextureDimension2D, f, [3]int{w, h, 1}, TextureOptions{
		Static:    true,
		MipLevels: mipLevels,
		Label:     label,
	})
	if err != nil {
		return nil, err
	}

	channels := f.Channels()
	var src []byte
	var stride int
	if channels == 1 {
		g := image.NewGray(image.Rect(0, 0, w, h))
		draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
		src, stride = g.Pix, g.Stride
	} else {
		n := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.Draw(n, n.Bounds(), img, b.Min, draw.Src)
		src, stride = n.Pix, n.Stride
	}
	step := 1
	if channels > 1 {
		step = 4
	}
	for y := 0; y < h; y++ {
		row := t.rowSize * (h - 1 - y)
		for x := 0; x < w; x++ {
			px := src[y*stride+x*step:]
			base := row + t.cellSize*x
			for c := 0; c < channels; c++ {
				t.buf[base+t.offsets[c]] = px[c]
			}
		}
	}
	t.contentModified = true
	return t, nil
}

// Image returns a copy of the used region of an 8-bit UNORM texture as an
// image, undoing the row flip and channel ordering of LoadTexture.
func (t *Texture) Image() (image.Image, error) {
	if t.destroyed {
		return nil, ErrTextureDestroyed
	}
	if t.dim != gputypes.TextureDimension2D || t.format.Encoding() != format.Unorm || t.channelSize != 1 {
		return nil, fmt.Errorf("%w: %s texture", ErrUnsupportedImage, t.format)
	}
	w, h := t.used[0], t.used[1]
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	n := t.format.Channels()
	for y := 0; y < h; y++ {
		row := t.rowSize * (h - 1 - y)
		for x := 0; x < w; x++ {
			base := row + t.cellSize*x
			var px [4]uint8
			px[3] = 0xff
			for c := 0; c < n; c++ {
				px[c] = t.buf[base+t.offsets[c]]
			}
			if n == 1 {
				px[1], px[2] = px[0], px[0]
			}
			out.SetNRGBA(x, y, color.NRGBA{R: px[0], G: px[1], B: px[2], A: px[3]})
		}
	}
	return out, nil
}
