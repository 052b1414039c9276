package cgs

import (
	"fmt"

	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
)

// Update uploads the mirror when its content changed. Render calls it for
// every texture before drawing.
//
// GPU storage is (re)created only when the allocation changed; otherwise the
// previous content is invalidated and overwritten. The whole allocated
// extent is uploaded, mip levels are regenerated and the range uniforms of
// every linked mesh are refreshed.
func (t *Texture) Update() error {
	if t.destroyed {
		return ErrTextureDestroyed
	}
	if !t.contentModified || t.buf == nil {
		return nil
	}
	s := t.sys
	if t.static && t.uploaded {
		s.logger().Warn("cgs: static texture modified after upload", "texture", t.label)
	}

	dev := s.device
	ext := t.Extent()
	if t.gpu == gpucore.InvalidID {
		id, err := dev.CreateTexture(t.label)
		if err != nil {
			return fmt.Errorf("cgs: texture %s: %w", t.label, err)
		}
		t.gpu = id
		t.storageModified = true
	}

	if t.storageModified {
		desc := gpucore.TextureDescriptor{
			Label:     t.label,
			Dimension: t.dim,
			Format:    t.format,
			Ordering:  t.ordering,
			Size:      ext,
			MipLevels: t.mips + 1,
		}
		if err := dev.AllocateTexture(t.gpu, &desc); err != nil {
			return fmt.Errorf("cgs: texture %s: %w", t.label, err)
		}
		t.storageModified = false
		t.gpuSize = storageSize(&desc)
		s.logger().Debug("cgs: texture storage allocated", "texture", t.label, "extent", ext, "levels", desc.MipLevels)
	} else {
		// Every level is invalidated: level 0 is rewritten below and the
		// rest are regenerated from it.
		dev.InvalidateTexture(t.gpu)
	}

	err := dev.WriteTexture(t.gpu, &gpucore.TextureWrite{
		Size:      ext,
		RowSize:   t.rowSize,
		SheetSize: t.sheetSize,
		Data:      t.buf,
	})
	if err != nil {
		return fmt.Errorf("cgs: texture %s: %w", t.label, err)
	}
	if err := dev.GenerateMipmaps(t.gpu); err != nil {
		return fmt.Errorf("cgs: texture %s: %w", t.label, err)
	}

	t.contentModified = false
	t.uploaded = true
	s.pushTextureRange(t)
	return nil
}

// storageSize returns the bytes of every level of desc.
func storageSize(desc *gpucore.TextureDescriptor) uint64 {
	n := axes(desc.Dimension)
	var total uint64
	for l := 0; l < desc.MipLevels; l++ {
		texels := uint64(1)
		for i := 0; i < n; i++ {
			texels *= uint64(max(1, desc.Size[i]>>l))
		}
		total += texels * uint64(desc.Format.CellSize())
	}
	return total
}
