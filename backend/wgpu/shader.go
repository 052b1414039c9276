package wgpu

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"

	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
)

// textureSlot is a texture or sampler a shader declares next to its uniform
// block. Unit N takes @group(0) @binding(1+2N) for the texture and
// @binding(2+2N) for its sampler.
type textureSlot struct {
	unit    int
	sampler bool
	dim     gputypes.TextureViewDimension
	sample  gputypes.TextureSampleType
}

// binding returns the binding index of the slot.
func (s textureSlot) binding() uint32 {
	b := uint32(1 + 2*s.unit)
	if s.sampler {
		b++
	}
	return b
}

// compiledShader is what a validated WGSL module exposes to linking.
type compiledShader struct {
	entry string
	slots []textureSlot
}

// compileWGSL parses and validates WGSL source and returns the entry point
// for stage and the texture slots the module declares. The first matching
// entry point wins.
func compileWGSL(stage gpucore.ShaderStage, source string) (compiledShader, error) {
	var want ir.ShaderStage
	switch stage {
	case gpucore.StageVertex:
		want = ir.StageVertex
	case gpucore.StageFragment:
		want = ir.StageFragment
	default:
		return compiledShader{}, errors.Wrapf(gpucore.ErrUnsupported, "wgpu: %s shaders", stage)
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return compiledShader{}, errors.WithDetail(errors.Wrap(gpucore.ErrCompile, "wgpu: parse"), err.Error())
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return compiledShader{}, errors.WithDetail(errors.Wrap(gpucore.ErrCompile, "wgpu: lower"), err.Error())
	}
	problems, err := naga.Validate(module)
	if err != nil {
		return compiledShader{}, errors.WithDetail(errors.Wrap(gpucore.ErrCompile, "wgpu: validate"), err.Error())
	}
	if len(problems) > 0 {
		msgs := make([]string, len(problems))
		for i, p := range problems {
			msgs[i] = p.Error()
		}
		return compiledShader{}, errors.WithDetail(
			errors.Wrapf(gpucore.ErrCompile, "wgpu: %d validation errors", len(problems)),
			strings.Join(msgs, "\n"))
	}

	slots, err := textureSlots(module)
	if err != nil {
		return compiledShader{}, err
	}
	for _, ep := range module.EntryPoints {
		if ep.Stage == want {
			return compiledShader{entry: ep.Name, slots: slots}, nil
		}
	}
	return compiledShader{}, errors.Wrapf(gpucore.ErrCompile, "wgpu: no @%s entry point", stage)
}

// textureSlots collects the textures and samplers bound in group 0 after the
// uniform block.
func textureSlots(module *ir.Module) ([]textureSlot, error) {
	var slots []textureSlot
	for _, g := range module.GlobalVariables {
		if g.Binding == nil || g.Binding.Group != 0 || g.Binding.Binding == 0 {
			continue
		}
		if int(g.Type) >= len(module.Types) {
			continue
		}
		slot := textureSlot{
			unit:    int(g.Binding.Binding-1) / 2,
			sampler: (g.Binding.Binding-1)%2 == 1,
		}
		switch t := module.Types[g.Type].Inner.(type) {
		case ir.ImageType:
			if slot.sampler {
				return nil, errors.Wrapf(gpucore.ErrCompile, "wgpu: %s at binding %d: want a sampler", g.Name, g.Binding.Binding)
			}
			if t.Class != ir.ImageClassSampled || t.Arrayed || t.Multisampled {
				return nil, errors.Wrapf(gpucore.ErrUnsupported, "wgpu: %s: only plain sampled textures bind to units", g.Name)
			}
			switch t.Dim {
			case ir.Dim1D:
				slot.dim = gputypes.TextureViewDimension1D
			case ir.Dim3D:
				slot.dim = gputypes.TextureViewDimension3D
			case ir.Dim2D:
				slot.dim = gputypes.TextureViewDimension2D
			default:
				return nil, errors.Wrapf(gpucore.ErrUnsupported, "wgpu: %s: cube textures", g.Name)
			}
			switch t.SampledKind {
			case ir.ScalarSint:
				slot.sample = gputypes.TextureSampleTypeSint
			case ir.ScalarUint:
				slot.sample = gputypes.TextureSampleTypeUint
			default:
				slot.sample = gputypes.TextureSampleTypeFloat
			}
		case ir.SamplerType:
			if !slot.sampler {
				return nil, errors.Wrapf(gpucore.ErrCompile, "wgpu: %s at binding %d: want a texture", g.Name, g.Binding.Binding)
			}
		default:
			return nil, errors.Wrapf(gpucore.ErrCompile, "wgpu: %s at binding %d is not a texture or sampler", g.Name, g.Binding.Binding)
		}
		slots = append(slots, slot)
	}
	return slots, nil
}
